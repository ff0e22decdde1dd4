package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/channel/models"
	"teleindex-backend/internal/features/channel/repository"
)

const channelColumns = `id, name, link, avatar_url, category, language, country, city,
	short_description, seo_description, subscribers, er, price_rub, cpm_rub,
	growth_30d, growth_score, last_post_at, status, link_status, link_last_checked,
	dead_at, is_featured, created_at, updated_at`

// Колонки, которые разрешено менять через патч
var updatableColumns = map[string]bool{
	"name": true, "link": true, "avatar_url": true, "category": true, "language": true,
	"country": true, "city": true, "short_description": true, "seo_description": true,
	"subscribers": true, "er": true, "price_rub": true, "cpm_rub": true, "growth_30d": true,
	"growth_score": true, "last_post_at": true, "status": true, "link_status": true,
	"link_last_checked": true, "dead_at": true, "is_featured": true,
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.ChannelRepository {
	return &postgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChannel(row rowScanner) (*models.Channel, error) {
	var ch models.Channel
	var (
		avatarURL, category, language, country, city sql.NullString
		shortDesc, seoDesc, linkStatus               sql.NullString
		er, cpm, growth30d, growthScore              sql.NullFloat64
		price                                        sql.NullInt64
		lastPost, lastChecked, deadAt                sql.NullTime
	)

	err := row.Scan(
		&ch.ID, &ch.Name, &ch.Link, &avatarURL, &category, &language, &country, &city,
		&shortDesc, &seoDesc, &ch.Subscribers, &er, &price, &cpm,
		&growth30d, &growthScore, &lastPost, &ch.Status, &linkStatus, &lastChecked,
		&deadAt, &ch.IsFeatured, &ch.CreatedAt, &ch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ch.AvatarURL = nullString(avatarURL)
	ch.Category = nullString(category)
	ch.Language = nullString(language)
	ch.Country = nullString(country)
	ch.City = nullString(city)
	ch.ShortDescription = nullString(shortDesc)
	ch.SEODescription = nullString(seoDesc)
	ch.LinkStatus = nullString(linkStatus)
	ch.ER = nullFloat(er)
	ch.CPMRub = nullFloat(cpm)
	ch.Growth30d = nullFloat(growth30d)
	ch.GrowthScore = nullFloat(growthScore)
	ch.PriceRub = nullInt(price)
	ch.LastPostAt = nullTime(lastPost)
	ch.LinkLastChecked = nullTime(lastChecked)
	ch.DeadAt = nullTime(deadAt)
	ch.CreatedAt = ch.CreatedAt.UTC()
	ch.UpdatedAt = ch.UpdatedAt.UTC()

	return &ch, nil
}

func scanChannels(rows *sql.Rows) ([]*models.Channel, error) {
	defer rows.Close()

	channels := make([]*models.Channel, 0)
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// Create сохраняет новый канал
func (r *postgresRepository) Create(ctx context.Context, ch *models.Channel) error {
	query := `
		INSERT INTO channels (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.db.ExecContext(ctx, query, channelArgs(ch)...)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func channelArgs(ch *models.Channel) []any {
	return []any{
		ch.ID, ch.Name, ch.Link, ch.AvatarURL, ch.Category, ch.Language, ch.Country, ch.City,
		ch.ShortDescription, ch.SEODescription, ch.Subscribers, ch.ER, ch.PriceRub, ch.CPMRub,
		ch.Growth30d, ch.GrowthScore, ch.LastPostAt, ch.Status, ch.LinkStatus, ch.LinkLastChecked,
		ch.DeadAt, ch.IsFeatured, ch.CreatedAt, ch.UpdatedAt,
	}
}

// GetByID получает канал по id
func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = $1`

	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return ch, nil
}

// GetByIDs получает каналы по списку id
func (r *postgresRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.Channel, error) {
	if len(ids) == 0 {
		return []*models.Channel{}, nil
	}

	query := `SELECT ` + channelColumns + ` FROM channels WHERE id = ANY($1) ORDER BY subscribers DESC, id`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get channels by ids: %w", err)
	}
	return scanChannels(rows)
}

// List возвращает страницу каналов и общее количество по фильтру
func (r *postgresRepository) List(ctx context.Context, f models.ListFilter) ([]*models.Channel, int64, error) {
	where, args := buildWhere(f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM channels` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count channels: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM channels%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		channelColumns, where, orderBy(f.Sort), len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list channels: %w", err)
	}
	channels, err := scanChannels(rows)
	if err != nil {
		return nil, 0, err
	}
	return channels, total, nil
}

// buildWhere строит условие выборки. Пустой статус означает любой статус.
func buildWhere(f models.ListFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.Status != "" {
		add("status = ?", f.Status)
	}
	if f.Query != "" {
		args = append(args, f.Query)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(search @@ plainto_tsquery('simple', $%[1]d) OR name ILIKE '%%' || $%[1]d || '%%' "+
				"OR short_description ILIKE '%%' || $%[1]d || '%%' OR seo_description ILIKE '%%' || $%[1]d || '%%')", n))
	}
	if f.Category != "" {
		add("category = ?", f.Category)
	}
	if f.Language != "" {
		add("language = ?", f.Language)
	}
	if f.Country != "" {
		add("country = ?", f.Country)
	}
	if f.MinSubscribers != nil {
		add("subscribers >= ?", *f.MinSubscribers)
	}
	if f.MaxSubscribers != nil {
		add("subscribers <= ?", *f.MaxSubscribers)
	}
	if f.MinPrice != nil {
		add("price_rub >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		add("price_rub <= ?", *f.MaxPrice)
	}
	if f.MinER != nil {
		add("er >= ?", *f.MinER)
	}
	if f.MaxER != nil {
		add("er <= ?", *f.MaxER)
	}
	if f.OnlyFeatured {
		conds = append(conds, "is_featured = TRUE")
	}
	if f.OnlyAlive {
		conds = append(conds, "link_status IS DISTINCT FROM 'dead'")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderBy(sort string) string {
	switch sort {
	case models.SortNew:
		return "created_at DESC, id"
	case models.SortName:
		return "name ASC, id"
	case models.SortPrice:
		return "price_rub DESC NULLS LAST, id"
	case models.SortER:
		return "er DESC NULLS LAST, id"
	case models.SortGrowth:
		return "COALESCE(growth_30d, growth_score) DESC NULLS LAST, subscribers DESC, id"
	default:
		return "subscribers DESC, id"
	}
}

// Top самые крупные одобренные каналы
func (r *postgresRepository) Top(ctx context.Context, limit int) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels
		WHERE status = 'approved'
		ORDER BY subscribers DESC, id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top channels: %w", err)
	}
	return scanChannels(rows)
}

// Trending одобренные каналы с наибольшим ростом
func (r *postgresRepository) Trending(ctx context.Context, limit int) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels
		WHERE status = 'approved'
		ORDER BY COALESCE(growth_30d, growth_score, subscribers::double precision) DESC, id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trending channels: %w", err)
	}
	return scanChannels(rows)
}

// Update применяет изменения и обновляет updated_at
func (r *postgresRepository) Update(ctx context.Context, id string, changes patch.Assignments) (*models.Channel, error) {
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, c := range changes {
		if !updatableColumns[c.Column] {
			return nil, fmt.Errorf("column %q cannot be updated", c.Column)
		}
		args = append(args, c.Value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE channels SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), channelColumns)

	ch, err := scanChannel(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	return ch, nil
}

// CountByStatus считает каналы по статусам модерации и мёртвые ссылки
func (r *postgresRepository) CountByStatus(ctx context.Context) (*models.StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE link_status = 'dead')
		FROM channels
	`

	var counts models.StatusCounts
	err := r.db.QueryRowContext(ctx, query).Scan(&counts.Draft, &counts.Approved, &counts.Rejected, &counts.Dead)
	if err != nil {
		return nil, fmt.Errorf("failed to count channels: %w", err)
	}
	return &counts, nil
}

// ListForLinkCheck выбирает каналы для проверки ссылок
func (r *postgresRepository) ListForLinkCheck(ctx context.Context, limit int) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels
		WHERE link <> ''
		ORDER BY link_last_checked ASC NULLS FIRST, id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels for link check: %w", err)
	}
	return scanChannels(rows)
}

// UpsertByLink вставляет канал или дополняет существующий с той же ссылкой.
// Статус, id и created_at существующего канала не меняются.
func (r *postgresRepository) UpsertByLink(ctx context.Context, ch *models.Channel) (string, bool, error) {
	query := `
		INSERT INTO channels (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		ON CONFLICT (link) WHERE link <> '' DO UPDATE SET
			name = EXCLUDED.name,
			avatar_url = COALESCE(EXCLUDED.avatar_url, channels.avatar_url),
			category = COALESCE(EXCLUDED.category, channels.category),
			language = COALESCE(EXCLUDED.language, channels.language),
			country = COALESCE(EXCLUDED.country, channels.country),
			city = COALESCE(EXCLUDED.city, channels.city),
			short_description = COALESCE(EXCLUDED.short_description, channels.short_description),
			seo_description = COALESCE(EXCLUDED.seo_description, channels.seo_description),
			subscribers = CASE WHEN EXCLUDED.subscribers > 0 THEN EXCLUDED.subscribers ELSE channels.subscribers END,
			er = COALESCE(EXCLUDED.er, channels.er),
			price_rub = COALESCE(EXCLUDED.price_rub, channels.price_rub),
			cpm_rub = COALESCE(EXCLUDED.cpm_rub, channels.cpm_rub),
			growth_30d = COALESCE(EXCLUDED.growth_30d, channels.growth_30d),
			growth_score = COALESCE(EXCLUDED.growth_score, channels.growth_score),
			last_post_at = COALESCE(EXCLUDED.last_post_at, channels.last_post_at),
			is_featured = channels.is_featured OR EXCLUDED.is_featured,
			updated_at = EXCLUDED.updated_at
		RETURNING id, (xmax = 0)
	`

	var (
		id       string
		inserted bool
	)
	if err := r.db.QueryRowContext(ctx, query, channelArgs(ch)...).Scan(&id, &inserted); err != nil {
		return "", false, fmt.Errorf("failed to upsert channel: %w", err)
	}
	return id, inserted, nil
}

// RandomApprovedIDs случайная выборка одобренных каналов
func (r *postgresRepository) RandomApprovedIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM channels WHERE status = 'approved' ORDER BY random() LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to sample channels: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
