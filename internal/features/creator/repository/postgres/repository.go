package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/lib/pq"

	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/creator/models"
	"teleindex-backend/internal/features/creator/repository"
)

const creatorColumns = `id, slug, name, avatar_url, bio, category, tags, country, language,
	external, pricing, audience_stats, contacts, is_featured, is_verified, is_active, priority_level,
	metrics_channels_count, metrics_subscribers_total, metrics_avg_er_percent, metrics_min_price_rub,
	metrics_avg_price_rub, metrics_avg_cpm_rub, metrics_last_post_at, created_at, updated_at`

// Колонки, которые разрешено менять через патч
var updatableColumns = map[string]bool{
	"slug": true, "name": true, "avatar_url": true, "bio": true, "category": true, "tags": true,
	"country": true, "language": true, "external": true, "pricing": true, "audience_stats": true,
	"contacts": true, "is_featured": true, "is_verified": true, "is_active": true, "priority_level": true,
}

// JSONB-колонки: значение сериализуется перед записью
var jsonColumns = map[string]bool{
	"external": true, "pricing": true, "audience_stats": true, "contacts": true,
}

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.CreatorRepository {
	return &postgresRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCreator(row rowScanner) (*models.Creator, error) {
	var c models.Creator
	var (
		avatarURL, bio, category, country, language sql.NullString
		tags                                         pq.StringArray
		external, pricing, audience, contacts        []byte
		avgER                                        sql.NullFloat64
		minPrice, avgPrice, avgCPM                   sql.NullInt64
		lastPost                                     sql.NullTime
	)

	err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &avatarURL, &bio, &category, &tags, &country, &language,
		&external, &pricing, &audience, &contacts, &c.Flags.Featured, &c.Flags.Verified, &c.Flags.Active, &c.PriorityLevel,
		&c.Metrics.ChannelsCount, &c.Metrics.SubscribersTotal, &avgER, &minPrice,
		&avgPrice, &avgCPM, &lastPost, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.AvatarURL = nullString(avatarURL)
	c.Bio = nullString(bio)
	c.Category = nullString(category)
	c.Country = nullString(country)
	c.Language = nullString(language)
	c.Tags = []string(tags)

	if err := unmarshalJSON(external, &c.External); err != nil {
		return nil, fmt.Errorf("failed to decode external: %w", err)
	}
	if err := unmarshalJSON(pricing, &c.Pricing); err != nil {
		return nil, fmt.Errorf("failed to decode pricing: %w", err)
	}
	if err := unmarshalJSON(audience, &c.AudienceStats); err != nil {
		return nil, fmt.Errorf("failed to decode audience_stats: %w", err)
	}
	if err := unmarshalJSON(contacts, &c.Contacts); err != nil {
		return nil, fmt.Errorf("failed to decode contacts: %w", err)
	}

	c.Metrics.AvgERPercent = nullFloat(avgER)
	c.Metrics.MinPriceRub = nullInt(minPrice)
	c.Metrics.AvgPriceRub = nullInt(avgPrice)
	c.Metrics.AvgCPMRub = nullInt(avgCPM)
	c.Metrics.LastPostAt = nullTime(lastPost)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.ApplyDefaults()

	return &c, nil
}

func scanCreators(rows *sql.Rows) ([]*models.Creator, error) {
	defer rows.Close()

	creators := make([]*models.Creator, 0)
	for rows.Next() {
		c, err := scanCreator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan creator: %w", err)
		}
		creators = append(creators, c)
	}
	return creators, rows.Err()
}

func unmarshalJSON(data []byte, dest any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Create сохраняет нового автора
func (r *postgresRepository) Create(ctx context.Context, c *models.Creator) error {
	external, err := marshalJSON(c.External)
	if err != nil {
		return err
	}
	pricing, err := marshalJSON(c.Pricing)
	if err != nil {
		return err
	}
	audience, err := marshalJSON(c.AudienceStats)
	if err != nil {
		return err
	}
	contacts, err := marshalJSON(c.Contacts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO creators (` + creatorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17,
			$18, $19, $20, $21, $22, $23, $24, $25, $26)
	`

	m := c.Metrics
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.Slug, c.Name, c.AvatarURL, c.Bio, c.Category, pq.Array(c.Tags), c.Country, c.Language,
		external, pricing, audience, contacts, c.Flags.Featured, c.Flags.Verified, c.Flags.Active, c.PriorityLevel,
		m.ChannelsCount, m.SubscribersTotal, m.AvgERPercent, m.MinPriceRub,
		m.AvgPriceRub, m.AvgCPMRub, m.LastPostAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create creator: %w", err)
	}
	return nil
}

// GetByID получает автора по id
func (r *postgresRepository) GetByID(ctx context.Context, id string) (*models.Creator, error) {
	return r.getOne(ctx, `SELECT `+creatorColumns+` FROM creators WHERE id = $1`, id)
}

// GetBySlug получает автора по slug
func (r *postgresRepository) GetBySlug(ctx context.Context, slug string) (*models.Creator, error) {
	return r.getOne(ctx, `SELECT `+creatorColumns+` FROM creators WHERE slug = $1`, slug)
}

func (r *postgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Creator, error) {
	c, err := scanCreator(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to get creator: %w", err)
	}
	return c, nil
}

// SlugExists проверяет, занят ли slug другим автором
func (r *postgresRepository) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM creators WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// List возвращает страницу активных авторов и общее количество по фильтру
func (r *postgresRepository) List(ctx context.Context, f models.ListFilter) ([]*models.Creator, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM creators`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count creators: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM creators%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		creatorColumns, where, orderBy(f.Sort, f.Order), len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list creators: %w", err)
	}
	creators, err := scanCreators(rows)
	if err != nil {
		return nil, 0, err
	}
	return creators, total, nil
}

// buildWhere строит условие выборки; неактивные авторы не попадают никогда
func buildWhere(f models.ListFilter) (string, []any) {
	conds := []string{"is_active = TRUE"}
	var args []any
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(args))))
	}

	if f.Query != "" {
		args = append(args, f.Query)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(search @@ plainto_tsquery('simple', $%[1]d) OR name ILIKE '%%' || $%[1]d || '%%' "+
				"OR EXISTS (SELECT 1 FROM unnest(tags) t WHERE t ILIKE '%%' || $%[1]d || '%%'))", n))
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
	if f.PriorityLevel != "" {
		add("priority_level = ?", f.PriorityLevel)
	}
	if len(f.Tags) > 0 {
		add("tags && ?", pq.Array(f.Tags))
	}
	if f.Featured != nil {
		add("is_featured = ?", *f.Featured)
	}
	if f.Verified != nil {
		add("is_verified = ?", *f.Verified)
	}
	if f.SubscribersMin != nil {
		add("metrics_subscribers_total >= ?", *f.SubscribersMin)
	}
	if f.SubscribersMax != nil {
		add("metrics_subscribers_total <= ?", *f.SubscribersMax)
	}
	if f.PriceMin != nil {
		add("metrics_min_price_rub >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		add("metrics_min_price_rub <= ?", *f.PriceMax)
	}
	if f.ERMin != nil {
		add("metrics_avg_er_percent >= ?", *f.ERMin)
	}
	if f.ERMax != nil {
		add("metrics_avg_er_percent <= ?", *f.ERMax)
	}
	if f.CPMMin != nil {
		add("metrics_avg_cpm_rub >= ?", *f.CPMMin)
	}
	if f.CPMMax != nil {
		add("metrics_avg_cpm_rub <= ?", *f.CPMMax)
	}
	if f.HasPrice != nil {
		if *f.HasPrice {
			conds = append(conds, "metrics_min_price_rub IS NOT NULL")
		} else {
			conds = append(conds, "metrics_min_price_rub IS NULL")
		}
	}
	if f.LastPostDays != nil {
		add("metrics_last_post_at >= NOW() - make_interval(days => ?)", *f.LastPostDays)
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

var sortColumns = map[string]string{
	models.SortName:             "name",
	models.SortCreatedAt:        "created_at",
	models.SortSubscribersTotal: "metrics_subscribers_total",
	models.SortAvgPriceRub:      "metrics_avg_price_rub",
	models.SortAvgERPercent:     "metrics_avg_er_percent",
	models.SortAvgCPMRub:        "metrics_avg_cpm_rub",
	models.SortLastPostAt:       "metrics_last_post_at",
}

// orderBy ожидает нормализованный фильтр; пустые метрики всегда в конце
func orderBy(sort, order string) string {
	column, ok := sortColumns[sort]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if order == models.OrderAsc {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s NULLS LAST, id", column, direction)
}

// ListActive активные авторы для подборки, сначала с высоким приоритетом
func (r *postgresRepository) ListActive(ctx context.Context, category string, featuredOnly bool, limit int) ([]*models.Creator, error) {
	query := `SELECT ` + creatorColumns + ` FROM creators
		WHERE is_active = TRUE
			AND ($1 = '' OR category = $1)
			AND (NOT $2 OR is_featured = TRUE)
		ORDER BY CASE priority_level WHEN 'premium' THEN 0 WHEN 'featured' THEN 1 ELSE 2 END,
			metrics_subscribers_total DESC, id
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, category, featuredOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active creators: %w", err)
	}
	return scanCreators(rows)
}

// CountActive количество активных авторов
func (r *postgresRepository) CountActive(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM creators WHERE is_active = TRUE`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count creators: %w", err)
	}
	return count, nil
}

// Update применяет изменения и обновляет updated_at
func (r *postgresRepository) Update(ctx context.Context, id string, changes patch.Assignments) (*models.Creator, error) {
	sets := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+2)
	for _, c := range changes {
		if !updatableColumns[c.Column] {
			return nil, fmt.Errorf("column %q cannot be updated", c.Column)
		}
		value, err := columnValue(c)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", c.Column, err)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.Column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE creators SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), creatorColumns)

	c, err := scanCreator(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrCreatorNotFound
		}
		return nil, fmt.Errorf("failed to update creator: %w", err)
	}
	return c, nil
}

func columnValue(a patch.Assignment) (any, error) {
	switch {
	case a.Column == "tags":
		tags, _ := a.Value.([]string)
		if tags == nil {
			tags = []string{}
		}
		return pq.Array(tags), nil
	case jsonColumns[a.Column]:
		if a.Value == nil {
			return defaultJSON(a.Column), nil
		}
		return marshalJSON(a.Value)
	default:
		return a.Value, nil
	}
}

func defaultJSON(column string) string {
	if column == "pricing" {
		return `{"currency":"` + models.DefaultCurrency + `"}`
	}
	return "{}"
}

// UpdateMetrics перезаписывает метрики целиком и возвращает slug автора
func (r *postgresRepository) UpdateMetrics(ctx context.Context, id string, m models.Metrics, updatedAt time.Time) (string, error) {
	query := `
		UPDATE creators SET
			metrics_channels_count = $1,
			metrics_subscribers_total = $2,
			metrics_avg_er_percent = $3,
			metrics_min_price_rub = $4,
			metrics_avg_price_rub = $5,
			metrics_avg_cpm_rub = $6,
			metrics_last_post_at = $7,
			updated_at = $8
		WHERE id = $9
		RETURNING slug
	`

	var slug string
	err := r.db.QueryRowContext(ctx, query,
		m.ChannelsCount, m.SubscribersTotal, m.AvgERPercent, m.MinPriceRub,
		m.AvgPriceRub, m.AvgCPMRub, m.LastPostAt, updatedAt, id).Scan(&slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repository.ErrCreatorNotFound
		}
		return "", fmt.Errorf("failed to update creator metrics: %w", err)
	}
	return slug, nil
}

// Delete удаляет автора; связи удаляются каскадом
func (r *postgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM creators WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete creator: %w", err)
	}
	return expectAffected(res, repository.ErrCreatorNotFound)
}

// AddLinks вставляет связи одной транзакцией и возвращает число новых
func (r *postgresRepository) AddLinks(ctx context.Context, links []*models.Link) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO creator_channel_links (id, creator_id, channel_id, role, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT ON CONSTRAINT creator_channel_links_pair_key DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer stmt.Close()

	added := 0
	for _, l := range links {
		res, err := stmt.ExecContext(ctx, l.ID, l.CreatorID, l.ChannelID, l.Role, l.IsPrimary, l.CreatedAt)
		if err != nil {
			return 0, fmt.Errorf("failed to insert link: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit links: %w", err)
	}
	return added, nil
}

// SetPrimary делает канал основным, снимая признак с остальных
func (r *postgresRepository) SetPrimary(ctx context.Context, creatorID, channelID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE creator_channel_links SET is_primary = (channel_id = $2) WHERE creator_id = $1`,
		creatorID, channelID)
	if err != nil {
		return fmt.Errorf("failed to set primary channel: %w", err)
	}
	return nil
}

// RemoveLink удаляет одну связь
func (r *postgresRepository) RemoveLink(ctx context.Context, creatorID, channelID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM creator_channel_links WHERE creator_id = $1 AND channel_id = $2`, creatorID, channelID)
	if err != nil {
		return fmt.Errorf("failed to remove link: %w", err)
	}
	return expectAffected(res, repository.ErrLinkNotFound)
}

// LinkedChannelIDs каналы автора, основной первым
func (r *postgresRepository) LinkedChannelIDs(ctx context.Context, creatorID string) ([]string, error) {
	return r.queryIDs(ctx,
		`SELECT channel_id FROM creator_channel_links WHERE creator_id = $1 ORDER BY is_primary DESC, created_at, id`,
		creatorID)
}

// CreatorIDsByChannels авторы, связанные с любым из каналов
func (r *postgresRepository) CreatorIDsByChannels(ctx context.Context, channelIDs []string) ([]string, error) {
	if len(channelIDs) == 0 {
		return []string{}, nil
	}
	return r.queryIDs(ctx,
		`SELECT DISTINCT creator_id FROM creator_channel_links WHERE channel_id = ANY($1) ORDER BY creator_id`,
		pq.Array(channelIDs))
}

func (r *postgresRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
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
