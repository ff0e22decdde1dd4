package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/channel/models"
	"teleindex-backend/internal/features/channel/repository"
	"teleindex-backend/internal/platform/postgres"
)

const (
	defaultShowcaseLimit = 10
	maxShowcaseLimit     = 50
	showcaseTTL          = 2 * time.Minute
)

// CreatorMetricsRefresher пересчитывает метрики авторов, связанных с каналами
type CreatorMetricsRefresher interface {
	RecomputeForChannels(ctx context.Context, channelIDs ...string) error
}

type ChannelService interface {
	List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error)
	// ListAll список для модерации: без фильтра по статусу по умолчанию
	ListAll(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error)
	Get(ctx context.Context, id string) (*models.Channel, error)
	Top(ctx context.Context, limit int) ([]*models.Channel, error)
	Trending(ctx context.Context, limit int) ([]*models.Channel, error)
	Create(ctx context.Context, req *models.CreateChannelRequest, defaultStatus string) (*models.Channel, error)
	Update(ctx context.Context, id string, p *models.ChannelPatch) (*models.Channel, error)
	Approve(ctx context.Context, id string) (*models.Channel, error)
	Reject(ctx context.Context, id string) (*models.Channel, error)
	// ApplyChanges служебное обновление (проверка ссылок), пересчитывает метрики авторов
	ApplyChanges(ctx context.Context, id string, changes patch.Assignments) (*models.Channel, error)
	// Upsert загружает каналы по ссылке, новые получают статус defaultStatus
	Upsert(ctx context.Context, channels []*models.Channel, defaultStatus string) (*models.UpsertResult, error)
	InvalidateShowcase(ctx context.Context)
}

type channelService struct {
	repo     repository.ChannelRepository
	cache    cache.Cache
	creators CreatorMetricsRefresher
	now      func() time.Time
}

func NewChannelService(repo repository.ChannelRepository, cacheService cache.Cache, creators CreatorMetricsRefresher) ChannelService {
	return &channelService{
		repo:     repo,
		cache:    cacheService,
		creators: creators,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List публичный каталог: по умолчанию только одобренные каналы
func (s *channelService) List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error) {
	if filter.Status == "" {
		filter.Status = models.StatusApproved
	}
	return s.list(ctx, filter)
}

func (s *channelService) ListAll(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error) {
	if filter.Sort == "" {
		filter.Sort = models.SortNew
	}
	return s.list(ctx, filter)
}

func (s *channelService) list(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error) {
	filter.Normalize()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list channels", err)
	}
	return models.NewListResponse(items, total, filter), nil
}

// Get получает канал по id
func (s *channelService) Get(ctx context.Context, id string) (*models.Channel, error) {
	ch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "get channel")
	}
	return ch, nil
}

// Top самые крупные каналы, кэшируются на пару минут
func (s *channelService) Top(ctx context.Context, limit int) ([]*models.Channel, error) {
	limit = clampShowcase(limit)

	var channels []*models.Channel
	err := s.cache.GetOrSet(ctx, fmt.Sprintf(cache.ChannelsTopKey, limit), &channels, showcaseTTL, func() (interface{}, error) {
		return s.repo.Top(ctx, limit)
	})
	if err != nil {
		return nil, errors.NewDatabaseError("top channels", err)
	}
	return channels, nil
}

// Trending каналы с наибольшим ростом
func (s *channelService) Trending(ctx context.Context, limit int) ([]*models.Channel, error) {
	limit = clampShowcase(limit)

	var channels []*models.Channel
	err := s.cache.GetOrSet(ctx, fmt.Sprintf(cache.ChannelsTrendKey, limit), &channels, showcaseTTL, func() (interface{}, error) {
		return s.repo.Trending(ctx, limit)
	})
	if err != nil {
		return nil, errors.NewDatabaseError("trending channels", err)
	}
	return channels, nil
}

// Create создаёт канал. Статус из запроса имеет приоритет над defaultStatus.
func (s *channelService) Create(ctx context.Context, req *models.CreateChannelRequest, defaultStatus string) (*models.Channel, error) {
	ch := req.ToChannel(uuid.New().String(), defaultStatus, s.now())

	if err := s.repo.Create(ctx, ch); err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("channel", "channel with this link already exists").
				WithDetail("link", ch.Link)
		}
		return nil, errors.NewDatabaseError("create channel", err)
	}

	logger.Info().Str("channel_id", ch.ID).Str("status", ch.Status).Msg("Channel created")
	s.InvalidateShowcase(ctx)
	return ch, nil
}

// Update применяет патч администратора
func (s *channelService) Update(ctx context.Context, id string, p *models.ChannelPatch) (*models.Channel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	changes := p.Assignments()
	if changes.Empty() {
		return s.Get(ctx, id)
	}
	return s.ApplyChanges(ctx, id, changes)
}

func (s *channelService) Approve(ctx context.Context, id string) (*models.Channel, error) {
	return s.setStatus(ctx, id, models.StatusApproved)
}

func (s *channelService) Reject(ctx context.Context, id string) (*models.Channel, error) {
	return s.setStatus(ctx, id, models.StatusRejected)
}

func (s *channelService) setStatus(ctx context.Context, id, status string) (*models.Channel, error) {
	var changes patch.Assignments
	changes.AddValue("status", status)

	ch, err := s.ApplyChanges(ctx, id, changes)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("channel_id", id).Str("status", status).Msg("Channel moderated")
	return ch, nil
}

// ApplyChanges обновляет канал и пересчитывает метрики всех связанных авторов
func (s *channelService) ApplyChanges(ctx context.Context, id string, changes patch.Assignments) (*models.Channel, error) {
	ch, err := s.repo.Update(ctx, id, changes)
	if err != nil {
		return nil, s.mapError(err, id, "update channel")
	}

	if s.creators != nil && affectsCreatorMetrics(changes) {
		if err := s.creators.RecomputeForChannels(ctx, id); err != nil {
			logger.Error().Err(err).Str("channel_id", id).Msg("Failed to recompute creator metrics")
		}
	}

	s.InvalidateShowcase(ctx)
	return ch, nil
}

// Upsert добавляет или дополняет каналы по ссылке. Обновлённые каналы могли
// поменять подписчиков, цены и дату поста, поэтому их авторы пересчитываются.
func (s *channelService) Upsert(ctx context.Context, channels []*models.Channel, defaultStatus string) (*models.UpsertResult, error) {
	result := &models.UpsertResult{}
	now := s.now()
	var updated []string

	for _, ch := range channels {
		if ch.ID == "" {
			ch.ID = uuid.New().String()
		}
		if ch.Status == "" {
			ch.Status = defaultStatus
		}
		ch.CreatedAt = now
		ch.UpdatedAt = now

		id, inserted, err := s.repo.UpsertByLink(ctx, ch)
		if err != nil {
			s.recomputeUpdated(ctx, updated)
			return result, errors.NewDatabaseError("upsert channel", err)
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
			updated = append(updated, id)
		}
	}
	s.recomputeUpdated(ctx, updated)

	if result.Inserted+result.Updated > 0 {
		s.InvalidateShowcase(ctx)
	}
	return result, nil
}

// recomputeUpdated у только что вставленного канала связей нет, пересчёт
// нужен лишь обновлённым
func (s *channelService) recomputeUpdated(ctx context.Context, ids []string) {
	if s.creators == nil || len(ids) == 0 {
		return
	}
	if err := s.creators.RecomputeForChannels(ctx, ids...); err != nil {
		logger.Error().Err(err).Int("channels", len(ids)).Msg("Failed to recompute creator metrics after upsert")
	}
}

// InvalidateShowcase сбрасывает кэш витрин top/trending
func (s *channelService) InvalidateShowcase(ctx context.Context) {
	if err := s.cache.DeletePattern(ctx, cache.ChannelListPattern); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate channel cache")
	}
}

func (s *channelService) mapError(err error, id, operation string) error {
	if stderrors.Is(err, repository.ErrChannelNotFound) {
		return errors.NewChannelNotFoundError(id)
	}
	if postgres.IsUniqueViolation(err) {
		return errors.NewConflictError("channel", "channel with this link already exists")
	}
	return errors.NewDatabaseError(operation, err)
}

// Поля канала, от которых зависят метрики автора
var metricColumns = map[string]bool{
	"status": true, "subscribers": true, "er": true, "price_rub": true,
	"cpm_rub": true, "last_post_at": true, "link_status": true,
}

func affectsCreatorMetrics(changes patch.Assignments) bool {
	for _, c := range changes {
		if metricColumns[c.Column] {
			return true
		}
	}
	return false
}

func clampShowcase(limit int) int {
	if limit < 1 {
		return defaultShowcaseLimit
	}
	if limit > maxShowcaseLimit {
		return maxShowcaseLimit
	}
	return limit
}
