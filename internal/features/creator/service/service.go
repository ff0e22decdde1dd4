package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/common/patch"
	channelmodels "teleindex-backend/internal/features/channel/models"
	channelrepo "teleindex-backend/internal/features/channel/repository"
	"teleindex-backend/internal/features/creator/aggregator"
	"teleindex-backend/internal/features/creator/models"
	"teleindex-backend/internal/features/creator/repository"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/postgres"
	"teleindex-backend/internal/utils/random"
	"teleindex-backend/internal/utils/slug"
)

const (
	maxSlugAttempts   = 1000
	suggestionsFactor = 5
)

type CreatorService interface {
	List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error)
	// Get ищет автора по id, затем по slug
	Get(ctx context.Context, idOrSlug string) (*models.Creator, error)
	// Channels все привязанные каналы независимо от статуса модерации
	Channels(ctx context.Context, creatorID string) ([]models.ChannelSummary, error)
	Create(ctx context.Context, req *models.CreateCreatorRequest) (*models.Creator, error)
	Update(ctx context.Context, id string, p *models.CreatorPatch) (*models.Creator, error)
	Delete(ctx context.Context, id string, hard bool) (*models.DeleteResult, error)
	LinkChannels(ctx context.Context, creatorID string, req *models.LinkChannelsRequest) (int, error)
	UnlinkChannel(ctx context.Context, creatorID, channelID string) error
	Verify(ctx context.Context, id string, verified bool) (*models.Creator, error)
	Feature(ctx context.Context, id, priorityLevel string) (*models.Creator, error)
	Suggestions(ctx context.Context, filter models.SuggestionFilter) ([]*models.Creator, error)
	CountActive(ctx context.Context) (int64, error)
	// RecomputeMetrics пересчитывает и сохраняет метрики автора. Существование
	// автора должен проверить вызывающий.
	RecomputeMetrics(ctx context.Context, creatorID string) (*models.Metrics, error)
	// RecomputeForChannels пересчитывает метрики всех авторов, связанных с каналами
	RecomputeForChannels(ctx context.Context, channelIDs ...string) error
}

type creatorService struct {
	repo     repository.CreatorRepository
	channels channelrepo.ChannelRepository
	cache    cache.Cache
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewCreatorService(
	repo repository.CreatorRepository,
	channels channelrepo.ChannelRepository,
	cacheService cache.Cache,
	m *metrics.Metrics,
) CreatorService {
	return &creatorService{
		repo:     repo,
		channels: channels,
		cache:    cacheService,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List публичный список активных авторов
func (s *creatorService) List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error) {
	filter.Normalize()

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, errors.NewDatabaseError("list creators", err)
	}
	return models.NewListResponse(items, total, filter), nil
}

// Get получает автора через кэш. Мягко удалённый автор доступен по прямой ссылке.
func (s *creatorService) Get(ctx context.Context, idOrSlug string) (*models.Creator, error) {
	var creator models.Creator
	err := s.cache.GetOrSet(ctx, fmt.Sprintf(cache.CreatorKey, idOrSlug), &creator, 0, func() (interface{}, error) {
		return s.load(ctx, idOrSlug)
	})
	if err != nil {
		return nil, err
	}
	creator.ApplyDefaults()
	return &creator, nil
}

func (s *creatorService) load(ctx context.Context, idOrSlug string) (*models.Creator, error) {
	c, err := s.repo.GetByID(ctx, idOrSlug)
	if err == nil {
		return c, nil
	}
	if !stderrors.Is(err, repository.ErrCreatorNotFound) {
		return nil, errors.NewDatabaseError("get creator", err)
	}

	c, err = s.repo.GetBySlug(ctx, idOrSlug)
	if err != nil {
		return nil, s.mapError(err, idOrSlug, "get creator by slug")
	}
	return c, nil
}

// getByID без кэша, для мутаций
func (s *creatorService) getByID(ctx context.Context, id string) (*models.Creator, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapError(err, id, "get creator")
	}
	return c, nil
}

func (s *creatorService) Channels(ctx context.Context, creatorID string) ([]models.ChannelSummary, error) {
	ids, err := s.repo.LinkedChannelIDs(ctx, creatorID)
	if err != nil {
		return nil, errors.NewDatabaseError("get linked channels", err)
	}
	channels, err := s.channels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("get linked channels", err)
	}

	summaries := make([]models.ChannelSummary, 0, len(channels))
	for _, ch := range channels {
		summaries = append(summaries, models.SummaryOf(ch))
	}
	return summaries, nil
}

// Create создаёт автора с уникальным slug
func (s *creatorService) Create(ctx context.Context, req *models.CreateCreatorRequest) (*models.Creator, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	base := slug.Make(req.Name)
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		base = slug.Make(*req.Slug)
	}

	id := uuid.New().String()
	for attempt := 0; attempt < 3; attempt++ {
		unique, err := s.uniqueSlug(ctx, base, id)
		if err != nil {
			return nil, err
		}

		creator := req.ToCreator(id, unique, s.now())
		err = s.repo.Create(ctx, creator)
		if err == nil {
			logger.Info().Str("creator_id", creator.ID).Str("slug", creator.Slug).Msg("Creator created")
			return creator, nil
		}
		// slug заняли параллельным запросом между проверкой и вставкой
		if postgres.IsUniqueViolation(err) && postgres.ConstraintName(err) == "creators_slug_key" {
			continue
		}
		return nil, errors.NewDatabaseError("create creator", err)
	}

	return nil, errors.NewConflictError("creator", "could not allocate a unique slug").WithDetail("slug", base)
}

// uniqueSlug подбирает свободный вариант base, base-1, base-2...
func (s *creatorService) uniqueSlug(ctx context.Context, base, excludeID string) (string, error) {
	for n := 0; n < maxSlugAttempts; n++ {
		candidate := slug.WithSuffix(base, n)
		exists, err := s.repo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", errors.NewDatabaseError("check slug", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.NewConflictError("creator", "slug is exhausted").WithDetail("slug", base)
}

// Update частичное обновление. Явный slug делается уникальным, смена имени
// без slug перестраивает его из нового имени.
func (s *creatorService) Update(ctx context.Context, id string, p *models.CreatorPatch) (*models.Creator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	current, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := p.Assignments(current.Flags)

	var base string
	switch {
	case p.Slug.Present() && strings.TrimSpace(p.Slug.Value) != "":
		base = slug.Make(p.Slug.Value)
	case p.Name.Present() && strings.TrimSpace(p.Name.Value) != current.Name:
		base = slug.Make(p.Name.Value)
	}
	if base != "" {
		unique, err := s.uniqueSlug(ctx, base, id)
		if err != nil {
			return nil, err
		}
		if unique != current.Slug {
			changes.AddValue("slug", unique)
		}
	}

	if changes.Empty() {
		return current, nil
	}
	return s.apply(ctx, current, changes)
}

func (s *creatorService) apply(ctx context.Context, current *models.Creator, changes patch.Assignments) (*models.Creator, error) {
	updated, err := s.repo.Update(ctx, current.ID, changes)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, errors.NewConflictError("creator", "slug is already taken")
		}
		return nil, s.mapError(err, current.ID, "update creator")
	}

	s.invalidate(ctx, current.ID, current.Slug, updated.Slug)
	return updated, nil
}

// Delete мягкое удаление выключает active, жёсткое удаляет автора и связи
func (s *creatorService) Delete(ctx context.Context, id string, hard bool) (*models.DeleteResult, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if hard {
		if err := s.repo.Delete(ctx, id); err != nil {
			return nil, s.mapError(err, id, "delete creator")
		}
		s.invalidate(ctx, id, current.Slug)
		logger.Info().Str("creator_id", id).Msg("Creator deleted")
		return &models.DeleteResult{OK: true, Deleted: models.DeleteHard}, nil
	}

	var changes patch.Assignments
	changes.AddValue("is_active", false)
	if _, err := s.apply(ctx, current, changes); err != nil {
		return nil, err
	}
	logger.Info().Str("creator_id", id).Msg("Creator deactivated")
	return &models.DeleteResult{OK: true, Deleted: models.DeleteSoft}, nil
}

// LinkChannels привязывает каналы. Если хотя бы один id не найден,
// ничего не привязывается.
func (s *creatorService) LinkChannels(ctx context.Context, creatorID string, req *models.LinkChannelsRequest) (int, error) {
	if _, err := s.getByID(ctx, creatorID); err != nil {
		return 0, err
	}

	ids := uniqueIDs(req.ChannelIDs)
	if len(ids) == 0 {
		return 0, errors.NewValidationError("channel_ids", "is required")
	}
	if req.PrimaryID != nil && !contains(ids, *req.PrimaryID) {
		return 0, errors.NewValidationError("primary_id", "must be one of channel_ids")
	}

	found, err := s.channels.GetByIDs(ctx, ids)
	if err != nil {
		return 0, errors.NewDatabaseError("get channels", err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return 0, errors.NewBadRequestError("Some channels do not exist").WithDetail("missing", missing)
	}

	role := req.Role
	if role == "" {
		role = models.RoleOwner
	}
	now := s.now()
	links := make([]*models.Link, 0, len(ids))
	for _, channelID := range ids {
		links = append(links, &models.Link{
			ID:        uuid.New().String(),
			CreatorID: creatorID,
			ChannelID: channelID,
			Role:      role,
			IsPrimary: req.PrimaryID != nil && *req.PrimaryID == channelID,
			CreatedAt: now,
		})
	}

	added, err := s.repo.AddLinks(ctx, links)
	if err != nil {
		return 0, errors.NewDatabaseError("link channels", err)
	}
	if req.PrimaryID != nil {
		if err := s.repo.SetPrimary(ctx, creatorID, *req.PrimaryID); err != nil {
			return 0, errors.NewDatabaseError("set primary channel", err)
		}
	}

	if _, err := s.RecomputeMetrics(ctx, creatorID); err != nil {
		return 0, err
	}

	logger.Info().Str("creator_id", creatorID).Int("added", added).Msg("Channels linked")
	return added, nil
}

// UnlinkChannel отвязывает один канал
func (s *creatorService) UnlinkChannel(ctx context.Context, creatorID, channelID string) error {
	if _, err := s.getByID(ctx, creatorID); err != nil {
		return err
	}

	if err := s.repo.RemoveLink(ctx, creatorID, channelID); err != nil {
		if stderrors.Is(err, repository.ErrLinkNotFound) {
			return errors.New(errors.ErrCodeLinkNotFound, "Channel is not linked to this creator").
				WithDetail("creator_id", creatorID).
				WithDetail("channel_id", channelID)
		}
		return errors.NewDatabaseError("unlink channel", err)
	}

	_, err := s.RecomputeMetrics(ctx, creatorID)
	return err
}

func (s *creatorService) Verify(ctx context.Context, id string, verified bool) (*models.Creator, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes patch.Assignments
	changes.AddValue("is_verified", verified)
	return s.apply(ctx, current, changes)
}

// Feature меняет приоритет; featured и premium включают флаг featured
func (s *creatorService) Feature(ctx context.Context, id, priorityLevel string) (*models.Creator, error) {
	current, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var changes patch.Assignments
	changes.AddValue("priority_level", priorityLevel)
	changes.AddValue("is_featured", priorityLevel != models.PriorityNormal)
	return s.apply(ctx, current, changes)
}

// Suggestions случайная подборка среди активных авторов
func (s *creatorService) Suggestions(ctx context.Context, filter models.SuggestionFilter) ([]*models.Creator, error) {
	filter.Normalize()

	candidates, err := s.repo.ListActive(ctx, filter.Category, filter.FeaturedOnly, filter.Limit*suggestionsFactor)
	if err != nil {
		return nil, errors.NewDatabaseError("list suggestions", err)
	}
	picked, err := random.Sample(candidates, filter.Limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to sample suggestions")
	}
	return picked, nil
}

func (s *creatorService) CountActive(ctx context.Context) (int64, error) {
	count, err := s.repo.CountActive(ctx)
	if err != nil {
		return 0, errors.NewDatabaseError("count creators", err)
	}
	return count, nil
}

// RecomputeMetrics читает связи и каналы, считает метрики и перезаписывает их.
// Между записью связи и записью метрик чтение может вернуть старые метрики.
func (s *creatorService) RecomputeMetrics(ctx context.Context, creatorID string) (*models.Metrics, error) {
	ids, err := s.repo.LinkedChannelIDs(ctx, creatorID)
	if err != nil {
		return nil, errors.NewDatabaseError("get linked channels", err)
	}
	channels, err := s.channels.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.NewDatabaseError("get linked channels", err)
	}

	snapshots := make([]channelmodels.Snapshot, 0, len(channels))
	for _, ch := range channels {
		snapshots = append(snapshots, ch.ToSnapshot())
	}
	m := aggregator.Compute(snapshots)

	creatorSlug, err := s.repo.UpdateMetrics(ctx, creatorID, m, s.now())
	if err != nil {
		return nil, s.mapError(err, creatorID, "update creator metrics")
	}

	if s.metrics != nil {
		s.metrics.CreatorMetricsRecomputeTotal.Inc()
	}
	s.invalidate(ctx, creatorID, creatorSlug)

	logger.Debug().
		Str("creator_id", creatorID).
		Int("channels_count", m.ChannelsCount).
		Int64("subscribers_total", m.SubscribersTotal).
		Msg("Creator metrics recomputed")
	return &m, nil
}

func (s *creatorService) RecomputeForChannels(ctx context.Context, channelIDs ...string) error {
	creatorIDs, err := s.repo.CreatorIDsByChannels(ctx, channelIDs)
	if err != nil {
		return errors.NewDatabaseError("find creators by channels", err)
	}

	var firstErr error
	for _, id := range creatorIDs {
		if _, err := s.RecomputeMetrics(ctx, id); err != nil {
			logger.Error().Err(err).Str("creator_id", id).Msg("Failed to recompute creator metrics")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *creatorService) invalidate(ctx context.Context, id string, slugs ...string) {
	keys := cache.CreatorKeys(id, "")
	for _, sl := range slugs {
		if sl != "" {
			keys = append(keys, fmt.Sprintf(cache.CreatorKey, sl))
		}
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logger.Warn().Err(err).Str("creator_id", id).Msg("Failed to invalidate creator cache")
	}
}

func (s *creatorService) mapError(err error, idOrSlug, operation string) error {
	if stderrors.Is(err, repository.ErrCreatorNotFound) {
		return errors.NewCreatorNotFoundError(idOrSlug)
	}
	return errors.NewDatabaseError(operation, err)
}

func uniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []string, found []*channelmodels.Channel) []string {
	present := make(map[string]bool, len(found))
	for _, ch := range found {
		present[ch.ID] = true
	}
	missing := make([]string, 0)
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
