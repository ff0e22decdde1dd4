package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/logger"
	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/admin/models"
	channelmodels "teleindex-backend/internal/features/channel/models"
	channelrepo "teleindex-backend/internal/features/channel/repository"
	channelservice "teleindex-backend/internal/features/channel/service"
	creatormodels "teleindex-backend/internal/features/creator/models"
	creatorservice "teleindex-backend/internal/features/creator/service"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/telegram"
	"teleindex-backend/internal/utils/random"
)

const (
	defaultCheckLimit  = 50
	defaultSeedCount   = 10
	defaultImportLimit = 50
	maxLinksPerCreator = 3
)

// LinkChecker проверяет доступность ссылки на канал
type LinkChecker interface {
	CheckLink(ctx context.Context, link string) (bool, error)
}

// PageFetcher загружает страницу каталога-источника
type PageFetcher interface {
	FetchPage(ctx context.Context, pageURL string) ([]byte, error)
}

type AdminService interface {
	Summary(ctx context.Context) (*models.Summary, error)
	CheckLinks(ctx context.Context, req models.LinkCheckRequest) (*models.LinkCheckResult, error)
	SeedDemo(ctx context.Context) (*models.SeedResult, error)
	SeedCreators(ctx context.Context, count int) (*models.CreatorSeedResult, error)
	Import(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error)
}

type adminService struct {
	channelRepo channelrepo.ChannelRepository
	channels    channelservice.ChannelService
	creators    creatorservice.CreatorService
	checker     LinkChecker
	fetcher     PageFetcher
	metrics     *metrics.Metrics
	concurrency int
	maxImport   int
	now         func() time.Time
}

func NewAdminService(
	channelRepo channelrepo.ChannelRepository,
	channels channelservice.ChannelService,
	creators creatorservice.CreatorService,
	checker LinkChecker,
	fetcher PageFetcher,
	cfg *config.Config,
	m *metrics.Metrics,
) AdminService {
	concurrency := cfg.LinkCheck.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	maxImport := cfg.Parser.MaxLinks
	if maxImport < 1 {
		maxImport = defaultImportLimit
	}

	return &adminService{
		channelRepo: channelRepo,
		channels:    channels,
		creators:    creators,
		checker:     checker,
		fetcher:     fetcher,
		metrics:     m,
		concurrency: concurrency,
		maxImport:   maxImport,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *adminService) Summary(ctx context.Context) (*models.Summary, error) {
	counts, err := s.channelRepo.CountByStatus(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("count channels", err)
	}
	creators, err := s.creators.CountActive(ctx)
	if err != nil {
		return nil, err
	}

	return &models.Summary{
		Draft:    counts.Draft,
		Approved: counts.Approved,
		Rejected: counts.Rejected,
		Dead:     counts.Dead,
		Creators: creators,
	}, nil
}

type checkOutcome struct {
	channel *channelmodels.Channel
	alive   bool
	err     error
}

// CheckLinks проверяет ссылки давно не проверенных каналов. Проверки идут
// параллельно, запись результатов последовательная. Каналы, которые не удалось
// проверить (breaker открыт), не меняются и не входят в checked.
func (s *adminService) CheckLinks(ctx context.Context, req models.LinkCheckRequest) (*models.LinkCheckResult, error) {
	limit := req.Limit
	if limit < 1 {
		limit = defaultCheckLimit
	}

	channels, err := s.channelRepo.ListForLinkCheck(ctx, limit)
	if err != nil {
		return nil, errors.NewDatabaseError("list channels for link check", err)
	}

	outcomes := make([]checkOutcome, len(channels))
	semaphore := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(i int, ch *channelmodels.Channel) {
			defer wg.Done()
			defer func() { <-semaphore }()
			alive, err := s.checker.CheckLink(ctx, ch.Link)
			outcomes[i] = checkOutcome{channel: ch, alive: alive, err: err}
		}(i, ch)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &models.LinkCheckResult{OK: true}
	now := s.now()
	for _, o := range outcomes {
		if o.err != nil {
			if !stderrors.Is(o.err, telegram.ErrUnavailable) {
				logger.Warn().Err(o.err).Str("channel_id", o.channel.ID).Msg("Link check failed")
			}
			result.Skipped++
			s.countCheck("skipped")
			continue
		}

		changes := linkCheckChanges(o.channel, o.alive, req.ReplaceDead, now)
		if _, err := s.channels.ApplyChanges(ctx, o.channel.ID, changes); err != nil {
			if errors.IsNotFound(err) {
				// канал удалили во время проверки
				result.Skipped++
				continue
			}
			return nil, err
		}

		result.Checked++
		if o.alive {
			result.Alive++
			s.countCheck(channelmodels.LinkAlive)
		} else {
			result.Dead++
			s.countCheck(channelmodels.LinkDead)
		}
	}

	logger.Info().
		Int("checked", result.Checked).
		Int("alive", result.Alive).
		Int("dead", result.Dead).
		Int("skipped", result.Skipped).
		Msg("Link check finished")
	return result, nil
}

// linkCheckChanges колонки, которые меняет проверка. link_status пишется только
// при изменении, чтобы не пересчитывать метрики авторов без причины.
func linkCheckChanges(ch *channelmodels.Channel, alive, replaceDead bool, now time.Time) patch.Assignments {
	var changes patch.Assignments
	changes.AddValue("link_last_checked", now)

	status := channelmodels.LinkAlive
	if !alive {
		status = channelmodels.LinkDead
	}
	if ch.LinkStatus == nil || *ch.LinkStatus != status {
		changes.AddValue("link_status", status)
	}

	switch {
	case alive && ch.DeadAt != nil:
		changes.AddValue("dead_at", nil)
	case !alive && ch.DeadAt == nil:
		changes.AddValue("dead_at", now)
	}

	if !alive && replaceDead {
		changes.AddValue("link", "")
	}
	return changes
}

// SeedDemo загружает демонстрационные каналы, повторный вызов их обновляет
func (s *adminService) SeedDemo(ctx context.Context) (*models.SeedResult, error) {
	res, err := s.channels.Upsert(ctx, DemoChannels(s.now()), channelmodels.StatusApproved)
	if err != nil {
		return nil, err
	}
	return &models.SeedResult{OK: true, Inserted: res.Inserted, Updated: res.Updated}, nil
}

// SeedCreators создаёт демо-авторов и привязывает к каждому до трёх случайных
// одобренных каналов
func (s *adminService) SeedCreators(ctx context.Context, count int) (*models.CreatorSeedResult, error) {
	if count < 1 {
		count = defaultSeedCount
	}

	ids, err := s.channelRepo.RandomApprovedIDs(ctx, count*maxLinksPerCreator)
	if err != nil {
		return nil, errors.NewDatabaseError("sample channels", err)
	}
	if err := random.Shuffle(ids); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to shuffle channels")
	}

	result := &models.CreatorSeedResult{OK: true}
	for i := 0; i < count; i++ {
		creator, err := s.creators.Create(ctx, DemoCreator(i))
		if err != nil {
			return result, err
		}
		result.Created++

		linked := pick(ids, i, 1+i%maxLinksPerCreator)
		if len(linked) == 0 {
			continue
		}
		req := &creatormodels.LinkChannelsRequest{
			ChannelIDs: linked,
			PrimaryID:  &linked[0],
			Role:       creatormodels.RoleOwner,
		}
		if _, err := s.creators.LinkChannels(ctx, creator.ID, req); err != nil {
			return result, err
		}
	}

	logger.Info().Int("created", result.Created).Msg("Demo creators seeded")
	return result, nil
}

// pick берёт n id по кругу начиная с позиции creator*maxLinksPerCreator
func pick(ids []string, creator, n int) []string {
	if len(ids) == 0 {
		return nil
	}
	if n > len(ids) {
		n = len(ids)
	}
	out := make([]string, 0, n)
	start := creator * maxLinksPerCreator
	for k := 0; k < n; k++ {
		out = append(out, ids[(start+k)%len(ids)])
	}
	return out
}

// Import загружает страницу каталога и добавляет найденные каналы черновиками
func (s *adminService) Import(ctx context.Context, req *models.ImportRequest) (*models.ImportResult, error) {
	if !telegram.IsValidPageURL(req.ListURL) {
		return nil, errors.NewValidationError("list_url", "must be an absolute http(s) URL")
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultImportLimit
	}
	if limit > s.maxImport {
		limit = s.maxImport
	}

	page, err := s.fetcher.FetchPage(ctx, req.ListURL)
	if err != nil {
		return nil, errors.NewExternalAPIError("fetch listing page", err).
			WithDetail("list_url", req.ListURL)
	}

	refs := telegram.ExtractChannelLinks(page, limit)
	channels := make([]*channelmodels.Channel, 0, len(refs))
	for _, ref := range refs {
		ch := &channelmodels.Channel{
			Name:      ref.Title,
			Link:      ref.Link,
			AvatarURL: ptr(telegram.AvatarURL(ref.Username)),
		}
		if req.Category != "" {
			ch.Category = ptr(req.Category)
		}
		channels = append(channels, ch)
	}

	result := &models.ImportResult{OK: true, Found: len(refs)}
	if len(channels) == 0 {
		return result, nil
	}

	res, err := s.channels.Upsert(ctx, channels, channelmodels.StatusDraft)
	if res != nil {
		result.Inserted = res.Inserted
		result.Updated = res.Updated
		s.countImport(res)
	}
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("list_url", req.ListURL).
		Int("found", result.Found).
		Int("inserted", result.Inserted).
		Msg("Channels imported")
	return result, nil
}

func (s *adminService) countCheck(result string) {
	if s.metrics != nil {
		s.metrics.LinkChecksTotal.WithLabelValues(result).Inc()
	}
}

func (s *adminService) countImport(res *channelmodels.UpsertResult) {
	if s.metrics == nil {
		return
	}
	s.metrics.ParserImportedTotal.WithLabelValues("inserted").Add(float64(res.Inserted))
	s.metrics.ParserImportedTotal.WithLabelValues("updated").Add(float64(res.Updated))
}
