package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/config"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/admin/models"
	channelmodels "teleindex-backend/internal/features/channel/models"
	channelrepo "teleindex-backend/internal/features/channel/repository"
	channelservice "teleindex-backend/internal/features/channel/service"
	creatormodels "teleindex-backend/internal/features/creator/models"
	creatorservice "teleindex-backend/internal/features/creator/service"
	"teleindex-backend/internal/platform/metrics"
	"teleindex-backend/internal/platform/telegram"
)

// Заглушки встраивают интерфейс: невызываемые методы не реализуются

type stubChannelRepo struct {
	channelrepo.ChannelRepository
	forCheck []*channelmodels.Channel
	counts   channelmodels.StatusCounts
	approved []string
}

func (r *stubChannelRepo) ListForLinkCheck(_ context.Context, limit int) ([]*channelmodels.Channel, error) {
	if limit < len(r.forCheck) {
		return r.forCheck[:limit], nil
	}
	return r.forCheck, nil
}

func (r *stubChannelRepo) CountByStatus(context.Context) (*channelmodels.StatusCounts, error) {
	c := r.counts
	return &c, nil
}

func (r *stubChannelRepo) RandomApprovedIDs(_ context.Context, limit int) ([]string, error) {
	if limit < len(r.approved) {
		return append([]string(nil), r.approved[:limit]...), nil
	}
	return append([]string(nil), r.approved...), nil
}

type stubChannels struct {
	channelservice.ChannelService
	mu       sync.Mutex
	applied  map[string]patch.Assignments
	upserted []*channelmodels.Channel
	status   string
}

func (s *stubChannels) ApplyChanges(_ context.Context, id string, changes patch.Assignments) (*channelmodels.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applied == nil {
		s.applied = make(map[string]patch.Assignments)
	}
	s.applied[id] = changes
	return &channelmodels.Channel{ID: id}, nil
}

func (s *stubChannels) Upsert(_ context.Context, channels []*channelmodels.Channel, status string) (*channelmodels.UpsertResult, error) {
	s.upserted = append(s.upserted, channels...)
	s.status = status
	return &channelmodels.UpsertResult{Inserted: len(channels)}, nil
}

type stubCreators struct {
	creatorservice.CreatorService
	active  int64
	created []*creatormodels.CreateCreatorRequest
	links   map[string]*creatormodels.LinkChannelsRequest
}

func (s *stubCreators) CountActive(context.Context) (int64, error) {
	return s.active, nil
}

func (s *stubCreators) Create(_ context.Context, req *creatormodels.CreateCreatorRequest) (*creatormodels.Creator, error) {
	s.created = append(s.created, req)
	return &creatormodels.Creator{ID: req.Name, Name: req.Name}, nil
}

func (s *stubCreators) LinkChannels(_ context.Context, id string, req *creatormodels.LinkChannelsRequest) (int, error) {
	if s.links == nil {
		s.links = make(map[string]*creatormodels.LinkChannelsRequest)
	}
	s.links[id] = req
	return len(req.ChannelIDs), nil
}

type fakeChecker map[string]error

// ссылки с суффиксом alive живы, остальные мертвы, если нет ошибки
func (f fakeChecker) CheckLink(_ context.Context, link string) (bool, error) {
	if err, ok := f[link]; ok {
		return false, err
	}
	return len(link) > 5 && link[len(link)-5:] == "alive", nil
}

type fakeFetcher struct {
	page []byte
	err  error
	url  string
}

func (f *fakeFetcher) FetchPage(_ context.Context, pageURL string) ([]byte, error) {
	f.url = pageURL
	return f.page, f.err
}

type fixture struct {
	svc      AdminService
	repo     *stubChannelRepo
	channels *stubChannels
	creators *stubCreators
	fetcher  *fakeFetcher
}

func newFixture(checker fakeChecker) *fixture {
	cfg := &config.Config{}
	cfg.LinkCheck.Concurrency = 2
	cfg.Parser.MaxLinks = 100

	f := &fixture{
		repo:     &stubChannelRepo{},
		channels: &stubChannels{},
		creators: &stubCreators{},
		fetcher:  &fakeFetcher{},
	}
	f.svc = NewAdminService(f.repo, f.channels, f.creators, checker, f.fetcher, cfg, metrics.Default())
	return f
}

func strp(s string) *string { return &s }

func TestSummary(t *testing.T) {
	f := newFixture(nil)
	f.repo.counts = channelmodels.StatusCounts{Draft: 2, Approved: 5, Rejected: 1, Dead: 3}
	f.creators.active = 4

	s, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &models.Summary{Draft: 2, Approved: 5, Rejected: 1, Dead: 3, Creators: 4}, s)
}

func TestCheckLinksCounts(t *testing.T) {
	f := newFixture(fakeChecker{"https://t.me/broken": telegram.ErrUnavailable})
	f.repo.forCheck = []*channelmodels.Channel{
		{ID: "a", Link: "https://t.me/is_alive"},
		{ID: "b", Link: "https://t.me/gone", LinkStatus: strp(channelmodels.LinkAlive)},
		{ID: "c", Link: "https://t.me/broken"},
	}

	res, err := f.svc.CheckLinks(context.Background(), models.LinkCheckRequest{Limit: 10, ReplaceDead: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Alive)
	assert.Equal(t, 1, res.Dead)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, res.Checked, res.Alive+res.Dead)

	require.Contains(t, f.channels.applied, "a")
	require.Contains(t, f.channels.applied, "b")
	assert.NotContains(t, f.channels.applied, "c")

	dead := columns(f.channels.applied["b"])
	assert.Equal(t, channelmodels.LinkDead, dead["link_status"])
	assert.Equal(t, "", dead["link"])
	assert.NotNil(t, dead["dead_at"])

	alive := columns(f.channels.applied["a"])
	assert.Equal(t, channelmodels.LinkAlive, alive["link_status"])
	assert.NotContains(t, alive, "link")
}

func TestCheckLinksKeepsLinkWithoutReplace(t *testing.T) {
	f := newFixture(nil)
	f.repo.forCheck = []*channelmodels.Channel{{ID: "b", Link: "https://t.me/gone"}}

	res, err := f.svc.CheckLinks(context.Background(), models.LinkCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dead)
	assert.NotContains(t, columns(f.channels.applied["b"]), "link")
}

func TestLinkCheckChangesOnlyWritesChangedStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	deadAt := now.Add(-time.Hour)

	ch := &channelmodels.Channel{ID: "x", LinkStatus: strp(channelmodels.LinkDead), DeadAt: &deadAt}
	cols := columns(linkCheckChanges(ch, false, false, now))
	assert.Equal(t, map[string]any{"link_last_checked": now}, cols)

	// ожившая ссылка очищает dead_at
	cols = columns(linkCheckChanges(ch, true, false, now))
	assert.Equal(t, channelmodels.LinkAlive, cols["link_status"])
	assert.Contains(t, cols, "dead_at")
	assert.Nil(t, cols["dead_at"])
}

func TestSeedCreatorsLinksApprovedChannels(t *testing.T) {
	f := newFixture(nil)
	f.repo.approved = []string{"c1", "c2", "c3", "c4", "c5"}

	res, err := f.svc.SeedCreators(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, &models.CreatorSeedResult{OK: true, Created: 4}, res)
	require.Len(t, f.creators.created, 4)

	for _, req := range f.creators.links {
		assert.NotEmpty(t, req.ChannelIDs)
		assert.LessOrEqual(t, len(req.ChannelIDs), maxLinksPerCreator)
		assert.Equal(t, req.ChannelIDs[0], *req.PrimaryID)
		assert.Subset(t, f.repo.approved, req.ChannelIDs)
	}
}

func TestSeedCreatorsWithoutChannels(t *testing.T) {
	f := newFixture(nil)

	res, err := f.svc.SeedCreators(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, defaultSeedCount, res.Created)
	assert.Empty(t, f.creators.links)

	names := make(map[string]bool)
	for _, req := range f.creators.created {
		assert.False(t, names[req.Name], "duplicate demo name %s", req.Name)
		names[req.Name] = true
		require.NoError(t, req.Validate())
	}
}

func TestSeedDemo(t *testing.T) {
	f := newFixture(nil)

	res, err := f.svc.SeedDemo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(demoChannels), res.Inserted)
	assert.Equal(t, channelmodels.StatusApproved, f.channels.status)
	for _, ch := range f.channels.upserted {
		assert.Contains(t, ch.Link, "https://t.me/")
	}
}

func TestImport(t *testing.T) {
	f := newFixture(nil)
	f.fetcher.page = []byte(`<html><body>
		<a href="https://t.me/first_channel">First</a>
		<a href="https://t.me/joinchat/abc">invite</a>
		<a href="https://t.me/second_channel">Second</a>
		<a href="https://t.me/first_channel">again</a>
	</body></html>`)

	res, err := f.svc.Import(context.Background(), &models.ImportRequest{
		ListURL:  "https://example.com/list",
		Category: "Technology",
		Limit:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, &models.ImportResult{OK: true, Found: 2, Inserted: 2}, res)
	assert.Equal(t, channelmodels.StatusDraft, f.channels.status)
	require.Len(t, f.channels.upserted, 2)
	assert.Equal(t, "https://t.me/first_channel", f.channels.upserted[0].Link)
	assert.Equal(t, "Technology", *f.channels.upserted[0].Category)
}

func TestImportErrors(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.Import(context.Background(), &models.ImportRequest{ListURL: "not-a-valid-url"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
	assert.Empty(t, f.fetcher.url)

	f.fetcher.err = stderrors.New("connection refused")
	_, err = f.svc.Import(context.Background(), &models.ImportRequest{ListURL: "https://example.com/list"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeExternalAPI))
}

func TestImportEmptyPage(t *testing.T) {
	f := newFixture(nil)
	f.fetcher.page = []byte(`<html><body>nothing here</body></html>`)

	res, err := f.svc.Import(context.Background(), &models.ImportRequest{ListURL: "https://example.com/list"})
	require.NoError(t, err)
	assert.Equal(t, &models.ImportResult{OK: true}, res)
	assert.Empty(t, f.channels.upserted)
}

func columns(a patch.Assignments) map[string]any {
	out := make(map[string]any, len(a))
	for _, c := range a {
		out[c.Column] = c.Value
	}
	return out
}
