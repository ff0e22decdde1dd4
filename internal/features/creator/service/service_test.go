package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/cache"
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/patch"
	channelmodels "teleindex-backend/internal/features/channel/models"
	channelrepo "teleindex-backend/internal/features/channel/repository"
	channelservice "teleindex-backend/internal/features/channel/service"
	"teleindex-backend/internal/features/creator/models"
	"teleindex-backend/internal/features/creator/repository"
)

func ptr[T any](v T) *T { return &v }

// memoryChannels хранит каналы для проверки агрегации
type memoryChannels struct {
	mu       sync.Mutex
	channels map[string]*channelmodels.Channel
}

func newMemoryChannels(channels ...*channelmodels.Channel) *memoryChannels {
	r := &memoryChannels{channels: make(map[string]*channelmodels.Channel)}
	for _, ch := range channels {
		r.channels[ch.ID] = ch
	}
	return r
}

func (r *memoryChannels) Create(_ context.Context, ch *channelmodels.Channel) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels[ch.ID] = ch
	return nil
}

func (r *memoryChannels) GetByID(_ context.Context, id string) (*channelmodels.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, channelrepo.ErrChannelNotFound
	}
	cp := *ch
	return &cp, nil
}

func (r *memoryChannels) GetByIDs(ctx context.Context, ids []string) ([]*channelmodels.Channel, error) {
	out := make([]*channelmodels.Channel, 0, len(ids))
	for _, id := range ids {
		if ch, err := r.GetByID(ctx, id); err == nil {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *memoryChannels) List(context.Context, channelmodels.ListFilter) ([]*channelmodels.Channel, int64, error) {
	return nil, 0, nil
}

func (r *memoryChannels) Top(context.Context, int) ([]*channelmodels.Channel, error) { return nil, nil }

func (r *memoryChannels) Trending(context.Context, int) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memoryChannels) Update(_ context.Context, id string, changes patch.Assignments) (*channelmodels.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch, ok := r.channels[id]
	if !ok {
		return nil, channelrepo.ErrChannelNotFound
	}
	for _, c := range changes {
		switch c.Column {
		case "status":
			ch.Status = c.Value.(string)
		case "subscribers":
			ch.Subscribers = c.Value.(int64)
		case "link_status":
			v := c.Value.(string)
			ch.LinkStatus = &v
		}
	}
	cp := *ch
	return &cp, nil
}

func (r *memoryChannels) CountByStatus(context.Context) (*channelmodels.StatusCounts, error) {
	return &channelmodels.StatusCounts{}, nil
}

func (r *memoryChannels) ListForLinkCheck(context.Context, int) ([]*channelmodels.Channel, error) {
	return nil, nil
}

func (r *memoryChannels) UpsertByLink(_ context.Context, ch *channelmodels.Channel) (string, bool, error) {
	return ch.ID, true, nil
}

func (r *memoryChannels) RandomApprovedIDs(context.Context, int) ([]string, error) { return nil, nil }

// memoryCreators in-memory реализация CreatorRepository
type memoryCreators struct {
	mu       sync.Mutex
	creators map[string]*models.Creator
	links    map[[2]string]*models.Link
}

func newMemoryCreators() *memoryCreators {
	return &memoryCreators{
		creators: make(map[string]*models.Creator),
		links:    make(map[[2]string]*models.Link),
	}
}

func (r *memoryCreators) Create(_ context.Context, c *models.Creator) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.creators {
		if existing.Slug == c.Slug {
			return &pq.Error{Code: "23505", Constraint: "creators_slug_key"}
		}
	}
	cp := *c
	r.creators[c.ID] = &cp
	return nil
}

func (r *memoryCreators) GetByID(_ context.Context, id string) (*models.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creators[id]
	if !ok {
		return nil, repository.ErrCreatorNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCreators) GetBySlug(_ context.Context, slug string) (*models.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creators {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrCreatorNotFound
}

func (r *memoryCreators) SlugExists(_ context.Context, slug, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.creators {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryCreators) active() []*models.Creator {
	out := make([]*models.Creator, 0)
	for _, c := range r.creators {
		if c.Flags.Active {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

func (r *memoryCreators) List(_ context.Context, _ models.ListFilter) ([]*models.Creator, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.active()
	return items, int64(len(items)), nil
}

func (r *memoryCreators) ListActive(_ context.Context, _ string, featuredOnly bool, limit int) ([]*models.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Creator, 0)
	for _, c := range r.active() {
		if featuredOnly && !c.Flags.Featured {
			continue
		}
		out = append(out, c)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryCreators) CountActive(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.active())), nil
}

func (r *memoryCreators) Update(_ context.Context, id string, changes patch.Assignments) (*models.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creators[id]
	if !ok {
		return nil, repository.ErrCreatorNotFound
	}
	for _, a := range changes {
		switch a.Column {
		case "name":
			c.Name = a.Value.(string)
		case "slug":
			c.Slug = a.Value.(string)
		case "tags":
			c.Tags = a.Value.([]string)
		case "is_active":
			c.Flags.Active = a.Value.(bool)
		case "is_verified":
			c.Flags.Verified = a.Value.(bool)
		case "is_featured":
			c.Flags.Featured = a.Value.(bool)
		case "priority_level":
			c.PriorityLevel = a.Value.(string)
		case "pricing":
			if a.Value == nil {
				c.Pricing = models.Pricing{Currency: models.DefaultCurrency}
			} else {
				c.Pricing = a.Value.(models.Pricing)
			}
		}
	}
	c.UpdatedAt = c.UpdatedAt.Add(time.Second)
	cp := *c
	return &cp, nil
}

func (r *memoryCreators) UpdateMetrics(_ context.Context, id string, m models.Metrics, updatedAt time.Time) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creators[id]
	if !ok {
		return "", repository.ErrCreatorNotFound
	}
	c.Metrics = m
	c.UpdatedAt = updatedAt
	return c.Slug, nil
}

func (r *memoryCreators) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creators[id]; !ok {
		return repository.ErrCreatorNotFound
	}
	delete(r.creators, id)
	for key := range r.links {
		if key[0] == id {
			delete(r.links, key)
		}
	}
	return nil
}

func (r *memoryCreators) AddLinks(_ context.Context, links []*models.Link) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	added := 0
	for _, l := range links {
		key := [2]string{l.CreatorID, l.ChannelID}
		if _, ok := r.links[key]; ok {
			continue
		}
		cp := *l
		r.links[key] = &cp
		added++
	}
	return added, nil
}

func (r *memoryCreators) SetPrimary(_ context.Context, creatorID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, l := range r.links {
		if key[0] == creatorID {
			l.IsPrimary = key[1] == channelID
		}
	}
	return nil
}

func (r *memoryCreators) RemoveLink(_ context.Context, creatorID, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := [2]string{creatorID, channelID}
	if _, ok := r.links[key]; !ok {
		return repository.ErrLinkNotFound
	}
	delete(r.links, key)
	return nil
}

func (r *memoryCreators) LinkedChannelIDs(_ context.Context, creatorID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0)
	for key := range r.links {
		if key[0] == creatorID {
			ids = append(ids, key[1])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *memoryCreators) CreatorIDsByChannels(_ context.Context, channelIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[string]bool, len(channelIDs))
	for _, id := range channelIDs {
		wanted[id] = true
	}
	seen := make(map[string]bool)
	ids := make([]string, 0)
	for key := range r.links {
		if wanted[key[1]] && !seen[key[0]] {
			seen[key[0]] = true
			ids = append(ids, key[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func channel(id string, subscribers int64, status string) *channelmodels.Channel {
	return &channelmodels.Channel{
		ID:          id,
		Name:        "Channel " + id,
		Link:        "https://t.me/" + id,
		Subscribers: subscribers,
		Status:      status,
	}
}

func newTestService(channels ...*channelmodels.Channel) (*creatorService, *memoryCreators, *memoryChannels) {
	creators := newMemoryCreators()
	chRepo := newMemoryChannels(channels...)
	svc := NewCreatorService(creators, chRepo, cache.NoopCache{}, nil).(*creatorService)
	return svc, creators, chRepo
}

func create(t *testing.T, svc CreatorService, name string) *models.Creator {
	t.Helper()
	c, err := svc.Create(context.Background(), &models.CreateCreatorRequest{Name: name})
	require.NoError(t, err)
	return c
}

func TestCreateDefaults(t *testing.T) {
	svc, _, _ := newTestService()

	c := create(t, svc, "Test Creator")

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "test-creator", c.Slug)
	assert.True(t, c.Flags.Active)
	assert.False(t, c.Flags.Featured)
	assert.Equal(t, models.PriorityNormal, c.PriorityLevel)
	assert.Equal(t, models.DefaultCurrency, c.Pricing.Currency)
	assert.Equal(t, []string{}, c.Tags)
	assert.Equal(t, 0, c.Metrics.ChannelsCount)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestCreateSlugUniqueness(t *testing.T) {
	svc, _, _ := newTestService()

	first := create(t, svc, "Test Creator")
	second := create(t, svc, "Test Creator")
	third := create(t, svc, "Test Creator")

	assert.Equal(t, "test-creator", first.Slug)
	assert.Equal(t, "test-creator-1", second.Slug)
	assert.Equal(t, "test-creator-2", third.Slug)
}

func TestCreateExplicitSlug(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, &models.CreateCreatorRequest{Name: "Anything", Slug: ptr("My Custom Slug")})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", c.Slug)

	c, err = svc.Create(ctx, &models.CreateCreatorRequest{Name: "Other", Slug: ptr("my-custom-slug")})
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug-1", c.Slug)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), &models.CreateCreatorRequest{
		Name:    "Pricey",
		Pricing: &models.Pricing{MinPrice: ptr(int64(5000)), MaxPrice: ptr(int64(1000))},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))

	_, err = svc.Create(context.Background(), &models.CreateCreatorRequest{
		Name:          "Stats",
		AudienceStats: &models.AudienceStats{GeoRussiaPercent: ptr(120.0)},
	})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestGetByIDOrSlug(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := create(t, svc, "Slug Lookup")

	byID, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	bySlug, err := svc.Get(ctx, "slug-lookup")
	require.NoError(t, err)
	assert.Equal(t, byID.ID, bySlug.ID)

	_, err = svc.Get(ctx, "missing")
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))
}

func TestLinkUnlinkRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(
		channel("a", 1000, channelmodels.StatusApproved),
		channel("b", 2000, channelmodels.StatusApproved),
	)
	ctx := context.Background()
	c := create(t, svc, "Round Trip")

	added, err := svc.LinkChannels(ctx, c.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"a", "b"}, PrimaryID: ptr("a")})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Metrics.ChannelsCount)
	assert.Equal(t, int64(3000), got.Metrics.SubscribersTotal)

	require.NoError(t, svc.UnlinkChannel(ctx, c.ID, "a"))

	got, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Metrics.ChannelsCount)
	assert.Equal(t, int64(2000), got.Metrics.SubscribersTotal)

	summaries, err := svc.Channels(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "b", summaries[0].ID)
}

func TestLinkDuplicateIsNoop(t *testing.T) {
	svc, _, _ := newTestService(channel("a", 1000, channelmodels.StatusApproved))
	ctx := context.Background()
	c := create(t, svc, "Duplicate")
	req := &models.LinkChannelsRequest{ChannelIDs: []string{"a"}}

	_, err := svc.LinkChannels(ctx, c.ID, req)
	require.NoError(t, err)
	before, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)

	added, err := svc.LinkChannels(ctx, c.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	after, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Metrics, after.Metrics)
}

func TestLinkRejectsUnknownChannels(t *testing.T) {
	svc, creators, _ := newTestService(channel("a", 1000, channelmodels.StatusApproved))
	ctx := context.Background()
	c := create(t, svc, "Unknown Channels")

	_, err := svc.LinkChannels(ctx, c.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"a", "ghost"}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeBadRequest))
	assert.Empty(t, creators.links)

	_, err = svc.LinkChannels(ctx, "missing", &models.LinkChannelsRequest{ChannelIDs: []string{"a"}})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))

	_, err = svc.LinkChannels(ctx, c.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"a"}, PrimaryID: ptr("b")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeValidation))
}

func TestUnlinkMissingPair(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := create(t, svc, "Unlink Missing")

	err := svc.UnlinkChannel(ctx, c.ID, "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrCodeLinkNotFound))

	err = svc.UnlinkChannel(ctx, "missing", "ghost")
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))
}

func TestApprovalChangesMetricsThroughChannelService(t *testing.T) {
	svc, _, chRepo := newTestService(channel("draft", 4000, channelmodels.StatusDraft))
	ctx := context.Background()
	c := create(t, svc, "Approval")

	_, err := svc.LinkChannels(ctx, c.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"draft"}})
	require.NoError(t, err)
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Metrics.ChannelsCount)

	channels := channelservice.NewChannelService(chRepo, cache.NoopCache{}, svc)
	_, err = channels.Approve(ctx, "draft")
	require.NoError(t, err)

	got, err = svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Metrics.ChannelsCount)
	assert.Equal(t, int64(4000), got.Metrics.SubscribersTotal)
}

func TestUpdateSlugRules(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := create(t, svc, "Original Name")
	create(t, svc, "Taken")

	updated, err := svc.Update(ctx, c.ID, &models.CreatorPatch{Tags: patch.Of([]string{"новости"})})
	require.NoError(t, err)
	assert.Equal(t, "original-name", updated.Slug)
	assert.Equal(t, []string{"новости"}, updated.Tags)
	assert.Equal(t, c.CreatedAt, updated.CreatedAt)

	updated, err = svc.Update(ctx, c.ID, &models.CreatorPatch{Name: patch.Of("Original Name")})
	require.NoError(t, err)
	assert.Equal(t, "original-name", updated.Slug)

	updated, err = svc.Update(ctx, c.ID, &models.CreatorPatch{Name: patch.Of("Renamed Creator")})
	require.NoError(t, err)
	assert.Equal(t, "renamed-creator", updated.Slug)

	updated, err = svc.Update(ctx, c.ID, &models.CreatorPatch{Slug: patch.Of("taken")})
	require.NoError(t, err)
	assert.Equal(t, "taken-1", updated.Slug)

	_, err = svc.Update(ctx, "missing", &models.CreatorPatch{Name: patch.Of("X")})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))
}

func TestDeleteSoftAndHard(t *testing.T) {
	svc, creators, _ := newTestService(channel("a", 100, channelmodels.StatusApproved))
	ctx := context.Background()
	soft := create(t, svc, "Soft")
	hard := create(t, svc, "Hard")
	_, err := svc.LinkChannels(ctx, hard.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"a"}})
	require.NoError(t, err)

	res, err := svc.Delete(ctx, soft.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.DeleteSoft, res.Deleted)

	list, err := svc.List(ctx, models.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, hard.ID, list.Items[0].ID)

	got, err := svc.Get(ctx, soft.ID)
	require.NoError(t, err)
	assert.False(t, got.Flags.Active)

	res, err = svc.Delete(ctx, hard.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.DeleteHard, res.Deleted)
	assert.Empty(t, creators.links)

	_, err = svc.Get(ctx, hard.ID)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))

	_, err = svc.Delete(ctx, "missing", false)
	assert.True(t, errors.HasCode(err, errors.ErrCodeCreatorNotFound))
}

func TestVerifyAndFeature(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	c := create(t, svc, "Flags")

	got, err := svc.Verify(ctx, c.ID, true)
	require.NoError(t, err)
	assert.True(t, got.Flags.Verified)

	got, err = svc.Feature(ctx, c.ID, models.PriorityPremium)
	require.NoError(t, err)
	assert.Equal(t, models.PriorityPremium, got.PriorityLevel)
	assert.True(t, got.Flags.Featured)

	got, err = svc.Feature(ctx, c.ID, models.PriorityNormal)
	require.NoError(t, err)
	assert.False(t, got.Flags.Featured)
}

func TestSuggestionsLimit(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	for _, name := range []string{"One", "Two", "Three", "Four"} {
		create(t, svc, name)
	}

	items, err := svc.Suggestions(ctx, models.SuggestionFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = svc.Suggestions(ctx, models.SuggestionFilter{FeaturedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRecomputeForChannelsTouchesOnlyLinkedCreators(t *testing.T) {
	svc, creators, _ := newTestService(
		channel("a", 500, channelmodels.StatusApproved),
		channel("b", 700, channelmodels.StatusApproved),
	)
	ctx := context.Background()
	first := create(t, svc, "First")
	second := create(t, svc, "Second")
	_, err := svc.LinkChannels(ctx, first.ID, &models.LinkChannelsRequest{ChannelIDs: []string{"a"}})
	require.NoError(t, err)

	// метрики второго автора затираются вручную и не должны пересчитаться
	creators.creators[second.ID].Metrics.SubscribersTotal = 42

	require.NoError(t, svc.RecomputeForChannels(ctx, "a"))
	assert.Equal(t, int64(500), creators.creators[first.ID].Metrics.SubscribersTotal)
	assert.Equal(t, int64(42), creators.creators[second.ID].Metrics.SubscribersTotal)
}
