package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/config"
)

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestNoopCacheGetOrSetCallsSetter(t *testing.T) {
	var c Cache = NoopCache{}
	calls := 0

	var dest payload
	err := c.GetOrSet(context.Background(), "k", &dest, 0, func() (interface{}, error) {
		calls++
		return payload{Name: "tech", Count: 3}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, payload{Name: "tech", Count: 3}, dest)

	err = c.GetOrSet(context.Background(), "k", &dest, 0, func() (interface{}, error) {
		calls++
		return payload{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestNoopCachePropagatesSetterError(t *testing.T) {
	boom := errors.New("boom")
	var dest payload
	err := NoopCache{}.GetOrSet(context.Background(), "k", &dest, 0, func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNoopCacheGetMisses(t *testing.T) {
	var dest payload
	assert.ErrorIs(t, NoopCache{}.Get(context.Background(), "k", &dest), ErrCacheMiss)
}

func TestNewWithoutClientIsNoop(t *testing.T) {
	c := New(nil, &config.Config{})
	assert.IsType(t, NoopCache{}, c)
}

func TestCreatorKeys(t *testing.T) {
	assert.Equal(t, []string{"creator:abc", "creator:test-creator"}, CreatorKeys("abc", "test-creator"))
	assert.Equal(t, []string{"creator:abc"}, CreatorKeys("abc", ""))
}
