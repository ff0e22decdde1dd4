package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/features/creator/models"
)

func ptr[T any](v T) *T { return &v }

func TestBuildWhereAlwaysActive(t *testing.T) {
	where, args := buildWhere(models.ListFilter{})
	assert.Equal(t, " WHERE is_active = TRUE", where)
	assert.Empty(t, args)
}

func TestBuildWhereMetricsFilters(t *testing.T) {
	f := models.ListFilter{
		Category:       "Технологии",
		Tags:           []string{"ai", "стартапы"},
		SubscribersMin: ptr(int64(1000)),
		ERMax:          ptr(12.5),
		HasPrice:       ptr(false),
		LastPostDays:   ptr(30),
	}
	where, args := buildWhere(f)

	assert.Contains(t, where, "category = $1")
	assert.Contains(t, where, "tags && $2")
	assert.Contains(t, where, "metrics_subscribers_total >= $3")
	assert.Contains(t, where, "metrics_avg_er_percent <= $4")
	assert.Contains(t, where, "metrics_min_price_rub IS NULL")
	assert.Contains(t, where, "make_interval(days => $5)")
	require.Len(t, args, 5)
	assert.Equal(t, 30, args[4])
}

func TestBuildWherePriceUsesCheapestChannel(t *testing.T) {
	where, args := buildWhere(models.ListFilter{
		PriceMin: ptr(int64(10000)),
		PriceMax: ptr(int64(50000)),
	})

	assert.Contains(t, where, "metrics_min_price_rub >= $1")
	assert.Contains(t, where, "metrics_min_price_rub <= $2")
	assert.NotContains(t, where, "metrics_avg_price_rub")
	assert.Equal(t, []any{int64(10000), int64(50000)}, args)
}

func TestBuildWhereQueryReusesPlaceholder(t *testing.T) {
	where, args := buildWhere(models.ListFilter{Query: "crypto", Country: "RU"})

	assert.Contains(t, where, "plainto_tsquery('simple', $1)")
	assert.Contains(t, where, "name ILIKE '%' || $1 || '%'")
	assert.Contains(t, where, "country = $2")
	assert.Equal(t, []any{"crypto", "RU"}, args)
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "metrics_subscribers_total DESC NULLS LAST, id", orderBy(models.SortSubscribersTotal, models.OrderDesc))
	assert.Equal(t, "name ASC NULLS LAST, id", orderBy(models.SortName, models.OrderAsc))
	assert.Equal(t, "created_at DESC NULLS LAST, id", orderBy("unknown", ""))
}

func TestColumnValue(t *testing.T) {
	v, err := columnValue(patch.Assignment{Column: "pricing", Value: nil})
	require.NoError(t, err)
	assert.Equal(t, `{"currency":"RUB"}`, v)

	v, err = columnValue(patch.Assignment{Column: "external", Value: nil})
	require.NoError(t, err)
	assert.Equal(t, "{}", v)

	v, err = columnValue(patch.Assignment{Column: "contacts", Value: models.Contacts{Email: ptr("a@b.c"), OtherLinks: []string{}}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.c","tg_username":null,"other_links":[]}`, v.(string))

	v, err = columnValue(patch.Assignment{Column: "name", Value: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", v)
}
