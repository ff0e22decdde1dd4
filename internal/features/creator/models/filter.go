package models

import "strings"

// Поля сортировки списка авторов
const (
	SortName             = "name"
	SortCreatedAt        = "created_at"
	SortSubscribersTotal = "subscribers_total"
	SortAvgPriceRub      = "avg_price_rub"
	SortAvgERPercent     = "avg_er_percent"
	SortAvgCPMRub        = "avg_cpm_rub"
	SortLastPostAt       = "last_post_at"
)

// Короткие и устаревшие имена сортировок
var sortAliases = map[string]string{
	"subscribers":      SortSubscribersTotal,
	"price":            SortAvgPriceRub,
	"er":               SortAvgERPercent,
	"cpm":              SortAvgCPMRub,
	"last_post_at_min": SortLastPostAt,
}

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ListFilter параметры выборки авторов. Диапазоны применяются к метрикам автора.
type ListFilter struct {
	Query          string   `form:"q"`
	Category       string   `form:"category"`
	Language       string   `form:"language"`
	Country        string   `form:"country"`
	PriorityLevel  string   `form:"priority_level" binding:"omitempty,oneof=normal featured premium"`
	Tags           []string `form:"tags"`
	Featured       *bool    `form:"featured"`
	Verified       *bool    `form:"verified"`
	SubscribersMin *int64   `form:"subscribers_min" binding:"omitempty,gte=0"`
	SubscribersMax *int64   `form:"subscribers_max" binding:"omitempty,gte=0"`
	PriceMin       *int64   `form:"price_min" binding:"omitempty,gte=0"`
	PriceMax       *int64   `form:"price_max" binding:"omitempty,gte=0"`
	ERMin          *float64 `form:"er_min" binding:"omitempty,gte=0"`
	ERMax          *float64 `form:"er_max" binding:"omitempty,gte=0"`
	CPMMin         *int64   `form:"cpm_min" binding:"omitempty,gte=0"`
	CPMMax         *int64   `form:"cpm_max" binding:"omitempty,gte=0"`
	HasPrice       *bool    `form:"has_price"`
	LastPostDays   *int     `form:"last_post_days" binding:"omitempty,gte=1"`
	Sort           string   `form:"sort" binding:"omitempty,oneof=name created_at subscribers_total avg_price_rub avg_er_percent avg_cpm_rub last_post_at last_post_at_min subscribers price er cpm"`
	Order          string   `form:"order" binding:"omitempty,oneof=asc desc"`
	Page           int      `form:"page" binding:"omitempty,gte=1"`
	Limit          int      `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

// Normalize заполняет значения по умолчанию и разворачивает синонимы сортировки
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if canonical, ok := sortAliases[f.Sort]; ok {
		f.Sort = canonical
	}
	if f.Sort == "" {
		f.Sort = SortCreatedAt
	}
	if f.Order == "" {
		f.Order = OrderDesc
		if f.Sort == SortName {
			f.Order = OrderAsc
		}
	}
	f.Query = strings.TrimSpace(f.Query)
	f.Tags = CleanTags(splitTags(f.Tags))
}

// tags=a,b и tags=a&tags=b равнозначны
func splitTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, strings.Split(t, ",")...)
	}
	return out
}

// Offset смещение для текущей страницы
func (f *ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Meta пагинация списка авторов
type Meta struct {
	Page  int   `json:"page" example:"1"`
	Limit int   `json:"limit" example:"20"`
	Total int64 `json:"total" example:"42"`
	Pages int64 `json:"pages" example:"3"`
}

// ListResponse страница авторов
type ListResponse struct {
	Items []*Creator `json:"items"`
	Meta  Meta       `json:"meta"`
}

// NewListResponse собирает страницу; items никогда не nil
func NewListResponse(items []*Creator, total int64, f ListFilter) *ListResponse {
	if items == nil {
		items = []*Creator{}
	}
	pages := int64(0)
	if f.Limit > 0 {
		pages = (total + int64(f.Limit) - 1) / int64(f.Limit)
	}
	return &ListResponse{
		Items: items,
		Meta: Meta{
			Page:  f.Page,
			Limit: f.Limit,
			Total: total,
			Pages: pages,
		},
	}
}

// SuggestionFilter параметры подборки авторов
type SuggestionFilter struct {
	Limit        int    `form:"limit" binding:"omitempty,gte=1,lte=20"`
	FeaturedOnly bool   `form:"featured_only"`
	Category     string `form:"category"`
}

// Normalize лимит по умолчанию 6
func (f *SuggestionFilter) Normalize() {
	if f.Limit < 1 {
		f.Limit = 6
	}
	if f.Limit > 20 {
		f.Limit = 20
	}
}

// LinkChannelsRequest тело запроса на привязку каналов
type LinkChannelsRequest struct {
	ChannelIDs []string `json:"channel_ids" binding:"required,min=1,max=100"`
	PrimaryID  *string  `json:"primary_id"`
	Role       string   `json:"role" binding:"omitempty,oneof=owner editor member"`
}

// LinkResult ответ на привязку
type LinkResult struct {
	OK    bool `json:"ok"`
	Added int  `json:"added"`
}

// UnlinkResult ответ на отвязку
type UnlinkResult struct {
	OK      bool `json:"ok"`
	Removed int  `json:"removed"`
}

// Способ удаления
const (
	DeleteSoft = "soft"
	DeleteHard = "hard"
)

// DeleteResult ответ на удаление
type DeleteResult struct {
	OK      bool   `json:"ok"`
	Deleted string `json:"deleted" enums:"soft,hard"`
}

// VerifyRequest тело запроса на верификацию
type VerifyRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// VerifyResult ответ на верификацию
type VerifyResult struct {
	OK       bool `json:"ok"`
	Verified bool `json:"verified"`
}

// FeatureRequest тело запроса на смену приоритета
type FeatureRequest struct {
	PriorityLevel string `json:"priority_level" binding:"required,oneof=normal featured premium"`
}

// FeatureResult ответ на смену приоритета
type FeatureResult struct {
	OK            bool   `json:"ok"`
	PriorityLevel string `json:"priority_level"`
}

// SuggestionsResponse подборка авторов
type SuggestionsResponse struct {
	Items []*Creator `json:"items"`
}
