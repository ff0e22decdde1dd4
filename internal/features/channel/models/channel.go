package models

import (
	"strings"
	"time"

	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/common/validation"
)

// Статусы модерации
const (
	StatusDraft    = "draft"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Состояние ссылки
const (
	LinkAlive = "alive"
	LinkDead  = "dead"
)

// Channel представляет карточку Telegram-канала в каталоге
// @Description Карточка Telegram-канала
type Channel struct {
	ID               string     `json:"id" example:"5f0c7c1e-9a51-4c1b-8f6b-0a0d7c2f9d11"`
	Name             string     `json:"name" example:"Tech News"`
	Link             string     `json:"link" example:"https://t.me/technews"`
	AvatarURL        *string    `json:"avatar_url"`
	Category         *string    `json:"category" example:"Технологии"`
	Language         *string    `json:"language" example:"ru"`
	Country          *string    `json:"country" example:"RU"`
	City             *string    `json:"city"`
	ShortDescription *string    `json:"short_description"`
	SEODescription   *string    `json:"seo_description"`
	Subscribers      int64      `json:"subscribers" example:"12000"`
	ER               *float64   `json:"er" example:"4.5"`
	PriceRub         *int64     `json:"price_rub" example:"5000"`
	CPMRub           *float64   `json:"cpm_rub" example:"350"`
	Growth30d        *float64   `json:"growth_30d"`
	GrowthScore      *float64   `json:"growth_score"`
	LastPostAt       *time.Time `json:"last_post_at"`
	Status           string     `json:"status" enums:"draft,approved,rejected"`
	LinkStatus       *string    `json:"link_status" enums:"alive,dead"`
	LinkLastChecked  *time.Time `json:"link_last_checked"`
	DeadAt           *time.Time `json:"dead_at"`
	IsFeatured       bool       `json:"is_featured"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsDead сообщает, что последняя проверка признала ссылку мёртвой
func (c *Channel) IsDead() bool {
	return c.LinkStatus != nil && *c.LinkStatus == LinkDead
}

// CreateChannelRequest тело запроса на создание канала
type CreateChannelRequest struct {
	Name             string     `json:"name" form:"name" binding:"required,max=200"`
	Link             string     `json:"link" form:"link" binding:"required,tglink"`
	AvatarURL        *string    `json:"avatar_url"`
	Category         *string    `json:"category"`
	Language         *string    `json:"language"`
	Country          *string    `json:"country"`
	City             *string    `json:"city"`
	ShortDescription *string    `json:"short_description" binding:"omitempty,max=2000"`
	SEODescription   *string    `json:"seo_description" binding:"omitempty,max=2000"`
	Subscribers      int64      `json:"subscribers" binding:"gte=0"`
	ER               *float64   `json:"er" binding:"omitempty,gte=0"`
	PriceRub         *int64     `json:"price_rub" binding:"omitempty,gte=0"`
	CPMRub           *float64   `json:"cpm_rub" binding:"omitempty,gte=0"`
	Growth30d        *float64   `json:"growth_30d"`
	GrowthScore      *float64   `json:"growth_score"`
	LastPostAt       *time.Time `json:"last_post_at"`
	Status           string     `json:"status" binding:"omitempty,oneof=draft approved rejected"`
	IsFeatured       bool       `json:"is_featured"`
}

// ToChannel собирает канал из запроса. Пустой статус заменяется defaultStatus.
func (r *CreateChannelRequest) ToChannel(id, defaultStatus string, now time.Time) *Channel {
	status := r.Status
	if status == "" {
		status = defaultStatus
	}

	return &Channel{
		ID:               id,
		Name:             strings.TrimSpace(r.Name),
		Link:             strings.TrimSpace(r.Link),
		AvatarURL:        r.AvatarURL,
		Category:         r.Category,
		Language:         r.Language,
		Country:          r.Country,
		City:             r.City,
		ShortDescription: r.ShortDescription,
		SEODescription:   r.SEODescription,
		Subscribers:      r.Subscribers,
		ER:               r.ER,
		PriceRub:         r.PriceRub,
		CPMRub:           r.CPMRub,
		Growth30d:        r.Growth30d,
		GrowthScore:      r.GrowthScore,
		LastPostAt:       r.LastPostAt,
		Status:           status,
		IsFeatured:       r.IsFeatured,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// ChannelPatch частичное обновление канала. Отсутствующее поле не меняется,
// null очищает необязательное поле.
type ChannelPatch struct {
	Name             patch.Field[string]    `json:"name" swaggertype:"string"`
	Link             patch.Field[string]    `json:"link" swaggertype:"string"`
	AvatarURL        patch.Field[string]    `json:"avatar_url" swaggertype:"string"`
	Category         patch.Field[string]    `json:"category" swaggertype:"string"`
	Language         patch.Field[string]    `json:"language" swaggertype:"string"`
	Country          patch.Field[string]    `json:"country" swaggertype:"string"`
	City             patch.Field[string]    `json:"city" swaggertype:"string"`
	ShortDescription patch.Field[string]    `json:"short_description" swaggertype:"string"`
	SEODescription   patch.Field[string]    `json:"seo_description" swaggertype:"string"`
	Subscribers      patch.Field[int64]     `json:"subscribers" swaggertype:"integer"`
	ER               patch.Field[float64]   `json:"er" swaggertype:"number"`
	PriceRub         patch.Field[int64]     `json:"price_rub" swaggertype:"integer"`
	CPMRub           patch.Field[float64]   `json:"cpm_rub" swaggertype:"number"`
	Growth30d        patch.Field[float64]   `json:"growth_30d" swaggertype:"number"`
	GrowthScore      patch.Field[float64]   `json:"growth_score" swaggertype:"number"`
	LastPostAt       patch.Field[time.Time] `json:"last_post_at" swaggertype:"string"`
	Status           patch.Field[string]    `json:"status" swaggertype:"string"`
	LinkStatus       patch.Field[string]    `json:"link_status" swaggertype:"string"`
	IsFeatured       patch.Field[bool]      `json:"is_featured" swaggertype:"boolean"`
}

// Validate проверяет присланные поля
func (p *ChannelPatch) Validate() error {
	if p.Name.Set {
		if p.Name.Null {
			return errors.NewValidationError("name", "cannot be null")
		}
		if err := validation.ValidateName(p.Name.Value); err != nil {
			return errors.NewValidationError("name", err.Error())
		}
	}
	if p.Link.Set {
		if p.Link.Null {
			return errors.NewValidationError("link", "cannot be null")
		}
		if err := validation.ValidateChannelLink(p.Link.Value); err != nil {
			return errors.NewInvalidLinkError(p.Link.Value, err.Error())
		}
	}
	if p.Subscribers.Set {
		if p.Subscribers.Null {
			return errors.NewValidationError("subscribers", "cannot be null")
		}
		if err := validation.ValidateNonNegativeInt(p.Subscribers.Value, "subscribers"); err != nil {
			return errors.NewValidationError("subscribers", err.Error())
		}
	}
	if p.ER.Present() {
		if err := validation.ValidateNonNegativeFloat(p.ER.Value, "er"); err != nil {
			return errors.NewValidationError("er", err.Error())
		}
	}
	if p.PriceRub.Present() {
		if err := validation.ValidateNonNegativeInt(p.PriceRub.Value, "price_rub"); err != nil {
			return errors.NewValidationError("price_rub", err.Error())
		}
	}
	if p.CPMRub.Present() {
		if err := validation.ValidateNonNegativeFloat(p.CPMRub.Value, "cpm_rub"); err != nil {
			return errors.NewValidationError("cpm_rub", err.Error())
		}
	}
	if p.Status.Set && (p.Status.Null || !validation.IsValidChannelStatus(p.Status.Value)) {
		return errors.NewValidationError("status", "must be one of draft, approved, rejected")
	}
	if p.LinkStatus.Present() && !validation.IsValidLinkStatus(p.LinkStatus.Value) {
		return errors.NewValidationError("link_status", "must be alive, dead or null")
	}
	if p.IsFeatured.Set && p.IsFeatured.Null {
		return errors.NewValidationError("is_featured", "cannot be null")
	}
	return nil
}

// Assignments переводит патч в список колонок для UPDATE
func (p *ChannelPatch) Assignments() patch.Assignments {
	var a patch.Assignments
	patch.Add(&a, "name", p.Name)
	patch.Add(&a, "link", p.Link)
	patch.Add(&a, "avatar_url", p.AvatarURL)
	patch.Add(&a, "category", p.Category)
	patch.Add(&a, "language", p.Language)
	patch.Add(&a, "country", p.Country)
	patch.Add(&a, "city", p.City)
	patch.Add(&a, "short_description", p.ShortDescription)
	patch.Add(&a, "seo_description", p.SEODescription)
	patch.Add(&a, "subscribers", p.Subscribers)
	patch.Add(&a, "er", p.ER)
	patch.Add(&a, "price_rub", p.PriceRub)
	patch.Add(&a, "cpm_rub", p.CPMRub)
	patch.Add(&a, "growth_30d", p.Growth30d)
	patch.Add(&a, "growth_score", p.GrowthScore)
	patch.Add(&a, "last_post_at", p.LastPostAt)
	patch.Add(&a, "status", p.Status)
	patch.Add(&a, "link_status", p.LinkStatus)
	patch.Add(&a, "is_featured", p.IsFeatured)
	if p.LinkStatus.Present() && p.LinkStatus.Value == LinkDead {
		a.AddValue("dead_at", time.Now().UTC())
	}
	return a
}

// Сортировки списка каналов
const (
	SortPopular = "popular"
	SortNew     = "new"
	SortName    = "name"
	SortPrice   = "price"
	SortER      = "er"
	SortGrowth  = "growth"
)

// ListFilter параметры выборки каналов
type ListFilter struct {
	Query          string   `form:"q"`
	Category       string   `form:"category"`
	Language       string   `form:"language"`
	Country        string   `form:"country"`
	Status         string   `form:"status" binding:"omitempty,oneof=draft approved rejected"`
	MinSubscribers *int64   `form:"min_subscribers" binding:"omitempty,gte=0"`
	MaxSubscribers *int64   `form:"max_subscribers" binding:"omitempty,gte=0"`
	MinPrice       *int64   `form:"min_price" binding:"omitempty,gte=0"`
	MaxPrice       *int64   `form:"max_price" binding:"omitempty,gte=0"`
	MinER          *float64 `form:"min_er" binding:"omitempty,gte=0"`
	MaxER          *float64 `form:"max_er" binding:"omitempty,gte=0"`
	OnlyFeatured   bool     `form:"only_featured"`
	OnlyAlive      bool     `form:"only_alive"`
	Sort           string   `form:"sort" binding:"omitempty,oneof=popular new name price er growth"`
	Page           int      `form:"page" binding:"omitempty,gte=1"`
	Limit          int      `form:"limit" binding:"omitempty,gte=1,lte=100"`
}

// Normalize заполняет значения по умолчанию
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
	if f.Sort == "" {
		f.Sort = SortPopular
	}
	f.Query = strings.TrimSpace(f.Query)
}

// Offset смещение для текущей страницы
func (f *ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// ListResponse страница каналов
type ListResponse struct {
	Items   []*Channel `json:"items"`
	Total   int64      `json:"total" example:"42"`
	Page    int        `json:"page" example:"1"`
	Limit   int        `json:"limit" example:"20"`
	HasMore bool       `json:"has_more"`
}

// NewListResponse собирает страницу; items никогда не nil
func NewListResponse(items []*Channel, total int64, f ListFilter) *ListResponse {
	if items == nil {
		items = []*Channel{}
	}
	return &ListResponse{
		Items:   items,
		Total:   total,
		Page:    f.Page,
		Limit:   f.Limit,
		HasMore: int64(f.Offset()+len(items)) < total,
	}
}

// StatusCounts количество каналов по статусам модерации
type StatusCounts struct {
	Draft    int64 `json:"draft"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Dead     int64 `json:"dead"`
}

// UpsertResult итог массовой загрузки каналов
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Snapshot минимальная проекция канала для агрегатора метрик автора
type Snapshot struct {
	ID          string     `json:"id"`
	Subscribers int64      `json:"subscribers"`
	ER          *float64   `json:"er"`
	PriceRub    *int64     `json:"price_rub"`
	CPMRub      *float64   `json:"cpm_rub"`
	LastPostAt  *time.Time `json:"last_post_at"`
	Status      string     `json:"status"`
	LinkStatus  *string    `json:"link_status"`
}

// ToSnapshot возвращает проекцию для агрегатора
func (c *Channel) ToSnapshot() Snapshot {
	return Snapshot{
		ID:          c.ID,
		Subscribers: c.Subscribers,
		ER:          c.ER,
		PriceRub:    c.PriceRub,
		CPMRub:      c.CPMRub,
		LastPostAt:  c.LastPostAt,
		Status:      c.Status,
		LinkStatus:  c.LinkStatus,
	}
}
