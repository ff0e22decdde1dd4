package models

import (
	"strings"
	"time"

	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/validation"
	channelmodels "teleindex-backend/internal/features/channel/models"
)

// Уровни приоритета
const (
	PriorityNormal   = "normal"
	PriorityFeatured = "featured"
	PriorityPremium  = "premium"
)

// Роли автора в канале
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleMember = "member"
)

const DefaultCurrency = "RUB"

// External ссылки автора на внешние площадки
type External struct {
	Website          *string `json:"website"`
	TelegramUsername *string `json:"telegram_username"`
	TelegramURL      *string `json:"telegram_url"`
	Instagram        *string `json:"instagram"`
	Youtube          *string `json:"youtube"`
}

// Pricing диапазон цен автора
type Pricing struct {
	MinPrice *int64 `json:"min_price"`
	MaxPrice *int64 `json:"max_price"`
	Currency string `json:"currency" example:"RUB"`
}

// AudienceStats структура аудитории в процентах. Сумма не проверяется.
type AudienceStats struct {
	GenderMalePercent   *float64 `json:"gender_male_percent"`
	GenderFemalePercent *float64 `json:"gender_female_percent"`
	GeoRussiaPercent    *float64 `json:"geo_russia_percent"`
	GeoUkrainePercent   *float64 `json:"geo_ukraine_percent"`
	GeoBelarusPercent   *float64 `json:"geo_belarus_percent"`
	GeoOtherPercent     *float64 `json:"geo_other_percent"`
	Age1824Percent      *float64 `json:"age_18_24_percent"`
	Age2534Percent      *float64 `json:"age_25_34_percent"`
	Age3544Percent      *float64 `json:"age_35_44_percent"`
	Age45PlusPercent    *float64 `json:"age_45_plus_percent"`
}

// Contacts контакты для связи с автором
type Contacts struct {
	Email      *string  `json:"email"`
	TgUsername *string  `json:"tg_username"`
	OtherLinks []string `json:"other_links"`
}

// Flags признаки автора в каталоге
type Flags struct {
	Featured bool `json:"featured"`
	Verified bool `json:"verified"`
	Active   bool `json:"active"`
}

// FlagsInput флаги из запроса; отсутствующий флаг не меняется
type FlagsInput struct {
	Featured *bool `json:"featured"`
	Verified *bool `json:"verified"`
	Active   *bool `json:"active"`
}

// Metrics агрегированные показатели по привязанным одобренным каналам.
// Клиент их никогда не передаёт.
type Metrics struct {
	ChannelsCount    int        `json:"channels_count"`
	SubscribersTotal int64      `json:"subscribers_total"`
	AvgERPercent     *float64   `json:"avg_er_percent"`
	MinPriceRub      *int64     `json:"min_price_rub"`
	AvgPriceRub      *int64     `json:"avg_price_rub"`
	AvgCPMRub        *int64     `json:"avg_cpm_rub"`
	LastPostAt       *time.Time `json:"last_post_at"`
}

// Creator автор, которому принадлежат каналы
// @Description Автор (владелец каналов)
type Creator struct {
	ID            string        `json:"id" example:"0b6f8a52-3b0e-4d62-9a0e-1f1c2a3b4c5d"`
	Slug          string        `json:"slug" example:"test-creator"`
	Name          string        `json:"name" example:"Test Creator"`
	AvatarURL     *string       `json:"avatar_url"`
	Bio           *string       `json:"bio"`
	Category      *string       `json:"category"`
	Tags          []string      `json:"tags"`
	Country       *string       `json:"country"`
	Language      *string       `json:"language"`
	External      External      `json:"external"`
	Pricing       Pricing       `json:"pricing"`
	AudienceStats AudienceStats `json:"audience_stats"`
	Contacts      Contacts      `json:"contacts"`
	Flags         Flags         `json:"flags"`
	PriorityLevel string        `json:"priority_level" enums:"normal,featured,premium"`
	Metrics       Metrics       `json:"metrics"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// ApplyDefaults заполняет пропущенные значения. Вызывается при создании
// и при чтении из хранилища, поэтому ответ всегда содержит все поля.
func (c *Creator) ApplyDefaults() {
	if c.Tags == nil {
		c.Tags = []string{}
	}
	if c.Pricing.Currency == "" {
		c.Pricing.Currency = DefaultCurrency
	}
	if c.Contacts.OtherLinks == nil {
		c.Contacts.OtherLinks = []string{}
	}
	if c.PriorityLevel == "" {
		c.PriorityLevel = PriorityNormal
	}
}

// ChannelSummary краткая карточка привязанного канала
type ChannelSummary struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Link        string     `json:"link"`
	Subscribers int64      `json:"subscribers"`
	PriceRub    *int64     `json:"price_rub"`
	ER          *float64   `json:"er"`
	LastPostAt  *time.Time `json:"last_post_at"`
	LinkStatus  *string    `json:"link_status"`
	Category    *string    `json:"category"`
	Status      string     `json:"status"`
}

// CreatorWithChannels ответ GET /creators/{id}?include=channels
type CreatorWithChannels struct {
	*Creator
	Channels []ChannelSummary `json:"channels"`
}

// Link связь автора с каналом
type Link struct {
	ID        string    `json:"id"`
	CreatorID string    `json:"creator_id"`
	ChannelID string    `json:"channel_id"`
	Role      string    `json:"role"`
	IsPrimary bool      `json:"primary"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCreatorRequest тело запроса на создание автора
type CreateCreatorRequest struct {
	Name          string         `json:"name" binding:"required,max=200"`
	Slug          *string        `json:"slug" binding:"omitempty,max=120"`
	AvatarURL     *string        `json:"avatar_url"`
	Bio           *string        `json:"bio" binding:"omitempty,max=5000"`
	Category      *string        `json:"category"`
	Tags          []string       `json:"tags"`
	Country       *string        `json:"country"`
	Language      *string        `json:"language"`
	External      *External      `json:"external"`
	Pricing       *Pricing       `json:"pricing"`
	AudienceStats *AudienceStats `json:"audience_stats"`
	Contacts      *Contacts      `json:"contacts"`
	Flags         *FlagsInput    `json:"flags"`
	PriorityLevel string         `json:"priority_level" binding:"omitempty,oneof=normal featured premium"`
}

// Validate проверяет то, что не выражается тегами binding
func (r *CreateCreatorRequest) Validate() error {
	if err := validation.ValidateName(r.Name); err != nil {
		return errors.NewValidationError("name", err.Error())
	}
	if err := validation.ValidateTags(r.Tags); err != nil {
		return errors.NewValidationError("tags", err.Error())
	}
	if r.Pricing != nil {
		if err := r.Pricing.Validate(); err != nil {
			return err
		}
	}
	if r.AudienceStats != nil {
		if err := r.AudienceStats.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ToCreator собирает автора из запроса со всеми значениями по умолчанию
func (r *CreateCreatorRequest) ToCreator(id, slug string, now time.Time) *Creator {
	c := &Creator{
		ID:            id,
		Slug:          slug,
		Name:          strings.TrimSpace(r.Name),
		AvatarURL:     r.AvatarURL,
		Bio:           r.Bio,
		Category:      r.Category,
		Tags:          CleanTags(r.Tags),
		Country:       r.Country,
		Language:      r.Language,
		PriorityLevel: r.PriorityLevel,
		Flags:         Flags{Active: true},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if r.External != nil {
		c.External = *r.External
	}
	if r.Pricing != nil {
		c.Pricing = *r.Pricing
	}
	if r.AudienceStats != nil {
		c.AudienceStats = *r.AudienceStats
	}
	if r.Contacts != nil {
		c.Contacts = *r.Contacts
	}
	if r.Flags != nil {
		c.Flags = r.Flags.Merge(c.Flags)
	}
	c.ApplyDefaults()
	return c
}

// Merge накладывает присланные флаги на текущие
func (f FlagsInput) Merge(current Flags) Flags {
	if f.Featured != nil {
		current.Featured = *f.Featured
	}
	if f.Verified != nil {
		current.Verified = *f.Verified
	}
	if f.Active != nil {
		current.Active = *f.Active
	}
	return current
}

// Validate проверяет диапазон цен
func (p *Pricing) Validate() error {
	if err := validation.ValidatePriceRange(p.MinPrice, p.MaxPrice); err != nil {
		return errors.NewValidationError("pricing", err.Error())
	}
	return nil
}

// Validate проверяет, что каждый процент в диапазоне 0..100
func (a *AudienceStats) Validate() error {
	fields := map[string]*float64{
		"gender_male_percent":   a.GenderMalePercent,
		"gender_female_percent": a.GenderFemalePercent,
		"geo_russia_percent":    a.GeoRussiaPercent,
		"geo_ukraine_percent":   a.GeoUkrainePercent,
		"geo_belarus_percent":   a.GeoBelarusPercent,
		"geo_other_percent":     a.GeoOtherPercent,
		"age_18_24_percent":     a.Age1824Percent,
		"age_25_34_percent":     a.Age2534Percent,
		"age_35_44_percent":     a.Age3544Percent,
		"age_45_plus_percent":   a.Age45PlusPercent,
	}
	for name, value := range fields {
		if err := validation.ValidatePercent(value, name); err != nil {
			return errors.NewValidationError("audience_stats."+name, err.Error())
		}
	}
	return nil
}

// CleanTags обрезает пробелы и убирает повторы, сохраняя порядок
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// SummaryOf проекция канала для карточки автора
func SummaryOf(ch *channelmodels.Channel) ChannelSummary {
	return ChannelSummary{
		ID:          ch.ID,
		Name:        ch.Name,
		Link:        ch.Link,
		Subscribers: ch.Subscribers,
		PriceRub:    ch.PriceRub,
		ER:          ch.ER,
		LastPostAt:  ch.LastPostAt,
		LinkStatus:  ch.LinkStatus,
		Category:    ch.Category,
		Status:      ch.Status,
	}
}
