package models

import (
	"teleindex-backend/internal/common/errors"
	"teleindex-backend/internal/common/patch"
	"teleindex-backend/internal/common/validation"
)

// CreatorPatch частичное обновление автора. Вложенный объект заменяется целиком,
// null возвращает его к значению по умолчанию. Флаги сливаются по одному.
type CreatorPatch struct {
	Name          patch.Field[string]        `json:"name" swaggertype:"string"`
	Slug          patch.Field[string]        `json:"slug" swaggertype:"string"`
	AvatarURL     patch.Field[string]        `json:"avatar_url" swaggertype:"string"`
	Bio           patch.Field[string]        `json:"bio" swaggertype:"string"`
	Category      patch.Field[string]        `json:"category" swaggertype:"string"`
	Tags          patch.Field[[]string]      `json:"tags" swaggertype:"array,string"`
	Country       patch.Field[string]        `json:"country" swaggertype:"string"`
	Language      patch.Field[string]        `json:"language" swaggertype:"string"`
	External      patch.Field[External]      `json:"external" swaggertype:"object"`
	Pricing       patch.Field[Pricing]       `json:"pricing" swaggertype:"object"`
	AudienceStats patch.Field[AudienceStats] `json:"audience_stats" swaggertype:"object"`
	Contacts      patch.Field[Contacts]      `json:"contacts" swaggertype:"object"`
	Flags         patch.Field[FlagsInput]    `json:"flags" swaggertype:"object"`
	PriorityLevel patch.Field[string]        `json:"priority_level" swaggertype:"string"`
}

// Validate проверяет присланные поля
func (p *CreatorPatch) Validate() error {
	if p.Name.Set {
		if p.Name.Null {
			return errors.NewValidationError("name", "cannot be null")
		}
		if err := validation.ValidateName(p.Name.Value); err != nil {
			return errors.NewValidationError("name", err.Error())
		}
	}
	if p.Slug.Set && p.Slug.Null {
		return errors.NewValidationError("slug", "cannot be null")
	}
	if p.Tags.Present() {
		if err := validation.ValidateTags(p.Tags.Value); err != nil {
			return errors.NewValidationError("tags", err.Error())
		}
	}
	if p.Pricing.Present() {
		if err := p.Pricing.Value.Validate(); err != nil {
			return err
		}
	}
	if p.AudienceStats.Present() {
		if err := p.AudienceStats.Value.Validate(); err != nil {
			return err
		}
	}
	if p.PriorityLevel.Set && (p.PriorityLevel.Null || !validation.IsValidPriorityLevel(p.PriorityLevel.Value)) {
		return errors.NewValidationError("priority_level", "must be one of normal, featured, premium")
	}
	return nil
}

// Assignments переводит патч в список колонок. slug выставляет сервис,
// флаги сливаются с текущими значениями current.
func (p *CreatorPatch) Assignments(current Flags) patch.Assignments {
	var a patch.Assignments
	if p.Name.Present() {
		a.AddValue("name", p.Name.Value)
	}
	patch.Add(&a, "avatar_url", p.AvatarURL)
	patch.Add(&a, "bio", p.Bio)
	patch.Add(&a, "category", p.Category)
	patch.Add(&a, "country", p.Country)
	patch.Add(&a, "language", p.Language)

	if p.Tags.Set {
		a.AddValue("tags", CleanTags(p.Tags.Value))
	}
	// явный null сбрасывает JSONB-объект к значению по умолчанию в репозитории
	switch {
	case p.External.Null:
		a.AddValue("external", nil)
	case p.External.Set:
		a.AddValue("external", p.External.Value)
	}
	switch {
	case p.Pricing.Null:
		a.AddValue("pricing", nil)
	case p.Pricing.Set:
		pricing := p.Pricing.Value
		if pricing.Currency == "" {
			pricing.Currency = DefaultCurrency
		}
		a.AddValue("pricing", pricing)
	}
	switch {
	case p.AudienceStats.Null:
		a.AddValue("audience_stats", nil)
	case p.AudienceStats.Set:
		a.AddValue("audience_stats", p.AudienceStats.Value)
	}
	switch {
	case p.Contacts.Null:
		a.AddValue("contacts", nil)
	case p.Contacts.Set:
		contacts := p.Contacts.Value
		if contacts.OtherLinks == nil {
			contacts.OtherLinks = []string{}
		}
		a.AddValue("contacts", contacts)
	}
	if p.Flags.Present() {
		flags := p.Flags.Value.Merge(current)
		if flags != current {
			a.AddValue("is_featured", flags.Featured)
			a.AddValue("is_verified", flags.Verified)
			a.AddValue("is_active", flags.Active)
		}
	}
	if p.PriorityLevel.Present() {
		a.AddValue("priority_level", p.PriorityLevel.Value)
	}
	return a
}
