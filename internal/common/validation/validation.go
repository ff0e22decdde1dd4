package validation

import (
	stderrors "errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"teleindex-backend/internal/common/errors"
)

const (
	// Максимальные длины для различных полей
	MaxNameLength        = 200
	MaxDescriptionLength = 2000
	MaxBioLength         = 5000
	MaxTagLength         = 50
	MaxTags              = 20
	MaxSlugLength        = 120

	MinPasswordLength = 6
)

// Статусы модерации канала
var channelStatuses = []string{"draft", "approved", "rejected"}

// Состояния ссылки канала
var linkStatuses = []string{"alive", "dead"}

// Уровни приоритета автора
var priorityLevels = []string{"normal", "featured", "premium"}

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// RegisterGinValidators регистрирует собственные теги в валидаторе gin.
// Вызывается один раз при старте HTTP-сервера.
func RegisterGinValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected gin validator engine")
	}
	if err := v.RegisterValidation("tglink", func(fl validator.FieldLevel) bool {
		return IsValidChannelLink(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return IsValidSlug(fl.Field().String())
	})
}

// ValidateName проверяет отображаемое имя канала или автора
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}

	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name cannot exceed %d characters", MaxNameLength)
	}

	return nil
}

// ValidateChannelLink проверяет ссылку на канал
func ValidateChannelLink(link string) error {
	if !IsValidChannelLink(link) {
		return fmt.Errorf("invalid link, provide t.me or https URL")
	}
	return nil
}

// IsValidChannelLink допускает ссылки, начинающиеся с http или t.me
func IsValidChannelLink(link string) bool {
	link = strings.TrimSpace(link)
	return strings.HasPrefix(link, "http") || strings.HasPrefix(link, "t.me")
}

// IsValidSlug проверяет URL-безопасный идентификатор
func IsValidSlug(slug string) bool {
	return len(slug) <= MaxSlugLength && slugRegex.MatchString(slug)
}

// ValidateTags проверяет список тегов автора
func ValidateTags(tags []string) error {
	if len(tags) > MaxTags {
		return fmt.Errorf("no more than %d tags allowed", MaxTags)
	}
	for _, tag := range tags {
		if strings.TrimSpace(tag) == "" {
			return fmt.Errorf("tags cannot be empty")
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return fmt.Errorf("tag %q cannot exceed %d characters", tag, MaxTagLength)
		}
	}
	return nil
}

// ValidatePriceRange проверяет, что минимальная цена не превышает максимальную
func ValidatePriceRange(minPrice, maxPrice *int64) error {
	if minPrice != nil && *minPrice < 0 {
		return fmt.Errorf("min_price cannot be negative")
	}
	if maxPrice != nil && *maxPrice < 0 {
		return fmt.Errorf("max_price cannot be negative")
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return fmt.Errorf("min_price cannot exceed max_price")
	}
	return nil
}

// ValidatePercent проверяет процентное значение
func ValidatePercent(value *float64, fieldName string) error {
	if value == nil {
		return nil
	}
	if *value < 0 || *value > 100 {
		return fmt.Errorf("%s must be between 0 and 100", fieldName)
	}
	return nil
}

// ValidateNonNegativeInt проверяет, что число неотрицательное
func ValidateNonNegativeInt(value int64, fieldName string) error {
	if value < 0 {
		return fmt.Errorf("%s cannot be negative", fieldName)
	}
	return nil
}

// ValidateNonNegativeFloat проверяет, что число неотрицательное
func ValidateNonNegativeFloat(value float64, fieldName string) error {
	if value < 0 {
		return fmt.Errorf("%s cannot be negative", fieldName)
	}
	return nil
}

// ValidateEmail проверяет адрес электронной почты
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword проверяет пароль при регистрации
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	}
	return nil
}

// IsValidChannelStatus проверяет валидность статуса канала
func IsValidChannelStatus(status string) bool {
	return contains(channelStatuses, status)
}

// IsValidLinkStatus проверяет валидность состояния ссылки
func IsValidLinkStatus(status string) bool {
	return contains(linkStatuses, status)
}

// IsValidPriorityLevel проверяет уровень приоритета автора
func IsValidPriorityLevel(level string) bool {
	return contains(priorityLevels, level)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// BindError превращает ошибку биндинга gin в ошибку валидации с первым невалидным полем
func BindError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "tglink" {
			return errors.NewInvalidLinkError(fmt.Sprint(fe.Value()), describeTag(fe))
		}
		return errors.NewValidationError(fe.Field(), describeTag(fe))
	}
	return errors.Wrap(err, errors.ErrCodeValidation, "Invalid request body")
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "tglink":
		return "invalid link, provide t.me or https URL"
	case "slug":
		return "must contain only lowercase letters, digits and hyphens"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "email":
		return "must be a valid email"
	default:
		return "failed on " + fe.Tag()
	}
}
