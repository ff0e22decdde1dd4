package validation

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"teleindex-backend/internal/common/errors"
)

func ptr[T any](v T) *T { return &v }

func TestIsValidChannelLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://t.me/durov", true},
		{"http://t.me/durov", true},
		{"t.me/durov", true},
		{"@durov", false},
		{"ftp://t.me/durov", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidChannelLink(tt.link), tt.link)
	}
}

func TestIsValidSlug(t *testing.T) {
	assert.True(t, IsValidSlug("test-creator"))
	assert.True(t, IsValidSlug("test-creator-1"))
	assert.False(t, IsValidSlug("Test-Creator"))
	assert.False(t, IsValidSlug("-lead"))
	assert.False(t, IsValidSlug("double--dash"))
	assert.False(t, IsValidSlug(""))
}

func TestValidateTags(t *testing.T) {
	assert.NoError(t, ValidateTags([]string{"технологии", "стартапы"}))

	tooMany := make([]string, MaxTags+1)
	for i := range tooMany {
		tooMany[i] = "t"
	}
	assert.Error(t, ValidateTags(tooMany))
	assert.Error(t, ValidateTags([]string{" "}))
	assert.Error(t, ValidateTags([]string{strings.Repeat("x", MaxTagLength+1)}))
}

func TestValidatePriceRange(t *testing.T) {
	assert.NoError(t, ValidatePriceRange(nil, nil))
	assert.NoError(t, ValidatePriceRange(ptr(int64(100)), nil))
	assert.NoError(t, ValidatePriceRange(ptr(int64(100)), ptr(int64(100))))
	assert.Error(t, ValidatePriceRange(ptr(int64(200)), ptr(int64(100))))
	assert.Error(t, ValidatePriceRange(ptr(int64(-1)), nil))
}

func TestValidatePercent(t *testing.T) {
	assert.NoError(t, ValidatePercent(nil, "x"))
	assert.NoError(t, ValidatePercent(ptr(0.0), "x"))
	assert.NoError(t, ValidatePercent(ptr(100.0), "x"))
	assert.Error(t, ValidatePercent(ptr(100.5), "x"))
	assert.Error(t, ValidatePercent(ptr(-1.0), "x"))
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateEmail("admin@example.com"))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidatePassword("12345"))
	assert.NoError(t, ValidatePassword("123456"))
}

func TestEnumerations(t *testing.T) {
	assert.True(t, IsValidChannelStatus("draft"))
	assert.False(t, IsValidChannelStatus("active"))
	assert.True(t, IsValidLinkStatus("dead"))
	assert.True(t, IsValidPriorityLevel("premium"))
	assert.False(t, IsValidPriorityLevel("gold"))
}

func TestRegisterGinValidators(t *testing.T) {
	assert.NoError(t, RegisterGinValidators())
}

func TestBindError(t *testing.T) {
	type request struct {
		Name string `validate:"required"`
	}
	err := validator.New().Struct(request{})
	require.Error(t, err)

	appErr := BindError(err)
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
	assert.Equal(t, "Name", appErr.Details["field"])
	assert.Equal(t, "is required", appErr.Details["reason"])

	appErr = BindError(stderrors.New("unexpected EOF"))
	assert.Equal(t, errors.ErrCodeValidation, appErr.Code)
}

func TestBindErrorChannelLink(t *testing.T) {
	v := validator.New()
	require.NoError(t, v.RegisterValidation("tglink", func(fl validator.FieldLevel) bool {
		return IsValidChannelLink(fl.Field().String())
	}))

	type request struct {
		Link string `validate:"required,tglink"`
	}
	err := v.Struct(request{Link: "@tech"})
	require.Error(t, err)

	appErr := BindError(err)
	assert.Equal(t, errors.ErrCodeInvalidLink, appErr.Code)
	assert.Equal(t, "@tech", appErr.Details["link"])
	assert.Equal(t, "link", appErr.Details["field"])
}
