package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Test Creator", "test-creator"},
		{"diacritics", "Crème Brûlée", "creme-brulee"},
		{"punctuation", "  Hello,  World!!  ", "hello-world"},
		{"cyrillic kept", "Новости Дня", "новости-дня"},
		{"underscores", "snake_case name", "snake-case-name"},
		{"only symbols", "!!! ???", Fallback},
		{"empty", "", Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestWithSuffix(t *testing.T) {
	assert.Equal(t, "test-creator", WithSuffix("test-creator", 0))
	assert.Equal(t, "test-creator-1", WithSuffix("test-creator", 1))
	assert.Equal(t, "test-creator-12", WithSuffix("test-creator", 12))
}
