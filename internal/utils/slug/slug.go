package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback используется, когда из имени не осталось ни одного символа
const Fallback = "creator"

var (
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}_]+`)
	underscore = regexp.MustCompile(`_+`)
)

// Make строит slug из отображаемого имени: NFKD, нижний регистр, без диакритики,
// все остальные символы заменяются дефисами.
func Make(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}

	s := strings.ToLower(strings.TrimSpace(stripped))
	s = nonWord.ReplaceAllString(s, "-")
	s = underscore.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return Fallback
	}
	return s
}

// WithSuffix возвращает base для n == 0, иначе base-n
func WithSuffix(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
