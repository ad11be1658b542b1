package recipe

import (
	"fmt"
	"strings"
)

// Language is one of the fixed display languages recipes can be translated to.
type Language string

const (
	English Language = "English"
	Spanish Language = "Spanish"
	French  Language = "French"
	Italian Language = "Italian"
)

// DefaultLanguage is the language a new session starts in.
const DefaultLanguage = English

var languageCodes = map[Language]string{
	English: "en",
	Spanish: "es",
	French:  "fr",
	Italian: "it",
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	return []Language{English, Spanish, French, Italian}
}

// Code returns the ISO 639-1 code for the language, or "" if unsupported.
func (l Language) Code() string {
	return languageCodes[l]
}

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	_, ok := languageCodes[l]
	return ok
}

func (l Language) String() string {
	return string(l)
}

// ParseLanguage accepts a display name (any case) or a language code.
func ParseLanguage(s string) (Language, error) {
	s = strings.TrimSpace(s)
	for _, l := range Languages() {
		if strings.EqualFold(string(l), s) || strings.EqualFold(l.Code(), s) {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s)
}

// AlternativesTo lists the languages other than current, in display order.
func AlternativesTo(current Language) []Language {
	out := make([]Language, 0, len(languageCodes)-1)
	for _, l := range Languages() {
		if l != current {
			out = append(out, l)
		}
	}
	return out
}
