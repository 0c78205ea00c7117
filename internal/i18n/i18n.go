// Package i18n resolves the locale of a request and translates interface strings.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

const (
	Hebrew  = "he"
	English = "en"
)

// Supported lists the locales the site is rendered in
var Supported = []string{Hebrew, English}

var supportedTags = map[string]language.Tag{
	Hebrew:  language.Hebrew,
	English: language.English,
}

// IsSupported reports whether locale is one of the Supported locales
func IsSupported(locale string) bool {
	_, ok := supportedTags[locale]
	return ok
}

// Normalize returns locale if supported, otherwise fallback
func Normalize(locale, fallback string) string {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if IsSupported(locale) {
		return locale
	}
	return fallback
}

// Dir returns the text direction of a locale
func Dir(locale string) string {
	if locale == Hebrew {
		return "rtl"
	}
	return "ltr"
}

// Match picks the locale for a request: a supported preference (cookie) wins, then the
// Accept-Language header, then fallback.
func Match(preference, acceptLanguage, fallback string) string {
	if IsSupported(preference) {
		return preference
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return fallback
	}

	supported := make([]language.Tag, 0, len(Supported))
	for _, locale := range Supported {
		supported = append(supported, supportedTags[locale])
	}
	_, index, confidence := language.NewMatcher(supported).Match(tags...)
	if confidence == language.No {
		return fallback
	}
	return Supported[index]
}

// SplitPath separates a locale prefix from the rest of a URL path.
// "/en/movies" gives ("en", "/movies", true), "/movies" gives ("", "/movies", false).
func SplitPath(path string) (locale string, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	first, remaining, _ := strings.Cut(trimmed, "/")
	if !IsSupported(first) {
		return "", path, false
	}
	return first, "/" + remaining, true
}
