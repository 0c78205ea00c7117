package utilities

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

// RemoveArticle strips a leading English article, used when sorting titles
func RemoveArticle(input string) string {
	if strings.HasPrefix(strings.ToLower(input), "a ") {
		return input[2:]
	} else if strings.HasPrefix(strings.ToLower(input), "an ") {
		return input[3:]
	} else if strings.HasPrefix(strings.ToLower(input), "the ") {
		return input[4:]
	}
	return input
}

// Slugify turns a name into a lowercase, dash separated URL segment.
// Diacritics are stripped, letters of any script are kept.
func Slugify(input string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	normalized, _, err := transform.String(t, input)
	if err != nil {
		normalized = input
	}

	var (
		b       strings.Builder
		lastSep bool
	)
	for _, r := range strings.ToLower(normalized) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSep = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '/' || r == '.':
			if b.Len() > 0 && !lastSep {
				b.WriteByte('-')
				lastSep = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Truncate shortens input to at most maxLen runes, ellipsis included
func Truncate(input string, maxLen int) string {
	r := []rune(input)
	if len(r) <= maxLen {
		return input
	}
	if maxLen <= len(ellipsis) {
		return string(r[:max(maxLen, 0)])
	}
	return string(r[:maxLen-len(ellipsis)]) + ellipsis
}

// LocalizedField returns the value matching locale, or the other language's value when it is empty
func LocalizedField(en, he, locale string) string {
	primary, fallback := en, he
	if strings.HasPrefix(strings.ToLower(locale), "he") {
		primary, fallback = he, en
	}
	if strings.TrimSpace(primary) != "" {
		return primary
	}
	return fallback
}

// IsExpired reports whether expiresAt is reached at now. A zero expiry is always expired.
func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt)
}
