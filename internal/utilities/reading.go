package utilities

import (
	"math"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// WordsPerMinute is the reading speed used by ReadingTime
const WordsPerMinute = 200

// ReadingTime estimates the minutes needed to read an HTML (or plain text) document
func ReadingTime(html string) int {
	text := html
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("script, style, noscript").Remove()
		text = doc.Text()
	}
	words := len(strings.Fields(text))
	minutes := int(math.Ceil(float64(words) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}
