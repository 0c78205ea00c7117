package utilities

import (
	"strings"

	tmdb "github.com/cyruzin/golang-tmdb"
)

// PlaceholderImage is served when an item has no image
const PlaceholderImage = "/static/img/placeholder.svg"

// Image sizes used across the site
const (
	SizePoster   = tmdb.W342
	SizeThumb    = tmdb.W185
	SizeBackdrop = tmdb.W1280
	SizeOriginal = tmdb.Original
)

// ImageURL formats an image path stored in the database into a displayable URL
func ImageURL(path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return PlaceholderImage
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || strings.HasPrefix(path, "/static/") {
		return path
	}
	if size == "" {
		size = SizePoster
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return tmdb.GetImageURL(path, size)
}
