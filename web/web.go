// Package web holds the HTML templates and static files served by the site.
package web

import "embed"

//go:embed templates
var Templates embed.FS

//go:embed static
var Static embed.FS
