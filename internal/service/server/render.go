package server

import (
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/utilities"
)

var scheduleLocation = business.ScheduleLocation

// Keys of the values stored in the gin context
const (
	localeKey = "locale"
	claimsKey = "claims"
)

// RenderHTML renders HTML pages and adds useful objects for templates
func RenderHTML(c *gin.Context, code int, name string, obj gin.H) {
	locale := currentLocale(c)
	_, rest, _ := i18n.SplitPath(c.Request.URL.Path)

	obj["locale"] = locale
	obj["dir"] = i18n.Dir(locale)
	obj["otherLocale"] = otherLocale(locale)
	obj["path"] = rest
	obj["query"] = c.Request.URL.RawQuery

	if claims := currentUser(c); claims == nil {
		obj["user"] = gin.H{
			"isLoggedIn": false,
			"name":       "",
		}
	} else {
		obj["user"] = gin.H{
			"isLoggedIn": true,
			"id":         claims.Subject,
			"name":       claims.Username,
			"isAdmin":    claims.Admin,
		}
	}
	c.HTML(code, name, obj)
}

func currentLocale(c *gin.Context) string {
	if locale := c.GetString(localeKey); locale != "" {
		return locale
	}
	return i18n.Hebrew
}

// currentUser returns the claims of the logged in user, or nil
func currentUser(c *gin.Context) *business.SessionClaims {
	claims, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	return claims.(*business.SessionClaims)
}

func otherLocale(locale string) string {
	for _, l := range i18n.Supported {
		if l != locale {
			return l
		}
	}
	return locale
}

// localePath prefixes a path with a locale
func localePath(locale, path string) string {
	if path == "" || path == "/" {
		return "/" + locale
	}
	return "/" + locale + path
}

func templateFuncs(translator Translator) template.FuncMap {
	return template.FuncMap{
		"t": translator.T,
		"path": func(locale string, parts ...any) string {
			var sb strings.Builder
			for _, part := range parts {
				sb.WriteString("/")
				sb.WriteString(url.PathEscape(fmt.Sprint(part)))
			}
			return localePath(locale, sb.String())
		},
		"image": func(path string, size string) string {
			return utilities.ImageURL(path, size)
		},
		"truncate":    utilities.Truncate,
		"readingTime": utilities.ReadingTime,
		"country":     business.CountryName,
		"dir":         i18n.Dir,
		"clock": func(t time.Time) string {
			return t.In(scheduleLocation).Format("15:04")
		},
		"day": func(t time.Time, locale string) string {
			return formatDay(t, locale)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(scheduleLocation).Format("02/01/2006")
		},
		"rating": func(r float64) string {
			return fmt.Sprintf("%.1f", r)
		},
		"join": func(values []string, sep string) string {
			return strings.Join(lo.Compact(values), sep)
		},
		"add": func(a, b int64) int64 {
			return a + b
		},
		"query": func(values ...any) template.URL {
			q := url.Values{}
			for i := 0; i+1 < len(values); i += 2 {
				if values[i+1] == nil {
					continue
				}
				if v := fmt.Sprint(values[i+1]); v != "" && v != "0" {
					q.Set(fmt.Sprint(values[i]), v)
				}
			}
			if len(q) == 0 {
				return ""
			}
			return template.URL("?" + q.Encode())
		},
		"ratings": func() []int {
			return lo.RangeFrom(1, 10)
		},
	}
}

var (
	weekdaysHe = [7]string{"ראשון", "שני", "שלישי", "רביעי", "חמישי", "שישי", "שבת"}
	monthsHe   = [12]string{"ינואר", "פברואר", "מרץ", "אפריל", "מאי", "יוני", "יולי", "אוגוסט", "ספטמבר", "אוקטובר", "נובמבר", "דצמבר"}
)

func formatDay(t time.Time, locale string) string {
	t = t.In(scheduleLocation)
	if locale == i18n.Hebrew {
		return fmt.Sprintf("יום %s, %d ב%s", weekdaysHe[t.Weekday()], t.Day(), monthsHe[t.Month()-1])
	}
	return t.Format("Monday, January 2")
}
