package server

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/metrics"
	"github.com/Agurato/kolnoa/internal/model"
)

const (
	// Session key of the signed session token
	sessionTokenKey = "token"
	// Cookie remembering the last locale a visitor browsed in
	langCookie       = "lang"
	langCookieMaxAge = 365 * 24 * 60 * 60

	maxLimitedClients = 10000
)

// requestLogger logs every request once it has been served
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		event := log.Debug()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Info()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("Request")
	}
}

func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// sessionRefresh authenticates the request from a Bearer token or the session cookie.
// A session token past half of its lifetime is re-issued, an invalid one is removed.
func sessionRefresh(sm SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
			if claims, err := sm.Parse(strings.TrimSpace(bearer)); err == nil {
				c.Set(claimsKey, claims)
			}
			c.Next()
			return
		}

		session := sessions.Default(c)
		token, _ := session.Get(sessionTokenKey).(string)
		if token == "" {
			c.Next()
			return
		}
		claims, err := sm.Parse(token)
		if err != nil {
			session.Delete(sessionTokenKey)
			if err := session.Save(); err != nil {
				log.Error().Err(err).Msg("Could not remove invalid session")
			}
			c.Next()
			return
		}

		if sm.NeedsRefresh(claims) {
			refreshed, err := sm.Issue(claimsProfile(claims))
			if err == nil {
				session.Set(sessionTokenKey, refreshed)
				err = session.Save()
			}
			if err != nil {
				log.Error().Err(err).Str("username", claims.Username).Msg("Could not refresh session")
			}
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func claimsProfile(claims *business.SessionClaims) *model.Profile {
	return &model.Profile{
		ID:       claims.Subject,
		Username: claims.Username,
		IsAdmin:  claims.Admin,
	}
}

// cacheControl sets the Cache-Control header according to the kind of path
func cacheControl() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", cacheControlValue(c.Request.Method, c.Request.URL.Path, currentUser(c) != nil))
		c.Next()
	}
}

func cacheControlValue(method, path string, authenticated bool) string {
	switch {
	case strings.HasPrefix(path, "/static/"):
		return "public, max-age=31536000, immutable"
	case strings.HasPrefix(path, "/api/"), path == "/metrics", path == "/healthz":
		return "no-store"
	case method != http.MethodGet && method != http.MethodHead:
		return "no-store"
	case authenticated:
		return "private, no-cache"
	default:
		return "public, s-maxage=60, stale-while-revalidate=300"
	}
}

// negotiateLocale picks the locale of requests outside of the locale route groups
func negotiateLocale(defaultLocale string) gin.HandlerFunc {
	return func(c *gin.Context) {
		preference, _ := c.Cookie(langCookie)
		c.Set(localeKey, i18n.Match(preference, c.GetHeader("Accept-Language"), defaultLocale))
		c.Next()
	}
}

// pageLocale sets the locale of a route group and remembers it in the lang cookie
func pageLocale(locale string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(localeKey, locale)
		c.Header("Content-Language", locale)
		if current, _ := c.Cookie(langCookie); current != locale {
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(langCookie, locale, langCookieMaxAge, "/", "", false, false)
			// A response setting a cookie must not be stored by shared caches
			if strings.HasPrefix(c.Writer.Header().Get("Cache-Control"), "public") {
				c.Header("Cache-Control", "private, no-cache")
			}
		}
		c.Next()
	}
}

// redirectToLocale sends / to the home page of the negotiated locale
func redirectToLocale(c *gin.Context) {
	c.Redirect(http.StatusFound, localePath(currentLocale(c), ""))
}

// noRoute redirects paths without a locale prefix to the localized path, and renders 404 otherwise
func noRoute(mh *MainHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/static/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if locale, _, ok := i18n.SplitPath(path); ok {
			c.Set(localeKey, locale)
			mh.Error404(c)
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			mh.Error404(c)
			return
		}
		target := localePath(currentLocale(c), path)
		if c.Request.URL.RawQuery != "" {
			target += "?" + c.Request.URL.RawQuery
		}
		c.Redirect(http.StatusFound, target)
	}
}

// pageAuthRequired redirects anonymous visitors to the login page
func pageAuthRequired(c *gin.Context) {
	if currentUser(c) == nil {
		target := localePath(currentLocale(c), "/login") + "?next=" + url.QueryEscape(c.Request.URL.Path)
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}
	c.Next()
}

func pageAdminRequired(c *gin.Context) {
	claims := currentUser(c)
	if claims == nil {
		pageAuthRequired(c)
		return
	}
	if !claims.Admin {
		c.Abort()
		RenderHTML(c, http.StatusForbidden, "pages/error.go.html", gin.H{
			"titleKey":   "error.forbidden.title",
			"messageKey": "error.forbidden.message",
		})
		return
	}
	c.Next()
}

// apiAuthRequired ensures that an API request will be aborted if the user is not authenticated
func apiAuthRequired(c *gin.Context) {
	if currentUser(c) == nil {
		abortWithError(c, model.ErrUnauthorized)
		return
	}
	c.Next()
}

func apiAdminRequired(c *gin.Context) {
	claims := currentUser(c)
	if claims == nil {
		abortWithError(c, model.ErrUnauthorized)
		return
	}
	if !claims.Admin {
		abortWithError(c, model.ErrForbidden)
		return
	}
	c.Next()
}

// rateLimit throttles requests per client IP
func rateLimit(route string, limit rate.Limit, burst int) gin.HandlerFunc {
	if limit <= 0 {
		limit = rate.Inf
	}
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			if len(limiters) >= maxLimitedClients {
				limiters = make(map[string]*rate.Limiter)
			}
			limiter = rate.NewLimiter(limit, burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			metrics.RateLimitHits.WithLabelValues(route).Inc()
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
