package server

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/web"
)

const (
	sessionName     = "kolnoa-session"
	shutdownTimeout = 10 * time.Second
)

type Translator interface {
	T(locale, key string, args ...any) string
}

type SessionManager interface {
	Issue(profile *model.Profile) (string, error)
	Parse(token string) (*business.SessionClaims, error)
	NeedsRefresh(claims *business.SessionClaims) bool
	TTL() time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds the settings of the HTTP server
type Config struct {
	Address       string
	SiteURL       string
	GinMode       string
	CookieSecret  string
	DefaultLocale string
	MetricsRate   float64
	MetricsBurst  int
}

// Handlers groups every handler served by the router
type Handlers struct {
	Main    *MainHandler
	Movie   *MovieHandler
	Actor   *ActorHandler
	Theater *TheaterHandler
	Profile *ProfileHandler
	API     *APIHandler
	Admin   *AdminHandler
	Beacon  *BeaconHandler
}

type Server struct {
	config Config
	router *gin.Engine
	pinger Pinger
}

// NewServer builds the router: one route group per locale, the JSON API, static files and metrics
func NewServer(cfg Config, translator Translator, sm SessionManager, pinger Pinger, h Handlers) (*Server, error) {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	cfg.DefaultLocale = i18n.Normalize(cfg.DefaultLocale, i18n.Hebrew)

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(), prometheusMiddleware())

	// Templates & static files
	tmpl, err := template.New("").Funcs(templateFuncs(translator)).ParseFS(web.Templates, "templates/*/*.go.html")
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(tmpl)
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, err
	}

	// Cookies
	store := cookie.NewStore([]byte(cfg.CookieSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(sm.TTL().Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.SiteURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})
	router.Use(sessions.Sessions(sessionName, store), sessionRefresh(sm), cacheControl(), negotiateLocale(cfg.DefaultLocale))

	router.StaticFS("/static", http.FS(static))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		if err := pinger.Ping(c.Request.Context()); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/", redirectToLocale)
	router.NoRoute(noRoute(h.Main))

	// Pages, once per locale
	for _, locale := range i18n.Supported {
		pages := router.Group("/"+locale, pageLocale(locale))
		pages.GET("", h.Main.GETIndex)

		pages.GET("/login", h.Main.GETLogin)
		pages.POST("/login", h.Main.POSTLogin)
		pages.GET("/signup", h.Main.GETSignup)
		pages.POST("/signup", h.Main.POSTSignup)
		pages.GET("/logout", h.Main.Logout)
		pages.POST("/logout", h.Main.Logout)

		pages.GET("/movies", h.Movie.GETMovies)
		pages.GET("/movies/:slug", h.Movie.GETMovie)
		pages.GET("/actors", h.Actor.GETActors)
		pages.GET("/actors/:slug", h.Actor.GETActor)
		pages.GET("/theaters", h.Theater.GETTheaters)
		pages.GET("/theaters/:slug", h.Theater.GETTheater)
		pages.GET("/profile/:username", h.Profile.GETProfile)

		// User needs to be logged in to access these pages
		needsLogin := pages.Group("", pageAuthRequired)
		{
			needsLogin.GET("/watchlist", h.Profile.GETWatchlist)
			needsLogin.GET("/settings", h.Profile.GETSettings)
			needsLogin.POST("/settings/profile", h.Profile.POSTSettingsProfile)
			needsLogin.POST("/settings/password", h.Profile.POSTSettingsPassword)
		}
		needsAdmin := pages.Group("/admin", pageAdminRequired)
		{
			needsAdmin.GET("", h.Admin.GETAdmin)
		}
	}

	api := router.Group("/api")
	{
		api.GET("/watchlist", h.API.GETWatchlist)
		api.POST("/watchlist", apiAuthRequired, h.API.POSTWatchlist)
		api.DELETE("/watchlist", apiAuthRequired, h.API.DELETEWatchlist)

		api.GET("/tokens", h.API.GETToken)
		api.POST("/tokens", h.API.POSTToken)

		api.GET("/reviews", h.API.GETReviews)
		api.POST("/reviews", apiAuthRequired, h.API.POSTReview)
		api.DELETE("/reviews", apiAuthRequired, h.API.DELETEReview)

		api.POST("/auth/token", h.API.POSTAuthToken)

		api.GET("/movieshows/status", h.Admin.GETSyncStatus)
		api.POST("/metrics", rateLimit("/api/metrics", rate.Limit(cfg.MetricsRate), cfg.MetricsBurst), h.Beacon.POSTBeacons)

		admin := api.Group("", apiAdminRequired)
		admin.POST("/movieshows/sync", h.Admin.POSTSync)
		admin.GET("/admin/migrations", h.Admin.GETMigrations)
		admin.POST("/admin/migrations/apply", h.Admin.POSTApplyMigration)
		admin.POST("/admin/movies/import", h.Admin.POSTImportMovie)
		admin.GET("/admin/logs", h.Admin.GETLogs)
		admin.GET("/debug/schema", h.Admin.GETSchema)
	}

	return &Server{
		config: cfg,
		router: router,
		pinger: pinger,
	}, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves until ctx is done, then shuts the server down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.config.Address).Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
