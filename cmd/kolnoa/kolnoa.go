package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/config"
	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/infrastructure"
	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/service/server"
)

const (
	logBufferSize       = 256
	tokenPurgeInterval  = 15 * time.Minute
	localesPollInterval = 2 * time.Second
	feedMaxTries        = 4
	feedRetryDelay      = 2 * time.Second
)

// Store is everything the managers need from the database, whichever the driver
type Store interface {
	business.MovieStorer
	business.ActorStorer
	business.TheaterStorer
	business.UserStorer
	business.WatchlistStorer
	business.ReviewStorer
	business.TokenStorer
	business.SyncStorer
	business.MigrationStorer
	DescribeSchema(ctx context.Context, table string) ([]model.TableSchema, error)
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatal().Err(err).Msg("Kolnoa stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	var console io.Writer = os.Stdout
	if cfg.LogFormat == "console" {
		console = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.DateTime}
	}
	log.Logger = zerolog.New(console).With().Timestamp().Logger()

	db, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Events tagged with a source are also kept in the logs table
	logTable := infrastructure.NewLogTableWriter(db, logBufferSize, zerolog.InfoLevel)
	defer logTable.Close()
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(console, logTable)).With().Timestamp().Logger()

	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		redis, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "kolnoa")
		if err != nil {
			return err
		}
		defer redis.Close()
		store = redis
	}

	var metadata business.MovieMetadataGetter
	if cfg.TMDBAPIKey != "" {
		mw, err := infrastructure.NewMetadataWrapper(cfg.TMDBAPIKey)
		if err != nil {
			return err
		}
		metadata = mw
	} else {
		log.Warn().Msg("TMDB_API_KEY is not set, movie imports are disabled")
	}

	catalog, err := i18n.NewCatalog(cfg.DefaultLocale)
	if err != nil {
		return err
	}
	if cfg.LocalesDir != "" {
		if err := catalog.Watch(ctx, cfg.LocalesDir, localesPollInterval); err != nil {
			return err
		}
	}

	filterer := business.NewFiltererWrapper()
	movieManager := business.NewMovieManager(db, metadata, filterer, store, cfg.CacheTTL)
	movies, err := movieManager.GetMovies(ctx)
	if err != nil {
		return err
	}
	filterer.AddMovies(movies)

	userManager := business.NewUserManagerWrapper(db, cfg.IsAdminUsername)
	sessionManager := business.NewSessionManager(cfg.JWTSecret, cfg.SessionTTL)
	watchlistManager := business.NewWatchlistManager(db)
	reviewManager := business.NewReviewManager(db)
	tokenManager := business.NewTokenManager(db)
	feed := infrastructure.NewFeedClient(cfg.MovieshowsFeedURL).WithRetry(feedMaxTries, feedRetryDelay)
	syncManager := business.NewSyncManager(db, feed, movieManager)

	mainHandler := server.NewMainHandler(userManager, movieManager, sessionManager)
	srv, err := server.NewServer(server.Config{
		Address:       cfg.Address,
		SiteURL:       cfg.SiteURL,
		GinMode:       cfg.GinMode,
		CookieSecret:  cfg.CookieSecret,
		DefaultLocale: cfg.DefaultLocale,
		MetricsRate:   cfg.MetricsRate,
		MetricsBurst:  cfg.MetricsBurst,
	}, catalog, sessionManager, db, server.Handlers{
		Main:    mainHandler,
		Movie:   server.NewMovieHandler(movieManager, reviewManager, watchlistManager, filterer, mainHandler, cfg.ItemsPerPage),
		Actor:   server.NewActorHandler(business.NewActorManager(db, store, cfg.CacheTTL), mainHandler, cfg.ItemsPerPage),
		Theater: server.NewTheaterHandler(business.NewTheaterManager(db), mainHandler),
		Profile: server.NewProfileHandler(userManager, reviewManager, watchlistManager, mainHandler),
		API:     server.NewAPIHandler(watchlistManager, tokenManager, reviewManager, userManager, sessionManager),
		Admin: server.NewAdminHandler(syncManager, business.NewMigrationManager(db, cfg.MigrationsDir),
			movieManager, db, db, mainHandler),
		Beacon: server.NewBeaconHandler(business.NewBeaconRecorder()),
	})
	if err != nil {
		return err
	}

	go syncManager.Loop(ctx, cfg.SyncInterval)
	go purgeTokens(ctx, tokenManager)

	return srv.Run(ctx)
}

func openStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.DBDriver {
	case config.DriverMongoDB:
		db, err := infrastructure.NewMongoDB(ctx, cfg.DatabaseURL, cfg.DBName)
		if err != nil {
			return nil, err
		}
		return db, nil
	case config.DriverSQLite:
		db, err := infrastructure.NewSQLDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.DBDriver)
}

func purgeTokens(ctx context.Context, tm *business.TokenManager) {
	ticker := time.NewTicker(tokenPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := tm.PurgeExpired(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Could not purge expired tokens")
				continue
			}
			if n > 0 {
				log.Debug().Int64("count", n).Msg("Purged expired tokens")
			}
		}
	}
}
