package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
)

const (
	defaultLogsWindow = 24 * time.Hour
	defaultLogsLimit  = 100
	maxLogsLimit      = 1000
)

type SyncRunner interface {
	Run(ctx context.Context) (*model.SyncReport, error)
	Running() bool
	Status(ctx context.Context) (*model.SyncStatus, error)
}

type MigrationRunner interface {
	List(ctx context.Context) ([]model.Migration, error)
	Apply(ctx context.Context, name string) error
}

type MovieImporter interface {
	ImportMovieFromLink(ctx context.Context, link string) (*model.Movie, error)
	ImportMovie(ctx context.Context, tmdbID int64) (*model.Movie, error)
}

type LogReader interface {
	GetLogs(ctx context.Context, source string, since time.Time, limit int) ([]model.LogEntry, error)
	CountLogs(ctx context.Context, source string, since time.Time) (map[string]int, error)
}

type SchemaDescriber interface {
	DescribeSchema(ctx context.Context, table string) ([]model.TableSchema, error)
}

type AdminHandler struct {
	SyncRunner
	MigrationRunner
	MovieImporter
	LogReader
	SchemaDescriber
	main *MainHandler
}

func NewAdminHandler(sr SyncRunner, mr MigrationRunner, mi MovieImporter, lr LogReader, sd SchemaDescriber, mh *MainHandler) *AdminHandler {
	return &AdminHandler{
		SyncRunner:      sr,
		MigrationRunner: mr,
		MovieImporter:   mi,
		LogReader:       lr,
		SchemaDescriber: sd,
		main:            mh,
	}
}

// GETAdmin displays the admin page
func (ah AdminHandler) GETAdmin(c *gin.Context) {
	ctx := c.Request.Context()
	status, err := ah.SyncRunner.Status(ctx)
	if err != nil {
		ah.main.Error500(c, err)
		return
	}
	migrations, err := ah.MigrationRunner.List(ctx)
	if err != nil {
		ah.main.Error500(c, err)
		return
	}
	RenderHTML(c, http.StatusOK, "pages/admin.go.html", gin.H{
		"titleKey":   "admin.title",
		"sync":       status,
		"migrations": migrations,
	})
}

// GETSyncStatus summarizes the movieshows sync entries of the logs table
func (ah AdminHandler) GETSyncStatus(c *gin.Context) {
	status, err := ah.SyncRunner.Status(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// POSTSync starts a movieshows sync in the background.
// With ?wait=true, it answers with the report once the sync is over.
func (ah AdminHandler) POSTSync(c *gin.Context) {
	if ah.SyncRunner.Running() {
		abortWithError(c, model.ErrSyncInProgress)
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		report, err := ah.SyncRunner.Run(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
		return
	}

	go func() {
		if _, err := ah.SyncRunner.Run(context.Background()); err != nil && !errors.Is(err, model.ErrSyncInProgress) {
			log.Error().Err(err).Msg("Manual sync failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"started": true})
}

// GETMigrations lists the migration files with their applied status
func (ah AdminHandler) GETMigrations(c *gin.Context) {
	migrations, err := ah.MigrationRunner.List(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"migrations": migrations})
}

type applyMigrationRequest struct {
	Name string `json:"name" form:"name" binding:"required"`
}

// POSTApplyMigration runs one migration file against the database
func (ah AdminHandler) POSTApplyMigration(c *gin.Context) {
	var req applyMigrationRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, "name is required")
		return
	}
	if err := ah.MigrationRunner.Apply(c.Request.Context(), req.Name); err != nil {
		abortWithError(c, err)
		return
	}
	log.Info().
		Str(model.LogSourceField, apiLogSource).
		Str("migration", req.Name).
		Str("username", currentUser(c).Username).
		Msg("Migration applied from the API")
	c.JSON(http.StatusOK, gin.H{"applied": true, "name": req.Name})
}

type importMovieRequest struct {
	Link   string `json:"link" form:"link"`
	TMDBID int64  `json:"tmdbId" form:"tmdbId"`
}

// POSTImportMovie adds or refreshes a movie from a TMDB or IMDb link, or a TMDB ID
func (ah AdminHandler) POSTImportMovie(c *gin.Context) {
	var req importMovieRequest
	if err := c.ShouldBind(&req); err != nil || (req.Link == "" && req.TMDBID <= 0) {
		badRequest(c, "link or tmdbId is required")
		return
	}

	var (
		movie *model.Movie
		err   error
	)
	if req.TMDBID > 0 {
		movie, err = ah.MovieImporter.ImportMovie(c.Request.Context(), req.TMDBID)
	} else {
		movie, err = ah.MovieImporter.ImportMovieFromLink(c.Request.Context(), req.Link)
	}
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, movie)
}

// GETLogs returns at most limit entries of the logs table, newest first, with the count per level
// of every entry in the window
func (ah AdminHandler) GETLogs(c *gin.Context) {
	window := defaultLogsWindow
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "since must be a positive duration")
			return
		}
		window = parsed
	}
	limit := defaultLogsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxLogsLimit)
	}

	source := c.Query("source")
	since := time.Now().Add(-window)
	entries, err := ah.LogReader.GetLogs(c.Request.Context(), source, since, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	counts, err := ah.LogReader.CountLogs(c.Request.Context(), source, since)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if entries == nil {
		entries = []model.LogEntry{}
	}
	c.JSON(http.StatusOK, gin.H{
		"window":  window.String(),
		"counts":  counts,
		"entries": entries,
	})
}

// GETSchema describes the tables of the database
func (ah AdminHandler) GETSchema(c *gin.Context) {
	tables, err := ah.SchemaDescriber.DescribeSchema(c.Request.Context(), c.Query("table"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}
