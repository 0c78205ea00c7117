package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/metrics"
	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/utilities"
)

const (
	// SyncSource is the source of the log entries written by the movieshows sync
	SyncSource = "movieshows"

	syncEventStart  = "start"
	syncEventFinish = "finish"

	statusWindow       = 24 * time.Hour
	statusMaxEntries   = 500
	statusRecentLength = 20
	// Showtimes that started longer ago than this are deleted after each sync
	showtimeRetention = 24 * time.Hour
)

// showtimeNamespace derives stable showtime IDs, so that syncing the same feed twice updates rows instead of duplicating them
var showtimeNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://kolnoa/showtimes"))

type SyncStorer interface {
	GetTheaterBySlug(ctx context.Context, slug string) (*model.Theater, error)
	UpsertTheater(ctx context.Context, theater *model.Theater) error
	UpsertShowtime(ctx context.Context, showtime *model.Showtime) error
	DeleteShowtimesBefore(ctx context.Context, t time.Time) (int64, error)

	AddLog(ctx context.Context, entry *model.LogEntry) error
	GetLogs(ctx context.Context, source string, since time.Time, limit int) ([]model.LogEntry, error)
	CountLogs(ctx context.Context, source string, since time.Time) (map[string]int, error)
}

type ShowtimeFeed interface {
	FetchShowtimes(ctx context.Context) ([]model.FeedShowtime, error)
}

type FeedMovieResolver interface {
	ResolveFeedMovie(ctx context.Context, entry model.FeedShowtime) (*model.Movie, bool, error)
}

// SyncManager imports the showtimes of the movieshows feed. Only one sync runs at a time.
type SyncManager struct {
	SyncStorer
	feed     ShowtimeFeed
	resolver FeedMovieResolver

	running atomic.Bool
	now     func() time.Time
}

func NewSyncManager(ss SyncStorer, feed ShowtimeFeed, resolver FeedMovieResolver) *SyncManager {
	return &SyncManager{
		SyncStorer: ss,
		feed:       feed,
		resolver:   resolver,
		now:        time.Now,
	}
}

// Running reports whether a sync is in progress in this process
func (sm *SyncManager) Running() bool {
	return sm.running.Load()
}

// Run fetches the feed and upserts its theaters, movies and showtimes
func (sm *SyncManager) Run(ctx context.Context) (*model.SyncReport, error) {
	if !sm.running.CompareAndSwap(false, true) {
		return nil, model.ErrSyncInProgress
	}
	defer sm.running.Store(false)

	report := &model.SyncReport{StartedAt: sm.now()}
	sm.record(ctx, model.LogLevelInfo, "Sync started", map[string]any{"event": syncEventStart})

	err := sm.run(ctx, report)
	report.FinishedAt = sm.now()
	if err != nil {
		metrics.SyncRunsTotal.WithLabelValues("error").Inc()
		sm.record(ctx, model.LogLevelError, "Sync failed: "+err.Error(), map[string]any{
			"event":     syncEventFinish,
			"showtimes": report.Showtimes,
			"skipped":   report.Skipped,
		})
		return report, err
	}

	metrics.SyncRunsTotal.WithLabelValues("success").Inc()
	metrics.SyncShowtimes.Set(float64(report.Showtimes))
	sm.record(ctx, model.LogLevelInfo, "Sync finished", map[string]any{
		"event":           syncEventFinish,
		"entries":         report.Entries,
		"showtimes":       report.Showtimes,
		"moviesCreated":   report.MoviesCreated,
		"theatersCreated": report.TheatersCreated,
		"skipped":         report.Skipped,
		"durationMs":      report.FinishedAt.Sub(report.StartedAt).Milliseconds(),
	})
	return report, nil
}

func (sm *SyncManager) run(ctx context.Context, report *model.SyncReport) error {
	entries, err := sm.feed.FetchShowtimes(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}
	report.Entries = len(entries)

	theaters := make(map[string]*model.Theater)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if strings.TrimSpace(entry.Theater) == "" || strings.TrimSpace(entry.MovieTitle) == "" && entry.TMDBID == 0 || entry.StartsAt.IsZero() {
			report.Skipped++
			continue
		}

		theater, created, err := sm.theater(ctx, theaters, entry)
		if err != nil {
			return err
		}
		if created {
			report.TheatersCreated++
		}

		movie, created, err := sm.resolver.ResolveFeedMovie(ctx, entry)
		if err != nil {
			sm.record(ctx, model.LogLevelWarn, "Skipped showtime of unknown movie", map[string]any{
				"title": entry.MovieTitle,
				"error": err.Error(),
			})
			report.Skipped++
			continue
		}
		if created {
			report.MoviesCreated++
		}

		showtime := &model.Showtime{
			ID:         ShowtimeID(theater.ID, movie.ID, entry.StartsAt),
			MovieID:    movie.ID,
			TheaterID:  theater.ID,
			StartsAt:   entry.StartsAt,
			Language:   entry.Language,
			Format:     entry.Format,
			BookingURL: entry.BookingURL,
		}
		if err := sm.SyncStorer.UpsertShowtime(ctx, showtime); err != nil {
			return err
		}
		report.Showtimes++
	}

	deleted, err := sm.SyncStorer.DeleteShowtimesBefore(ctx, sm.now().Add(-showtimeRetention))
	if err != nil {
		return err
	}
	log.Debug().Int64("deleted", deleted).Msg("Pruned past showtimes")
	return nil
}

func (sm *SyncManager) theater(ctx context.Context, known map[string]*model.Theater, entry model.FeedShowtime) (*model.Theater, bool, error) {
	slug := utilities.Slugify(entry.Theater)
	if theater, ok := known[slug]; ok {
		return theater, false, nil
	}
	theater, err := sm.SyncStorer.GetTheaterBySlug(ctx, slug)
	if err == nil {
		known[slug] = theater
		return theater, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, false, err
	}

	theater = &model.Theater{
		ID:      uuid.NewString(),
		Slug:    slug,
		NameEn:  strings.TrimSpace(entry.Theater),
		NameHe:  strings.TrimSpace(entry.TheaterHe),
		City:    entry.City,
		Country: "IL",
	}
	if err := sm.SyncStorer.UpsertTheater(ctx, theater); err != nil {
		return nil, false, err
	}
	known[slug] = theater
	return theater, true, nil
}

// ShowtimeID returns the same ID for the same screening
func ShowtimeID(theaterID, movieID string, startsAt time.Time) string {
	key := theaterID + "|" + movieID + "|" + startsAt.UTC().Format(time.RFC3339)
	return uuid.NewSHA1(showtimeNamespace, []byte(key)).String()
}

// record writes an entry in the logs table and on the console
func (sm *SyncManager) record(ctx context.Context, level, message string, logContext map[string]any) {
	entry := &model.LogEntry{
		ID:        uuid.NewString(),
		Level:     level,
		Source:    SyncSource,
		Message:   message,
		Context:   logContext,
		CreatedAt: sm.now(),
	}
	// The entry is persisted even when the request that triggered the sync is gone
	if err := sm.SyncStorer.AddLog(context.WithoutCancel(ctx), entry); err != nil {
		log.Error().Err(err).Msg("Could not write sync log entry")
	}

	event := log.Info()
	switch level {
	case model.LogLevelError:
		event = log.Error()
	case model.LogLevelWarn:
		event = log.Warn()
	}
	event.Fields(logContext).Msg(message)
}

// Status summarizes the log entries of the last 24 hours
func (sm *SyncManager) Status(ctx context.Context) (*model.SyncStatus, error) {
	since := sm.now().Add(-statusWindow)
	entries, err := sm.SyncStorer.GetLogs(ctx, SyncSource, since, statusMaxEntries)
	if err != nil {
		return nil, err
	}
	counts, err := sm.SyncStorer.CountLogs(ctx, SyncSource, since)
	if err != nil {
		return nil, err
	}
	status := &model.SyncStatus{
		State:  model.SyncStateNever,
		Counts: counts,
		Window: "24h",
		Recent: []model.LogEntry{},
	}
	if len(entries) > 0 {
		status.Recent = entries[:min(len(entries), statusRecentLength)]
	}

	// Entries are sorted newest first. A run that started and finished within the same
	// millisecond is reported by its finish entry.
	var last *model.LogEntry
	for i := range entries {
		entry := &entries[i]
		event := syncEvent(entry)
		if event == "" {
			continue
		}
		if last == nil {
			last = entry
			continue
		}
		if !entry.CreatedAt.Equal(last.CreatedAt) {
			break
		}
		if event == syncEventFinish {
			last = entry
		}
	}
	if last != nil {
		lastRunAt := last.CreatedAt
		status.LastRunAt = &lastRunAt
		status.LastMessage = last.Message
		switch {
		case syncEvent(last) == syncEventStart:
			status.State = model.SyncStateRunning
		case last.Level == model.LogLevelError:
			status.State = model.SyncStateError
		default:
			status.State = model.SyncStateSuccess
		}
	}
	if sm.Running() {
		status.State = model.SyncStateRunning
	}
	return status, nil
}

func syncEvent(entry *model.LogEntry) string {
	event, _ := entry.Context["event"].(string)
	if event != syncEventStart && event != syncEventFinish {
		return ""
	}
	return event
}

// Loop runs a sync right away then every interval, until ctx is done
func (sm *SyncManager) Loop(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		log.Error().Dur("interval", interval).Msg("Sync interval must be positive, periodic sync disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := sm.Run(ctx); errors.Is(err, model.ErrFeedDisabled) {
			log.Info().Msg("No movieshows feed configured, periodic sync disabled")
			return
		} else if err != nil && !errors.Is(err, model.ErrSyncInProgress) {
			log.Error().Err(err).Msg("Periodic sync failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
