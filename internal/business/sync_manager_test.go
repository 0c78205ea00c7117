package business_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/model"
)

func feedEntries(start time.Time) []model.FeedShowtime {
	return []model.FeedShowtime{
		{Theater: "Cinema City Glilot", TheaterHe: "סינמה סיטי גלילות", City: "Ramat HaSharon", MovieTitle: "Casablanca", MovieYear: 1942, StartsAt: start, Language: "en", Format: "2D"},
		{Theater: "Cinema City Glilot", MovieTitle: "casablanca", MovieYear: 1942, StartsAt: start.Add(3 * time.Hour)},
		{Theater: "Lev Smadar", City: "Jerusalem", MovieTitle: "A Local Short", MovieYear: 2024, StartsAt: start.Add(time.Hour)},
		{MovieTitle: "No theater", StartsAt: start},
	}
}

func TestSyncManagerRun(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	seedMovie(t, db, "m1", "casablanca", "Casablanca", 1942)
	mm := business.NewMovieManager(db, nil, nil, cache.NewMemory(), time.Minute)
	start := time.Now().Add(time.Hour).Truncate(time.Minute)
	sm := business.NewSyncManager(db, &fakeFeed{entries: feedEntries(start)}, mm)

	status, err := sm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStateNever, status.State)
	assert.Empty(t, status.Recent)

	report, err := sm.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Entries)
	assert.Equal(t, 3, report.Showtimes)
	assert.Equal(t, 2, report.TheatersCreated)
	assert.Equal(t, 1, report.MoviesCreated)
	assert.Equal(t, 1, report.Skipped)

	theater, err := db.GetTheaterBySlug(ctx, "cinema-city-glilot")
	require.NoError(t, err)
	assert.Equal(t, "סינמה סיטי גלילות", theater.NameHe)

	showtimes, err := db.GetShowtimesForTheater(ctx, theater.ID, start.Add(-time.Minute), start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, showtimes, 2)
	assert.Equal(t, "m1", showtimes[0].MovieID)
	assert.Equal(t, "2D", showtimes[0].Format)

	// A second run updates the same rows
	report, err = sm.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TheatersCreated)
	assert.Zero(t, report.MoviesCreated)
	all, err := db.GetShowtimes(ctx, start.Add(-time.Minute), start.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Len(t, all, 3)

	status, err = sm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStateSuccess, status.State)
	assert.Equal(t, "Sync finished", status.LastMessage)
	assert.Equal(t, 4, status.Counts[model.LogLevelInfo])
	assert.Equal(t, "24h", status.Window)
	require.NotNil(t, status.LastRunAt)
}

func TestSyncManagerFailure(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	mm := business.NewMovieManager(db, nil, nil, nil, time.Minute)
	sm := business.NewSyncManager(db, &fakeFeed{err: errors.New("feed is down")}, mm)

	_, err := sm.Run(ctx)
	require.Error(t, err)

	status, err := sm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStateError, status.State)
	assert.Contains(t, status.LastMessage, "feed is down")
	assert.Equal(t, 1, status.Counts[model.LogLevelError])
	assert.Equal(t, 1, status.Counts[model.LogLevelInfo])
}

func TestSyncManagerSingleFlight(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	mm := business.NewMovieManager(db, nil, nil, nil, time.Minute)
	feed := &fakeFeed{block: make(chan struct{})}
	sm := business.NewSyncManager(db, feed, mm)

	done := make(chan error)
	go func() {
		_, err := sm.Run(ctx)
		done <- err
	}()
	require.Eventually(t, sm.Running, time.Second, 5*time.Millisecond)

	_, err := sm.Run(ctx)
	assert.ErrorIs(t, err, model.ErrSyncInProgress)

	status, err := sm.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SyncStateRunning, status.State)

	close(feed.block)
	require.NoError(t, <-done)
	assert.False(t, sm.Running())
}

func TestSyncManagerLoopInterval(t *testing.T) {
	db := newStore(t)
	mm := business.NewMovieManager(db, nil, nil, nil, time.Minute)
	feed := &fakeFeed{entries: feedEntries(time.Now())}
	sm := business.NewSyncManager(db, feed, mm)

	for _, interval := range []time.Duration{0, -time.Hour} {
		assert.NotPanics(t, func() { sm.Loop(context.Background(), interval) })
	}
	status, err := sm.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.SyncStateNever, status.State)
}

func TestShowtimeID(t *testing.T) {
	at := time.Date(2024, 5, 1, 20, 30, 0, 0, time.UTC)
	id := business.ShowtimeID("t1", "m1", at)
	assert.Equal(t, id, business.ShowtimeID("t1", "m1", at.In(time.FixedZone("IDT", 3*60*60))))
	assert.NotEqual(t, id, business.ShowtimeID("t1", "m1", at.Add(time.Minute)))
	assert.NotEqual(t, id, business.ShowtimeID("t2", "m1", at))
}
