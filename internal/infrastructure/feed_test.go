package infrastructure_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/infrastructure"
	"github.com/Agurato/kolnoa/internal/model"
)

func TestFeedClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky":
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.Write([]byte(`[{"theater":"Cinematheque","city":"Tel Aviv","movieTitle":"Past Lives","movieYear":2023,"startsAt":"2026-03-01T18:00:00Z"}]`))
		case "/wrapped":
			w.Write([]byte(`{"showtimes":[{"theater":"Lev","movieTitle":"Perfect Days","tmdbId":976893,"startsAt":"2026-03-01T20:30:00Z"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	ctx := context.Background()

	showtimes, err := infrastructure.NewFeedClient(srv.URL+"/flaky").WithRetry(4, time.Millisecond).FetchShowtimes(ctx)
	require.NoError(t, err)
	require.Len(t, showtimes, 1)
	assert.Equal(t, "Past Lives", showtimes[0].MovieTitle)
	assert.Equal(t, int32(3), calls.Load())

	showtimes, err = infrastructure.NewFeedClient(srv.URL+"/wrapped").FetchShowtimes(ctx)
	require.NoError(t, err)
	require.Len(t, showtimes, 1)
	assert.Equal(t, int64(976893), showtimes[0].TMDBID)

	_, err = infrastructure.NewFeedClient(srv.URL+"/missing").WithRetry(4, time.Millisecond).FetchShowtimes(ctx)
	assert.Error(t, err)

	_, err = infrastructure.NewFeedClient("").FetchShowtimes(ctx)
	assert.ErrorIs(t, err, model.ErrFeedDisabled)
}
