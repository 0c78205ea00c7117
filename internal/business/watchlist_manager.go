package business

import (
	"context"
	"fmt"
	"time"

	"github.com/Agurato/kolnoa/internal/model"
)

type WatchlistStorer interface {
	GetMovieByID(ctx context.Context, id string) (*model.Movie, error)

	AddToWatchlist(ctx context.Context, userID, movieID string, at time.Time) error
	RemoveFromWatchlist(ctx context.Context, userID, movieID string) error
	IsInWatchlist(ctx context.Context, userID, movieID string) (bool, error)
	GetWatchlist(ctx context.Context, userID string) ([]model.Movie, error)
}

type WatchlistManager struct {
	WatchlistStorer
	now func() time.Time
}

func NewWatchlistManager(ws WatchlistStorer) *WatchlistManager {
	return &WatchlistManager{
		WatchlistStorer: ws,
		now:             time.Now,
	}
}

// Add saves a movie in the watchlist of a user. Adding it twice is a no-op.
func (wm WatchlistManager) Add(ctx context.Context, userID, movieID string) error {
	if movieID == "" {
		return fmt.Errorf("movieId is required: %w", model.ErrInvalidInput)
	}
	if _, err := wm.WatchlistStorer.GetMovieByID(ctx, movieID); err != nil {
		return fmt.Errorf("movie %s: %w", movieID, err)
	}
	return wm.WatchlistStorer.AddToWatchlist(ctx, userID, movieID, wm.now())
}

// Remove takes a movie out of the watchlist of a user. Removing a missing movie is a no-op.
func (wm WatchlistManager) Remove(ctx context.Context, userID, movieID string) error {
	if movieID == "" {
		return fmt.Errorf("movieId is required: %w", model.ErrInvalidInput)
	}
	return wm.WatchlistStorer.RemoveFromWatchlist(ctx, userID, movieID)
}

// Contains reports whether a movie is in the watchlist of a user.
// An anonymous user (empty userID) has an empty watchlist.
func (wm WatchlistManager) Contains(ctx context.Context, userID, movieID string) (bool, error) {
	if userID == "" || movieID == "" {
		return false, nil
	}
	return wm.WatchlistStorer.IsInWatchlist(ctx, userID, movieID)
}

// List returns the movies saved by a user, most recently added first
func (wm WatchlistManager) List(ctx context.Context, userID string) ([]model.Movie, error) {
	return wm.WatchlistStorer.GetWatchlist(ctx, userID)
}
