package business_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/infrastructure"
	"github.com/Agurato/kolnoa/internal/model"
)

func newStore(t *testing.T) *infrastructure.SQLDB {
	t.Helper()
	db, err := infrastructure.NewSQLDB(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedMovie(t *testing.T, db *infrastructure.SQLDB, id, slug, title string, year int) *model.Movie {
	t.Helper()
	movie := &model.Movie{
		ID:        id,
		Slug:      slug,
		TitleEn:   title,
		Year:      year,
		UpdatedAt: time.Now(),
	}
	require.NoError(t, db.UpsertMovie(context.Background(), movie))
	return movie
}

func seedProfile(t *testing.T, db *infrastructure.SQLDB, id, username string) *model.Profile {
	t.Helper()
	profile := &model.Profile{ID: id, Username: username, PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, db.CreateProfile(context.Background(), profile))
	return profile
}

// fakeMetadata serves TMDB answers from memory
type fakeMetadata struct {
	movies map[int64]model.Movie
	actors map[int64]model.Actor
	search map[string]int64
	calls  int
}

func (f *fakeMetadata) SearchMovie(title string, _ int) (int64, error) {
	if id, ok := f.search[title]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("%s: %w", title, infrastructure.ErrMovieNotFound)
}

func (f *fakeMetadata) GetMovieDetails(tmdbID int64) (*model.Movie, error) {
	f.calls++
	movie, ok := f.movies[tmdbID]
	if !ok {
		return nil, infrastructure.ErrMovieNotFound
	}
	return &movie, nil
}

func (f *fakeMetadata) GetActorDetails(tmdbID int64) (*model.Actor, error) {
	actor, ok := f.actors[tmdbID]
	if !ok {
		return nil, fmt.Errorf("person %d: %w", tmdbID, model.ErrNotFound)
	}
	return &actor, nil
}

func (f *fakeMetadata) GetTMDBIDFromLink(inputURL string) (int64, error) {
	return infrastructure.MetadataWrapper{}.GetTMDBIDFromLink(inputURL)
}

func newFakeMetadata() *fakeMetadata {
	return &fakeMetadata{
		movies: map[int64]model.Movie{
			550: {
				TMDBID:    550,
				TitleEn:   "Fight Club",
				TitleHe:   "מועדון קרב",
				Year:      1999,
				Genres:    []string{"Drama"},
				Countries: []string{"US", "DE"},
				Characters: []model.Character{
					{ActorTMDBID: 287, CharacterName: "Tyler Durden", Order: 1},
					{ActorTMDBID: 819, CharacterName: "The Narrator", Order: 0},
				},
			},
			1817: {
				TMDBID:     1817,
				TitleEn:    "Phone Booth",
				Year:       2002,
				Genres:     []string{"Thriller"},
				Countries:  []string{"US"},
				Characters: []model.Character{},
			},
			9999: {
				TMDBID:     9999,
				TitleEn:    "Fight Club",
				Year:       2010,
				Characters: []model.Character{},
			},
		},
		actors: map[int64]model.Actor{
			287: {TMDBID: 287, NameEn: "Brad Pitt", NameHe: "בראד פיט"},
			819: {TMDBID: 819, NameEn: "Edward Norton"},
		},
		search: map[string]int64{
			"Phone Booth": 1817,
		},
	}
}

// fakeFeed returns fixed entries
type fakeFeed struct {
	entries []model.FeedShowtime
	err     error
	block   chan struct{}
}

func (f *fakeFeed) FetchShowtimes(ctx context.Context) ([]model.FeedShowtime, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.entries, f.err
}
