package business_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/model"
)

func TestImportMovie(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	filterer := business.NewFiltererWrapper()
	mm := business.NewMovieManager(db, newFakeMetadata(), filterer, cache.NewMemory(), time.Minute)

	movie, err := mm.ImportMovie(ctx, 550)
	require.NoError(t, err)
	assert.Equal(t, "fight-club", movie.Slug)
	assert.NotEmpty(t, movie.ID)

	cast, err := db.GetMovieCast(ctx, movie.ID)
	require.NoError(t, err)
	require.Len(t, cast, 2)
	assert.Equal(t, "Edward Norton", cast[0].Actor.NameEn)
	assert.Equal(t, "Tyler Durden", cast[1].CharacterName)

	actor, err := db.GetActorBySlug(ctx, "brad-pitt")
	require.NoError(t, err)
	assert.Equal(t, "בראד פיט", actor.NameHe)

	// Importing again keeps the ID and slug
	again, err := mm.ImportMovie(ctx, 550)
	require.NoError(t, err)
	assert.Equal(t, movie.ID, again.ID)
	assert.Equal(t, "fight-club", again.Slug)

	// Another movie with the same title gets the year appended
	other, err := mm.ImportMovie(ctx, 9999)
	require.NoError(t, err)
	assert.Equal(t, "fight-club-2010", other.Slug)

	assert.Equal(t, []string{"Drama"}, filterer.GetGenres())
	assert.ElementsMatch(t, []string{"US", "DE"}, filterer.GetCountries())

	_, err = mm.ImportMovie(ctx, 42)
	assert.Error(t, err)
}

func TestImportMovieFromLink(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	mm := business.NewMovieManager(db, newFakeMetadata(), nil, cache.NewMemory(), time.Minute)

	movie, err := mm.ImportMovieFromLink(ctx, "https://www.themoviedb.org/movie/1817-phone-booth")
	require.NoError(t, err)
	assert.Equal(t, "phone-booth", movie.Slug)

	_, err = mm.ImportMovieFromLink(ctx, "https://example.com/movie/1")
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	withoutTMDB := business.NewMovieManager(db, nil, nil, nil, time.Minute)
	_, err = withoutTMDB.ImportMovieFromLink(ctx, "https://www.themoviedb.org/movie/1817")
	assert.ErrorIs(t, err, model.ErrUnsupported)
}

func TestGetMoviesFiltered(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	mm := business.NewMovieManager(db, newFakeMetadata(), nil, cache.NewMemory(), time.Minute)
	_, err := mm.ImportMovie(ctx, 550)
	require.NoError(t, err)
	_, err = mm.ImportMovie(ctx, 1817)
	require.NoError(t, err)

	testCases := []struct {
		name    string
		years   []int
		genre   string
		country string
		search  string
		want    []string
	}{
		{name: "no filter", want: []string{"fight-club", "phone-booth"}},
		{name: "decade", years: []int{1990, 1991, 1992, 1993, 1994, 1995, 1996, 1997, 1998, 1999}, want: []string{"fight-club"}},
		{name: "genre", genre: "thriller", want: []string{"phone-booth"}},
		{name: "country", country: "de", want: []string{"fight-club"}},
		{name: "substring", search: "booth", want: []string{"phone-booth"}},
		{name: "hebrew", search: "מועדון", want: []string{"fight-club"}},
		{name: "typo", search: "fight clb", want: []string{"fight-club"}},
		{name: "nothing", search: "zzzzzz", want: []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			movies, err := mm.GetMoviesFiltered(ctx, tc.years, tc.genre, tc.country, tc.search)
			require.NoError(t, err)
			slugs := []string{}
			for _, m := range movies {
				slugs = append(slugs, m.Slug)
			}
			assert.ElementsMatch(t, tc.want, slugs)
		})
	}
}

func TestGetMovieCached(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	store := cache.NewMemory()
	mm := business.NewMovieManager(db, nil, nil, store, time.Minute)
	seedMovie(t, db, "m1", "casablanca", "Casablanca", 1942)

	movie, err := mm.GetMovie(ctx, "casablanca")
	require.NoError(t, err)
	assert.Equal(t, "Casablanca", movie.TitleEn)
	assert.Equal(t, 1, store.Len())

	_, err = mm.GetMovie(ctx, "unknown")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, 1, store.Len())

	mm.InvalidateCache(ctx)
	assert.Equal(t, 0, store.Len())
}

func TestMatchTitle(t *testing.T) {
	movies := []model.Movie{
		{ID: "1", TitleEn: "The Godfather", Year: 1972},
		{ID: "2", TitleEn: "The Godfather Part II", Year: 1974},
		{ID: "3", TitleEn: "Waltz with Bashir", TitleHe: "ואלס עם באשיר", Year: 2008},
	}

	match := business.MatchTitle(movies, "the godfather", 0)
	require.NotNil(t, match)
	assert.Equal(t, "1", match.ID)

	match = business.MatchTitle(movies, "The Godfathr", 1972)
	require.NotNil(t, match)
	assert.Equal(t, "1", match.ID)

	match = business.MatchTitle(movies, "ואלס עם באשיר", 2008)
	require.NotNil(t, match)
	assert.Equal(t, "3", match.ID)

	assert.Nil(t, business.MatchTitle(movies, "The Godfather", 1990))
	assert.Nil(t, business.MatchTitle(movies, "Jaws", 0))
	assert.Nil(t, business.MatchTitle(movies, "", 0))
}

func TestResolveFeedMovie(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	seedMovie(t, db, "m1", "casablanca", "Casablanca", 1942)

	mm := business.NewMovieManager(db, newFakeMetadata(), nil, cache.NewMemory(), time.Minute)

	movie, created, err := mm.ResolveFeedMovie(ctx, model.FeedShowtime{MovieTitle: "casablanca", MovieYear: 1942})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "m1", movie.ID)

	movie, created, err = mm.ResolveFeedMovie(ctx, model.FeedShowtime{MovieTitle: "Phone Booth"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(1817), movie.TMDBID)

	movie, created, err = mm.ResolveFeedMovie(ctx, model.FeedShowtime{MovieTitle: "A Local Short", MovieYear: 2024, TrailerKey: "abc"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "a-local-short", movie.Slug)
	assert.Equal(t, "abc", movie.TrailerKey)

	// The created movie is found by title on the next lookup
	again, created, err := mm.ResolveFeedMovie(ctx, model.FeedShowtime{MovieTitle: "A Local Short", MovieYear: 2024})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, movie.ID, again.ID)
}

func TestGetMovieShowtimes(t *testing.T) {
	db := newStore(t)
	ctx := context.Background()
	movie := seedMovie(t, db, "m1", "casablanca", "Casablanca", 1942)
	require.NoError(t, db.UpsertTheater(ctx, &model.Theater{ID: "t1", Slug: "lev", NameEn: "Lev"}))
	require.NoError(t, db.UpsertTheater(ctx, &model.Theater{ID: "t2", Slug: "rav-hen", NameEn: "Rav Hen"}))

	start := time.Now().Add(2 * time.Hour)
	for i, theaterID := range []string{"t1", "t2", "t1"} {
		require.NoError(t, db.UpsertShowtime(ctx, &model.Showtime{
			ID:        business.ShowtimeID(theaterID, movie.ID, start.Add(time.Duration(i)*time.Hour)),
			MovieID:   movie.ID,
			TheaterID: theaterID,
			StartsAt:  start.Add(time.Duration(i) * time.Hour),
		}))
	}
	// Past the requested window
	require.NoError(t, db.UpsertShowtime(ctx, &model.Showtime{ID: "late", MovieID: movie.ID, TheaterID: "t2", StartsAt: start.AddDate(0, 0, 10)}))

	mm := business.NewMovieManager(db, nil, nil, nil, time.Minute)
	grouped, err := mm.GetMovieShowtimes(ctx, movie.ID, 7)
	require.NoError(t, err)
	require.Len(t, grouped, 2)
	assert.Equal(t, "Lev", grouped[0].Theater.NameEn)
	assert.Len(t, grouped[0].Showtimes, 2)
	assert.Equal(t, "Rav Hen", grouped[1].Theater.NameEn)
	assert.Len(t, grouped[1].Showtimes, 1)
}

func TestMatchesSearch(t *testing.T) {
	assert.True(t, business.MatchesSearch("club", "Fight Club"))
	assert.True(t, business.MatchesSearch("amelie", "Amélie", "Amelie"))
	assert.True(t, business.MatchesSearch("godfater", "The Godfather"))
	assert.False(t, business.MatchesSearch("jaws", "The Godfather"))
}
