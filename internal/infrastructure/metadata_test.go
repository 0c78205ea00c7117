package infrastructure

import (
	"context"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mw *MetadataWrapper

func TestMain(m *testing.M) {
	godotenv.Load("../../.env")
	mw, _ = NewMetadataWrapper(os.Getenv("TMDB_API_KEY"))
	result := m.Run()
	os.Exit(result)
}

func TestParseIMDbRating(t *testing.T) {
	page := `<html><body><div data-testid="hero-rating-bar__aggregate-rating__score"><span>7.6</span><span>/10</span></div></body></html>`
	rating, err := parseIMDbRating(strings.NewReader(page))
	require.NoError(t, err)
	assert.Equal(t, "7.6", rating)

	_, err = parseIMDbRating(strings.NewReader("<html><body>nothing</body></html>"))
	assert.Error(t, err)
}

func TestGetTMDBIDFromTheMovieDB(t *testing.T) {
	for _, link := range []string{
		"https://www.themoviedb.org/movie/1817",
		"https://www.themoviedb.org/movie/1817/",
		"https://www.themoviedb.org/movie/1817-phone-booth",
	} {
		u, _ := url.Parse(link)
		tmdbID, err := getTMDBIDFromTheMovieDB(u)
		require.NoError(t, err, link)
		assert.Equal(t, int64(1817), tmdbID, link)
	}

	u, _ := url.Parse("https://www.themoviedb.org/tv/1817")
	_, err := getTMDBIDFromTheMovieDB(u)
	assert.Error(t, err)
}

func TestGetIMDbIDFromIMDb(t *testing.T) {
	u, _ := url.Parse("https://www.imdb.com/title/tt0183649/")
	imdbID, err := getIMDbIDFromIMDb(u)
	require.NoError(t, err)
	assert.Equal(t, "tt0183649", imdbID)

	_, err = MetadataWrapper{}.GetTMDBIDFromLink("https://letterboxd.com/film/phone-booth/")
	assert.Error(t, err)
}

func TestGetIMDbRating(t *testing.T) {
	if os.Getenv("TMDB_API_KEY") == "" {
		t.Skip("TMDB_API_KEY is not set")
	}
	value, err := strconv.ParseFloat(mw.GetIMDbRating(context.Background(), "tt0183649"), 32)
	assert.Nil(t, err)
	assert.Greater(t, value, float64(0))
	assert.LessOrEqual(t, value, float64(10))
}

func TestGetMovieDetails(t *testing.T) {
	if os.Getenv("TMDB_API_KEY") == "" {
		t.Skip("TMDB_API_KEY is not set")
	}
	movie, err := mw.GetMovieDetails(1817)
	require.NoError(t, err)
	assert.Equal(t, "Phone Booth", movie.TitleEn)
	assert.Equal(t, 2002, movie.Year)
	assert.NotEmpty(t, movie.Characters)
}
