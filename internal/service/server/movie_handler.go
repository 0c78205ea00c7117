package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/model"
)

// Days of showtimes displayed on movie and theater pages
const scheduleDays = 7

type MovieManager interface {
	GetMovie(ctx context.Context, slug string) (*model.Movie, error)
	GetMoviesFiltered(ctx context.Context, years []int, genre, country, search string) ([]model.Movie, error)
	GetMovieCast(ctx context.Context, movieID string) ([]model.CastMember, error)
	GetMovieShowtimes(ctx context.Context, movieID string, days int) ([]model.TheaterShowtimes, error)
}

type MovieReviewLister interface {
	ForMovie(ctx context.Context, movieID string) ([]model.Review, error)
}

type WatchlistChecker interface {
	Contains(ctx context.Context, userID, movieID string) (bool, error)
}

type Filterer interface {
	ParseYearFilter(yearFilter string) (years []int, err error)
	GetCountryName(code string) string

	GetCountries() []string
	GetDecades() []model.Decade
	GetGenres() []string
}

type MovieHandler struct {
	MovieManager
	MovieReviewLister
	WatchlistChecker
	Filterer
	paginater *business.Paginater[model.Movie]
	main      *MainHandler
}

func NewMovieHandler(mm MovieManager, mrl MovieReviewLister, wc WatchlistChecker, f Filterer, mh *MainHandler, itemsPerPage int64) *MovieHandler {
	return &MovieHandler{
		MovieManager:      mm,
		MovieReviewLister: mrl,
		WatchlistChecker:  wc,
		Filterer:          f,
		paginater:         business.NewPaginater[model.Movie](itemsPerPage),
		main:              mh,
	}
}

// GETMovies displays the list of movies, filtered by year, genre, country and title
func (mh MovieHandler) GETMovies(c *gin.Context) {
	yearFilter := c.Query("year")
	genre := c.Query("genre")
	country := strings.ToUpper(c.Query("country"))
	search := strings.TrimSpace(c.Query("search"))
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		page = 1
	}

	years, err := mh.Filterer.ParseYearFilter(yearFilter)
	if err != nil {
		mh.main.Error404(c)
		return
	}

	movies, err := mh.MovieManager.GetMoviesFiltered(c.Request.Context(), years, genre, country, search)
	if err != nil {
		mh.main.Error500(c, err)
		return
	}
	total := len(movies)
	movies, pages := mh.paginater.GetPagination(page, movies)

	RenderHTML(c, http.StatusOK, "pages/movies.go.html", gin.H{
		"titleKey":          "movies.title",
		"movies":            movies,
		"total":             total,
		"filtererCountries": mh.Filterer.GetCountries(),
		"filtererDecades":   mh.Filterer.GetDecades(),
		"filtererGenres":    mh.Filterer.GetGenres(),
		"filterYear":        yearFilter,
		"filterGenre":       genre,
		"filterCountry":     country,
		"search":            search,
		"pages":             pages,
	})
}

// GETMovie displays a movie with its cast, upcoming showtimes and reviews
func (mh MovieHandler) GETMovie(c *gin.Context) {
	ctx := c.Request.Context()
	locale := currentLocale(c)

	movie, err := mh.MovieManager.GetMovie(ctx, c.Param("slug"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			mh.main.Error404(c)
			return
		}
		mh.main.Error500(c, err)
		return
	}

	cast, err := mh.MovieManager.GetMovieCast(ctx, movie.ID)
	if err != nil {
		mh.main.Error500(c, err)
		return
	}
	showtimes, err := mh.MovieManager.GetMovieShowtimes(ctx, movie.ID, scheduleDays)
	if err != nil {
		mh.main.Error500(c, err)
		return
	}
	reviews, err := mh.MovieReviewLister.ForMovie(ctx, movie.ID)
	if err != nil {
		mh.main.Error500(c, err)
		return
	}

	var (
		inWatchlist bool
		ownReview   *model.Review
	)
	if claims := currentUser(c); claims != nil {
		inWatchlist, err = mh.WatchlistChecker.Contains(ctx, claims.Subject, movie.ID)
		if err != nil {
			mh.main.Error500(c, err)
			return
		}
		for i := range reviews {
			if reviews[i].UserID == claims.Subject {
				ownReview = &reviews[i]
				break
			}
		}
	}

	title := movie.Title(locale)
	if movie.Year > 0 {
		title = fmt.Sprintf("%s (%d)", title, movie.Year)
	}
	RenderHTML(c, http.StatusOK, "pages/movie.go.html", gin.H{
		"title":       title,
		"movie":       movie,
		"cast":        cast,
		"showtimes":   showtimes,
		"reviews":     reviews,
		"ownReview":   ownReview,
		"average":     business.AverageRating(reviews),
		"inWatchlist": inWatchlist,
	})
}
