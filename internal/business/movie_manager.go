package business

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/utilities"
)

const (
	moviesCacheKey     = "movies:all"
	movieSlugCachePref = "movies:slug:"
	// Number of billed actors fetched from TMDB when a movie is imported
	importedCastSize = 15
)

type MovieStorer interface {
	GetMovies(ctx context.Context) ([]model.Movie, error)
	GetMovieByID(ctx context.Context, id string) (*model.Movie, error)
	GetMovieBySlug(ctx context.Context, slug string) (*model.Movie, error)
	GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error)
	UpsertMovie(ctx context.Context, movie *model.Movie) error
	GetMovieCast(ctx context.Context, movieID string) ([]model.CastMember, error)

	GetShowtimesForMovie(ctx context.Context, movieID string, from, to time.Time) ([]model.Showtime, error)
	GetTheaterByID(ctx context.Context, id string) (*model.Theater, error)

	GetActorByTMDBID(ctx context.Context, tmdbID int64) (*model.Actor, error)
	GetActorBySlug(ctx context.Context, slug string) (*model.Actor, error)
	UpsertActor(ctx context.Context, actor *model.Actor) error
}

type MovieMetadataGetter interface {
	SearchMovie(title string, year int) (int64, error)
	GetMovieDetails(tmdbID int64) (*model.Movie, error)
	GetActorDetails(tmdbID int64) (*model.Actor, error)
	GetTMDBIDFromLink(inputURL string) (int64, error)
}

// MovieFilterer is notified of every movie added to the catalog
type MovieFilterer interface {
	AddMovie(movie *model.Movie)
}

type MovieManager struct {
	MovieStorer
	MovieMetadataGetter
	MovieFilterer

	cache    cache.Store
	cacheTTL time.Duration
	now      func() time.Time
}

// NewMovieManager creates a MovieManager. mmg may be nil when no TMDB key is configured.
func NewMovieManager(ms MovieStorer, mmg MovieMetadataGetter, mf MovieFilterer, store cache.Store, cacheTTL time.Duration) *MovieManager {
	return &MovieManager{
		MovieStorer:         ms,
		MovieMetadataGetter: mmg,
		MovieFilterer:       mf,
		cache:               store,
		cacheTTL:            cacheTTL,
		now:                 time.Now,
	}
}

// GetMovies returns every movie of the catalog, most popular first
func (mm MovieManager) GetMovies(ctx context.Context) ([]model.Movie, error) {
	return cache.Remember(ctx, mm.cache, moviesCacheKey, mm.cacheTTL, func() ([]model.Movie, error) {
		return mm.MovieStorer.GetMovies(ctx)
	})
}

// GetMovie returns a movie from its slug
func (mm MovieManager) GetMovie(ctx context.Context, slug string) (*model.Movie, error) {
	movie, err := cache.Remember(ctx, mm.cache, movieSlugCachePref+slug, mm.cacheTTL, func() (*model.Movie, error) {
		return mm.MovieStorer.GetMovieBySlug(ctx, slug)
	})
	if err != nil {
		return nil, fmt.Errorf("could not get movie '%s': %w", slug, err)
	}
	return movie, nil
}

// GetMoviesFiltered returns the movies matching every non-empty filter
func (mm MovieManager) GetMoviesFiltered(ctx context.Context, years []int, genre, country, search string) ([]model.Movie, error) {
	movies, err := mm.GetMovies(ctx)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	return lo.Filter(movies, func(m model.Movie, _ int) bool {
		if len(years) > 0 && !slices.Contains(years, m.Year) {
			return false
		}
		if genre != "" && !lo.ContainsBy(m.Genres, func(g string) bool { return strings.EqualFold(g, genre) }) {
			return false
		}
		if country != "" && !lo.ContainsBy(m.Countries, func(c string) bool { return strings.EqualFold(c, country) }) {
			return false
		}
		return search == "" || MatchesSearch(search, m.SearchableTitles()...)
	}), nil
}

// MatchesSearch reports whether a lowercase query is contained in, or close to, one of the values
func MatchesSearch(query string, values ...string) bool {
	tolerance := max(len([]rune(query))/4, 1)
	for _, value := range values {
		value = strings.ToLower(value)
		if strings.Contains(value, query) {
			return true
		}
		if levenshtein.ComputeDistance(query, value) <= tolerance {
			return true
		}
		for _, word := range strings.Fields(value) {
			if len([]rune(query)) > 3 && levenshtein.ComputeDistance(query, word) <= tolerance {
				return true
			}
		}
	}
	return false
}

// GetMovieShowtimes returns the showtimes of the next days, grouped by theater
func (mm MovieManager) GetMovieShowtimes(ctx context.Context, movieID string, days int) ([]model.TheaterShowtimes, error) {
	from := mm.now()
	showtimes, err := mm.MovieStorer.GetShowtimesForMovie(ctx, movieID, from, from.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	var (
		grouped []model.TheaterShowtimes
		index   = make(map[string]int)
	)
	for _, st := range showtimes {
		i, ok := index[st.TheaterID]
		if !ok {
			theater, err := mm.MovieStorer.GetTheaterByID(ctx, st.TheaterID)
			if err != nil {
				log.Error().Err(err).Str("theaterID", st.TheaterID).Msg("Showtime references an unknown theater")
				continue
			}
			grouped = append(grouped, model.TheaterShowtimes{Theater: *theater})
			i = len(grouped) - 1
			index[st.TheaterID] = i
		}
		grouped[i].Showtimes = append(grouped[i].Showtimes, st)
	}
	return grouped, nil
}

// ImportMovieFromLink adds or refreshes the movie a TMDB or IMDb link points to
func (mm MovieManager) ImportMovieFromLink(ctx context.Context, link string) (*model.Movie, error) {
	if mm.MovieMetadataGetter == nil {
		return nil, fmt.Errorf("import from %s: %w", link, model.ErrUnsupported)
	}
	tmdbID, err := mm.MovieMetadataGetter.GetTMDBIDFromLink(link)
	if err != nil {
		return nil, fmt.Errorf("import from %s: %w", link, err)
	}
	return mm.ImportMovie(ctx, tmdbID)
}

// ImportMovie fetches a movie and its billed cast from TMDB and stores them
func (mm MovieManager) ImportMovie(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	if mm.MovieMetadataGetter == nil {
		return nil, fmt.Errorf("import movie %d: %w", tmdbID, model.ErrUnsupported)
	}
	movie, err := mm.MovieMetadataGetter.GetMovieDetails(tmdbID)
	if err != nil {
		return nil, fmt.Errorf("import movie %d: %w", tmdbID, err)
	}

	existing, err := mm.MovieStorer.GetMovieByTMDBID(ctx, tmdbID)
	switch {
	case err == nil:
		movie.ID = existing.ID
		movie.Slug = existing.Slug
		if movie.TrailerKey == "" {
			movie.TrailerKey = existing.TrailerKey
		}
	case errors.Is(err, model.ErrNotFound):
		movie.ID = uuid.NewString()
		if movie.Slug, err = mm.uniqueMovieSlug(ctx, movie.TitleEn, movie.Year); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	movie.UpdatedAt = mm.now()

	for _, character := range lo.Slice(movie.Characters, 0, importedCastSize) {
		if err := mm.importActor(ctx, character.ActorTMDBID); err != nil {
			log.Error().Err(err).Int64("tmdbID", character.ActorTMDBID).Msg("Could not import actor")
		}
	}

	if err := mm.MovieStorer.UpsertMovie(ctx, movie); err != nil {
		return nil, err
	}
	mm.forget(ctx, movie.Slug)
	if mm.MovieFilterer != nil {
		mm.MovieFilterer.AddMovie(movie)
	}
	log.Info().Int64("tmdbID", tmdbID).Str("slug", movie.Slug).Msg("Movie imported")
	return movie, nil
}

func (mm MovieManager) importActor(ctx context.Context, tmdbID int64) error {
	if _, err := mm.MovieStorer.GetActorByTMDBID(ctx, tmdbID); err == nil {
		return nil
	} else if !errors.Is(err, model.ErrNotFound) {
		return err
	}
	actor, err := mm.MovieMetadataGetter.GetActorDetails(tmdbID)
	if err != nil {
		return err
	}
	actor.ID = uuid.NewString()
	actor.Slug, err = uniqueSlug(actor.NameEn, strconv.FormatInt(tmdbID, 10), func(slug string) (bool, error) {
		_, err := mm.MovieStorer.GetActorBySlug(ctx, slug)
		return isFree(err)
	})
	if err != nil {
		return err
	}
	return mm.MovieStorer.UpsertActor(ctx, actor)
}

// ResolveFeedMovie finds the movie a feed entry refers to: by TMDB ID, then by title among the
// known movies, then through a TMDB search. As a last resort a movie is created from the entry.
func (mm MovieManager) ResolveFeedMovie(ctx context.Context, entry model.FeedShowtime) (movie *model.Movie, created bool, err error) {
	if entry.TMDBID > 0 {
		if movie, err := mm.MovieStorer.GetMovieByTMDBID(ctx, entry.TMDBID); err == nil {
			return movie, false, nil
		}
	}

	movies, err := mm.GetMovies(ctx)
	if err != nil {
		return nil, false, err
	}
	if movie := MatchTitle(movies, entry.MovieTitle, entry.MovieYear); movie != nil {
		return movie, false, nil
	}

	if mm.MovieMetadataGetter != nil {
		tmdbID := entry.TMDBID
		if tmdbID == 0 {
			tmdbID, err = mm.MovieMetadataGetter.SearchMovie(entry.MovieTitle, entry.MovieYear)
		}
		if err == nil {
			if movie, err := mm.ImportMovie(ctx, tmdbID); err == nil {
				return movie, true, nil
			}
		}
		log.Warn().Err(err).Str("title", entry.MovieTitle).Msg("Could not find feed movie on TMDB")
	}

	movie = &model.Movie{
		ID:         uuid.NewString(),
		TMDBID:     entry.TMDBID,
		TitleEn:    entry.MovieTitle,
		Year:       entry.MovieYear,
		TrailerKey: entry.TrailerKey,
		UpdatedAt:  mm.now(),
	}
	if movie.Slug, err = mm.uniqueMovieSlug(ctx, entry.MovieTitle, entry.MovieYear); err != nil {
		return nil, false, err
	}
	if err := mm.MovieStorer.UpsertMovie(ctx, movie); err != nil {
		return nil, false, err
	}
	mm.forget(ctx, movie.Slug)
	if mm.MovieFilterer != nil {
		mm.MovieFilterer.AddMovie(movie)
	}
	return movie, true, nil
}

// MatchTitle returns the movie whose title is the closest to title, if close enough.
// A known year must match.
func MatchTitle(movies []model.Movie, title string, year int) *model.Movie {
	title = strings.ToLower(strings.TrimSpace(title))
	if title == "" {
		return nil
	}
	var (
		best     *model.Movie
		bestDist = max(len([]rune(title))/5, 1) + 1
	)
	for i := range movies {
		m := &movies[i]
		if year != 0 && m.Year != 0 && m.Year != year {
			continue
		}
		for _, candidate := range m.SearchableTitles() {
			dist := levenshtein.ComputeDistance(title, strings.ToLower(candidate))
			if dist < bestDist {
				best, bestDist = m, dist
			}
		}
	}
	return best
}

func (mm MovieManager) uniqueMovieSlug(ctx context.Context, title string, year int) (string, error) {
	suffix := ""
	if year > 0 {
		suffix = strconv.Itoa(year)
	}
	return uniqueSlug(title, suffix, func(slug string) (bool, error) {
		_, err := mm.MovieStorer.GetMovieBySlug(ctx, slug)
		return isFree(err)
	})
}

// forget drops the cached listing and the cached movie page
func (mm MovieManager) forget(ctx context.Context, slug string) {
	if mm.cache == nil {
		return
	}
	mm.cache.Delete(ctx, moviesCacheKey)
	mm.cache.Delete(ctx, movieSlugCachePref+slug)
}

// InvalidateCache empties the catalog cache
func (mm MovieManager) InvalidateCache(ctx context.Context) {
	if mm.cache != nil {
		mm.cache.Clear(ctx)
	}
}

// uniqueSlug slugifies name and appends suffix, then a counter, until free reports the slug unused
func uniqueSlug(name, suffix string, free func(slug string) (bool, error)) (string, error) {
	base := utilities.Slugify(name)
	if base == "" {
		base = "untitled"
	}
	candidates := []string{base}
	if suffix != "" {
		candidates = append(candidates, base+"-"+suffix)
	}
	for _, slug := range candidates {
		ok, err := free(slug)
		if err != nil {
			return "", err
		}
		if ok {
			return slug, nil
		}
	}
	last := candidates[len(candidates)-1]
	for i := 2; ; i++ {
		slug := fmt.Sprintf("%s-%d", last, i)
		ok, err := free(slug)
		if err != nil {
			return "", err
		}
		if ok {
			return slug, nil
		}
	}
}

func isFree(err error) (bool, error) {
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, model.ErrNotFound):
		return true, nil
	default:
		return false, err
	}
}
