package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/agnivade/levenshtein"
	tmdb "github.com/cyruzin/golang-tmdb"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
)

const (
	tmdbLanguageEn = "en-US"
	tmdbLanguageHe = "he-IL"
	imdbUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/111.0.0.0 Safari/537.36"
)

var ErrMovieNotFound = errors.New("movie not found on TMDB")

type MetadataWrapper struct {
	client     *tmdb.Client
	httpClient *http.Client
}

// NewMetadataWrapper initializes a MetadataWrapper
func NewMetadataWrapper(tmdbAPIKey string) (*MetadataWrapper, error) {
	client, err := tmdb.Init(tmdbAPIKey)
	if err != nil {
		return nil, err
	}
	return &MetadataWrapper{
		client:     client,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// SearchMovie returns the TMDB ID of the most popular result whose title is close to the searched one
func (mw MetadataWrapper) SearchMovie(title string, year int) (int64, error) {
	urlOptions := map[string]string{"language": tmdbLanguageEn}
	if year != 0 {
		urlOptions["year"] = strconv.Itoa(year)
	}
	res, err := mw.client.GetSearchMovies(title, urlOptions)
	if err != nil {
		return 0, err
	}
	if len(res.Results) == 0 {
		return 0, fmt.Errorf("%s: %w", title, ErrMovieNotFound)
	}

	var (
		tmdbID      int64
		mostPopular = float32(-1)
		lowerTitle  = strings.ToLower(title)
	)
	for _, r := range res.Results {
		// Levenshtein distance so that the title corresponds at least a little bit
		similar := levenshtein.ComputeDistance(lowerTitle, strings.ToLower(r.Title)) <= len([]rune(title))/3 ||
			levenshtein.ComputeDistance(lowerTitle, strings.ToLower(r.OriginalTitle)) <= len([]rune(title))/3
		if (similar || mostPopular < 0) && r.Popularity > mostPopular {
			tmdbID = r.ID
			mostPopular = r.Popularity
		}
	}
	return tmdbID, nil
}

// GetMovieDetails fetches a movie in English and Hebrew, with its cast and trailer
func (mw MetadataWrapper) GetMovieDetails(tmdbID int64) (*model.Movie, error) {
	details, err := mw.client.GetMovieDetails(int(tmdbID), map[string]string{"language": tmdbLanguageEn})
	if err != nil {
		return nil, fmt.Errorf("fetch details of movie %d: %w", tmdbID, err)
	}
	movie := &model.Movie{
		TMDBID:       tmdbID,
		IMDbID:       details.IMDbID,
		TitleEn:      details.Title,
		OverviewEn:   details.Overview,
		ReleaseDate:  details.ReleaseDate,
		Runtime:      details.Runtime,
		PosterPath:   details.PosterPath,
		BackdropPath: details.BackdropPath,
		Popularity:   float64(details.Popularity),
		Characters:   []model.Character{},
	}
	if len(details.ReleaseDate) >= 4 {
		movie.Year, _ = strconv.Atoi(details.ReleaseDate[:4])
	}
	for _, genre := range details.Genres {
		movie.Genres = append(movie.Genres, genre.Name)
	}
	for _, country := range details.ProductionCountries {
		movie.Countries = append(movie.Countries, country.Iso3166_1)
	}

	detailsHe, err := mw.client.GetMovieDetails(int(tmdbID), map[string]string{"language": tmdbLanguageHe})
	if err != nil {
		log.Error().Err(err).Int64("tmdbID", tmdbID).Msg("Unable to fetch Hebrew film details from TMDB")
	} else {
		movie.TitleHe = detailsHe.Title
		movie.OverviewHe = detailsHe.Overview
	}

	credits, err := mw.client.GetMovieCredits(int(tmdbID), nil)
	if err != nil {
		log.Error().Err(err).Int64("tmdbID", tmdbID).Msg("Unable to fetch film credits from TMDB")
	} else {
		for _, cast := range credits.Cast {
			movie.Characters = append(movie.Characters, model.Character{
				ActorTMDBID:   cast.ID,
				CharacterName: cast.Character,
				Order:         cast.Order,
			})
		}
	}

	videos, err := mw.client.GetMovieVideos(int(tmdbID), nil)
	if err != nil {
		log.Error().Err(err).Int64("tmdbID", tmdbID).Msg("Unable to fetch film videos from TMDB")
	} else {
		for _, video := range videos.Results {
			if video.Site == "YouTube" && video.Type == "Trailer" {
				movie.TrailerKey = video.Key
				break
			}
		}
	}

	if movie.IMDbID != "" {
		movie.IMDbRating = mw.GetIMDbRating(context.Background(), movie.IMDbID)
	}
	return movie, nil
}

// GetActorDetails fetches details about a person from TMDB, in English and Hebrew
func (mw MetadataWrapper) GetActorDetails(tmdbID int64) (*model.Actor, error) {
	details, err := mw.client.GetPersonDetails(int(tmdbID), map[string]string{"language": tmdbLanguageEn})
	if err != nil {
		return nil, fmt.Errorf("fetch details of person %d: %w", tmdbID, err)
	}
	actor := &model.Actor{
		TMDBID:    tmdbID,
		IMDbID:    details.IMDbID,
		NameEn:    details.Name,
		BioEn:     details.Biography,
		PhotoPath: details.ProfilePath,
		Birthday:  details.Birthday,
		Deathday:  details.Deathday,
	}
	detailsHe, err := mw.client.GetPersonDetails(int(tmdbID), map[string]string{"language": tmdbLanguageHe})
	if err != nil {
		log.Error().Err(err).Int64("tmdbID", tmdbID).Msg("Unable to fetch Hebrew person details from TMDB")
	} else {
		actor.BioHe = detailsHe.Biography
		if detailsHe.Name != details.Name {
			actor.NameHe = detailsHe.Name
		}
	}
	return actor, nil
}

// GetIMDbRating fetches the rating of a title from its IMDb page
func (mw MetadataWrapper) GetIMDbRating(ctx context.Context, imdbID string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("https://www.imdb.com/title/%s/", imdbID), nil)
	if err != nil {
		return ""
	}
	req.Header.Add("user-agent", imdbUserAgent)
	resp, err := mw.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("imdb_id", imdbID).Msg("Cannot fetch rating from IMDb")
		return ""
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		log.Error().Str("imdb_id", imdbID).Int("status", resp.StatusCode).Msg("Cannot fetch rating from IMDb")
		return ""
	}
	rating, err := parseIMDbRating(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("imdb_id", imdbID).Msg("Cannot fetch rating from IMDb")
		return ""
	}
	return rating
}

func parseIMDbRating(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	rating := strings.TrimSpace(doc.Find(`[data-testid="hero-rating-bar__aggregate-rating__score"] span`).First().Text())
	if _, err := strconv.ParseFloat(rating, 64); err != nil {
		return "", fmt.Errorf("no rating in page: %q", rating)
	}
	return rating, nil
}

// GetTMDBIDFromLink returns the TMDB ID from a TMDB or IMDb URL
func (mw MetadataWrapper) GetTMDBIDFromLink(inputURL string) (int64, error) {
	urlParsed, err := url.Parse(inputURL)
	if err != nil {
		return 0, err
	}
	switch strings.TrimPrefix(urlParsed.Host, "www.") {
	case "themoviedb.org":
		return getTMDBIDFromTheMovieDB(urlParsed)
	case "imdb.com":
		imdbID, err := getIMDbIDFromIMDb(urlParsed)
		if err != nil {
			return 0, err
		}
		return mw.getTMDBIDFromIMDbID(imdbID)
	default:
		return 0, fmt.Errorf("unsupported host %q: %w", urlParsed.Host, model.ErrInvalidInput)
	}
}

// getTMDBIDFromTheMovieDB parses https://www.themoviedb.org/movie/1817 and https://www.themoviedb.org/movie/1817-phone-booth
func getTMDBIDFromTheMovieDB(u *url.URL) (int64, error) {
	// TMDB movie url path should start with /movie/
	rest, ok := strings.CutPrefix(u.Path, "/movie/")
	if !ok {
		return 0, fmt.Errorf("could not parse TheMovieDB URL: %w", model.ErrInvalidInput)
	}
	rest = strings.Trim(rest, "/")
	idStr, _, _ := strings.Cut(rest, "-")
	tmdbID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse TheMovieDB URL: %w", model.ErrInvalidInput)
	}
	return tmdbID, nil
}

// getIMDbIDFromIMDb parses https://www.imdb.com/title/tt0183649/
func getIMDbIDFromIMDb(u *url.URL) (string, error) {
	rest, ok := strings.CutPrefix(u.Path, "/title/")
	if !ok {
		return "", fmt.Errorf("could not parse IMDb URL: %w", model.ErrInvalidInput)
	}
	imdbID, _, _ := strings.Cut(rest, "/")
	if !strings.HasPrefix(imdbID, "tt") {
		return "", fmt.Errorf("could not parse IMDb URL: %w", model.ErrInvalidInput)
	}
	return imdbID, nil
}

// getTMDBIDFromIMDbID retrieves the TMDB ID from an IMDb ID
func (mw MetadataWrapper) getTMDBIDFromIMDbID(imdbID string) (int64, error) {
	res, err := mw.client.GetFindByID(imdbID, map[string]string{"external_source": "imdb_id"})
	if err != nil {
		return 0, err
	}
	if len(res.MovieResults) == 0 {
		return 0, fmt.Errorf("%s: %w", imdbID, ErrMovieNotFound)
	}
	return res.MovieResults[0].ID, nil
}
