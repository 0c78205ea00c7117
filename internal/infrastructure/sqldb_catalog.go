package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/Agurato/kolnoa/internal/model"
)

const movieColumns = `id, tmdb_id, imdb_id, slug, title_en, title_he, overview_en, overview_he,
	release_date, year, runtime, genres, countries, poster_path, backdrop_path, trailer_key,
	imdb_rating, popularity, updated_at`

func scanMovie(row rowScanner) (*model.Movie, error) {
	var (
		m         model.Movie
		genres    string
		countries string
		updatedAt int64
	)
	err := row.Scan(&m.ID, &m.TMDBID, &m.IMDbID, &m.Slug, &m.TitleEn, &m.TitleHe, &m.OverviewEn, &m.OverviewHe,
		&m.ReleaseDate, &m.Year, &m.Runtime, &genres, &countries, &m.PosterPath, &m.BackdropPath, &m.TrailerKey,
		&m.IMDbRating, &m.Popularity, &updatedAt)
	if err != nil {
		return nil, err
	}
	m.Genres = decodeList(genres)
	m.Countries = decodeList(countries)
	m.UpdatedAt = fromMillis(updatedAt)
	return &m, nil
}

func (s *SQLDB) queryMovies(ctx context.Context, query string, args ...any) ([]model.Movie, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []model.Movie
	for rows.Next() {
		m, err := scanMovie(rows)
		if err != nil {
			return nil, err
		}
		movies = append(movies, *m)
	}
	return movies, rows.Err()
}

// GetMovies returns every movie, most popular first
func (s *SQLDB) GetMovies(ctx context.Context) ([]model.Movie, error) {
	movies, err := s.queryMovies(ctx, "SELECT "+movieColumns+" FROM movies ORDER BY popularity DESC, title_en")
	if err != nil {
		return nil, fmt.Errorf("get movies: %w", err)
	}
	return movies, nil
}

func (s *SQLDB) getMovie(ctx context.Context, column string, value any) (*model.Movie, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+movieColumns+" FROM movies WHERE "+column+" = ?", value)
	m, err := scanMovie(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get movie by %s %v", column, value))
	}
	return m, nil
}

func (s *SQLDB) GetMovieByID(ctx context.Context, id string) (*model.Movie, error) {
	return s.getMovie(ctx, "id", id)
}

func (s *SQLDB) GetMovieBySlug(ctx context.Context, slug string) (*model.Movie, error) {
	return s.getMovie(ctx, "slug", slug)
}

func (s *SQLDB) GetMovieByTMDBID(ctx context.Context, tmdbID int64) (*model.Movie, error) {
	return s.getMovie(ctx, "tmdb_id", tmdbID)
}

// UpsertMovie inserts or updates a movie. A non-nil Characters slice replaces the stored cast.
func (s *SQLDB) UpsertMovie(ctx context.Context, m *model.Movie) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("upsert movie %s: %w", m.ID, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO movies (`+movieColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id, imdb_id = excluded.imdb_id, slug = excluded.slug,
			title_en = excluded.title_en, title_he = excluded.title_he,
			overview_en = excluded.overview_en, overview_he = excluded.overview_he,
			release_date = excluded.release_date, year = excluded.year, runtime = excluded.runtime,
			genres = excluded.genres, countries = excluded.countries,
			poster_path = excluded.poster_path, backdrop_path = excluded.backdrop_path,
			trailer_key = excluded.trailer_key, imdb_rating = excluded.imdb_rating,
			popularity = excluded.popularity, updated_at = excluded.updated_at`,
		m.ID, m.TMDBID, m.IMDbID, m.Slug, m.TitleEn, m.TitleHe, m.OverviewEn, m.OverviewHe,
		m.ReleaseDate, m.Year, m.Runtime, encodeList(m.Genres), encodeList(m.Countries), m.PosterPath,
		m.BackdropPath, m.TrailerKey, m.IMDbRating, m.Popularity, toMillis(m.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("upsert movie %s: %w", m.Slug, model.ErrAlreadyExists)
		}
		return fmt.Errorf("upsert movie %s: %w", m.ID, err)
	}

	if m.Characters != nil {
		if _, err := tx.ExecContext(ctx, "DELETE FROM movie_cast WHERE movie_id = ?", m.ID); err != nil {
			return fmt.Errorf("clear cast of movie %s: %w", m.ID, err)
		}
		for _, c := range m.Characters {
			_, err := tx.ExecContext(ctx, `INSERT INTO movie_cast (movie_id, actor_tmdb_id, character, ord)
				VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`, m.ID, c.ActorTMDBID, c.CharacterName, c.Order)
			if err != nil {
				return fmt.Errorf("add cast of movie %s: %w", m.ID, err)
			}
		}
	}
	return tx.Commit()
}

// GetMovieCast returns the known actors of a movie in billing order
func (s *SQLDB) GetMovieCast(ctx context.Context, movieID string) ([]model.CastMember, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+prefixed("a", actorColumns)+`, c.character
		FROM movie_cast c JOIN actors a ON a.tmdb_id = c.actor_tmdb_id
		WHERE c.movie_id = ? ORDER BY c.ord`, movieID)
	if err != nil {
		return nil, fmt.Errorf("get cast of movie %s: %w", movieID, err)
	}
	defer rows.Close()

	var cast []model.CastMember
	for rows.Next() {
		var (
			a         model.Actor
			character string
		)
		if err := rows.Scan(&a.ID, &a.TMDBID, &a.IMDbID, &a.Slug, &a.NameEn, &a.NameHe, &a.BioEn, &a.BioHe,
			&a.PhotoPath, &a.Birthday, &a.Deathday, &character); err != nil {
			return nil, fmt.Errorf("scan cast of movie %s: %w", movieID, err)
		}
		cast = append(cast, model.CastMember{Actor: a, CharacterName: character})
	}
	return cast, rows.Err()
}

// GetMoviesWithActor returns the movies an actor played in, newest first
func (s *SQLDB) GetMoviesWithActor(ctx context.Context, actorTMDBID int64) ([]model.Movie, error) {
	movies, err := s.queryMovies(ctx, `SELECT `+prefixed("m", movieColumns)+` FROM movies m
		WHERE m.id IN (SELECT movie_id FROM movie_cast WHERE actor_tmdb_id = ?)
		ORDER BY m.year DESC, m.title_en`, actorTMDBID)
	if err != nil {
		return nil, fmt.Errorf("get movies with actor %d: %w", actorTMDBID, err)
	}
	return movies, nil
}

const actorColumns = `id, tmdb_id, imdb_id, slug, name_en, name_he, bio_en, bio_he, photo_path, birthday, deathday`

func scanActor(row rowScanner) (*model.Actor, error) {
	var a model.Actor
	err := row.Scan(&a.ID, &a.TMDBID, &a.IMDbID, &a.Slug, &a.NameEn, &a.NameHe, &a.BioEn, &a.BioHe,
		&a.PhotoPath, &a.Birthday, &a.Deathday)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetActors returns every actor sorted by English name
func (s *SQLDB) GetActors(ctx context.Context) ([]model.Actor, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+actorColumns+" FROM actors ORDER BY name_en")
	if err != nil {
		return nil, fmt.Errorf("get actors: %w", err)
	}
	defer rows.Close()

	var actors []model.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		actors = append(actors, *a)
	}
	return actors, rows.Err()
}

func (s *SQLDB) GetActorBySlug(ctx context.Context, slug string) (*model.Actor, error) {
	a, err := scanActor(s.db.QueryRowContext(ctx, "SELECT "+actorColumns+" FROM actors WHERE slug = ?", slug))
	if err != nil {
		return nil, notFound(err, "get actor "+slug)
	}
	return a, nil
}

func (s *SQLDB) GetActorByTMDBID(ctx context.Context, tmdbID int64) (*model.Actor, error) {
	a, err := scanActor(s.db.QueryRowContext(ctx, "SELECT "+actorColumns+" FROM actors WHERE tmdb_id = ?", tmdbID))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("get actor with TMDB ID %d", tmdbID))
	}
	return a, nil
}

func (s *SQLDB) UpsertActor(ctx context.Context, a *model.Actor) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO actors (`+actorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			tmdb_id = excluded.tmdb_id, imdb_id = excluded.imdb_id, slug = excluded.slug,
			name_en = excluded.name_en, name_he = excluded.name_he, bio_en = excluded.bio_en,
			bio_he = excluded.bio_he, photo_path = excluded.photo_path,
			birthday = excluded.birthday, deathday = excluded.deathday`,
		a.ID, a.TMDBID, a.IMDbID, a.Slug, a.NameEn, a.NameHe, a.BioEn, a.BioHe, a.PhotoPath, a.Birthday, a.Deathday)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("upsert actor %s: %w", a.Slug, model.ErrAlreadyExists)
		}
		return fmt.Errorf("upsert actor %s: %w", a.ID, err)
	}
	return nil
}

const theaterColumns = `id, slug, name_en, name_he, address_en, address_he, city, country, website, lat, lng`

func scanTheater(row rowScanner) (*model.Theater, error) {
	var t model.Theater
	err := row.Scan(&t.ID, &t.Slug, &t.NameEn, &t.NameHe, &t.AddressEn, &t.AddressHe, &t.City, &t.Country,
		&t.Website, &t.Lat, &t.Lng)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTheaters returns every theater sorted by city then name
func (s *SQLDB) GetTheaters(ctx context.Context) ([]model.Theater, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+theaterColumns+" FROM theaters ORDER BY city, name_en")
	if err != nil {
		return nil, fmt.Errorf("get theaters: %w", err)
	}
	defer rows.Close()

	var theaters []model.Theater
	for rows.Next() {
		t, err := scanTheater(rows)
		if err != nil {
			return nil, fmt.Errorf("scan theater: %w", err)
		}
		theaters = append(theaters, *t)
	}
	return theaters, rows.Err()
}

func (s *SQLDB) GetTheaterByID(ctx context.Context, id string) (*model.Theater, error) {
	t, err := scanTheater(s.db.QueryRowContext(ctx, "SELECT "+theaterColumns+" FROM theaters WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get theater "+id)
	}
	return t, nil
}

func (s *SQLDB) GetTheaterBySlug(ctx context.Context, slug string) (*model.Theater, error) {
	t, err := scanTheater(s.db.QueryRowContext(ctx, "SELECT "+theaterColumns+" FROM theaters WHERE slug = ?", slug))
	if err != nil {
		return nil, notFound(err, "get theater "+slug)
	}
	return t, nil
}

func (s *SQLDB) UpsertTheater(ctx context.Context, t *model.Theater) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO theaters (`+theaterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug, name_en = excluded.name_en, name_he = excluded.name_he,
			address_en = excluded.address_en, address_he = excluded.address_he, city = excluded.city,
			country = excluded.country, website = excluded.website, lat = excluded.lat, lng = excluded.lng`,
		t.ID, t.Slug, t.NameEn, t.NameHe, t.AddressEn, t.AddressHe, t.City, t.Country, t.Website, t.Lat, t.Lng)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("upsert theater %s: %w", t.Slug, model.ErrAlreadyExists)
		}
		return fmt.Errorf("upsert theater %s: %w", t.ID, err)
	}
	return nil
}

const showtimeColumns = `id, movie_id, theater_id, starts_at, language, format, booking_url`

func (s *SQLDB) queryShowtimes(ctx context.Context, query string, args ...any) ([]model.Showtime, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var showtimes []model.Showtime
	for rows.Next() {
		var (
			st       model.Showtime
			startsAt int64
		)
		if err := rows.Scan(&st.ID, &st.MovieID, &st.TheaterID, &startsAt, &st.Language, &st.Format, &st.BookingURL); err != nil {
			return nil, err
		}
		st.StartsAt = fromMillis(startsAt)
		showtimes = append(showtimes, st)
	}
	return showtimes, rows.Err()
}

// GetShowtimes returns the showtimes starting in [from, to)
func (s *SQLDB) GetShowtimes(ctx context.Context, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := s.queryShowtimes(ctx, "SELECT "+showtimeColumns+` FROM showtimes
		WHERE starts_at >= ? AND starts_at < ? ORDER BY starts_at`, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("get showtimes: %w", err)
	}
	return showtimes, nil
}

func (s *SQLDB) GetShowtimesForMovie(ctx context.Context, movieID string, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := s.queryShowtimes(ctx, "SELECT "+showtimeColumns+` FROM showtimes
		WHERE movie_id = ? AND starts_at >= ? AND starts_at < ? ORDER BY starts_at`, movieID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("get showtimes of movie %s: %w", movieID, err)
	}
	return showtimes, nil
}

func (s *SQLDB) GetShowtimesForTheater(ctx context.Context, theaterID string, from, to time.Time) ([]model.Showtime, error) {
	showtimes, err := s.queryShowtimes(ctx, "SELECT "+showtimeColumns+` FROM showtimes
		WHERE theater_id = ? AND starts_at >= ? AND starts_at < ? ORDER BY starts_at`, theaterID, toMillis(from), toMillis(to))
	if err != nil {
		return nil, fmt.Errorf("get showtimes of theater %s: %w", theaterID, err)
	}
	return showtimes, nil
}

func (s *SQLDB) UpsertShowtime(ctx context.Context, st *model.Showtime) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO showtimes (`+showtimeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			movie_id = excluded.movie_id, theater_id = excluded.theater_id, starts_at = excluded.starts_at,
			language = excluded.language, format = excluded.format, booking_url = excluded.booking_url`,
		st.ID, st.MovieID, st.TheaterID, toMillis(st.StartsAt), st.Language, st.Format, st.BookingURL)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("upsert showtime %s: %w", st.ID, model.ErrNotFound)
		}
		return fmt.Errorf("upsert showtime %s: %w", st.ID, err)
	}
	return nil
}

// DeleteShowtimesBefore removes the showtimes that started before t
func (s *SQLDB) DeleteShowtimesBefore(ctx context.Context, t time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM showtimes WHERE starts_at < ?", toMillis(t))
	if err != nil {
		return 0, fmt.Errorf("delete old showtimes: %w", err)
	}
	return res.RowsAffected()
}
