package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/Agurato/kolnoa/internal/model"
)

const profileColumns = `id, username, display_name, bio, avatar_url, password_hash, is_admin, preferred_locale, created_at`

func scanProfile(row rowScanner) (*model.Profile, error) {
	var (
		p         model.Profile
		isAdmin   int
		createdAt int64
	)
	err := row.Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &p.AvatarURL, &p.PasswordHash, &isAdmin,
		&p.PreferredLocale, &createdAt)
	if err != nil {
		return nil, err
	}
	p.IsAdmin = isAdmin != 0
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

// CreateProfile adds a user, failing with model.ErrAlreadyExists when the username is taken
func (s *SQLDB) CreateProfile(ctx context.Context, p *model.Profile) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO profiles (`+profileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Username, p.DisplayName, p.Bio, p.AvatarURL, p.PasswordHash, boolToInt(p.IsAdmin),
		p.PreferredLocale, toMillis(p.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create profile %s: %w", p.Username, model.ErrAlreadyExists)
		}
		return fmt.Errorf("create profile %s: %w", p.Username, err)
	}
	return nil
}

func (s *SQLDB) GetProfileByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get profile "+id)
	}
	return p, nil
}

// GetProfileByUsername looks a user up, ignoring case
func (s *SQLDB) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	p, err := scanProfile(s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE username = ?", username))
	if err != nil {
		return nil, notFound(err, "get profile "+username)
	}
	return p, nil
}

// IsUsernameAvailable returns true if the username (case insensitive) is not in use yet
func (s *SQLDB) IsUsernameAvailable(ctx context.Context, username string) (bool, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM profiles WHERE username = ?", username).Scan(&count); err != nil {
		return false, fmt.Errorf("check username %s: %w", username, err)
	}
	return count == 0, nil
}

// UpdateProfile saves the editable fields of a profile
func (s *SQLDB) UpdateProfile(ctx context.Context, p *model.Profile) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET display_name = ?, bio = ?, avatar_url = ?,
		is_admin = ?, preferred_locale = ? WHERE id = ?`,
		p.DisplayName, p.Bio, p.AvatarURL, boolToInt(p.IsAdmin), p.PreferredLocale, p.ID)
	if err != nil {
		return fmt.Errorf("update profile %s: %w", p.ID, err)
	}
	return expectOne(res, "update profile "+p.ID)
}

func (s *SQLDB) SetProfilePassword(ctx context.Context, id, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE profiles SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("set password of %s: %w", id, err)
	}
	return expectOne(res, "set password of "+id)
}

const reviewColumns = `r.id, r.user_id, p.username, r.movie_id, r.rating, r.body, r.created_at, r.updated_at`

func (s *SQLDB) queryReviews(ctx context.Context, where string, arg any) ([]model.Review, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reviewColumns+` FROM reviews r
		JOIN profiles p ON p.id = r.user_id WHERE `+where+` ORDER BY r.updated_at DESC`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []model.Review
	for rows.Next() {
		var (
			r                    model.Review
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.MovieID, &r.Rating, &r.Body, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = fromMillis(createdAt)
		r.UpdatedAt = fromMillis(updatedAt)
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

// UpsertReview stores the review of a user for a movie, replacing their previous one
func (s *SQLDB) UpsertReview(ctx context.Context, r *model.Review) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reviews (id, user_id, movie_id, rating, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, movie_id) DO UPDATE SET
			rating = excluded.rating, body = excluded.body, updated_at = excluded.updated_at`,
		r.ID, r.UserID, r.MovieID, r.Rating, r.Body, toMillis(r.CreatedAt), toMillis(r.UpdatedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("upsert review of %s: %w", r.MovieID, model.ErrNotFound)
		}
		return fmt.Errorf("upsert review of %s: %w", r.MovieID, err)
	}
	return nil
}

func (s *SQLDB) DeleteReview(ctx context.Context, userID, movieID string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM reviews WHERE user_id = ? AND movie_id = ?", userID, movieID)
	if err != nil {
		return fmt.Errorf("delete review of %s: %w", movieID, err)
	}
	return expectOne(res, "delete review of "+movieID)
}

func (s *SQLDB) GetReviewsForMovie(ctx context.Context, movieID string) ([]model.Review, error) {
	reviews, err := s.queryReviews(ctx, "r.movie_id = ?", movieID)
	if err != nil {
		return nil, fmt.Errorf("get reviews of movie %s: %w", movieID, err)
	}
	return reviews, nil
}

func (s *SQLDB) GetReviewsByUser(ctx context.Context, userID string) ([]model.Review, error) {
	reviews, err := s.queryReviews(ctx, "r.user_id = ?", userID)
	if err != nil {
		return nil, fmt.Errorf("get reviews of user %s: %w", userID, err)
	}
	return reviews, nil
}

// AddToWatchlist saves a movie for a user. Adding a movie twice is a no-op.
func (s *SQLDB) AddToWatchlist(ctx context.Context, userID, movieID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO watchlists (user_id, movie_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT (user_id, movie_id) DO NOTHING`, userID, movieID, toMillis(at))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("add %s to watchlist: %w", movieID, model.ErrNotFound)
		}
		return fmt.Errorf("add %s to watchlist: %w", movieID, err)
	}
	return nil
}

// RemoveFromWatchlist removes a movie from a user's watchlist. Removing a missing movie is a no-op.
func (s *SQLDB) RemoveFromWatchlist(ctx context.Context, userID, movieID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM watchlists WHERE user_id = ? AND movie_id = ?", userID, movieID); err != nil {
		return fmt.Errorf("remove %s from watchlist: %w", movieID, err)
	}
	return nil
}

func (s *SQLDB) IsInWatchlist(ctx context.Context, userID, movieID string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM watchlists WHERE user_id = ? AND movie_id = ?", userID, movieID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check watchlist for %s: %w", movieID, err)
	}
	return count > 0, nil
}

// GetWatchlist returns the movies saved by a user, most recently added first
func (s *SQLDB) GetWatchlist(ctx context.Context, userID string) ([]model.Movie, error) {
	movies, err := s.queryMovies(ctx, `SELECT `+prefixed("m", movieColumns)+` FROM watchlists w
		JOIN movies m ON m.id = w.movie_id WHERE w.user_id = ? ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get watchlist of %s: %w", userID, err)
	}
	return movies, nil
}
