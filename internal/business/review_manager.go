package business

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Agurato/kolnoa/internal/model"
)

type ReviewStorer interface {
	GetMovieByID(ctx context.Context, id string) (*model.Movie, error)

	UpsertReview(ctx context.Context, review *model.Review) error
	DeleteReview(ctx context.Context, userID, movieID string) error
	GetReviewsForMovie(ctx context.Context, movieID string) ([]model.Review, error)
	GetReviewsByUser(ctx context.Context, userID string) ([]model.Review, error)
}

type ReviewManager struct {
	ReviewStorer
	now func() time.Time
}

func NewReviewManager(rs ReviewStorer) *ReviewManager {
	return &ReviewManager{
		ReviewStorer: rs,
		now:          time.Now,
	}
}

// Save creates or replaces the review of a user on a movie
func (rm ReviewManager) Save(ctx context.Context, profile *model.Profile, movieID string, rating int, body string) (*model.Review, error) {
	if movieID == "" {
		return nil, fmt.Errorf("movieId is required: %w", model.ErrInvalidInput)
	}
	if rating < model.MinRating || rating > model.MaxRating {
		return nil, fmt.Errorf("rating must be between %d and %d: %w", model.MinRating, model.MaxRating, model.ErrInvalidInput)
	}
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) > model.MaxReviewRunes {
		return nil, fmt.Errorf("review must be at most %d characters: %w", model.MaxReviewRunes, model.ErrInvalidInput)
	}
	if _, err := rm.ReviewStorer.GetMovieByID(ctx, movieID); err != nil {
		return nil, fmt.Errorf("movie %s: %w", movieID, err)
	}

	now := rm.now()
	review := &model.Review{
		ID:        uuid.NewString(),
		UserID:    profile.ID,
		Username:  profile.Username,
		MovieID:   movieID,
		Rating:    rating,
		Body:      body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := rm.ReviewStorer.UpsertReview(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Delete removes the review of a user on a movie
func (rm ReviewManager) Delete(ctx context.Context, userID, movieID string) error {
	if movieID == "" {
		return fmt.Errorf("movieId is required: %w", model.ErrInvalidInput)
	}
	return rm.ReviewStorer.DeleteReview(ctx, userID, movieID)
}

func (rm ReviewManager) ForMovie(ctx context.Context, movieID string) ([]model.Review, error) {
	return rm.ReviewStorer.GetReviewsForMovie(ctx, movieID)
}

func (rm ReviewManager) ByUser(ctx context.Context, userID string) ([]model.Review, error) {
	return rm.ReviewStorer.GetReviewsByUser(ctx, userID)
}

// AverageRating returns the mean rating of reviews, 0 when there are none
func AverageRating(reviews []model.Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	total := lo.SumBy(reviews, func(r model.Review) int { return r.Rating })
	return float64(total) / float64(len(reviews))
}
