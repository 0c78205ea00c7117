package model

import "time"

const (
	MinRating      = 1
	MaxRating      = 10
	MaxReviewRunes = 4000
)

// Review is a user's rating of a movie, with an optional text
type Review struct {
	ID        string    `bson:"_id" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	Username  string    `bson:"username" json:"username"`
	MovieID   string    `bson:"movie_id" json:"movieId"`
	Rating    int       `bson:"rating" json:"rating"`
	Body      string    `bson:"body" json:"body"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
