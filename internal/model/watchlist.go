package model

import "time"

// WatchlistEntry marks a movie saved by a user
type WatchlistEntry struct {
	UserID    string    `bson:"user_id" json:"userId"`
	MovieID   string    `bson:"movie_id" json:"movieId"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
}
