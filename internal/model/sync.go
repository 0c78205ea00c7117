package model

import "time"

// FeedShowtime is one entry of the movieshows feed
type FeedShowtime struct {
	Theater    string    `json:"theater"`
	TheaterHe  string    `json:"theaterHe"`
	City       string    `json:"city"`
	MovieTitle string    `json:"movieTitle"`
	MovieYear  int       `json:"movieYear"`
	TMDBID     int64     `json:"tmdbId"`
	TrailerKey string    `json:"trailerKey"`
	StartsAt   time.Time `json:"startsAt"`
	Language   string    `json:"language"`
	Format     string    `json:"format"`
	BookingURL string    `json:"bookingUrl"`
}

// SyncReport sums up a movieshows sync run
type SyncReport struct {
	StartedAt       time.Time `json:"startedAt"`
	FinishedAt      time.Time `json:"finishedAt"`
	Entries         int       `json:"entries"`
	Showtimes       int       `json:"showtimes"`
	MoviesCreated   int       `json:"moviesCreated"`
	TheatersCreated int       `json:"theatersCreated"`
	Skipped         int       `json:"skipped"`
}

const (
	SyncStateNever   = "never"
	SyncStateRunning = "running"
	SyncStateSuccess = "success"
	SyncStateError   = "error"
)

// SyncStatus summarizes the recent log entries of the movieshows sync
type SyncStatus struct {
	State       string         `json:"state"`
	LastRunAt   *time.Time     `json:"lastRunAt,omitempty"`
	LastMessage string         `json:"lastMessage,omitempty"`
	Counts      map[string]int `json:"counts"`
	Window      string         `json:"window"`
	Recent      []LogEntry     `json:"recent"`
}
