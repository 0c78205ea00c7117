package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Agurato/kolnoa/internal/model"
	"github.com/Agurato/kolnoa/internal/utilities"
)

const (
	feedMaxTries  = 4
	feedBaseDelay = 500 * time.Millisecond
)

// FeedClient downloads the movieshows feed
type FeedClient struct {
	url        string
	httpClient *http.Client
	maxTries   uint
	baseDelay  time.Duration
}

func NewFeedClient(url string) *FeedClient {
	return &FeedClient{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxTries:   feedMaxTries,
		baseDelay:  feedBaseDelay,
	}
}

// WithRetry overrides the retry policy of the client
func (fc *FeedClient) WithRetry(maxTries uint, baseDelay time.Duration) *FeedClient {
	fc.maxTries = maxTries
	fc.baseDelay = baseDelay
	return fc
}

// FetchShowtimes downloads the feed, retrying on network errors and 5xx responses.
// The feed is either a JSON array of showtimes or an object with a "showtimes" array.
func (fc *FeedClient) FetchShowtimes(ctx context.Context) ([]model.FeedShowtime, error) {
	if fc.url == "" {
		return nil, model.ErrFeedDisabled
	}
	return utilities.FetchWithRetry(ctx, fc.fetch, fc.maxTries, fc.baseDelay)
}

func (fc *FeedClient) fetch(ctx context.Context) ([]model.FeedShowtime, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fc.url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("movieshows feed answered %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("movieshows feed answered %s", resp.Status))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode movieshows feed: %w", err))
	}
	var showtimes []model.FeedShowtime
	if err := json.Unmarshal(raw, &showtimes); err == nil {
		return showtimes, nil
	}
	var wrapped struct {
		Showtimes []model.FeedShowtime `json:"showtimes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode movieshows feed: %w", err))
	}
	return wrapped.Showtimes, nil
}
