package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/model"
)

type WatchlistManager interface {
	Add(ctx context.Context, userID, movieID string) error
	Remove(ctx context.Context, userID, movieID string) error
	Contains(ctx context.Context, userID, movieID string) (bool, error)
	List(ctx context.Context, userID string) ([]model.Movie, error)
}

type TokenManager interface {
	Store(ctx context.Context, accessCode, value string, ttl time.Duration, expiresAt time.Time) (*model.Token, error)
	Check(ctx context.Context, accessCode string) (model.TokenStatus, error)
}

type ReviewManager interface {
	Save(ctx context.Context, profile *model.Profile, movieID string, rating int, body string) (*model.Review, error)
	Delete(ctx context.Context, userID, movieID string) error
	ForMovie(ctx context.Context, movieID string) ([]model.Review, error)
}

type LoginChecker interface {
	CheckLogin(ctx context.Context, username, password string) (*model.Profile, error)
}

type APIHandler struct {
	WatchlistManager
	TokenManager
	ReviewManager
	LoginChecker
	SessionIssuer
	sessionTTL time.Duration
}

func NewAPIHandler(wm WatchlistManager, tm TokenManager, rm ReviewManager, lc LoginChecker, sm SessionManager) *APIHandler {
	return &APIHandler{
		WatchlistManager: wm,
		TokenManager:     tm,
		ReviewManager:    rm,
		LoginChecker:     lc,
		SessionIssuer:    sm,
		sessionTTL:       sm.TTL(),
	}
}

type watchlistRequest struct {
	MovieID string `json:"movieId" form:"movieId"`
}

// bind reads the movie ID from the query string, then from the body
func (r *watchlistRequest) bind(c *gin.Context) string {
	if id := c.Query("movieId"); id != "" {
		return id
	}
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBind(r)
	}
	return strings.TrimSpace(r.MovieID)
}

// GETWatchlist tells whether a movie is in the watchlist of the user.
// Without movieId, it lists the movies of the watchlist. Anonymous users get an empty answer.
func (ah APIHandler) GETWatchlist(c *gin.Context) {
	claims := currentUser(c)
	movieID := c.Query("movieId")

	if movieID == "" {
		if claims == nil {
			c.JSON(http.StatusOK, gin.H{"inWatchlist": false, "movies": []model.Movie{}})
			return
		}
		movies, err := ah.WatchlistManager.List(c.Request.Context(), claims.Subject)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if movies == nil {
			movies = []model.Movie{}
		}
		c.JSON(http.StatusOK, gin.H{"movies": movies})
		return
	}

	if claims == nil {
		c.JSON(http.StatusOK, gin.H{"inWatchlist": false, "movieId": movieID})
		return
	}
	inWatchlist, err := ah.WatchlistManager.Contains(c.Request.Context(), claims.Subject, movieID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inWatchlist": inWatchlist, "movieId": movieID})
}

// POSTWatchlist adds a movie to the watchlist of the user
func (ah APIHandler) POSTWatchlist(c *gin.Context) {
	var req watchlistRequest
	movieID := req.bind(c)
	if movieID == "" {
		badRequest(c, "movieId is required")
		return
	}
	if err := ah.WatchlistManager.Add(c.Request.Context(), currentUser(c).Subject, movieID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inWatchlist": true, "movieId": movieID})
}

// DELETEWatchlist removes a movie from the watchlist of the user
func (ah APIHandler) DELETEWatchlist(c *gin.Context) {
	var req watchlistRequest
	movieID := req.bind(c)
	if movieID == "" {
		badRequest(c, "movieId is required")
		return
	}
	if err := ah.WatchlistManager.Remove(c.Request.Context(), currentUser(c).Subject, movieID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inWatchlist": false, "movieId": movieID})
}

// Longest ttl whose conversion to a time.Duration does not overflow
const maxTokenTTLSeconds = math.MaxInt64 / int64(time.Second)

type tokenRequest struct {
	AccessCode string    `json:"accessCode" binding:"required"`
	Token      string    `json:"token" binding:"required"`
	TTL        int64     `json:"ttl"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// GETToken checks the token stored under an access code
func (ah APIHandler) GETToken(c *gin.Context) {
	accessCode := c.Query("accessCode")
	if accessCode == "" {
		badRequest(c, "accessCode is required")
		return
	}
	status, err := ah.TokenManager.Check(c.Request.Context(), accessCode)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if status.Reason == model.TokenReasonNotFound {
		c.JSON(http.StatusNotFound, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// POSTToken stores a token under an access code. ttl is in seconds.
func (ah APIHandler) POSTToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "accessCode and token are required")
		return
	}
	if req.TTL > maxTokenTTLSeconds {
		badRequest(c, fmt.Sprintf("ttl must be at most %d seconds", maxTokenTTLSeconds))
		return
	}
	token, err := ah.TokenManager.Store(c.Request.Context(), req.AccessCode, req.Token, time.Duration(req.TTL)*time.Second, req.ExpiresAt)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"accessCode": token.AccessCode, "stored": true, "expiresAt": token.ExpiresAt})
}

type reviewRequest struct {
	MovieID string `json:"movieId" binding:"required"`
	Rating  int    `json:"rating" binding:"required"`
	Body    string `json:"body"`
}

// GETReviews lists the reviews of a movie with their average rating
func (ah APIHandler) GETReviews(c *gin.Context) {
	movieID := c.Query("movieId")
	if movieID == "" {
		badRequest(c, "movieId is required")
		return
	}
	reviews, err := ah.ReviewManager.ForMovie(c.Request.Context(), movieID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if reviews == nil {
		reviews = []model.Review{}
	}
	c.JSON(http.StatusOK, gin.H{
		"movieId": movieID,
		"reviews": reviews,
		"count":   len(reviews),
		"average": business.AverageRating(reviews),
	})
}

// POSTReview creates or replaces the review of the user on a movie
func (ah APIHandler) POSTReview(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "movieId and rating are required")
		return
	}
	review, err := ah.ReviewManager.Save(c.Request.Context(), claimsProfile(currentUser(c)), req.MovieID, req.Rating, req.Body)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// DELETEReview removes the review of the user on a movie
func (ah APIHandler) DELETEReview(c *gin.Context) {
	movieID := c.Query("movieId")
	if movieID == "" {
		badRequest(c, "movieId is required")
		return
	}
	if err := ah.ReviewManager.Delete(c.Request.Context(), currentUser(c).Subject, movieID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "movieId": movieID})
}

type authTokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POSTAuthToken exchanges credentials for a Bearer token usable on the API
func (ah APIHandler) POSTAuthToken(c *gin.Context) {
	var req authTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password are required")
		return
	}
	profile, err := ah.LoginChecker.CheckLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrUnauthorized) {
			abortWithError(c, model.ErrUnauthorized)
			return
		}
		abortWithError(c, err)
		return
	}
	token, err := ah.SessionIssuer.Issue(profile)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"tokenType": "Bearer",
		"expiresIn": int64(ah.sessionTTL.Seconds()),
	})
}
