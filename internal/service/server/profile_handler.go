package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/i18n"
	"github.com/Agurato/kolnoa/internal/model"
)

type ProfileManager interface {
	GetUser(ctx context.Context, id string) (*model.Profile, error)
	GetProfile(ctx context.Context, username string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id, displayName, bio, avatarURL, locale string) (*model.Profile, error)
	SetUserPassword(ctx context.Context, username, oldPassword, password1, password2 string) error
}

type ProfileReviewLister interface {
	ByUser(ctx context.Context, userID string) ([]model.Review, error)
}

type WatchlistLister interface {
	List(ctx context.Context, userID string) ([]model.Movie, error)
}

type ProfileHandler struct {
	ProfileManager
	ProfileReviewLister
	WatchlistLister
	main *MainHandler
}

func NewProfileHandler(pm ProfileManager, prl ProfileReviewLister, wl WatchlistLister, mh *MainHandler) *ProfileHandler {
	return &ProfileHandler{
		ProfileManager:      pm,
		ProfileReviewLister: prl,
		WatchlistLister:     wl,
		main:                mh,
	}
}

// GETProfile displays the public profile of a user with their reviews
func (ph ProfileHandler) GETProfile(c *gin.Context) {
	profile, err := ph.ProfileManager.GetProfile(c.Request.Context(), c.Param("username"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ph.main.Error404(c)
			return
		}
		ph.main.Error500(c, err)
		return
	}
	reviews, err := ph.ProfileReviewLister.ByUser(c.Request.Context(), profile.ID)
	if err != nil {
		ph.main.Error500(c, err)
		return
	}

	claims := currentUser(c)
	RenderHTML(c, http.StatusOK, "pages/profile.go.html", gin.H{
		"title":   profile.PublicName(),
		"profile": profile,
		"reviews": reviews,
		"isOwner": claims != nil && claims.Subject == profile.ID,
	})
}

// GETWatchlist displays the watchlist of the logged in user
func (ph ProfileHandler) GETWatchlist(c *gin.Context) {
	movies, err := ph.WatchlistLister.List(c.Request.Context(), currentUser(c).Subject)
	if err != nil {
		ph.main.Error500(c, err)
		return
	}
	RenderHTML(c, http.StatusOK, "pages/watchlist.go.html", gin.H{
		"titleKey": "watchlist.title",
		"movies":   movies,
	})
}

// GETSettings displays the settings of the logged in user
func (ph ProfileHandler) GETSettings(c *gin.Context) {
	ph.renderSettings(c, http.StatusOK, gin.H{})
}

// POSTSettingsProfile updates the public information of the logged in user
func (ph ProfileHandler) POSTSettingsProfile(c *gin.Context) {
	profile, err := ph.ProfileManager.UpdateProfile(c.Request.Context(), currentUser(c).Subject,
		c.PostForm("displayName"), c.PostForm("bio"), c.PostForm("avatarUrl"), c.PostForm("locale"))
	if err != nil {
		ph.renderSettingsError(c, err, "profileErrorKey")
		return
	}

	// Switch to the preferred locale
	if profile.PreferredLocale != "" && profile.PreferredLocale != currentLocale(c) {
		c.Redirect(http.StatusSeeOther, localePath(profile.PreferredLocale, "/settings"))
		return
	}
	ph.renderSettings(c, http.StatusOK, gin.H{"profileSuccess": true})
}

// POSTSettingsPassword changes the password of the logged in user
func (ph ProfileHandler) POSTSettingsPassword(c *gin.Context) {
	err := ph.ProfileManager.SetUserPassword(c.Request.Context(), currentUser(c).Username,
		c.PostForm("oldPassword"), c.PostForm("password1"), c.PostForm("password2"))
	if err != nil {
		ph.renderSettingsError(c, err, "passwordErrorKey")
		return
	}
	ph.renderSettings(c, http.StatusOK, gin.H{"passwordSuccess": true})
}

func (ph ProfileHandler) renderSettingsError(c *gin.Context, err error, key string) {
	status, errorKey := http.StatusBadRequest, "settings.error.invalid"
	switch {
	case errors.Is(err, model.ErrUnauthorized):
		status, errorKey = http.StatusUnauthorized, "settings.error.password"
	case !errors.Is(err, model.ErrInvalidInput):
		log.Error().Err(err).Str("username", currentUser(c).Username).Msg("Could not update settings")
		status, errorKey = http.StatusInternalServerError, "error.generic.message"
	}
	ph.renderSettings(c, status, gin.H{key: errorKey})
}

func (ph ProfileHandler) renderSettings(c *gin.Context, code int, obj gin.H) {
	profile, err := ph.ProfileManager.GetUser(c.Request.Context(), currentUser(c).Subject)
	if err != nil {
		ph.main.Error500(c, err)
		return
	}
	obj["titleKey"] = "settings.title"
	obj["profile"] = profile
	obj["locales"] = i18n.Supported
	RenderHTML(c, code, "pages/settings.go.html", obj)
}
