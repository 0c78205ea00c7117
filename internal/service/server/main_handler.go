package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Agurato/kolnoa/internal/model"
)

// Number of movies shown on the home page
const homeMovies = 12

type MainUserManager interface {
	CreateUser(ctx context.Context, username, password1, password2 string) (*model.Profile, error)
	CheckLogin(ctx context.Context, username, password string) (*model.Profile, error)
}

type MainMovieManager interface {
	GetMovies(ctx context.Context) ([]model.Movie, error)
}

type SessionIssuer interface {
	Issue(profile *model.Profile) (string, error)
}

type MainHandler struct {
	MainUserManager
	MainMovieManager
	SessionIssuer
}

func NewMainHandler(mum MainUserManager, mmm MainMovieManager, si SessionIssuer) *MainHandler {
	return &MainHandler{
		MainUserManager:  mum,
		MainMovieManager: mmm,
		SessionIssuer:    si,
	}
}

// Error404 displays the 404 page
func (mh MainHandler) Error404(c *gin.Context) {
	RenderHTML(c, http.StatusNotFound, "pages/error.go.html", gin.H{
		"titleKey":   "error.notfound.title",
		"messageKey": "error.notfound.message",
	})
}

// Error500 displays the error page
func (mh MainHandler) Error500(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Could not render page")
	RenderHTML(c, http.StatusInternalServerError, "pages/error.go.html", gin.H{
		"titleKey":   "error.generic.title",
		"messageKey": "error.generic.message",
	})
}

// GETIndex displays the home page
func (mh MainHandler) GETIndex(c *gin.Context) {
	movies, err := mh.MainMovieManager.GetMovies(c.Request.Context())
	if err != nil {
		mh.Error500(c, err)
		return
	}
	RenderHTML(c, http.StatusOK, "pages/index.go.html", gin.H{
		"titleKey": "home.title",
		"movies":   lo.Slice(movies, 0, homeMovies),
	})
}

// GETLogin displays the login page
func (mh MainHandler) GETLogin(c *gin.Context) {
	RenderHTML(c, http.StatusOK, "pages/login.go.html", gin.H{
		"titleKey": "login.title",
		"next":     c.Query("next"),
	})
}

// POSTLogin handles login from POST request
func (mh MainHandler) POSTLogin(c *gin.Context) {
	// Fetch username and password from POST data
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")

	profile, err := mh.MainUserManager.CheckLogin(c.Request.Context(), username, password)
	if err != nil {
		status, errorKey := http.StatusUnauthorized, "login.error.failed"
		if !errors.Is(err, model.ErrUnauthorized) {
			log.Error().Err(err).Str("username", username).Msg("Could not log user in")
			status, errorKey = http.StatusInternalServerError, "error.generic.message"
		}
		RenderHTML(c, status, "pages/login.go.html", gin.H{
			"titleKey": "login.title",
			"errorKey": errorKey,
			"username": username,
			"next":     next,
		})
		return
	}

	if err := mh.saveSession(c, profile); err != nil {
		log.Error().Err(err).Str("username", username).Msg("Could not save session")
		RenderHTML(c, http.StatusInternalServerError, "pages/login.go.html", gin.H{
			"titleKey": "login.title",
			"errorKey": "error.generic.message",
			"username": username,
			"next":     next,
		})
		return
	}
	c.Redirect(http.StatusSeeOther, safeNext(next, currentLocale(c)))
}

// GETSignup displays the registration page
func (mh MainHandler) GETSignup(c *gin.Context) {
	RenderHTML(c, http.StatusOK, "pages/signup.go.html", gin.H{
		"titleKey": "signup.title",
	})
}

// POSTSignup handles registration, then logs the new user in
func (mh MainHandler) POSTSignup(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password1 := c.PostForm("password1")
	password2 := c.PostForm("password2")

	profile, err := mh.MainUserManager.CreateUser(c.Request.Context(), username, password1, password2)
	if err != nil {
		status, errorKey := http.StatusBadRequest, "signup.error.invalid"
		switch {
		case errors.Is(err, model.ErrAlreadyExists):
			status, errorKey = http.StatusConflict, "signup.error.taken"
		case !errors.Is(err, model.ErrInvalidInput):
			log.Error().Err(err).Str("username", username).Msg("Could not create user")
			status, errorKey = http.StatusInternalServerError, "error.generic.message"
		}
		RenderHTML(c, status, "pages/signup.go.html", gin.H{
			"titleKey": "signup.title",
			"errorKey": errorKey,
			"username": username,
		})
		return
	}

	if err := mh.saveSession(c, profile); err != nil {
		log.Error().Err(err).Str("username", username).Msg("Could not save session")
		c.Redirect(http.StatusSeeOther, localePath(currentLocale(c), "/login"))
		return
	}
	c.Redirect(http.StatusSeeOther, localePath(currentLocale(c), ""))
}

// Logout logs out the user and redirects to the home page
func (mh MainHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if session.Get(sessionTokenKey) != nil {
		session.Delete(sessionTokenKey)
		if err := session.Save(); err != nil {
			log.Error().Err(err).Msg("Could not clear session")
		}
	}
	c.Redirect(http.StatusSeeOther, localePath(currentLocale(c), ""))
}

func (mh MainHandler) saveSession(c *gin.Context, profile *model.Profile) error {
	token, err := mh.SessionIssuer.Issue(profile)
	if err != nil {
		return err
	}
	session := sessions.Default(c)
	session.Set(sessionTokenKey, token)
	return session.Save()
}

// safeNext keeps redirections after login on this site
func safeNext(next, locale string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return localePath(locale, "")
	}
	return next
}
