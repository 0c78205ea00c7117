package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
)

// Source of the API errors copied to the logs table
const apiLogSource = "api"

func errorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyExists), errors.Is(err, model.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnsupported), errors.Is(err, model.ErrFeedDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError answers an API request with {"error": "..."} and the status matching err.
// Backend errors are logged to the logs table and hidden from the client.
func abortWithError(c *gin.Context, err error) {
	status := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).
			Str(model.LogSourceField, apiLogSource).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Msg("API request failed")
		message = "internal server error"
	} else {
		log.Debug().Err(err).Str("path", c.Request.URL.Path).Int("status", status).Msg("API request rejected")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// badRequest answers an API request with a 400 and a fixed message
func badRequest(c *gin.Context, message string) {
	log.Debug().Str("path", c.Request.URL.Path).Str("reason", message).Msg("API request rejected")
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
