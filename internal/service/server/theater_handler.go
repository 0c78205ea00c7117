package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/kolnoa/internal/model"
)

type TheaterManager interface {
	GetTheaters(ctx context.Context) ([]model.Theater, error)
	GetTheater(ctx context.Context, slug string) (*model.Theater, error)
	GetSchedule(ctx context.Context, theaterID string, days int) ([]model.DayShowtimes, error)
}

type TheaterHandler struct {
	TheaterManager
	main *MainHandler
}

func NewTheaterHandler(tm TheaterManager, mh *MainHandler) *TheaterHandler {
	return &TheaterHandler{
		TheaterManager: tm,
		main:           mh,
	}
}

// GETTheaters displays the list of theaters
func (th TheaterHandler) GETTheaters(c *gin.Context) {
	theaters, err := th.TheaterManager.GetTheaters(c.Request.Context())
	if err != nil {
		th.main.Error500(c, err)
		return
	}
	RenderHTML(c, http.StatusOK, "pages/theaters.go.html", gin.H{
		"titleKey": "theaters.title",
		"theaters": theaters,
	})
}

// GETTheater displays a theater and its schedule for the week
func (th TheaterHandler) GETTheater(c *gin.Context) {
	theater, err := th.TheaterManager.GetTheater(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			th.main.Error404(c)
			return
		}
		th.main.Error500(c, err)
		return
	}
	schedule, err := th.TheaterManager.GetSchedule(c.Request.Context(), theater.ID, scheduleDays)
	if err != nil {
		th.main.Error500(c, err)
		return
	}

	RenderHTML(c, http.StatusOK, "pages/theater.go.html", gin.H{
		"title":    theater.Name(currentLocale(c)),
		"theater":  theater,
		"schedule": schedule,
	})
}
