package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/model"
)

type ActorManager interface {
	GetActorsFiltered(ctx context.Context, search string) ([]model.Actor, error)
	GetActor(ctx context.Context, slug string) (*model.Actor, error)
	GetActorMovies(ctx context.Context, actor *model.Actor) ([]model.Movie, error)
}

type ActorHandler struct {
	ActorManager
	paginater *business.Paginater[model.Actor]
	main      *MainHandler
}

// NewActorHandler shows twice as many actors per page as there are movies per page
func NewActorHandler(am ActorManager, mh *MainHandler, itemsPerPage int64) *ActorHandler {
	return &ActorHandler{
		ActorManager: am,
		paginater:    business.NewPaginater[model.Actor](2 * itemsPerPage),
		main:         mh,
	}
}

// GETActors displays the list of actors
func (ah ActorHandler) GETActors(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	page, err := strconv.ParseInt(c.DefaultQuery("page", "1"), 10, 64)
	if err != nil {
		page = 1
	}

	actors, err := ah.ActorManager.GetActorsFiltered(c.Request.Context(), search)
	if err != nil {
		ah.main.Error500(c, err)
		return
	}
	actors, pages := ah.paginater.GetPagination(page, actors)

	RenderHTML(c, http.StatusOK, "pages/actors.go.html", gin.H{
		"titleKey": "actors.title",
		"actors":   actors,
		"search":   search,
		"pages":    pages,
	})
}

// GETActor displays an actor and the movies they play in
func (ah ActorHandler) GETActor(c *gin.Context) {
	actor, err := ah.ActorManager.GetActor(c.Request.Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			ah.main.Error404(c)
			return
		}
		ah.main.Error500(c, err)
		return
	}
	movies, err := ah.ActorManager.GetActorMovies(c.Request.Context(), actor)
	if err != nil {
		ah.main.Error500(c, err)
		return
	}

	RenderHTML(c, http.StatusOK, "pages/actor.go.html", gin.H{
		"title":  actor.Name(currentLocale(c)),
		"actor":  actor,
		"movies": movies,
	})
}
