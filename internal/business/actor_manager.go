package business

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/Agurato/kolnoa/internal/cache"
	"github.com/Agurato/kolnoa/internal/model"
)

const actorsCacheKey = "actors:all"

type ActorStorer interface {
	GetActors(ctx context.Context) ([]model.Actor, error)
	GetActorBySlug(ctx context.Context, slug string) (*model.Actor, error)
	GetMoviesWithActor(ctx context.Context, actorTMDBID int64) ([]model.Movie, error)
}

type ActorManager struct {
	ActorStorer

	cache    cache.Store
	cacheTTL time.Duration
}

func NewActorManager(as ActorStorer, store cache.Store, cacheTTL time.Duration) *ActorManager {
	return &ActorManager{
		ActorStorer: as,
		cache:       store,
		cacheTTL:    cacheTTL,
	}
}

// GetActors returns every actor, sorted by name
func (am ActorManager) GetActors(ctx context.Context) ([]model.Actor, error) {
	return cache.Remember(ctx, am.cache, actorsCacheKey, am.cacheTTL, func() ([]model.Actor, error) {
		return am.ActorStorer.GetActors(ctx)
	})
}

// GetActorsFiltered returns the actors whose name matches search
func (am ActorManager) GetActorsFiltered(ctx context.Context, search string) ([]model.Actor, error) {
	actors, err := am.GetActors(ctx)
	if err != nil {
		return nil, err
	}
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return actors, nil
	}
	return lo.Filter(actors, func(a model.Actor, _ int) bool {
		return MatchesSearch(search, lo.Compact([]string{a.NameEn, a.NameHe})...)
	}), nil
}

// GetActor returns an actor from its slug
func (am ActorManager) GetActor(ctx context.Context, slug string) (*model.Actor, error) {
	actor, err := am.ActorStorer.GetActorBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("could not get actor '%s': %w", slug, err)
	}
	return actor, nil
}

// GetActorMovies returns the movies an actor plays in, most popular first
func (am ActorManager) GetActorMovies(ctx context.Context, actor *model.Actor) ([]model.Movie, error) {
	if actor.TMDBID == 0 {
		return nil, nil
	}
	return am.ActorStorer.GetMoviesWithActor(ctx, actor.TMDBID)
}
