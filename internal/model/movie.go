package model

import (
	"time"

	"github.com/Agurato/kolnoa/internal/utilities"
)

// Movie holds the information displayed on a movie page
type Movie struct {
	ID           string      `bson:"_id" json:"id"`
	TMDBID       int64       `bson:"tmdb_id" json:"tmdbId"`
	IMDbID       string      `bson:"imdb_id" json:"imdbId"`
	Slug         string      `bson:"slug" json:"slug"`
	TitleEn      string      `bson:"title_en" json:"titleEn"`
	TitleHe      string      `bson:"title_he" json:"titleHe"`
	OverviewEn   string      `bson:"overview_en" json:"overviewEn"`
	OverviewHe   string      `bson:"overview_he" json:"overviewHe"`
	ReleaseDate  string      `bson:"release_date" json:"releaseDate"`
	Year         int         `bson:"year" json:"year"`
	Runtime      int         `bson:"runtime" json:"runtime"`
	Genres       []string    `bson:"genres" json:"genres"`
	Countries    []string    `bson:"countries" json:"countries"`
	PosterPath   string      `bson:"poster_path" json:"posterPath"`
	BackdropPath string      `bson:"backdrop_path" json:"backdropPath"`
	TrailerKey   string      `bson:"trailer_key" json:"trailerKey"`
	IMDbRating   string      `bson:"imdb_rating" json:"imdbRating"`
	Popularity   float64     `bson:"popularity" json:"popularity"`
	Characters   []Character `bson:"characters" json:"-"`
	UpdatedAt    time.Time   `bson:"updated_at" json:"updatedAt"`
}

// Character links an actor (by TMDB ID) to the role they play in a movie
type Character struct {
	ActorTMDBID   int64  `bson:"actor_tmdb_id"`
	CharacterName string `bson:"character"`
	Order         int    `bson:"order"`
}

// CastMember is a Character resolved to its Actor
type CastMember struct {
	Actor         Actor
	CharacterName string
}

// Title returns the title in the requested locale, falling back to the other language
func (m Movie) Title(locale string) string {
	return utilities.LocalizedField(m.TitleEn, m.TitleHe, locale)
}

// Overview returns the overview in the requested locale, falling back to the other language
func (m Movie) Overview(locale string) string {
	return utilities.LocalizedField(m.OverviewEn, m.OverviewHe, locale)
}

// SearchableTitles returns every non-empty title of the movie
func (m Movie) SearchableTitles() []string {
	var titles []string
	for _, t := range []string{m.TitleEn, m.TitleHe} {
		if t != "" {
			titles = append(titles, t)
		}
	}
	return titles
}
