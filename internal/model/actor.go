package model

import "github.com/Agurato/kolnoa/internal/utilities"

// Actor is a person credited in the cast of a movie
type Actor struct {
	ID        string `bson:"_id" json:"id"`
	TMDBID    int64  `bson:"tmdb_id" json:"tmdbId"`
	IMDbID    string `bson:"imdb_id" json:"imdbId"`
	Slug      string `bson:"slug" json:"slug"`
	NameEn    string `bson:"name_en" json:"nameEn"`
	NameHe    string `bson:"name_he" json:"nameHe"`
	BioEn     string `bson:"bio_en" json:"bioEn"`
	BioHe     string `bson:"bio_he" json:"bioHe"`
	PhotoPath string `bson:"photo_path" json:"photoPath"`
	Birthday  string `bson:"birthday" json:"birthday"`
	Deathday  string `bson:"deathday" json:"deathday"`
}

func (a Actor) Name(locale string) string {
	return utilities.LocalizedField(a.NameEn, a.NameHe, locale)
}

func (a Actor) Bio(locale string) string {
	return utilities.LocalizedField(a.BioEn, a.BioHe, locale)
}
