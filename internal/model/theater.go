package model

import (
	"time"

	"github.com/Agurato/kolnoa/internal/utilities"
)

// Theater is a cinema showing movies
type Theater struct {
	ID        string  `bson:"_id" json:"id"`
	Slug      string  `bson:"slug" json:"slug"`
	NameEn    string  `bson:"name_en" json:"nameEn"`
	NameHe    string  `bson:"name_he" json:"nameHe"`
	AddressEn string  `bson:"address_en" json:"addressEn"`
	AddressHe string  `bson:"address_he" json:"addressHe"`
	City      string  `bson:"city" json:"city"`
	Country   string  `bson:"country" json:"country"`
	Website   string  `bson:"website" json:"website"`
	Lat       float64 `bson:"lat" json:"lat"`
	Lng       float64 `bson:"lng" json:"lng"`
}

func (t Theater) Name(locale string) string {
	return utilities.LocalizedField(t.NameEn, t.NameHe, locale)
}

func (t Theater) Address(locale string) string {
	return utilities.LocalizedField(t.AddressEn, t.AddressHe, locale)
}

// Showtime is one screening of a movie in a theater
type Showtime struct {
	ID         string    `bson:"_id" json:"id"`
	MovieID    string    `bson:"movie_id" json:"movieId"`
	TheaterID  string    `bson:"theater_id" json:"theaterId"`
	StartsAt   time.Time `bson:"starts_at" json:"startsAt"`
	Language   string    `bson:"language" json:"language"`
	Format     string    `bson:"format" json:"format"`
	BookingURL string    `bson:"booking_url" json:"bookingUrl"`
}

// TheaterShowtimes groups the showtimes of a movie by theater
type TheaterShowtimes struct {
	Theater   Theater
	Showtimes []Showtime
}

// MovieShowtimes groups the showtimes of a theater by movie
type MovieShowtimes struct {
	Movie     Movie
	Showtimes []Showtime
}

// DayShowtimes groups showtimes of a theater by calendar day
type DayShowtimes struct {
	Day    time.Time
	Movies []MovieShowtimes
}
