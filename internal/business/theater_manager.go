package business

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog/log"

	"github.com/Agurato/kolnoa/internal/model"
)

// Showtimes are grouped by calendar day in the local time of the theaters
const scheduleTimezone = "Asia/Jerusalem"

// ScheduleLocation is the time zone of the theaters, UTC if the zone database is missing
var ScheduleLocation = loadScheduleLocation()

func loadScheduleLocation() *time.Location {
	location, err := time.LoadLocation(scheduleTimezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", scheduleTimezone).Msg("Could not load timezone, using UTC")
		return time.UTC
	}
	return location
}

type TheaterStorer interface {
	GetTheaters(ctx context.Context) ([]model.Theater, error)
	GetTheaterBySlug(ctx context.Context, slug string) (*model.Theater, error)
	GetShowtimesForTheater(ctx context.Context, theaterID string, from, to time.Time) ([]model.Showtime, error)
	GetMovieByID(ctx context.Context, id string) (*model.Movie, error)
}

type TheaterManager struct {
	TheaterStorer
	location *time.Location
	now      func() time.Time
}

func NewTheaterManager(ts TheaterStorer) *TheaterManager {
	return &TheaterManager{
		TheaterStorer: ts,
		location:      ScheduleLocation,
		now:           time.Now,
	}
}

func (tm TheaterManager) GetTheaters(ctx context.Context) ([]model.Theater, error) {
	return tm.TheaterStorer.GetTheaters(ctx)
}

// GetTheater returns a theater from its slug
func (tm TheaterManager) GetTheater(ctx context.Context, slug string) (*model.Theater, error) {
	theater, err := tm.TheaterStorer.GetTheaterBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("could not get theater '%s': %w", slug, err)
	}
	return theater, nil
}

// GetSchedule returns the showtimes of a theater for the next days, grouped by day then movie
func (tm TheaterManager) GetSchedule(ctx context.Context, theaterID string, days int) ([]model.DayShowtimes, error) {
	from := tm.now()
	showtimes, err := tm.TheaterStorer.GetShowtimesForTheater(ctx, theaterID, from, from.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	var (
		schedule []model.DayShowtimes
		movies   = make(map[string]*model.Movie)
	)
	for _, st := range showtimes {
		movie, ok := movies[st.MovieID]
		if !ok {
			movie, err = tm.TheaterStorer.GetMovieByID(ctx, st.MovieID)
			if err != nil {
				log.Error().Err(err).Str("movieID", st.MovieID).Msg("Showtime references an unknown movie")
				continue
			}
			movies[st.MovieID] = movie
		}

		local := st.StartsAt.In(tm.location)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tm.location)
		// Showtimes come sorted by start time, so a new day is always appended last
		if len(schedule) == 0 || !schedule[len(schedule)-1].Day.Equal(day) {
			schedule = append(schedule, model.DayShowtimes{Day: day})
		}
		current := &schedule[len(schedule)-1]

		found := false
		for i := range current.Movies {
			if current.Movies[i].Movie.ID == st.MovieID {
				current.Movies[i].Showtimes = append(current.Movies[i].Showtimes, st)
				found = true
				break
			}
		}
		if !found {
			current.Movies = append(current.Movies, model.MovieShowtimes{Movie: *movie, Showtimes: []model.Showtime{st}})
		}
	}
	return schedule, nil
}
