package business

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pariz/gountries"

	"github.com/Agurato/kolnoa/internal/model"
)

var countryQuery = gountries.New()

// Filterer holds the different filters that can be applied
type Filterer interface {
	AddMovies(movies []model.Movie)
	AddMovie(movie *model.Movie)
	ParseYearFilter(yearFilter string) (years []int, err error)
	GetCountryName(code string) string

	GetCountries() []string
	GetDecades() []model.Decade
	GetGenres() []string
}

type FiltererWrapper struct {
	mu sync.RWMutex

	minReleaseYear int
	maxReleaseYear int
	decades        []model.Decade

	genres    []string
	countries []string
}

func NewFiltererWrapper() *FiltererWrapper {
	return &FiltererWrapper{}
}

// AddMovies adds release years, genres and countries of the movies to the filters
func (f *FiltererWrapper) AddMovies(movies []model.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, movie := range movies {
		f.addToYears(movie.Year)
		f.addToGenres(movie.Genres)
		f.addToCountries(movie.Countries)
	}
	f.computeDecades()
	f.sort()
}

// AddMovie adds release year if new min or max, and missing genres and countries to the filters
func (f *FiltererWrapper) AddMovie(movie *model.Movie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addToYears(movie.Year) {
		f.computeDecades()
	}
	f.addToGenres(movie.Genres)
	f.addToCountries(movie.Countries)
	f.sort()
}

// ParseYearFilter turns "1994" into [1994] and "1990s" into the ten years of the decade
func (f *FiltererWrapper) ParseYearFilter(yearFilter string) (years []int, err error) {
	if yearFilter == "" {
		return nil, nil
	}
	decade, isDecade := strings.CutSuffix(yearFilter, "s")
	if len(decade) != 4 {
		return nil, fmt.Errorf("year filter %q: %w", yearFilter, model.ErrInvalidInput)
	}
	year, err := strconv.Atoi(decade)
	if err != nil {
		return nil, fmt.Errorf("year filter %q: %w", yearFilter, errors.Join(model.ErrInvalidInput, err))
	}
	if !isDecade {
		return []int{year}, nil
	}
	if year%10 != 0 {
		return nil, fmt.Errorf("year filter %q is not a decade: %w", yearFilter, model.ErrInvalidInput)
	}
	for i := year; i < year+10; i++ {
		years = append(years, i)
	}
	return years, nil
}

func (f *FiltererWrapper) GetCountryName(code string) string {
	return CountryName(code)
}

// CountryName returns the common English name of an ISO 3166-1 code, or the code itself
func CountryName(code string) string {
	country, err := countryQuery.FindCountryByAlpha(code)
	if err != nil {
		return code
	}
	return country.Name.Common
}

func (f *FiltererWrapper) GetCountries() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.countries)
}

func (f *FiltererWrapper) GetDecades() []model.Decade {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.decades)
}

func (f *FiltererWrapper) GetGenres() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.genres)
}

func (f *FiltererWrapper) sort() {
	slices.Sort(f.genres)
	slices.SortFunc(f.countries, func(a, b string) int {
		return strings.Compare(CountryName(a), CountryName(b))
	})
}

func (f *FiltererWrapper) computeDecades() {
	f.decades = nil
	if f.minReleaseYear == 0 {
		return
	}
	var decade model.Decade
	for i := f.maxReleaseYear; i >= f.minReleaseYear; i-- {
		decade.DecadeYear = (i / 10) * 10
		decade.Years = append(decade.Years, i)
		if i%10 == 0 || i == f.minReleaseYear {
			f.decades = append(f.decades, decade)
			decade = model.Decade{}
		}
	}
}

func (f *FiltererWrapper) addToYears(year int) bool {
	if year <= 0 {
		return false
	}
	computeDecades := false
	if f.minReleaseYear == 0 || f.minReleaseYear > year {
		f.minReleaseYear = year
		computeDecades = true
	}
	if f.maxReleaseYear == 0 || f.maxReleaseYear < year {
		f.maxReleaseYear = year
		computeDecades = true
	}
	return computeDecades
}

func (f *FiltererWrapper) addToGenres(genres []string) {
	for _, genre := range genres {
		if !slices.Contains(f.genres, genre) {
			f.genres = append(f.genres, genre)
		}
	}
}

func (f *FiltererWrapper) addToCountries(codes []string) {
	for _, country := range codes {
		if !slices.Contains(f.countries, country) {
			f.countries = append(f.countries, country)
		}
	}
}
