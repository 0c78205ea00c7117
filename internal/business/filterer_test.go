package business_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Agurato/kolnoa/internal/business"
	"github.com/Agurato/kolnoa/internal/model"
)

func TestParseYearFilter(t *testing.T) {
	f := business.NewFiltererWrapper()

	years, err := f.ParseYearFilter("2019")
	assert.NoError(t, err)
	assert.Equal(t, []int{2019}, years)

	years, err = f.ParseYearFilter("2010s")
	assert.NoError(t, err)
	assert.Equal(t, []int{2010, 2011, 2012, 2013, 2014, 2015, 2016, 2017, 2018, 2019}, years)

	years, err = f.ParseYearFilter("")
	assert.NoError(t, err)
	assert.Empty(t, years)

	for _, invalid := range []string{"2015s", "19", "abcd", "20100"} {
		_, err = f.ParseYearFilter(invalid)
		assert.ErrorIs(t, err, model.ErrInvalidInput, invalid)
	}
}

func TestFiltererAddMovies(t *testing.T) {
	f := business.NewFiltererWrapper()
	f.AddMovies([]model.Movie{
		{Year: 1999, Genres: []string{"Drama"}, Countries: []string{"US"}},
		{Year: 2011, Genres: []string{"Comedy", "Drama"}, Countries: []string{"IL", "FR"}},
		{Year: 0},
	})

	assert.Equal(t, []string{"Comedy", "Drama"}, f.GetGenres())
	assert.Equal(t, []string{"FR", "IL", "US"}, f.GetCountries())

	decades := f.GetDecades()
	require.Len(t, decades, 3)
	assert.Equal(t, 2010, decades[0].DecadeYear)
	assert.Equal(t, []int{2011, 2010}, decades[0].Years)
	assert.Equal(t, 1990, decades[2].DecadeYear)
	assert.Equal(t, []int{1999}, decades[2].Years)

	f.AddMovie(&model.Movie{Year: 2023, Genres: []string{"Animation"}})
	decades = f.GetDecades()
	require.Len(t, decades, 4)
	assert.Equal(t, 2020, decades[0].DecadeYear)
	assert.Equal(t, "Animation", f.GetGenres()[0])

	assert.Equal(t, "Israel", f.GetCountryName("IL"))
	assert.Equal(t, "XX", f.GetCountryName("XX"))
}

func TestPaginater(t *testing.T) {
	p := business.NewPaginater[int](10)
	items := make([]int, 95)
	for i := range items {
		items[i] = i
	}

	page, pagination := p.GetPagination(1, items)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, page)
	assert.Equal(t, []model.Pagination{
		{Number: 1, Active: true},
		{Number: 2},
		{Dots: true},
		{Number: 10},
	}, pagination)

	page, pagination = p.GetPagination(5, items)
	assert.Equal(t, 40, page[0])
	assert.Equal(t, []model.Pagination{
		{Number: 1},
		{Dots: true},
		{Number: 4},
		{Number: 5, Active: true},
		{Number: 6},
		{Dots: true},
		{Number: 10},
	}, pagination)

	// Out of range pages are clamped
	page, _ = p.GetPagination(42, items)
	assert.Equal(t, []int{90, 91, 92, 93, 94}, page)
	page, _ = p.GetPagination(-1, items)
	assert.Equal(t, 0, page[0])

	page, pagination = p.GetPagination(1, nil)
	assert.Empty(t, page)
	assert.Equal(t, []model.Pagination{{Number: 1, Active: true}}, pagination)
	assert.Equal(t, int64(10), p.PageCount(95))
	assert.Equal(t, int64(1), p.PageCount(0))
}

func TestBeaconValidation(t *testing.T) {
	br := business.NewBeaconRecorder()

	assert.NoError(t, br.Record([]model.Beacon{{Name: "lcp", Value: 1200, Rating: "good"}, {Name: "CLS", Value: 0.02}}))
	assert.ErrorIs(t, br.Record(nil), model.ErrInvalidInput)
	assert.ErrorIs(t, br.Record([]model.Beacon{{Name: "FOO", Value: 1}}), model.ErrInvalidInput)
	assert.ErrorIs(t, br.Record([]model.Beacon{{Name: "LCP", Value: -1}}), model.ErrInvalidInput)
	assert.ErrorIs(t, br.Record([]model.Beacon{{Name: "LCP", Value: 1, Rating: "great"}}), model.ErrInvalidInput)

	beacon := model.Beacon{Name: " ttfb ", Value: 80}
	require.NoError(t, business.ValidateBeacon(&beacon))
	assert.Equal(t, "TTFB", beacon.Name)
	assert.Equal(t, "unrated", beacon.Rating)
}
