package model

// Pagination represents a pagination display parameters
type Pagination struct {
	Number int64
	Active bool
	Dots   bool
}

// Decade holds the years of a decade present in the catalog
type Decade struct {
	DecadeYear int
	Years      []int
}
