package business

import (
	"github.com/Agurato/kolnoa/internal/model"
)

// Paginater splits listings into pages
type Paginater[T any] struct {
	itemsPerPage int64
}

// NewPaginater instantiates a new Paginater
func NewPaginater[T any](itemsPerPage int64) *Paginater[T] {
	if itemsPerPage <= 0 {
		itemsPerPage = 1
	}
	return &Paginater[T]{
		itemsPerPage: itemsPerPage,
	}
}

// PageCount returns the number of pages needed for n items, at least 1
func (p *Paginater[T]) PageCount(n int) int64 {
	pages := (int64(n) + p.itemsPerPage - 1) / p.itemsPerPage
	return max(pages, 1)
}

// GetPagination returns the items of the current page and the page links to display.
// Out of range pages are clamped to the first or last page.
func (p *Paginater[T]) GetPagination(currentPage int64, items []T) ([]T, []model.Pagination) {
	pageMax := p.PageCount(len(items))
	currentPage = min(max(currentPage, 1), pageMax)

	pages := []model.Pagination{{Number: 1, Active: currentPage == 1}}
	// Dots between 1 and current-1
	if currentPage > 3 {
		pages = append(pages, model.Pagination{Dots: true})
	}
	for i := currentPage - 1; i <= currentPage+1; i++ {
		if i <= 1 || i >= pageMax {
			continue
		}
		pages = append(pages, model.Pagination{Number: i, Active: i == currentPage})
	}
	// Dots between current+1 and max
	if currentPage < pageMax-2 {
		pages = append(pages, model.Pagination{Dots: true})
	}
	if pageMax > 1 {
		pages = append(pages, model.Pagination{Number: pageMax, Active: currentPage == pageMax})
	}

	start := min((currentPage-1)*p.itemsPerPage, int64(len(items)))
	end := min(start+p.itemsPerPage, int64(len(items)))
	return items[start:end], pages
}
