// Package pagination windows ordered sequences into fixed-size, 1-based pages.
//
// Out-of-range page requests never fail: anything that is not a positive
// integer resolves to the first page and anything past the end resolves to
// the last page. An empty sequence still has one (empty) page.
package pagination

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Source is an ordered sequence that can be counted and windowed. The
// repository layer backs it with a query that is re-run on every call, so
// pages reflect the data at the time they are requested.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	Slice(ctx context.Context, offset, limit int) ([]T, error)
}

// Page is one window of a Source plus navigation metadata.
type Page[T any] struct {
	Items              []T   `json:"items"`
	Number             int   `json:"number"`
	PageSize           int   `json:"page_size"`
	TotalCount         int64 `json:"total_count"`
	NumPages           int   `json:"num_pages"`
	HasNext            bool  `json:"has_next"`
	HasPrevious        bool  `json:"has_previous"`
	NextPageNumber     int   `json:"next_page_number,omitempty"`
	PreviousPageNumber int   `json:"previous_page_number,omitempty"`
}

// StartIndex is the 1-based position of the first item on the page, or 0 for an empty page.
func (p *Page[T]) StartIndex() int {
	if p.TotalCount == 0 {
		return 0
	}
	return (p.Number-1)*p.PageSize + 1
}

// NumPages returns how many pages total items occupy. It is at least 1.
func NumPages(total int64, pageSize int) int {
	if total <= 0 {
		return 1
	}
	size := int64(pageSize)
	return int((total + size - 1) / size)
}

// ResolvePage clamps a raw page parameter into [1, numPages].
func ResolvePage(raw string, numPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if errors.Is(err, strconv.ErrRange) {
		// Atoi saturates n, so the sign still tells which end was overshot.
		if n > 0 {
			return numPages
		}
		return 1
	}
	if err != nil || n < 1 {
		return 1
	}
	if n > numPages {
		return numPages
	}
	return n
}

// Paginate returns the requested page of src. rawPage is the unparsed
// "page" query value and may be empty or garbage.
func Paginate[T any](ctx context.Context, src Source[T], pageSize int, rawPage string) (*Page[T], error) {
	if pageSize <= 0 {
		return nil, fmt.Errorf("pagination: page size must be positive, got %d", pageSize)
	}

	total, err := src.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("pagination: count: %w", err)
	}

	numPages := NumPages(total, pageSize)
	number := ResolvePage(rawPage, numPages)

	items := []T{}
	if total > 0 {
		items, err = src.Slice(ctx, (number-1)*pageSize, pageSize)
		if err != nil {
			return nil, fmt.Errorf("pagination: slice: %w", err)
		}
	}

	page := &Page[T]{
		Items:       items,
		Number:      number,
		PageSize:    pageSize,
		TotalCount:  total,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
	}
	if page.HasNext {
		page.NextPageNumber = number + 1
	}
	if page.HasPrevious {
		page.PreviousPageNumber = number - 1
	}
	return page, nil
}

// Empty is the single empty page used when there is nothing to query.
func Empty[T any](pageSize int) *Page[T] {
	return &Page[T]{Items: []T{}, Number: 1, PageSize: pageSize, NumPages: 1}
}
