// Package pagination slices ordered result sets into numbered pages.
//
// Page numbers are 1-based. A page number that is not an integer resolves to
// the first page, and one past either end resolves to the nearest valid page,
// so a feed URL never fails because of its ?page= value.
package pagination

import (
	"context"
	"strconv"
	"strings"
)

// Paginator describes a result set of Count items split into pages of PerPage.
type Paginator struct {
	Count   int64
	PerPage int
}

// NumPages is at least 1, even for an empty result set.
func (p Paginator) NumPages() int {
	if p.PerPage <= 0 || p.Count <= 0 {
		return 1
	}
	return int((p.Count + int64(p.PerPage) - 1) / int64(p.PerPage))
}

// Number resolves a raw page parameter to a valid page number.
func (p Paginator) Number(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	if last := p.NumPages(); n > last {
		return last
	}
	return n
}

// Offset is the index of the first item on page number.
func (p Paginator) Offset(number int) int {
	if number < 1 {
		number = 1
	}
	return (number - 1) * p.PerPage
}

// Page is one slice of a paginated result set.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Total    int64
	PerPage  int
}

// Fetch counts the result set, resolves rawPage and loads that page through list.
func Fetch[T any](
	ctx context.Context,
	perPage int,
	rawPage string,
	count func(ctx context.Context) (int64, error),
	list func(ctx context.Context, limit, offset int) ([]T, error),
) (*Page[T], error) {
	total, err := count(ctx)
	if err != nil {
		return nil, err
	}

	p := Paginator{Count: total, PerPage: perPage}
	number := p.Number(rawPage)

	items := []T{}
	if total > 0 {
		items, err = list(ctx, perPage, p.Offset(number))
		if err != nil {
			return nil, err
		}
	}

	return &Page[T]{
		Items:    items,
		Number:   number,
		NumPages: p.NumPages(),
		Total:    total,
		PerPage:  perPage,
	}, nil
}

func (p *Page[T]) HasNext() bool {
	return p.Number < p.NumPages
}

func (p *Page[T]) HasPrevious() bool {
	return p.Number > 1
}

func (p *Page[T]) HasOtherPages() bool {
	return p.HasNext() || p.HasPrevious()
}

func (p *Page[T]) NextNumber() int {
	return p.Number + 1
}

func (p *Page[T]) PreviousNumber() int {
	return p.Number - 1
}

// Len is the number of items on this page.
func (p *Page[T]) Len() int {
	return len(p.Items)
}

// Range lists every page number, for rendering page links.
func (p *Page[T]) Range() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
