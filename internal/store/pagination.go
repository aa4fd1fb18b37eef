package store

// Page requests a window of an ordered result set.
type Page struct {
	Offset int
	Limit  int // Defaults to 50 with a maximum of 500
}

// Normalize clamps the page to sane bounds.
func (p *Page) Normalize() {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = 50
	}
	if p.Limit > 500 {
		p.Limit = 500
	}
}

// PageFromNumber converts a 1-based page number and size to an offset page.
func PageFromNumber(number, size int) Page {
	if number < 1 {
		number = 1
	}
	p := Page{Limit: size}
	p.Normalize()
	p.Offset = (number - 1) * p.Limit
	return p
}

// PageResult holds one page of items together with the total count.
type PageResult[T any] struct {
	Items   []T  `json:"items"`
	Total   int  `json:"total"`
	Offset  int  `json:"offset"`
	Limit   int  `json:"limit"`
	HasMore bool `json:"has_more"`
}

// NewPageResult builds a result for items fetched with p out of total.
func NewPageResult[T any](items []T, total int, p Page) PageResult[T] {
	if items == nil {
		items = []T{}
	}
	return PageResult[T]{
		Items:   items,
		Total:   total,
		Offset:  p.Offset,
		Limit:   p.Limit,
		HasMore: p.Offset+len(items) < total,
	}
}
