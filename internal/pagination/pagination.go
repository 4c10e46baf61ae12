// Package pagination computes page windows for every listing endpoint.
package pagination

const (
	DefaultPerPage = 15
	MinPerPage     = 5
	MaxPerPage     = 30
)

// Limits bounds the page size. The zero value is not usable; start from
// DefaultLimits.
type Limits struct {
	Default int
	Min     int
	Max     int
}

var DefaultLimits = Limits{Default: DefaultPerPage, Min: MinPerPage, Max: MaxPerPage}

type Page struct {
	Page       int
	PerPage    int
	TotalPages int
	Offset     int
}

// Paginate resolves a page with DefaultLimits.
func Paginate(total int, page, perPage *int) Page {
	return DefaultLimits.Paginate(total, page, perPage)
}

// Paginate resolves the requested page against total. A nil page or
// perPage means the parameter was absent. Requests past the last page snap
// to the last page instead of returning an empty window.
func (l Limits) Paginate(total int, page, perPage *int) Page {
	pp := l.Default
	if perPage != nil {
		pp = *perPage
	}
	if pp < l.Min {
		pp = l.Min
	}
	if pp > l.Max {
		pp = l.Max
	}
	if pp < 1 {
		pp = 1
	}

	p := 1
	if page != nil && *page >= 1 {
		p = *page
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pp - 1) / pp
	}
	if totalPages > 0 && p >= totalPages {
		p = totalPages
	}

	return Page{
		Page:       p,
		PerPage:    pp,
		TotalPages: totalPages,
		Offset:     (p - 1) * pp,
	}
}

// Normalize fills missing or inconsistent fields from DefaultLimits.
func (l Limits) Normalize() Limits {
	if l.Min <= 0 {
		l.Min = MinPerPage
	}
	if l.Max <= 0 {
		l.Max = MaxPerPage
	}
	if l.Max < l.Min {
		l.Max = l.Min
	}
	if l.Default <= 0 {
		l.Default = DefaultPerPage
	}
	if l.Default < l.Min {
		l.Default = l.Min
	}
	if l.Default > l.Max {
		l.Default = l.Max
	}
	return l
}

// Envelope is the response wrapper shared by the listing endpoints.
type Envelope[T any] struct {
	Total       int `json:"total"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Data        []T `json:"data"`
}

func NewEnvelope[T any](total int, p Page, data []T) Envelope[T] {
	if data == nil {
		data = []T{}
	}
	return Envelope[T]{
		Total:       total,
		PerPage:     p.PerPage,
		CurrentPage: p.Page,
		LastPage:    p.TotalPages,
		Data:        data,
	}
}
