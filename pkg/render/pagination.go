package render

import (
	"strconv"

	"github.com/dominium-estate/dominium/pkg/query"
)

// Window is how many page links are shown on each side of the current page.
const Window = 2

// PageLink is one entry of the pagination strip.
type PageLink struct {
	Number   int
	Href     string
	Current  bool
	Disabled bool
}

// Pagination is the strip under the results grid.
type Pagination struct {
	Prev  PageLink
	Next  PageLink
	Pages []PageLink
}

// Paginate builds the strip for page of total. It returns nil when there is
// at most one page. Links keep every query parameter except page, which is
// replaced and moved last.
func Paginate(page, total int, q query.Query, basePath string) *Pagination {
	if total <= 1 {
		return nil
	}
	if page < 1 {
		page = 1
	}
	if page > total {
		page = total
	}
	base := q.Without(query.FieldPage)
	href := func(n int) string {
		return base.With(query.FieldPage, strconv.Itoa(n)).URL(basePath)
	}

	p := &Pagination{
		Prev: PageLink{Number: page - 1, Disabled: page <= 1},
		Next: PageLink{Number: page + 1, Disabled: page >= total},
	}
	if !p.Prev.Disabled {
		p.Prev.Href = href(page - 1)
	}
	if !p.Next.Disabled {
		p.Next.Href = href(page + 1)
	}

	start := max(1, page-Window)
	end := min(total, page+Window)
	for n := start; n <= end; n++ {
		l := PageLink{Number: n, Current: n == page}
		if !l.Current {
			l.Href = href(n)
		}
		p.Pages = append(p.Pages, l)
	}
	return p
}
