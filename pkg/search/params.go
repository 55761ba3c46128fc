package search

import (
	"slices"
	"strconv"

	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/query"
)

// PageSizeChoices are the page sizes the listing site accepts.
var PageSizeChoices = []int{9, 12, 18, 24}

// Params is a validated search request as received from a browser URL.
// It is used by the HTTP handlers for the first server-side render and the
// JSON proxy, so both agree with what the orchestrator would send.
type Params struct {
	// Query is the canonicalized query: sort and page always present,
	// per_page only when it names a valid choice.
	Query query.Query

	// Page is the 1-based page number. Defaults to 1.
	Page int

	// PerPage is the selected page size. Defaults to the first choice.
	PerPage int

	// Sort is the sort key. Defaults to the configured default sort.
	Sort string

	// Currency is the normalized display currency, empty when the request
	// does not ask for one.
	Currency string
}

// ParamOptions tunes ParseParams.
type ParamOptions struct {
	DefaultSort     string
	PageSizeChoices []int
}

// ParseParams parses a raw query string into Params.
//
// Behavior:
//   - Pair order is kept, so the resulting URL matches what the browser sent
//   - A missing sort is set to the default sort
//   - A missing, non-numeric or non-positive page becomes "1"
//   - An unknown per_page is dropped and PerPage falls back to the first choice
//   - currency is upper-cased and validated against the supported currencies
//
// Parameters:
//   - raw: the URL query string, with or without the leading "?"
//   - opts: defaults; zero values use query.DefaultSort and PageSizeChoices
//
// Returns:
//   - Params: the validated request
//   - error: when raw contains an invalid escape sequence
func ParseParams(raw string, opts ParamOptions) (Params, error) {
	q, err := query.Parse(raw)
	if err != nil {
		return Params{}, err
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = query.DefaultSort
	}
	choices := opts.PageSizeChoices
	if len(choices) == 0 {
		choices = PageSizeChoices
	}

	p := Params{Page: 1, PerPage: choices[0]}

	q = query.EnsureSort(q, opts.DefaultSort)
	p.Sort = q.Get(query.FieldSort)

	if v := q.Get(query.FieldPerPage); v != "" {
		if n, err := strconv.Atoi(v); err == nil && slices.Contains(choices, n) {
			p.PerPage = n
		} else {
			q.Del(query.FieldPerPage)
		}
	}

	if n, err := strconv.Atoi(q.Get(query.FieldPage)); err == nil && n > 0 {
		p.Page = n
	}
	q.Set(query.FieldPage, strconv.Itoa(p.Page))

	if c := q.Get("currency"); c != "" {
		p.Currency = currency.Normalize(c)
	}

	p.Query = q
	return p, nil
}
