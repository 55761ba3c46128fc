package query

import (
	"strings"
	"unicode"
)

// Field names the builder reads or normalizes.
const (
	FieldQuery   = "q"
	FieldSort    = "sort"
	FieldPerPage = "per_page"
	FieldRooms   = "rooms"
	FieldPage    = "page"

	DefaultSort = "date"
)

// FormSource exposes the search form state the builder serializes.
type FormSource interface {
	// FormValues returns the successful controls of the search form in
	// document order.
	FormValues() []Pair
	// SortValue is the hidden sort field, empty when unset.
	SortValue() string
	// PerPageValue is the hidden page-size field, empty when unset.
	PerPageValue() string
}

// Builder turns form state into a Query.
type Builder struct {
	src         FormSource
	defaultSort string
}

// NewBuilder returns a builder reading from src. An empty defaultSort means
// DefaultSort.
func NewBuilder(src FormSource, defaultSort string) *Builder {
	if defaultSort == "" {
		defaultSort = DefaultSort
	}
	return &Builder{src: src, defaultSort: defaultSort}
}

// Build serializes the form. Empty values are skipped. page overrides any
// page carried by the form; with neither, page is "1". Identical form state
// always produces an identical encoding.
func (b *Builder) Build(page string) Query {
	var q Query
	for _, p := range b.src.FormValues() {
		if p.Value == "" {
			continue
		}
		q.Add(p.Name, p.Value)
	}

	if s := b.src.SortValue(); s != "" {
		q.Set(FieldSort, s)
	} else if !q.Has(FieldSort) {
		q.Set(FieldSort, b.defaultSort)
	}
	if pp := b.src.PerPageValue(); pp != "" {
		q.Set(FieldPerPage, pp)
	}
	if rooms := q.Get(FieldRooms); rooms != "" {
		q.Del(FieldRooms)
		q.Set(FieldRooms, stripSpaces(rooms))
	}

	switch {
	case page != "":
		q.Set(FieldPage, page)
	case q.Get(FieldPage) != "":
		q.Set(FieldPage, q.Get(FieldPage))
	default:
		q.Set(FieldPage, "1")
	}
	return q
}

// Sort is the hidden sort value, or the default sort when unset.
func (b *Builder) Sort() string {
	if s := b.src.SortValue(); s != "" {
		return s
	}
	return b.defaultSort
}

// EnsureSort sets sort to fallback when q has none.
func EnsureSort(q Query, fallback string) Query {
	if q.Has(FieldSort) {
		return q
	}
	if fallback == "" {
		fallback = DefaultSort
	}
	return q.With(FieldSort, fallback)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
