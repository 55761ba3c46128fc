// Package query holds the ordered search query sent to the listing API and
// mirrored into the page URL.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Pair is one name=value entry.
type Pair struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Query is an ordered multiset of pairs with URLSearchParams semantics.
// The zero value is an empty query.
type Query struct {
	pairs []Pair
}

// New builds a query from pairs, keeping their order.
func New(pairs ...Pair) Query {
	q := Query{pairs: make([]Pair, len(pairs))}
	copy(q.pairs, pairs)
	return q
}

// Parse reads a raw query string ("a=1&b=2", with or without the leading
// "?") keeping pair order, so Parse(q.Encode()) equals q.
func Parse(raw string) (Query, error) {
	raw = strings.TrimPrefix(raw, "?")
	var q Query
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		n, err := url.QueryUnescape(name)
		if err != nil {
			return Query{}, fmt.Errorf("decoding name %q: %w", name, err)
		}
		v, err := url.QueryUnescape(value)
		if err != nil {
			return Query{}, fmt.Errorf("decoding value of %q: %w", n, err)
		}
		q.pairs = append(q.pairs, Pair{Name: n, Value: v})
	}
	return q, nil
}

// FromValues converts url.Values. Names are sorted because map order is
// random; values of one name keep their order.
func FromValues(v url.Values) Query {
	names := make([]string, 0, len(v))
	for n := range v {
		names = append(names, n)
	}
	sort.Strings(names)
	var q Query
	for _, n := range names {
		for _, val := range v[n] {
			q.Add(n, val)
		}
	}
	return q
}

// Add appends a pair. Copies of a Query never share appended pairs.
func (q *Query) Add(name, value string) {
	n := len(q.pairs)
	q.pairs = append(q.pairs[:n:n], Pair{Name: name, Value: value})
}

// Set replaces the first pair called name and drops the others. When name
// is absent the pair is appended.
func (q *Query) Set(name, value string) {
	out := make([]Pair, 0, len(q.pairs))
	found := false
	for _, p := range q.pairs {
		if p.Name != name {
			out = append(out, p)
			continue
		}
		if !found {
			found = true
			out = append(out, Pair{Name: name, Value: value})
		}
	}
	if !found {
		out = append(out, Pair{Name: name, Value: value})
	}
	q.pairs = out
}

// Del removes every pair called name.
func (q *Query) Del(name string) {
	out := make([]Pair, 0, len(q.pairs))
	for _, p := range q.pairs {
		if p.Name != name {
			out = append(out, p)
		}
	}
	q.pairs = out
}

// Get returns the first value for name.
func (q Query) Get(name string) string {
	for _, p := range q.pairs {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func (q Query) Has(name string) bool {
	for _, p := range q.pairs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// All returns every value for name in order.
func (q Query) All(name string) []string {
	var out []string
	for _, p := range q.pairs {
		if p.Name == name {
			out = append(out, p.Value)
		}
	}
	return out
}

func (q Query) Len() int {
	return len(q.pairs)
}

// Pairs returns a copy of the pairs.
func (q Query) Pairs() []Pair {
	out := make([]Pair, len(q.pairs))
	copy(out, q.pairs)
	return out
}

func (q Query) Clone() Query {
	return New(q.pairs...)
}

// With returns a copy with name set to value.
func (q Query) With(name, value string) Query {
	c := q.Clone()
	c.Set(name, value)
	return c
}

// Without returns a copy without name.
func (q Query) Without(name string) Query {
	c := q.Clone()
	c.Del(name)
	return c
}

// Encode serializes in insertion order using form encoding.
func (q Query) Encode() string {
	return encodePairs(q.pairs)
}

// Canonical is the order-independent form used for equality: pairs are
// stably sorted by name, so repeated names keep their relative order.
func (q Query) Canonical() string {
	sorted := q.Pairs()
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return encodePairs(sorted)
}

// Equal compares canonical forms.
func (q Query) Equal(o Query) bool {
	return q.Canonical() == o.Canonical()
}

// URL appends the encoded query to path.
func (q Query) URL(path string) string {
	enc := q.Encode()
	if enc == "" {
		return path
	}
	return path + "?" + enc
}

// Values converts to url.Values.
func (q Query) Values() url.Values {
	v := make(url.Values, len(q.pairs))
	for _, p := range q.pairs {
		v[p.Name] = append(v[p.Name], p.Value)
	}
	return v
}

func (q Query) String() string {
	return q.Encode()
}

func encodePairs(pairs []Pair) string {
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}
