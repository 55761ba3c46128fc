package query

import (
	"net/url"
	"testing"
)

func TestSetReplacesFirstAndDropsRest(t *testing.T) {
	q := New(Pair{"a", "1"}, Pair{"sort", "x"}, Pair{"b", "2"}, Pair{"sort", "y"})
	q.Set("sort", "price_asc")
	if got := q.Encode(); got != "a=1&sort=price_asc&b=2" {
		t.Fatalf("Encode() = %q", got)
	}

	q.Set("page", "3")
	if got := q.Encode(); got != "a=1&sort=price_asc&b=2&page=3" {
		t.Fatalf("Encode() = %q", got)
	}
}

func TestCopiesDoNotShareState(t *testing.T) {
	base := New(Pair{"q", "flat"})
	derived := base.With("page", "2")
	base.Add("page", "9")

	if derived.Get("page") != "2" {
		t.Fatalf("derived page changed: %q", derived.Get("page"))
	}
	if base.Encode() != "q=flat&page=9" {
		t.Fatalf("base = %q", base.Encode())
	}
}

func TestEqualIgnoresOrder(t *testing.T) {
	a := New(Pair{"q", "kyiv"}, Pair{"page", "1"}, Pair{"sort", "date"})
	b := New(Pair{"sort", "date"}, Pair{"q", "kyiv"}, Pair{"page", "1"})
	if !a.Equal(b) {
		t.Fatalf("expected %q == %q", a.Canonical(), b.Canonical())
	}
	if a.Encode() == b.Encode() {
		t.Fatal("insertion order should be kept by Encode")
	}

	c := b.With("page", "2")
	if a.Equal(c) {
		t.Fatal("different page must not be equal")
	}
}

func TestRoundTripThroughURL(t *testing.T) {
	tests := []struct {
		name string
		q    Query
	}{
		{"empty term", New(Pair{"q", ""}, Pair{"sort", "price_asc"}, Pair{"page", "2"})},
		{"escaping", New(Pair{"q", "2 rooms & balcony"}, Pair{"features", "a"}, Pair{"features", "b"})},
		{"unicode", New(Pair{"q", "Київ центр"}, Pair{"page", "1"})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.q.URL("/search/"))
			if err != nil {
				t.Fatalf("url.Parse: %v", err)
			}
			back, err := Parse(u.RawQuery)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if back.Encode() != tt.q.Encode() {
				t.Fatalf("round trip %q -> %q", tt.q.Encode(), back.Encode())
			}
		})
	}
}

func TestParseRejectsBadEscapes(t *testing.T) {
	if _, err := Parse("q=%zz"); err == nil {
		t.Fatal("expected error for invalid escape")
	}
	q, err := Parse("?a=1&&b")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if q.Len() != 2 || q.Get("b") != "" || !q.Has("b") {
		t.Fatalf("unexpected pairs %+v", q.Pairs())
	}
}

func TestFromValuesIsDeterministic(t *testing.T) {
	v := url.Values{"sort": {"date"}, "q": {"house"}, "page": {"1"}}
	for i := 0; i < 10; i++ {
		if got := FromValues(v).Encode(); got != "page=1&q=house&sort=date" {
			t.Fatalf("FromValues = %q", got)
		}
	}
}
