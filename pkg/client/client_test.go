package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dominium-estate/dominium/pkg/cache"
	"github.com/dominium-estate/dominium/pkg/query"
)

const samplePage = `{
  "results": [
    {"id": 1, "title": "Loft", "slug": "loft", "address": "Kyiv", "price": 120000, "area": 80, "rooms": 2,
     "property_type": {"id": 1, "name": "Apartment"}, "deal_type": {"id": 2, "name": "Sale"},
     "features": [], "main_image": {"url": "/m/1.jpg"}, "images": [], "featured_homepage": true,
     "absolute_url": "http://x/property/loft/"},
    {"id": 2, "title": "House", "slug": "house", "address": "Lviv", "price": null, "area": 150, "rooms": 5,
     "property_type": null, "deal_type": null, "features": [], "main_image": null, "images": [],
     "featured_homepage": false, "absolute_url": "http://x/property/house/"}
  ],
  "count": 2, "page": 1, "total_pages": 1, "page_size": 10, "ordering": "-created_at", "status": "active"
}`

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestSearchDecodesPage(t *testing.T) {
	var gotQuery, gotAccept, gotXRW string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotAccept = r.Header.Get("Accept")
		gotXRW = r.Header.Get("X-Requested-With")
		io.WriteString(w, samplePage)
	}, Options{})

	q := query.New(query.Pair{Name: "q", Value: "loft"}, query.Pair{Name: "sort", Value: "date"}, query.Pair{Name: "page", Value: "1"})
	page, err := c.Search(context.Background(), "/api/properties/", q)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if gotQuery != "q=loft&sort=date&page=1" {
		t.Errorf("query sent = %q", gotQuery)
	}
	if gotAccept != "application/json" || gotXRW != "XMLHttpRequest" {
		t.Errorf("headers: Accept=%q X-Requested-With=%q", gotAccept, gotXRW)
	}
	if page.Count != 2 || len(page.Results) != 2 || page.Results[1].Price != nil || *page.Results[0].Price != 120000 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Results[0].MainImage == nil || page.Results[1].MainImage != nil {
		t.Fatal("main_image decoding wrong")
	}
}

func TestSearchHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}, Options{})

	_, err := c.Search(context.Background(), "", query.Query{})
	var he *HTTPError
	if !errors.As(err, &he) || he.Status != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}
	if IsCancelled(err) {
		t.Fatal("HTTP error must not look cancelled")
	}
}

func TestSearchParseError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	}, Options{})

	_, err := c.Search(context.Background(), "", query.Query{})
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestSearchCancelled(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, Options{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Search(ctx, "", query.Query{})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestSearchUsesCache(t *testing.T) {
	var hits atomic.Int32
	cc, err := cache.New(cache.Config{TTL: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	defer cc.Stop()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, samplePage)
	}, Options{Cache: cc})

	a := query.New(query.Pair{Name: "page", Value: "1"}, query.Pair{Name: "sort", Value: "date"})
	b := query.New(query.Pair{Name: "sort", Value: "date"}, query.Pair{Name: "page", Value: "1"})
	for _, q := range []query.Query{a, b, a} {
		if _, err := c.Search(context.Background(), "", q); err != nil {
			t.Fatalf("Search: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one upstream hit for equal queries, got %d", hits.Load())
	}
}

func TestToggleLikeSendsCSRF(t *testing.T) {
	var gotPath, gotToken string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-CSRFToken")
		io.WriteString(w, `{"status":"liked"}`)
	}, Options{CSRFToken: "secret"})

	res, err := c.ToggleLike(context.Background(), 42)
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !res.Liked() || gotPath != "/like/42/" || gotToken != "secret" {
		t.Fatalf("liked=%v path=%q token=%q", res.Liked(), gotPath, gotToken)
	}
}

func TestToggleFeaturedForm(t *testing.T) {
	var gotFeatured string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotFeatured = r.PostForm.Get("featured")
		io.WriteString(w, `{"featured":true}`)
	}, Options{})

	want := true
	res, err := c.ToggleFeatured(context.Background(), 7, &want)
	if err != nil {
		t.Fatalf("ToggleFeatured: %v", err)
	}
	if !res.Featured || gotFeatured != "true" {
		t.Fatalf("featured=%v form=%q", res.Featured, gotFeatured)
	}
}

func TestBulkAction(t *testing.T) {
	var payload struct {
		Action string `json:"action"`
		IDs    []int  `json:"ids"`
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/properties/bulk-action/" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&payload)
		io.WriteString(w, `{"status":"ok","processed":2,"action":"archive"}`)
	}, Options{})

	res, err := c.BulkAction(context.Background(), BulkArchive, []int{1, 2})
	if err != nil {
		t.Fatalf("BulkAction: %v", err)
	}
	if res.Processed != 2 || payload.Action != "archive" || len(payload.IDs) != 2 {
		t.Fatalf("res=%+v payload=%+v", res, payload)
	}

	if _, err := c.BulkAction(context.Background(), "explode", []int{1}); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if _, err := c.BulkAction(context.Background(), BulkDelete, nil); err == nil {
		t.Fatal("expected error for empty ids")
	}
}

func TestDictionaries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results":[{"id":1,"name":"Apartment","slug":"apartment"}],"count":1}`)
	}, Options{})

	d, err := c.PropertyTypes(context.Background())
	if err != nil || d.Count != 1 || d.Results[0].Slug != "apartment" {
		t.Fatalf("PropertyTypes = %+v, %v", d, err)
	}
}

func TestNewRejectsRelativeBase(t *testing.T) {
	if _, err := New(Options{BaseURL: "/relative"}); err == nil {
		t.Fatal("expected error")
	}
}
