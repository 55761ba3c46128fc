package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/page"
	"github.com/dominium-estate/dominium/pkg/query"
	"github.com/dominium-estate/dominium/pkg/realtime"
)

type mockUpstream struct {
	mu        sync.Mutex
	queries   []string
	desired   []*bool
	searchErr error
	dictCalls int
}

func (m *mockUpstream) Search(ctx context.Context, endpoint string, q query.Query) (*client.ResultPage, error) {
	m.mu.Lock()
	m.queries = append(m.queries, q.Encode())
	err := m.searchErr
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	price := 120000.0
	return &client.ResultPage{
		Results: []client.Property{{
			ID:          3,
			Title:       "Three",
			Slug:        "three",
			Price:       &price,
			Rooms:       2,
			AbsoluteURL: "/property/three/",
		}},
		Count:      10,
		Page:       1,
		TotalPages: 2,
	}, nil
}

func (m *mockUpstream) ToggleLike(ctx context.Context, id int) (client.LikeResult, error) {
	if id == 404 {
		return client.LikeResult{}, &client.HTTPError{Status: http.StatusNotFound, Body: "no such property"}
	}
	return client.LikeResult{Status: "liked"}, nil
}

func (m *mockUpstream) ToggleFeatured(ctx context.Context, id int, desired *bool) (client.FeaturedResult, error) {
	m.mu.Lock()
	m.desired = append(m.desired, desired)
	m.mu.Unlock()
	return client.FeaturedResult{Featured: desired != nil && *desired}, nil
}

func (m *mockUpstream) PropertyTypes(ctx context.Context) (*client.DictionaryPage, error) {
	m.mu.Lock()
	m.dictCalls++
	m.mu.Unlock()
	return &client.DictionaryPage{Results: []client.Named{{ID: 1, Name: "Apartment"}, {ID: 2, Name: "House"}}, Count: 2}, nil
}

func (m *mockUpstream) DealTypes(ctx context.Context) (*client.DictionaryPage, error) {
	return &client.DictionaryPage{Results: []client.Named{{ID: 1, Name: "Sale"}}, Count: 1}, nil
}

func (m *mockUpstream) lastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		return ""
	}
	return m.queries[len(m.queries)-1]
}

func testOptions() Options {
	return Options{
		Endpoint:     "/api/properties/",
		PagePath:     "/search/",
		SiteURL:      "https://dominium.example",
		DefaultSort:  "date",
		Staff:        true,
		CSRFToken:    "tok-123",
		TextDelay:    40 * time.Millisecond,
		ControlDelay: 20 * time.Millisecond,
		Filters: []filter.Config{
			{Key: "price", Label: "Price", Min: 0, Max: 500000, Step: 1000, Symbol: "$"},
			{Key: "rooms", Label: "Rooms", Min: 1, Max: 5, Step: 1, OpenEnded: true},
		},
	}
}

func setupTestAPIServer(t *testing.T, up *mockUpstream, hub *realtime.Hub, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	log.SetOutput(io.Discard)
	s, err := NewServer(up, hub, opts)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return s, srv
}

func getDoc(t *testing.T, rawURL string) *goquery.Document {
	t.Helper()
	resp, err := http.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		t.Fatalf("parsing page: %v", err)
	}
	return doc
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := setupTestAPIServer(t, &mockUpstream{}, nil, testOptions())

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "ok" || health.Version == "" {
		t.Errorf("health = %+v", health)
	}
}

func TestSearchPageRendersShell(t *testing.T) {
	up := &mockUpstream{}
	_, srv := setupTestAPIServer(t, up, nil, testOptions())

	doc := getDoc(t, srv.URL+"/search/?q=flat&price_min=100000&property_type=2")

	if got := up.lastQuery(); got != "q=flat&price_min=100000&property_type=2&sort=date&page=1" {
		t.Errorf("upstream query = %q", got)
	}
	if v, _ := doc.Find("#q-main").Attr("value"); v != "flat" {
		t.Errorf("q = %q", v)
	}
	if v, _ := doc.Find(`select[name="property_type"] option[selected]`).Attr("value"); v != "2" {
		t.Errorf("selected property type = %q", v)
	}
	price := doc.Find(`.filter-range[data-filter-key="price"]`)
	if v, _ := price.Find(`input[name="price_min"]`).Attr("value"); v != "100000" {
		t.Errorf("price_min hidden = %q", v)
	}
	if got := price.Find(`[data-value-label="min"]`).Text(); got != "From $100 000" {
		t.Errorf("min label = %q", got)
	}
	if doc.Find(`#active-filter-chips [data-chip="price"]`).Length() != 1 {
		t.Error("price chip missing")
	}
	if doc.Find(`#active-filter-chips [data-chip="rooms"]`).Length() != 0 {
		t.Error("rooms chip rendered for an unset filter")
	}
	if v, _ := doc.Find("#sort-hidden").Attr("value"); v != "date" {
		t.Errorf("sort = %q", v)
	}
	if got := doc.Find("#sort-selected").Text(); got != "Newest first" {
		t.Errorf("sort label = %q", got)
	}
	if doc.Find(`#property-results [data-property-card="3"]`).Length() != 1 {
		t.Error("result card missing")
	}
	if got := doc.Find("#property-sort-wrapper .font-ermilov").Text(); got != "Found 10 properties" {
		t.Errorf("summary = %q", got)
	}
	if _, ok := doc.Find("body").Attr("data-user-is-staff"); !ok {
		t.Error("staff flag missing")
	}
	if v, _ := doc.Find("#form-csrf-token").Attr("value"); v != "tok-123" {
		t.Errorf("csrf = %q", v)
	}
}

// The page mirror must read back exactly the query the page was rendered
// for, or the first live search would differ from the initial one.
func TestShellRoundTripsThroughPageMirror(t *testing.T) {
	up := &mockUpstream{}
	_, srv := setupTestAPIServer(t, up, nil, testOptions())

	resp, err := http.Get(srv.URL + "/search/?q=flat&price_min=100000&per_page=12")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	p, err := page.Parse(string(body))
	if err != nil {
		t.Fatal(err)
	}
	widgets := p.Filters()
	if len(widgets) != 2 {
		t.Fatalf("filters = %+v", widgets)
	}
	if widgets[0].Config.Key != "price" || widgets[0].Config.Max != 500000 || widgets[0].CurrentMin != "100000" {
		t.Errorf("price widget = %+v", widgets[0])
	}
	if !widgets[1].Config.OpenEnded {
		t.Error("rooms lost its open-ended flag")
	}

	rendered, err := query.Parse(up.lastQuery())
	if err != nil {
		t.Fatal(err)
	}
	built := query.NewBuilder(p, "date").Build("")
	if !built.Equal(rendered) {
		t.Errorf("mirror builds %q, page was rendered for %q", built.Encode(), rendered.Encode())
	}
}

func TestSearchPageKeepsRenderingWhenUpstreamFails(t *testing.T) {
	up := &mockUpstream{searchErr: &client.HTTPError{Status: 500, Body: "boom"}}
	_, srv := setupTestAPIServer(t, up, nil, testOptions())

	doc := getDoc(t, srv.URL+"/")
	if doc.Find("[data-page-error]").Length() != 1 {
		t.Error("error banner missing")
	}
	if doc.Find("#property-results [data-empty-results]").Length() != 1 {
		t.Error("empty placeholder missing")
	}
}

func TestSearchJSON(t *testing.T) {
	_, srv := setupTestAPIServer(t, &mockUpstream{}, nil, testOptions())

	resp, err := http.Get(srv.URL + "/api/search?q=flat&currency=eur")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.URL != "/search/?q=flat&currency=eur&sort=date&page=1" {
		t.Errorf("url = %q", out.URL)
	}
	if out.Page == nil || out.Page.Count != 10 {
		t.Errorf("page = %+v", out.Page)
	}
	if !strings.Contains(out.HTML, `data-property-card="3"`) || !strings.Contains(out.HTML, "€") {
		t.Errorf("html = %q", out.HTML)
	}
	if out.Summary != "Found 10 properties" {
		t.Errorf("summary = %q", out.Summary)
	}
}

func TestSearchJSONUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"server error", &client.HTTPError{Status: 500, Body: "boom"}, http.StatusBadGateway},
		{"client error", &client.HTTPError{Status: 404, Body: "gone"}, http.StatusNotFound},
		{"parse error", &client.ParseError{Source: "search response"}, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := setupTestAPIServer(t, &mockUpstream{searchErr: tt.err}, nil, testOptions())
			resp, err := http.Get(srv.URL + "/api/search")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			var e ErrorResponse
			if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error != "Search failed" {
				t.Errorf("error body = %+v, %v", e, err)
			}
		})
	}
}

func TestLikeProxy(t *testing.T) {
	_, srv := setupTestAPIServer(t, &mockUpstream{}, nil, testOptions())

	tests := []struct {
		path   string
		status int
	}{
		{"/like/3/", http.StatusOK},
		{"/like/abc/", http.StatusBadRequest},
		{"/like/404/", http.StatusNotFound},
	}
	for _, tt := range tests {
		resp, err := http.Post(srv.URL+tt.path, "application/x-www-form-urlencoded", nil)
		if err != nil {
			t.Fatal(err)
		}
		var out map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&out)
		resp.Body.Close()
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.status)
		}
		if tt.status == http.StatusOK && out["status"] != "liked" {
			t.Errorf("%s: body = %v", tt.path, out)
		}
	}
}

func TestFeaturedProxy(t *testing.T) {
	up := &mockUpstream{}
	hub := realtime.NewHub(4)
	_, events := hub.Register()
	_, srv := setupTestAPIServer(t, up, hub, testOptions())

	resp, err := http.PostForm(srv.URL+"/properties/3/toggle-featured/", url.Values{"featured": {"true"}})
	if err != nil {
		t.Fatal(err)
	}
	var out client.FeaturedResult
	_ = json.NewDecoder(resp.Body).Decode(&out)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !out.Featured {
		t.Fatalf("status %d, body %+v", resp.StatusCode, out)
	}
	up.mu.Lock()
	desired := up.desired
	up.mu.Unlock()
	if len(desired) != 1 || desired[0] == nil || !*desired[0] {
		t.Errorf("desired = %v", desired)
	}

	select {
	case ev := <-events:
		if ev.Type != realtime.EventFeatured || ev.PropertyID != 3 || !ev.Featured {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no hub event")
	}
}

func TestFeaturedProxyRequiresStaff(t *testing.T) {
	opts := testOptions()
	opts.Staff = false
	_, srv := setupTestAPIServer(t, &mockUpstream{}, nil, opts)

	resp, err := http.Post(srv.URL+"/properties/3/toggle-featured/", "application/x-www-form-urlencoded", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestWebsocketSession(t *testing.T) {
	up := &mockUpstream{}
	_, srv := setupTestAPIServer(t, up, nil, testOptions())

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/search?q=flat"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil := func(typ string) realtime.Message {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var m realtime.Message
			if err := conn.ReadJSON(&m); err != nil {
				t.Fatalf("waiting for %q: %v", typ, err)
			}
			if m.Type == typ {
				return m
			}
		}
	}

	init := readUntil(realtime.OutInit)
	if len(init.Filters) != 2 || init.URL != "/search/?q=flat&sort=date&page=1" {
		t.Fatalf("init = %+v", init)
	}

	if err := conn.WriteJSON(realtime.Inbound{Type: realtime.MsgNavigate, Href: "/search/?q=flat&page=2"}); err != nil {
		t.Fatal(err)
	}
	hist := readUntil(realtime.OutHistory)
	if hist.URL != "/search/?q=flat&page=2&sort=date" {
		t.Errorf("history url = %q", hist.URL)
	}
}

func TestSetOptionsAppliesToNewRequests(t *testing.T) {
	s, srv := setupTestAPIServer(t, &mockUpstream{}, nil, testOptions())

	opts := testOptions()
	opts.DefaultSort = "price_asc"
	if err := s.SetOptions(opts); err != nil {
		t.Fatal(err)
	}
	doc := getDoc(t, srv.URL+"/search")
	if v, _ := doc.Find("#sort-hidden").Attr("value"); v != "price_asc" {
		t.Errorf("sort = %q", v)
	}
}

func TestDictionariesAreCached(t *testing.T) {
	up := &mockUpstream{}
	_, srv := setupTestAPIServer(t, up, nil, testOptions())

	getDoc(t, srv.URL+"/")
	doc := getDoc(t, srv.URL+"/")
	if doc.Find(`select[name="property_type"] option`).Length() != 3 {
		t.Error("property type options missing")
	}
	up.mu.Lock()
	defer up.mu.Unlock()
	if up.dictCalls != 1 {
		t.Errorf("dictionary fetched %d times", up.dictCalls)
	}
}

func TestCorsAndCompression(t *testing.T) {
	_, srv := setupTestAPIServer(t, &mockUpstream{}, nil, testOptions())

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/search", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("preflight: %d %v", resp.StatusCode, resp.Header)
	}

	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/search/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get("Content-Encoding") != "gzip" {
		t.Errorf("page not compressed: %v", resp.Header)
	}
}
