package page

import (
	"os"
	"strings"
	"testing"

	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/query"
)

func loadFixture(t *testing.T) *Page {
	t.Helper()
	f, err := os.Open("testdata/search.html")
	if err != nil {
		t.Fatalf("open fixture: %v", err)
	}
	defer f.Close()
	p, err := Load(f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return p
}

func TestFormValues(t *testing.T) {
	p := loadFixture(t)
	got := query.New(p.FormValues()...).Encode()
	want := "q=flat&property_type=2&features=pool&deal_type=sale&note=hello&price_min=&price_max=&rooms_min=&rooms_max="
	if got != want {
		t.Fatalf("FormValues:\n got  %s\n want %s", got, want)
	}
}

func TestPageAttributes(t *testing.T) {
	p := loadFixture(t)
	if !p.UserIsStaff() {
		t.Error("expected staff user")
	}
	if p.CSRFToken() != "tok-123" {
		t.Errorf("CSRFToken = %q", p.CSRFToken())
	}
	if raw, ok := p.LikedIDsRaw(); !ok || strings.TrimSpace(raw) != "[3, 7]" {
		t.Errorf("LikedIDsRaw = %q, %v", raw, ok)
	}
	if p.SortValue() != "price_asc" || p.PerPageValue() != "12" {
		t.Errorf("sort/per-page = %q/%q", p.SortValue(), p.PerPageValue())
	}
}

func TestSetValueAndChecked(t *testing.T) {
	p := loadFixture(t)
	if !p.SetValue("q", "house") {
		t.Fatal("q not found")
	}
	if !p.SetValue("property_type", "1") {
		t.Fatal("select not found")
	}
	if !p.SetChecked("features", "garden", true) {
		t.Fatal("checkbox not found")
	}
	p.SetChecked("features", "pool", false)
	p.SetChecked("deal_type", "rent", true)

	q := query.New(p.FormValues()...)
	if q.Get("q") != "house" || q.Get("property_type") != "1" {
		t.Fatalf("unexpected values %s", q.Encode())
	}
	if f := q.All("features"); len(f) != 1 || f[0] != "garden" {
		t.Fatalf("features = %v", f)
	}
	if d := q.All("deal_type"); len(d) != 1 || d[0] != "rent" {
		t.Fatalf("deal_type = %v", d)
	}

	p.ResetForm()
	q = query.New(p.FormValues()...)
	if q.Get("q") != "flat" || q.Get("deal_type") != "sale" {
		t.Fatalf("reset did not restore defaults: %s", q.Encode())
	}
}

func TestFiltersDiscoveryAndApply(t *testing.T) {
	p := loadFixture(t)
	widgets := p.Filters()
	if len(widgets) != 2 {
		t.Fatalf("expected 2 widgets, got %d", len(widgets))
	}
	price := widgets[0]
	if price.Config.Key != "price" || price.Config.Max != 500000 || price.Config.Symbol != "$" || price.CurrentMin != "100000" {
		t.Fatalf("unexpected price widget %+v", price)
	}
	if !widgets[1].Config.OpenEnded || widgets[1].Config.MinField != "rooms_min" {
		t.Fatalf("unexpected rooms widget %+v", widgets[1])
	}

	set := filter.NewSet(nil, p, nil)
	for _, w := range widgets {
		set.Add(w.Config, w.CurrentMin, w.CurrentMax)
	}

	if v, _ := p.Attr(`input[name="price_min"]`, "value"); v != "100000" {
		t.Fatalf("hidden price_min = %q", v)
	}
	if got := p.Text(`[data-filter-key="price"] [data-value-label="max"]`); got != "Up to $500 000" {
		t.Fatalf("max label = %q", got)
	}
	if got := p.Text(`#active-filter-chips [data-chip="price"]`); !strings.Contains(got, "from $100 000") {
		t.Fatalf("chip = %q", got)
	}

	c, _ := set.Get("price")
	c.Reset()
	if p.Count(`#active-filter-chips [data-chip]`) != 0 {
		t.Fatal("chip should be removed after reset")
	}
}

func TestResultsAndCards(t *testing.T) {
	p := loadFixture(t)
	p.SetResults(`<div><button class="like-button" data-property-id="5" data-bind-id="like:5"><i class="ri-heart-line text-coolSage"></i></button>` +
		`<button data-featured-toggle data-property-id="5" data-featured="false" data-bind-id="featured:5"><i class="ri-star-line"></i></button>` +
		`<button data-share-toggle data-property-id="5" data-share-url="https://x/p/5/" data-share-title="Nice" data-bind-id="share:5"></button></div>`)

	ids := p.BindableIDs()
	if strings.Join(ids, ",") != "like:5,featured:5,share:5" {
		t.Fatalf("BindableIDs = %v", ids)
	}

	if !p.SetLiked("5", true) || p.Count(".like-button i.ri-heart-fill") != 1 {
		t.Fatal("like icon not switched")
	}
	if !p.SetFeatured("5", true) {
		t.Fatal("featured toggle missing")
	}
	if f, ok := p.Featured("5"); !ok || !f {
		t.Fatal("expected featured")
	}
	if u, title, ok := p.ShareTarget("5"); !ok || u != "https://x/p/5/" || title != "Nice" {
		t.Fatalf("ShareTarget = %q %q %v", u, title, ok)
	}

	p.SetSummary("Found 1 properties")
	if p.Text(SummarySelector) != "Found 1 properties" {
		t.Fatal("summary not written")
	}
	p.SetSortState("date", "Newest first")
	if p.SortValue() != "date" || p.Text(SortLabelSelector) != "Newest first" {
		t.Fatal("sort state not written")
	}
	p.SetLoading(true)
	if p.Count("#property-results.opacity-50") != 1 {
		t.Fatal("loading state not applied")
	}
	p.SetLoading(false)
	if p.Count("#search-loading-indicator.hidden") != 1 {
		t.Fatal("loader not hidden")
	}
}
