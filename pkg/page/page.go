// Package page is the server-side mirror of a search page. It wraps a
// goquery document and exposes the reads and writes the search engine needs:
// form serialization, filter widgets, result regions and card state.
//
// A Page is safe for concurrent use. Every exported method takes the page
// lock, so readers never observe a half-applied render.
package page

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// Selectors of the page regions the engine touches.
const (
	MainFormSelector    = "#main-search-form"
	SearchFormSelector  = "form[data-search-form]"
	ResultsSelector     = "#property-results"
	SummarySelector     = "#property-sort-wrapper .font-ermilov"
	SortLabelSelector   = "#sort-selected"
	SortHiddenSelector  = "#sort-hidden"
	PerPageHidden       = "#per-page-hidden"
	PerPageDisplay      = "[data-per-page-display]"
	ChipsSelector       = "#active-filter-chips"
	LikedIDsSelector    = "#liked-ids-data"
	CSRFSelector        = "#form-csrf-token"
	FilterRangeSelector = ".filter-range"
	LoaderSelector      = "#search-loading-indicator"
)

// Page is a mutable HTML document.
type Page struct {
	mu          sync.Mutex
	doc         *goquery.Document
	formDefault string
}

// Load parses a full HTML page.
func Load(r io.Reader) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	p := &Page{doc: doc}
	if form := p.form(); form.Length() > 0 {
		if html, err := goquery.OuterHtml(form); err == nil {
			p.formDefault = html
		}
	}
	return p, nil
}

// Parse is Load for a string.
func Parse(html string) (*Page, error) {
	return Load(strings.NewReader(html))
}

// HTML renders the whole document.
func (p *Page) HTML() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Html()
}

// Inner returns the inner HTML of the first element matching selector.
func (p *Page) Inner(selector string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(selector).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", selector)
	}
	return sel.Html()
}

// Text returns the text of the first element matching selector.
func (p *Page) Text(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return strings.TrimSpace(p.doc.Find(selector).First().Text())
}

// Attr returns an attribute of the first element matching selector.
func (p *Page) Attr(selector, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).First().Attr(name)
}

// Count returns how many elements match selector.
func (p *Page) Count(selector string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Find(selector).Length()
}

// Each calls fn for every element matching selector while holding the lock.
// fn must not call back into the Page.
func (p *Page) Each(selector string, fn func(i int, s *goquery.Selection)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(selector).Each(fn)
}

// UserIsStaff reads body[data-user-is-staff].
func (p *Page) UserIsStaff() bool {
	v, _ := p.Attr("body", "data-user-is-staff")
	return v == "1"
}

// CSRFToken returns the token rendered into the page, if any.
func (p *Page) CSRFToken() string {
	if v, ok := p.Attr(CSRFSelector, "value"); ok && v != "" {
		return v
	}
	v, _ := p.Attr("input[name=csrfmiddlewaretoken]", "value")
	return v
}

// LikedIDsRaw returns the JSON text of the liked-ids data node.
func (p *Page) LikedIDsRaw() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	sel := p.doc.Find(LikedIDsSelector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return sel.Text(), true
}

// SetLoading toggles the loader and the dimmed results state.
func (p *Page) SetLoading(loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	loader := p.doc.Find(LoaderSelector)
	results := p.doc.Find(ResultsSelector)
	if loading {
		loader.RemoveClass("hidden")
		results.AddClass("opacity-50", "pointer-events-none")
		return
	}
	loader.AddClass("hidden")
	results.RemoveClass("opacity-50", "pointer-events-none")
}

func (p *Page) form() *goquery.Selection {
	if f := p.doc.Find(MainFormSelector).First(); f.Length() > 0 {
		return f
	}
	return p.doc.Find(SearchFormSelector).First()
}
