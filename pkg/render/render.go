// Package render turns a search result page into the HTML of the results
// region: property cards, the pagination strip and the empty placeholder.
// It also writes the summary, sort label and page-size display, and keeps
// the per-card control bindings in sync after every render.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/locale"
	"github.com/dominium-estate/dominium/pkg/query"
)

//go:embed templates/*.html
var templateFS embed.FS

// Target is the page region the renderer writes into.
type Target interface {
	SetResults(html string)
	SetSummary(text string)
	SetSortState(key, label string)
	SetPerPage(v string)
	BindableIDs() []string
}

// Context carries the per-user inputs of a render.
type Context struct {
	LikedIDs    map[int]bool
	UserIsStaff bool
	// BasePath is the search page path used in pagination links.
	BasePath string
	// SiteURL prefixes /property/<slug>/ when a listing has no absolute_url.
	SiteURL string
	// Currency selects converted prices; empty shows the stored amount.
	Currency string
	Rates    currency.Rates
}

// Card is the view model of one listing.
type Card struct {
	ID           int
	Title        string
	URL          string
	Image        string
	Price        string
	PriceSuffix  string
	OtherPrices  []string
	Address      string
	TypeName     string
	AreaLabel    string
	RoomsLabel   string
	DealName     string
	DealClass    string
	Liked        bool
	Featured     bool
	ShowFeatured bool
}

type resultsView struct {
	Cards      []Card
	Pagination *Pagination
}

// Renderer is bound to one page; its Bindings belong to that page.
type Renderer struct {
	tmpl     *template.Template
	format   *locale.Formatter
	bindings *Bindings
}

// New parses the templates. A nil formatter uses locale.Default.
func New(f *locale.Formatter) (*Renderer, error) {
	if f == nil {
		f = locale.Default()
	}
	tmpl, err := template.New("results").Funcs(TemplateFuncs(f)).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing result templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, format: f, bindings: NewBindings()}, nil
}

// Bindings exposes the binding registry of this renderer.
func (r *Renderer) Bindings() *Bindings {
	return r.bindings
}

// Render writes res into t and rebinds the new controls. It returns the ids
// that were bound by this render.
func (r *Renderer) Render(t Target, res *client.ResultPage, q query.Query, rc Context) ([]string, error) {
	html, err := r.Fragment(res, q, rc)
	if err != nil {
		return nil, err
	}
	t.SetResults(html)
	t.SetSummary(Summary(res))

	sortKey := q.Get(query.FieldSort)
	if sortKey == "" {
		sortKey = query.DefaultSort
	}
	t.SetSortState(sortKey, SortLabel(sortKey))

	perPage := q.Get(query.FieldPerPage)
	if perPage == "" {
		perPage = q.Get("page_size")
	}
	t.SetPerPage(perPage)

	return r.bindings.Sync(t.BindableIDs()), nil
}

// Fragment renders the results region only.
func (r *Renderer) Fragment(res *client.ResultPage, q query.Query, rc Context) (string, error) {
	view := resultsView{}
	if !res.Empty() {
		view.Cards = make([]Card, 0, len(res.Results))
		for _, p := range res.Results {
			view.Cards = append(view.Cards, r.Card(p, rc))
		}
		view.Pagination = Paginate(res.Page, res.TotalPages, q, rc.BasePath)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "results", view); err != nil {
		return "", fmt.Errorf("rendering results: %w", err)
	}
	return buf.String(), nil
}

// Card builds the view model of one listing.
func (r *Renderer) Card(p client.Property, rc Context) Card {
	c := Card{
		ID:           p.ID,
		Title:        p.Title,
		URL:          p.AbsoluteURL,
		Image:        Placeholder,
		Address:      p.Address,
		TypeName:     "Type not set",
		DealName:     "Deal",
		Liked:        rc.LikedIDs[p.ID],
		Featured:     p.FeaturedHomepage,
		ShowFeatured: rc.UserIsStaff,
	}
	if c.URL == "" {
		c.URL = strings.TrimRight(rc.SiteURL, "/") + "/property/" + p.Slug + "/"
	}
	switch {
	case p.MainImage != nil && p.MainImage.URL != "":
		c.Image = p.MainImage.URL
	case len(p.Images) > 0 && p.Images[0].URL != "":
		c.Image = p.Images[0].URL
	}
	if p.PropertyType != nil && p.PropertyType.Name != "" {
		c.TypeName = p.PropertyType.Name
	}
	if p.DealType != nil && p.DealType.Name != "" {
		c.DealName = p.DealType.Name
	}
	kind := dealKind(c.DealName)
	c.DealClass = dealClass(kind)
	if kind == "rent" {
		c.PriceSuffix = " /mo"
	}
	if p.Area > 0 {
		c.AreaLabel = r.format.Number(p.Area) + " m²"
	}
	if p.Rooms > 0 {
		c.RoomsLabel = strconv.Itoa(p.Rooms) + plural(p.Rooms, " room", " rooms")
	}

	c.Price = r.FormatPrice(p.Price, rc.Currency, rc.Rates)
	if p.Price != nil && rc.Currency != "" {
		selected := currency.Normalize(rc.Currency)
		for _, o := range currency.Options {
			if o.Code == selected {
				continue
			}
			c.OtherPrices = append(c.OtherPrices, r.FormatPrice(p.Price, o.Code, rc.Rates))
		}
	}
	return c
}

// FormatPrice renders a USD price. A nil price is "Price on request". With a
// currency code the amount is converted and prefixed with its symbol.
func (r *Renderer) FormatPrice(price *float64, code string, rates currency.Rates) string {
	if price == nil {
		return "Price on request"
	}
	if code == "" {
		return r.format.Integer(*price)
	}
	if rates == nil {
		rates = currency.DefaultRates()
	}
	amount := currency.Convert(*price, rates, code)
	return currency.Symbol(code) + r.format.Number(float64(amount))
}

// Summary is the result count line.
func Summary(res *client.ResultPage) string {
	n := 0
	if res != nil {
		n = res.Count
	}
	return "Found " + strconv.Itoa(n) + plural(n, " property", " properties")
}
