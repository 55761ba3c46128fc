package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/config"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/locale"
	"github.com/dominium-estate/dominium/pkg/query"
	"github.com/dominium-estate/dominium/pkg/render"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Run one search against the listing site",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Free text query",
			},
			&cli.StringFlag{
				Name:  "property-type",
				Usage: "Property type id",
			},
			&cli.StringFlag{
				Name:  "deal-type",
				Usage: "Deal type id",
			},
			&cli.StringSliceFlag{
				Name:  "filter",
				Usage: "Range filter as key=min:max, either bound may be empty (e.g. price=50000:, rooms=2:3)",
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort key (" + strings.Join(render.SortKeys, ", ") + ")",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Result page",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "per-page",
				Usage: "Page size",
			},
			&cli.StringFlag{
				Name:  "currency",
				Usage: "Show prices converted to USD, EUR or UAH",
			},
			&cli.BoolFlag{
				Name:  "no-pager",
				Usage: "Disable pager and output directly to terminal",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			in := searchInput{
				Text:         c.String("query"),
				PropertyType: c.String("property-type"),
				DealType:     c.String("deal-type"),
				Filters:      c.StringSlice("filter"),
				Sort:         c.String("sort"),
				Page:         c.Int("page"),
				PerPage:      c.Int("per-page"),
				Currency:     c.String("currency"),
			}
			return searchListings(ctx, c.String("config"), in, c.Bool("no-pager"))
		},
	}
}

type searchInput struct {
	Text         string
	PropertyType string
	DealType     string
	Filters      []string
	Sort         string
	Page         int
	PerPage      int
	Currency     string
}

// buildSearchQuery turns the flags into the query the search page would
// send. Filter bounds go through the slider controls, so values are clamped
// to the domain and a bound at the domain edge is left out.
func buildSearchQuery(cfg *config.Config, in searchInput, f *locale.Formatter) (query.Query, []filter.State, error) {
	known := make(map[string]bool, len(cfg.Filters))
	for _, fc := range cfg.Filters {
		known[fc.Key] = true
	}
	bounds := make(map[string][2]string, len(in.Filters))
	for _, raw := range in.Filters {
		key, rng, ok := strings.Cut(raw, "=")
		if !ok {
			return query.Query{}, nil, fmt.Errorf("filter %q: expected key=min:max", raw)
		}
		key = strings.TrimSpace(key)
		if !known[key] {
			return query.Query{}, nil, fmt.Errorf("unknown filter %q", key)
		}
		lo, hi, _ := strings.Cut(rng, ":")
		bounds[key] = [2]string{strings.TrimSpace(lo), strings.TrimSpace(hi)}
	}

	var q query.Query
	add := func(name, value string) {
		if value = strings.TrimSpace(value); value != "" {
			q.Add(name, value)
		}
	}
	add("q", in.Text)
	add("property_type", in.PropertyType)
	add("deal_type", in.DealType)
	if in.Currency != "" {
		add("currency", currency.Normalize(in.Currency))
	}

	var chips []filter.State
	for _, fc := range cfg.Filters {
		b, ok := bounds[fc.Key]
		if !ok {
			continue
		}
		ctrl := filter.New(fc, b[0], b[1])
		ctrl.SetFormatter(f)
		st := ctrl.State()
		add(st.MinField, st.HiddenMin)
		add(st.MaxField, st.HiddenMax)
		if st.Chip != "" {
			chips = append(chips, st)
		}
	}

	sort := in.Sort
	if sort == "" {
		sort = cfg.Search.DefaultSort
	}
	add("sort", sort)
	if in.PerPage > 0 {
		add("per_page", strconv.Itoa(in.PerPage))
	}
	page := in.Page
	if page < 1 {
		page = 1
	}
	add("page", strconv.Itoa(page))
	return q, chips, nil
}

func searchListings(ctx context.Context, configPath string, in searchInput, noPager bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	f := locale.New(cfg.Search.Locale)
	q, chips, err := buildSearchQuery(cfg, in, f)
	if err != nil {
		return err
	}

	upstream, cc, err := newUpstream(cfg)
	if err != nil {
		return err
	}
	defer cc.Stop()

	res, err := upstream.Search(ctx, cfg.Search.Endpoint, q)
	if err != nil {
		return fmt.Errorf("searching: %w", err)
	}

	rc := render.Context{SiteURL: upstream.BaseURL(), Currency: q.Get("currency")}
	if rc.Currency != "" {
		svc := currency.NewService(currency.ServiceOptions{URL: cfg.Currency.RatesURL})
		defer svc.Stop()
		rc.Rates = svc.Rates(ctx)
	}

	r, err := render.New(f)
	if err != nil {
		return err
	}
	return display(formatSearchOutput(r, res, q, chips, rc), noPager)
}

func formatSearchOutput(r *render.Renderer, res *client.ResultPage, q query.Query, chips []filter.State, rc render.Context) string {
	var out strings.Builder

	out.WriteString(titleStyle.Render("Search: "+q.Encode()) + "\n")
	if len(chips) > 0 {
		parts := make([]string, 0, len(chips))
		for _, st := range chips {
			parts = append(parts, chipStyle.Render(st.Label+": "+st.Chip))
		}
		out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, parts...) + "\n\n")
	}
	out.WriteString(summaryStyle.Render(render.Summary(res)) + "\n")

	if res.Empty() {
		out.WriteString(noDataStyle.Render("No properties match these filters.") + "\n")
		return out.String()
	}

	for _, p := range res.Results {
		out.WriteString(formatCard(r.Card(p, rc)) + "\n")
	}

	if res.TotalPages > 1 {
		out.WriteString(metaStyle.Render(fmt.Sprintf("Page %d of %d", res.Page, res.TotalPages)) + "\n")
	}
	return out.String()
}

func formatCard(c render.Card) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(c.Title) + "\n")
	b.WriteString(priceStyle.Render(c.Price + c.PriceSuffix))
	if len(c.OtherPrices) > 0 {
		b.WriteString(metaStyle.Render("  (" + strings.Join(c.OtherPrices, ", ") + ")"))
	}
	b.WriteString("\n")

	meta := []string{c.DealName, c.TypeName}
	if c.AreaLabel != "" {
		meta = append(meta, c.AreaLabel)
	}
	if c.RoomsLabel != "" {
		meta = append(meta, c.RoomsLabel)
	}
	b.WriteString(metaStyle.Render(strings.Join(meta, " · ")))
	if c.Address != "" {
		b.WriteString("\n" + c.Address)
	}
	b.WriteString("\n" + urlStyle.Render(c.URL))
	return cardStyle.Render(fmt.Sprintf("#%d  %s", c.ID, b.String()))
}
