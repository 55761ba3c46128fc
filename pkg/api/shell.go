package api

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/dominium-estate/dominium/cmd/web/components"
	"github.com/dominium-estate/dominium/cmd/web/components/types"
	"github.com/dominium-estate/dominium/pkg/actions"
	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/locale"
	"github.com/dominium-estate/dominium/pkg/render"
	"github.com/dominium-estate/dominium/pkg/search"
	"github.com/dominium-estate/dominium/pkg/version"
)

const (
	likedCookie = "liked_ids"
	csrfCookie  = "csrftoken"
)

// pageRequest is one parsed browser request and what it renders with.
type pageRequest struct {
	params   search.Params
	opts     Options
	format   *locale.Formatter
	renderer *render.Renderer
	rc       render.Context
	liked    map[int]bool
}

func (s *Server) parseRequest(ctx context.Context, r *http.Request) (*pageRequest, error) {
	opts, format, renderer := s.snapshot()
	params, err := search.ParseParams(r.URL.RawQuery, search.ParamOptions{
		DefaultSort:     opts.DefaultSort,
		PageSizeChoices: opts.PageSizeChoices,
	})
	if err != nil {
		return nil, err
	}
	liked := s.likedIDs(r)
	rc := render.Context{
		LikedIDs:    liked,
		UserIsStaff: opts.Staff,
		BasePath:    opts.PagePath,
		SiteURL:     opts.SiteURL,
		Currency:    params.Currency,
	}
	if params.Currency != "" && opts.Rates != nil {
		rc.Rates = opts.Rates(ctx)
	}
	return &pageRequest{params: params, opts: opts, format: format, renderer: renderer, rc: rc, liked: liked}, nil
}

// likedIDs reads the liked listing ids the site stores in a cookie. A
// malformed cookie counts as no likes.
func (s *Server) likedIDs(r *http.Request) map[int]bool {
	c, err := r.Cookie(likedCookie)
	if err != nil || c.Value == "" {
		return map[int]bool{}
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		raw = c.Value
	}
	liked, err := actions.ParseLikedIDs(raw)
	if err != nil {
		s.logger.Warnf("ignoring liked ids cookie: %v", err)
	}
	return liked
}

func (s *Server) csrfToken(r *http.Request, opts Options) string {
	if opts.CSRFToken != "" {
		return opts.CSRFToken
	}
	if c, err := r.Cookie(csrfCookie); err == nil {
		return c.Value
	}
	return ""
}

// renderPage fetches the first result page and renders the full search
// page for it. An upstream failure still renders the page, with an error
// banner and no results.
func (s *Server) renderPage(ctx context.Context, r *http.Request) (string, *pageRequest, error) {
	pr, err := s.parseRequest(ctx, r)
	if err != nil {
		return "", nil, err
	}
	q := pr.params.Query

	data := types.PageData{
		Title:          "Property search",
		PagePath:       pr.opts.PagePath,
		WebsocketPath:  pr.opts.WebsocketPath,
		Query:          q.Get("q"),
		PropertyType:   q.Get("property_type"),
		DealType:       q.Get("deal_type"),
		PropertyTypes:  s.dictionary(ctx, "property_types", s.upstream.PropertyTypes),
		DealTypes:      s.dictionary(ctx, "deal_types", s.upstream.DealTypes),
		Filters:        s.filterViews(pr),
		Sort:           pr.params.Sort,
		SortLabel:      render.SortLabel(pr.params.Sort),
		PerPage:        q.Get("per_page"),
		PerPageDisplay: pr.params.PerPage,
		PageSizes:      pr.opts.PageSizeChoices,
		Currency:       pr.params.Currency,
		Currencies:     currency.Options,
		UserIsStaff:    pr.opts.Staff,
		CSRFToken:      s.csrfToken(r, pr.opts),
		Version:        version.APIVersion(),
	}
	if len(data.PageSizes) == 0 {
		data.PageSizes = search.PageSizeChoices
	}
	for _, key := range render.SortKeys {
		data.SortOptions = append(data.SortOptions, types.Option{Value: key, Label: render.SortLabel(key)})
	}
	for id := range pr.liked {
		data.LikedIDs = append(data.LikedIDs, id)
	}

	res, err := s.upstream.Search(ctx, pr.opts.Endpoint, q)
	if err != nil {
		if client.IsCancelled(err) {
			return "", nil, err
		}
		s.logger.Warnf("search for first render failed: %v", err)
		data.Error = search.AlertMessage
		res = &client.ResultPage{Page: pr.params.Page}
	}
	data.ResultsHTML, err = pr.renderer.Fragment(res, q, pr.rc)
	if err != nil {
		return "", nil, err
	}
	data.Summary = render.Summary(res)

	var buf bytes.Buffer
	if err := components.Search(data).Render(ctx, &buf); err != nil {
		return "", nil, err
	}
	return buf.String(), pr, nil
}

// filterViews positions every configured slider at the request's values.
func (s *Server) filterViews(pr *pageRequest) []types.FilterView {
	views := make([]types.FilterView, 0, len(pr.opts.Filters))
	for _, cfg := range pr.opts.Filters {
		minField, maxField := cfg.Fields()
		cmin := strings.TrimSpace(pr.params.Query.Get(minField))
		cmax := strings.TrimSpace(pr.params.Query.Get(maxField))
		c := filter.New(cfg, cmin, cmax)
		c.SetFormatter(pr.format)
		views = append(views, types.FilterView{
			Config:     cfg,
			CurrentMin: cmin,
			CurrentMax: cmax,
			State:      c.State(),
		})
	}
	return views
}

// dictionary returns a cached dictionary list. Failures render an empty
// dropdown and are retried on the next request.
func (s *Server) dictionary(ctx context.Context, key string, fetch func(context.Context) (*client.DictionaryPage, error)) []client.Named {
	if item := s.dicts.Get(key); item != nil && !item.Expired() {
		return item.Value()
	}
	page, err := fetch(ctx)
	if err != nil {
		s.logger.Warnf("loading %s: %v", key, err)
		return nil
	}
	s.dicts.Set(key, page.Results, dictionaryTTL)
	return page.Results
}
