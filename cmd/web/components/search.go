// Package components renders the HTML shell of the search page. The shell
// carries everything the live session reads back out of the page: the search
// form, the slider widgets with their data-* configuration, the hidden sort
// and page-size fields, the liked-ids data node and the results region.
package components

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dominium-estate/dominium/cmd/web/components/types"
	"github.com/dominium-estate/dominium/pkg/client"
)

// htmlWriter keeps the first write error so templates read top to bottom.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text writes s escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// attr writes ` name="value"` with value escaped.
func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="` + templ.EscapeString(value) + `"`)
}

// Search is the full search page.
func Search(data types.PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw("<!DOCTYPE html>\n<html lang=\"uk\">\n<head>\n<meta charset=\"utf-8\">\n")
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">` + "\n<title>")
		h.text(data.Title)
		h.raw("</title>\n</head>\n<body")
		if data.UserIsStaff {
			h.attr("data-user-is-staff", "1")
		}
		h.attr("data-ws-path", data.WebsocketPath)
		h.raw(">\n")

		h.raw(`<input type="hidden" id="form-csrf-token"`)
		h.attr("value", data.CSRFToken)
		h.raw(">\n")
		h.raw(`<script type="application/json" id="liked-ids-data">`)
		h.raw(LikedIDsJSON(data.LikedIDs))
		h.raw("</script>\n")

		if data.Error != "" {
			h.raw(`<div class="bg-red-100 text-red-700 px-4 py-2" data-page-error>`)
			h.text(data.Error)
			h.raw("</div>\n")
		}

		if h.err == nil {
			h.err = searchForm(data).Render(ctx, w)
		}
		if h.err == nil {
			h.err = toolbar(data).Render(ctx, w)
		}

		h.raw(`<div id="search-loading-indicator" class="hidden"></div>` + "\n")
		h.raw(`<section id="property-results">`)
		if h.err == nil {
			h.err = templ.Raw(data.ResultsHTML).Render(ctx, w)
		}
		h.raw("</section>\n")

		h.raw(`<footer class="text-xs text-coolSage text-center py-4">dominium `)
		h.text(data.Version)
		h.raw("</footer>\n<script>")
		h.raw(clientScript)
		h.raw("</script>\n</body>\n</html>\n")
		return h.err
	})
}

func searchForm(data types.PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<form id="main-search-form" data-search-form method="get"`)
		h.attr("action", data.PagePath)
		h.raw(">\n")

		h.raw(`<input type="text" name="q" id="q-main" placeholder="Search by address or title"`)
		h.attr("value", data.Query)
		h.raw(">\n")

		h.raw(`<select name="property_type" data-search-trigger><option value="">Any type</option>`)
		dictionaryOptions(h, data.PropertyTypes, data.PropertyType)
		h.raw("</select>\n")

		h.raw(`<select name="deal_type" data-search-trigger><option value="">Any deal</option>`)
		dictionaryOptions(h, data.DealTypes, data.DealType)
		h.raw("</select>\n")

		h.raw(`<select name="currency" data-search-trigger><option value="">Listing currency</option>`)
		for _, c := range data.Currencies {
			h.raw("<option")
			h.attr("value", c.Code)
			h.raw(selected(c.Code, data.Currency) + ">")
			h.text(c.Symbol + " " + c.Code)
			h.raw("</option>")
		}
		h.raw("</select>\n")

		for _, f := range data.Filters {
			if h.err != nil {
				break
			}
			h.err = filterRange(f).Render(ctx, w)
		}

		h.raw(`<button type="submit">Search</button> <a href="#" data-reset-all>Reset filters</a>` + "\n")
		h.raw("</form>\n")
		return h.err
	})
}

// dictionaryOptions writes one option per entry. A current value missing
// from the list still gets an option so the form keeps sending it.
func dictionaryOptions(h *htmlWriter, items []client.Named, current string) {
	found := current == ""
	for _, t := range items {
		v := strconv.Itoa(t.ID)
		found = found || v == current
		h.raw("<option")
		h.attr("value", v)
		h.raw(selected(v, current) + ">")
		h.text(t.Name)
		h.raw("</option>")
	}
	if !found {
		h.raw("<option")
		h.attr("value", current)
		h.raw(" selected>")
		h.text(current)
		h.raw("</option>")
	}
}

// filterRange renders one dual-range slider. pkg/page discovers it again
// from the data-* attributes.
func filterRange(f types.FilterView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		cfg, st := f.Config, f.State
		minField, maxField := cfg.Fields()

		h.raw(`<div class="filter-range"`)
		h.attr("data-filter-key", cfg.Key)
		h.attr("data-label", cfg.Label)
		h.attr("data-min", formatBound(cfg.Min))
		h.attr("data-max", formatBound(cfg.Max))
		h.attr("data-step", formatBound(cfg.Step))
		if cfg.Symbol != "" {
			h.attr("data-symbol", cfg.Symbol)
		}
		if cfg.Suffix != "" {
			h.attr("data-suffix", cfg.Suffix)
		}
		if cfg.OpenEnded {
			h.attr("data-mapping-max-plus", "true")
		}
		h.attr("data-current-min", f.CurrentMin)
		h.attr("data-current-max", f.CurrentMax)
		h.raw(">\n  <label>")
		h.text(cfg.Label)
		h.raw("</label>\n")

		for _, side := range []struct {
			class string
			value float64
		}{{"range-min", st.Min}, {"range-max", st.Max}} {
			h.raw(fmt.Sprintf(`  <input type="range" class="range-slider %s"`, side.class))
			h.attr("min", formatBound(cfg.Min))
			h.attr("max", formatBound(cfg.Max))
			h.attr("step", formatBound(cfg.Step))
			h.attr("value", formatBound(side.value))
			h.attr("style", "background: "+st.Gradient)
			h.raw(">\n")
		}

		h.raw(`  <input type="hidden" data-field="min"`)
		h.attr("name", minField)
		h.attr("value", st.HiddenMin)
		h.raw(">\n")
		h.raw(`  <input type="hidden" data-field="max"`)
		h.attr("name", maxField)
		h.attr("value", st.HiddenMax)
		h.raw(">\n")

		h.raw(`  <span data-value-label="min">`)
		h.text(st.MinLabel)
		h.raw("</span>\n")
		h.raw(`  <span data-value-label="max">`)
		h.text(st.MaxLabel)
		h.raw("</span>\n</div>\n")
		return h.err
	})
}

// toolbar holds the sort and page-size pickers, the chip bar and the
// summary line.
func toolbar(data types.PageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<input type="hidden" id="sort-hidden"`)
		h.attr("value", data.Sort)
		h.raw(">\n")
		h.raw(`<div class="relative" data-sort-menu><span id="sort-selected">`)
		h.text(data.SortLabel)
		h.raw("</span>")
		for _, o := range data.SortOptions {
			h.raw(`<button type="button"`)
			h.attr("data-sort-option", o.Value)
			h.raw(">")
			h.text(o.Label)
			h.raw("</button>")
		}
		h.raw("</div>\n")

		h.raw(`<input type="hidden" id="per-page-hidden"`)
		h.attr("value", data.PerPage)
		h.raw(">\n")
		h.raw(`<div class="relative" data-per-page-menu><span data-per-page-display>`)
		h.text(strconv.Itoa(data.PerPageDisplay))
		h.raw("</span>")
		for _, n := range data.PageSizes {
			h.raw(`<button type="button"`)
			h.attr("data-per-page-option", strconv.Itoa(n))
			h.raw(">")
			h.text(strconv.Itoa(n))
			h.raw("</button>")
		}
		h.raw("</div>\n")

		h.raw(`<div id="active-filter-chips" class="flex flex-wrap gap-2">`)
		for _, chip := range ActiveChips(data.Filters) {
			h.raw(chip)
		}
		h.raw("</div>\n")

		h.raw(`<div id="property-sort-wrapper"><span class="font-ermilov">`)
		h.text(data.Summary)
		h.raw("</span></div>\n")
		return h.err
	})
}
