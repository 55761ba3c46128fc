package page

import (
	"html"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/dominium-estate/dominium/pkg/filter"
)

// FilterWidget is a slider discovered in the page together with the
// position the server rendered it at.
type FilterWidget struct {
	Config     filter.Config
	CurrentMin string
	CurrentMax string
}

// Filters discovers every .filter-range widget that has both range inputs.
func (p *Page) Filters() []FilterWidget {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []FilterWidget
	p.doc.Find(FilterRangeSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(".range-min").Length() == 0 || s.Find(".range-max").Length() == 0 {
			return
		}
		cfg := filter.Config{
			Key:       s.AttrOr("data-filter-key", ""),
			Label:     s.AttrOr("data-label", ""),
			Min:       attrFloat(s, "data-min", 0),
			Max:       attrFloat(s, "data-max", 0),
			Step:      attrFloat(s, "data-step", 1),
			Symbol:    s.AttrOr("data-symbol", ""),
			Suffix:    s.AttrOr("data-suffix", ""),
			OpenEnded: s.AttrOr("data-mapping-max-plus", "") == "true",
			MinField:  s.Find(`input[data-field="min"]`).AttrOr("name", ""),
			MaxField:  s.Find(`input[data-field="max"]`).AttrOr("name", ""),
		}
		if cfg.Key == "" {
			return
		}
		out = append(out, FilterWidget{
			Config:     cfg,
			CurrentMin: s.AttrOr("data-current-min", ""),
			CurrentMax: s.AttrOr("data-current-max", ""),
		})
	})
	return out
}

// ApplyFilter mirrors a control's state into its widget and the chip bar.
// It satisfies filter.Sink.
func (p *Page) ApplyFilter(st filter.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	w := p.doc.Find(FilterRangeSelector + `[data-filter-key="` + cssEscape(st.Key) + `"]`).First()
	if w.Length() > 0 {
		w.Find(".range-min").SetAttr("value", strconv.FormatFloat(st.Min, 'f', -1, 64)).SetAttr("style", "background: "+st.Gradient)
		w.Find(".range-max").SetAttr("value", strconv.FormatFloat(st.Max, 'f', -1, 64)).SetAttr("style", "background: "+st.Gradient)
		w.Find(`input[data-field="min"]`).SetAttr("value", st.HiddenMin)
		w.Find(`input[data-field="max"]`).SetAttr("value", st.HiddenMax)
		w.Find(`[data-value-label="min"]`).SetText(st.MinLabel)
		w.Find(`[data-value-label="max"]`).SetText(st.MaxLabel)
	}
	p.updateChip(st)
}

func (p *Page) updateChip(st filter.State) {
	bar := p.doc.Find(ChipsSelector).First()
	if bar.Length() == 0 {
		return
	}
	chip := bar.Find(`[data-chip="` + cssEscape(st.Key) + `"]`)
	if st.Chip == "" {
		chip.Remove()
		return
	}
	if chip.Length() > 0 {
		chip.SetHtml(chipInner(st))
		return
	}
	bar.AppendHtml(ChipHTML(st))
}

// ChipHTML is the markup of the chip summarizing st. The page shell uses it
// for the first paint so later updates find the same element.
func ChipHTML(st filter.State) string {
	return `<button type="button" data-chip="` + html.EscapeString(st.Key) + `" class="` + chipClass + `">` + chipInner(st) + `</button>`
}

func chipInner(st filter.State) string {
	return `<span class="font-semibold">` + html.EscapeString(st.Label) + `:</span> <span>` +
		html.EscapeString(st.Chip) + `</span> <i class="ri-close-line text-base"></i>`
}

const chipClass = "bg-white text-deepOcean border border-coolSage px-3 py-1.5 rounded-full text-xs font-fixel flex items-center gap-2 shadow-sm hover:bg-creamBeige transition"

func attrFloat(s *goquery.Selection, name string, def float64) float64 {
	raw, ok := s.Attr(name)
	if !ok || raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
