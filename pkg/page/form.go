package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dominium-estate/dominium/pkg/query"
)

// FormValues serializes the search form with browser form rules: named,
// enabled controls only; checkboxes and radios only when checked; select
// elements contribute their selected options.
func (p *Page) FormValues() []query.Pair {
	p.mu.Lock()
	defer p.mu.Unlock()

	var pairs []query.Pair
	p.form().Find("input, select, textarea").Each(func(_ int, s *goquery.Selection) {
		name, ok := s.Attr("name")
		if !ok || name == "" {
			return
		}
		if _, disabled := s.Attr("disabled"); disabled {
			return
		}
		switch goquery.NodeName(s) {
		case "input":
			typ := strings.ToLower(s.AttrOr("type", "text"))
			switch typ {
			case "submit", "button", "reset", "image", "file":
				return
			case "checkbox", "radio":
				if _, checked := s.Attr("checked"); !checked {
					return
				}
				pairs = append(pairs, query.Pair{Name: name, Value: s.AttrOr("value", "on")})
			default:
				pairs = append(pairs, query.Pair{Name: name, Value: s.AttrOr("value", "")})
			}
		case "select":
			for _, v := range selectedOptions(s) {
				pairs = append(pairs, query.Pair{Name: name, Value: v})
			}
		case "textarea":
			pairs = append(pairs, query.Pair{Name: name, Value: s.Text()})
		}
	})
	return pairs
}

// SortValue reads the hidden sort field.
func (p *Page) SortValue() string {
	v, _ := p.Attr(SortHiddenSelector, "value")
	return strings.TrimSpace(v)
}

// PerPageValue reads the hidden page-size field.
func (p *Page) PerPageValue() string {
	v, _ := p.Attr(PerPageHidden, "value")
	return strings.TrimSpace(v)
}

// SetValue assigns value to the named form control. Text-like inputs get
// the value attribute, selects switch their selected option. It reports
// whether a control was found.
func (p *Page) SetValue(name, value string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	p.form().Find(`[name="` + cssEscape(name) + `"]`).Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "input":
			typ := strings.ToLower(s.AttrOr("type", "text"))
			if typ == "checkbox" || typ == "radio" {
				return
			}
			s.SetAttr("value", value)
			found = true
		case "select":
			s.Find("option").Each(func(_ int, o *goquery.Selection) {
				if optionValue(o) == value {
					o.SetAttr("selected", "selected")
				} else {
					o.RemoveAttr("selected")
				}
			})
			found = true
		case "textarea":
			s.SetText(value)
			found = true
		}
	})
	return found
}

// SetChecked toggles a checkbox or radio identified by name and value.
// Checking a radio unchecks its siblings.
func (p *Page) SetChecked(name, value string, checked bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	found := false
	p.form().Find(`input[name="` + cssEscape(name) + `"]`).Each(func(_ int, s *goquery.Selection) {
		typ := strings.ToLower(s.AttrOr("type", "text"))
		if typ != "checkbox" && typ != "radio" {
			return
		}
		if s.AttrOr("value", "on") == value {
			found = true
			if checked {
				s.SetAttr("checked", "checked")
			} else {
				s.RemoveAttr("checked")
			}
			return
		}
		if typ == "radio" && checked {
			s.RemoveAttr("checked")
		}
	})
	return found
}

// SetSortState writes the hidden sort field and its visible label.
func (p *Page) SetSortState(key, label string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(SortHiddenSelector).SetAttr("value", key)
	p.doc.Find(SortLabelSelector).SetText(label)
}

// SetPerPage writes the hidden page-size field and its display. Empty
// values leave both untouched.
func (p *Page) SetPerPage(v string) {
	if v == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(PerPageHidden).SetAttr("value", v)
	p.doc.Find(PerPageDisplay).SetText(v)
}

// ResetForm restores the search form to the markup it had when the page
// was loaded.
func (p *Page) ResetForm() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.formDefault == "" {
		return
	}
	p.form().ReplaceWithHtml(p.formDefault)
}

func selectedOptions(s *goquery.Selection) []string {
	opts := s.Find("option")
	var out []string
	opts.Each(func(_ int, o *goquery.Selection) {
		if _, sel := o.Attr("selected"); sel {
			if _, dis := o.Attr("disabled"); !dis {
				out = append(out, optionValue(o))
			}
		}
	})
	_, multiple := s.Attr("multiple")
	if len(out) == 0 && !multiple && opts.Length() > 0 {
		out = append(out, optionValue(opts.First()))
	}
	if !multiple && len(out) > 1 {
		out = out[len(out)-1:]
	}
	return out
}

func optionValue(o *goquery.Selection) string {
	if v, ok := o.Attr("value"); ok {
		return v
	}
	return strings.TrimSpace(o.Text())
}

func cssEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
