package page

import (
	"github.com/PuerkitoBio/goquery"
)

// SetResults replaces the content of the results container.
func (p *Page) SetResults(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(ResultsSelector).SetHtml(html)
}

// SetSummary writes the result count line.
func (p *Page) SetSummary(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.doc.Find(SummarySelector).SetText(text)
}

// BindableIDs lists the data-bind-id of every element under the results
// container, in document order.
func (p *Page) BindableIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	p.doc.Find(ResultsSelector + " [data-bind-id]").Each(func(_ int, s *goquery.Selection) {
		if id := s.AttrOr("data-bind-id", ""); id != "" {
			ids = append(ids, id)
		}
	})
	return ids
}

// SetLiked switches the heart icon of every like button for id.
func (p *Page) SetLiked(id string, liked bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	icons := p.doc.Find(`.like-button[data-property-id="` + cssEscape(id) + `"] i`)
	if liked {
		icons.RemoveClass("ri-heart-line", "text-coolSage").AddClass("ri-heart-fill", "text-red-500")
	} else {
		icons.RemoveClass("ri-heart-fill", "text-red-500").AddClass("ri-heart-line", "text-coolSage")
	}
	return icons.Length() > 0
}

// SetFeatured switches the star toggle of every featured button for id.
func (p *Page) SetFeatured(id string, featured bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	btn := p.doc.Find(`[data-featured-toggle][data-property-id="` + cssEscape(id) + `"]`)
	icons := btn.Find("i")
	if featured {
		btn.SetAttr("data-featured", "true")
		icons.RemoveClass("ri-star-line", "text-coolSage").AddClass("ri-star-fill", "text-yellow-500")
	} else {
		btn.SetAttr("data-featured", "false")
		icons.RemoveClass("ri-star-fill", "text-yellow-500").AddClass("ri-star-line", "text-coolSage")
	}
	return btn.Length() > 0
}

// Featured reads the data-featured flag of the toggle for id.
func (p *Page) Featured(id string) (bool, bool) {
	v, ok := p.Attr(`[data-featured-toggle][data-property-id="`+cssEscape(id)+`"]`, "data-featured")
	return v == "true", ok
}

// ShareTarget returns the url and title carried by the share toggle for id.
func (p *Page) ShareTarget(id string) (url, title string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := p.doc.Find(`[data-share-toggle][data-property-id="` + cssEscape(id) + `"]`).First()
	if s.Length() == 0 {
		return "", "", false
	}
	return s.AttrOr("data-share-url", ""), s.AttrOr("data-share-title", ""), true
}
