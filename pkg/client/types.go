package client

// Named is a dictionary entry such as a property or deal type.
type Named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type Image struct {
	ID     int    `json:"id,omitempty"`
	URL    string `json:"url"`
	IsMain bool   `json:"is_main,omitempty"`
}

// Property is one listing as returned by the search endpoint.
type Property struct {
	ID               int      `json:"id"`
	Title            string   `json:"title"`
	Slug             string   `json:"slug"`
	Address          string   `json:"address"`
	Price            *float64 `json:"price"`
	Area             float64  `json:"area"`
	Rooms            int      `json:"rooms"`
	PropertyType     *Named   `json:"property_type"`
	DealType         *Named   `json:"deal_type"`
	Features         []Named  `json:"features"`
	MainImage        *Image   `json:"main_image"`
	Images           []Image  `json:"images"`
	FeaturedHomepage bool     `json:"featured_homepage"`
	AbsoluteURL      string   `json:"absolute_url"`
}

// ResultPage is one page of search results.
type ResultPage struct {
	Results    []Property `json:"results"`
	Count      int        `json:"count"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	PageSize   int        `json:"page_size,omitempty"`
	Sort       string     `json:"sort,omitempty"`
	Ordering   string     `json:"ordering,omitempty"`
	Status     string     `json:"status,omitempty"`
}

// Empty reports whether the page has no results.
func (r *ResultPage) Empty() bool {
	return r == nil || len(r.Results) == 0
}

// LikeResult is the body of POST /like/{id}/.
type LikeResult struct {
	Status string `json:"status"`
}

// Liked reports whether the toggle left the property liked.
func (l LikeResult) Liked() bool {
	return l.Status == "liked"
}

// FeaturedResult is the body of POST /properties/{id}/toggle-featured/.
type FeaturedResult struct {
	Featured bool `json:"featured"`
}

// DictionaryPage is the body of the dictionary endpoints.
type DictionaryPage struct {
	Results []Named `json:"results"`
	Count   int     `json:"count"`
}

// BulkAction names accepted by the bulk endpoint.
const (
	BulkArchive = "archive"
	BulkRestore = "restore"
	BulkDelete  = "delete"
)

// BulkResult is the body of the bulk action endpoint.
type BulkResult struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Action    string `json:"action"`
	Message   string `json:"message,omitempty"`
}
