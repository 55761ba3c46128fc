package types

import (
	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/filter"
)

// PageData represents data passed to the search page shell
type PageData struct {
	Title    string
	PagePath string
	// WebsocketPath is where the page opens its live session.
	WebsocketPath string

	// Form state
	Query         string
	PropertyType  string
	DealType      string
	PropertyTypes []client.Named
	DealTypes     []client.Named
	Filters       []FilterView

	Sort           string
	SortLabel      string
	SortOptions    []Option
	PerPage        string // hidden per_page value, empty when not chosen
	PerPageDisplay int
	PageSizes      []int
	Currency       string
	Currencies     []currency.Option

	// Results region, rendered by pkg/render
	ResultsHTML string
	Summary     string

	LikedIDs    []int
	UserIsStaff bool
	CSRFToken   string
	Error       string
	Version     string // Application version (for footer display)
}

// FilterView is one range slider as rendered on first load.
type FilterView struct {
	Config     filter.Config
	CurrentMin string
	CurrentMax string
	State      filter.State
}

// Option is a value/label pair of a dropdown.
type Option struct {
	Value string
	Label string
}
