package realtime

import (
	"github.com/dominium-estate/dominium/pkg/actions"
	"github.com/dominium-estate/dominium/pkg/filter"
)

// Inbound message types sent by the browser.
const (
	MsgInput    = "input"  // free-text typing: name, value
	MsgChange   = "change" // dropdown/checkbox/radio: name, value, checked
	MsgSlider   = "slider" // key, side, number
	MsgReset    = "reset"  // key
	MsgResetAll = "reset_all"
	MsgNavigate = "navigate" // href
	MsgPopState = "popstate" // href
	MsgSubmit   = "submit"
	MsgSort     = "sort"     // value
	MsgPerPage  = "per_page" // value
	MsgRefresh  = "refresh"
	MsgLike     = "like"     // id
	MsgFeatured = "featured" // id
	MsgShare    = "share"    // id, action
)

// Outbound message types.
const (
	OutInit     = "init"
	OutPatch    = "patch"
	OutHistory  = "history"
	OutAlert    = "alert"
	OutToast    = "toast"
	OutFilter   = "filter"
	OutLoading  = "loading"
	OutLike     = "like"
	OutFeatured = "featured"
	OutShare    = "share"
	OutError    = "error"
)

// Inbound is a browser event.
type Inbound struct {
	Type    string  `json:"type"`
	Name    string  `json:"name,omitempty"`
	Value   string  `json:"value,omitempty"`
	Checked *bool   `json:"checked,omitempty"`
	Key     string  `json:"key,omitempty"`
	Side    string  `json:"side,omitempty"`
	Number  float64 `json:"number,omitempty"`
	Href    string  `json:"href,omitempty"`
	ID      int     `json:"id,omitempty"`
	Action  string  `json:"action,omitempty"`
}

// Patch replaces the inner HTML of the first element matching Selector.
type Patch struct {
	Selector string `json:"selector"`
	HTML     string `json:"html"`
}

// Message is a server event.
type Message struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	Patches  []Patch            `json:"patches,omitempty"`
	Bound    []string           `json:"bound,omitempty"`
	URL      string             `json:"url,omitempty"`
	Message  string             `json:"message,omitempty"`
	Toast    *actions.Toast     `json:"toast,omitempty"`
	Filter   *filter.State      `json:"filter,omitempty"`
	Filters  []filter.State     `json:"filters,omitempty"`
	ID       int                `json:"id,omitempty"`
	Liked    *bool              `json:"liked,omitempty"`
	Featured *bool              `json:"featured,omitempty"`
	Loading  *bool              `json:"loading,omitempty"`
	Share    *actions.ShareLink `json:"share,omitempty"`
}
