package components

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/dominium-estate/dominium/cmd/web/components/types"
	"github.com/dominium-estate/dominium/pkg/page"
)

// LikedIDsJSON encodes the liked listing ids for the liked-ids data node.
// The ids are sorted so the markup is stable across renders.
func LikedIDsJSON(ids []int) string {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)
	if sorted == nil {
		sorted = []int{}
	}
	b, err := json.Marshal(sorted)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// formatBound prints a slider bound the way range inputs expect it: no
// grouping, no trailing zeros.
func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ActiveChips returns the chip markup of every filter that narrows the
// search, in filter order.
func ActiveChips(filters []types.FilterView) []string {
	var out []string
	for _, f := range filters {
		if f.State.Chip == "" {
			continue
		}
		out = append(out, page.ChipHTML(f.State))
	}
	return out
}

// selected renders the selected attribute when value matches current.
func selected(value, current string) string {
	if value == current {
		return ` selected`
	}
	return ""
}
