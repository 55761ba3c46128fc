package actions

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dominium-estate/dominium/pkg/client"
)

// ParseLikedIDs decodes the liked-ids JSON embedded in the page. Ids may be
// numbers or numeric strings. Malformed input returns an empty set and a
// *client.ParseError; callers log it and carry on.
func ParseLikedIDs(raw string) (map[int]bool, error) {
	liked := make(map[int]bool)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return liked, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return map[int]bool{}, &client.ParseError{Source: "liked ids", Err: err}
	}
	for _, item := range items {
		var n int
		if err := json.Unmarshal(item, &n); err == nil {
			liked[n] = true
			continue
		}
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				liked[n] = true
				continue
			}
		}
		return map[int]bool{}, &client.ParseError{Source: "liked ids", Err: fmt.Errorf("unexpected id %s", item)}
	}
	return liked, nil
}
