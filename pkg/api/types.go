package api

import (
	"time"

	"github.com/dominium-estate/dominium/pkg/client"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SearchResponse is the upstream page together with the markup the live
// page would show for it.
type SearchResponse struct {
	Query   string             `json:"query"`
	URL     string             `json:"url"`
	Page    *client.ResultPage `json:"page"`
	HTML    string             `json:"html"`
	Summary string             `json:"summary"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Sessions  int       `json:"sessions"`
}
