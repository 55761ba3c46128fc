package api

import (
	"net/http"
	"strings"
)

func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	opts, _, _ := s.snapshot()

	// Search page
	mux.HandleFunc("GET /{$}", s.HandlePage)
	mux.HandleFunc("GET /search", s.HandlePage)
	mux.HandleFunc("GET /search/{$}", s.HandlePage)
	if p := strings.TrimSuffix(opts.PagePath, "/"); p != "" && p != "/search" {
		mux.HandleFunc("GET "+p+"/{$}", s.HandlePage)
	}
	mux.HandleFunc("GET "+opts.WebsocketPath, s.HandleWebsocket)

	// JSON and card action proxies
	mux.HandleFunc("GET /api/search", s.HandleSearch)
	mux.HandleFunc("POST /like/{id}/{$}", s.HandleLike)
	mux.HandleFunc("POST /properties/{id}/toggle-featured/{$}", s.HandleFeatured)
	mux.HandleFunc("GET /health", s.HandleHealth)
}
