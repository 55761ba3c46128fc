package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/page"
	"github.com/dominium-estate/dominium/pkg/realtime"
	"github.com/dominium-estate/dominium/pkg/render"
	"github.com/dominium-estate/dominium/pkg/version"
)

// HandlePage serves the search page with the first result page rendered.
func (s *Server) HandlePage(w http.ResponseWriter, r *http.Request) {
	html, _, err := s.renderPage(r.Context(), r)
	if err != nil {
		if client.IsCancelled(err) {
			return
		}
		http.Error(w, "Invalid search parameters: "+err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, html); err != nil {
		s.logger.Debugf("writing page: %v", err)
	}
}

// HandleWebsocket opens a live session. The browser connects with the
// query string of the page it shows, so the session starts from the same
// markup and query.
func (s *Server) HandleWebsocket(w http.ResponseWriter, r *http.Request) {
	html, pr, err := s.renderPage(r.Context(), r)
	if err != nil {
		if client.IsCancelled(err) {
			return
		}
		s.writeError(w, http.StatusBadRequest, "Invalid search parameters", err.Error())
		return
	}
	p, err := page.Parse(html)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Page error", err.Error())
		return
	}
	sess, err := realtime.NewSession(p, pr.params.Query, s.upstream, s.hub, realtime.Options{
		Endpoint:     pr.opts.Endpoint,
		PagePath:     pr.opts.PagePath,
		SiteURL:      pr.opts.SiteURL,
		DefaultSort:  pr.opts.DefaultSort,
		TextDelay:    pr.opts.TextDelay,
		ControlDelay: pr.opts.ControlDelay,
		Rates:        pr.opts.Rates,
		Formatter:    pr.format,
	})
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Session error", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		s.logger.Debugf("websocket upgrade: %v", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()
	s.sessions.Add(1)
	defer s.sessions.Add(-1)

	s.logger.Debugf("session %s opened for %s", sess.ID(), pr.params.Query.Encode())
	if err := sess.Serve(s.ctx, conn); err != nil {
		s.logger.Warnf("session %s: %v", sess.ID(), err)
	}
	s.logger.Debugf("session %s closed", sess.ID())
}

// HandleSearch proxies one search and returns the upstream page along with
// the rendered results fragment.
func (s *Server) HandleSearch(w http.ResponseWriter, r *http.Request) {
	pr, err := s.parseRequest(r.Context(), r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid search parameters", err.Error())
		return
	}

	res, err := s.upstream.Search(r.Context(), pr.opts.Endpoint, pr.params.Query)
	if err != nil {
		s.writeUpstreamError(w, "Search failed", err)
		return
	}

	html, err := pr.renderer.Fragment(res, pr.params.Query, pr.rc)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Render failed", err.Error())
		return
	}

	response := SearchResponse{
		Query:   pr.params.Query.Encode(),
		URL:     pr.params.Query.URL(pr.opts.PagePath),
		Page:    res,
		HTML:    html,
		Summary: render.Summary(res),
	}

	s.writeJSON(w, http.StatusOK, response)
}

// HandleLike proxies the like toggle of a card.
func (s *Server) HandleLike(w http.ResponseWriter, r *http.Request) {
	id, ok := s.propertyID(w, r)
	if !ok {
		return
	}
	res, err := s.upstream.ToggleLike(r.Context(), id)
	if err != nil {
		s.writeUpstreamError(w, "Like failed", err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// HandleFeatured proxies the homepage featured toggle. The optional form
// field "featured" sets the flag, otherwise the server flips it. Live
// sessions learn about the change through the hub.
func (s *Server) HandleFeatured(w http.ResponseWriter, r *http.Request) {
	opts, _, _ := s.snapshot()
	if !opts.Staff {
		s.writeError(w, http.StatusForbidden, "Forbidden", "Featured toggle requires staff access")
		return
	}
	id, ok := s.propertyID(w, r)
	if !ok {
		return
	}

	var desired *bool
	if raw := r.FormValue("featured"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid featured value", err.Error())
			return
		}
		desired = &v
	}

	res, err := s.upstream.ToggleFeatured(r.Context(), id, desired)
	if err != nil {
		s.writeUpstreamError(w, "Featured toggle failed", err)
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(realtime.Event{Type: realtime.EventFeatured, PropertyID: id, Featured: res.Featured, Origin: "api"})
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.APIVersion(),
		Sessions:  int(s.sessions.Load()),
	}

	s.writeJSON(w, http.StatusOK, health)
}

func (s *Server) propertyID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "Invalid path", "Property id must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeUpstreamError passes upstream 4xx statuses through and reports
// everything else as a bad gateway.
func (s *Server) writeUpstreamError(w http.ResponseWriter, what string, err error) {
	if client.IsCancelled(err) {
		return
	}
	var httpErr *client.HTTPError
	if errors.As(err, &httpErr) && httpErr.Status >= 400 && httpErr.Status < 500 {
		s.writeError(w, httpErr.Status, what, err.Error())
		return
	}
	s.logger.Warnf("%s: %v", what, err)
	s.writeError(w, http.StatusBadGateway, what, err.Error())
}
