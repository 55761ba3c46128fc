// Package api is the HTTP surface of the search front end: the server
// rendered search page, the live websocket session, a JSON search proxy and
// the like/featured proxies the cards post to.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/karlseguin/ccache/v3"
	"github.com/klauspost/compress/gzhttp"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/locale"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/realtime"
	"github.com/dominium-estate/dominium/pkg/render"
)

const dictionaryTTL = 10 * time.Minute

// Upstream is the listing site as used by the server.
type Upstream interface {
	realtime.Upstream
	PropertyTypes(ctx context.Context) (*client.DictionaryPage, error)
	DealTypes(ctx context.Context) (*client.DictionaryPage, error)
}

// Options is the part of the configuration the server reads per request.
// SetOptions swaps it at runtime; sessions already open keep theirs.
type Options struct {
	Endpoint        string
	PagePath        string
	WebsocketPath   string
	SiteURL         string
	DefaultSort     string
	PageSizeChoices []int
	Filters         []filter.Config
	Staff           bool
	CSRFToken       string
	TextDelay       time.Duration
	ControlDelay    time.Duration
	Locale          string
	// Rates returns exchange rates for converted prices. Nil uses the
	// default rates.
	Rates func(context.Context) currency.Rates
}

type Server struct {
	upstream Upstream
	hub      *realtime.Hub
	dicts    *ccache.Cache[[]client.Named]
	upgrader websocket.Upgrader
	logger   *log.Logger

	// ctx ends every live session on Close.
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	sessions atomic.Int64

	mu        sync.RWMutex
	opts      Options
	formatter *locale.Formatter
	renderer  *render.Renderer
}

func NewServer(upstream Upstream, hub *realtime.Hub, opts Options) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		upstream: upstream,
		hub:      hub,
		dicts:    ccache.New(ccache.Configure[[]client.Named]().MaxSize(16)),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: log.ForService("api"),
		ctx:    ctx,
		cancel: cancel,
	}
	if err := s.SetOptions(opts); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// SetOptions applies new options to requests and sessions started after
// the call.
func (s *Server) SetOptions(opts Options) error {
	if opts.PagePath == "" {
		opts.PagePath = "/search/"
	}
	if opts.WebsocketPath == "" {
		opts.WebsocketPath = "/ws/search"
	}
	f := locale.New(opts.Locale)
	r, err := render.New(f)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.opts = opts
	s.formatter = f
	s.renderer = r
	s.mu.Unlock()
	return nil
}

func (s *Server) snapshot() (Options, *locale.Formatter, *render.Renderer) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.opts, s.formatter, s.renderer
}

// Handler returns the routes wrapped in CORS and gzip. Websocket upgrades
// bypass compression.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	gz := gzhttp.GzipHandler(mux)
	return CorsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if websocket.IsWebSocketUpgrade(r) {
			mux.ServeHTTP(w, r)
			return
		}
		gz.ServeHTTP(w, r)
	}))
}

// Close ends every live session and waits for them.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
	s.dicts.Stop()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Errorf("encoding JSON response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, error, message string) {
	response := ErrorResponse{
		Error:   error,
		Message: message,
	}
	s.writeJSON(w, status, response)
}

func CorsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRFToken, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
