package realtime

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dominium-estate/dominium/pkg/actions"
	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/filter"
	"github.com/dominium-estate/dominium/pkg/locale"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/page"
	"github.com/dominium-estate/dominium/pkg/query"
	"github.com/dominium-estate/dominium/pkg/render"
	"github.com/dominium-estate/dominium/pkg/search"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	outBuffer      = 64
)

// regions are re-sent to the browser after every successful render.
var regions = []string{
	page.ResultsSelector,
	page.SummarySelector,
	page.SortLabelSelector,
	page.PerPageDisplay,
	page.ChipsSelector,
}

// Upstream is the listing site as seen by a session.
type Upstream interface {
	search.Searcher
	actions.Upstream
}

// Options configures the sessions of one server.
type Options struct {
	Endpoint     string
	PagePath     string
	SiteURL      string
	DefaultSort  string
	TextDelay    time.Duration
	ControlDelay time.Duration
	// Rates returns the exchange rates used for converted prices. Nil uses
	// the default rates.
	Rates     func(context.Context) currency.Rates
	Formatter *locale.Formatter
	Logger    *log.Logger
}

// Session is one live search page.
type Session struct {
	id       string
	opts     Options
	logger   *log.Logger
	hub      *Hub
	page     *page.Page
	builder  *query.Builder
	filters  *filter.Set
	renderer *render.Renderer
	actions  *actions.Service
	orch     *search.Orchestrator

	staff   bool
	serving atomic.Bool
	out     chan Message
	ctx     context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu    sync.Mutex
	liked map[int]bool
}

// NewSession wires a session around p, the page the browser was served.
// initial is the query that page was rendered for.
func NewSession(p *page.Page, initial query.Query, up Upstream, hub *Hub, opts Options) (*Session, error) {
	if opts.Logger == nil {
		opts.Logger = log.ForService("realtime")
	}
	if opts.Formatter == nil {
		opts.Formatter = locale.Default()
	}
	renderer, err := render.New(opts.Formatter)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		id:       id,
		opts:     opts,
		logger:   opts.Logger.Named(id[:8]),
		hub:      hub,
		page:     p,
		builder:  query.NewBuilder(p, opts.DefaultSort),
		renderer: renderer,
		staff:    p.UserIsStaff(),
		out:      make(chan Message, outBuffer),
		ctx:      ctx,
		stop:     stop,
	}

	s.liked = map[int]bool{}
	if raw, ok := p.LikedIDsRaw(); ok {
		liked, err := actions.ParseLikedIDs(raw)
		if err != nil {
			s.logger.Warnf("ignoring liked ids: %v", err)
		}
		s.liked = liked
	}

	s.actions = actions.New(up, s.staff, s.logger)
	s.orch = search.New(up, sessionRenderer{s}, s, s, s.builder, search.Options{
		Endpoint:     opts.Endpoint,
		PagePath:     opts.PagePath,
		TextDelay:    opts.TextDelay,
		ControlDelay: opts.ControlDelay,
		Initial:      initial,
		Loader:       s,
		Logger:       s.logger,
		OnOutcome: func(r search.Result) {
			s.logger.Debugf("request #%d: %s", r.Seq, r.Outcome)
		},
	})

	s.filters = filter.NewSet(s.orch, filterSink{s}, opts.Formatter)
	for _, w := range p.Filters() {
		s.filters.Add(w.Config, w.CurrentMin, w.CurrentMax)
	}
	for _, id := range p.BindableIDs() {
		s.renderer.Bindings().Bind(id)
	}
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Page returns the page mirror.
func (s *Session) Page() *page.Page {
	return s.page
}

// Orchestrator returns the session's orchestrator.
func (s *Session) Orchestrator() *search.Orchestrator {
	return s.orch
}

// Serve runs the session on conn until the browser disconnects or ctx ends.
// It owns conn and closes it on return.
func (s *Session) Serve(ctx context.Context, conn *websocket.Conn) error {
	defer s.close()
	defer conn.Close()

	var events <-chan Event
	if s.hub != nil {
		hubID, ch := s.hub.Register()
		defer s.hub.Unregister(hubID)
		events = ch
	}

	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.ctx.Done():
		}
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// closing conn unblocks the read loop
		defer conn.Close()
		s.writeLoop(conn, events)
	}()

	states := make([]filter.State, 0, s.filters.Len())
	for _, c := range s.filters.Controls() {
		states = append(states, c.State())
	}
	s.send(Message{Type: OutInit, Session: s.id, Filters: states, URL: s.orch.Current().URL(s.opts.PagePath)})
	s.serving.Store(true)

	err := s.readLoop(conn)
	s.stop()
	<-writerDone
	return err
}

func (s *Session) close() {
	s.stop()
	s.orch.Close()
	s.wg.Wait()
}

func (s *Session) readLoop(conn *websocket.Conn) error {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || s.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("reading session message: %w", err)
		}
		if err := s.Handle(in); err != nil {
			s.logger.Warnf("%s: %v", in.Type, err)
			s.send(Message{Type: OutError, Message: err.Error()})
		}
	}
}

func (s *Session) writeLoop(conn *websocket.Conn, events <-chan Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	write := func(m Message) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			s.logger.Debugf("write failed: %v", err)
			s.stop()
			return false
		}
		return true
	}

	for {
		select {
		case <-s.ctx.Done():
			// flush what is already queued
			for {
				select {
				case m := <-s.out:
					if !write(m) {
						return
					}
				default:
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(writeWait))
					return
				}
			}
		case m := <-s.out:
			if !write(m) {
				return
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if m, ok := s.applyEvent(ev); ok && !write(m) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.stop()
				return
			}
		}
	}
}

func (s *Session) applyEvent(ev Event) (Message, bool) {
	switch ev.Type {
	case EventFeatured:
		featured := ev.Featured
		s.page.SetFeatured(strconv.Itoa(ev.PropertyID), featured)
		return Message{Type: OutFeatured, ID: ev.PropertyID, Featured: &featured}, true
	default:
		return Message{}, false
	}
}

// send queues m for the writer. It gives up once the session is closed.
func (s *Session) send(m Message) {
	select {
	case s.out <- m:
	case <-s.ctx.Done():
	}
}

// Handle applies one browser event.
func (s *Session) Handle(in Inbound) error {
	switch in.Type {
	case MsgInput:
		if !s.page.SetValue(in.Name, in.Value) {
			return fmt.Errorf("no form field %q", in.Name)
		}
		s.orch.Schedule(search.TriggerText)
	case MsgChange:
		ok := false
		if in.Checked != nil {
			ok = s.page.SetChecked(in.Name, in.Value, *in.Checked)
		} else {
			ok = s.page.SetValue(in.Name, in.Value)
		}
		if !ok {
			return fmt.Errorf("no form field %q", in.Name)
		}
		s.orch.Schedule(search.TriggerControl)
	case MsgSlider:
		c, ok := s.filters.Get(in.Key)
		if !ok {
			return fmt.Errorf("unknown filter %q", in.Key)
		}
		side := filter.ParseSide(in.Side)
		if side == filter.SideNone {
			return fmt.Errorf("invalid slider side %q", in.Side)
		}
		c.SetHandle(side, in.Number)
	case MsgReset:
		c, ok := s.filters.Get(in.Key)
		if !ok {
			return fmt.Errorf("unknown filter %q", in.Key)
		}
		c.Reset()
	case MsgResetAll:
		s.resetAll()
	case MsgNavigate:
		return s.orch.Navigate(in.Href)
	case MsgPopState:
		return s.orch.Restore(in.Href)
	case MsgSubmit:
		s.orch.Submit()
	case MsgSort:
		s.page.SetSortState(in.Value, render.SortLabel(in.Value))
		s.orch.Schedule(search.TriggerControl)
	case MsgPerPage:
		s.page.SetPerPage(in.Value)
		s.orch.Schedule(search.TriggerControl)
	case MsgRefresh:
		s.orch.Refresh()
	case MsgLike:
		s.goAction(func(ctx context.Context) { s.toggleLike(ctx, in.ID) })
	case MsgFeatured:
		s.goAction(func(ctx context.Context) { s.toggleFeatured(ctx, in.ID) })
	case MsgShare:
		link, err := s.actions.Share(s.page, in.ID, in.Action, s.opts.SiteURL)
		if err != nil {
			return err
		}
		s.send(Message{Type: OutShare, ID: in.ID, Share: &link})
	default:
		return fmt.Errorf("unknown message type %q", in.Type)
	}
	return nil
}

// resetAll restores the form and every slider, then searches page 1
// without a property type.
func (s *Session) resetAll() {
	s.page.ResetForm()
	s.filters.ResetAll()
	q := s.builder.Build("1")
	q.Del("property_type")
	s.orch.Dispatch(q)
}

func (s *Session) goAction(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Session) toggleLike(ctx context.Context, id int) {
	liked, toast, err := s.actions.ToggleLike(ctx, s.page, id)
	if client.IsCancelled(err) {
		return
	}
	if err == nil {
		s.mu.Lock()
		if liked {
			s.liked[id] = true
		} else {
			delete(s.liked, id)
		}
		s.mu.Unlock()
		s.send(Message{Type: OutLike, ID: id, Liked: &liked})
	}
	if toast.Message != "" {
		s.send(Message{Type: OutToast, Toast: &toast})
	}
}

func (s *Session) toggleFeatured(ctx context.Context, id int) {
	featured, toast, err := s.actions.ToggleFeatured(ctx, s.page, id)
	if client.IsCancelled(err) {
		return
	}
	if errors.Is(err, actions.ErrNotStaff) {
		s.send(Message{Type: OutError, Message: err.Error()})
		return
	}
	if err == nil {
		if s.hub != nil {
			s.hub.Broadcast(Event{Type: EventFeatured, PropertyID: id, Featured: featured, Origin: s.id})
		} else {
			s.send(Message{Type: OutFeatured, ID: id, Featured: &featured})
		}
	}
	if toast.Message != "" {
		s.send(Message{Type: OutToast, Toast: &toast})
	}
}

// ReplaceState implements search.History.
func (s *Session) ReplaceState(url string) {
	s.send(Message{Type: OutHistory, URL: url})
}

// Alert implements search.Alerter.
func (s *Session) Alert(message string) {
	s.send(Message{Type: OutAlert, Message: message})
}

// SetLoading implements search.Loader.
func (s *Session) SetLoading(loading bool) {
	s.page.SetLoading(loading)
	s.send(Message{Type: OutLoading, Loading: &loading})
}

func (s *Session) renderContext(q query.Query) render.Context {
	s.mu.Lock()
	liked := make(map[int]bool, len(s.liked))
	for id := range s.liked {
		liked[id] = true
	}
	s.mu.Unlock()

	rc := render.Context{
		LikedIDs:    liked,
		UserIsStaff: s.staff,
		BasePath:    s.opts.PagePath,
		SiteURL:     s.opts.SiteURL,
	}
	if c := strings.TrimSpace(q.Get("currency")); c != "" {
		rc.Currency = currency.Normalize(c)
		if s.opts.Rates != nil {
			rc.Rates = s.opts.Rates(s.ctx)
		}
	}
	return rc
}

// patch collects the current HTML of the re-rendered regions.
func (s *Session) patch(bound []string) Message {
	m := Message{Type: OutPatch, Bound: bound}
	for _, sel := range regions {
		html, err := s.page.Inner(sel)
		if err != nil {
			continue
		}
		m.Patches = append(m.Patches, Patch{Selector: sel, HTML: html})
	}
	return m
}

// sessionRenderer renders into the page mirror and queues the patch.
type sessionRenderer struct{ s *Session }

func (r sessionRenderer) Render(res *client.ResultPage, q query.Query) error {
	return r.Prepare(res, q)()
}

// Prepare builds the render context, which may fetch exchange rates, before
// the page mirror is touched.
func (r sessionRenderer) Prepare(res *client.ResultPage, q query.Query) func() error {
	s := r.s
	rc := s.renderContext(q)
	return func() error {
		bound, err := s.renderer.Render(s.page, res, q, rc)
		if err != nil {
			return err
		}
		s.send(s.patch(bound))
		return nil
	}
}

// filterSink mirrors slider state into the page and tells the browser.
type filterSink struct{ s *Session }

func (f filterSink) ApplyFilter(st filter.State) {
	f.s.page.ApplyFilter(st)
	if f.s.serving.Load() {
		f.s.send(Message{Type: OutFilter, Filter: &st})
	}
}
