package search

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/query"
)

// Default debounce windows.
const (
	DefaultTextDelay    = 600 * time.Millisecond
	DefaultControlDelay = 300 * time.Millisecond
)

// AlertMessage is shown once for every failed search.
const AlertMessage = "Could not update the results. Please try again."

// Trigger selects the debounce window of a scheduled search.
type Trigger int

const (
	// TriggerText is free-text typing; it waits the long window.
	TriggerText Trigger = iota
	// TriggerControl is a dropdown, checkbox or slider change.
	TriggerControl
)

func (t Trigger) String() string {
	if t == TriggerText {
		return "text"
	}
	return "control"
}

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StatePending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	default:
		return "closed"
	}
}

// Outcome is how a dispatched search ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeCancelled
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "error"
	}
}

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, endpoint string, q query.Query) (*client.ResultPage, error)
}

// Renderer draws a successful result page.
type Renderer interface {
	Render(res *client.ResultPage, q query.Query) error
}

// Preparer is an optional Renderer extension. Prepare gathers what drawing
// res needs and runs without the orchestrator lock held. The returned
// function is applied under the lock, and only if the request is still
// current.
type Preparer interface {
	Prepare(res *client.ResultPage, q query.Query) func() error
}

// History mirrors the canonical query into the browser address bar.
type History interface {
	ReplaceState(url string)
}

// Alerter surfaces a blocking error message.
type Alerter interface {
	Alert(message string)
}

// QueryBuilder serializes the current form state.
type QueryBuilder interface {
	Build(page string) query.Query
	Sort() string
}

// Loader toggles the busy indicator. Optional.
type Loader interface {
	SetLoading(loading bool)
}

// Result describes a finished search.
type Result struct {
	Seq     uint64
	Outcome Outcome
	Query   query.Query
	URL     string
	Page    *client.ResultPage
	Err     error
}

// Options configures an Orchestrator.
type Options struct {
	// Endpoint is the upstream search path, relative to the client base.
	Endpoint string
	// PagePath is the path of history urls built from the form.
	PagePath     string
	TextDelay    time.Duration
	ControlDelay time.Duration
	// Initial is the query the page was loaded with.
	Initial query.Query
	Loader  Loader
	Logger  *log.Logger
	// OnOutcome is called after every finished search, outside any lock.
	OnOutcome func(Result)
}

type request struct {
	seq     uint64
	query   query.Query
	url     string
	history bool
	cancel  context.CancelFunc
}

// Orchestrator debounces search triggers, keeps at most one request in
// flight and applies results in supersession order.
type Orchestrator struct {
	searcher Searcher
	renderer Renderer
	history  History
	alerter  Alerter
	builder  QueryBuilder
	opts     Options
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	state    State
	timer    *time.Timer
	timerGen uint64
	seq      uint64
	inflight *request
	snapshot query.Query

	// loadMu orders Loader calls; loading is the last value sent.
	loadMu  sync.Mutex
	loading bool
}

// New returns an idle orchestrator. Zero delays use the defaults.
func New(searcher Searcher, renderer Renderer, history History, alerter Alerter, builder QueryBuilder, opts Options) *Orchestrator {
	if opts.TextDelay <= 0 {
		opts.TextDelay = DefaultTextDelay
	}
	if opts.ControlDelay <= 0 {
		opts.ControlDelay = DefaultControlDelay
	}
	if opts.PagePath == "" {
		opts.PagePath = "/search/"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.ForService("search")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		searcher: searcher,
		renderer: renderer,
		history:  history,
		alerter:  alerter,
		builder:  builder,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		snapshot: opts.Initial.Clone(),
	}
}

// State returns the lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the query of the last successful render, or the initial
// query.
func (o *Orchestrator) Current() query.Query {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot.Clone()
}

// FilterChanged schedules a control-window search. It makes the
// orchestrator the app-wide filter notifier.
func (o *Orchestrator) FilterChanged(key string) {
	o.logger.Debugf("filter %s changed", key)
	o.Schedule(TriggerControl)
}

// Schedule restarts the debounce timer. When it fires the form is
// serialized and dispatched, unless the query equals the current snapshot
// and nothing is in flight.
func (o *Orchestrator) Schedule(trigger Trigger) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateClosed {
		return
	}
	delay := o.opts.ControlDelay
	if trigger == TriggerText {
		delay = o.opts.TextDelay
	}
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timerGen++
	gen := o.timerGen
	o.timer = time.AfterFunc(delay, func() { o.fire(gen) })
}

func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	if gen != o.timerGen || o.timer == nil || o.state == StateClosed {
		o.mu.Unlock()
		return
	}
	o.timer = nil
	q := o.builder.Build("")
	if q.Equal(o.snapshot) && o.inflight == nil {
		o.mu.Unlock()
		o.logger.Debugf("debounced query unchanged, skipping: %s", q.Encode())
		return
	}
	o.mu.Unlock()
	o.dispatch(q, o.opts.PagePath, true)
}

// Submit dispatches the form immediately, on page 1.
func (o *Orchestrator) Submit() {
	o.stopTimer()
	o.dispatch(o.builder.Build("1"), o.opts.PagePath, true)
}

// Dispatch sends q immediately, bypassing the debounce window. A pending
// debounce is dropped. Any request in flight is cancelled, unless it carries
// the same query.
func (o *Orchestrator) Dispatch(q query.Query) {
	o.stopTimer()
	o.dispatch(q, o.opts.PagePath, true)
}

// Navigate dispatches the query of a pagination or search link. The current
// sort is added when the link has none.
func (o *Orchestrator) Navigate(href string) error {
	q, path, err := o.parseLink(href)
	if err != nil {
		return err
	}
	o.stopTimer()
	o.dispatch(q, path, true)
	return nil
}

// Restore dispatches href without touching history, for back/forward
// navigation.
func (o *Orchestrator) Restore(href string) error {
	q, path, err := o.parseLink(href)
	if err != nil {
		return err
	}
	o.stopTimer()
	o.dispatch(q, path, false)
	return nil
}

// Refresh re-runs the current snapshot.
func (o *Orchestrator) Refresh() {
	o.dispatch(o.Current(), o.opts.PagePath, true)
}

// Close stops the timer, cancels any request in flight and waits for
// running searches to return. Later calls are no-ops.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.state == StateClosed {
		o.mu.Unlock()
		return
	}
	o.state = StateClosed
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.inflight != nil {
		o.inflight.cancel()
		o.inflight = nil
	}
	o.mu.Unlock()
	o.cancel()
	o.wg.Wait()
}

func (o *Orchestrator) parseLink(href string) (query.Query, string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return query.Query{}, "", fmt.Errorf("parsing link %q: %w", href, err)
	}
	q, err := query.Parse(u.RawQuery)
	if err != nil {
		return query.Query{}, "", fmt.Errorf("parsing link query: %w", err)
	}
	q = query.EnsureSort(q, o.builder.Sort())
	path := u.Path
	if path == "" {
		path = o.opts.PagePath
	}
	return q, path, nil
}

func (o *Orchestrator) stopTimer() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
}

func (o *Orchestrator) dispatch(q query.Query, path string, replaceHistory bool) {
	o.mu.Lock()
	if o.state == StateClosed {
		o.mu.Unlock()
		return
	}
	if o.inflight != nil && o.inflight.query.Equal(q) {
		o.mu.Unlock()
		o.logger.Debugf("identical query already in flight: %s", q.Encode())
		return
	}
	if o.inflight != nil {
		o.logger.Debugf("superseding request #%d", o.inflight.seq)
		o.inflight.cancel()
	}
	o.seq++
	ctx, cancel := context.WithCancel(o.ctx)
	req := &request{
		seq:     o.seq,
		query:   q.Clone(),
		url:     q.URL(path),
		history: replaceHistory,
		cancel:  cancel,
	}
	o.inflight = req
	o.state = StatePending
	o.wg.Add(1)
	o.mu.Unlock()

	o.logger.Debugf("dispatching #%d %s", req.seq, req.url)
	go o.run(ctx, req)
	o.syncLoading()
}

// syncLoading sends the Loader whether a request is in flight now. Calls are
// serialized, so the last one sent always matches the latest state.
func (o *Orchestrator) syncLoading() {
	if o.opts.Loader == nil {
		return
	}
	o.loadMu.Lock()
	defer o.loadMu.Unlock()
	o.mu.Lock()
	busy, closed := o.inflight != nil, o.state == StateClosed
	o.mu.Unlock()
	if closed || busy == o.loading {
		return
	}
	o.loading = busy
	o.opts.Loader.SetLoading(busy)
}

// prepare runs the Preparer step of the renderer for a request that is still
// current. It returns nil when there is nothing to apply.
func (o *Orchestrator) prepare(req *request, res *client.ResultPage) func() error {
	p, ok := o.renderer.(Preparer)
	if !ok {
		return nil
	}
	o.mu.Lock()
	current := o.inflight == req
	o.mu.Unlock()
	if !current {
		return nil
	}
	return p.Prepare(res, req.query)
}

func (o *Orchestrator) run(ctx context.Context, req *request) {
	defer o.wg.Done()
	defer req.cancel()

	res, err := o.searcher.Search(ctx, o.opts.Endpoint, req.query)
	result := Result{Seq: req.seq, Query: req.query, URL: req.url}
	var apply func() error
	if err == nil {
		apply = o.prepare(req, res)
	}

	o.mu.Lock()
	current := o.inflight == req && o.state != StateClosed
	if current {
		o.inflight = nil
		o.state = StateIdle
	}
	switch {
	case !current, client.IsCancelled(err), errors.Is(err, context.Canceled):
		result.Outcome = OutcomeCancelled
		result.Err = err
	case err != nil:
		result.Outcome = OutcomeError
		result.Err = err
	default:
		// Applying and history run under the lock so a newer request
		// cannot interleave with them.
		if apply == nil {
			apply = func() error { return o.renderer.Render(res, req.query) }
		}
		if rerr := apply(); rerr != nil {
			result.Outcome = OutcomeError
			result.Err = fmt.Errorf("rendering results: %w", rerr)
		} else {
			result.Outcome = OutcomeSuccess
			result.Page = res
			if req.history && o.history != nil {
				o.history.ReplaceState(req.url)
			}
			o.snapshot = req.query
		}
	}
	o.mu.Unlock()

	o.syncLoading()

	switch result.Outcome {
	case OutcomeSuccess:
		o.logger.Debugf("request #%d rendered %d results", req.seq, len(res.Results))
	case OutcomeCancelled:
		o.logger.Debugf("request #%d cancelled", req.seq)
	case OutcomeError:
		o.logger.Errorf("search update failed: %v", result.Err)
		if o.alerter != nil {
			o.alerter.Alert(AlertMessage)
		}
	}

	if o.opts.OnOutcome != nil {
		o.opts.OnOutcome(result)
	}
}
