package filter

import (
	"github.com/dominium-estate/dominium/pkg/locale"
)

// Sink mirrors control state into the page (hidden inputs, labels, chips).
type Sink interface {
	ApplyFilter(State)
}

// Set groups the sliders of one search form. Every control reports to the
// same Notifier so changes on several sliders share one debounce window.
type Set struct {
	controls map[string]*Control
	order    []string
	notifier Notifier
	sink     Sink
	format   *locale.Formatter
}

func NewSet(n Notifier, sink Sink, f *locale.Formatter) *Set {
	if f == nil {
		f = locale.Default()
	}
	return &Set{
		controls: make(map[string]*Control),
		notifier: n,
		sink:     sink,
		format:   f,
	}
}

// Add registers a control for cfg. A control with the same key is replaced.
func (s *Set) Add(cfg Config, currentMin, currentMax string) *Control {
	c := New(cfg, currentMin, currentMax)
	c.SetFormatter(s.format)
	c.SetNotifier(s.notifier)
	if s.sink != nil {
		c.onUpdate = s.sink.ApplyFilter
		s.sink.ApplyFilter(c.State())
	}
	if _, exists := s.controls[cfg.Key]; !exists {
		s.order = append(s.order, cfg.Key)
	}
	s.controls[cfg.Key] = c
	return c
}

func (s *Set) Get(key string) (*Control, bool) {
	c, ok := s.controls[key]
	return c, ok
}

// Controls returns the controls in registration order.
func (s *Set) Controls() []*Control {
	out := make([]*Control, 0, len(s.order))
	for _, k := range s.order {
		out = append(out, s.controls[k])
	}
	return out
}

// Len returns the number of registered controls.
func (s *Set) Len() int {
	return len(s.order)
}

// ResetAll returns every control to its domain bounds without notifying.
func (s *Set) ResetAll() {
	for _, c := range s.Controls() {
		c.min, c.max = c.cfg.Min, c.cfg.Max
		c.Update(SideNone, false)
	}
}

// Chips lists the states with a non-empty chip in registration order.
func (s *Set) Chips() []State {
	var out []State
	for _, c := range s.Controls() {
		if st := c.State(); st.Chip != "" {
			out = append(out, st)
		}
	}
	return out
}
