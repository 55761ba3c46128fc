// Package filter models the dual-handle range sliders of the search form.
//
// A Control owns the two handle positions of one slider and keeps them
// inside the slider's domain. A value sitting on a domain bound means "no
// constraint" and serializes to an empty hidden value, so it is omitted
// from the search query.
package filter

import (
	"math"
	"strconv"
	"strings"

	"github.com/dominium-estate/dominium/pkg/locale"
)

// RoomsKey selects the integer "N+" chip rendering.
const RoomsKey = "rooms"

// Side identifies which handle triggered an update.
type Side int

const (
	SideNone Side = iota
	SideMin
	SideMax
)

func (s Side) String() string {
	switch s {
	case SideMin:
		return "min"
	case SideMax:
		return "max"
	default:
		return "none"
	}
}

// ParseSide maps "min"/"max" to a Side. Anything else is SideNone.
func ParseSide(s string) Side {
	switch s {
	case "min":
		return SideMin
	case "max":
		return SideMax
	default:
		return SideNone
	}
}

// Config describes one slider. Min, Max and Step come from the page's
// data-min, data-max and data-step attributes.
type Config struct {
	Key       string  `toml:"key" json:"key"`
	Label     string  `toml:"label" json:"label"`
	Min       float64 `toml:"min" json:"min"`
	Max       float64 `toml:"max" json:"max"`
	Step      float64 `toml:"step" json:"step"`
	Symbol    string  `toml:"symbol" json:"symbol,omitempty"`
	Suffix    string  `toml:"suffix" json:"suffix,omitempty"`
	OpenEnded bool    `toml:"open_ended" json:"open_ended"`
	MinField  string  `toml:"min_field" json:"min_field"`
	MaxField  string  `toml:"max_field" json:"max_field"`
}

// Fields returns the form field names of the hidden inputs, defaulting to
// "<key>_min" and "<key>_max".
func (c Config) Fields() (string, string) {
	minField, maxField := c.MinField, c.MaxField
	if minField == "" {
		minField = c.Key + "_min"
	}
	if maxField == "" {
		maxField = c.Key + "_max"
	}
	return minField, maxField
}

// Notifier receives the app-wide "a filter changed" signal.
type Notifier interface {
	FilterChanged(key string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(key string)

func (f NotifierFunc) FilterChanged(key string) { f(key) }

// State is a rendered snapshot of a Control.
type State struct {
	Key       string  `json:"key"`
	Label     string  `json:"label"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	MinField  string  `json:"min_field"`
	MaxField  string  `json:"max_field"`
	HiddenMin string  `json:"hidden_min"`
	HiddenMax string  `json:"hidden_max"`
	MinLabel  string  `json:"min_label"`
	MaxLabel  string  `json:"max_label"`
	Gradient  string  `json:"gradient"`
	Chip      string  `json:"chip"`
}

// Control is one dual-range slider. It is not safe for concurrent use; the
// owning session serializes access.
type Control struct {
	cfg      Config
	min, max float64
	format   *locale.Formatter
	notifier Notifier
	onUpdate func(State)
}

// New builds a control positioned at currentMin/currentMax. Empty or
// unparsable values start at the domain bounds. Out-of-domain values are
// clamped and an inverted pair collapses onto the max handle.
func New(cfg Config, currentMin, currentMax string) *Control {
	if cfg.Step <= 0 {
		cfg.Step = 1
	}
	c := &Control{cfg: cfg, format: locale.Default()}

	initMin, initMax := cfg.Min, cfg.Max
	if v, ok := parseValue(currentMin); ok {
		initMin = v
	}
	if v, ok := parseValue(currentMax); ok {
		initMax = v
	}
	c.min = c.clamp(initMin)
	c.max = c.clamp(initMax)
	if c.min > c.max {
		if cfg.Max < cfg.Min {
			c.min = cfg.Min
		} else {
			c.min = math.Min(c.max, cfg.Max)
		}
	}
	c.Update(SideNone, false)
	return c
}

// SetFormatter switches the number formatter used for labels and chips.
func (c *Control) SetFormatter(f *locale.Formatter) {
	if f != nil {
		c.format = f
	}
}

// SetNotifier registers the app-wide change listener.
func (c *Control) SetNotifier(n Notifier) {
	c.notifier = n
}

func (c *Control) Key() string    { return c.cfg.Key }
func (c *Control) Config() Config { return c.cfg }
func (c *Control) Min() float64   { return c.min }
func (c *Control) Max() float64   { return c.max }

// SetHandle moves one handle to a raw value the way a range input does:
// clamp to the domain, snap to the step grid, then run Update for that side
// with notification.
func (c *Control) SetHandle(side Side, raw float64) {
	v := c.snap(raw)
	switch side {
	case SideMin:
		c.min = v
	case SideMax:
		c.max = v
	default:
		return
	}
	c.Update(side, true)
}

// Update enforces min <= max-step by pushing the handle that was not
// dragged, then clamps both handles into the domain. After Update
// domainMin <= min <= max <= domainMax always holds.
func (c *Control) Update(source Side, notify bool) {
	step := c.cfg.Step
	if c.min > c.max-step {
		if source == SideMax {
			c.max = c.clamp(c.max)
			c.min = c.max - step
		} else {
			c.min = c.clamp(c.min)
			c.max = c.min + step
		}
	}
	c.min = c.clamp(c.min)
	c.max = c.clamp(c.max)
	if c.min > c.max {
		// inverted domain
		c.max = c.min
	}

	if c.onUpdate != nil {
		c.onUpdate(c.State())
	}
	if notify && c.notifier != nil {
		c.notifier.FilterChanged(c.cfg.Key)
	}
}

// Reset moves both handles back to the domain bounds and notifies.
func (c *Control) Reset() {
	c.min, c.max = c.cfg.Min, c.cfg.Max
	c.Update(SideNone, true)
}

// Active reports whether either handle constrains the query.
func (c *Control) Active() bool {
	return c.HiddenMin() != "" || c.HiddenMax() != ""
}

// HiddenMin is the serialized min value, empty at the lower bound.
func (c *Control) HiddenMin() string {
	if c.min <= c.cfg.Min {
		return ""
	}
	return formatRaw(c.min)
}

// HiddenMax is the serialized max value, empty at the upper bound.
func (c *Control) HiddenMax() string {
	if c.max >= c.cfg.Max {
		return ""
	}
	return formatRaw(c.max)
}

func (c *Control) MinLabel() string {
	if c.min <= c.cfg.Min {
		if c.cfg.OpenEnded {
			return "Any"
		}
		return "From " + c.number(c.cfg.Min)
	}
	return "From " + c.number(c.min)
}

func (c *Control) MaxLabel() string {
	switch {
	case c.cfg.OpenEnded && c.max >= c.cfg.Max:
		return c.plus(c.cfg.Max)
	case c.max >= c.cfg.Max:
		return "Up to " + c.number(c.cfg.Max)
	default:
		return "Up to " + c.number(c.max)
	}
}

// Gradient is the CSS background painting the selected span of the track.
func (c *Control) Gradient() string {
	pMin, pMax := c.percent(c.min), c.percent(c.max)
	const track, fill = "#ffffff44", "#133E44"
	return "linear-gradient(90deg, " +
		track + " " + pMin + "%, " +
		fill + " " + pMin + "%, " +
		fill + " " + pMax + "%, " +
		track + " " + pMax + "%)"
}

// Chip is the short summary shown in the active filter bar. Empty when the
// filter does not constrain anything.
func (c *Control) Chip() string {
	hMin, hMax := c.HiddenMin(), c.HiddenMax()
	hasMin, hasMax := hMin != "", hMax != ""

	if c.cfg.Key == RoomsKey {
		return c.roomsChip(hasMin, hasMax)
	}

	switch {
	case hasMin && hasMax:
		return c.number(c.min) + " — " + c.number(c.max)
	case hasMin:
		return "from " + c.number(c.min)
	case hasMax:
		return "up to " + c.number(c.max)
	}
	return ""
}

func (c *Control) roomsChip(hasMin, hasMax bool) string {
	unlimited := !hasMax && c.max >= c.cfg.Max
	switch {
	case hasMin && hasMax:
		return c.rooms(c.min) + " — " + c.rooms(c.max)
	case hasMin && unlimited:
		return c.rooms(c.min) + "+"
	case hasMin:
		return "from " + c.rooms(c.min)
	case hasMax:
		return "up to " + c.rooms(c.max)
	case unlimited && c.min > c.cfg.Min:
		return c.rooms(c.min) + "+"
	}
	return ""
}

// State snapshots the control for rendering.
func (c *Control) State() State {
	minField, maxField := c.cfg.Fields()
	return State{
		Key:       c.cfg.Key,
		Label:     c.cfg.Label,
		Min:       c.min,
		Max:       c.max,
		MinField:  minField,
		MaxField:  maxField,
		HiddenMin: c.HiddenMin(),
		HiddenMax: c.HiddenMax(),
		MinLabel:  c.MinLabel(),
		MaxLabel:  c.MaxLabel(),
		Gradient:  c.Gradient(),
		Chip:      c.Chip(),
	}
}

func (c *Control) number(v float64) string {
	return c.format.Affixed(v, c.cfg.Symbol, c.cfg.Suffix)
}

func (c *Control) rooms(v float64) string {
	if v >= c.cfg.Max {
		return c.plus(c.cfg.Max)
	}
	return c.format.Number(v)
}

func (c *Control) plus(v float64) string {
	return formatRaw(v) + "+"
}

func (c *Control) clamp(v float64) float64 {
	if v < c.cfg.Min {
		return c.cfg.Min
	}
	if v > c.cfg.Max {
		return c.cfg.Max
	}
	return v
}

func (c *Control) snap(v float64) float64 {
	if v <= c.cfg.Min {
		return c.cfg.Min
	}
	if v >= c.cfg.Max {
		return c.cfg.Max
	}
	steps := math.Round((v - c.cfg.Min) / c.cfg.Step)
	return c.clamp(c.cfg.Min + steps*c.cfg.Step)
}

func (c *Control) percent(v float64) string {
	span := c.cfg.Max - c.cfg.Min
	if span <= 0 {
		return "0"
	}
	p := (v - c.cfg.Min) / span * 100
	return strconv.FormatFloat(math.Round(p*100)/100, 'f', -1, 64)
}

func parseValue(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func formatRaw(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
