// Package locale formats numbers the way the listing pages display them:
// grouped thousands, no fraction for whole values, plain spaces as the
// group separator.
package locale

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultTag is used when no locale is configured.
const DefaultTag = "uk"

// Formatter is safe for concurrent use.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

var defaultFormatter = New(DefaultTag)

// Default returns the shared formatter for DefaultTag.
func Default() *Formatter {
	return defaultFormatter
}

// New returns a formatter for the BCP 47 tag. Unknown tags fall back to
// DefaultTag.
func New(tag string) *Formatter {
	t, err := language.Parse(tag)
	if err != nil || tag == "" {
		t = language.Ukrainian
	}
	return &Formatter{tag: t, printer: message.NewPrinter(t)}
}

func (f *Formatter) Tag() string {
	return f.tag.String()
}

// Number groups v. Whole values print without a fraction, others keep up
// to two fraction digits.
func (f *Formatter) Number(v float64) string {
	var out string
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		out = f.printer.Sprintf("%d", int64(v))
	} else {
		out = f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
	}
	return normalizeSpaces(out)
}

// Integer rounds half away from zero before grouping.
func (f *Formatter) Integer(v float64) string {
	return f.Number(math.Round(v))
}

// Affixed renders "<symbol><number> <suffix>" trimming empty parts.
func (f *Formatter) Affixed(v float64, symbol, suffix string) string {
	out := symbol + f.Number(v)
	if suffix != "" {
		out += " " + suffix
	}
	return strings.TrimSpace(out)
}

// CLDR group separators for uk and friends are NBSP or NNBSP.
var spaceReplacer = strings.NewReplacer("\u00a0", " ", "\u202f", " ")

func normalizeSpaces(s string) string {
	return spaceReplacer.Replace(s)
}
