// Package currency converts listing prices (stored in USD) to the display
// currency picked on the search page.
package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/robfig/cron/v3"

	"github.com/dominium-estate/dominium/pkg/log"
)

const (
	USD = "USD"
	EUR = "EUR"
	UAH = "UAH"

	DefaultRatesURL = "https://api.privatbank.ua/p24api/pubinfo?exchange&json&coursid=11"
	DefaultTTL      = 30 * time.Minute
	DefaultSchedule = "@every 30m"

	ratesKey = "rates"
)

// Rates maps a currency code to its price in UAH.
type Rates map[string]float64

// DefaultRates is used when the rates service has never answered.
func DefaultRates() Rates {
	return Rates{USD: 40, EUR: 43.5, UAH: 1}
}

// Option is a selectable display currency.
type Option struct {
	Code   string `json:"code"`
	Symbol string `json:"symbol"`
}

// Options lists the display currencies in menu order.
var Options = []Option{{USD, "$"}, {EUR, "€"}, {UAH, "₴"}}

// Normalize upper-cases code and falls back to USD for unknown codes.
func Normalize(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, o := range Options {
		if o.Code == code {
			return code
		}
	}
	return USD
}

// Symbol returns the sign for a normalized code.
func Symbol(code string) string {
	code = Normalize(code)
	for _, o := range Options {
		if o.Code == code {
			return o.Symbol
		}
	}
	return "$"
}

// Convert turns a USD amount into code, rounding half away from zero.
func Convert(usd float64, rates Rates, code string) int64 {
	usdRate := rateOr(rates, USD, 40)
	switch Normalize(code) {
	case UAH:
		return int64(math.Round(usd * usdRate / rateOr(rates, UAH, 1)))
	case EUR:
		return int64(math.Round(usd * usdRate / rateOr(rates, EUR, 43.5)))
	default:
		return int64(math.Round(usd))
	}
}

func rateOr(r Rates, code string, def float64) float64 {
	if v, ok := r[code]; ok && v > 0 {
		return v
	}
	return def
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	URL        string
	TTL        time.Duration
	HTTPClient *http.Client
}

// Service fetches and caches exchange rates. Callers always get usable
// rates: fresh, last known, or DefaultRates.
type Service struct {
	url    string
	ttl    time.Duration
	http   *http.Client
	cache  *ccache.Cache[Rates]
	logger *log.Logger

	mu   sync.Mutex
	last Rates
	cron *cron.Cron
}

func NewService(opts ServiceOptions) *Service {
	if opts.URL == "" {
		opts.URL = DefaultRatesURL
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Service{
		url:    opts.URL,
		ttl:    opts.TTL,
		http:   opts.HTTPClient,
		cache:  ccache.New(ccache.Configure[Rates]().MaxSize(8)),
		logger: log.ForService("currency"),
	}
}

// Rates returns cached rates, fetching on a miss.
func (s *Service) Rates(ctx context.Context) Rates {
	if item := s.cache.Get(ratesKey); item != nil && !item.Expired() {
		return item.Value()
	}
	rates, err := s.Refresh(ctx)
	if err == nil {
		return rates
	}
	s.logger.Warnf("exchange rates unavailable: %v", err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last != nil {
		return s.last
	}
	return DefaultRates()
}

type privatRate struct {
	Ccy  string `json:"ccy"`
	Sale string `json:"sale"`
}

// Refresh fetches rates unconditionally and stores them on success.
func (s *Service) Refresh(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building rates request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching rates: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("rates service returned HTTP %d", resp.StatusCode)
	}

	var items []privatRate
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding rates: %w", err)
	}

	rates := Rates{UAH: 1}
	for _, it := range items {
		if it.Ccy != USD && it.Ccy != EUR {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(it.Sale), 64)
		if err != nil || v <= 0 {
			s.logger.Warnf("invalid %s rate %q", it.Ccy, it.Sale)
			continue
		}
		rates[it.Ccy] = v
	}
	if len(rates) == 1 {
		return nil, fmt.Errorf("rates response had no usable currencies")
	}

	s.cache.Set(ratesKey, rates, s.ttl)
	s.mu.Lock()
	s.last = rates
	s.mu.Unlock()
	s.logger.Debugf("rates refreshed: %v", rates)
	return rates, nil
}

// Start refreshes rates on the cron schedule spec until Stop.
func (s *Service) Start(spec string) error {
	if spec == "" {
		spec = DefaultSchedule
	}
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warnf("scheduled refresh failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduling rates refresh %q: %w", spec, err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	s.logger.Infof("refreshing exchange rates on schedule %q", spec)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	s.cache.Stop()
}
