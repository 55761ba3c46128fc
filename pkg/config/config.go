package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/dominium-estate/dominium/pkg/filter"
)

//go:embed config.toml.sample
var configTemplate string

// Environment overrides, read after the config file.
const (
	EnvAPIURL    = "DOMINIUM_API_URL"
	EnvCSRFToken = "DOMINIUM_CSRF_TOKEN"
	EnvMemcached = "DOMINIUM_MEMCACHED"
)

type Config struct {
	Search   SearchConfig    `toml:"search"`
	Web      WebConfig       `toml:"web"`
	Cache    CacheConfig     `toml:"cache"`
	Currency CurrencyConfig  `toml:"currency"`
	Filters  []filter.Config `toml:"filters"`
}

type SearchConfig struct {
	// APIURL is the base URL of the listing site.
	APIURL string `toml:"api_url"`
	// Endpoint is the search path, relative to APIURL.
	Endpoint string `toml:"endpoint"`
	// PagePath is the path of the search page served by dominium.
	PagePath     string   `toml:"page_path"`
	TextDelay    Duration `toml:"text_delay"`
	ControlDelay Duration `toml:"control_delay"`
	DefaultSort  string   `toml:"default_sort"`
	PerPage      []int    `toml:"per_page"`
	Locale       string   `toml:"locale"`
	CSRFToken    string   `toml:"csrf_token,omitempty"`
	Timeout      Duration `toml:"timeout"`
}

type WebConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	// Staff renders the staff-only controls (homepage featured toggle).
	Staff bool `toml:"staff"`
	// SiteURL is the public origin used in share links.
	SiteURL string `toml:"site_url"`
}

type CacheConfig struct {
	TTL       Duration `toml:"ttl"`
	MaxSize   int64    `toml:"max_size"`
	Memcached []string `toml:"memcached"`
}

type CurrencyConfig struct {
	RatesURL string `toml:"rates_url"`
	// Refresh is a cron spec, e.g. "@every 30m".
	Refresh string `toml:"refresh"`
	Default string `toml:"default"`
}

type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func GetDefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			APIURL:       "http://localhost:8000",
			Endpoint:     "/api/properties/search/",
			PagePath:     "/search/",
			TextDelay:    Duration{600 * time.Millisecond},
			ControlDelay: Duration{300 * time.Millisecond},
			DefaultSort:  "date",
			PerPage:      []int{9, 12, 18, 24},
			Locale:       "uk",
			Timeout:      Duration{15 * time.Second},
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 8080,
		},
		Cache: CacheConfig{
			TTL:     Duration{60 * time.Second},
			MaxSize: 1000,
		},
		Currency: CurrencyConfig{
			RatesURL: "https://api.privatbank.ua/p24api/pubinfo?json&exchange&coursid=5",
			Refresh:  "@every 30m",
			Default:  "USD",
		},
		Filters: DefaultFilters(),
	}
}

// DefaultFilters are the sliders of the stock search page.
func DefaultFilters() []filter.Config {
	return []filter.Config{
		{Key: "price", Label: "Price", Min: 0, Max: 500000, Step: 1000, Symbol: "$"},
		{Key: "area", Label: "Area", Min: 0, Max: 300, Step: 5, Suffix: "m²"},
		{Key: "rooms", Label: "Rooms", Min: 1, Max: 5, Step: 1, OpenEnded: true},
	}
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := GetDefaultConfig()
		config.applyEnv()
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.fillDefaults()
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadEnvFiles loads .env style files into the process environment.
// Missing files are ignored; variables already set win.
func LoadEnvFiles(files ...string) {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func (c *Config) fillDefaults() {
	def := GetDefaultConfig()
	if c.Search.APIURL == "" {
		c.Search.APIURL = def.Search.APIURL
	}
	if c.Search.Endpoint == "" {
		c.Search.Endpoint = def.Search.Endpoint
	}
	if c.Search.PagePath == "" {
		c.Search.PagePath = def.Search.PagePath
	}
	if c.Search.TextDelay.Duration == 0 {
		c.Search.TextDelay = def.Search.TextDelay
	}
	if c.Search.ControlDelay.Duration == 0 {
		c.Search.ControlDelay = def.Search.ControlDelay
	}
	if c.Search.DefaultSort == "" {
		c.Search.DefaultSort = def.Search.DefaultSort
	}
	if len(c.Search.PerPage) == 0 {
		c.Search.PerPage = def.Search.PerPage
	}
	if c.Search.Locale == "" {
		c.Search.Locale = def.Search.Locale
	}
	if c.Search.Timeout.Duration == 0 {
		c.Search.Timeout = def.Search.Timeout
	}
	if c.Web.Host == "" {
		c.Web.Host = def.Web.Host
	}
	if c.Web.Port == 0 {
		c.Web.Port = def.Web.Port
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = def.Cache.MaxSize
	}
	if c.Currency.RatesURL == "" {
		c.Currency.RatesURL = def.Currency.RatesURL
	}
	if c.Currency.Refresh == "" {
		c.Currency.Refresh = def.Currency.Refresh
	}
	if c.Currency.Default == "" {
		c.Currency.Default = def.Currency.Default
	}
	if len(c.Filters) == 0 {
		c.Filters = def.Filters
	}
	if c.Cache.TTL.Duration == 0 {
		c.Cache.TTL = def.Cache.TTL
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		c.Search.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCSRFToken)); v != "" {
		c.Search.CSRFToken = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMemcached)); v != "" {
		c.Cache.Memcached = strings.Split(v, ",")
	}
}

// Validate checks the filter definitions.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Filters))
	for i, f := range c.Filters {
		if f.Key == "" {
			return fmt.Errorf("filter #%d has no key", i+1)
		}
		if seen[f.Key] {
			return fmt.Errorf("filter %q defined twice", f.Key)
		}
		seen[f.Key] = true
		if f.Max < f.Min {
			return fmt.Errorf("filter %q: max %v is below min %v", f.Key, f.Max, f.Min)
		}
	}
	return nil
}

// Addr is the listen address of the web server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Web.Host, c.Web.Port)
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

func (c *Config) SaveTemplateConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Replace the placeholder api_url with the configured one
	template := strings.Replace(configTemplate, "http://localhost:8000", c.Search.APIURL, 1)
	return os.WriteFile(configPath, []byte(template), 0644)
}

// GetConfigDir returns the configuration directory for dominium
func GetConfigDir() (string, error) {
	// Use XDG_CONFIG_HOME if set, otherwise use ~/.config
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "dominium")

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
