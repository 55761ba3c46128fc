package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/urfave/cli/v3"

	"github.com/dominium-estate/dominium/pkg/api"
	"github.com/dominium-estate/dominium/pkg/cache"
	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/config"
	"github.com/dominium-estate/dominium/pkg/currency"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/realtime"
)

// WebCommand creates the web command serving the search page and its live
// sessions
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start the search front end",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides the config file)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return startWebServer(ctx, c.String("config"), c.String("host"), c.String("port"))
		},
	}
}

// apiOptions maps the configuration onto what the server reads per request.
func apiOptions(cfg *config.Config, rates func(context.Context) currency.Rates) api.Options {
	return api.Options{
		Endpoint:        cfg.Search.Endpoint,
		PagePath:        cfg.Search.PagePath,
		SiteURL:         cfg.Web.SiteURL,
		DefaultSort:     cfg.Search.DefaultSort,
		PageSizeChoices: cfg.Search.PerPage,
		Filters:         cfg.Filters,
		Staff:           cfg.Web.Staff,
		CSRFToken:       cfg.Search.CSRFToken,
		TextDelay:       cfg.Search.TextDelay.Duration,
		ControlDelay:    cfg.Search.ControlDelay.Duration,
		Locale:          cfg.Search.Locale,
		Rates:           rates,
	}
}

// newUpstream builds the listing site client with its two level cache.
func newUpstream(cfg *config.Config) (*client.Client, *cache.Cache, error) {
	cc, err := cache.New(cache.Config{
		TTL:       cfg.Cache.TTL.Duration,
		MaxSize:   cfg.Cache.MaxSize,
		Memcached: strings.Join(cfg.Cache.Memcached, ","),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating cache: %w", err)
	}
	c, err := client.New(client.Options{
		BaseURL:    cfg.Search.APIURL,
		CSRFToken:  cfg.Search.CSRFToken,
		HTTPClient: &http.Client{Timeout: cfg.Search.Timeout.Duration},
		Cache:      cc,
	})
	if err != nil {
		cc.Stop()
		return nil, nil, fmt.Errorf("creating client: %w", err)
	}
	return c, cc, nil
}

// applyOverrides applies the --host and --port flags on top of cfg.
func applyOverrides(cfg *config.Config, host, port string) error {
	if host != "" {
		cfg.Web.Host = host
	}
	if port != "" {
		p, err := strconv.Atoi(port)
		if err != nil || p <= 0 {
			return fmt.Errorf("invalid port %q", port)
		}
		cfg.Web.Port = p
	}
	return nil
}

// restartKeys lists the settings that differ between the running config and
// next but are only read at startup: the listener, the upstream client, its
// cache and the exchange rate service.
func restartKeys(running, next *config.Config) []string {
	var keys []string
	changed := func(key string, differ bool) {
		if differ {
			keys = append(keys, key)
		}
	}
	changed("web.host", running.Web.Host != next.Web.Host)
	changed("web.port", running.Web.Port != next.Web.Port)
	changed("search.api_url", running.Search.APIURL != next.Search.APIURL)
	changed("search.csrf_token", running.Search.CSRFToken != next.Search.CSRFToken)
	changed("search.timeout", running.Search.Timeout.Duration != next.Search.Timeout.Duration)
	changed("cache.ttl", running.Cache.TTL.Duration != next.Cache.TTL.Duration)
	changed("cache.max_size", running.Cache.MaxSize != next.Cache.MaxSize)
	changed("cache.memcached", strings.Join(running.Cache.Memcached, ",") != strings.Join(next.Cache.Memcached, ","))
	changed("currency.rates_url", running.Currency.RatesURL != next.Currency.RatesURL)
	changed("currency.refresh", running.Currency.Refresh != next.Currency.Refresh)
	return keys
}

func startWebServer(ctx context.Context, configPath, host, port string) error {
	logger := log.ForService("web")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := applyOverrides(cfg, host, port); err != nil {
		return err
	}

	upstream, cc, err := newUpstream(cfg)
	if err != nil {
		return err
	}
	defer cc.Stop()

	rates := currency.NewService(currency.ServiceOptions{URL: cfg.Currency.RatesURL})
	if err := rates.Start(cfg.Currency.Refresh); err != nil {
		logger.Warnf("exchange rates will only refresh on demand: %v", err)
	}
	defer rates.Stop()

	hub := realtime.NewHub(16)

	apiServer, err := api.NewServer(upstream, hub, apiOptions(cfg, rates.Rates))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting web server on http://%s", cfg.Addr())
		logger.Infof("Available endpoints:")
		logger.Infof("    GET %s - Search page", cfg.Search.PagePath)
		logger.Infof("    GET /ws/search - Live search session (websocket)")
		logger.Infof("    GET /api/search - Search proxy returning JSON and the results fragment")
		logger.Infof("    POST /like/{id}/ - Toggle a like")
		logger.Infof("    POST /properties/{id}/toggle-featured/ - Toggle the homepage flag (staff)")
		logger.Infof("    GET /health - Health check")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	reload := func(reason string) {
		next, err := config.LoadConfig(configPath)
		if err == nil {
			err = applyOverrides(next, host, port)
		}
		if err != nil {
			logger.Errorf("Failed to reload configuration after %s: %v", reason, err)
			return
		}
		if err := apiServer.SetOptions(apiOptions(next, rates.Rates)); err != nil {
			logger.Errorf("Failed to apply configuration after %s: %v", reason, err)
			return
		}
		logger.Infof("Configuration reloaded after %s", reason)
		if keys := restartKeys(cfg, next); len(keys) > 0 {
			logger.Warnf("Changes to %s take effect after a restart", strings.Join(keys, ", "))
		}
	}

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				logger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("Watching config file for changes: %s", configPath)
		}
		events, watchErrs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown(server, apiServer, logger)
		case err := <-errCh:
			apiServer.Close()
			return fmt.Errorf("server failed: %w", err)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reload("SIGHUP")
				continue
			}
			return shutdown(server, apiServer, logger)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			// Editors replace the file on save; the watch has to be added again.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload("config file change (" + event.Op.String() + ")")
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			logger.Warnf("Config file watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server, apiServer *api.Server, logger *log.Logger) error {
	logger.Infof("Shutting down web server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	apiServer.Close()
	return server.Shutdown(shutdownCtx)
}
