// Package client talks to the listing API: paginated search, like and
// featured toggles, dictionaries and admin bulk actions.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dominium-estate/dominium/pkg/cache"
	"github.com/dominium-estate/dominium/pkg/log"
	"github.com/dominium-estate/dominium/pkg/query"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultSearchPath = "/api/properties/"
	csrfCookie        = "csrftoken"
	maxBodyBytes      = 8 << 20
)

// Options configures a Client.
type Options struct {
	// BaseURL is the origin of the listing site, e.g. https://dominium.example.
	BaseURL string
	// CSRFToken is sent as X-CSRFToken on POST requests. When empty the
	// csrftoken cookie of the jar is used.
	CSRFToken  string
	HTTPClient *http.Client
	Cache      *cache.Cache
	UserAgent  string
}

// Client is safe for concurrent use.
type Client struct {
	base      *url.URL
	http      *http.Client
	csrf      string
	cache     *cache.Cache
	userAgent string
	logger    *log.Logger
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "dominium"
	}
	return &Client{
		base:      base,
		http:      hc,
		csrf:      opts.CSRFToken,
		cache:     opts.Cache,
		userAgent: ua,
		logger:    log.ForService("client"),
	}, nil
}

// BaseURL returns the configured origin.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// Search fetches one result page. endpoint is a path ("/api/properties/")
// or an absolute URL. A cancelled ctx yields ErrCancelled.
func (c *Client) Search(ctx context.Context, endpoint string, q query.Query) (*ResultPage, error) {
	target, err := c.resolve(endpoint)
	if err != nil {
		return nil, err
	}
	target.RawQuery = q.Encode()

	var key string
	if c.cache != nil {
		key = cache.Key(target.Scheme, target.Host, target.Path, q.Canonical())
		if body, ok := c.cache.Get(key); ok {
			var page ResultPage
			if err := json.Unmarshal(body, &page); err == nil {
				return &page, nil
			}
			c.cache.Delete(key)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var page ResultPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &ParseError{Source: "search response", Err: err}
	}
	if c.cache != nil {
		c.cache.Set(key, body)
	}
	return &page, nil
}

// ToggleLike flips the like flag of a property for the current user.
func (c *Client) ToggleLike(ctx context.Context, id int) (LikeResult, error) {
	var out LikeResult
	err := c.postForm(ctx, fmt.Sprintf("/like/%d/", id), nil, &out)
	return out, err
}

// ToggleFeatured sets or flips the homepage featured flag. A nil desired
// lets the server flip it.
func (c *Client) ToggleFeatured(ctx context.Context, id int, desired *bool) (FeaturedResult, error) {
	var form url.Values
	if desired != nil {
		form = url.Values{"featured": {strconv.FormatBool(*desired)}}
	}
	var out FeaturedResult
	if err := c.postForm(ctx, fmt.Sprintf("/properties/%d/toggle-featured/", id), form, &out); err != nil {
		return out, err
	}
	if c.cache != nil {
		c.cache.Purge()
	}
	return out, nil
}

func (c *Client) PropertyTypes(ctx context.Context) (*DictionaryPage, error) {
	return c.dictionary(ctx, "/api/property-types/")
}

func (c *Client) DealTypes(ctx context.Context) (*DictionaryPage, error) {
	return c.dictionary(ctx, "/api/deal-types/")
}

func (c *Client) Features(ctx context.Context) (*DictionaryPage, error) {
	return c.dictionary(ctx, "/api/features/")
}

// BulkAction archives, restores or deletes properties. The server applies
// it to all ids or fails as a whole.
func (c *Client) BulkAction(ctx context.Context, action string, ids []int) (*BulkResult, error) {
	switch action {
	case BulkArchive, BulkRestore, BulkDelete:
	default:
		return nil, fmt.Errorf("unsupported bulk action %q", action)
	}
	if len(ids) == 0 {
		return nil, errors.New("bulk action needs at least one id")
	}
	payload, err := json.Marshal(map[string]any{"action": action, "ids": ids})
	if err != nil {
		return nil, fmt.Errorf("encoding bulk payload: %w", err)
	}
	target, err := c.resolve("/api/properties/bulk-action/")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building bulk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setCSRF(req)

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var out BulkResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ParseError{Source: "bulk action response", Err: err}
	}
	if c.cache != nil {
		c.cache.Purge()
	}
	return &out, nil
}

func (c *Client) dictionary(ctx context.Context, path string) (*DictionaryPage, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building dictionary request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	var out DictionaryPage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ParseError{Source: path, Err: err}
	}
	return &out, nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out any) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	c.setCSRF(req)

	raw, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Source: path, Err: err}
	}
	return nil
}

// do sends req and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	reqID := uuid.NewString()
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("X-Request-ID", reqID)
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			c.logger.Debugf("%s %s cancelled (%s)", req.Method, req.URL.Path, reqID)
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if errors.Is(req.Context().Err(), context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("reading %s response: %w", req.URL.Path, err)
	}
	c.logger.Debugf("%s %s -> %d in %s (%s)", req.Method, req.URL.RequestURI(), resp.StatusCode, time.Since(start).Round(time.Millisecond), reqID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) setCSRF(req *http.Request) {
	token := c.csrf
	if token == "" && c.http.Jar != nil {
		for _, ck := range c.http.Jar.Cookies(req.URL) {
			if ck.Name == csrfCookie {
				token = ck.Value
				break
			}
		}
	}
	if token != "" {
		req.Header.Set("X-CSRFToken", token)
	}
}

func (c *Client) resolve(endpoint string) (*url.URL, error) {
	if endpoint == "" {
		endpoint = DefaultSearchPath
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %q: %w", endpoint, err)
	}
	return c.base.ResolveReference(ref), nil
}
