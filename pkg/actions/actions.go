// Package actions implements the per-card actions that sit next to the
// search engine: toggling a like, toggling the homepage "top 3" flag for
// staff, and building share links. Each action talks to the upstream site
// through the client, reflects the outcome in the page mirror and yields a
// toast for the user.
package actions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/log"
)

// Upstream is the part of the site client the actions need.
type Upstream interface {
	ToggleLike(ctx context.Context, id int) (client.LikeResult, error)
	ToggleFeatured(ctx context.Context, id int, desired *bool) (client.FeaturedResult, error)
}

// Page is the part of the page mirror the actions update.
type Page interface {
	SetLiked(id string, liked bool) bool
	SetFeatured(id string, featured bool) bool
	Featured(id string) (bool, bool)
	ShareTarget(id string) (url, title string, ok bool)
}

// Toast is a short notification shown to the user.
type Toast struct {
	Message string `json:"message"`
	Error   bool   `json:"error,omitempty"`
}

var (
	ErrNotStaff      = errors.New("featured toggle requires a staff user")
	ErrUnknownAction = errors.New("unknown share action")
	ErrNoShareTarget = errors.New("no share target for property")
)

// Service runs card actions for one page.
type Service struct {
	upstream Upstream
	staff    bool
	logger   *log.Logger
}

func New(upstream Upstream, staff bool, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.ForService("actions")
	}
	return &Service{upstream: upstream, staff: staff, logger: logger}
}

// ToggleLike flips the like state of id upstream and mirrors the answer in
// p. A failed call leaves p untouched.
func (s *Service) ToggleLike(ctx context.Context, p Page, id int) (bool, Toast, error) {
	res, err := s.upstream.ToggleLike(ctx, id)
	if err != nil {
		if client.IsCancelled(err) {
			return false, Toast{}, err
		}
		s.logger.Warnf("like %d failed: %v", id, err)
		return false, Toast{Message: "Could not update favorites", Error: true}, fmt.Errorf("toggling like for %d: %w", id, err)
	}

	switch res.Status {
	case "liked":
		p.SetLiked(strconv.Itoa(id), true)
		return true, Toast{Message: "Added to favorites"}, nil
	case "unliked":
		p.SetLiked(strconv.Itoa(id), false)
		return false, Toast{Message: "Removed from favorites"}, nil
	default:
		s.logger.Debugf("like %d: ignoring status %q", id, res.Status)
		return false, Toast{}, nil
	}
}

// ToggleFeatured asks upstream for the opposite of the flag currently shown
// in p and mirrors the value the server settled on.
func (s *Service) ToggleFeatured(ctx context.Context, p Page, id int) (bool, Toast, error) {
	if !s.staff {
		return false, Toast{}, ErrNotStaff
	}
	key := strconv.Itoa(id)
	current, _ := p.Featured(key)
	desired := !current

	res, err := s.upstream.ToggleFeatured(ctx, id, &desired)
	if err != nil {
		if client.IsCancelled(err) {
			return current, Toast{}, err
		}
		s.logger.Warnf("featured toggle %d failed: %v", id, err)
		return current, Toast{Message: "Could not update the top 3 block. Try again later.", Error: true},
			fmt.Errorf("toggling featured for %d: %w", id, err)
	}

	p.SetFeatured(key, res.Featured)
	if res.Featured {
		return true, Toast{Message: "Listing added to the top 3 block"}, nil
	}
	return false, Toast{Message: "Listing removed from the top 3 block"}, nil
}

// Share action names, as carried by data-share-action.
const (
	ShareCopy     = "copy"
	ShareTelegram = "telegram"
	ShareViber    = "viber"
	ShareNative   = "native"
)

// ShareLink is what the browser does for a share action: copy Text, or
// open URL (falling back to Fallback when the first window is blocked).
type ShareLink struct {
	Action   string `json:"action"`
	URL      string `json:"url,omitempty"`
	Fallback string `json:"fallback,omitempty"`
	Text     string `json:"text,omitempty"`
	Title    string `json:"title,omitempty"`
	Toast    *Toast `json:"toast,omitempty"`
}

// Share builds the share link for the card of id. origin resolves relative
// listing urls.
func (s *Service) Share(p Page, id int, action, origin string) (ShareLink, error) {
	raw, title, ok := p.ShareTarget(strconv.Itoa(id))
	if !ok {
		return ShareLink{}, fmt.Errorf("%w %d", ErrNoShareTarget, id)
	}
	return BuildShare(action, raw, title, origin)
}

// BuildShare resolves rawURL against origin and builds the link for action.
func BuildShare(action, rawURL, title, origin string) (ShareLink, error) {
	abs := AbsoluteURL(rawURL, origin)
	switch action {
	case ShareCopy:
		return ShareLink{Action: action, Text: abs, Toast: &Toast{Message: "Link copied"}}, nil
	case ShareTelegram:
		u := "https://t.me/share/url?url=" + encodeComponent(abs) + "&text=" + encodeComponent(title)
		return ShareLink{Action: action, URL: u}, nil
	case ShareViber:
		text := encodeComponent(title + "\n" + abs)
		return ShareLink{
			Action:   action,
			URL:      "viber://forward?text=" + text,
			Fallback: "https://viber.click?number=&text=" + text,
		}, nil
	case ShareNative:
		return ShareLink{Action: action, URL: abs, Title: title}, nil
	default:
		return ShareLink{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// AbsoluteURL resolves raw against origin. An empty or unparsable raw
// yields origin itself.
func AbsoluteURL(raw, origin string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return origin
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	base, err := url.Parse(origin)
	if err != nil || base.Scheme == "" {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return origin
	}
	return base.ResolveReference(ref).String()
}

// encodeComponent escapes like a browser's encodeURIComponent for the
// characters that matter in share links.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
