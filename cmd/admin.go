package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/dominium-estate/dominium/pkg/client"
	"github.com/dominium-estate/dominium/pkg/config"
)

// Result severities of admin commands.
const (
	SeverityInfo    = "info"
	SeveritySuccess = "success"
	SeverityError   = "error"
)

// adminResult is the outcome of one admin call as shown to the operator.
type adminResult struct {
	Severity string
	Message  string
}

func (r adminResult) String() string {
	style, ok := severityStyles[r.Severity]
	if !ok {
		style = severityStyles[SeverityInfo]
	}
	return style.Render(fmt.Sprintf("[%s] %s", r.Severity, r.Message))
}

// AdminCommand creates the admin command
func AdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Listing administration helpers",
		Commands: []*cli.Command{
			{
				Name:  "bulk",
				Usage: "Archive, restore or delete properties in one call",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "action",
						Usage:    "One of archive, restore, delete",
						Required: true,
					},
					&cli.IntSliceFlag{
						Name:     "id",
						Usage:    "Property id, repeat for more",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Confirm a delete",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					upstream, err := adminClient(c.String("config"))
					if err != nil {
						return err
					}
					res := bulkAction(ctx, upstream, c.String("action"), c.IntSlice("id"), c.Bool("yes"))
					fmt.Println(res)
					if res.Severity == SeverityError {
						return errors.New("bulk action failed")
					}
					return nil
				},
			},
			{
				Name:  "dictionaries",
				Usage: "List property types, deal types and features",
				Action: func(ctx context.Context, c *cli.Command) error {
					upstream, err := adminClient(c.String("config"))
					if err != nil {
						return err
					}
					out, err := formatDictionaries(ctx, upstream)
					if err != nil {
						return err
					}
					fmt.Print(out)
					return nil
				},
			},
		},
	}
}

func adminClient(configPath string) (*client.Client, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	// Admin calls are never cached.
	return client.New(client.Options{
		BaseURL:   cfg.Search.APIURL,
		CSRFToken: cfg.Search.CSRFToken,
	})
}

// bulkAction runs one bulk call. The listing site applies it to every id or
// to none, so the result is a single success or error.
func bulkAction(ctx context.Context, c *client.Client, action string, ids []int, confirmed bool) adminResult {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == client.BulkDelete && !confirmed {
		return adminResult{SeverityError, fmt.Sprintf("refusing to delete %d properties without --yes", len(ids))}
	}
	res, err := c.BulkAction(ctx, action, ids)
	if err != nil {
		var httpErr *client.HTTPError
		if errors.As(err, &httpErr) {
			return adminResult{SeverityError, fmt.Sprintf("%s failed with status %d", action, httpErr.Status)}
		}
		return adminResult{SeverityError, fmt.Sprintf("%s failed: %v", action, err)}
	}
	if res.Processed == 0 {
		return adminResult{SeverityInfo, fmt.Sprintf("%s: nothing to do", action)}
	}
	msg := res.Message
	if msg == "" {
		msg = fmt.Sprintf("%s applied to %d properties", action, res.Processed)
	}
	return adminResult{SeveritySuccess, msg}
}

func formatDictionaries(ctx context.Context, c *client.Client) (string, error) {
	var out strings.Builder
	for _, d := range []struct {
		title string
		fetch func(context.Context) (*client.DictionaryPage, error)
	}{
		{"Property types", c.PropertyTypes},
		{"Deal types", c.DealTypes},
		{"Features", c.Features},
	} {
		page, err := d.fetch(ctx)
		if err != nil {
			return "", fmt.Errorf("loading %s: %w", strings.ToLower(d.title), err)
		}
		items := append([]client.Named(nil), page.Results...)
		sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

		out.WriteString(titleStyle.Render(fmt.Sprintf("%s (%d)", d.title, len(items))) + "\n")
		if len(items) == 0 {
			out.WriteString(noDataStyle.Render("none") + "\n")
			continue
		}
		for _, it := range items {
			out.WriteString(fmt.Sprintf("  %s %s\n", metaStyle.Render(fmt.Sprintf("%4d", it.ID)), it.Name))
		}
		out.WriteString("\n")
	}
	return out.String(), nil
}
