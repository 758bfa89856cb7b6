package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/trawl/internal/adapter"
	"github.com/hpungsan/trawl/internal/config"
	"github.com/hpungsan/trawl/internal/errors"
	"github.com/hpungsan/trawl/internal/ops"
	"github.com/hpungsan/trawl/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, logger *zap.Logger) *cli.App {
	app := &cli.App{
		Name:    "trawl",
		Usage:   "Capture AI chat and GitHub conversations into a local store",
		Version: Version,
		Commands: []*cli.Command{
			watchCmd(db, cfg, logger),
			extractCmd(cfg, logger),
			listCmd(db),
			fetchCmd(db),
			deleteCmd(db),
			purgeCmd(db),
			exportCmd(db, cfg),
			uiCmd(db, cfg, logger),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// watchCmd creates the watch command.
func watchCmd(db *sql.DB, cfg *config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch one page and capture new messages until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "Page URL"},
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "HTML snapshot re-read every tick instead of a browser tab"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Adapter name (default: by URL host)"},
			&cli.StringFlag{Name: "chrome-url", Usage: "Attach to a running Chrome DevTools endpoint"},
			&cli.BoolFlag{Name: "headless", Usage: "Launch Chrome without a window"},
			&cli.StringFlag{Name: "metrics-addr", Usage: "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)"},
		},
		Action: func(c *cli.Context) error {
			if c.IsSet("chrome-url") {
				cfg.ChromeURL = c.String("chrome-url")
			}
			if c.Bool("headless") {
				cfg.Headless = true
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			dep, err := newDeps(db, cfg, logger)
			if err != nil {
				return outputError(err)
			}
			defer dep.Close()

			w := config.Watch{URL: c.String("url"), File: c.String("file"), Source: c.String("source")}
			s, err := dep.newScheduler(ctx, w, "", dep.dispatcher)
			if err != nil {
				return outputError(err)
			}
			defer func() { _ = s.Close() }()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return s.Run(gctx) })
			if addr := c.String("metrics-addr"); addr != "" {
				g.Go(func() error { return dep.serveMetrics(gctx, addr) })
			}
			if err := g.Wait(); err != nil {
				return outputError(err)
			}
			return outputJSON(s.Status())
		},
	}
}

// extractCmd creates the extract command.
func extractCmd(cfg *config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "extract",
		Usage: "Run one capture pass over an HTML file and print the record without storing it",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "HTML file"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Required: true, Usage: "URL the page was saved from"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Adapter name (default: by URL host)"},
		},
		Action: func(c *cli.Context) error {
			dep := &deps{
				cfg:      cfg,
				logger:   logger,
				adapters: adapter.Default(),
				registry: prometheus.NewRegistry(),
			}
			w := config.Watch{URL: c.String("url"), File: c.String("file"), Source: c.String("source")}
			s, err := dep.newScheduler(c.Context, w, "", nil)
			if err != nil {
				return outputError(err)
			}
			defer func() { _ = s.Close() }()

			rec, err := s.Preview(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(rec)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored captures, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Filter by source"},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "Filter by type: conversation|issue|pull-request|discussion"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by tag"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted captures"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(c.Context, db, ops.ListInput{
				Source:         c.String("source"),
				Type:           c.String("type"),
				Tag:            c.String("tag"),
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a capture by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted captures"},
			&cli.BoolFlag{Name: "no-messages", Usage: "Exclude messages from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if c.Bool("no-messages") {
				includeMessages := false
				input.IncludeMessages = &includeMessages
			}

			output, err := ops.Fetch(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a capture",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted captures",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Filter by source"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}
			if source := c.String("source"); source != "" {
				input.Source = &source
			}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export captures to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.trawl/exports/<source>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "Filter by source"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted captures"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{
				Path:           c.String("path"),
				IncludeDeleted: c.Bool("include-deleted"),
			}
			if source := c.String("source"); source != "" {
				input.Source = &source
			}

			output, err := ops.Export(c.Context, db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// uiCmd creates the ui command.
func uiCmd(db *sql.DB, cfg *config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "ui",
		Usage: "Browse stored captures in a local web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8384, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(db, cfg, logger.Named("web"), Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := web.Run(ctx, srv, logger); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var cErr *errors.CaptureError
	if stderrors.As(err, &cErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", cErr.Code, cErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}
