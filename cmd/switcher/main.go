// Currency Switcher - storefront currency display for Shopify themes
//
// Usage:
//
//	switcher serve
//	switcher convert --shop demo.myshopify.com --currency EUR --in page.html
//	switcher preview --shop demo.myshopify.com --in page.html --out preview.html
//	switcher sync-assets
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"currency_switcher/internal/app"
	"currency_switcher/internal/cache"
	"currency_switcher/internal/dom"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/widget"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	cliApp := &cli.App{
		Name:    "switcher",
		Usage:   "Currency switcher widget server and tools",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "configs/config.yaml",
				Usage:   "Path to the YAML config (empty for defaults)",
				EnvVars: []string{"SWITCHER_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			convertCommand(),
			previewCommand(),
			syncAssetsCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap initializes shared components; the caller closes it.
func bootstrap(c *cli.Context) (*app.Bootstrap, error) {
	b := app.NewBootstrap()
	if err := b.Initialize(c.String("config")); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		return nil, err
	}
	return b, nil
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the app proxy HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "sync-assets",
				Value: true,
				Usage: "Download flag icons in the background on start",
			},
		},
		Action: func(c *cli.Context) error {
			b, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signalContext(c)
			defer stop()

			if c.Bool("sync-assets") {
				go b.SyncAssets(ctx)
			}
			return b.Serve(ctx)
		},
	}
}

// =============================================================================
// CONVERT COMMAND
// =============================================================================

func convertCommand() *cli.Command {
	return &cli.Command{
		Name:  "convert",
		Usage: "Run the widget over an HTML page with a shop's saved settings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "shop", Aliases: []string{"s"}, Usage: "Shop domain", Required: true},
			&cli.StringFlag{Name: "currency", Usage: "Currency to display instead of the detected one"},
			&cli.StringFlag{Name: "lang", Value: "en-US", Usage: "Shopper language tags, comma separated"},
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Input page (stdin when empty)"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output page (stdout when empty)"},
		},
		Action: runConvert,
	}
}

func runConvert(c *cli.Context) error {
	b, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer b.Close()

	doc, err := readPage(c.String("in"))
	if err != nil {
		return err
	}

	prefs := cache.NewMemoryStore()
	if raw := c.String("currency"); raw != "" {
		code, err := domain.NormalizeCode(raw)
		if err != nil {
			return fmt.Errorf("--currency: %w", err)
		}
		prefs.Set(widget.ChoiceKey, code)
	}

	sw := widget.New(doc, widget.Options{
		Shop:        c.String("shop"),
		Languages:   splitList(c.String("lang")),
		Settings:    b.Loader,
		Rates:       b.Rates,
		Prefs:       prefs,
		FlagBaseURL: b.Config.Widget.FlagBaseURL,
		Metrics:     b.Metrics,
	})
	if err := sw.Init(c.Context); err != nil {
		return fmt.Errorf("widget init: %w", err)
	}

	fmt.Fprintf(os.Stderr, "💱 Displayed in %s (%d prices converted)\n", sw.Current(), b.Metrics.Snapshot().Conversions)
	return writePage(c.String("out"), sw)
}

// =============================================================================
// SYNC-ASSETS COMMAND
// =============================================================================

func syncAssetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync-assets",
		Usage: "Download flag icons for every offered currency",
		Action: func(c *cli.Context) error {
			b, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer b.Close()

			ctx, stop := signalContext(c)
			defer stop()

			n := b.SyncAssets(ctx)
			fmt.Fprintf(os.Stderr, "🏳️  %d flags in %s\n", n, b.Flags.Dir())
			return nil
		},
	}
}

func readPage(path string) (*dom.Document, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

func writePage(path string, sw *widget.Widget) error {
	if path == "" {
		return sw.Render(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := sw.Render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
