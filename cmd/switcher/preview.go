package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"currency_switcher/internal/cache"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/editor"
	"currency_switcher/internal/infra"
	"currency_switcher/internal/locale"
	"currency_switcher/internal/rates"
	"currency_switcher/internal/settings"
	"currency_switcher/internal/widget"

	"github.com/urfave/cli/v2"
)

// =============================================================================
// PREVIEW COMMAND
// =============================================================================

// previewCommand behaves like a storefront page open in the theme editor:
// it talks to a running server over HTTP and re-renders on every override.
func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "Render a page against a running server and follow theme-editor changes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "shop", Aliases: []string{"s"}, Usage: "Shop domain", Required: true},
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Usage: "Input page", Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output page, rewritten on each change", Required: true},
			&cli.StringFlag{Name: "accept-language", Value: "en-US,en;q=0.9", Usage: "Shopper Accept-Language header"},
		},
		Action: runPreview,
	}
}

func runPreview(c *cli.Context) error {
	cfg, err := infra.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	slog.SetDefault(infra.NewLogger(cfg))

	doc, err := readPage(c.String("in"))
	if err != nil {
		return err
	}

	shop := c.String("shop")
	sw := widget.New(doc, widget.Options{
		Shop:      shop,
		Languages: locale.FromAcceptLanguage(c.String("accept-language")),
		Settings:  settings.NewResolver(cfg.API.SettingsURL),
		Rates: rates.NewProvider(cfg.API.RatesURL, cache.New(cache.NewMemoryStore()),
			rates.WithTTL(cfg.RateTTL()),
		),
		FlagBaseURL: cfg.Widget.FlagBaseURL,
	})

	ctx, stop := signalContext(c)
	defer stop()

	if err := sw.Init(ctx); err != nil {
		return fmt.Errorf("widget init: %w", err)
	}
	out := c.String("out")
	if err := writePage(out, sw); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "👀 Preview written to %s (%s). Waiting for editor changes...\n", out, sw.Current())

	l, err := editor.NewListener(cfg.API.EditorWSURL, shop)
	if err != nil {
		return err
	}
	if err := l.Connect(ctx); err != nil {
		return err
	}
	defer l.Disconnect()

	return sw.Listen(ctx, l.Overrides(), func(s domain.MerchantSettings, err error) error {
		if err != nil {
			slog.Warn("Override conversion failed", slog.Any("error", err))
		}
		if err := writePage(out, sw); err != nil {
			return err
		}
		slog.Info("Preview updated",
			slog.String("placement", string(s.Placement)),
			slog.String("corner", string(s.FixedCorner)),
		)
		return nil
	})
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
