// Package widget is the storefront currency switcher: it resolves merchant
// settings, builds the picker, places it, and converts every price on the
// page into the shopper's currency.
package widget

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"currency_switcher/internal/cache"
	"currency_switcher/internal/dom"
	"currency_switcher/internal/domain"
	"currency_switcher/internal/infra"
	"currency_switcher/internal/locale"
	"currency_switcher/internal/price"

	"golang.org/x/net/html"
)

// Options wires a Widget to its collaborators. Settings and Rates are required.
type Options struct {
	Shop      string
	Languages []string // shopper languages, most preferred first

	Settings domain.SettingsLoader
	Rates    domain.RateSource
	Prefs    domain.Store // shopper choice; nil keeps it in memory

	Formatter   *price.Formatter // nil derives one from Languages
	FlagBaseURL string
	Metrics     *infra.Metrics
}

// Widget is one switcher instance bound to one page.
type Widget struct {
	doc       *dom.Document
	shop      string
	languages []string
	loader    domain.SettingsLoader
	rates     domain.RateSource
	prefs     domain.Store
	formatter *price.Formatter
	flagBase  string
	metrics   *infra.Metrics

	mu          sync.Mutex
	initialized bool
	settings    domain.MerchantSettings
	current     string
	picker      *Picker
	header      *html.Node
	offClick    func()
	selected    []string
}

// New creates a widget for doc. Nothing touches the page until Init.
func New(doc *dom.Document, opts Options) *Widget {
	w := &Widget{
		doc:       doc,
		shop:      opts.Shop,
		languages: opts.Languages,
		loader:    opts.Settings,
		rates:     opts.Rates,
		prefs:     opts.Prefs,
		formatter: opts.Formatter,
		flagBase:  opts.FlagBaseURL,
		metrics:   opts.Metrics,
	}
	if w.prefs == nil {
		w.prefs = cache.NewMemoryStore()
	}
	if w.formatter == nil {
		w.formatter = price.NewFormatterFor(opts.Languages)
	}
	if w.metrics == nil {
		w.metrics = infra.GlobalMetrics
	}
	return w
}

// Init injects the stylesheet, resolves settings, builds and places the
// picker and converts the page into the initial currency. A second call
// returns domain.ErrAlreadyInitialized and changes nothing.
func (w *Widget) Init(ctx context.Context) (err error) {
	defer recoverTo(&err, "init")

	if !w.begin() {
		return domain.ErrAlreadyInitialized
	}

	s := w.loader.Load(ctx, w.shop)
	current := w.build(s, locale.Detect(w.languages))

	slog.Info("Currency widget initialized",
		slog.String("shop", s.Shop),
		slog.String("currency", current),
		slog.String("base", s.BaseCurrency),
		slog.String("placement", string(s.Placement)),
	)

	if err := w.RunFor(ctx, current, s); err != nil {
		slog.Warn("Initial conversion skipped", slog.String("currency", current), slog.Any("error", err))
	}
	return nil
}

// begin claims initialization and injects the stylesheet.
func (w *Widget) begin() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.initialized {
		return false
	}
	w.initialized = true
	injectStyles(w.doc)
	return true
}

// build installs the resolved settings, registers the outside-click
// listener and renders the picker. It returns the initial currency.
func (w *Widget) build(s domain.MerchantSettings, detected string) string {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.settings = s
	w.current = w.initialCurrency(s, detected)
	w.offClick = w.doc.On(nil, "click", func(*dom.Event) {
		if w.picker != nil {
			w.picker.Close()
		}
	})
	w.render()
	return w.current
}

// initialCurrency picks the stored shopper choice, then the merchant's own
// default, then the currency of the shopper's locale.
func (w *Widget) initialCurrency(s domain.MerchantSettings, detected string) string {
	if code, ok := w.storedChoice(); ok {
		return code
	}
	if s.MerchantDefault && s.DefaultCurrency != "" {
		return s.DefaultCurrency
	}
	return detected
}

func (w *Widget) storedChoice() (string, bool) {
	raw, ok, err := w.prefs.Get(ChoiceKey)
	if err != nil {
		slog.Debug("Stored currency choice unavailable", slog.Any("error", err))
		return "", false
	}
	if !ok {
		return "", false
	}
	code, err := domain.NormalizeCode(raw)
	if err != nil {
		return "", false
	}
	return code, true
}

// RunFor shows every price on the page in code. Selecting the base currency
// restores the original text. Rates are resolved before the page is touched;
// when they are unavailable the page stays as it was and the error is
// returned for diagnostics only.
func (w *Widget) RunFor(ctx context.Context, code string, s domain.MerchantSettings) (err error) {
	defer recoverTo(&err, "run")

	if strings.EqualFold(strings.TrimSpace(code), s.BaseCurrency) {
		w.mu.Lock()
		defer w.mu.Unlock()
		for _, n := range dom.FindPriceElements(w.doc.Root()) {
			if dom.Revert(n) {
				w.metrics.RecordRevert()
			}
		}
		return nil
	}

	target, err := domain.NormalizeCode(code)
	if err != nil {
		return err
	}

	table, err := w.rates.GetRates(ctx, s.BaseCurrency, []string{target})
	if err != nil {
		slog.Warn("Rates unavailable, leaving prices unchanged",
			slog.String("base", s.BaseCurrency),
			slog.String("currency", target),
			slog.Any("error", err),
		)
		return err
	}
	rate, ok := table.Rate(target)
	if !ok {
		slog.Warn("No rate for currency, leaving prices unchanged",
			slog.String("base", s.BaseCurrency),
			slog.String("currency", target),
		)
		return fmt.Errorf("%s per %s: %w", target, s.BaseCurrency, domain.ErrRateMissing)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, n := range dom.FindPriceElements(w.doc.Root()) {
		if dom.Convert(n, rate, target, w.formatter) {
			w.metrics.RecordConversion()
			continue
		}
		w.metrics.RecordSkipped()
		slog.Debug("Skipping unparsable price", slog.String("text", dom.TextContent(n)))
	}
	return nil
}

// Select behaves like the shopper picking code from the menu.
func (w *Widget) Select(ctx context.Context, code string) error {
	normalized, err := domain.NormalizeCode(code)
	if err != nil {
		return err
	}

	pending, s, err := w.dispatch(func() error {
		if w.picker == nil {
			return errors.New("widget not initialized")
		}
		w.picker.Select(normalized)
		return nil
	})
	if err != nil {
		return err
	}

	return w.convertSelected(ctx, pending, s)
}

// Click dispatches a click on target through the page, as the browser
// would, and runs any conversion a menu selection triggered.
func (w *Widget) Click(ctx context.Context, target *html.Node) (err error) {
	defer recoverTo(&err, "click")

	pending, s, _ := w.dispatch(func() error {
		w.doc.Click(target)
		return nil
	})
	return w.convertSelected(ctx, pending, s)
}

// dispatch runs fn under the page lock and collects the selections it made.
func (w *Widget) dispatch(fn func() error) ([]string, domain.MerchantSettings, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := fn()
	pending := w.selected
	w.selected = nil
	return pending, w.settings, err
}

func (w *Widget) convertSelected(ctx context.Context, codes []string, s domain.MerchantSettings) error {
	var errs []error
	for _, code := range codes {
		if err := w.RunFor(ctx, code, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ApplyOverride merges a live theme-editor override into the resolved
// settings, rebuilds and re-places the picker, and converts again for the
// shopper's current currency. Overrides before Init are ignored.
func (w *Widget) ApplyOverride(ctx context.Context, o domain.SettingsOverride) (err error) {
	defer recoverTo(&err, "override")

	s, current, ok := w.rebuild(o)
	if !ok {
		slog.Debug("Ignoring override before init")
		return nil
	}

	w.metrics.RecordOverride()
	slog.Debug("Applied settings override",
		slog.String("placement", string(s.Placement)),
		slog.String("corner", string(s.FixedCorner)),
	)
	return w.RunFor(ctx, current, s)
}

func (w *Widget) rebuild(o domain.SettingsOverride) (domain.MerchantSettings, string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.initialized || w.picker == nil {
		return domain.MerchantSettings{}, "", false
	}
	w.settings = w.settings.WithOverride(o)
	if code, ok := w.storedChoice(); ok {
		w.current = code
		w.picker.current = code
	}
	w.render()
	return w.settings, w.current, true
}

// Listen applies overrides from ch until ctx is done or ch is closed.
// applied, when non-nil, runs after each override with the settings now in
// effect and the conversion error, if any; a non-nil return stops Listen
// and is returned.
func (w *Widget) Listen(ctx context.Context, ch <-chan domain.SettingsOverride, applied func(domain.MerchantSettings, error) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case o, ok := <-ch:
			if !ok {
				return nil
			}
			err := w.ApplyOverride(ctx, o)
			if err != nil {
				slog.Debug("Override conversion skipped", slog.Any("error", err))
			}
			if applied == nil {
				continue
			}
			if stop := applied(w.Settings(), err); stop != nil {
				return stop
			}
		}
	}
}

// Teardown removes the picker, the stylesheet and the document listener
// so the widget can be initialized again. Converted prices stay as they are.
func (w *Widget) Teardown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.offClick != nil {
		w.offClick()
		w.offClick = nil
	}
	if w.picker != nil {
		w.picker.remove()
		w.picker = nil
	}
	w.releaseHeader()
	removeStyles(w.doc)
	w.selected = nil
	w.initialized = false
}

// Render writes the current page.
func (w *Widget) Render(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.doc.Render(out)
}

// Settings returns the settings currently in effect.
func (w *Widget) Settings() domain.MerchantSettings {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.settings.Clone()
}

// Current returns the shopper's active currency.
func (w *Widget) Current() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.picker != nil {
		return w.picker.Current()
	}
	return w.current
}

// Picker returns the live picker, or nil before Init.
func (w *Widget) Picker() *Picker {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.picker
}

// render replaces the picker and applies placement. Callers hold w.mu.
func (w *Widget) render() {
	if w.picker != nil {
		w.current = w.picker.Current()
		w.picker.remove()
	}
	// A picker left in the markup by an earlier render of this page.
	dom.Detach(w.doc.ElementByID(PickerID))

	w.picker = newPicker(w.doc, w.prefs, w.settings.SelectedCurrencies, w.current, w.flagBase, func(code string) {
		w.current = code
		w.selected = append(w.selected, code)
	})
	w.place()
}

func (w *Widget) place() {
	w.releaseHeader()

	header := w.doc.QueryFirst(HeaderSelector)
	layout := Place(w.settings, header != nil)

	container := w.picker.Container()
	dom.Detach(container)
	if layout.Anchor == AnchorHeader {
		dom.SetAttr(header, HeaderAnchorAttr, "")
		header.AppendChild(container)
		w.header = header
	} else {
		w.doc.Body().AppendChild(container)
	}
	dom.SetAttr(container, "style", layout.Style.String())
}

func (w *Widget) releaseHeader() {
	if w.header != nil {
		dom.RemoveAttr(w.header, HeaderAnchorAttr)
		w.header = nil
	}
}

func recoverTo(err *error, op string) {
	if r := recover(); r != nil {
		slog.Error("Recovered from panic in currency widget",
			slog.String("op", op),
			slog.Any("panic", r),
		)
		*err = fmt.Errorf("currency widget %s: panic: %v", op, r)
	}
}
