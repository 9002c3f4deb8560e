package widget

import (
	"log/slog"
	"strings"

	"currency_switcher/internal/dom"
	"currency_switcher/internal/domain"

	"golang.org/x/net/html"
)

// MenuState is the open/closed state of the picker menu.
type MenuState int

const (
	MenuClosed MenuState = iota
	MenuOpen
)

func (s MenuState) String() string {
	if s == MenuOpen {
		return "open"
	}
	return "closed"
}

// Picker is the currency dropdown: a toggle button and a menu of the
// offered currencies.
type Picker struct {
	doc   *dom.Document
	prefs domain.Store

	container *html.Node
	button    *html.Node
	menu      *html.Node
	entries   map[string]*html.Node

	items    []string
	current  string
	state    MenuState
	onSelect func(code string)

	offs []func()
}

func newPicker(doc *dom.Document, prefs domain.Store, items []string, current, flagBaseURL string, onSelect func(string)) *Picker {
	if len(items) == 0 {
		items = []string{current}
	}
	p := &Picker{
		doc:      doc,
		prefs:    prefs,
		items:    append([]string(nil), items...),
		current:  current,
		entries:  make(map[string]*html.Node, len(items)),
		onSelect: onSelect,
	}

	p.container = dom.NewElement("div", "id", PickerID)
	p.button = dom.NewElement("button", "type", "button", "aria-haspopup", "listbox")
	p.menu = dom.NewElement("div", MenuAttr, "", "role", "listbox")
	p.container.AppendChild(p.button)
	p.container.AppendChild(p.menu)

	for _, code := range p.items {
		entry := dom.NewElement("div", ItemAttr, code, "role", "option")
		if flagBaseURL != "" {
			src := strings.TrimRight(flagBaseURL, "/") + "/" + code + ".png"
			entry.AppendChild(dom.NewElement("img", "src", src, "alt", ""))
		}
		entry.AppendChild(&html.Node{Type: html.TextNode, Data: code})
		p.menu.AppendChild(entry)
		p.entries[code] = entry

		p.offs = append(p.offs, doc.On(entry, "click", func(ev *dom.Event) {
			ev.StopPropagation()
			p.Select(code)
		}))
	}

	p.offs = append(p.offs, doc.On(p.button, "click", func(ev *dom.Event) {
		ev.StopPropagation()
		p.Toggle()
	}))

	p.sync()
	return p
}

// Toggle opens a closed menu and closes an open one.
func (p *Picker) Toggle() {
	if p.state == MenuOpen {
		p.state = MenuClosed
	} else {
		p.state = MenuOpen
	}
	p.sync()
}

// Close closes the menu. It is what the document-level click listener calls.
func (p *Picker) Close() {
	if p.state == MenuClosed {
		return
	}
	p.state = MenuClosed
	p.sync()
}

// Select closes the menu, relabels the button, persists the choice and
// hands the code to the conversion callback.
func (p *Picker) Select(code string) {
	p.state = MenuClosed
	p.current = code
	p.sync()

	if p.prefs != nil {
		if err := p.prefs.Set(ChoiceKey, code); err != nil {
			slog.Debug("Failed to persist currency choice",
				slog.String("currency", code),
				slog.Any("error", err),
			)
		}
	}
	if p.onSelect != nil {
		p.onSelect(code)
	}
}

// State returns the menu state.
func (p *Picker) State() MenuState { return p.state }

// Current returns the code shown on the button.
func (p *Picker) Current() string { return p.current }

// Items returns the menu entries in display order.
func (p *Picker) Items() []string { return append([]string(nil), p.items...) }

// Container returns the root element of the picker.
func (p *Picker) Container() *html.Node { return p.container }

// Button returns the toggle button element.
func (p *Picker) Button() *html.Node { return p.button }

// Entry returns the menu element for code, or nil.
func (p *Picker) Entry(code string) *html.Node { return p.entries[code] }

func (p *Picker) sync() {
	dom.SetTextContent(p.button, p.current)
	if p.state == MenuOpen {
		dom.SetAttr(p.menu, "style", "display: block;")
		dom.SetAttr(p.button, "aria-expanded", "true")
	} else {
		dom.SetAttr(p.menu, "style", "display: none;")
		dom.SetAttr(p.button, "aria-expanded", "false")
	}
}

// remove detaches the picker and drops its element listeners.
func (p *Picker) remove() {
	for _, off := range p.offs {
		off()
	}
	p.offs = nil
	dom.Detach(p.container)
}
