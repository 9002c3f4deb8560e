// Package dom is the storefront page model: an x/net/html tree plus the
// small event system the currency picker needs.
package dom

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed storefront page.
type Document struct {
	root *html.Node

	mu        sync.Mutex
	listeners map[listenerKey][]*listener
}

type listenerKey struct {
	node *html.Node // nil for document-level listeners
	typ  string
}

type listener struct {
	fn Listener
}

// Event is a dispatched DOM event.
type Event struct {
	Type   string
	Target *html.Node

	stopped bool
}

// StopPropagation prevents the event from reaching ancestors and the document.
func (e *Event) StopPropagation() { e.stopped = true }

// Listener handles an event.
type Listener func(*Event)

// Parse reads an HTML page.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return NewDocument(root), nil
}

// ParseString is Parse for in-memory markup.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// NewDocument wraps an already parsed tree.
func NewDocument(root *html.Node) *Document {
	return &Document{root: root, listeners: make(map[listenerKey][]*listener)}
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// Render writes the page as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the page, for tests and logs.
func (d *Document) String() string {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return ""
	}
	return b.String()
}

// Head returns the <head> element, creating it if the page has none.
func (d *Document) Head() *html.Node {
	if n := d.first(atom.Head); n != nil {
		return n
	}
	head := NewElement("head")
	if htmlEl := d.first(atom.Html); htmlEl != nil {
		htmlEl.InsertBefore(head, htmlEl.FirstChild)
	} else {
		d.root.AppendChild(head)
	}
	return head
}

// Body returns the <body> element, creating it if the page has none.
func (d *Document) Body() *html.Node {
	if n := d.first(atom.Body); n != nil {
		return n
	}
	body := NewElement("body")
	if htmlEl := d.first(atom.Html); htmlEl != nil {
		htmlEl.AppendChild(body)
	} else {
		d.root.AppendChild(body)
	}
	return body
}

func (d *Document) first(a atom.Atom) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return false
		}
		return true
	})
	return found
}

// ElementByID returns the first element with the given id.
func (d *Document) ElementByID(id string) *html.Node {
	var found *html.Node
	walk(d.root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := Attr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// QueryFirst returns the first element matching a CSS selector, or nil.
func (d *Document) QueryFirst(selector string) *html.Node {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil
	}
	return sel.MatchFirst(d.root)
}

// On registers fn for events of typ on node, or on the document when node
// is nil. The returned func removes the listener.
func (d *Document) On(node *html.Node, typ string, fn Listener) (off func()) {
	key := listenerKey{node: node, typ: typ}
	l := &listener{fn: fn}

	d.mu.Lock()
	d.listeners[key] = append(d.listeners[key], l)
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			ls := d.listeners[key]
			for i, x := range ls {
				if x == l {
					d.listeners[key] = append(ls[:i:i], ls[i+1:]...)
					break
				}
			}
			if len(d.listeners[key]) == 0 {
				delete(d.listeners, key)
			}
		})
	}
}

// ListenerCount returns the number of registered listeners.
func (d *Document) ListenerCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, ls := range d.listeners {
		n += len(ls)
	}
	return n
}

// Dispatch delivers an event to target, then bubbles it through its
// ancestors and finally to document-level listeners. A nil target
// reaches only the document.
func (d *Document) Dispatch(typ string, target *html.Node) {
	ev := &Event{Type: typ, Target: target}
	for n := target; n != nil; n = n.Parent {
		d.fire(listenerKey{node: n, typ: typ}, ev)
		if ev.stopped {
			return
		}
	}
	d.fire(listenerKey{typ: typ}, ev)
}

// Click dispatches a click on target.
func (d *Document) Click(target *html.Node) { d.Dispatch("click", target) }

func (d *Document) fire(key listenerKey, ev *Event) {
	d.mu.Lock()
	ls := append([]*listener(nil), d.listeners[key]...)
	d.mu.Unlock()
	for _, l := range ls {
		l.fn(ev)
		if ev.stopped {
			return
		}
	}
}

// walk visits n and its descendants in document order until visit returns false.
func walk(n *html.Node, visit func(*html.Node) bool) bool {
	if !visit(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, visit) {
			return false
		}
	}
	return true
}
