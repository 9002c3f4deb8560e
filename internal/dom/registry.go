package dom

import (
	"strings"

	"currency_switcher/internal/price"

	"github.com/andybalholm/cascadia"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
)

// OriginalAttr holds an element's text as first seen, before any conversion.
const OriginalAttr = "data-orig"

// PriceSelectors covers the price markup of common Shopify themes.
var PriceSelectors = []string{
	"[data-price]",
	".price",
	".product__price",
	".cart__price",
	"span.money",
	".price-item--regular",
	".price-item--sale",
	".cart-item__price",
}

var priceMatcher = cascadia.MustCompile(strings.Join(PriceSelectors, ", "))

// FindPriceElements returns every price element under root, in document
// order and without duplicates. When price elements nest, only the
// innermost ones are returned so rewriting never destroys inner markup.
func FindPriceElements(root *html.Node) []*html.Node {
	matches := priceMatcher.MatchAll(root)
	matched := make(map[*html.Node]bool, len(matches))
	for _, n := range matches {
		matched[n] = true
	}

	out := make([]*html.Node, 0, len(matches))
	for _, n := range matches {
		if !hasMatchedDescendant(n, matched) {
			out = append(out, n)
		}
	}
	return out
}

func hasMatchedDescendant(n *html.Node, matched map[*html.Node]bool) bool {
	found := false
	for c := n.FirstChild; c != nil && !found; c = c.NextSibling {
		walk(c, func(d *html.Node) bool {
			if matched[d] {
				found = true
				return false
			}
			return true
		})
	}
	return found
}

// Original returns the snapshot taken on the element's first conversion.
func Original(n *html.Node) (string, bool) {
	return Attr(n, OriginalAttr)
}

// Convert rewrites the element to show its original amount times rate in
// code. The first call snapshots the trimmed text; every call computes from
// that snapshot, so repeated or out-of-order conversions are idempotent.
// Elements whose original text has no parsable amount are left untouched
// and Convert reports false.
func Convert(n *html.Node, rate decimal.Decimal, code string, f *price.Formatter) bool {
	orig, ok := Original(n)
	if !ok {
		orig = strings.TrimSpace(TextContent(n))
		SetAttr(n, OriginalAttr, orig)
	}

	amount, ok := price.Parse(orig)
	if !ok {
		return false
	}
	SetTextContent(n, f.Format(amount.Mul(rate), code))
	return true
}

// Revert restores the snapshot, if the element was ever converted.
func Revert(n *html.Node) bool {
	orig, ok := Original(n)
	if !ok {
		return false
	}
	SetTextContent(n, orig)
	return true
}
