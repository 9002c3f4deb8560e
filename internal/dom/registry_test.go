package dom

import (
	"strings"
	"testing"

	"currency_switcher/internal/price"

	"github.com/shopspring/decimal"
	"golang.org/x/net/html"
	"golang.org/x/text/language"
)

const productPage = `<!DOCTYPE html>
<html><head><title>Shop</title></head>
<body>
  <header class="site-header"><a href="/">Logo</a></header>
  <div class="product">
    <span class="price-item--regular">$10.00</span>
    <span class="price-item--sale price">$8.50</span>
    <div data-price="1">1,234.56</div>
    <p class="cart__price">Sold out</p>
    <div class="product__price"><span class="money">$20.00</span></div>
  </div>
  <span class="unrelated">$99.00</span>
</body></html>`

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func texts(els []*html.Node) []string {
	out := make([]string, len(els))
	for i, n := range els {
		out[i] = strings.TrimSpace(TextContent(n))
	}
	return out
}

func TestFindPriceElements(t *testing.T) {
	doc := mustParse(t, productPage)

	got := texts(FindPriceElements(doc.Root()))
	want := []string{"$10.00", "$8.50", "1,234.56", "Sold out", "$20.00"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("FindPriceElements = %v, want %v", got, want)
	}
}

func TestConvert_UsesOriginalSnapshot(t *testing.T) {
	doc := mustParse(t, `<html><body><span class="money">$10.00</span></body></html>`)
	el := FindPriceElements(doc.Root())[0]
	f := price.NewFormatter(language.English)

	if !Convert(el, decimal.RequireFromString("0.92"), "EUR", f) {
		t.Fatal("expected conversion")
	}
	if got := TextContent(el); got != "€9.20" {
		t.Fatalf("converted text = %q, want €9.20", got)
	}

	// Idempotent under repeated application.
	Convert(el, decimal.RequireFromString("0.92"), "EUR", f)
	if got := TextContent(el); got != "€9.20" {
		t.Errorf("second conversion = %q, want €9.20", got)
	}

	// Switching currency recomputes from the original, not from €9.20.
	Convert(el, decimal.RequireFromString("0.79"), "GBP", f)
	if got := TextContent(el); got != "£7.90" {
		t.Errorf("GBP conversion = %q, want £7.90", got)
	}

	if orig, _ := Original(el); orig != "$10.00" {
		t.Errorf("snapshot = %q, want $10.00", orig)
	}

	if !Revert(el) {
		t.Fatal("expected revert")
	}
	if got := TextContent(el); got != "$10.00" {
		t.Errorf("reverted text = %q, want $10.00", got)
	}
}

func TestConvert_UnparsableLeftUntouched(t *testing.T) {
	doc := mustParse(t, `<html><body><p class="cart__price">Sold out</p></body></html>`)
	el := FindPriceElements(doc.Root())[0]

	if Convert(el, decimal.NewFromInt(2), "EUR", price.NewFormatter(language.English)) {
		t.Error("unparsable element must report no conversion")
	}
	if got := TextContent(el); got != "Sold out" {
		t.Errorf("text = %q, want untouched", got)
	}
}

func TestRevert_NeverConvertedIsNoop(t *testing.T) {
	doc := mustParse(t, `<html><body><span class="money"> $5 </span></body></html>`)
	el := FindPriceElements(doc.Root())[0]

	if Revert(el) {
		t.Error("revert without snapshot should be a no-op")
	}
	if got := TextContent(el); got != " $5 " {
		t.Errorf("text changed to %q", got)
	}
}

func TestNestedPriceMarkupSurvivesRoundTrip(t *testing.T) {
	doc := mustParse(t, `<html><body><div class="price"><span class="money">$20.00</span></div></body></html>`)
	f := price.NewFormatter(language.English)

	for _, el := range FindPriceElements(doc.Root()) {
		Convert(el, decimal.NewFromInt(2), "USD", f)
	}
	for _, el := range FindPriceElements(doc.Root()) {
		Revert(el)
	}

	if doc.QueryFirst("div.price > span.money") == nil {
		t.Error("inner money span should survive convert and revert")
	}
}
