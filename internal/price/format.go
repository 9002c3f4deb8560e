package price

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// maxFractionDigits caps the displayed precision regardless of currency.
const maxFractionDigits = 2

// Formatter renders amounts as localized currency strings.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter creates a Formatter for the given display language.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// NewFormatterFor picks the display language from a preference list,
// defaulting to English.
func NewFormatterFor(languages []string) *Formatter {
	tag := language.English
	if len(languages) > 0 {
		if t, err := language.Parse(languages[0]); err == nil {
			tag = t
		}
	}
	return NewFormatter(tag)
}

// Tag returns the display language.
func (f *Formatter) Tag() language.Tag { return f.tag }

// Format renders amount in code, e.g. "€9.20" or "¥1,235". Unknown codes
// render as "<CODE> <amount with 2 decimals>". Format never panics.
func (f *Formatter) Format(amount decimal.Decimal, code string) (out string) {
	code = strings.ToUpper(strings.TrimSpace(code))
	defer func() {
		if r := recover(); r != nil {
			out = plain(amount, code)
		}
	}()

	unit, err := currency.ParseISO(code)
	if err != nil {
		return plain(amount, code)
	}

	scale, _ := currency.Standard.Rounding(unit)
	if scale > maxFractionDigits {
		scale = maxFractionDigits
	}
	rounded := amount.Round(int32(scale))
	abs, _ := rounded.Abs().Float64()

	symbol := f.printer.Sprint(currency.NarrowSymbol(unit))
	if symbol == "" {
		symbol = code + " "
	}
	digits := f.printer.Sprint(number.Decimal(abs, number.Scale(scale)))

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	return sign + symbol + digits
}

func plain(amount decimal.Decimal, code string) string {
	return code + " " + amount.StringFixed(2)
}
