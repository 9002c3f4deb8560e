// Package price turns displayed storefront prices into amounts and back.
package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse extracts the amount from a displayed price such as "$1,234.56",
// "1.234,56 €" or "Rs. 1,299". It keeps digits, separators and minus signs,
// works out which separator is the decimal point and parses the result.
//
// When both ',' and '.' appear, the last one is the decimal point. A lone
// '.' is a decimal point. A lone ',' is a thousands separator when every
// group after it has exactly three digits and the group before it is not
// zero, otherwise a decimal comma.
func Parse(text string) (decimal.Decimal, bool) {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == ',', r == '.', r == '-':
			return r
		}
		return -1
	}, text)
	if clean == "" {
		return decimal.Zero, false
	}

	negative := strings.HasPrefix(clean, "-")
	body := strings.Trim(clean, "-.,")
	if body == "" || strings.ContainsRune(body, '-') {
		return decimal.Zero, false
	}

	canonical, ok := normalize(body)
	if !ok {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(canonical)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// normalize rewrites body to "1234.56" form. body has no leading or
// trailing separators.
func normalize(body string) (string, bool) {
	lastComma := strings.LastIndexByte(body, ',')
	lastDot := strings.LastIndexByte(body, '.')

	var decimalSep, groupSep string
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			decimalSep, groupSep = ",", "."
		} else {
			decimalSep, groupSep = ".", ","
		}
	case lastDot >= 0:
		if strings.Count(body, ".") > 1 {
			groupSep = "."
		} else {
			decimalSep = "."
		}
	case lastComma >= 0:
		if strings.Count(body, ",") > 1 || groupedByThousands(body, ',') {
			groupSep = ","
		} else {
			decimalSep = ","
		}
	default:
		return body, true
	}

	if groupSep != "" {
		body = strings.ReplaceAll(body, groupSep, "")
	}
	if decimalSep == "" {
		return body, !strings.ContainsAny(body, ".,")
	}
	if strings.Count(body, decimalSep) != 1 {
		return "", false
	}
	return strings.Replace(body, decimalSep, ".", 1), true
}

// groupedByThousands reports whether every run after the first sep has
// exactly three digits. A zero leading group ("0,500") is a decimal comma.
func groupedByThousands(body string, sep byte) bool {
	parts := strings.Split(body, string(sep))
	if len(parts) < 2 || strings.TrimLeft(parts[0], "0") == "" {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
