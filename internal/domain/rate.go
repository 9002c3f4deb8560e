package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// RateTable maps a target currency code to its multiplier against one base.
type RateTable map[string]decimal.Decimal

// Rate returns the multiplier for code, if it is present and positive.
func (t RateTable) Rate(code string) (decimal.Decimal, bool) {
	r, ok := t[strings.ToUpper(code)]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// RateKey is the cache key for a (base, targets) request.
// Targets are upper-cased and sorted so the key ignores request order.
func RateKey(base string, targets []string) string {
	sorted := make([]string, len(targets))
	for i, t := range targets {
		sorted[i] = strings.ToUpper(t)
	}
	sort.Strings(sorted)
	return "rates_" + strings.ToUpper(base) + "_" + strings.Join(sorted, ",")
}
