// Package locale guesses a shopper's currency from their browser languages.
// The guess only seeds the picker when the merchant configured no default.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// DefaultCurrency is returned when nothing matches.
const DefaultCurrency = "USD"

var eurozone = map[string]bool{
	"AT": true, "BE": true, "CY": true, "DE": true, "EE": true, "ES": true,
	"FI": true, "FR": true, "GR": true, "HR": true, "IE": true, "IT": true,
	"LT": true, "LU": true, "LV": true, "MT": true, "NL": true, "PT": true,
	"SI": true, "SK": true, "EU": true,
}

var regionCurrency = map[string]string{
	"IN": "INR",
	"GB": "GBP",
	"JP": "JPY",
}

// fragmentCurrency is used for tags x/text cannot parse.
var fragmentCurrency = map[string]string{
	"in": "INR",
	"gb": "GBP",
	"uk": "GBP",
	"eu": "EUR",
	"jp": "JPY",
}

// Detect maps the first preferred language tag to a currency code.
func Detect(languages []string) string {
	if len(languages) == 0 {
		return DefaultCurrency
	}
	first := strings.TrimSpace(languages[0])
	if first == "" {
		return DefaultCurrency
	}

	if tag, err := language.Parse(first); err == nil {
		if region, conf := tag.Region(); conf != language.No {
			if code, ok := currencyForRegion(region.String()); ok {
				return code
			}
			return DefaultCurrency
		}
	}

	for _, frag := range strings.FieldsFunc(strings.ToLower(first), func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == '@'
	}) {
		if code, ok := fragmentCurrency[frag]; ok {
			return code
		}
	}
	return DefaultCurrency
}

func currencyForRegion(region string) (string, bool) {
	if code, ok := regionCurrency[region]; ok {
		return code, true
	}
	if eurozone[region] {
		return "EUR", true
	}
	return "", false
}

// FromAcceptLanguage turns an Accept-Language header into a preference
// ordered list of tags. A malformed header yields nil.
func FromAcceptLanguage(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, t.String())
	}
	return out
}
