package domain

import (
	"encoding/json"
	"math"
	"strings"
)

// Placement is where the currency picker lives on the page.
// The values are the strings the merchant admin stores.
type Placement string

const (
	PlacementFixed  Placement = "Fixed Position"
	PlacementInline Placement = "Inline with header"
	PlacementHidden Placement = "Hidden"
)

// ParsePlacement accepts the stored values plus the spellings older
// admin revisions wrote.
func ParsePlacement(s string) (Placement, bool) {
	key := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
	switch key {
	case "fixedposition", "fixed":
		return PlacementFixed, true
	case "inlinewithheader", "inline", "header":
		return PlacementInline, true
	case "hidden", "none":
		return PlacementHidden, true
	}
	return "", false
}

// Corner is the viewport corner a fixed picker is anchored to.
type Corner string

const (
	CornerTopLeft     Corner = "top-left"
	CornerTopRight    Corner = "top-right"
	CornerBottomLeft  Corner = "bottom-left"
	CornerBottomRight Corner = "bottom-right"
)

// ParseCorner parses a corner name, case-insensitively.
func ParseCorner(s string) (Corner, bool) {
	c := Corner(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight:
		return c, true
	}
	return "", false
}

// IsTop reports whether the corner is on the top edge.
func (c Corner) IsTop() bool { return strings.HasPrefix(string(c), "top") }

// IsLeft reports whether the corner is on the left edge.
func (c Corner) IsLeft() bool { return strings.HasSuffix(string(c), "left") }

// Fallback values used field-by-field when the settings endpoint omits or mangles a field.
const (
	FallbackDefaultCurrency = "INR"
	FallbackBaseCurrency    = "USD"
	FallbackPlacement       = PlacementFixed
	FallbackCorner          = CornerBottomRight
	FallbackDistance        = 16
)

// FallbackCurrencies is the offered list when the merchant never saved one.
var FallbackCurrencies = []string{"USD", "EUR", "INR", "CAD"}

// MerchantSettings is the resolved widget configuration for one shop.
// Every field is always populated; see Fallback.
type MerchantSettings struct {
	Shop               string    `json:"shop,omitempty"`
	SelectedCurrencies []string  `json:"selectedCurrencies"`
	DefaultCurrency    string    `json:"defaultCurrency"`
	BaseCurrency       string    `json:"baseCurrency"`
	Placement          Placement `json:"placement"`
	FixedCorner        Corner    `json:"fixedCorner"`
	DistanceTop        int       `json:"distanceTop"`
	DistanceRight      int       `json:"distanceRight"`
	DistanceBottom     int       `json:"distanceBottom"`
	DistanceLeft       int       `json:"distanceLeft"`

	// MerchantDefault is true when DefaultCurrency came from the merchant
	// rather than from the fallback.
	MerchantDefault bool `json:"-"`
}

// Fallback returns the hardcoded configuration.
func Fallback() MerchantSettings {
	return MerchantSettings{
		SelectedCurrencies: append([]string(nil), FallbackCurrencies...),
		DefaultCurrency:    FallbackDefaultCurrency,
		BaseCurrency:       FallbackBaseCurrency,
		Placement:          FallbackPlacement,
		FixedCorner:        FallbackCorner,
		DistanceTop:        FallbackDistance,
		DistanceRight:      FallbackDistance,
		DistanceBottom:     FallbackDistance,
		DistanceLeft:       FallbackDistance,
	}
}

// Clone returns a copy that shares no slices with s.
func (s MerchantSettings) Clone() MerchantSettings {
	c := s
	c.SelectedCurrencies = append(make([]string, 0, len(s.SelectedCurrencies)), s.SelectedCurrencies...)
	return c
}

// NormalizeCode upper-cases and validates an ISO 4217 style code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}

// DecodeSettings merges a settings payload over Fallback.
// The payload may carry the fields directly or nested under "data".
// A field with the wrong type or an invalid value counts as missing.
// ok is false when the payload is not a JSON object at all.
func DecodeSettings(raw []byte) (s MerchantSettings, ok bool) {
	s = Fallback()
	fields, ok := objectFields(raw)
	if !ok {
		return s, false
	}

	if v, ok := decodeString(fields["shop"]); ok {
		s.Shop = strings.TrimSpace(v)
	}

	list, ok := decodeCurrencyList(fields["selectedCurrencies"])
	if !ok {
		list, ok = decodeCurrencyList(fields["currencies"])
	}
	if ok {
		s.SelectedCurrencies = list
	}

	if v, ok := decodeCode(fields["defaultCurrency"]); ok {
		s.DefaultCurrency = v
		s.MerchantDefault = true
	}
	if v, ok := decodeCode(fields["baseCurrency"]); ok {
		s.BaseCurrency = v
	}

	o := decodeOverrideFields(fields)
	return s.WithOverride(o), true
}

// SettingsOverride is the partial layout update the theme editor broadcasts
// for live preview. Nil fields leave the resolved value untouched.
type SettingsOverride struct {
	Placement      *Placement `json:"placement,omitempty"`
	FixedCorner    *Corner    `json:"fixedCorner,omitempty"`
	DistanceTop    *int       `json:"distanceTop,omitempty"`
	DistanceRight  *int       `json:"distanceRight,omitempty"`
	DistanceBottom *int       `json:"distanceBottom,omitempty"`
	DistanceLeft   *int       `json:"distanceLeft,omitempty"`
}

// DecodeOverride leniently decodes an override payload.
// Invalid fields are dropped.
func DecodeOverride(raw []byte) (SettingsOverride, bool) {
	fields, ok := objectFields(raw)
	if !ok {
		return SettingsOverride{}, false
	}
	return decodeOverrideFields(fields), true
}

// IsEmpty reports whether the override changes nothing.
func (o SettingsOverride) IsEmpty() bool {
	return o.Placement == nil && o.FixedCorner == nil &&
		o.DistanceTop == nil && o.DistanceRight == nil &&
		o.DistanceBottom == nil && o.DistanceLeft == nil
}

// WithOverride returns a copy of s with o applied on top.
func (s MerchantSettings) WithOverride(o SettingsOverride) MerchantSettings {
	r := s.Clone()
	if o.Placement != nil {
		r.Placement = *o.Placement
	}
	if o.FixedCorner != nil {
		r.FixedCorner = *o.FixedCorner
	}
	if o.DistanceTop != nil {
		r.DistanceTop = *o.DistanceTop
	}
	if o.DistanceRight != nil {
		r.DistanceRight = *o.DistanceRight
	}
	if o.DistanceBottom != nil {
		r.DistanceBottom = *o.DistanceBottom
	}
	if o.DistanceLeft != nil {
		r.DistanceLeft = *o.DistanceLeft
	}
	return r
}

func decodeOverrideFields(fields map[string]json.RawMessage) SettingsOverride {
	var o SettingsOverride
	if v, ok := decodeString(fields["placement"]); ok {
		if p, ok := ParsePlacement(v); ok {
			o.Placement = &p
		}
	}
	if v, ok := decodeString(fields["fixedCorner"]); ok {
		if c, ok := ParseCorner(v); ok {
			o.FixedCorner = &c
		}
	}
	o.DistanceTop = decodeDistance(fields["distanceTop"])
	o.DistanceRight = decodeDistance(fields["distanceRight"])
	o.DistanceBottom = decodeDistance(fields["distanceBottom"])
	o.DistanceLeft = decodeDistance(fields["distanceLeft"])
	return o
}

func objectFields(raw []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	if nested, ok := fields["data"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil && inner != nil {
			return inner, true
		}
	}
	return fields, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return v, true
}

func decodeCode(raw json.RawMessage) (string, bool) {
	v, ok := decodeString(raw)
	if !ok {
		return "", false
	}
	code, err := NormalizeCode(v)
	return code, err == nil
}

// decodeCurrencyList keeps valid codes in order, without duplicates.
// An array whose entries are all invalid decodes to an empty list.
func decodeCurrencyList(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		code, ok := decodeCode(item)
		if !ok || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out, true
}

func decodeDistance(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	d := int(f)
	return &d
}
