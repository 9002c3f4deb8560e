package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeSettings_PartialPayload(t *testing.T) {
	raw := []byte(`{"selectedCurrencies":["USD","EUR"],"defaultCurrency":"EUR","baseCurrency":"USD"}`)

	got, ok := DecodeSettings(raw)
	if !ok {
		t.Fatal("expected payload to decode")
	}

	want := Fallback()
	want.SelectedCurrencies = []string{"USD", "EUR"}
	want.DefaultCurrency = "EUR"
	want.MerchantDefault = true

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DecodeSettings mismatch (-want +got):\n%s", diff)
	}
	if got.Placement != PlacementFixed {
		t.Errorf("Placement = %q, want %q", got.Placement, PlacementFixed)
	}
}

func TestDecodeSettings_NeverPartial(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		wantOK bool
	}{
		{"empty object", `{}`, true},
		{"null", `null`, false},
		{"array", `[1,2,3]`, false},
		{"garbage", `<html>oops</html>`, false},
		{"empty body", ``, false},
		{"nulls everywhere", `{"selectedCurrencies":null,"placement":null,"distanceTop":null}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeSettings([]byte(tt.raw))
			if ok != tt.wantOK {
				t.Errorf("ok = %v, want %v", ok, tt.wantOK)
			}
			if diff := cmp.Diff(Fallback(), got); diff != "" {
				t.Errorf("expected fallback settings (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeSettings_NestedData(t *testing.T) {
	raw := []byte(`{"ok":true,"data":{"baseCurrency":"gbp","placement":"Hidden","fixedCorner":"TOP-LEFT","distanceLeft":4}}`)

	got, ok := DecodeSettings(raw)
	if !ok {
		t.Fatal("expected payload to decode")
	}
	if got.BaseCurrency != "GBP" {
		t.Errorf("BaseCurrency = %q, want GBP", got.BaseCurrency)
	}
	if got.Placement != PlacementHidden {
		t.Errorf("Placement = %q, want Hidden", got.Placement)
	}
	if got.FixedCorner != CornerTopLeft {
		t.Errorf("FixedCorner = %q, want top-left", got.FixedCorner)
	}
	if got.DistanceLeft != 4 || got.DistanceTop != FallbackDistance {
		t.Errorf("distances = left %d top %d", got.DistanceLeft, got.DistanceTop)
	}
}

func TestDecodeSettings_InvalidFieldsCountAsMissing(t *testing.T) {
	raw := []byte(`{
		"selectedCurrencies": "USD",
		"defaultCurrency": 42,
		"baseCurrency": "dollars",
		"placement": "sideways",
		"fixedCorner": "middle",
		"distanceTop": -3,
		"distanceRight": 2.5,
		"distanceBottom": "8",
		"distanceLeft": 0
	}`)

	got, _ := DecodeSettings(raw)

	want := Fallback()
	want.DistanceLeft = 0
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeSettings_CurrencyList(t *testing.T) {
	t.Run("filters and dedupes in order", func(t *testing.T) {
		got, _ := DecodeSettings([]byte(`{"selectedCurrencies":["eur","USD",7,"EUR","bad-code","jpy"]}`))
		if diff := cmp.Diff([]string{"EUR", "USD", "JPY"}, got.SelectedCurrencies); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("explicit empty list stays empty", func(t *testing.T) {
		got, _ := DecodeSettings([]byte(`{"selectedCurrencies":[]}`))
		if got.SelectedCurrencies == nil || len(got.SelectedCurrencies) != 0 {
			t.Errorf("SelectedCurrencies = %#v, want empty non-nil slice", got.SelectedCurrencies)
		}
	})

	t.Run("write path alias", func(t *testing.T) {
		got, _ := DecodeSettings([]byte(`{"currencies":["CAD"]}`))
		if diff := cmp.Diff([]string{"CAD"}, got.SelectedCurrencies); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestParsePlacement(t *testing.T) {
	tests := []struct {
		in   string
		want Placement
		ok   bool
	}{
		{"Fixed Position", PlacementFixed, true},
		{"FixedPosition", PlacementFixed, true},
		{"fixed", PlacementFixed, true},
		{"Inline with header", PlacementInline, true},
		{"InlineWithHeader", PlacementInline, true},
		{"Hidden", PlacementHidden, true},
		{"bottom-right", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParsePlacement(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePlacement(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestWithOverride(t *testing.T) {
	base := Fallback()
	base.SelectedCurrencies = []string{"USD", "EUR"}

	o, ok := DecodeOverride([]byte(`{"placement":"Inline with header","distanceTop":40,"distanceRight":-1}`))
	if !ok {
		t.Fatal("expected override to decode")
	}
	if o.IsEmpty() {
		t.Fatal("override should not be empty")
	}

	got := base.WithOverride(o)
	if got.Placement != PlacementInline {
		t.Errorf("Placement = %q, want inline", got.Placement)
	}
	if got.DistanceTop != 40 {
		t.Errorf("DistanceTop = %d, want 40", got.DistanceTop)
	}
	if got.DistanceRight != FallbackDistance {
		t.Errorf("negative distance should be ignored, got %d", got.DistanceRight)
	}

	// The source snapshot is untouched.
	got.SelectedCurrencies[0] = "JPY"
	if base.SelectedCurrencies[0] != "USD" || base.Placement != PlacementFixed {
		t.Error("WithOverride must not mutate the receiver")
	}
}

func TestNormalizeCode(t *testing.T) {
	for _, in := range []string{"usd", " EUR ", "Jpy"} {
		if _, err := NormalizeCode(in); err != nil {
			t.Errorf("NormalizeCode(%q) unexpected error %v", in, err)
		}
	}
	for _, in := range []string{"", "US", "USDT", "U$D", "€"} {
		if _, err := NormalizeCode(in); err == nil {
			t.Errorf("NormalizeCode(%q) expected error", in)
		}
	}
}
