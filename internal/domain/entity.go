package domain

import (
	"strings"
	"time"
)

// KeyValue is one entry of the durable client store.
type KeyValue struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SettingsRecord is the persisted row behind the settings endpoint.
type SettingsRecord struct {
	Shop               string `gorm:"primaryKey"`
	SelectedCurrencies string // comma separated, in merchant order
	DefaultCurrency    string
	BaseCurrency       string
	Placement          string
	FixedCorner        string
	DistanceTop        int
	DistanceRight      int
	DistanceBottom     int
	DistanceLeft       int
	CreatedAt          time.Time
	UpdatedAt          time.Time `gorm:"index"`
}

// NewSettingsRecord flattens settings into a row.
func NewSettingsRecord(s MerchantSettings) *SettingsRecord {
	return &SettingsRecord{
		Shop:               s.Shop,
		SelectedCurrencies: strings.Join(s.SelectedCurrencies, ","),
		DefaultCurrency:    s.DefaultCurrency,
		BaseCurrency:       s.BaseCurrency,
		Placement:          string(s.Placement),
		FixedCorner:        string(s.FixedCorner),
		DistanceTop:        s.DistanceTop,
		DistanceRight:      s.DistanceRight,
		DistanceBottom:     s.DistanceBottom,
		DistanceLeft:       s.DistanceLeft,
	}
}

// Settings expands the row, falling back field-by-field for values an
// older schema left blank.
func (r *SettingsRecord) Settings() MerchantSettings {
	s := Fallback()
	s.Shop = r.Shop
	s.SelectedCurrencies = []string{}
	for _, c := range strings.Split(r.SelectedCurrencies, ",") {
		if code, err := NormalizeCode(c); err == nil {
			s.SelectedCurrencies = append(s.SelectedCurrencies, code)
		}
	}
	if code, err := NormalizeCode(r.DefaultCurrency); err == nil {
		s.DefaultCurrency = code
		s.MerchantDefault = true
	}
	if code, err := NormalizeCode(r.BaseCurrency); err == nil {
		s.BaseCurrency = code
	}
	if p, ok := ParsePlacement(r.Placement); ok {
		s.Placement = p
	}
	if c, ok := ParseCorner(r.FixedCorner); ok {
		s.FixedCorner = c
	}
	s.DistanceTop = nonNegative(r.DistanceTop, FallbackDistance)
	s.DistanceRight = nonNegative(r.DistanceRight, FallbackDistance)
	s.DistanceBottom = nonNegative(r.DistanceBottom, FallbackDistance)
	s.DistanceLeft = nonNegative(r.DistanceLeft, FallbackDistance)
	return s
}

func nonNegative(v, fallback int) int {
	if v < 0 {
		return fallback
	}
	return v
}
