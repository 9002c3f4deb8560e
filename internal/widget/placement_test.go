package widget

import (
	"testing"

	"currency_switcher/internal/domain"
)

func TestPlace(t *testing.T) {
	base := domain.Fallback()
	base.DistanceTop, base.DistanceRight, base.DistanceBottom, base.DistanceLeft = 10, 20, 30, 40

	with := func(p domain.Placement, c domain.Corner) domain.MerchantSettings {
		s := base.Clone()
		s.Placement = p
		s.FixedCorner = c
		return s
	}

	tests := []struct {
		name        string
		settings    domain.MerchantSettings
		headerFound bool
		anchor      AnchorKind
		style       string
	}{
		{
			name:     "fixed top-left",
			settings: with(domain.PlacementFixed, domain.CornerTopLeft),
			anchor:   AnchorViewport,
			style:    "position: fixed; top: 10px; right: auto; bottom: auto; left: 40px; display: block;",
		},
		{
			name:     "fixed top-right",
			settings: with(domain.PlacementFixed, domain.CornerTopRight),
			anchor:   AnchorViewport,
			style:    "position: fixed; top: 10px; right: 20px; bottom: auto; left: auto; display: block;",
		},
		{
			name:     "fixed bottom-left",
			settings: with(domain.PlacementFixed, domain.CornerBottomLeft),
			anchor:   AnchorViewport,
			style:    "position: fixed; top: auto; right: auto; bottom: 30px; left: 40px; display: block;",
		},
		{
			name:     "fixed bottom-right",
			settings: with(domain.PlacementFixed, domain.CornerBottomRight),
			anchor:   AnchorViewport,
			style:    "position: fixed; top: auto; right: 20px; bottom: 30px; left: auto; display: block;",
		},
		{
			name:        "inline with header",
			settings:    with(domain.PlacementInline, domain.CornerBottomLeft),
			headerFound: true,
			anchor:      AnchorHeader,
			style:       "position: absolute; top: 10px; right: 20px; bottom: auto; left: auto; display: block;",
		},
		{
			name:     "inline without header",
			settings: with(domain.PlacementInline, domain.CornerBottomLeft),
			anchor:   AnchorViewport,
			style:    "position: fixed; top: 10px; right: 20px; bottom: auto; left: auto; display: block;",
		},
		{
			name:        "hidden",
			settings:    with(domain.PlacementHidden, domain.CornerTopRight),
			headerFound: true,
			anchor:      AnchorViewport,
			style:       "position: fixed; top: 10px; right: 20px; bottom: auto; left: auto; display: none;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Place(tt.settings, tt.headerFound)
			if got.Anchor != tt.anchor {
				t.Errorf("anchor = %v, want %v", got.Anchor, tt.anchor)
			}
			if s := got.Style.String(); s != tt.style {
				t.Errorf("style = %q\nwant    %q", s, tt.style)
			}
		})
	}
}

func TestPlace_NegativeDistanceClamped(t *testing.T) {
	s := domain.Fallback()
	s.DistanceBottom = -5
	if got := Place(s, false).Style.Bottom; got != "0px" {
		t.Errorf("bottom = %q, want 0px", got)
	}
}
