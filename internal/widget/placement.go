package widget

import (
	"strconv"
	"strings"

	"currency_switcher/internal/domain"
)

// AnchorKind is what the picker container is positioned against.
type AnchorKind int

const (
	AnchorViewport AnchorKind = iota // fixed to the viewport, appended to <body>
	AnchorHeader                     // absolute inside the page header
)

func (a AnchorKind) String() string {
	if a == AnchorHeader {
		return "header"
	}
	return "viewport"
}

const auto = "auto"

// Style is the complete positioning style of the picker container.
// It is always written as a whole so earlier layouts never leak through.
type Style struct {
	Position string
	Top      string
	Right    string
	Bottom   string
	Left     string
	Display  string
}

// String renders the style attribute value.
func (s Style) String() string {
	decls := []struct{ k, v string }{
		{"position", s.Position},
		{"top", s.Top},
		{"right", s.Right},
		{"bottom", s.Bottom},
		{"left", s.Left},
		{"display", s.Display},
	}
	var b strings.Builder
	for _, d := range decls {
		if d.v == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(d.k)
		b.WriteString(": ")
		b.WriteString(d.v)
		b.WriteString(";")
	}
	return b.String()
}

// Layout is where and how the picker is placed.
type Layout struct {
	Anchor AnchorKind
	Style  Style
}

// Place computes the picker layout from resolved settings. headerFound says
// whether the page has a header container to sit in.
func Place(s domain.MerchantSettings, headerFound bool) Layout {
	switch s.Placement {
	case domain.PlacementInline:
		if headerFound {
			return Layout{
				Anchor: AnchorHeader,
				Style: Style{
					Position: "absolute",
					Top:      px(s.DistanceTop),
					Right:    px(s.DistanceRight),
					Bottom:   auto,
					Left:     auto,
					Display:  "block",
				},
			}
		}
		return Layout{
			Anchor: AnchorViewport,
			Style: Style{
				Position: "fixed",
				Top:      px(s.DistanceTop),
				Right:    px(s.DistanceRight),
				Bottom:   auto,
				Left:     auto,
				Display:  "block",
			},
		}
	case domain.PlacementHidden:
		l := fixedLayout(s)
		l.Style.Display = "none"
		return l
	default:
		return fixedLayout(s)
	}
}

func fixedLayout(s domain.MerchantSettings) Layout {
	st := Style{Position: "fixed", Display: "block"}
	if s.FixedCorner.IsTop() {
		st.Top, st.Bottom = px(s.DistanceTop), auto
	} else {
		st.Top, st.Bottom = auto, px(s.DistanceBottom)
	}
	if s.FixedCorner.IsLeft() {
		st.Left, st.Right = px(s.DistanceLeft), auto
	} else {
		st.Left, st.Right = auto, px(s.DistanceRight)
	}
	return Layout{Anchor: AnchorViewport, Style: st}
}

func px(v int) string {
	if v < 0 {
		v = 0
	}
	return strconv.Itoa(v) + "px"
}
