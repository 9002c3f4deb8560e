package widget

import (
	"currency_switcher/internal/dom"
)

// DOM markers shared with the storefront theme.
const (
	PickerID         = "__mlv_currency_picker_v2"
	StyleID          = "__mlv_css"
	MenuAttr         = "data-mlv-menu"
	ItemAttr         = "data-currency"
	HeaderAnchorAttr = "data-mlv-header-anchor"
	ChoiceKey        = "mlv_currency_choice_v2"
)

// HeaderSelector finds the theme header for inline placement.
const HeaderSelector = "#shopify-section-header, header, .site-header, .header, [role=banner]"

const pickerCSS = `
#` + PickerID + ` {
  position: fixed;
  z-index: 2147483647;
  font-family: system-ui, -apple-system, sans-serif;
  bottom: 16px;
  right: 16px;
}

#` + PickerID + ` button {
  padding: 10px 32px 10px 14px;
  border-radius: 8px;
  border: 1px solid #ccc;
  background: #fff;
  cursor: pointer;
  position: relative;
  font-weight: 500;
  font-size: 14px;
  box-shadow: 0 2px 8px rgba(0, 0, 0, 0.1);
}

#` + PickerID + ` button:hover {
  background: #f8f8f8;
}

#` + PickerID + ` button::after {
  content: "\25BE";
  position: absolute;
  right: 12px;
  top: 50%;
  transform: translateY(-50%);
}

[` + MenuAttr + `] {
  position: absolute;
  background: #fff;
  border-radius: 6px;
  border: 1px solid #ddd;
  box-shadow: 0 8px 24px rgba(0, 0, 0, 0.15);
  z-index: 2147483646;
  min-width: 160px;
}

[` + MenuAttr + `] div {
  padding: 10px 16px;
  cursor: pointer;
  font-size: 14px;
  border-bottom: 1px solid #eee;
}

[` + MenuAttr + `] div:last-child {
  border-bottom: none;
}

[` + MenuAttr + `] div:hover {
  background: #f2f2f2;
}

[` + MenuAttr + `] img {
  width: 24px;
  height: 16px;
  margin-right: 8px;
  vertical-align: middle;
}

[` + HeaderAnchorAttr + `] {
  position: relative;
}
`

// injectStyles adds the widget stylesheet once. It reports whether it
// added anything.
func injectStyles(doc *dom.Document) bool {
	if doc.ElementByID(StyleID) != nil {
		return false
	}
	style := dom.NewElement("style", "id", StyleID)
	dom.SetTextContent(style, pickerCSS)
	doc.Head().AppendChild(style)
	return true
}

func removeStyles(doc *dom.Document) {
	dom.Detach(doc.ElementByID(StyleID))
}
