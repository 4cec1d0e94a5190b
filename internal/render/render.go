package render

import (
	"regexp"
	"strings"
)

// Element is one resolved zone: placeholders substituted, bound values
// materialized, template-wide style defaults folded in. Geometry stays in
// millimetres until an encoder projects it.
type Element struct {
	Type     ZoneType
	Position Position
	Style    ZoneStyle
	Text     string // text zones
	Payload  string // qr/barcode zones
	ImageURL string
	Fit      string
}

// Document is the output-independent intermediate form. Encoders consume it;
// none of them see the schema or the variable payload.
type Document struct {
	WidthMM  float64
	HeightMM float64
	Margins  Margins
	Settings Settings
	Elements []Element
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Substitute replaces every {{variable}} occurrence with its resolved value.
// Missing variables render as empty string, never as a literal token and
// never as an error.
func Substitute(text string, vars map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		return vars[name]
	})
}

// Resolve assembles the intermediate document for one variable payload.
func Resolve(schema *Schema, styles *Styles, settings *Settings, vars map[string]string) *Document {
	doc := &Document{
		WidthMM:  schema.WidthMM,
		HeightMM: schema.HeightMM,
		Margins:  schema.Margins,
		Settings: *settings,
		Elements: make([]Element, 0, len(schema.Zones)),
	}

	for _, zone := range schema.Zones {
		el := Element{
			Type:     zone.Type,
			Position: zone.Position,
			Style:    mergeStyle(zone.Style, styles),
			ImageURL: zone.Content.ImageURL,
			Fit:      zone.Content.Fit,
		}

		switch zone.Type {
		case ZoneText:
			el.Text = Substitute(zone.Content.Text, vars)
		case ZoneQR, ZoneBarcode:
			el.Payload = boundValue(zone.Content, vars)
		case ZoneImage:
			el.ImageURL = Substitute(zone.Content.ImageURL, vars)
		case ZoneShape:
			// geometry and style only
		}

		doc.Elements = append(doc.Elements, el)
	}

	return doc
}

func boundValue(content ZoneContent, vars map[string]string) string {
	if content.Variable != "" {
		return vars[content.Variable]
	}
	return Substitute(content.Text, vars)
}

func mergeStyle(zs ZoneStyle, global *Styles) ZoneStyle {
	if zs.FontFamily == "" {
		zs.FontFamily = global.FontFamily
	}
	if zs.FontFamily == "" {
		zs.FontFamily = "Helvetica"
	}
	if zs.FontSizePt == 0 {
		zs.FontSizePt = global.FontSizePt
	}
	if zs.FontSizePt == 0 {
		zs.FontSizePt = 10
	}
	if zs.Color == "" {
		zs.Color = global.TextColor
	}
	if zs.Color == "" {
		zs.Color = "#000000"
	}
	if zs.Align == "" {
		zs.Align = "left"
	}
	return zs
}

// hexRGB parses "#RRGGBB" into components; malformed values fall back to
// black so a bad template still renders.
func hexRGB(hex string) (int, int, int) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0
	}
	var r, g, b int
	for i, out := range []*int{&r, &g, &b} {
		v := 0
		for _, c := range hex[i*2 : i*2+2] {
			v *= 16
			switch {
			case c >= '0' && c <= '9':
				v += int(c - '0')
			case c >= 'a' && c <= 'f':
				v += int(c-'a') + 10
			case c >= 'A' && c <= 'F':
				v += int(c-'A') + 10
			default:
				return 0, 0, 0
			}
		}
		*out = v
	}
	return r, g, b
}

// pxAt converts millimetres to the pixel footprint at the settings' DPI.
func pxAt(mm float64, dpi int) int {
	px := int(mm / 25.4 * float64(dpi))
	if px < 1 {
		px = 1
	}
	return px
}
