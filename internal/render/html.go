package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// EncodeHTML projects the document into markup for on-screen preview and
// mail delivery. Zones become absolutely positioned elements in mm units.
func EncodeHTML(doc *Document) ([]byte, error) {
	var b strings.Builder

	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<style>.pass{position:relative;width:%.1fmm;height:%.1fmm;overflow:hidden;background:#ffffff}.zone{position:absolute}</style>\n", doc.WidthMM, doc.HeightMM)
	b.WriteString("</head>\n<body>\n<div class=\"pass\">\n")

	for _, el := range doc.Elements {
		if err := writeElementHTML(&b, doc, el); err != nil {
			return nil, err
		}
	}

	b.WriteString("</div>\n</body>\n</html>\n")
	return []byte(b.String()), nil
}

func writeElementHTML(b *strings.Builder, doc *Document, el Element) error {
	switch el.Type {
	case ZoneText:
		writeTextHTML(b, el)
	case ZoneShape:
		writeShapeHTML(b, el)
	case ZoneImage:
		writeImageHTML(b, el)
	case ZoneQR:
		return writeQRHTML(b, doc, el)
	case ZoneBarcode:
		return writeBarcodeHTML(b, doc, el)
	}
	return nil
}

func writeTextHTML(b *strings.Builder, el Element) {
	css := posCSS(el.Position)
	css += fmt.Sprintf("font-family:%s;font-size:%.1fpt;color:%s;text-align:%s;",
		el.Style.FontFamily, el.Style.FontSizePt, el.Style.Color, el.Style.Align)
	if el.Style.Bold {
		css += "font-weight:bold;"
	}
	if el.Style.Italic {
		css += "font-style:italic;"
	}
	if el.Style.BgColor != "" {
		css += "background:" + el.Style.BgColor + ";"
	}
	if el.Style.RotationDeg != 0 {
		css += fmt.Sprintf("transform:rotate(%.1fdeg);", el.Style.RotationDeg)
	}
	fmt.Fprintf(b, "<div class=\"zone\" style=\"%s\">%s</div>\n", css, html.EscapeString(el.Text))
}

func writeShapeHTML(b *strings.Builder, el Element) {
	css := posCSS(el.Position)
	if el.Style.BgColor != "" {
		css += "background:" + el.Style.BgColor + ";"
	}
	if el.Style.BorderWidthMM > 0 {
		css += fmt.Sprintf("border:%.1fmm solid %s;", el.Style.BorderWidthMM, orBlack(el.Style.BorderColor))
	}
	if el.Style.BorderRadiusMM > 0 {
		css += fmt.Sprintf("border-radius:%.1fmm;", el.Style.BorderRadiusMM)
	}
	fmt.Fprintf(b, "<div class=\"zone\" style=\"%s\"></div>\n", css)
}

func writeImageHTML(b *strings.Builder, el Element) {
	fit := el.Fit
	if fit == "" {
		fit = "contain"
	}
	fmt.Fprintf(b, "<img class=\"zone\" style=\"%sobject-fit:%s;\" src=\"%s\" alt=\"\">\n",
		posCSS(el.Position), fit, html.EscapeString(el.ImageURL))
}

func writeQRHTML(b *strings.Builder, doc *Document, el Element) error {
	if el.Payload == "" {
		return nil
	}
	size := pxAt(minDim(el.Position), doc.Settings.DPI)
	png, err := qrcode.Encode(el.Payload, qrECLevel(doc.Settings.QRECLevel), size)
	if err != nil {
		return fmt.Errorf("encode qr zone: %w", err)
	}
	fmt.Fprintf(b, "<img class=\"zone\" style=\"%s\" src=\"data:image/png;base64,%s\" alt=\"\">\n",
		posCSS(el.Position), base64.StdEncoding.EncodeToString(png))
	return nil
}

func writeBarcodeHTML(b *strings.Builder, doc *Document, el Element) error {
	if el.Payload == "" {
		return nil
	}
	png, err := encodeBarcodePNG(el.Payload,
		pxAt(el.Position.Width, doc.Settings.DPI),
		pxAt(el.Position.Height, doc.Settings.DPI))
	if err != nil {
		return fmt.Errorf("encode barcode zone: %w", err)
	}
	fmt.Fprintf(b, "<img class=\"zone\" style=\"%s\" src=\"data:image/png;base64,%s\" alt=\"\">\n",
		posCSS(el.Position), base64.StdEncoding.EncodeToString(png))
	return nil
}

func posCSS(p Position) string {
	return fmt.Sprintf("left:%.1fmm;top:%.1fmm;width:%.1fmm;height:%.1fmm;", p.X, p.Y, p.Width, p.Height)
}

func orBlack(color string) string {
	if color == "" {
		return "#000000"
	}
	return color
}

func minDim(p Position) float64 {
	if p.Width < p.Height {
		return p.Width
	}
	return p.Height
}
