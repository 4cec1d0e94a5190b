package render

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// EncodePDF projects the document into a single-page paginated document.
// Re-rendering the same template and payload must be byte-identical: both
// timestamps are pinned and catalog sorting is on, otherwise gofpdf emits
// font and image dictionary objects in map iteration order.
func EncodePDF(doc *Document) ([]byte, error) {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: doc.WidthMM, Ht: doc.HeightMM},
	})
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(time.Unix(0, 0).UTC())
	pdf.SetModificationDate(time.Unix(0, 0).UTC())
	pdf.SetMargins(doc.Margins.Left, doc.Margins.Top, doc.Margins.Right)
	pdf.SetAutoPageBreak(false, doc.Margins.Bottom)
	pdf.AddPage()

	for i, el := range doc.Elements {
		if err := drawElementPDF(pdf, doc, el, i); err != nil {
			return nil, err
		}
	}

	if pdf.Err() {
		return nil, fmt.Errorf("pdf build: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

func drawElementPDF(pdf *gofpdf.Fpdf, doc *Document, el Element, idx int) error {
	switch el.Type {
	case ZoneText:
		drawTextPDF(pdf, el)
	case ZoneShape:
		drawShapePDF(pdf, el)
	case ZoneImage:
		drawImagePDF(pdf, el)
	case ZoneQR:
		return drawQRPDF(pdf, doc, el, idx)
	case ZoneBarcode:
		return drawBarcodePDF(pdf, doc, el, idx)
	}
	return nil
}

func drawTextPDF(pdf *gofpdf.Fpdf, el Element) {
	styleStr := ""
	if el.Style.Bold {
		styleStr += "B"
	}
	if el.Style.Italic {
		styleStr += "I"
	}
	pdf.SetFont(coreFont(el.Style.FontFamily), styleStr, el.Style.FontSizePt)
	r, g, b := hexRGB(el.Style.Color)
	pdf.SetTextColor(r, g, b)

	fill := false
	if el.Style.BgColor != "" {
		br, bg, bb := hexRGB(el.Style.BgColor)
		pdf.SetFillColor(br, bg, bb)
		fill = true
	}

	if el.Style.RotationDeg != 0 {
		pdf.TransformBegin()
		pdf.TransformRotate(-el.Style.RotationDeg,
			el.Position.X+el.Position.Width/2,
			el.Position.Y+el.Position.Height/2)
	}

	pdf.SetXY(el.Position.X, el.Position.Y)
	pdf.CellFormat(el.Position.Width, el.Position.Height, el.Text,
		"", 0, pdfAlign(el.Style.Align), fill, 0, "")

	if el.Style.RotationDeg != 0 {
		pdf.TransformEnd()
	}
}

func drawShapePDF(pdf *gofpdf.Fpdf, el Element) {
	mode := ""
	if el.Style.BgColor != "" {
		r, g, b := hexRGB(el.Style.BgColor)
		pdf.SetFillColor(r, g, b)
		mode += "F"
	}
	if el.Style.BorderWidthMM > 0 {
		r, g, b := hexRGB(orBlack(el.Style.BorderColor))
		pdf.SetDrawColor(r, g, b)
		pdf.SetLineWidth(el.Style.BorderWidthMM)
		mode += "D"
	}
	if mode == "" {
		return
	}
	if el.Style.BorderRadiusMM > 0 {
		pdf.RoundedRect(el.Position.X, el.Position.Y, el.Position.Width, el.Position.Height,
			el.Style.BorderRadiusMM, "1234", mode)
		return
	}
	pdf.Rect(el.Position.X, el.Position.Y, el.Position.Width, el.Position.Height, mode)
}

func drawImagePDF(pdf *gofpdf.Fpdf, el Element) {
	if el.ImageURL == "" {
		return
	}
	// remote fetch is left to the delivery side; a URL reference keeps the
	// render deterministic
	pdf.SetXY(el.Position.X, el.Position.Y)
	pdf.CellFormat(el.Position.Width, el.Position.Height, "", "D", 0, "C", false, 0, el.ImageURL)
}

func drawQRPDF(pdf *gofpdf.Fpdf, doc *Document, el Element, idx int) error {
	if el.Payload == "" {
		return nil
	}
	size := pxAt(minDim(el.Position), doc.Settings.DPI)
	png, err := qrcode.Encode(el.Payload, qrECLevel(doc.Settings.QRECLevel), size)
	if err != nil {
		return fmt.Errorf("encode qr zone: %w", err)
	}

	name := fmt.Sprintf("qr-%d", idx)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	side := minDim(el.Position)
	pdf.ImageOptions(name, el.Position.X, el.Position.Y, side, side, false, opts, 0, "")
	return nil
}

func drawBarcodePDF(pdf *gofpdf.Fpdf, doc *Document, el Element, idx int) error {
	if el.Payload == "" {
		return nil
	}
	png, err := encodeBarcodePNG(el.Payload,
		pxAt(el.Position.Width, doc.Settings.DPI),
		pxAt(el.Position.Height, doc.Settings.DPI))
	if err != nil {
		return fmt.Errorf("encode barcode zone: %w", err)
	}

	name := fmt.Sprintf("bc-%d", idx)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	pdf.ImageOptions(name, el.Position.X, el.Position.Y, el.Position.Width, el.Position.Height, false, opts, 0, "")
	return nil
}

// coreFont maps arbitrary family names onto the built-in PDF core fonts so
// no font files ship with the binary.
func coreFont(family string) string {
	switch family {
	case "Times", "Times New Roman", "serif":
		return "Times"
	case "Courier", "monospace":
		return "Courier"
	default:
		return "Helvetica"
	}
}

func pdfAlign(align string) string {
	switch align {
	case "center":
		return "CM"
	case "right":
		return "RM"
	default:
		return "LM"
	}
}
