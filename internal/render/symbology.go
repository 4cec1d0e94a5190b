package render

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	qrcode "github.com/skip2/go-qrcode"
)

func qrECLevel(level string) qrcode.RecoveryLevel {
	switch level {
	case "L":
		return qrcode.Low
	case "Q":
		return qrcode.High
	case "H":
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

func encodeBarcodePNG(value string, widthPx, heightPx int) ([]byte, error) {
	bc, err := code128.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}

	scaled, err := barcode.Scale(bc, widthPx, heightPx)
	if err != nil {
		return nil, fmt.Errorf("code128 scale: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, fmt.Errorf("code128 png: %w", err)
	}
	return buf.Bytes(), nil
}
