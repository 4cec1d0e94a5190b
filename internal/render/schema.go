// Package render turns a declarative template schema plus a variable payload
// into an intermediate document, then projects it into HTML, PDF or an
// ESC/POS thermal command stream.
package render

import (
	"encoding/json"
	"fmt"
)

// ZoneType is a closed set; encoders dispatch per variant and adding an
// output format never touches the schema model.
type ZoneType string

const (
	ZoneText    ZoneType = "text"
	ZoneImage   ZoneType = "image"
	ZoneQR      ZoneType = "qr"
	ZoneBarcode ZoneType = "barcode"
	ZoneShape   ZoneType = "shape"
)

// Position and sizes are always millimetres; conversion to the target unit
// system happens only at projection time.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ZoneStyle struct {
	FontFamily     string  `json:"font_family,omitempty"`
	FontSizePt     float64 `json:"font_size,omitempty"`
	Bold           bool    `json:"bold,omitempty"`
	Italic         bool    `json:"italic,omitempty"`
	Color          string  `json:"color,omitempty"`
	BgColor        string  `json:"bg_color,omitempty"`
	BorderColor    string  `json:"border_color,omitempty"`
	BorderWidthMM  float64 `json:"border_width,omitempty"`
	BorderRadiusMM float64 `json:"border_radius,omitempty"`
	Align          string  `json:"align,omitempty"` // left, center, right
	RotationDeg    float64 `json:"rotation,omitempty"`
}

type ZoneContent struct {
	// Text may contain {{variable}} placeholders.
	Text string `json:"text,omitempty"`
	// Variable binds the zone to one resolved value (qr/barcode payloads).
	Variable string `json:"variable,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
	Fit      string `json:"fit,omitempty"` // contain, cover, fill
}

type Zone struct {
	ID       string      `json:"id"`
	Type     ZoneType    `json:"type"`
	Position Position    `json:"position"`
	Style    ZoneStyle   `json:"style"`
	Content  ZoneContent `json:"content"`
}

type Margins struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

type Schema struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
	Margins  Margins `json:"margins_mm"`
	Zones    []Zone  `json:"zones"`
}

// Styles carries template-wide typography defaults applied where a zone
// leaves its own style empty.
type Styles struct {
	FontFamily string  `json:"font_family,omitempty"`
	FontSizePt float64 `json:"font_size,omitempty"`
	TextColor  string  `json:"text_color,omitempty"`
	BgColor    string  `json:"bg_color,omitempty"`
}

type Settings struct {
	DPI       int    `json:"dpi,omitempty"`
	QRECLevel string `json:"qr_ec_level,omitempty"` // L, M, Q, H
}

func ParseSchema(raw string) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("parse template schema: %w", err)
	}
	if s.WidthMM <= 0 || s.HeightMM <= 0 {
		return nil, fmt.Errorf("template schema: page dimensions must be positive")
	}
	for i, z := range s.Zones {
		switch z.Type {
		case ZoneText, ZoneImage, ZoneQR, ZoneBarcode, ZoneShape:
		default:
			return nil, fmt.Errorf("template schema: zone %d has unknown type %q", i, z.Type)
		}
	}
	return &s, nil
}

func ParseStyles(raw string) (*Styles, error) {
	s := &Styles{}
	if raw == "" {
		return s, nil
	}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, fmt.Errorf("parse template styles: %w", err)
	}
	return s, nil
}

func ParseSettings(raw string) (*Settings, error) {
	s := &Settings{}
	if raw == "" {
		return applySettingsDefaults(s), nil
	}
	if err := json.Unmarshal([]byte(raw), s); err != nil {
		return nil, fmt.Errorf("parse template settings: %w", err)
	}
	return applySettingsDefaults(s), nil
}

func applySettingsDefaults(s *Settings) *Settings {
	if s.DPI == 0 {
		s.DPI = 300
	}
	if s.QRECLevel == "" {
		s.QRECLevel = "M"
	}
	return s
}
