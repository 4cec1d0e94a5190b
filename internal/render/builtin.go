package render

// BuiltinSchema is the fallback layout used when an event has no default
// template: an A6 pass with the event name, participant name and a check-in
// QR code.
func BuiltinSchema() *Schema {
	return &Schema{
		WidthMM:  105,
		HeightMM: 148,
		Margins:  Margins{Top: 5, Right: 5, Bottom: 5, Left: 5},
		Zones: []Zone{
			{
				ID:       "header",
				Type:     ZoneShape,
				Position: Position{X: 0, Y: 0, Width: 105, Height: 28},
				Style:    ZoneStyle{BgColor: "#1a1a2e"},
			},
			{
				ID:       "event-name",
				Type:     ZoneText,
				Position: Position{X: 5, Y: 8, Width: 95, Height: 12},
				Style:    ZoneStyle{FontSizePt: 16, Bold: true, Color: "#ffffff", Align: "center"},
				Content:  ZoneContent{Text: "{{event_name}}"},
			},
			{
				ID:       "participant-name",
				Type:     ZoneText,
				Position: Position{X: 5, Y: 38, Width: 95, Height: 10},
				Style:    ZoneStyle{FontSizePt: 13, Align: "center"},
				Content:  ZoneContent{Text: "{{participant_name}}"},
			},
			{
				ID:       "ticket-type",
				Type:     ZoneText,
				Position: Position{X: 5, Y: 50, Width: 95, Height: 8},
				Style:    ZoneStyle{FontSizePt: 10, Color: "#555555", Align: "center"},
				Content:  ZoneContent{Text: "{{ticket_type}}"},
			},
			{
				ID:       "checkin-qr",
				Type:     ZoneQR,
				Position: Position{X: 32.5, Y: 65, Width: 40, Height: 40},
				Content:  ZoneContent{Variable: "checkin_url"},
			},
			{
				ID:       "token",
				Type:     ZoneText,
				Position: Position{X: 5, Y: 110, Width: 95, Height: 6},
				Style:    ZoneStyle{FontFamily: "Courier", FontSizePt: 7, Color: "#888888", Align: "center"},
				Content:  ZoneContent{Text: "{{ticket_token}}"},
			},
		},
	}
}
