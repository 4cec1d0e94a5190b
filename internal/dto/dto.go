package dto

type CartLine struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int64  `json:"quantity"`
}

type CheckoutRequest struct {
	EventID    string      `json:"event_id"`
	BuyerEmail string      `json:"buyer_email"`
	BuyerName  string      `json:"buyer_name"`
	Lines      []*CartLine `json:"lines"`
	PromoCode  string      `json:"promo_code,omitempty"`
	// client-side total is a hint to validate against, never authoritative
	ClientTotal *int64 `json:"client_total,omitempty"`
}

type CheckoutResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	Total     int64  `json:"total"`
	Currency  string `json:"currency"`
	PayURL    string `json:"pay_url,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

type OrderResponse struct {
	OrderID  string               `json:"order_id"`
	Status   string               `json:"status"`
	Subtotal int64                `json:"subtotal"`
	Tax      int64                `json:"tax"`
	Fees     int64                `json:"fees"`
	Discount int64                `json:"discount"`
	Total    int64                `json:"total"`
	Currency string               `json:"currency"`
	Items    []*OrderItemResponse `json:"items"`
}

type OrderItemResponse struct {
	TicketTypeID   string `json:"ticket_type_id"`
	TicketTypeName string `json:"ticket_type_name"`
	Quantity       int64  `json:"quantity"`
	UnitPrice      int64  `json:"unit_price"`
	LineTotal      int64  `json:"line_total"`
}

type TicketResponse struct {
	ParticipantID string `json:"participant_id"`
	EventID       string `json:"event_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	CheckedIn     bool   `json:"checked_in"`
	CheckedInAt   string `json:"checked_in_at,omitempty"`
}

type TemplateRequest struct {
	EventID      string  `json:"event_id"`
	TicketTypeID *string `json:"ticket_type_id,omitempty"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Schema       string  `json:"schema"`
	Styles       string  `json:"styles,omitempty"`
	Settings     string  `json:"settings,omitempty"`
}

type TemplatePreviewRequest struct {
	Format    string            `json:"format"`
	Variables map[string]string `json:"variables"`
}
