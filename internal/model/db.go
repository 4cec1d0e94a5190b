package model

import "time"

type Event struct {
	ID             string `gorm:"primaryKey;size:64;not null"`
	Name           string `gorm:"size:255;not null"`
	Slug           string `gorm:"size:128;uniqueIndex;not null"`
	Venue          string `gorm:"size:255"`
	StartsAt       time.Time
	EndsAt         time.Time
	CheckinBaseURL string `gorm:"size:255"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TicketType struct {
	ID       string `gorm:"primaryKey;size:64;not null"`
	EventID  string `gorm:"size:64;index;not null"`
	Name     string `gorm:"size:255;not null"`
	Price    int64  `gorm:"not null"` // minor units
	Currency string `gorm:"size:8;not null"`
	Taxable  bool
	TaxRate  int64 // basis points, e.g. 1000 = 10%
	// nil quota means unlimited; quota_reserved + quota_sold never exceeds
	// quota_total, enforced by conditional updates only.
	QuotaTotal    *int64
	QuotaReserved int64 `gorm:"not null;default:0"`
	QuotaSold     int64 `gorm:"not null;default:0"`
	SaleStartsAt  *time.Time
	SaleEndsAt    *time.Time
	MinPerOrder   int64 `gorm:"not null;default:1"`
	MaxPerOrder   int64 `gorm:"not null;default:10"`
	Visible       bool  `gorm:"not null;default:true"`
	Sellable      bool  `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

const (
	OrderDraft          = "DRAFT"
	OrderPendingPayment = "PENDING_PAYMENT"
	OrderPaid           = "PAID"
	OrderCancelled      = "CANCELLED"
	OrderRefunded       = "REFUNDED"
)

type Order struct {
	ID         string `gorm:"primaryKey;size:64;not null"`
	EventID    string `gorm:"size:64;index;not null"`
	BuyerEmail string `gorm:"size:255;index;not null"`
	BuyerName  string `gorm:"size:255"`
	Currency   string `gorm:"size:8;not null"`
	// amounts in minor units; snapshots taken at creation, never recomputed
	Subtotal        int64   `gorm:"not null"`
	Tax             int64   `gorm:"not null"`
	Fees            int64   `gorm:"not null"`
	Discount        int64   `gorm:"not null"`
	Total           int64   `gorm:"not null"`
	Status          string  `gorm:"size:32;index;not null"`
	PromoCodeID     *string `gorm:"size:64"`
	GatewayIntentID string  `gorm:"size:128;index"`
	ExpiresAt       *time.Time
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type OrderItem struct {
	ID      uint   `gorm:"primaryKey"`
	OrderID string `gorm:"size:64;index;not null"`
	// FK → ticket_types.id, plus a name snapshot for invoices
	TicketTypeID   string `gorm:"size:64;index;not null"`
	TicketTypeName string `gorm:"size:255;not null"`
	Quantity       int64  `gorm:"not null"`
	UnitPrice      int64  `gorm:"not null"`
	LineTotal      int64  `gorm:"not null"`
	Currency       string `gorm:"size:8;not null"`
	CreatedAt      time.Time
}

const (
	PromoPercent = "PERCENT"
	PromoFixed   = "FIXED"
)

type PromotionCode struct {
	ID         string `gorm:"primaryKey;size:64;not null"`
	EventID    string `gorm:"size:64;index:idx_promo_event_code,unique;not null"`
	Code       string `gorm:"size:64;index:idx_promo_event_code,unique;not null"`
	Kind       string `gorm:"size:16;not null"` // PERCENT, FIXED
	Value      int64  `gorm:"not null"`         // percent points or minor units
	MaxUses    *int64
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// PromotionRedemption is the append-only ledger enforcing single use per email.
type PromotionRedemption struct {
	ID          uint   `gorm:"primaryKey"`
	PromoCodeID string `gorm:"size:64;index:idx_redemption_code_email,unique;not null"`
	Email       string `gorm:"size:255;index:idx_redemption_code_email,unique;not null"`
	OrderID     string `gorm:"size:64;index;not null"`
	CreatedAt   time.Time
}

type Participant struct {
	ID          string `gorm:"primaryKey;size:64;not null"`
	OrderItemID uint   `gorm:"index;not null"`
	OrderID     string `gorm:"size:64;index;not null"`
	EventID     string `gorm:"size:64;index;not null"`
	Name        string `gorm:"size:255"`
	Email       string `gorm:"size:255;index"`
	// unguessable access token used for check-in and rendering
	Token        string `gorm:"size:128;uniqueIndex;not null"`
	CheckedIn    bool   `gorm:"not null;default:false"`
	CheckedInAt  *time.Time
	TicketSent   bool `gorm:"not null;default:false"`
	RenderFailed bool `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

const (
	TemplateTicket = "TICKET"
	TemplateBadge  = "BADGE"
)

type TicketTemplate struct {
	ID           string  `gorm:"primaryKey;size:64;not null"`
	EventID      string  `gorm:"size:64;index;not null"`
	TicketTypeID *string `gorm:"size:64;index"`
	Name         string  `gorm:"size:255;not null"`
	Kind         string  `gorm:"size:16;not null"` // TICKET, BADGE
	// declarative layout, global styles and print settings as JSON documents
	Schema    string `gorm:"type:text;not null"`
	Styles    string `gorm:"type:text"`
	Settings  string `gorm:"type:text"`
	Version   int64  `gorm:"not null;default:1"`
	IsDefault bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

const (
	PrintJobPending   = "PENDING"
	PrintJobCompleted = "COMPLETED"
	PrintJobFailed    = "FAILED"
)

type PrintJob struct {
	ID            uint   `gorm:"primaryKey"`
	ParticipantID string `gorm:"size:64;index;not null"`
	Format        string `gorm:"size:16;not null"` // html, pdf, escpos
	PrinterID     string `gorm:"size:128"`
	Copies        int    `gorm:"not null;default:1"`
	Status        string `gorm:"size:16;index;not null"`
	OutputBytes   int64
	Error         string `gorm:"type:text"`
	StartedAt     time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
}

type WebhookEvent struct {
	EventID     string `gorm:"primaryKey;size:128;uniqueIndex;not null"`
	EventType   string `gorm:"size:64;index"`
	ProcessedAt time.Time
	CreatedAt   time.Time
}
