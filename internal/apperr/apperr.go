package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and handlers.
var (
	ErrTotalMismatch = errors.New("client total does not match server total")
	ErrNotFound      = errors.New("not found")
)

// ValidationError rejects malformed input before any inventory is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// QuotaExceeded carries the offending ticket type name so the caller can
// report exactly which line of the cart failed.
type QuotaExceeded struct {
	TicketType string
	Requested  int64
}

func (e *QuotaExceeded) Error() string {
	return fmt.Sprintf("quota exceeded for ticket type %q (requested %d)", e.TicketType, e.Requested)
}

// GatewayError is a transient payment gateway failure; the order stays
// pending_payment so the customer can retry.
type GatewayError struct {
	Status int
	Body   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway error %d: %s", e.Status, e.Body)
}

// RenderError is localized to one participant; it never unwinds the order
// or sibling participants.
type RenderError struct {
	ParticipantID string
	Err           error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render ticket for participant %s: %v", e.ParticipantID, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceeded
	return errors.As(err, &qe)
}

func IsGateway(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}
