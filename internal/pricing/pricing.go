// Package pricing computes order totals. Evaluate is a pure function over
// its inputs; persistence and promo-ledger checks live in the caller.
package pricing

import (
	"github.com/shopspring/decimal"
)

// Line is one cart line with its price snapshot inputs. Amounts are minor
// currency units (cents).
type Line struct {
	TicketTypeID string
	Quantity     int64
	UnitPrice    int64
	Taxable      bool
	TaxRateBps   int64
}

// FeeTier is the single fixed+percentage service fee applied per order.
type FeeTier struct {
	FixedCents int64
	Percent    float64
}

// Promo is a pre-validated reduction rule. Validity window, usage cap and
// single-use checks happen before evaluation. When both components are set
// the percentage applies first, then the fixed amount.
type Promo struct {
	Percent int64 // percent points, 0 = none
	Fixed   int64 // minor units, 0 = none
}

type Quote struct {
	Subtotal int64
	Tax      int64
	Fees     int64
	Discount int64
	Total    int64
	Lines    []QuoteLine
}

type QuoteLine struct {
	TicketTypeID string
	Quantity     int64
	UnitPrice    int64
	LineTotal    int64
}

// Epsilon is the tolerance when comparing a client-submitted total against
// the recomputed one: one minor currency unit.
const Epsilon = 1

// Evaluate computes subtotal, tax, fees and discount for a cart. The
// reduction applies after tax and fees, percentage before fixed.
func Evaluate(lines []Line, fees FeeTier, promo *Promo) Quote {
	subtotal := decimal.Zero
	tax := decimal.Zero
	quoteLines := make([]QuoteLine, len(lines))

	for i, line := range lines {
		lineTotal := decimal.NewFromInt(line.UnitPrice).Mul(decimal.NewFromInt(line.Quantity))
		subtotal = subtotal.Add(lineTotal)

		if line.Taxable && line.TaxRateBps > 0 {
			rate := decimal.NewFromInt(line.TaxRateBps).Div(decimal.NewFromInt(10000))
			tax = tax.Add(lineTotal.Mul(rate))
		}

		quoteLines[i] = QuoteLine{
			TicketTypeID: line.TicketTypeID,
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
			LineTotal:    lineTotal.IntPart(),
		}
	}

	feeAmount := decimal.NewFromInt(fees.FixedCents).
		Add(subtotal.Mul(decimal.NewFromFloat(fees.Percent).Div(decimal.NewFromInt(100))))

	// round each component first, then derive the total from the rounded
	// amounts: the stored snapshots must always satisfy
	// total == subtotal + tax + fees - discount
	sub := round(subtotal)
	taxAmt := round(tax)
	feeAmt := round(feeAmount)
	total := sub + taxAmt + feeAmt

	var discount int64
	if promo != nil {
		// percentage first, then the fixed amount
		reduced := total
		if promo.Percent > 0 {
			pct := decimal.NewFromInt(promo.Percent).Div(decimal.NewFromInt(100))
			reduced = round(decimal.NewFromInt(reduced).Mul(decimal.NewFromInt(1).Sub(pct)))
		}
		if promo.Fixed > 0 {
			reduced -= promo.Fixed
			if reduced < 0 {
				reduced = 0
			}
		}
		discount = total - reduced
		total = reduced
	}

	return Quote{
		Subtotal: sub,
		Tax:      taxAmt,
		Fees:     feeAmt,
		Discount: discount,
		Total:    total,
		Lines:    quoteLines,
	}
}

// WithinEpsilon reports whether a client-submitted total agrees with the
// server-side amount.
func WithinEpsilon(client, server int64) bool {
	diff := client - server
	if diff < 0 {
		diff = -diff
	}
	return diff <= Epsilon
}

func round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
