package quotations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vantage-crm/vantage-crm/internal/money"
)

// LineInput carries the four caller-controlled inputs of one line.
type LineInput struct {
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TaxRate      decimal.Decimal
	DiscountRate decimal.Decimal
}

// LineTotals holds the derived amounts of one line at storage precision.
type LineTotals struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxAmount      decimal.Decimal
	LineTotal      decimal.Decimal
}

// CalculateLine derives the monetary amounts for one line:
//
//	subtotal = quantity * unitPrice
//	discount = subtotal * discountRate/100
//	taxable  = subtotal - discount
//	tax      = taxable * taxRate/100
//	total    = taxable + tax
//
// It is pure and is invoked on create, update and every document
// recomputation.
func CalculateLine(in LineInput) (LineTotals, error) {
	if !in.Quantity.IsPositive() {
		return LineTotals{}, fmt.Errorf("%w: got %s", ErrInvalidQuantity, in.Quantity)
	}
	if in.UnitPrice.IsNegative() {
		return LineTotals{}, fmt.Errorf("%w: unit price %s", ErrInvalidPrice, in.UnitPrice)
	}
	if !money.ValidRate(in.TaxRate) {
		return LineTotals{}, fmt.Errorf("%w: tax rate %s", ErrInvalidRate, in.TaxRate)
	}
	if !money.ValidRate(in.DiscountRate) {
		return LineTotals{}, fmt.Errorf("%w: discount rate %s", ErrInvalidRate, in.DiscountRate)
	}

	subtotal := money.Round(in.Quantity.Mul(in.UnitPrice))
	discount := money.Percent(subtotal, in.DiscountRate)
	taxable := subtotal.Sub(discount)
	tax := money.Percent(taxable, in.TaxRate)

	return LineTotals{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxAmount:      tax,
		LineTotal:      taxable.Add(tax),
	}, nil
}

// DocumentTotals holds the document-level aggregates.
type DocumentTotals struct {
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// AggregateDocument sums line results and applies the document-level
// discount. The full line set is always resummed; incremental updates
// are not trusted. A discount large enough to drive the total negative
// is a validation error, never a silent clamp.
func AggregateDocument(lines []LineTotals, discountAmount decimal.Decimal) (DocumentTotals, error) {
	if discountAmount.IsNegative() {
		return DocumentTotals{}, fmt.Errorf("%w: document discount %s", ErrInvalidPrice, discountAmount)
	}

	subtotal := money.Zero
	tax := money.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.Subtotal)
		tax = tax.Add(line.TaxAmount)
	}

	total := subtotal.Add(tax).Sub(discountAmount)
	if total.IsNegative() {
		return DocumentTotals{}, fmt.Errorf("%w: discount %s against %s", ErrDiscountExceedsTotal, discountAmount, subtotal.Add(tax))
	}

	return DocumentTotals{Subtotal: subtotal, TaxAmount: tax, TotalAmount: total}, nil
}
