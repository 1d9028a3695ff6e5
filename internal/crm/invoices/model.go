package invoices

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the invoice does not exist.
	ErrNotFound = errors.New("invoice not found")
	// ErrInvoiceExists indicates a quotation has already been derived.
	ErrInvoiceExists = errors.New("invoice already exists for quotation")
	// ErrNotAccepted indicates derivation from a non-ACCEPTED quotation.
	ErrNotAccepted = errors.New("quotation is not accepted")
)

// InvoiceStatus is a separate enum from quotation status. Only the
// initial unsent state is produced here; the invoice lifecycle beyond
// creation is out of scope.
type InvoiceStatus string

const (
	InvoiceStatusDraft InvoiceStatus = "DRAFT"
)

// Invoice mirrors the quotation's monetary shape. When derived, the
// amounts are a verbatim snapshot of the quotation at acceptance time;
// later edits to either document do not re-sync the other.
type Invoice struct {
	ID             int64           `json:"id" db:"id"`
	InvoiceNumber  string          `json:"invoice_number" db:"invoice_number"`
	QuotationID    *int64          `json:"quotation_id,omitempty" db:"quotation_id"`
	Status         InvoiceStatus   `json:"status" db:"status"`
	Currency       string          `json:"currency" db:"currency"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"total_amount" db:"total_amount"`
	PaidAmount     decimal.Decimal `json:"paid_amount" db:"paid_amount"`
	DueDate        *time.Time      `json:"due_date,omitempty" db:"due_date"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
	Lines          []InvoiceLine   `json:"lines,omitempty" db:"-"`
}

// InvoiceLine is a 1:1 copy of a quotation line, re-keyed to the invoice.
type InvoiceLine struct {
	ID             int64           `json:"id" db:"id"`
	InvoiceID      int64           `json:"invoice_id" db:"invoice_id"`
	ProductID      *int64          `json:"product_id,omitempty" db:"product_id"`
	Name           string          `json:"name" db:"name"`
	Description    *string         `json:"description,omitempty" db:"description"`
	Quantity       decimal.Decimal `json:"quantity" db:"quantity"`
	Unit           string          `json:"unit" db:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	TaxRate        decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	DiscountRate   decimal.Decimal `json:"discount_rate" db:"discount_rate"`
	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount" db:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount" db:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	LineTotal      decimal.Decimal `json:"line_total" db:"line_total"`
	SortOrder      int             `json:"sort_order" db:"sort_order"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
