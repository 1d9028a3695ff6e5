package quotations

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// QuotationStatus enumerates quotation lifecycle states. Values are
// stored uppercase; external input is normalized through ParseStatus.
type QuotationStatus string

const (
	StatusDraft     QuotationStatus = "DRAFT"
	StatusSent      QuotationStatus = "SENT"
	StatusViewed    QuotationStatus = "VIEWED"
	StatusAccepted  QuotationStatus = "ACCEPTED"
	StatusRejected  QuotationStatus = "REJECTED"
	StatusExpired   QuotationStatus = "EXPIRED"
	StatusCancelled QuotationStatus = "CANCELLED"
)

// Terminal reports whether no further transition is permitted.
func (s QuotationStatus) Terminal() bool {
	switch s {
	case StatusAccepted, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus normalizes case-insensitive input into the closed enum.
func ParseStatus(s string) (QuotationStatus, error) {
	status := QuotationStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case StatusDraft, StatusSent, StatusViewed, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unknown quotation status %q", s)
}

// CounterpartyKind identifies which CRM record a quotation is addressed to.
type CounterpartyKind string

const (
	CounterpartyLead    CounterpartyKind = "LEAD"
	CounterpartyDeal    CounterpartyKind = "DEAL"
	CounterpartyContact CounterpartyKind = "CONTACT"
	CounterpartyCompany CounterpartyKind = "COMPANY"
)

// ParseCounterpartyKind normalizes case-insensitive input.
func ParseCounterpartyKind(s string) (CounterpartyKind, error) {
	kind := CounterpartyKind(strings.ToUpper(strings.TrimSpace(s)))
	switch kind {
	case CounterpartyLead, CounterpartyDeal, CounterpartyContact, CounterpartyCompany:
		return kind, nil
	}
	return "", fmt.Errorf("unknown counterparty kind %q", s)
}

// Quotation is the document header. Monetary aggregates are derived
// from the lines plus the document-level discount and never accepted
// from callers.
type Quotation struct {
	ID               int64             `json:"id" db:"id"`
	QuotationNumber  string            `json:"quotation_number" db:"quotation_number"`
	Title            string            `json:"title" db:"title"`
	Description      *string           `json:"description,omitempty" db:"description"`
	Status           QuotationStatus   `json:"status" db:"status"`
	Currency         string            `json:"currency" db:"currency"`
	CounterpartyKind *CounterpartyKind `json:"counterparty_kind,omitempty" db:"counterparty_kind"`
	CounterpartyID   *int64            `json:"counterparty_id,omitempty" db:"counterparty_id"`
	DiscountAmount   decimal.Decimal   `json:"discount_amount" db:"discount_amount"`
	Subtotal         decimal.Decimal   `json:"subtotal" db:"subtotal"`
	TaxAmount        decimal.Decimal   `json:"tax_amount" db:"tax_amount"`
	TotalAmount      decimal.Decimal   `json:"total_amount" db:"total_amount"`
	ValidUntil       *time.Time        `json:"valid_until,omitempty" db:"valid_until"`
	Notes            *string           `json:"notes,omitempty" db:"notes"`
	Terms            *string           `json:"terms,omitempty" db:"terms"`
	CreatedBy        int64             `json:"created_by" db:"created_by"`
	SentAt           *time.Time        `json:"sent_at,omitempty" db:"sent_at"`
	ViewedAt         *time.Time        `json:"viewed_at,omitempty" db:"viewed_at"`
	AcceptedAt       *time.Time        `json:"accepted_at,omitempty" db:"accepted_at"`
	RejectedAt       *time.Time        `json:"rejected_at,omitempty" db:"rejected_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
	DeletedAt        *time.Time        `json:"-" db:"deleted_at"`
	Lines            []QuotationLine   `json:"lines,omitempty" db:"-"`
}

// Expired reports whether valid_until has passed at the given instant.
func (q *Quotation) Expired(now time.Time) bool {
	return q.ValidUntil != nil && q.ValidUntil.Before(now)
}

// QuotationLine is one priced row. The derived amounts are always
// recomputed from quantity, unit price and the two rates; they are
// never trusted as caller-supplied state.
type QuotationLine struct {
	ID             int64           `json:"id" db:"id"`
	QuotationID    int64           `json:"quotation_id" db:"quotation_id"`
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
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}
