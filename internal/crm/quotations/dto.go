package quotations

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateQuotationRequest struct {
	Title            string                   `json:"title" validate:"required,max=255"`
	Description      *string                  `json:"description,omitempty"`
	Currency         string                   `json:"currency" validate:"required,len=3"`
	CounterpartyKind *string                  `json:"counterparty_kind,omitempty" validate:"omitempty,oneof=LEAD DEAL CONTACT COMPANY lead deal contact company"`
	CounterpartyID   *int64                   `json:"counterparty_id,omitempty" validate:"omitempty,gt=0"`
	DiscountAmount   decimal.Decimal          `json:"discount_amount"`
	ValidUntil       *time.Time               `json:"valid_until,omitempty"`
	Notes            *string                  `json:"notes,omitempty"`
	Terms            *string                  `json:"terms,omitempty"`
	Lines            []CreateQuotationLineReq `json:"lines" validate:"required,min=1,dive"`
}

type CreateQuotationLineReq struct {
	ProductID    *int64          `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Name         string          `json:"name" validate:"required,max=255"`
	Description  *string         `json:"description,omitempty"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" validate:"max=20"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	DiscountRate decimal.Decimal `json:"discount_rate"`
	SortOrder    int             `json:"sort_order" validate:"gte=0"`
}

// Input converts the request row into calculator inputs.
func (r CreateQuotationLineReq) Input() LineInput {
	return LineInput{
		Quantity:     r.Quantity,
		UnitPrice:    r.UnitPrice,
		TaxRate:      r.TaxRate,
		DiscountRate: r.DiscountRate,
	}
}

type UpdateQuotationRequest struct {
	Title          *string                   `json:"title,omitempty" validate:"omitempty,max=255"`
	Description    *string                   `json:"description,omitempty"`
	DiscountAmount *decimal.Decimal          `json:"discount_amount,omitempty"`
	ValidUntil     *time.Time                `json:"valid_until,omitempty"`
	Notes          *string                   `json:"notes,omitempty"`
	Terms          *string                   `json:"terms,omitempty"`
	Lines          *[]CreateQuotationLineReq `json:"lines,omitempty" validate:"omitempty,min=1,dive"`
}

type ListQuotationsRequest struct {
	Status           *QuotationStatus  `json:"status,omitempty"`
	CounterpartyKind *CounterpartyKind `json:"counterparty_kind,omitempty"`
	CounterpartyID   *int64            `json:"counterparty_id,omitempty"`
	DateFrom         *time.Time        `json:"date_from,omitempty"`
	DateTo           *time.Time        `json:"date_to,omitempty"`
	Limit            int               `json:"limit" validate:"gte=0,lte=1000"`
	Offset           int               `json:"offset" validate:"gte=0"`
}
