package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vantage-crm/vantage-crm/internal/crm/quotations"
)

// Notifier receives invoice events, fire-and-forget.
type Notifier interface {
	QuotationEvent(ctx context.Context, event string, quotationID int64)
}

// Service derives invoices from accepted quotations.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	prefix   string
	dueIn    time.Duration
	now      func() time.Time
}

// NewService builds a Service. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger, prefix string) *Service {
	if prefix == "" {
		prefix = "INV"
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		prefix:   prefix,
		dueIn:    30 * 24 * time.Hour,
		now:      time.Now,
	}
}

// Derive converts an ACCEPTED quotation into a new invoice: a fresh
// invoice number, a 1:1 copy of every line and the document totals
// taken verbatim as a snapshot, never recomputed. The quotation row is
// locked for the duration of the transaction so the existence check
// and the insert form one atomic unit; a concurrent derivation loses
// the lock race and observes ErrInvoiceExists. Any line copy failure
// rolls the whole derivation back.
func (s *Service) Derive(ctx context.Context, quotationID int64) (*Invoice, error) {
	var invoiceID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quotation, err := tx.LockQuotation(ctx, quotationID)
		if err != nil {
			return fmt.Errorf("lock quotation: %w", err)
		}
		if quotation.Status != quotations.StatusAccepted {
			return fmt.Errorf("%w: status is %s", ErrNotAccepted, quotation.Status)
		}

		exists, err := tx.ExistsForQuotation(ctx, quotationID)
		if err != nil {
			return fmt.Errorf("check existing invoice: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: quotation %d", ErrInvoiceExists, quotationID)
		}

		number, err := tx.NextNumber(ctx, s.prefix)
		if err != nil {
			return err
		}

		dueDate := s.now().Add(s.dueIn)
		invoiceID, err = tx.CreateInvoice(ctx, Invoice{
			InvoiceNumber:  number,
			QuotationID:    &quotation.ID,
			Status:         InvoiceStatusDraft,
			Currency:       quotation.Currency,
			Subtotal:       quotation.Subtotal,
			TaxAmount:      quotation.TaxAmount,
			DiscountAmount: quotation.DiscountAmount,
			TotalAmount:    quotation.TotalAmount,
			PaidAmount:     decimal.Zero,
			DueDate:        &dueDate,
		})
		if err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		for _, line := range quotation.Lines {
			if _, err := tx.InsertLine(ctx, InvoiceLine{
				InvoiceID:      invoiceID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				Description:    line.Description,
				Quantity:       line.Quantity,
				Unit:           line.Unit,
				UnitPrice:      line.UnitPrice,
				TaxRate:        line.TaxRate,
				DiscountRate:   line.DiscountRate,
				Subtotal:       line.Subtotal,
				DiscountAmount: line.DiscountAmount,
				TaxableAmount:  line.TaxableAmount,
				TaxAmount:      line.TaxAmount,
				LineTotal:      line.LineTotal,
				SortOrder:      line.SortOrder,
			}); err != nil {
				return fmt.Errorf("copy invoice line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.QuotationEvent(ctx, "invoice.created", quotationID)
	}
	return s.repo.Get(ctx, invoiceID)
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error) {
	return s.repo.GetByQuotation(ctx, quotationID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.List(ctx, limit, offset)
}
