package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Notifier receives status-change events. Implementations must be
// fire-and-forget: a delivery failure never fails the business
// operation that produced the event.
type Notifier interface {
	QuotationEvent(ctx context.Context, event string, quotationID int64)
}

// Service orchestrates quotation creation, edits and lifecycle
// transitions. All computation is synchronous within the request; the
// repository transaction is the only shared-state boundary.
type Service struct {
	repo     Repository
	notifier Notifier
	logger   *slog.Logger
	prefix   string
	now      func() time.Time
}

// NewService builds a Service. notifier may be nil.
func NewService(repo Repository, notifier Notifier, logger *slog.Logger, prefix string) *Service {
	if prefix == "" {
		prefix = "QUO"
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		prefix:   prefix,
		now:      time.Now,
	}
}

// NextNumber returns the next sequential quotation number.
func (s *Service) NextNumber(ctx context.Context) (string, error) {
	return s.repo.NextNumber(ctx, s.prefix)
}

func buildLines(quotationID int64, reqs []CreateQuotationLineReq) ([]QuotationLine, []LineTotals, error) {
	lines := make([]QuotationLine, 0, len(reqs))
	totals := make([]LineTotals, 0, len(reqs))
	for i, req := range reqs {
		lt, err := CalculateLine(req.Input())
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		line := QuotationLine{
			QuotationID:    quotationID,
			ProductID:      req.ProductID,
			Name:           req.Name,
			Description:    req.Description,
			Quantity:       req.Quantity,
			Unit:           req.Unit,
			UnitPrice:      req.UnitPrice,
			TaxRate:        req.TaxRate,
			DiscountRate:   req.DiscountRate,
			Subtotal:       lt.Subtotal,
			DiscountAmount: lt.DiscountAmount,
			TaxableAmount:  lt.TaxableAmount,
			TaxAmount:      lt.TaxAmount,
			LineTotal:      lt.LineTotal,
			SortOrder:      req.SortOrder,
		}
		if line.SortOrder == 0 {
			line.SortOrder = i + 1
		}
		lines = append(lines, line)
		totals = append(totals, lt)
	}
	return lines, totals, nil
}

// Create validates and computes all line and document totals, draws the
// next quotation number and persists everything in one transaction. A
// numbering failure aborts the create; nothing is persisted without a
// number.
func (s *Service) Create(ctx context.Context, req CreateQuotationRequest, createdBy int64) (*Quotation, error) {
	lines, lineTotals, err := buildLines(0, req.Lines)
	if err != nil {
		return nil, err
	}
	docTotals, err := AggregateDocument(lineTotals, req.DiscountAmount)
	if err != nil {
		return nil, err
	}

	var counterpartyKind *CounterpartyKind
	if req.CounterpartyKind != nil {
		kind, err := ParseCounterpartyKind(*req.CounterpartyKind)
		if err != nil {
			return nil, err
		}
		counterpartyKind = &kind
	}

	number, err := s.repo.NextNumber(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("generate quotation number: %w", err)
	}

	quotation := Quotation{
		QuotationNumber:  number,
		Title:            req.Title,
		Description:      req.Description,
		Status:           StatusDraft,
		Currency:         strings.ToUpper(req.Currency),
		CounterpartyKind: counterpartyKind,
		CounterpartyID:   req.CounterpartyID,
		DiscountAmount:   req.DiscountAmount,
		Subtotal:         docTotals.Subtotal,
		TaxAmount:        docTotals.TaxAmount,
		TotalAmount:      docTotals.TotalAmount,
		ValidUntil:       req.ValidUntil,
		Notes:            req.Notes,
		Terms:            req.Terms,
		CreatedBy:        createdBy,
	}

	var quotationID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		id, err := repo.Create(ctx, quotation)
		if err != nil {
			return fmt.Errorf("create quotation: %w", err)
		}
		quotationID = id
		for _, line := range lines {
			line.QuotationID = quotationID
			if _, err := repo.InsertLine(ctx, line); err != nil {
				return fmt.Errorf("insert quotation line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, quotationID)
}

// Update edits header fields and optionally replaces the line set.
// Item edits are only permitted while the quotation is DRAFT; any
// change to the lines or the document discount triggers a full
// recomputation of all aggregates.
func (s *Service) Update(ctx context.Context, id int64, req UpdateQuotationRequest) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != StatusDraft {
		return nil, fmt.Errorf("%w: status is %s, items can only change while DRAFT", ErrQuotationLocked, existing.Status)
	}

	discount := existing.DiscountAmount
	if req.DiscountAmount != nil {
		discount = *req.DiscountAmount
	}

	var linesToInsert []QuotationLine
	var lineTotals []LineTotals
	if req.Lines != nil {
		linesToInsert, lineTotals, err = buildLines(id, *req.Lines)
		if err != nil {
			return nil, err
		}
	} else {
		// Recompute from the persisted inputs so a discount change
		// cannot desync the aggregates.
		for i, line := range existing.Lines {
			lt, err := CalculateLine(LineInput{
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
				TaxRate:      line.TaxRate,
				DiscountRate: line.DiscountRate,
			})
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			lineTotals = append(lineTotals, lt)
		}
	}

	docTotals, err := AggregateDocument(lineTotals, discount)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"discount_amount": discount,
		"subtotal":        docTotals.Subtotal,
		"tax_amount":      docTotals.TaxAmount,
		"total_amount":    docTotals.TotalAmount,
	}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ValidUntil != nil {
		updates["valid_until"] = *req.ValidUntil
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Terms != nil {
		updates["terms"] = *req.Terms
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.UpdateHeader(ctx, id, updates); err != nil {
			return fmt.Errorf("update quotation: %w", err)
		}
		if req.Lines != nil {
			if err := repo.DeleteLines(ctx, id); err != nil {
				return fmt.Errorf("delete quotation lines: %w", err)
			}
			for _, line := range linesToInsert {
				if _, err := repo.InsertLine(ctx, line); err != nil {
					return fmt.Errorf("insert quotation line: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.repo.Get(ctx, id)
}

// Transition validates and applies one lifecycle event using a
// transactional check-and-set. A concurrent caller that loses the race
// observes ErrInvalidTransition, exactly like any other invalid
// transition.
func (s *Service) Transition(ctx context.Context, id int64, event TransitionEvent) (*Quotation, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quotation: %w", err)
	}

	now := s.now()
	if event != EventExpire && !existing.Status.Terminal() && existing.Expired(now) {
		return nil, fmt.Errorf("%w: quotation expired on %s", ErrInvalidTransition, existing.ValidUntil.Format("2006-01-02"))
	}

	to, err := NextStatus(existing.Status, event)
	if err != nil {
		return nil, err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		ok, err := repo.CompareAndSetStatus(ctx, id, existing.Status, to, now)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: quotation %d is no longer %s", ErrInvalidTransition, id, existing.Status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, "quotation."+strings.ToLower(string(to)), id)
	return s.repo.Get(ctx, id)
}

// ExpireOverdue moves every non-terminal quotation whose valid_until
// has passed into EXPIRED. Rows that change state concurrently simply
// lose the check-and-set and are skipped.
func (s *Service) ExpireOverdue(ctx context.Context, asOf time.Time) (int, error) {
	ids, err := s.repo.ListExpirable(ctx, asOf)
	if err != nil {
		return 0, fmt.Errorf("list expirable quotations: %w", err)
	}

	expired := 0
	for _, id := range ids {
		if _, err := s.Transition(ctx, id, EventExpire); err != nil {
			if s.logger != nil {
				s.logger.Warn("expire quotation skipped", slog.Int64("quotation_id", id), slog.Any("error", err))
			}
			continue
		}
		expired++
	}
	return expired, nil
}

// Delete soft-deletes a quotation and is only permitted before the
// document has been sent out or after it was cancelled.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("get quotation: %w", err)
	}
	if existing.Status != StatusDraft && existing.Status != StatusCancelled {
		return fmt.Errorf("%w: cannot delete a %s quotation", ErrQuotationLocked, existing.Status)
	}
	return s.repo.SoftDelete(ctx, id, s.now())
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	return s.repo.GetByNumber(ctx, number)
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	if req.Limit <= 0 {
		req.Limit = 50
	}
	return s.repo.List(ctx, req)
}

func (s *Service) notify(ctx context.Context, event string, quotationID int64) {
	if s.notifier == nil {
		return
	}
	s.notifier.QuotationEvent(ctx, event, quotationID)
}
