package quotations

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memoryRepo is an in-memory Repository used by the service tests. The
// mutex makes CompareAndSetStatus and NextNumber atomic, mirroring the
// guarantees the SQL implementation gets from the database.
type memoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextLineID int64
	seq        map[string]int64
	quotations map[int64]*Quotation
	lines      map[int64][]QuotationLine

	numberingDown bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		seq:        make(map[string]int64),
		quotations: make(map[int64]*Quotation),
		lines:      make(map[int64][]QuotationLine),
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok || q.DeletedAt != nil {
		return nil, ErrNotFound
	}
	out := *q
	out.Lines = append([]QuotationLine(nil), m.lines[id]...)
	return &out, nil
}

func (m *memoryRepo) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, q := range m.quotations {
		if q.QuotationNumber == number && q.DeletedAt == nil {
			out := *q
			out.Lines = append([]QuotationLine(nil), m.lines[id]...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Quotation
	for _, q := range m.quotations {
		if q.DeletedAt != nil {
			continue
		}
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, *q)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Create(ctx context.Context, q Quotation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	q.ID = m.nextID
	now := time.Now()
	q.CreatedAt = now
	q.UpdatedAt = now
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *memoryRepo) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	for col, val := range updates {
		switch col {
		case "title":
			q.Title = val.(string)
		case "description":
			s := val.(string)
			q.Description = &s
		case "discount_amount":
			q.DiscountAmount = val.(decimal.Decimal)
		case "subtotal":
			q.Subtotal = val.(decimal.Decimal)
		case "tax_amount":
			q.TaxAmount = val.(decimal.Decimal)
		case "total_amount":
			q.TotalAmount = val.(decimal.Decimal)
		case "valid_until":
			ts := val.(time.Time)
			q.ValidUntil = &ts
		case "notes":
			s := val.(string)
			q.Notes = &s
		case "terms":
			s := val.(string)
			q.Terms = &s
		}
	}
	q.UpdatedAt = time.Now()
	return nil
}

func (m *memoryRepo) InsertLine(ctx context.Context, line QuotationLine) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLineID++
	line.ID = m.nextLineID
	m.lines[line.QuotationID] = append(m.lines[line.QuotationID], line)
	return line.ID, nil
}

func (m *memoryRepo) DeleteLines(ctx context.Context, quotationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, quotationID)
	return nil
}

func (m *memoryRepo) CompareAndSetStatus(ctx context.Context, id int64, from, to QuotationStatus, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok || q.DeletedAt != nil {
		return false, nil
	}
	if q.Status != from {
		return false, nil
	}
	q.Status = to
	q.UpdatedAt = now
	applyStamp(q, to, now)
	return true, nil
}

func (m *memoryRepo) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quotations[id]
	if !ok || q.DeletedAt != nil {
		return ErrNotFound
	}
	q.DeletedAt = &now
	return nil
}

func (m *memoryRepo) ListExpirable(ctx context.Context, asOf time.Time) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, q := range m.quotations {
		if q.DeletedAt != nil || q.Status.Terminal() {
			continue
		}
		if q.ValidUntil != nil && q.ValidUntil.Before(asOf) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (m *memoryRepo) NextNumber(ctx context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numberingDown {
		return "", fmt.Errorf("%w: sequence store offline", ErrNumberingUnavailable)
	}
	m.seq[prefix]++
	return fmt.Sprintf("%s-%06d", prefix, m.seq[prefix]), nil
}
