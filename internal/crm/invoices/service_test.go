package invoices

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vantage-crm/vantage-crm/internal/crm/quotations"
)

// memoryRepo backs the deriver tests. WithTx snapshots the invoice
// state before running the callback and restores it on error, giving
// the same all-or-nothing behavior the SQL transaction provides.
type memoryRepo struct {
	mu         sync.Mutex
	nextID     int64
	nextLineID int64
	seq        int64
	quotation  *quotations.Quotation
	invoices   map[int64]*Invoice
	lines      map[int64][]InvoiceLine

	failLineInsertAfter int
	lineInserts         int
}

func newMemoryRepo(q *quotations.Quotation) *memoryRepo {
	return &memoryRepo{
		quotation:           q,
		invoices:            make(map[int64]*Invoice),
		lines:               make(map[int64][]InvoiceLine),
		failLineInsertAfter: -1,
	}
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *inv
	out.Lines = append([]InvoiceLine(nil), m.lines[id]...)
	return &out, nil
}

func (m *memoryRepo) GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, inv := range m.invoices {
		if inv.QuotationID != nil && *inv.QuotationID == quotationID {
			out := *inv
			out.Lines = append([]InvoiceLine(nil), m.lines[id]...)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Invoice
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[int64]Invoice, len(m.invoices))
	for id, inv := range m.invoices {
		snapshot[id] = *inv
	}
	snapLines := make(map[int64][]InvoiceLine, len(m.lines))
	for id, lines := range m.lines {
		snapLines[id] = append([]InvoiceLine(nil), lines...)
	}
	snapSeq := m.seq

	if err := fn(ctx, (*memoryTx)(m)); err != nil {
		m.invoices = make(map[int64]*Invoice, len(snapshot))
		for id := range snapshot {
			inv := snapshot[id]
			m.invoices[id] = &inv
		}
		m.lines = snapLines
		m.seq = snapSeq
		return err
	}
	return nil
}

type memoryTx memoryRepo

func (m *memoryTx) LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error) {
	if m.quotation == nil || m.quotation.ID != quotationID {
		return nil, quotations.ErrNotFound
	}
	out := *m.quotation
	out.Lines = append([]quotations.QuotationLine(nil), m.quotation.Lines...)
	return &out, nil
}

func (m *memoryTx) ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error) {
	for _, inv := range m.invoices {
		if inv.QuotationID != nil && *inv.QuotationID == quotationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryTx) NextNumber(ctx context.Context, prefix string) (string, error) {
	m.seq++
	return fmt.Sprintf("%s-%06d", prefix, m.seq), nil
}

func (m *memoryTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = &inv
	return inv.ID, nil
}

func (m *memoryTx) InsertLine(ctx context.Context, line InvoiceLine) (int64, error) {
	if m.failLineInsertAfter >= 0 && m.lineInserts >= m.failLineInsertAfter {
		return 0, errors.New("line insert failed")
	}
	m.lineInserts++
	m.nextLineID++
	line.ID = m.nextLineID
	m.lines[line.InvoiceID] = append(m.lines[line.InvoiceID], line)
	return line.ID, nil
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func acceptedQuotation(t *testing.T) *quotations.Quotation {
	return &quotations.Quotation{
		ID:              42,
		QuotationNumber: "QUO-000042",
		Status:          quotations.StatusAccepted,
		Currency:        "EUR",
		DiscountAmount:  dec(t, "20.00"),
		Subtotal:        dec(t, "249.99"),
		TaxAmount:       dec(t, "25.00"),
		TotalAmount:     dec(t, "254.99"),
		Lines: []quotations.QuotationLine{
			{
				QuotationID:   42,
				Name:          "Design sprint",
				Quantity:      dec(t, "2"),
				UnitPrice:     dec(t, "100.00"),
				TaxRate:       dec(t, "10"),
				Subtotal:      dec(t, "200.00"),
				TaxableAmount: dec(t, "200.00"),
				TaxAmount:     dec(t, "20.00"),
				LineTotal:     dec(t, "220.00"),
				SortOrder:     1,
			},
			{
				QuotationID:   42,
				Name:          "Hosting setup",
				Quantity:      dec(t, "1"),
				UnitPrice:     dec(t, "49.99"),
				TaxRate:       dec(t, "10"),
				Subtotal:      dec(t, "49.99"),
				TaxableAmount: dec(t, "49.99"),
				TaxAmount:     dec(t, "5.00"),
				LineTotal:     dec(t, "54.99"),
				SortOrder:     2,
			},
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeriveSnapshotsQuotation(t *testing.T) {
	quotation := acceptedQuotation(t)
	repo := newMemoryRepo(quotation)
	svc := NewService(repo, nil, testLogger(), "INV")

	inv, err := svc.Derive(context.Background(), quotation.ID)
	require.NoError(t, err)

	require.Equal(t, "INV-000001", inv.InvoiceNumber)
	require.Equal(t, InvoiceStatusDraft, inv.Status)
	require.NotNil(t, inv.QuotationID)
	require.Equal(t, quotation.ID, *inv.QuotationID)
	require.Equal(t, quotation.Currency, inv.Currency)
	require.True(t, quotation.Subtotal.Equal(inv.Subtotal))
	require.True(t, quotation.TaxAmount.Equal(inv.TaxAmount))
	require.True(t, quotation.DiscountAmount.Equal(inv.DiscountAmount))
	require.True(t, quotation.TotalAmount.Equal(inv.TotalAmount))
	require.True(t, inv.PaidAmount.IsZero())
	require.NotNil(t, inv.DueDate)

	require.Len(t, inv.Lines, len(quotation.Lines))
	for i, line := range inv.Lines {
		src := quotation.Lines[i]
		require.Equal(t, src.Name, line.Name)
		require.True(t, src.Quantity.Equal(line.Quantity))
		require.True(t, src.UnitPrice.Equal(line.UnitPrice))
		require.True(t, src.LineTotal.Equal(line.LineTotal))
		require.Equal(t, inv.ID, line.InvoiceID)
	}
}

func TestDeriveIdempotent(t *testing.T) {
	quotation := acceptedQuotation(t)
	repo := newMemoryRepo(quotation)
	svc := NewService(repo, nil, testLogger(), "INV")

	_, err := svc.Derive(context.Background(), quotation.ID)
	require.NoError(t, err)

	_, err = svc.Derive(context.Background(), quotation.ID)
	require.ErrorIs(t, err, ErrInvoiceExists)
	require.Len(t, repo.invoices, 1)
}

func TestDeriveRequiresAcceptedStatus(t *testing.T) {
	for _, status := range []quotations.QuotationStatus{
		quotations.StatusDraft,
		quotations.StatusSent,
		quotations.StatusViewed,
		quotations.StatusRejected,
		quotations.StatusExpired,
		quotations.StatusCancelled,
	} {
		t.Run(string(status), func(t *testing.T) {
			quotation := acceptedQuotation(t)
			quotation.Status = status
			repo := newMemoryRepo(quotation)
			svc := NewService(repo, nil, testLogger(), "INV")

			_, err := svc.Derive(context.Background(), quotation.ID)
			require.ErrorIs(t, err, ErrNotAccepted)
			require.Empty(t, repo.invoices)
		})
	}
}

func TestDeriveUnknownQuotation(t *testing.T) {
	repo := newMemoryRepo(acceptedQuotation(t))
	svc := NewService(repo, nil, testLogger(), "INV")

	_, err := svc.Derive(context.Background(), 999)
	require.ErrorIs(t, err, quotations.ErrNotFound)
}

// staleReadRepo models a transaction whose existence check still sees
// the state captured before a concurrent derivation committed, while
// the insert contends with the live store. The unique index on
// invoices.quotation_id is what stops the duplicate in that window.
type staleReadRepo struct {
	*memoryRepo
	staleExists bool
}

func (r *staleReadRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.memoryRepo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return fn(ctx, &staleReadTx{TxRepository: tx, repo: r})
	})
}

type staleReadTx struct {
	TxRepository
	repo *staleReadRepo
}

func (t *staleReadTx) ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error) {
	if t.repo.staleExists {
		return false, nil
	}
	return t.TxRepository.ExistsForQuotation(ctx, quotationID)
}

func (t *staleReadTx) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	if inv.QuotationID != nil {
		for _, existing := range t.repo.invoices {
			if existing.QuotationID != nil && *existing.QuotationID == *inv.QuotationID {
				return 0, ErrInvoiceExists
			}
		}
	}
	return t.TxRepository.CreateInvoice(ctx, inv)
}

func TestDeriveDuplicateStoppedByUniqueIndex(t *testing.T) {
	quotation := acceptedQuotation(t)
	repo := &staleReadRepo{memoryRepo: newMemoryRepo(quotation)}
	svc := NewService(repo, nil, testLogger(), "INV")

	first, err := svc.Derive(context.Background(), quotation.ID)
	require.NoError(t, err)

	// A second derivation whose reads predate the first commit must
	// still fail, and fail as ErrInvoiceExists rather than an
	// infrastructure error.
	repo.staleExists = true
	_, err = svc.Derive(context.Background(), quotation.ID)
	require.ErrorIs(t, err, ErrInvoiceExists)
	require.Len(t, repo.invoices, 1)
	require.Len(t, repo.lines[first.ID], 2, "the surviving invoice keeps its lines")
}

func TestDeriveRollsBackOnLineFailure(t *testing.T) {
	quotation := acceptedQuotation(t)
	repo := newMemoryRepo(quotation)
	repo.failLineInsertAfter = 1
	svc := NewService(repo, nil, testLogger(), "INV")

	_, err := svc.Derive(context.Background(), quotation.ID)
	require.Error(t, err)
	require.Empty(t, repo.invoices, "a failed line copy must roll back the invoice header")
	require.Empty(t, repo.lines)

	// A retry after the failure starts clean and succeeds.
	repo.failLineInsertAfter = -1
	inv, err := svc.Derive(context.Background(), quotation.ID)
	require.NoError(t, err)
	require.Len(t, inv.Lines, 2)
}
