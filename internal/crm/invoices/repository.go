package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/vantage-crm/internal/crm/quotations"
	"github.com/vantage-crm/vantage-crm/internal/platform/db"
)

// Repository is the persistence port for invoices.
type Repository interface {
	Get(ctx context.Context, id int64) (*Invoice, error)
	GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error)
	List(ctx context.Context, limit, offset int) ([]Invoice, int, error)
	// WithTx yields the transactional operations the deriver needs in
	// one atomic unit. The callback failing rolls everything back.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations that must share one transaction:
// the quotation row lock, the existence check and the inserts. Holding
// the row lock makes check-then-create safe against a concurrent
// derivation.
type TxRepository interface {
	LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error)
	ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error)
	NextNumber(ctx context.Context, prefix string) (string, error)
	CreateInvoice(ctx context.Context, inv Invoice) (int64, error)
	InsertLine(ctx context.Context, line InvoiceLine) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const invoiceColumns = `id, invoice_number, quotation_id, status, currency, subtotal, tax_amount,
	discount_amount, total_amount, paid_amount, due_date, created_at, updated_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.QuotationID, &inv.Status, &inv.Currency,
		&inv.Subtotal, &inv.TaxAmount, &inv.DiscountAmount, &inv.TotalAmount, &inv.PaidAmount,
		&inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = r.lines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) GetByQuotation(ctx context.Context, quotationID int64) (*Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE quotation_id = $1`, quotationID))
	if err != nil {
		return nil, err
	}
	if inv.Lines, err = r.lines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *repository) lines(ctx context.Context, invoiceID int64) ([]InvoiceLine, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, product_id, name, description, quantity, unit,
		unit_price, tax_rate, discount_rate, subtotal, discount_amount, taxable_amount, tax_amount,
		line_total, sort_order, created_at
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY sort_order, id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []InvoiceLine
	for rows.Next() {
		var l InvoiceLine
		if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Name, &l.Description, &l.Quantity, &l.Unit,
			&l.UnitPrice, &l.TaxRate, &l.DiscountRate, &l.Subtotal, &l.DiscountAmount, &l.TaxableAmount,
			&l.TaxAmount, &l.LineTotal, &l.SortOrder, &l.CreatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, limit, offset int) ([]Invoice, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, total, rows.Err()
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) LockQuotation(ctx context.Context, quotationID int64) (*quotations.Quotation, error) {
	var q quotations.Quotation
	err := r.tx.QueryRow(ctx, `SELECT id, quotation_number, status, currency, discount_amount,
		subtotal, tax_amount, total_amount, valid_until
		FROM quotations WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, quotationID).Scan(
		&q.ID, &q.QuotationNumber, &q.Status, &q.Currency, &q.DiscountAmount,
		&q.Subtotal, &q.TaxAmount, &q.TotalAmount, &q.ValidUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, quotations.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.tx.Query(ctx, `SELECT id, product_id, name, description, quantity, unit, unit_price,
		tax_rate, discount_rate, subtotal, discount_amount, taxable_amount, tax_amount, line_total, sort_order
		FROM quotation_lines WHERE quotation_id = $1 ORDER BY sort_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var l quotations.QuotationLine
		l.QuotationID = quotationID
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Name, &l.Description, &l.Quantity, &l.Unit, &l.UnitPrice,
			&l.TaxRate, &l.DiscountRate, &l.Subtotal, &l.DiscountAmount, &l.TaxableAmount, &l.TaxAmount,
			&l.LineTotal, &l.SortOrder); err != nil {
			return nil, err
		}
		q.Lines = append(q.Lines, l)
	}
	return &q, rows.Err()
}

func (r *txRepo) ExistsForQuotation(ctx context.Context, quotationID int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM invoices WHERE quotation_id = $1)`, quotationID).Scan(&exists)
	return exists, err
}

func (r *txRepo) NextNumber(ctx context.Context, prefix string) (string, error) {
	var seq int64
	err := r.tx.QueryRow(ctx, `INSERT INTO document_sequences (doc_type, seq)
		VALUES ($1, 1)
		ON CONFLICT (doc_type)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("invoice numbering: %w", err)
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), nil
}

func (r *txRepo) CreateInvoice(ctx context.Context, inv Invoice) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoices
		(invoice_number, quotation_id, status, currency, subtotal, tax_amount, discount_amount,
		 total_amount, paid_amount, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		inv.InvoiceNumber, inv.QuotationID, inv.Status, inv.Currency, inv.Subtotal, inv.TaxAmount,
		inv.DiscountAmount, inv.TotalAmount, inv.PaidAmount, inv.DueDate,
	).Scan(&id)
	if err != nil {
		// The unique index on invoices.quotation_id catches a
		// derivation that committed after this transaction's reads.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrInvoiceExists
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepo) InsertLine(ctx context.Context, line InvoiceLine) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO invoice_lines
		(invoice_id, product_id, name, description, quantity, unit, unit_price, tax_rate, discount_rate,
		 subtotal, discount_amount, taxable_amount, tax_amount, line_total, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		line.InvoiceID, line.ProductID, line.Name, line.Description, line.Quantity, line.Unit,
		line.UnitPrice, line.TaxRate, line.DiscountRate, line.Subtotal, line.DiscountAmount,
		line.TaxableAmount, line.TaxAmount, line.LineTotal, line.SortOrder,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
