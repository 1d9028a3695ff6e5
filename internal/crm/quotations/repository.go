package quotations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vantage-crm/vantage-crm/internal/platform/db"
)

// Repository is the persistence port for quotations. WithTx yields a
// Repository bound to one read-committed transaction; every mutation
// of a single quotation runs inside one such unit.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Quotation, error)
	GetByNumber(ctx context.Context, number string) (*Quotation, error)
	List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error)
	Create(ctx context.Context, q Quotation) (int64, error)
	UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error
	InsertLine(ctx context.Context, line QuotationLine) (int64, error)
	DeleteLines(ctx context.Context, quotationID int64) error
	// CompareAndSetStatus atomically moves id from one status to
	// another, stamping the matching lifecycle timestamp. It reports
	// false when the row no longer carries the expected status, which
	// is how a lost transition race surfaces.
	CompareAndSetStatus(ctx context.Context, id int64, from, to QuotationStatus, now time.Time) (bool, error)
	SoftDelete(ctx context.Context, id int64, now time.Time) error
	ListExpirable(ctx context.Context, asOf time.Time) ([]int64, error)
	// NextNumber atomically increments and returns the sequence for the
	// given document prefix.
	NextNumber(ctx context.Context, prefix string) (string, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const quotationColumns = `id, quotation_number, title, description, status, currency,
	counterparty_kind, counterparty_id, discount_amount, subtotal, tax_amount, total_amount,
	valid_until, notes, terms, created_by, sent_at, viewed_at, accepted_at, rejected_at,
	created_at, updated_at`

func scanQuotation(row pgx.Row) (*Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.QuotationNumber, &q.Title, &q.Description, &q.Status, &q.Currency,
		&q.CounterpartyKind, &q.CounterpartyID, &q.DiscountAmount, &q.Subtotal, &q.TaxAmount, &q.TotalAmount,
		&q.ValidUntil, &q.Notes, &q.Terms, &q.CreatedBy, &q.SentAt, &q.ViewedAt, &q.AcceptedAt, &q.RejectedAt,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &q, nil
}

func (r *repository) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = $1 AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, err
	}
	if q.Lines, err = r.lines(ctx, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	q, err := scanQuotation(r.db.QueryRow(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE quotation_number = $1 AND deleted_at IS NULL`, number))
	if err != nil {
		return nil, err
	}
	if q.Lines, err = r.lines(ctx, q.ID); err != nil {
		return nil, err
	}
	return q, nil
}

func (r *repository) lines(ctx context.Context, quotationID int64) ([]QuotationLine, error) {
	rows, err := r.db.Query(ctx, `SELECT id, quotation_id, product_id, name, description, quantity, unit,
		unit_price, tax_rate, discount_rate, subtotal, discount_amount, taxable_amount, tax_amount,
		line_total, sort_order, created_at, updated_at
		FROM quotation_lines WHERE quotation_id = $1 ORDER BY sort_order, id`, quotationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []QuotationLine
	for rows.Next() {
		var l QuotationLine
		if err := rows.Scan(&l.ID, &l.QuotationID, &l.ProductID, &l.Name, &l.Description, &l.Quantity, &l.Unit,
			&l.UnitPrice, &l.TaxRate, &l.DiscountRate, &l.Subtotal, &l.DiscountAmount, &l.TaxableAmount, &l.TaxAmount,
			&l.LineTotal, &l.SortOrder, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *repository) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []interface{}
	argPos := 1

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *req.Status)
		argPos++
	}
	if req.CounterpartyKind != nil {
		conditions = append(conditions, fmt.Sprintf("counterparty_kind = $%d", argPos))
		args = append(args, *req.CounterpartyKind)
		argPos++
	}
	if req.CounterpartyID != nil {
		conditions = append(conditions, fmt.Sprintf("counterparty_id = $%d", argPos))
		args = append(args, *req.CounterpartyID)
		argPos++
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM quotations "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT `+quotationColumns+` FROM quotations %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		q, err := scanQuotation(rows)
		if err != nil {
			return nil, 0, err
		}
		quotations = append(quotations, *q)
	}
	return quotations, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotations
		(quotation_number, title, description, status, currency, counterparty_kind, counterparty_id,
		 discount_amount, subtotal, tax_amount, total_amount, valid_until, notes, terms, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		q.QuotationNumber, q.Title, q.Description, q.Status, q.Currency, q.CounterpartyKind, q.CounterpartyID,
		q.DiscountAmount, q.Subtotal, q.TaxAmount, q.TotalAmount, q.ValidUntil, q.Notes, q.Terms, q.CreatedBy,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) UpdateHeader(ctx context.Context, id int64, updates map[string]interface{}) error {
	query := "UPDATE quotations SET updated_at = NOW()"
	var args []interface{}
	argPos := 1

	for _, col := range []string{"title", "description", "discount_amount", "valid_until", "notes", "terms", "subtotal", "tax_amount", "total_amount"} {
		if v, ok := updates[col]; ok {
			query += fmt.Sprintf(", %s = $%d", col, argPos)
			args = append(args, v)
			argPos++
		}
	}

	query += fmt.Sprintf(" WHERE id = $%d AND deleted_at IS NULL", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) InsertLine(ctx context.Context, line QuotationLine) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO quotation_lines
		(quotation_id, product_id, name, description, quantity, unit, unit_price, tax_rate, discount_rate,
		 subtotal, discount_amount, taxable_amount, tax_amount, line_total, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id`,
		line.QuotationID, line.ProductID, line.Name, line.Description, line.Quantity, line.Unit,
		line.UnitPrice, line.TaxRate, line.DiscountRate, line.Subtotal, line.DiscountAmount,
		line.TaxableAmount, line.TaxAmount, line.LineTotal, line.SortOrder,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repository) DeleteLines(ctx context.Context, quotationID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM quotation_lines WHERE quotation_id = $1`, quotationID)
	return err
}

func (r *repository) CompareAndSetStatus(ctx context.Context, id int64, from, to QuotationStatus, now time.Time) (bool, error) {
	query := "UPDATE quotations SET status = $1, updated_at = $2"
	args := []interface{}{to, now}
	if column, ok := StampForStatus(to); ok {
		// Lifecycle timestamps are set at most once.
		query += fmt.Sprintf(", %s = COALESCE(%s, $3)", column, column)
		args = append(args, now)
	}
	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d AND deleted_at IS NULL", len(args)+1, len(args)+2)
	args = append(args, id, from)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repository) SoftDelete(ctx context.Context, id int64, now time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE quotations SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, now, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) ListExpirable(ctx context.Context, asOf time.Time) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM quotations
		WHERE status IN ($1, $2, $3) AND valid_until IS NOT NULL AND valid_until < $4 AND deleted_at IS NULL
		ORDER BY id`, StatusDraft, StatusSent, StatusViewed, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) NextNumber(ctx context.Context, prefix string) (string, error) {
	var seq int64
	err := r.db.QueryRow(ctx, `INSERT INTO document_sequences (doc_type, seq)
		VALUES ($1, 1)
		ON CONFLICT (doc_type)
		DO UPDATE SET seq = document_sequences.seq + 1
		RETURNING seq`, prefix).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNumberingUnavailable, err)
	}
	return fmt.Sprintf("%s-%06d", prefix, seq), nil
}
