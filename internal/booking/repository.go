package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"marketstall/internal/audit"
	"marketstall/internal/events"
	"marketstall/internal/stall"
	"marketstall/pkg/db"
)

const selectBooking = `
SELECT b.id, b.stall_id, s.name, b.vendor_name, b.vendor_phone, COALESCE(b.vendor_email, ''),
       b.start_date, b.end_date, b.total_price::text, b.status, COALESCE(b.payment_proof_ref, ''),
       b.created_at, b.updated_at
FROM bookings b
JOIN stalls s ON s.id = b.stall_id
`

type Repository struct {
	db     *pgxpool.Pool
	stalls *stall.Repository
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, stalls: stall.NewRepository(db)}
}

func (r *Repository) Get(ctx context.Context, id string) (*Booking, error) {
	return scan(r.db.QueryRow(ctx, selectBooking+`WHERE b.id = $1`, id))
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Booking, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var status, stallID any
	if f.Status != nil {
		status = string(*f.Status)
	}
	if f.StallID != "" {
		stallID = f.StallID
	}
	q := selectBooking + `
WHERE ($1::text IS NULL OR b.status = $1::text)
  AND ($2::uuid IS NULL OR b.stall_id = $2::uuid)
ORDER BY b.created_at DESC
LIMIT $3
`
	return collect(r.db.Query(ctx, q, status, stallID, limit))
}

func (r *Repository) Overlapping(ctx context.Context, stallID string, dr DateRange, statuses []Status) ([]Booking, error) {
	var sid any
	if stallID != "" {
		sid = stallID
	}
	q := selectBooking + `
WHERE ($1::uuid IS NULL OR b.stall_id = $1::uuid)
  AND b.status = ANY($2::text[])
  AND b.start_date <= $4 AND b.end_date >= $3
ORDER BY b.start_date ASC
`
	return collect(r.db.Query(ctx, q, sid, statusStrings(statuses), dr.Start, dr.End))
}

func (r *Repository) Stall(ctx context.Context, id string) (*stall.Stall, error) {
	return r.stalls.Get(ctx, id)
}

func (r *Repository) Events(ctx context.Context, bookingID string) ([]events.Event, error) {
	return events.ListByBooking(ctx, r.db, bookingID)
}

func (r *Repository) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(pgLedgerTx{tx: tx})
	})
}

type pgLedgerTx struct {
	tx pgx.Tx
}

func (t pgLedgerTx) LockStall(ctx context.Context, stallID string) (*stall.Stall, error) {
	return stall.GetForUpdate(ctx, t.tx, stallID)
}

func (t pgLedgerTx) HasOverlap(ctx context.Context, stallID string, dr DateRange, statuses []Status, excludeID string) (bool, error) {
	var exclude any
	if excludeID != "" {
		exclude = excludeID
	}
	const q = `
SELECT EXISTS (
  SELECT 1
  FROM bookings
  WHERE stall_id = $1
    AND status = ANY($2::text[])
    AND start_date <= $4 AND end_date >= $3
    AND ($5::uuid IS NULL OR id <> $5::uuid)
)
`
	var exists bool
	if err := t.tx.QueryRow(ctx, q, stallID, statusStrings(statuses), dr.Start, dr.End, exclude).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t pgLedgerTx) Insert(ctx context.Context, b *Booking) error {
	const q = `
INSERT INTO bookings (stall_id, vendor_name, vendor_phone, vendor_email, start_date, end_date, total_price, status)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7::numeric, $8)
RETURNING id, created_at, updated_at
`
	return t.tx.QueryRow(ctx, q,
		b.StallID, b.VendorName, b.VendorPhone, b.VendorEmail, b.StartDate, b.EndDate, b.TotalPrice.String(), b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (t pgLedgerTx) GetForUpdate(ctx context.Context, id string) (*Booking, error) {
	return scan(t.tx.QueryRow(ctx, selectBooking+`WHERE b.id = $1 FOR UPDATE OF b`, id))
}

// SetStatus moves the booking to next. A non-empty proofRef is stored only
// when none is recorded yet.
func (t pgLedgerTx) SetStatus(ctx context.Context, id string, next Status, proofRef string) (*Booking, error) {
	const q = `
UPDATE bookings
SET status = $2,
    payment_proof_ref = COALESCE(payment_proof_ref, NULLIF($3, '')),
    updated_at = NOW()
WHERE id = $1
`
	tag, err := t.tx.Exec(ctx, q, id, next, proofRef)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return scan(t.tx.QueryRow(ctx, selectBooking+`WHERE b.id = $1`, id))
}

func (t pgLedgerTx) AppendEvent(ctx context.Context, e events.Event) error {
	return events.Insert(ctx, t.tx, e)
}

func (t pgLedgerTx) Audit(ctx context.Context, bookingID, action, actor string, metadata any) error {
	return audit.Insert(ctx, t.tx, audit.EntityBooking, bookingID, action, actor, metadata)
}

func collect(rows pgx.Rows, err error) ([]Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		b, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func scan(row pgx.Row) (*Booking, error) {
	var (
		b          Booking
		total      string
		status     string
		start, end time.Time
	)
	if err := row.Scan(
		&b.ID, &b.StallID, &b.StallName, &b.VendorName, &b.VendorPhone, &b.VendorEmail,
		&start, &end, &total, &status, &b.PaymentProofRef,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("booking %s total %q: %w", b.ID, total, err)
	}
	st, err := ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.TotalPrice = d
	b.Status = st
	b.StartDate, b.EndDate = Day(start), Day(end)
	return &b, nil
}

func statusStrings(statuses []Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
