package stall

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"marketstall/internal/audit"
	"marketstall/pkg/db"
)

const columns = `id, name, price_per_day::text, description, created_at, updated_at`

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context) ([]Stall, error) {
	q := `SELECT ` + columns + ` FROM stalls ORDER BY name ASC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stall
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *Repository) Get(ctx context.Context, id string) (*Stall, error) {
	q := `SELECT ` + columns + ` FROM stalls WHERE id = $1`
	return scan(r.db.QueryRow(ctx, q, id))
}

// Upsert inserts a stall unless one with the same name exists and returns
// the stored row. Used by the seeder.
func (r *Repository) Upsert(ctx context.Context, in Input) (*Stall, error) {
	q := `
INSERT INTO stalls (name, price_per_day, description)
VALUES ($1, $2::numeric, $3)
ON CONFLICT (name) DO UPDATE SET updated_at = stalls.updated_at
RETURNING ` + columns
	return scan(r.db.QueryRow(ctx, q, in.Name, in.PricePerDay.String(), in.Description))
}

func (r *Repository) InTx(ctx context.Context, fn func(tx CatalogTx) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(pgCatalogTx{tx: tx})
	})
}

type pgCatalogTx struct {
	tx pgx.Tx
}

func (t pgCatalogTx) Create(ctx context.Context, in Input) (*Stall, error) {
	q := `
INSERT INTO stalls (name, price_per_day, description)
VALUES ($1, $2::numeric, $3)
RETURNING ` + columns
	return scan(t.tx.QueryRow(ctx, q, in.Name, in.PricePerDay.String(), in.Description))
}

func (t pgCatalogTx) Update(ctx context.Context, id string, in Input) (*Stall, error) {
	q := `
UPDATE stalls
SET name = $2, price_per_day = $3::numeric, description = $4, updated_at = NOW()
WHERE id = $1
RETURNING ` + columns
	return scan(t.tx.QueryRow(ctx, q, id, in.Name, in.PricePerDay.String(), in.Description))
}

func (t pgCatalogTx) Audit(ctx context.Context, stallID, action, actor string, metadata any) error {
	return audit.Insert(ctx, t.tx, audit.EntityStall, stallID, action, actor, metadata)
}

func (t pgCatalogTx) GetForUpdate(ctx context.Context, id string) (*Stall, error) {
	return GetForUpdate(ctx, t.tx, id)
}

func (t pgCatalogTx) HasBookings(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM bookings WHERE stall_id = $1)`
	var exists bool
	if err := t.tx.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (t pgCatalogTx) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM stalls WHERE id = $1`
	tag, err := t.tx.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// GetForUpdate locks the stall row for the rest of tx. The booking engine
// takes this lock before its overlap check so that competing writes for the
// same stall are serialised.
func GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (*Stall, error) {
	q := `SELECT ` + columns + ` FROM stalls WHERE id = $1 FOR UPDATE`
	return scan(tx.QueryRow(ctx, q, id))
}

func scan(row pgx.Row) (*Stall, error) {
	var (
		s     Stall
		price string
	)
	if err := row.Scan(&s.ID, &s.Name, &price, &s.Description, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("stall %s price %q: %w", s.ID, price, err)
	}
	s.PricePerDay = d
	return &s, nil
}
