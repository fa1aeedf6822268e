package user

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert creates the user or resets its password hash and role.
func (r *Repository) Upsert(ctx context.Context, username, passwordHash, role string) (*User, error) {
	const q = `
INSERT INTO users (username, password_hash, role)
VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET
  password_hash = EXCLUDED.password_hash,
  role = EXCLUDED.role
RETURNING id, username, role, password_hash, created_at
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, username, passwordHash, role).Scan(
		&u.ID, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*User, error) {
	const q = `
SELECT id, username, role, password_hash, created_at
FROM users
WHERE username = $1
`
	u := &User{}
	if err := r.db.QueryRow(ctx, q, username).Scan(
		&u.ID, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *Repository) List(ctx context.Context) ([]User, error) {
	const q = `SELECT id, username, role, created_at FROM users ORDER BY username ASC`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
