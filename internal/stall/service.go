package stall

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"marketstall/internal/actor"
	"marketstall/internal/apperror"
	"marketstall/pkg/db"
)

// Store is the persistence the catalog needs. *Repository implements it.
type Store interface {
	List(ctx context.Context) ([]Stall, error)
	Get(ctx context.Context, id string) (*Stall, error)
	InTx(ctx context.Context, fn func(tx CatalogTx) error) error
}

// CatalogTx is the write side; every call shares one transaction.
type CatalogTx interface {
	Create(ctx context.Context, in Input) (*Stall, error)
	Update(ctx context.Context, id string, in Input) (*Stall, error)
	GetForUpdate(ctx context.Context, id string) (*Stall, error)
	HasBookings(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Audit(ctx context.Context, stallID, action, actor string, metadata any) error
}

// Catalog is admin CRUD over stalls.
type Catalog struct {
	store  Store
	logger *zap.Logger
}

func NewCatalog(store Store, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, logger: logger}
}

func (c *Catalog) List(ctx context.Context) ([]Stall, error) {
	items, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stalls: %w", err)
	}
	if items == nil {
		items = []Stall{}
	}
	return items, nil
}

func (c *Catalog) Get(ctx context.Context, id string) (*Stall, error) {
	if !validID(id) {
		return nil, apperror.NotFound("stall", id)
	}
	s, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id, "get stall")
	}
	return s, nil
}

func (c *Catalog) Create(ctx context.Context, who actor.Actor, in Input) (*Stall, error) {
	if err := actor.RequireAdmin(who); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	var out *Stall
	err := c.store.InTx(ctx, func(tx CatalogTx) error {
		s, err := tx.Create(ctx, in)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return nameTaken(in.Name)
			}
			return fmt.Errorf("create stall: %w", err)
		}
		if err := tx.Audit(ctx, s.ID, "STALL_CREATED", who.Label(), in); err != nil {
			return fmt.Errorf("audit stall create: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Stall created", zap.String("stall_id", out.ID), zap.String("name", out.Name))
	return out, nil
}

// Update edits name, price and description. Existing bookings keep the total
// they were created with.
func (c *Catalog) Update(ctx context.Context, who actor.Actor, id string, in Input) (*Stall, error) {
	if err := actor.RequireAdmin(who); err != nil {
		return nil, err
	}
	if !validID(id) {
		return nil, apperror.NotFound("stall", id)
	}
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	var out *Stall
	err := c.store.InTx(ctx, func(tx CatalogTx) error {
		prev, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, id, "lock stall")
		}
		s, err := tx.Update(ctx, id, in)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return nameTaken(in.Name)
			}
			return notFoundOr(err, id, "update stall")
		}
		meta := map[string]any{"from": Input{Name: prev.Name, PricePerDay: prev.PricePerDay, Description: prev.Description}, "to": in}
		if err := tx.Audit(ctx, id, "STALL_UPDATED", who.Label(), meta); err != nil {
			return fmt.Errorf("audit stall update: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Stall updated", zap.String("stall_id", out.ID))
	return out, nil
}

// Delete removes a stall that no booking has ever referenced, in any status.
func (c *Catalog) Delete(ctx context.Context, who actor.Actor, id string) error {
	if err := actor.RequireAdmin(who); err != nil {
		return err
	}
	if !validID(id) {
		return apperror.NotFound("stall", id)
	}
	err := c.store.InTx(ctx, func(tx CatalogTx) error {
		s, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return notFoundOr(err, id, "lock stall")
		}
		has, err := tx.HasBookings(ctx, id)
		if err != nil {
			return fmt.Errorf("check stall bookings: %w", err)
		}
		if has {
			return stallInUse()
		}
		if err := tx.Delete(ctx, id); err != nil {
			if db.IsForeignKeyViolation(err) {
				return stallInUse()
			}
			return notFoundOr(err, id, "delete stall")
		}
		if err := tx.Audit(ctx, id, "STALL_DELETED", who.Label(), map[string]any{"name": s.Name}); err != nil {
			return fmt.Errorf("audit stall delete: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("Stall deleted", zap.String("stall_id", id))
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nameTaken(name string) error {
	return apperror.Conflict("STALL_NAME_TAKEN", "a stall named %q already exists", name)
}

func stallInUse() error {
	return apperror.Conflict("STALL_IN_USE", "stall has bookings and cannot be deleted")
}

func notFoundOr(err error, id, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("stall", id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
