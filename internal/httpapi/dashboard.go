package httpapi

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"marketstall/internal/api"
	"marketstall/internal/audit"
	"marketstall/internal/booking"
	"marketstall/internal/stall"
	"marketstall/internal/user"
)

type userLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type auditLister interface {
	ListRecent(ctx context.Context, limit int) ([]audit.Entry, error)
}

// dashboard is the admin landing page: recent bookings, the catalog with
// today's occupancy, admin users and the latest audit entries.
type dashboard struct {
	bookings *booking.Service
	stalls   *stall.Catalog
	users    userLister
	audit    auditLister
	logger   *zap.Logger
}

type dashboardStall struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	PricePerDay string            `json:"pricePerDay"`
	Description string            `json:"description"`
	Status      booking.Occupancy `json:"status"`
}

func (d dashboard) Show(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	who := api.ActorFromContext(ctx)

	bookings, err := d.bookings.ListBookings(ctx, who, booking.Filter{Limit: 100})
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}
	stalls, err := d.stalls.List(ctx)
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}
	today := d.bookings.Today()
	occ, err := d.bookings.OccupancyOn(ctx, today)
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}
	users, err := d.users.List(ctx)
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}
	recent, err := d.audit.ListRecent(ctx, 50)
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}

	counts := map[booking.Status]int{}
	for _, st := range booking.AllStatuses {
		counts[st] = 0
	}
	for _, b := range bookings {
		counts[b.Status]++
	}

	items := make([]dashboardStall, 0, len(stalls))
	for _, s := range stalls {
		status := occ[s.ID]
		if status == "" {
			status = booking.OccupancyAvailable
		}
		items = append(items, dashboardStall{
			ID:          s.ID,
			Name:        s.Name,
			PricePerDay: s.PricePerDay.StringFixed(2),
			Description: s.Description,
			Status:      status,
		})
	}

	api.WriteJSON(w, http.StatusOK, map[string]any{
		"date":         today.Format(booking.DateFormat),
		"bookings":     bookings,
		"statusCounts": counts,
		"stalls":       items,
		"users":        nonNil(users),
		"audit":        nonNil(recent),
		"policy":       d.bookings.Policy().String(),
	})
}

func (d dashboard) Users(w http.ResponseWriter, r *http.Request) {
	users, err := d.users.List(r.Context())
	if err != nil {
		api.WriteServiceError(w, d.logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(users)})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
