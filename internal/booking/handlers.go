package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"marketstall/internal/api"
	"marketstall/internal/stall"
)

// StallLister is the read side of the catalog. *stall.Catalog implements it.
type StallLister interface {
	List(ctx context.Context) ([]stall.Stall, error)
	Get(ctx context.Context, id string) (*stall.Stall, error)
}

type Handlers struct {
	Service *Service
	Stalls  StallLister
	Logger  *zap.Logger
}

// stallView is a catalog entry with its occupancy on the listed day.
type stallView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PricePerDay string    `json:"pricePerDay"`
	Description string    `json:"description"`
	Status      Occupancy `json:"status"`
}

func newStallView(s stall.Stall, occ Occupancy) stallView {
	if occ == "" {
		occ = OccupancyAvailable
	}
	return stallView{
		ID:          s.ID,
		Name:        s.Name,
		PricePerDay: s.PricePerDay.StringFixed(2),
		Description: s.Description,
		Status:      occ,
	}
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	req.VendorName = strings.TrimSpace(req.VendorName)
	req.VendorPhone = strings.TrimSpace(req.VendorPhone)
	req.VendorEmail = strings.TrimSpace(req.VendorEmail)

	b, err := h.Service.CreateBooking(r.Context(), req)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, map[string]any{"booking": b})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.Service.GetBooking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

// ListStalls is the public catalog with each stall's state today, or on
// ?date= when given.
func (h Handlers) ListStalls(w http.ResponseWriter, r *http.Request) {
	day := h.Service.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := ParseDate("date", raw)
		if err != nil {
			api.WriteServiceError(w, h.Logger, err)
			return
		}
		day = d
	}

	stalls, err := h.Stalls.List(r.Context())
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	occ, err := h.Service.OccupancyOn(r.Context(), day)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}

	items := make([]stallView, 0, len(stalls))
	for _, s := range stalls {
		items = append(items, newStallView(s, occ[s.ID]))
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"date": day.Format(DateFormat), "items": items})
}

func (h Handlers) GetStall(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s, err := h.Stalls.Get(r.Context(), id)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	occ, err := h.Service.TodayAvailability(r.Context(), id)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"stall": newStallView(*s, occ)})
}

// Availability answers two questions. With start and end it reports whether
// the range can still be booked; otherwise it gives the listing state on
// ?date= or today.
func (h Handlers) Availability(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()

	if q.Get("start") != "" || q.Get("end") != "" {
		dr, err := ParseDateRange(q.Get("start"), q.Get("end"))
		if err != nil {
			api.WriteServiceError(w, h.Logger, err)
			return
		}
		free, err := h.Service.IsAvailable(r.Context(), id, dr.Start, dr.End, "")
		if err != nil {
			api.WriteServiceError(w, h.Logger, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, map[string]any{
			"stallId":   id,
			"startDate": dr.Start.Format(DateFormat),
			"endDate":   dr.End.Format(DateFormat),
			"available": free,
		})
		return
	}

	day := h.Service.Today()
	if raw := q.Get("date"); raw != "" {
		d, err := ParseDate("date", raw)
		if err != nil {
			api.WriteServiceError(w, h.Logger, err)
			return
		}
		day = d
	}
	occ, err := h.Service.CheckAvailability(r.Context(), id, day)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"stallId": id,
		"date":    day.Format(DateFormat),
		"status":  occ,
	})
}

func (h Handlers) Price(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q := r.URL.Query()
	dr, err := ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	total, err := h.Service.ComputePrice(r.Context(), id, dr.Start, dr.End)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"stallId":    id,
		"days":       dr.Days(),
		"totalPrice": total.StringFixed(2),
	})
}

// List is the admin booking table: ?status=, ?stallId=, ?limit=.
func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f Filter
	if raw := q.Get("status"); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
		f.Status = &st
	}
	f.StallID = q.Get("stallId")
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "limit must be a positive integer")
			return
		}
		f.Limit = n
	}

	items, err := h.Service.ListBookings(r.Context(), api.ActorFromContext(r.Context()), f)
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

type transitionRequest struct {
	Action string `json:"action"`
}

func (h Handlers) Transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	t, err := ParseTrigger(req.Action)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	b, err := h.Service.TransitionStatus(r.Context(), chi.URLParam(r, "id"), t, api.ActorFromContext(r.Context()))
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"booking": b})
}

func (h Handlers) Events(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.Events(r.Context(), api.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		api.WriteServiceError(w, h.Logger, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}
