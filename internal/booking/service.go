package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"marketstall/internal/actor"
	"marketstall/internal/apperror"
	"marketstall/internal/events"
	"marketstall/internal/stall"
	"marketstall/pkg/db"
)

// Ledger is the booking persistence. *Repository implements it over Postgres.
// Lookups that miss return pgx.ErrNoRows.
type Ledger interface {
	Get(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, f Filter) ([]Booking, error)
	// Overlapping returns bookings in statuses that touch r. An empty
	// stallID means every stall.
	Overlapping(ctx context.Context, stallID string, r DateRange, statuses []Status) ([]Booking, error)
	Stall(ctx context.Context, id string) (*stall.Stall, error)
	Events(ctx context.Context, bookingID string) ([]events.Event, error)
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is the write side; every call shares one transaction.
type LedgerTx interface {
	// LockStall row-locks the stall until the transaction ends.
	LockStall(ctx context.Context, stallID string) (*stall.Stall, error)
	HasOverlap(ctx context.Context, stallID string, r DateRange, statuses []Status, excludeID string) (bool, error)
	Insert(ctx context.Context, b *Booking) error
	GetForUpdate(ctx context.Context, id string) (*Booking, error)
	SetStatus(ctx context.Context, id string, next Status, proofRef string) (*Booking, error)
	AppendEvent(ctx context.Context, e events.Event) error
	Audit(ctx context.Context, bookingID, action, actor string, metadata any) error
}

type Service struct {
	ledger Ledger
	policy Policy
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*Service)

// WithClock replaces time.Now, which decides "today" and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(ledger Ledger, policy Policy, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{ledger: ledger, policy: policy, now: time.Now, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Policy() Policy { return s.policy }

// CreateBooking checks availability, prices the range and inserts a pending
// booking, all under a lock on the stall row.
func (s *Service) CreateBooking(ctx context.Context, req Request) (*Booking, error) {
	req.StallID = strings.TrimSpace(req.StallID)
	req.VendorName = strings.TrimSpace(req.VendorName)
	req.VendorPhone = strings.TrimSpace(req.VendorPhone)
	req.VendorEmail = strings.TrimSpace(req.VendorEmail)
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}
	r, err := ParseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	var out *Booking
	err = s.ledger.InTx(ctx, func(tx LedgerTx) error {
		st, err := tx.LockStall(ctx, req.StallID)
		if err != nil {
			return notFoundOr(err, "stall", req.StallID, "lock stall")
		}

		free, err := s.isAvailable(ctx, tx, st.ID, r, "")
		if err != nil {
			return err
		}
		if !free {
			return conflict(st.Name, r)
		}

		b := &Booking{
			StallID:     st.ID,
			StallName:   st.Name,
			VendorName:  req.VendorName,
			VendorPhone: req.VendorPhone,
			VendorEmail: req.VendorEmail,
			StartDate:   r.Start,
			EndDate:     r.End,
			TotalPrice:  ComputePrice(st.PricePerDay, r),
			Status:      StatusPending,
		}
		if err := tx.Insert(ctx, b); err != nil {
			if db.IsExclusionViolation(err) {
				return conflict(st.Name, r)
			}
			return fmt.Errorf("insert booking: %w", err)
		}

		if err := tx.AppendEvent(ctx, events.Event{
			BookingID:  b.ID,
			EventType:  events.TypeCreated,
			ToStatus:   string(b.Status),
			Actor:      actor.Vendor().Label(),
			OccurredAt: s.now(),
			Data:       events.Marshal(map[string]any{"totalPrice": b.TotalPrice.StringFixed(2), "days": r.Days()}),
		}); err != nil {
			return fmt.Errorf("append created event: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", out.ID),
		zap.String("stall_id", out.StallID),
		zap.String("range", r.String()),
		zap.String("total_price", out.TotalPrice.StringFixed(2)),
	)
	return out, nil
}

// TransitionStatus fires an admin trigger. Payment proof goes through
// AttachPaymentProof since it needs a reference.
func (s *Service) TransitionStatus(ctx context.Context, bookingID string, t Trigger, who actor.Actor) (*Booking, error) {
	if t == TriggerUploadProof {
		return nil, apperror.Validation("VALIDATION_FAILED", "upload_proof requires a payment proof reference")
	}
	return s.apply(ctx, bookingID, t, who, "")
}

// AttachPaymentProof records the uploaded proof and moves the booking to
// pending_verification. Anyone holding the booking id may do this.
func (s *Service) AttachPaymentProof(ctx context.Context, bookingID, proofRef string) (*Booking, error) {
	proofRef = strings.TrimSpace(proofRef)
	if proofRef == "" {
		return nil, apperror.Validation("VALIDATION_FAILED", "payment proof reference is required")
	}
	return s.apply(ctx, bookingID, TriggerUploadProof, actor.Vendor(), proofRef)
}

func (s *Service) apply(ctx context.Context, bookingID string, t Trigger, who actor.Actor, proofRef string) (*Booking, error) {
	if _, ok := lifecycle[t]; !ok {
		return nil, apperror.Validation("VALIDATION_FAILED", "unknown action %q", t)
	}
	if t.AdminOnly() {
		if err := actor.RequireAdmin(who); err != nil {
			return nil, err
		}
	}
	if t == TriggerCancel && !s.policy.AllowCancel {
		return nil, &apperror.InvalidTransitionError{Action: string(t), Message: "cancellation is disabled"}
	}
	if !validID(bookingID) {
		return nil, apperror.NotFound("booking", bookingID)
	}

	var (
		out  *Booking
		from Status
	)
	err := s.ledger.InTx(ctx, func(tx LedgerTx) error {
		b, err := tx.GetForUpdate(ctx, bookingID)
		if err != nil {
			return notFoundOr(err, "booking", bookingID, "lock booking")
		}
		from = b.Status

		next, ok := Next(t, b.Status)
		if !ok {
			e := &apperror.InvalidTransitionError{Action: string(t), From: string(b.Status)}
			if b.Status.Terminal() {
				e.Message = fmt.Sprintf("cannot %s: booking is %s and can no longer change", t, b.Status)
			}
			return e
		}
		if proofRef != "" && b.PaymentProofRef != "" {
			return apperror.Conflict("PROOF_ALREADY_ATTACHED", "payment proof already attached")
		}

		// Entering the blocking set from outside it must not create an overlap.
		if s.policy.Blocks(next) && !s.policy.Blocks(b.Status) {
			if _, err := tx.LockStall(ctx, b.StallID); err != nil {
				return fmt.Errorf("lock stall: %w", err)
			}
			free, err := s.isAvailable(ctx, tx, b.StallID, b.Range(), b.ID)
			if err != nil {
				return err
			}
			if !free {
				return conflict(b.StallName, b.Range())
			}
		}

		updated, err := tx.SetStatus(ctx, b.ID, next, proofRef)
		if err != nil {
			if db.IsExclusionViolation(err) {
				return conflict(b.StallName, b.Range())
			}
			return fmt.Errorf("set booking status: %w", err)
		}

		evType := events.TypeStatusChanged
		var data any
		if t == TriggerUploadProof {
			evType = events.TypeProofUploaded
			data = map[string]any{"paymentProofRef": proofRef}
		}
		if err := tx.AppendEvent(ctx, events.Event{
			BookingID:  b.ID,
			EventType:  evType,
			FromStatus: string(b.Status),
			ToStatus:   string(next),
			Actor:      who.Label(),
			OccurredAt: s.now(),
			Data:       events.Marshal(data),
		}); err != nil {
			return fmt.Errorf("append status event: %w", err)
		}
		if who.IsAdmin() {
			meta := map[string]any{"action": t, "from": b.Status, "to": next}
			if err := tx.Audit(ctx, b.ID, "BOOKING_"+strings.ToUpper(string(t)), who.Label(), meta); err != nil {
				return fmt.Errorf("audit booking transition: %w", err)
			}
		}
		out = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking status changed",
		zap.String("booking_id", out.ID),
		zap.String("action", string(t)),
		zap.String("from", string(from)),
		zap.String("to", string(out.Status)),
		zap.String("actor", who.Label()),
	)
	return out, nil
}

// IsAvailable reports whether no booking in the blocking set overlaps
// [start, end] on the stall. excludeID skips one booking, for re-checks
// of an existing booking against the rest.
func (s *Service) IsAvailable(ctx context.Context, stallID string, start, end time.Time, excludeID string) (bool, error) {
	r, err := NewDateRange(start, end)
	if err != nil {
		return false, err
	}
	if !validID(stallID) {
		return false, apperror.NotFound("stall", stallID)
	}
	if _, err := s.ledger.Stall(ctx, stallID); err != nil {
		return false, notFoundOr(err, "stall", stallID, "get stall")
	}

	var free bool
	err = s.ledger.InTx(ctx, func(tx LedgerTx) error {
		var err error
		free, err = s.isAvailable(ctx, tx, stallID, r, excludeID)
		return err
	})
	return free, err
}

func (s *Service) isAvailable(ctx context.Context, tx LedgerTx, stallID string, r DateRange, excludeID string) (bool, error) {
	overlap, err := tx.HasOverlap(ctx, stallID, r, s.policy.BlockingStatuses(), excludeID)
	if err != nil {
		return false, fmt.Errorf("check overlap: %w", err)
	}
	return !overlap, nil
}

// CheckAvailability is the listing state of one stall on day.
func (s *Service) CheckAvailability(ctx context.Context, stallID string, day time.Time) (Occupancy, error) {
	if !validID(stallID) {
		return "", apperror.NotFound("stall", stallID)
	}
	if _, err := s.ledger.Stall(ctx, stallID); err != nil {
		return "", notFoundOr(err, "stall", stallID, "get stall")
	}
	live, err := s.ledger.Overlapping(ctx, stallID, SingleDay(day), liveStatuses())
	if err != nil {
		return "", fmt.Errorf("load bookings for day: %w", err)
	}
	return occupancyOf(live), nil
}

// TodayAvailability is CheckAvailability against the server's current date.
func (s *Service) TodayAvailability(ctx context.Context, stallID string) (Occupancy, error) {
	return s.CheckAvailability(ctx, stallID, s.Today())
}

// OccupancyOn returns the listing state of every stall that has a live
// booking on day. Stalls missing from the map are available.
func (s *Service) OccupancyOn(ctx context.Context, day time.Time) (map[string]Occupancy, error) {
	live, err := s.ledger.Overlapping(ctx, "", SingleDay(day), liveStatuses())
	if err != nil {
		return nil, fmt.Errorf("load bookings for day: %w", err)
	}
	byStall := map[string][]Booking{}
	for _, b := range live {
		byStall[b.StallID] = append(byStall[b.StallID], b)
	}
	out := make(map[string]Occupancy, len(byStall))
	for id, bs := range byStall {
		out[id] = occupancyOf(bs)
	}
	return out, nil
}

func (s *Service) Today() time.Time {
	return Day(s.now())
}

// ComputePrice quotes a range on a stall at its current daily price.
func (s *Service) ComputePrice(ctx context.Context, stallID string, start, end time.Time) (decimal.Decimal, error) {
	r, err := NewDateRange(start, end)
	if err != nil {
		return decimal.Zero, err
	}
	if !validID(stallID) {
		return decimal.Zero, apperror.NotFound("stall", stallID)
	}
	st, err := s.ledger.Stall(ctx, stallID)
	if err != nil {
		return decimal.Zero, notFoundOr(err, "stall", stallID, "get stall")
	}
	return ComputePrice(st.PricePerDay, r), nil
}

func (s *Service) GetBooking(ctx context.Context, id string) (*Booking, error) {
	if !validID(id) {
		return nil, apperror.NotFound("booking", id)
	}
	b, err := s.ledger.Get(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "booking", id, "get booking")
	}
	return b, nil
}

// ListBookings is the admin view, newest first.
func (s *Service) ListBookings(ctx context.Context, who actor.Actor, f Filter) ([]Booking, error) {
	if err := actor.RequireAdmin(who); err != nil {
		return nil, err
	}
	if f.StallID != "" && !validID(f.StallID) {
		return nil, apperror.Validation("VALIDATION_FAILED", "stallId must be a UUID")
	}
	items, err := s.ledger.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	if items == nil {
		items = []Booking{}
	}
	return items, nil
}

func (s *Service) Events(ctx context.Context, who actor.Actor, bookingID string) ([]events.Event, error) {
	if err := actor.RequireAdmin(who); err != nil {
		return nil, err
	}
	if _, err := s.GetBooking(ctx, bookingID); err != nil {
		return nil, err
	}
	items, err := s.ledger.Events(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("list booking events: %w", err)
	}
	if items == nil {
		items = []events.Event{}
	}
	return items, nil
}

func liveStatuses() []Status {
	return append(append([]Status{}, provisional...), occupying...)
}

func conflict(stallName string, r DateRange) error {
	return apperror.Conflict("BOOKING_CONFLICT", "stall %s is already booked for some of %s", stallName, r)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func notFoundOr(err error, resource, id, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(resource, id)
	}
	return fmt.Errorf("%s: %w", op, err)
}
