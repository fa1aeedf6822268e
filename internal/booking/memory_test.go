package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"marketstall/internal/events"
	"marketstall/internal/stall"
)

// memLedger is an in-memory Ledger. One mutex stands in for row locks, and a
// failed transaction restores the snapshot taken when it began. Like the
// bookings table it refuses overlapping approved/paid ranges per stall.
type memLedger struct {
	mu       sync.Mutex
	stalls   map[string]stall.Stall
	bookings map[string]Booking
	events   []events.Event
	audits   []string
	seq      int
	clock    time.Time
}

func newMemLedger() *memLedger {
	return &memLedger{
		stalls:   map[string]stall.Stall{},
		bookings: map[string]Booking{},
		clock:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memLedger) addStall(name, price string) stall.Stall {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := stall.Stall{ID: uuid.NewString(), Name: name, PricePerDay: decimal.RequireFromString(price)}
	m.stalls[s.ID] = s
	return s
}

func (m *memLedger) Get(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &b, nil
}

func (m *memLedger) List(_ context.Context, f Filter) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		if f.StallID != "" && b.StallID != f.StallID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memLedger) Overlapping(_ context.Context, stallID string, r DateRange, statuses []Status) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Booking
	for _, b := range m.bookings {
		if stallID != "" && b.StallID != stallID {
			continue
		}
		if containsStatus(statuses, b.Status) && b.Range().Overlaps(r) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memLedger) Stall(_ context.Context, id string) (*stall.Stall, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stalls[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (m *memLedger) Events(_ context.Context, bookingID string) ([]events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []events.Event
	for _, e := range m.events {
		if e.BookingID == bookingID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memLedger) InTx(_ context.Context, fn func(tx LedgerTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	bookings := make(map[string]Booking, len(m.bookings))
	for k, v := range m.bookings {
		bookings[k] = v
	}
	nEvents, nAudits := len(m.events), len(m.audits)

	if err := fn(memTx{m: m}); err != nil {
		m.bookings = bookings
		m.events = m.events[:nEvents]
		m.audits = m.audits[:nAudits]
		return err
	}
	return nil
}

type memTx struct {
	m *memLedger
}

func (t memTx) LockStall(_ context.Context, stallID string) (*stall.Stall, error) {
	s, ok := t.m.stalls[stallID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &s, nil
}

func (t memTx) HasOverlap(_ context.Context, stallID string, r DateRange, statuses []Status, excludeID string) (bool, error) {
	for _, b := range t.m.bookings {
		if b.StallID != stallID || b.ID == excludeID {
			continue
		}
		if containsStatus(statuses, b.Status) && b.Range().Overlaps(r) {
			return true, nil
		}
	}
	return false, nil
}

func (t memTx) Insert(_ context.Context, b *Booking) error {
	if err := t.m.exclusion(*b); err != nil {
		return err
	}
	t.m.seq++
	b.ID = uuid.NewString()
	b.CreatedAt = t.m.clock.Add(time.Duration(t.m.seq) * time.Second)
	b.UpdatedAt = b.CreatedAt
	t.m.bookings[b.ID] = *b
	return nil
}

func (t memTx) GetForUpdate(_ context.Context, id string) (*Booking, error) {
	b, ok := t.m.bookings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &b, nil
}

func (t memTx) SetStatus(_ context.Context, id string, next Status, proofRef string) (*Booking, error) {
	b, ok := t.m.bookings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	b.Status = next
	if b.PaymentProofRef == "" {
		b.PaymentProofRef = proofRef
	}
	if err := t.m.exclusion(b); err != nil {
		return nil, err
	}
	t.m.bookings[id] = b
	return &b, nil
}

func (t memTx) AppendEvent(_ context.Context, e events.Event) error {
	t.m.events = append(t.m.events, e)
	return nil
}

func (t memTx) Audit(_ context.Context, bookingID, action, actor string, _ any) error {
	t.m.audits = append(t.m.audits, action+":"+bookingID+":"+actor)
	return nil
}

func (m *memLedger) exclusion(nb Booking) error {
	if !containsStatus(occupying, nb.Status) {
		return nil
	}
	for _, b := range m.bookings {
		if b.ID == nb.ID || b.StallID != nb.StallID || !containsStatus(occupying, b.Status) {
			continue
		}
		if b.Range().Overlaps(nb.Range()) {
			return &pgconn.PgError{Code: pgerrcode.ExclusionViolation, ConstraintName: "bookings_no_overlap"}
		}
	}
	return nil
}

func (m *memLedger) all() []Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	return out
}

func containsStatus(set []Status, s Status) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}
