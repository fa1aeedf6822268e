package booking

import (
	"fmt"
	"strings"
)

// Policy decides which statuses hold a stall for conflict purposes and
// whether cancellation is offered.
type Policy struct {
	blocking    map[Status]bool
	AllowCancel bool
}

// Occupying statuses always block. The bookings table enforces them with an
// exclusion constraint, so no policy may drop them.
var occupying = []Status{StatusApproved, StatusPaid}

// Provisional statuses hold a slot while the admin has not decided yet.
var provisional = []Status{StatusPending, StatusPendingVerification}

// DefaultPolicy blocks on pending requests too, so a second vendor cannot
// submit for dates that are already waiting for review.
func DefaultPolicy() Policy {
	p := Policy{blocking: map[Status]bool{}, AllowCancel: true}
	for _, s := range occupying {
		p.blocking[s] = true
	}
	for _, s := range provisional {
		p.blocking[s] = true
	}
	return p
}

// ParsePolicy builds a policy from configured status names. An empty list
// yields DefaultPolicy.
func ParsePolicy(statuses []string, allowCancel bool) (Policy, error) {
	if len(statuses) == 0 {
		p := DefaultPolicy()
		p.AllowCancel = allowCancel
		return p, nil
	}

	p := Policy{blocking: map[Status]bool{}, AllowCancel: allowCancel}
	for _, raw := range statuses {
		s, err := ParseStatus(raw)
		if err != nil {
			return Policy{}, err
		}
		if s == StatusRejected || s == StatusCancelled {
			return Policy{}, fmt.Errorf("status %s cannot block a stall", s)
		}
		p.blocking[s] = true
	}
	for _, s := range occupying {
		if !p.blocking[s] {
			return Policy{}, fmt.Errorf("blocking statuses must include %s", s)
		}
	}
	return p, nil
}

func (p Policy) Blocks(s Status) bool {
	return p.blocking[s]
}

// BlockingStatuses lists the blocking set in lifecycle order.
func (p Policy) BlockingStatuses() []Status {
	var out []Status
	for _, s := range AllStatuses {
		if p.blocking[s] {
			out = append(out, s)
		}
	}
	return out
}

func (p Policy) String() string {
	parts := make([]string, 0, len(p.blocking))
	for _, s := range p.BlockingStatuses() {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}
