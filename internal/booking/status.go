package booking

import (
	"fmt"
	"strings"
)

type Status string

const (
	StatusPending             Status = "pending"
	StatusPendingVerification Status = "pending_verification"
	StatusApproved            Status = "approved"
	StatusRejected            Status = "rejected"
	StatusPaid                Status = "paid"
	StatusCancelled           Status = "cancelled"
)

// AllStatuses in lifecycle order.
var AllStatuses = []Status{
	StatusPending, StatusPendingVerification, StatusApproved,
	StatusRejected, StatusPaid, StatusCancelled,
}

// ParseStatus accepts the canonical names plus "confirmed", an older name for approved.
func ParseStatus(s string) (Status, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "confirmed" {
		return StatusApproved, nil
	}
	switch Status(s) {
	case StatusPending, StatusPendingVerification, StatusApproved, StatusRejected, StatusPaid, StatusCancelled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

// Terminal reports whether no trigger leaves s.
func (s Status) Terminal() bool {
	for _, r := range lifecycle {
		if r.from[s] {
			return false
		}
	}
	return true
}

type Trigger string

const (
	TriggerUploadProof Trigger = "upload_proof"
	TriggerApprove     Trigger = "approve"
	TriggerReject      Trigger = "reject"
	TriggerMarkPaid    Trigger = "mark_paid"
	TriggerCancel      Trigger = "cancel"
)

func ParseTrigger(s string) (Trigger, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upload_proof":
		return TriggerUploadProof, nil
	case "approve", "confirm":
		return TriggerApprove, nil
	case "reject":
		return TriggerReject, nil
	case "mark_paid", "pay":
		return TriggerMarkPaid, nil
	case "cancel":
		return TriggerCancel, nil
	default:
		return "", fmt.Errorf("unknown action: %s", s)
	}
}

type rule struct {
	from      map[Status]bool
	to        Status
	adminOnly bool
}

// Creation is not a trigger: every booking starts in StatusPending.
var lifecycle = map[Trigger]rule{
	TriggerUploadProof: {
		from: map[Status]bool{StatusPending: true},
		to:   StatusPendingVerification,
	},
	TriggerApprove: {
		from:      map[Status]bool{StatusPending: true, StatusPendingVerification: true},
		to:        StatusApproved,
		adminOnly: true,
	},
	TriggerReject: {
		from:      map[Status]bool{StatusPending: true, StatusPendingVerification: true},
		to:        StatusRejected,
		adminOnly: true,
	},
	TriggerMarkPaid: {
		from:      map[Status]bool{StatusApproved: true, StatusPending: true},
		to:        StatusPaid,
		adminOnly: true,
	},
	TriggerCancel: {
		from:      map[Status]bool{StatusApproved: true, StatusPending: true, StatusPaid: true},
		to:        StatusCancelled,
		adminOnly: true,
	},
}

// Next returns the state t leads to from the given state.
func Next(t Trigger, from Status) (Status, bool) {
	r, ok := lifecycle[t]
	if !ok || !r.from[from] {
		return "", false
	}
	return r.to, true
}

func (t Trigger) AdminOnly() bool {
	return lifecycle[t].adminOnly
}
