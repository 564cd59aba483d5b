package closure

import "time"

type Status string

const (
	StatusActive         Status = "active"
	StatusPendingClosure Status = "pending_closure"
	StatusClosed         Status = "closed"
)

// Metadata is the free-form closure context persisted alongside the status,
// including the ACH relationship the original initiate call used so a later
// resume can fall back to it.
type Metadata struct {
	EstimatedCompletion string   `json:"estimated_completion,omitempty"`
	NextSteps           []string `json:"next_steps,omitempty"`
	ACHRelationshipID   string   `json:"ach_relationship_id,omitempty"`
}

// Record is the one authoritative closure row per user. Status is the only
// cross-request ordering mechanism; ConfirmationNumber is the only valid
// signal that a closure was genuinely initiated against the backend.
type Record struct {
	UserID             string
	AccountID          string
	Status             Status
	ConfirmationNumber *string
	InitiatedAt        *time.Time
	CompletedAt        *time.Time
	Metadata           Metadata
}

// Initiated reports whether the backend handshake completed. A record with
// status pending_closure but no confirmation number is a partial write and
// must be treated as not initiated.
func (r *Record) Initiated() bool {
	return r.ConfirmationNumber != nil && *r.ConfirmationNumber != ""
}

// Closing reports whether the record is already in or past the closure
// pipeline, in which case initiate is illegal.
func (r *Record) Closing() bool {
	return r.Status == StatusPendingClosure || r.Status == StatusClosed
}
