package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the registration lifecycle state.
type Status string

const (
	// StatusPending awaits an organizer decision.
	StatusPending Status = "pending"
	// StatusApproved may check in at event checkpoints.
	StatusApproved Status = "approved"
	// StatusRejected is terminal; the registration can never check in.
	StatusRejected Status = "rejected"
	// StatusCheckedIn has at least one recorded checkpoint scan.
	StatusCheckedIn Status = "checked_in"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCheckedIn:
		return true
	}
	return false
}

// CanDecide reports whether an organizer may still approve or reject.
// Decisions are one-shot: only pending registrations are decidable.
func (s Status) CanDecide() bool {
	return s == StatusPending
}

// CanCheckIn reports whether a checkpoint scan is allowed in this state.
// Status moves forward only: approved -> checked_in on the first scan,
// checked_in -> checked_in on subsequent scans.
func (s Status) CanCheckIn() bool {
	return s == StatusApproved || s == StatusCheckedIn
}

// CheckpointCheckIn is one recorded scan. At most one exists per
// (registration, checkpoint) pair; re-scans return the existing record.
type CheckpointCheckIn struct {
	ID             uuid.UUID `json:"id"`
	RegistrationID uuid.UUID `json:"registration_id"`
	Checkpoint     string    `json:"checkpoint"`
	ActorID        uuid.UUID `json:"actor_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// Registration is a participant's signup for one event. Token is issued
// exactly once at creation and never rotated; TokenSecret is the random
// per-registration value embedded in the token (stored as the hook for a
// future revocation check, not used for lookup).
type Registration struct {
	ID          uuid.UUID           `json:"id"`
	EventID     uuid.UUID           `json:"event_id"`
	UserID      uuid.UUID           `json:"user_id"`
	Responses   json.RawMessage     `json:"responses,omitempty"`
	Status      Status              `json:"status"`
	Token       string              `json:"token,omitempty"`
	TokenSecret string              `json:"-"`
	CheckIns    []CheckpointCheckIn `json:"checkpoint_checkins"`
	ApprovedBy  *uuid.UUID          `json:"approved_by,omitempty"`
	ApprovedAt  *time.Time          `json:"approved_at,omitempty"`
	RejectedBy  *uuid.UUID          `json:"rejected_by,omitempty"`
	RejectedAt  *time.Time          `json:"rejected_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// CheckpointRecord returns the recorded scan for the named checkpoint, or
// nil if that checkpoint has not been scanned for this registration.
func (r *Registration) CheckpointRecord(name string) *CheckpointCheckIn {
	for i := range r.CheckIns {
		if r.CheckIns[i].Checkpoint == name {
			return &r.CheckIns[i]
		}
	}
	return nil
}
