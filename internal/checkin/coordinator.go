package checkin

import (
	"context"

	"github.com/google/uuid"

	"github.com/gatepass/backend/internal/models"
)

// Result is the outcome of a successful check-in: the updated registration
// snapshot, the checkpoint record, and whether the scan was an idempotent
// re-scan of an already recorded checkpoint.
type Result struct {
	Registration    *models.Registration     `json:"registration"`
	Record          models.CheckpointCheckIn `json:"record"`
	AlreadyRecorded bool                     `json:"already_recorded"`
}

// Coordinator turns a scanned token into a durable checkpoint record.
// It is the only writer of checkpoint history. It performs no logging of
// allow/deny decisions; callers own user-visible feedback.
type Coordinator struct {
	codec *TokenCodec
	store Store
}

// NewCoordinator creates a check-in coordinator.
func NewCoordinator(codec *TokenCodec, store Store) *Coordinator {
	return &Coordinator{codec: codec, store: store}
}

// CheckIn verifies the token, validates registration state and checkpoint
// membership, and appends the scan record. Re-scans of an already recorded
// checkpoint succeed without mutation. Checkpoint order is deliberately
// not enforced; neither is the organizer-facing unlocked set, which the
// scanning surface gates before calling here.
func (co *Coordinator) CheckIn(ctx context.Context, token, checkpoint string, actorID uuid.UUID) (*Result, error) {
	claims, err := co.codec.Verify(token)
	if err != nil {
		return nil, err
	}

	reg, err := co.store.GetRegistration(ctx, claims.RegistrationID)
	if err != nil {
		return nil, err
	}
	if !reg.Status.CanCheckIn() {
		return nil, ErrRegistrationNotApproved
	}

	event, err := co.store.GetEvent(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !event.HasCheckpoint(checkpoint) {
		return nil, ErrCheckpointNotRecognized
	}

	rec, inserted, err := co.store.AppendCheckpoint(ctx, reg.ID, checkpoint, actorID)
	if err != nil {
		return nil, err
	}

	// Reload so the caller sees the full history and any status flip.
	snapshot, err := co.store.GetRegistration(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Registration: snapshot, Record: rec, AlreadyRecorded: !inserted}, nil
}
