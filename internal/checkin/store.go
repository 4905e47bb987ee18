package checkin

import (
	"context"

	"github.com/google/uuid"

	"github.com/gatepass/backend/internal/models"
)

// Store is the persistence port the coordinator drives. Implementations
// must make AppendCheckpoint atomic with respect to concurrent scans and
// concurrent approval decisions on the same registration: the
// (registration, checkpoint) pair is unique, and the status transition to
// checked_in happens in the same critical section as the insert.
type Store interface {
	// GetRegistration loads a registration with its checkpoint history.
	// Returns ErrRegistrationNotFound if no row exists.
	GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error)

	// GetEvent loads the owning event (checkpoint set included).
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)

	// AppendCheckpoint records a scan. If the pair already exists it
	// returns the existing record with inserted=false and mutates nothing.
	// On the first insert for an approved registration it transitions
	// status to checked_in. Returns ErrRegistrationNotApproved if the
	// registration is no longer in a scannable state by the time the
	// critical section is entered.
	AppendCheckpoint(ctx context.Context, registrationID uuid.UUID, checkpoint string, actorID uuid.UUID) (rec models.CheckpointCheckIn, inserted bool, err error)
}
