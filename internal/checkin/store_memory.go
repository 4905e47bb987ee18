package checkin

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass/backend/internal/models"
)

// MemoryStore is an in-memory Store with the same conditional-append
// semantics as PostgresStore: one mutex is the critical section that the
// row lock plus unique index provide in Postgres. Used by unit tests and
// as a non-durable dev fallback.
type MemoryStore struct {
	mu            sync.Mutex
	events        map[uuid.UUID]*models.Event
	registrations map[uuid.UUID]*models.Registration
	now           func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:        make(map[uuid.UUID]*models.Event),
		registrations: make(map[uuid.UUID]*models.Registration),
		now:           time.Now,
	}
}

// PutEvent stores or replaces an event.
func (s *MemoryStore) PutEvent(e *models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.ID] = e
}

// PutRegistration stores or replaces a registration.
func (s *MemoryStore) PutRegistration(r *models.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registrations[r.ID] = r
}

// GetRegistration returns a copy of the registration so callers never
// observe concurrent mutation.
func (s *MemoryStore) GetRegistration(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.registrations[id]
	if !ok {
		return nil, ErrRegistrationNotFound
	}
	return cloneRegistration(reg), nil
}

// GetEvent returns the stored event.
func (s *MemoryStore) GetEvent(_ context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("load event: %s not found", id)
	}
	cp := *e
	return &cp, nil
}

// AppendCheckpoint records a scan under the store mutex, mirroring the
// Postgres transaction: status re-checked inside the critical section,
// duplicate pairs return the existing record, first insert flips status.
func (s *MemoryStore) AppendCheckpoint(_ context.Context, registrationID uuid.UUID, checkpoint string, actorID uuid.UUID) (models.CheckpointCheckIn, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[registrationID]
	if !ok {
		return models.CheckpointCheckIn{}, false, ErrRegistrationNotFound
	}
	if !reg.Status.CanCheckIn() {
		return models.CheckpointCheckIn{}, false, ErrRegistrationNotApproved
	}
	if existing := reg.CheckpointRecord(checkpoint); existing != nil {
		return *existing, false, nil
	}

	rec := models.CheckpointCheckIn{
		ID:             uuid.New(),
		RegistrationID: registrationID,
		Checkpoint:     checkpoint,
		ActorID:        actorID,
		CreatedAt:      s.now(),
	}
	reg.CheckIns = append(reg.CheckIns, rec)
	if reg.Status == models.StatusApproved {
		reg.Status = models.StatusCheckedIn
	}
	reg.UpdatedAt = rec.CreatedAt
	return rec, true, nil
}

func cloneRegistration(r *models.Registration) *models.Registration {
	cp := *r
	cp.CheckIns = append([]models.CheckpointCheckIn(nil), r.CheckIns...)
	return &cp
}
