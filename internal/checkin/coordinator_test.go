package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatepass/backend/internal/models"
)

type fixture struct {
	codec       *TokenCodec
	store       *MemoryStore
	coordinator *Coordinator
	event       *models.Event
	volunteer   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec := NewTokenCodec("test-signing-key", time.Hour)
	store := NewMemoryStore()
	event := &models.Event{
		ID:                  uuid.New(),
		Title:               "DevConf 2026",
		Checkpoints:         []string{"Registration", "Lunch", "Workshop A"},
		UnlockedCheckpoints: []string{"Registration"},
	}
	store.PutEvent(event)
	return &fixture{
		codec:       codec,
		store:       store,
		coordinator: NewCoordinator(codec, store),
		event:       event,
		volunteer:   uuid.New(),
	}
}

// seed creates a registration in the given status and returns it with its
// check-in token.
func (f *fixture) seed(t *testing.T, status models.Status) (*models.Registration, string) {
	t.Helper()
	secret, err := NewRegistrationSecret()
	require.NoError(t, err)

	reg := &models.Registration{
		ID:          uuid.New(),
		EventID:     f.event.ID,
		UserID:      uuid.New(),
		Status:      status,
		TokenSecret: secret,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	token, err := f.codec.Issue(reg.ID, reg.EventID, secret)
	require.NoError(t, err)
	reg.Token = token
	f.store.PutRegistration(reg)
	return reg, token
}

func TestCheckInApprovedRegistration(t *testing.T) {
	f := newFixture(t)
	reg, token := f.seed(t, models.StatusApproved)

	res, err := f.coordinator.CheckIn(context.Background(), token, "Registration", f.volunteer)
	require.NoError(t, err)

	assert.False(t, res.AlreadyRecorded)
	assert.Equal(t, models.StatusCheckedIn, res.Registration.Status)
	require.Len(t, res.Registration.CheckIns, 1)
	assert.Equal(t, "Registration", res.Record.Checkpoint)
	assert.Equal(t, reg.ID, res.Record.RegistrationID)
	assert.Equal(t, f.volunteer, res.Record.ActorID)
}

func TestCheckInRescanIsIdempotent(t *testing.T) {
	f := newFixture(t)
	_, token := f.seed(t, models.StatusApproved)
	ctx := context.Background()

	first, err := f.coordinator.CheckIn(ctx, token, "Registration", f.volunteer)
	require.NoError(t, err)
	require.False(t, first.AlreadyRecorded)

	// Second scan by a different volunteer at the same checkpoint.
	second, err := f.coordinator.CheckIn(ctx, token, "Registration", uuid.New())
	require.NoError(t, err)

	assert.True(t, second.AlreadyRecorded)
	assert.Equal(t, first.Record.ID, second.Record.ID)
	assert.Equal(t, f.volunteer, second.Record.ActorID, "original record is kept verbatim")
	assert.Len(t, second.Registration.CheckIns, 1)
	assert.Equal(t, models.StatusCheckedIn, second.Registration.Status)
}

func TestCheckInAccumulatesHistory(t *testing.T) {
	f := newFixture(t)
	_, token := f.seed(t, models.StatusApproved)
	ctx := context.Background()

	_, err := f.coordinator.CheckIn(ctx, token, "Registration", f.volunteer)
	require.NoError(t, err)
	res, err := f.coordinator.CheckIn(ctx, token, "Lunch", f.volunteer)
	require.NoError(t, err)

	require.Len(t, res.Registration.CheckIns, 2)
	assert.Equal(t, "Registration", res.Registration.CheckIns[0].Checkpoint)
	assert.Equal(t, "Lunch", res.Registration.CheckIns[1].Checkpoint)
	assert.Equal(t, models.StatusCheckedIn, res.Registration.Status)
}

func TestCheckInDoesNotEnforceCheckpointOrder(t *testing.T) {
	f := newFixture(t)
	_, token := f.seed(t, models.StatusApproved)

	// "Lunch" before "Registration" is allowed; checkpoints have no
	// sequencing semantics.
	res, err := f.coordinator.CheckIn(context.Background(), token, "Lunch", f.volunteer)
	require.NoError(t, err)
	assert.Equal(t, "Lunch", res.Record.Checkpoint)
	assert.Equal(t, models.StatusCheckedIn, res.Registration.Status)
}

func TestCheckInPendingRegistration(t *testing.T) {
	f := newFixture(t)
	reg, token := f.seed(t, models.StatusPending)

	_, err := f.coordinator.CheckIn(context.Background(), token, "Registration", f.volunteer)
	require.ErrorIs(t, err, ErrRegistrationNotApproved)

	// No record and no status change.
	after, err := f.store.GetRegistration(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, after.Status)
	assert.Empty(t, after.CheckIns)
}

func TestCheckInRejectedRegistration(t *testing.T) {
	f := newFixture(t)
	reg, token := f.seed(t, models.StatusRejected)

	_, err := f.coordinator.CheckIn(context.Background(), token, "Registration", f.volunteer)
	require.ErrorIs(t, err, ErrRegistrationNotApproved)

	after, err := f.store.GetRegistration(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, after.Status)
	assert.Empty(t, after.CheckIns)
}

func TestCheckInUnknownRegistration(t *testing.T) {
	f := newFixture(t)

	// Valid token whose registration was never stored.
	secret, err := NewRegistrationSecret()
	require.NoError(t, err)
	token, err := f.codec.Issue(uuid.New(), f.event.ID, secret)
	require.NoError(t, err)

	_, err = f.coordinator.CheckIn(context.Background(), token, "Registration", f.volunteer)
	require.ErrorIs(t, err, ErrRegistrationNotFound)
}

func TestCheckInUnknownCheckpoint(t *testing.T) {
	f := newFixture(t)
	_, token := f.seed(t, models.StatusApproved)

	_, err := f.coordinator.CheckIn(context.Background(), token, "Dinner", f.volunteer)
	require.ErrorIs(t, err, ErrCheckpointNotRecognized)
}

func TestCheckInInvalidToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.coordinator.CheckIn(context.Background(), "garbage", "Registration", f.volunteer)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckInConcurrentScansRecordOnce(t *testing.T) {
	f := newFixture(t)
	reg, token := f.seed(t, models.StatusApproved)
	ctx := context.Background()

	const scanners = 32
	var wg sync.WaitGroup
	results := make([]*Result, scanners)
	errs := make([]error, scanners)

	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.coordinator.CheckIn(ctx, token, "Registration", uuid.New())
		}(i)
	}
	wg.Wait()

	inserted := 0
	for i := 0; i < scanners; i++ {
		require.NoError(t, errs[i])
		if !results[i].AlreadyRecorded {
			inserted++
		}
	}
	assert.Equal(t, 1, inserted, "exactly one scan wins the insert")

	after, err := f.store.GetRegistration(ctx, reg.ID)
	require.NoError(t, err)
	assert.Len(t, after.CheckIns, 1)
	assert.Equal(t, models.StatusCheckedIn, after.Status)
}
