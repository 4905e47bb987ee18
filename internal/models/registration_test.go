package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		status     Status
		valid      bool
		canDecide  bool
		canCheckIn bool
	}{
		{StatusPending, true, true, false},
		{StatusApproved, true, false, true},
		{StatusRejected, true, false, false},
		{StatusCheckedIn, true, false, true},
		{Status("cancelled"), false, false, false},
		{Status(""), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.canDecide, tt.status.CanDecide())
			assert.Equal(t, tt.canCheckIn, tt.status.CanCheckIn())
		})
	}
}

func TestCheckpointRecord(t *testing.T) {
	reg := &Registration{
		ID:     uuid.New(),
		Status: StatusCheckedIn,
		CheckIns: []CheckpointCheckIn{
			{ID: uuid.New(), Checkpoint: "Registration", CreatedAt: time.Now()},
			{ID: uuid.New(), Checkpoint: "Lunch", CreatedAt: time.Now()},
		},
	}

	rec := reg.CheckpointRecord("Lunch")
	assert.NotNil(t, rec)
	assert.Equal(t, reg.CheckIns[1].ID, rec.ID)

	assert.Nil(t, reg.CheckpointRecord("Workshop A"))
	assert.Nil(t, (&Registration{}).CheckpointRecord("Registration"))
}
