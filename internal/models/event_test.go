package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventCheckpointMembership(t *testing.T) {
	event := &Event{
		Checkpoints:         []string{"Registration", "Lunch", "Workshop A"},
		UnlockedCheckpoints: []string{"Registration"},
	}

	assert.True(t, event.HasCheckpoint("Registration"))
	assert.True(t, event.HasCheckpoint("Workshop A"))
	assert.False(t, event.HasCheckpoint("Dinner"))
	assert.False(t, event.HasCheckpoint("registration"), "names are case sensitive")

	assert.True(t, event.IsUnlocked("Registration"))
	assert.False(t, event.IsUnlocked("Lunch"))

	empty := &Event{}
	assert.False(t, empty.HasCheckpoint("Registration"))
	assert.False(t, empty.IsUnlocked("Registration"))
}
