package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// FormFieldConfig is one field in the participant registration form (organizer-defined).
type FormFieldConfig struct {
	ID       string `json:"id"`    // key for storing the response, e.g. "tshirt_size"
	Label    string `json:"label"` // display label, e.g. "T-shirt size"
	Type     string `json:"type"`  // "text", "email", "number", "textarea", "select"
	Required bool   `json:"required"`
}

// Event is a physical event participants register for. Checkpoints is the
// ordered list of scan points defined for the event; the first entry is the
// mandatory entry checkpoint. UnlockedCheckpoints is the subset currently
// open for scanning, toggled by organizers independently of sequence.
type Event struct {
	ID                  uuid.UUID       `json:"id"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	StartsAt            time.Time       `json:"starts_at"`
	EndsAt              *time.Time      `json:"ends_at,omitempty"`
	CreatedBy           uuid.UUID       `json:"created_by"`
	Checkpoints         []string        `json:"checkpoints"`
	UnlockedCheckpoints []string        `json:"unlocked_checkpoints"`
	RegistrationForm    json.RawMessage `json:"registration_form,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// HasCheckpoint reports whether name is one of the event's defined checkpoints.
func (e *Event) HasCheckpoint(name string) bool {
	for _, cp := range e.Checkpoints {
		if cp == name {
			return true
		}
	}
	return false
}

// IsUnlocked reports whether name is currently open for scanning. This is a
// soft, organizer-facing gate enforced by the scanning surface; the check-in
// coordinator validates only membership in Checkpoints.
func (e *Event) IsUnlocked(name string) bool {
	for _, cp := range e.UnlockedCheckpoints {
		if cp == name {
			return true
		}
	}
	return false
}
