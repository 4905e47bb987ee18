package models

import (
	"time"

	"github.com/google/uuid"
)

// Role controls what a user may do on the platform.
type Role string

const (
	// RoleAdmin has full access, including approvals and event management.
	RoleAdmin Role = "admin"
	// RoleOrganizer manages events and approves/rejects registrations.
	RoleOrganizer Role = "organizer"
	// RoleVolunteer scans participant tokens at checkpoints.
	RoleVolunteer Role = "volunteer"
	// RoleParticipant registers for events.
	RoleParticipant Role = "participant"
)

// User is a platform account.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"` // bcrypt hash
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is the user shape returned by the API (no password hash).
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic strips credentials from a user.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
