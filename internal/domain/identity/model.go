// Package identity holds the minimal user directory the scan pipeline
// depends on: who submitted a scan, which patients scans belong to,
// and which doctors get notified when results land. Account lifecycle
// (registration, credentials, password reset) lives in an upstream
// identity provider and is out of scope here.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
	RoleAdmin   = "admin"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsPatient reports whether the user can own scans.
func (u *User) IsPatient() bool { return u.Role == RolePatient }
