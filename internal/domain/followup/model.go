// Package followup schedules deferred patient reminders tied to a
// scan and delivers the ones that have come due.
package followup

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("follow-up not found")
	ErrNotPending   = errors.New("follow-up is no longer pending")
	ErrInvalidInput = errors.New("invalid follow-up request")
)

// Status is the follow-up lifecycle state. Every state except pending
// is terminal; a record leaves pending at most once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Channel tags for reminder delivery. Which tags are actually
// deliverable depends on the configured registry; records with an
// unregistered tag stay pending.
const (
	TypeMessage = "message"
	TypeEmail   = "email"
	TypeCall    = "call"
)

type FollowUp struct {
	ID           uuid.UUID `json:"id"`
	ScanID       uuid.UUID `json:"scanId"`
	PatientID    uuid.UUID `json:"patientId"`
	Type         string    `json:"type"`
	Status       Status    `json:"status"`
	ScheduledFor time.Time `json:"scheduledFor"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Due reports whether the reminder should be delivered at now.
func (f *FollowUp) Due(now time.Time) bool {
	return f.Status == StatusPending && !f.ScheduledFor.After(now)
}
