// Package notification stores in-app notifications and fans out scan
// result events to the patient and the doctor pool.
package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

// Notification kinds.
const (
	TypeScanReady   = "scan_ready"
	TypeScanFlagged = "scan_flagged"
	TypeNewScan     = "new_scan"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Link      *string   `json:"link,omitempty"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
}
