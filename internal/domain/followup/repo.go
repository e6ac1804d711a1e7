package followup

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *FollowUp) error
	GetByID(ctx context.Context, id uuid.UUID) (*FollowUp, error)
	ListByScan(ctx context.Context, scanID uuid.UUID) ([]*FollowUp, error)
	// ListDue returns pending follow-ups whose scheduled time is at or
	// before now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*FollowUp, error)
	// ClaimTransition moves id from one status to another only when it
	// still holds the expected status. The bool result reports whether
	// this caller won the claim.
	ClaimTransition(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
}
