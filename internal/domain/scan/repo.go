package scan

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	PatientID uuid.UUID
	Status    Status
	Priority  Priority
}

type Repository interface {
	Create(ctx context.Context, s *Scan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scan, error)
	// ApplyTransition applies the patch atomically and stamps
	// reviewed_at when the patch originates from a reviewer.
	ApplyTransition(ctx context.Context, id uuid.UUID, patch *TransitionPatch) error
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scan, int, error)
}
