package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the user directory consumed by the scan and follow-up
// pipelines.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "identity").Logger()}
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPatient resolves id and verifies the user can own scans.
func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.IsPatient() {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return u, nil
}

func (s *Service) ListByRole(ctx context.Context, role string) ([]*User, error) {
	return s.repo.ListByRole(ctx, role)
}

// Register creates a directory entry. Used by seeding and by the
// admin bootstrap path, not by end users.
func (s *Service) Register(ctx context.Context, u *User) error {
	switch u.Role {
	case RolePatient, RoleDoctor, RoleAdmin:
	default:
		return fmt.Errorf("invalid role %q", u.Role)
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", u.ID.String()).Str("role", u.Role).Msg("user registered")
	return nil
}
