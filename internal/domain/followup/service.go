package followup

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/domain/scan"
	"github.com/vaidyavision/vaidya/internal/platform/delivery"
)

// ScanDirectory resolves the scan a follow-up is attached to.
// Implemented by scan.Service.
type ScanDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*scan.Scan, error)
}

// UserDirectory resolves patient contact details at delivery time.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

type Service struct {
	repo     Repository
	scans    ScanDirectory
	users    UserDirectory
	channels delivery.Registry
	baseURL  string
	logger   zerolog.Logger
}

func NewService(repo Repository, scans ScanDirectory, users UserDirectory, channels delivery.Registry, baseURL string, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		scans:    scans,
		users:    users,
		channels: channels,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "followup").Logger(),
	}
}

const maxDueBatch = 200

type ScheduleInput struct {
	ScanID uuid.UUID `json:"scanId"`
	Days   int       `json:"days"`
	Type   string    `json:"type"`
}

// Schedule records a reminder due the given number of days from now,
// owned by the scan's patient.
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (*FollowUp, error) {
	if in.Days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrInvalidInput)
	}
	switch in.Type {
	case TypeMessage, TypeEmail, TypeCall:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidInput, in.Type)
	}

	sc, err := s.scans.GetByID(ctx, in.ScanID)
	if err != nil {
		return nil, fmt.Errorf("resolving scan: %w", err)
	}

	f := &FollowUp{
		ScanID:       sc.ID,
		PatientID:    sc.PatientID,
		Type:         in.Type,
		Status:       StatusPending,
		ScheduledFor: time.Now().AddDate(0, 0, in.Days),
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, fmt.Errorf("creating follow-up: %w", err)
	}
	s.logger.Info().
		Str("followup_id", f.ID.String()).
		Str("scan_id", sc.ID.String()).
		Str("type", in.Type).
		Time("scheduled_for", f.ScheduledFor).
		Msg("follow-up scheduled")
	return f, nil
}

// Cancel withdraws a reminder that has not been delivered yet.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	claimed, err := s.repo.ClaimTransition(ctx, id, StatusPending, StatusCancelled)
	if err != nil {
		return err
	}
	if !claimed {
		return ErrNotPending
	}
	s.logger.Info().Str("followup_id", id.String()).Msg("follow-up cancelled")
	return nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*FollowUp, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByScan(ctx context.Context, scanID uuid.UUID) ([]*FollowUp, error) {
	return s.repo.ListByScan(ctx, scanID)
}

// DuePassResult summarizes one delivery sweep. ProcessedIDs holds the
// reminders delivered during this pass; FailedIDs the ones that were
// claimed but whose channel reported an error.
type DuePassResult struct {
	ProcessedCount int         `json:"processedCount"`
	ProcessedIDs   []uuid.UUID `json:"processedIds"`
	FailedIDs      []uuid.UUID `json:"failedIds,omitempty"`
}

// RunDuePass delivers every due pending reminder once. Each record is
// claimed with a conditional status update before its channel is
// invoked, so concurrent sweeps never double-deliver. Reminders on an
// unconfigured channel are left pending for a later pass.
func (s *Service) RunDuePass(ctx context.Context, now time.Time) (*DuePassResult, error) {
	due, err := s.repo.ListDue(ctx, now, maxDueBatch)
	if err != nil {
		return nil, fmt.Errorf("listing due follow-ups: %w", err)
	}

	result := &DuePassResult{ProcessedIDs: []uuid.UUID{}}
	for _, f := range due {
		log := s.logger.With().
			Str("followup_id", f.ID.String()).
			Str("type", f.Type).
			Logger()

		deliverer, ok := s.channels.Lookup(f.Type)
		if !ok {
			log.Debug().Msg("no deliverer for channel, leaving pending")
			continue
		}

		claimed, err := s.repo.ClaimTransition(ctx, f.ID, StatusPending, StatusSent)
		if err != nil {
			return nil, fmt.Errorf("claiming follow-up %s: %w", f.ID, err)
		}
		if !claimed {
			continue
		}

		if err := s.deliver(ctx, f, deliverer); err != nil {
			log.Error().Err(err).Msg("follow-up delivery failed")
			if _, ferr := s.repo.ClaimTransition(ctx, f.ID, StatusSent, StatusFailed); ferr != nil {
				return nil, fmt.Errorf("marking follow-up %s failed: %w", f.ID, ferr)
			}
			result.FailedIDs = append(result.FailedIDs, f.ID)
			continue
		}

		log.Info().Msg("follow-up delivered")
		result.ProcessedIDs = append(result.ProcessedIDs, f.ID)
	}
	result.ProcessedCount = len(result.ProcessedIDs)
	return result, nil
}

func (s *Service) deliver(ctx context.Context, f *FollowUp, deliverer delivery.Deliverer) error {
	patient, err := s.users.GetByID(ctx, f.PatientID)
	if err != nil {
		return fmt.Errorf("resolving patient %s: %w", f.PatientID, err)
	}
	req := delivery.Request{
		ScanID:      f.ScanID.String(),
		PatientName: patient.Name,
		PortalURL:   fmt.Sprintf("%s/patient/scans/%s", s.baseURL, f.ScanID),
	}
	if patient.Email != nil {
		req.PatientEmail = *patient.Email
	}
	if patient.Phone != nil {
		req.PatientPhone = *patient.Phone
	}
	return deliverer.Deliver(ctx, req)
}
