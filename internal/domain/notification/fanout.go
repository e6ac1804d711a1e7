package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/domain/scan"
)

// RecipientResolver supplies the doctor pool that reviews incoming
// scans.
type RecipientResolver interface {
	DoctorIDs(ctx context.Context) ([]uuid.UUID, error)
}

// Fanout writes in-app notifications for scan lifecycle events. All
// methods are best-effort: storage failures are logged and swallowed
// so a notification problem can never fail the pipeline that
// triggered it.
type Fanout struct {
	repo     Repository
	resolver RecipientResolver
	logger   zerolog.Logger
}

func NewFanout(repo Repository, resolver RecipientResolver, logger zerolog.Logger) *Fanout {
	return &Fanout{
		repo:     repo,
		resolver: resolver,
		logger:   logger.With().Str("component", "notification").Logger(),
	}
}

// ScanAnalyzed notifies the scan's patient of the result and tells
// every doctor a new scan is waiting for review.
func (f *Fanout) ScanAnalyzed(ctx context.Context, s *scan.Scan) {
	f.notifyPatient(ctx, s)
	f.notifyDoctors(ctx, s)
}

func (f *Fanout) notifyPatient(ctx context.Context, s *scan.Scan) {
	link := fmt.Sprintf("/patient/scans/%s", s.ID)
	n := &Notification{
		UserID: s.PatientID,
		Link:   &link,
	}
	switch s.Status {
	case scan.StatusRejected:
		n.Type = TypeScanFlagged
		n.Message = fmt.Sprintf("Your %s scan could not be analyzed automatically and has been flagged for manual review.", s.Modality)
	default:
		n.Type = TypeScanReady
		diagnosis := "analysis complete"
		if s.AIDiagnosis != nil {
			diagnosis = *s.AIDiagnosis
		}
		n.Message = fmt.Sprintf("Your %s scan analysis is ready: %s", s.Modality, diagnosis)
	}
	if err := f.repo.Create(ctx, n); err != nil {
		f.logger.Error().Err(err).Str("scan_id", s.ID.String()).Msg("patient notification failed")
	}
}

func (f *Fanout) notifyDoctors(ctx context.Context, s *scan.Scan) {
	doctors, err := f.resolver.DoctorIDs(ctx)
	if err != nil {
		f.logger.Error().Err(err).Str("scan_id", s.ID.String()).Msg("resolving doctor pool failed")
		return
	}
	link := fmt.Sprintf("/doctor/scans/%s", s.ID)
	message := fmt.Sprintf("New %s scan awaiting review. Priority: %s.", s.Modality, s.Priority)
	for _, id := range doctors {
		n := &Notification{
			UserID:  id,
			Type:    TypeNewScan,
			Message: message,
			Link:    &link,
		}
		if err := f.repo.Create(ctx, n); err != nil {
			f.logger.Error().Err(err).
				Str("scan_id", s.ID.String()).
				Str("doctor_id", id.String()).
				Msg("doctor notification failed")
		}
	}
}

// DoctorPool resolves doctor recipients from the identity directory.
type DoctorPool struct {
	Users *identity.Service
}

func (p *DoctorPool) DoctorIDs(ctx context.Context) ([]uuid.UUID, error) {
	doctors, err := p.Users.ListByRole(ctx, identity.RoleDoctor)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
	}
	return ids, nil
}
