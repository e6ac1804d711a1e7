package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vaidyavision/vaidya/internal/domain/identity"
	"github.com/vaidyavision/vaidya/internal/platform/artifact"
	"github.com/vaidyavision/vaidya/internal/platform/inference"
)

// UserDirectory resolves scan owners. Implemented by identity.Service.
type UserDirectory interface {
	GetPatient(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// Notifier fans out result notifications after intake classifies a
// scan. Implementations must be best-effort: a notification failure
// never affects the submission itself.
type Notifier interface {
	ScanAnalyzed(ctx context.Context, s *Scan)
}

type Service struct {
	repo      Repository
	artifacts artifact.Store
	ml        inference.Client
	users     UserDirectory
	notifier  Notifier
	logger    zerolog.Logger
}

func NewService(repo Repository, artifacts artifact.Store, ml inference.Client, users UserDirectory, notifier Notifier, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		artifacts: artifacts,
		ml:        ml,
		users:     users,
		notifier:  notifier,
		logger:    logger.With().Str("component", "scan").Logger(),
	}
}

type SubmitInput struct {
	SubmitterID       uuid.UUID
	SubmitterIsDoctor bool
	// TargetPatientID reassigns ownership of the scan. Honored only
	// for doctors; other submitters always own their own scans.
	TargetPatientID *uuid.UUID

	Image    []byte
	Filename string
	Modality string
	Symptoms string
}

type SubmitResult struct {
	ScanID   uuid.UUID `json:"scanId"`
	Status   Status    `json:"status"`
	ImageURL string    `json:"imageUrl"`
}

// Submit runs the full intake pipeline: persist the image, create the
// scan record, call the model and classify the outcome. An unreachable
// model is not an error for the caller; the scan is parked pending and
// can be re-run later.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	if !ValidModality(in.Modality) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModality, in.Modality)
	}
	if len(in.Image) == 0 {
		return nil, ErrEmptyImage
	}

	patientID := in.SubmitterID
	if in.SubmitterIsDoctor && in.TargetPatientID != nil {
		patient, err := s.users.GetPatient(ctx, *in.TargetPatientID)
		if err != nil {
			return nil, fmt.Errorf("resolving target patient: %w", err)
		}
		patientID = patient.ID
	}

	imageURL, err := s.artifacts.Put(ctx, in.Image, fileExt(in.Filename))
	if err != nil {
		return nil, fmt.Errorf("storing scan image: %w", err)
	}

	sc := &Scan{
		PatientID: patientID,
		ImageURL:  imageURL,
		Modality:  in.Modality,
		Status:    StatusProcessing,
		Priority:  PriorityMedium,
	}
	if in.Symptoms != "" {
		sc.Symptoms = &in.Symptoms
	}
	if in.Filename != "" {
		name := in.Filename
		sc.OriginalFilename = &name
	}
	if err := s.repo.Create(ctx, sc); err != nil {
		return nil, fmt.Errorf("creating scan record: %w", err)
	}

	log := s.logger.With().Str("scan_id", sc.ID.String()).Str("modality", in.Modality).Logger()

	pred, err := s.ml.Predict(ctx, in.Image, in.Modality)
	if err != nil {
		log.Warn().Err(err).Msg("inference unavailable, scan parked pending")
		pending := StatusPending
		if terr := s.repo.ApplyTransition(ctx, sc.ID, &TransitionPatch{Status: &pending}); terr != nil {
			return nil, fmt.Errorf("reverting scan to pending: %w", terr)
		}
		return &SubmitResult{ScanID: sc.ID, Status: StatusPending, ImageURL: imageURL}, nil
	}

	patch := patchFromPrediction(pred)
	if err := s.repo.ApplyTransition(ctx, sc.ID, patch); err != nil {
		return nil, fmt.Errorf("recording analysis result: %w", err)
	}
	log.Info().Str("status", string(*patch.Status)).Msg("scan analyzed")

	updated, err := s.repo.GetByID(ctx, sc.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.ScanAnalyzed(ctx, updated)
	}
	return &SubmitResult{ScanID: sc.ID, Status: updated.Status, ImageURL: imageURL}, nil
}

// Rerun repeats inference for an existing scan using its stored image.
// When the model is unreachable the scan's previous analysis fields
// are left untouched and the error is surfaced to the caller.
func (s *Service) Rerun(ctx context.Context, scanID uuid.UUID) (*Scan, error) {
	sc, err := s.repo.GetByID(ctx, scanID)
	if err != nil {
		return nil, err
	}

	image, err := s.artifacts.Get(ctx, sc.ImageURL)
	if err != nil {
		return nil, fmt.Errorf("loading scan image: %w", err)
	}

	pred, err := s.ml.Predict(ctx, image, sc.Modality)
	if err != nil {
		return nil, fmt.Errorf("re-running analysis for scan %s: %w", scanID, err)
	}

	patch := patchFromPrediction(pred)
	patch.ByReviewer = true
	if err := s.repo.ApplyTransition(ctx, scanID, patch); err != nil {
		return nil, fmt.Errorf("recording analysis result: %w", err)
	}
	s.logger.Info().Str("scan_id", scanID.String()).Str("status", string(*patch.Status)).Msg("scan re-analyzed")
	return s.repo.GetByID(ctx, scanID)
}

// Finalize records a doctor's sign-off: attribution, notes and a
// forced completed status.
func (s *Service) Finalize(ctx context.Context, scanID, doctorID uuid.UUID, notes string) (*Scan, error) {
	if _, err := s.repo.GetByID(ctx, scanID); err != nil {
		return nil, err
	}
	completed := StatusCompleted
	patch := &TransitionPatch{
		Status:     &completed,
		DoctorID:   &doctorID,
		ByReviewer: true,
	}
	if notes != "" {
		patch.DoctorNotes = &notes
	}
	if err := s.repo.ApplyTransition(ctx, scanID, patch); err != nil {
		return nil, err
	}
	s.logger.Info().Str("scan_id", scanID.String()).Str("doctor_id", doctorID.String()).Msg("scan finalized")
	return s.repo.GetByID(ctx, scanID)
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Scan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scan, int, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// IsRecoverable reports whether a Submit or Rerun error was caused by
// the model service being unreachable rather than by bad input.
func IsRecoverable(err error) bool {
	return errors.Is(err, inference.ErrUnavailable)
}

func patchFromPrediction(pred *inference.Prediction) *TransitionPatch {
	out := Evaluate(pred)

	status := out.Status
	patch := &TransitionPatch{
		Status:        &status,
		AIConfidence:  pred.Confidence,
		AIUncertainty: pred.Uncertainty,
		TriageScore:   pred.TriageScore,
		HeatmapURL:    pred.HeatmapURL,
		ExpertUsed:    pred.Modality,
	}
	diagnosis := out.Diagnosis
	patch.AIDiagnosis = &diagnosis
	if out.HasPriority {
		priority := out.Priority
		patch.Priority = &priority
	}
	return patch
}

func fileExt(filename string) string {
	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	if ext == "" {
		return "png"
	}
	return ext
}
