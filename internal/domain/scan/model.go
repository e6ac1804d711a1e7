// Package scan implements the imaging intake pipeline: upload and
// artifact capture, model inference, triage classification and the
// doctor review workflow.
package scan

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound        = errors.New("scan not found")
	ErrInvalidModality = errors.New("invalid scan modality")
	ErrEmptyImage      = errors.New("scan image is empty")
)

// Status is the scan lifecycle state.
//
//	pending    awaiting analysis (initial, or inference failed)
//	processing inference in flight; transient, never persisted past intake
//	completed  analysis produced a result, or a doctor signed off
//	rejected   the model could not produce a usable result
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Priority is the review queue band derived from the triage score.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// Rank orders priorities for sorting; higher means more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 3
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 1
	default:
		return 0
	}
}

// Supported imaging modalities.
const (
	ModalityBrain = "brain"
	ModalityLung  = "lung"
	ModalitySkin  = "skin"
	ModalityECG   = "ecg"
)

func ValidModality(m string) bool {
	switch m {
	case ModalityBrain, ModalityLung, ModalitySkin, ModalityECG:
		return true
	}
	return false
}

type Scan struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patientId"`
	DoctorID         *uuid.UUID `json:"doctorId,omitempty"`
	ImageURL         string     `json:"imageUrl"`
	HeatmapURL       *string    `json:"heatmapUrl,omitempty"`
	Modality         string     `json:"modality"`
	Symptoms         *string    `json:"symptoms,omitempty"`
	OriginalFilename *string    `json:"originalFilename,omitempty"`
	Status           Status     `json:"status"`
	Priority         Priority   `json:"priority"`
	AIDiagnosis      *string    `json:"aiDiagnosis,omitempty"`
	AIConfidence     *float64   `json:"aiConfidence,omitempty"`
	AIUncertainty    *float64   `json:"aiUncertainty,omitempty"`
	TriageScore      *int       `json:"triageScore,omitempty"`
	ExpertUsed       *string    `json:"expertUsed,omitempty"`
	DoctorNotes      *string    `json:"doctorNotes,omitempty"`
	UploadedAt       time.Time  `json:"uploadedAt"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
}

// TransitionPatch is a partial update applied atomically to a scan.
// Nil fields are left untouched.
type TransitionPatch struct {
	Status        *Status
	Priority      *Priority
	DoctorID      *uuid.UUID
	DoctorNotes   *string
	AIDiagnosis   *string
	AIConfidence  *float64
	AIUncertainty *float64
	TriageScore   *int
	HeatmapURL    *string
	ExpertUsed    *string

	// ByReviewer marks transitions that originate from a doctor's
	// action (finalize, re-run). These stamp reviewed_at.
	ByReviewer bool
}

// StampsReview reports whether applying the patch records a review
// timestamp. Any doctor attribution implies a review even when
// ByReviewer was not set explicitly.
func (p *TransitionPatch) StampsReview() bool {
	return p.ByReviewer || p.DoctorID != nil || p.DoctorNotes != nil
}
