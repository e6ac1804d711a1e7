package scan

import (
	"github.com/vaidyavision/vaidya/internal/platform/inference"
)

// UncertaintyGate is the epistemic uncertainty above which a
// prediction is not trusted and the scan is routed to manual review.
const UncertaintyGate = 0.3

// Triage score bands. Scores are clamped to [0, 100] upstream.
const (
	scoreCritical = 80
	scoreHigh     = 60
	scoreMedium   = 40
)

// Outcome is the classification derived from a model prediction.
// HasPriority is false when the prediction carried no triage score;
// the scan then keeps whatever priority it already had.
type Outcome struct {
	Status      Status
	Priority    Priority
	HasPriority bool
	Diagnosis   string
}

// PriorityForScore maps a triage score to its review band.
func PriorityForScore(score int) Priority {
	switch {
	case score >= scoreCritical:
		return PriorityCritical
	case score >= scoreHigh:
		return PriorityHigh
	case score >= scoreMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Evaluate classifies a model prediction. Predictions with uncertainty
// above the gate are rejected regardless of confidence; a prediction
// without a triage score leaves the scan pending rather than completed.
func Evaluate(p *inference.Prediction) Outcome {
	if p.Status == inference.StatusRejected || (p.Uncertainty != nil && *p.Uncertainty > UncertaintyGate) {
		return Outcome{
			Status:    StatusRejected,
			Diagnosis: "Uncertain: " + rejectReason(p),
		}
	}

	out := Outcome{Status: StatusPending, Diagnosis: diagnosisText(p)}
	if p.TriageScore != nil {
		out.Status = StatusCompleted
		out.Priority = PriorityForScore(*p.TriageScore)
		out.HasPriority = true
	}
	return out
}

func diagnosisText(p *inference.Prediction) string {
	if p.Diagnosis != nil && *p.Diagnosis != "" {
		return *p.Diagnosis
	}
	if p.Reason != nil && *p.Reason != "" {
		return *p.Reason
	}
	return "Analysis complete"
}

func rejectReason(p *inference.Prediction) string {
	if p.Reason != nil && *p.Reason != "" {
		return *p.Reason
	}
	if p.Diagnosis != nil && *p.Diagnosis != "" {
		return *p.Diagnosis
	}
	return "prediction confidence too low, manual review required"
}
