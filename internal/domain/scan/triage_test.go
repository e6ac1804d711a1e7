package scan

import (
	"strings"
	"testing"

	"github.com/vaidyavision/vaidya/internal/platform/inference"
)

func f64(v float64) *float64 { return &v }
func intp(v int) *int        { return &v }
func strp(v string) *string  { return &v }

func TestPriorityForScore(t *testing.T) {
	cases := []struct {
		score int
		want  Priority
	}{
		{0, PriorityLow},
		{39, PriorityLow},
		{40, PriorityMedium},
		{59, PriorityMedium},
		{60, PriorityHigh},
		{79, PriorityHigh},
		{80, PriorityCritical},
		{100, PriorityCritical},
	}
	for _, tc := range cases {
		if got := PriorityForScore(tc.score); got != tc.want {
			t.Errorf("PriorityForScore(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestPriorityMonotonic(t *testing.T) {
	prev := PriorityForScore(0)
	for score := 1; score <= 100; score++ {
		cur := PriorityForScore(score)
		if cur.Rank() < prev.Rank() {
			t.Fatalf("priority dropped from %s to %s at score %d", prev, cur, score)
		}
		prev = cur
	}
}

func TestEvaluateAccepted(t *testing.T) {
	out := Evaluate(&inference.Prediction{
		Status:      inference.StatusAccepted,
		Diagnosis:   strp("Glioma detected"),
		Confidence:  f64(0.92),
		Uncertainty: f64(0.08),
		TriageScore: intp(85),
	})
	if out.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", out.Status)
	}
	if !out.HasPriority || out.Priority != PriorityCritical {
		t.Errorf("priority = %s (has=%v), want critical", out.Priority, out.HasPriority)
	}
	if out.Diagnosis != "Glioma detected" {
		t.Errorf("diagnosis = %q", out.Diagnosis)
	}
}

func TestEvaluateUncertaintyGate(t *testing.T) {
	// High confidence does not rescue a prediction the model itself
	// is uncertain about.
	out := Evaluate(&inference.Prediction{
		Status:      inference.StatusAccepted,
		Diagnosis:   strp("Possible melanoma"),
		Confidence:  f64(0.95),
		Uncertainty: f64(0.42),
		TriageScore: intp(70),
	})
	if out.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", out.Status)
	}
	if !strings.HasPrefix(out.Diagnosis, "Uncertain: ") {
		t.Errorf("diagnosis %q lacks uncertainty prefix", out.Diagnosis)
	}
	if out.HasPriority {
		t.Error("rejected prediction should not assign a priority")
	}
}

func TestEvaluateGateBoundary(t *testing.T) {
	// Exactly at the gate is still trusted; only above rejects.
	at := Evaluate(&inference.Prediction{Status: inference.StatusAccepted, Uncertainty: f64(UncertaintyGate), TriageScore: intp(50)})
	if at.Status != StatusCompleted {
		t.Errorf("uncertainty == gate: status = %s, want completed", at.Status)
	}
	above := Evaluate(&inference.Prediction{Status: inference.StatusAccepted, Uncertainty: f64(UncertaintyGate + 0.001), TriageScore: intp(50)})
	if above.Status != StatusRejected {
		t.Errorf("uncertainty just above gate: status = %s, want rejected", above.Status)
	}
}

func TestEvaluateUpstreamRejected(t *testing.T) {
	out := Evaluate(&inference.Prediction{
		Status: inference.StatusRejected,
		Reason: strp("image quality too low"),
	})
	if out.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", out.Status)
	}
	if out.Diagnosis != "Uncertain: image quality too low" {
		t.Errorf("diagnosis = %q", out.Diagnosis)
	}
}

func TestEvaluateNoScoreStaysPending(t *testing.T) {
	out := Evaluate(&inference.Prediction{
		Status:     inference.StatusAccepted,
		Diagnosis:  strp("Inconclusive"),
		Confidence: f64(0.5),
	})
	if out.Status != StatusPending {
		t.Fatalf("status = %s, want pending", out.Status)
	}
	if out.HasPriority {
		t.Error("missing score should not assign a priority")
	}
}
