package inference

import (
	"context"
	"sync"
)

// PredictCall records one call to a MockClient.
type PredictCall struct {
	ImageSize    int
	ModalityHint string
}

// MockClient is a test double for Client.
type MockClient struct {
	mu         sync.Mutex
	calls      []PredictCall
	Prediction *Prediction
	Err        error
}

func (m *MockClient) Predict(_ context.Context, image []byte, modalityHint string) (*Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PredictCall{ImageSize: len(image), ModalityHint: modalityHint})
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Prediction, nil
}

// Calls returns a copy of recorded calls.
func (m *MockClient) Calls() []PredictCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PredictCall, len(m.calls))
	copy(out, m.calls)
	return out
}
