package delivery

import (
	"context"
	"sync"
)

// MockDeliverer records delivery requests for tests.
type MockDeliverer struct {
	Err error

	mu    sync.Mutex
	calls []Request
}

func (m *MockDeliverer) Deliver(ctx context.Context, req Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	return m.Err
}

// Calls returns a copy of the recorded requests.
func (m *MockDeliverer) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.calls))
	copy(out, m.calls)
	return out
}
