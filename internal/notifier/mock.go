package notifier

import (
	"context"
	"sync"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	NotifyFunc func(ev Event)

	NotifyCalls []Event
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = nil
}

func (m *Mock) Notify(ctx context.Context, ev Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NotifyCalls = append(m.NotifyCalls, ev)
	if m.NotifyFunc != nil {
		m.NotifyFunc(ev)
	}
}

// Calls returns a copy of the recorded events.
func (m *Mock) Calls() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.NotifyCalls...)
}
