package push

import (
	"context"
	"sync"
)

// MockSender is a mock implementation of the Sender interface for testing.
// It is safe for concurrent use.
type MockSender struct {
	mu sync.Mutex

	SendFunc func(target Target, payload []byte) error

	SendCalls []struct {
		Target  Target
		Payload []byte
		Topic   string
	}
}

func NewMock() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, target Target, payload []byte, topic string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendCalls = append(m.SendCalls, struct {
		Target  Target
		Payload []byte
		Topic   string
	}{target, payload, topic})
	if m.SendFunc != nil {
		return m.SendFunc(target, payload)
	}
	return nil
}

// Calls returns how many times Send was called.
func (m *MockSender) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SendCalls)
}
