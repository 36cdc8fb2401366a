package achievement

import (
	"context"
	"sync"
)

// MockEvaluator is a mock implementation of the Evaluator interface for testing.
// It is safe for concurrent use.
type MockEvaluator struct {
	mu sync.Mutex

	EvaluateFunc func(c Context) []Unlocked

	EvaluateCalls []Context
}

// NewMock creates a new mock instance.
func NewMock() *MockEvaluator {
	return &MockEvaluator{}
}

func (m *MockEvaluator) Evaluate(ctx context.Context, c Context) []Unlocked {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EvaluateCalls = append(m.EvaluateCalls, c)
	if m.EvaluateFunc != nil {
		return m.EvaluateFunc(c)
	}
	return []Unlocked{}
}

// Calls returns a copy of the recorded contexts.
func (m *MockEvaluator) Calls() []Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Context(nil), m.EvaluateCalls...)
}
