package match

import (
	"context"
	"sync"
	"time"
)

// MockStore is a mock implementation of the MatchStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	CreateFunc                 func(m *Match) error
	GetFunc                    func(matchID string) (*Match, error)
	GetOpenFunc                func(matchID string) (*Match, error)
	ContestFunc                func(matchID, userID string, outcome Outcome) error
	SettleFunc                 func(s Settlement) (*Settled, error)
	CancelFunc                 func(matchID, actorID string) (bool, error)
	ListValidatedForPlayerFunc func(playerID string) ([]Match, error)
	ListForPlayerFunc          func(playerID string, limit int) ([]Match, error)

	// Call records
	CreateCalls  []*Match
	ContestCalls []struct {
		MatchID string
		UserID  string
		Outcome Outcome
	}
	SettleCalls []Settlement
	CancelCalls []struct {
		MatchID string
		ActorID string
	}
	ListValidatedForPlayerCalls []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) Create(ctx context.Context, match *Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls = append(m.CreateCalls, match)
	if m.CreateFunc != nil {
		return m.CreateFunc(match)
	}
	return nil
}

func (m *MockStore) Get(ctx context.Context, matchID string) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(matchID)
	}
	return nil, ErrMatchNotFound
}

func (m *MockStore) GetOpen(ctx context.Context, matchID string) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetOpenFunc != nil {
		return m.GetOpenFunc(matchID)
	}
	return nil, ErrMatchNotFound
}

func (m *MockStore) Contest(ctx context.Context, matchID, userID string, outcome Outcome, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContestCalls = append(m.ContestCalls, struct {
		MatchID string
		UserID  string
		Outcome Outcome
	}{matchID, userID, outcome})
	if m.ContestFunc != nil {
		return m.ContestFunc(matchID, userID, outcome)
	}
	return nil
}

func (m *MockStore) Settle(ctx context.Context, s Settlement) (*Settled, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SettleCalls = append(m.SettleCalls, s)
	if m.SettleFunc != nil {
		return m.SettleFunc(s)
	}
	return nil, ErrStatusChanged
}

func (m *MockStore) Cancel(ctx context.Context, matchID, actorID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CancelCalls = append(m.CancelCalls, struct {
		MatchID string
		ActorID string
	}{matchID, actorID})
	if m.CancelFunc != nil {
		return m.CancelFunc(matchID, actorID)
	}
	return false, nil
}

func (m *MockStore) ListValidatedForPlayer(ctx context.Context, playerID string) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ListValidatedForPlayerCalls = append(m.ListValidatedForPlayerCalls, playerID)
	if m.ListValidatedForPlayerFunc != nil {
		return m.ListValidatedForPlayerFunc(playerID)
	}
	return []Match{}, nil
}

func (m *MockStore) ListForPlayer(ctx context.Context, playerID string, limit int) ([]Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListForPlayerFunc != nil {
		return m.ListForPlayerFunc(playerID, limit)
	}
	return []Match{}, nil
}

// MockQuotaStore is a mock implementation of the QuotaStore interface for testing.
type MockQuotaStore struct {
	mu sync.Mutex

	ReserveFunc func(playerID, opponentID, day string, limit int) error

	ReserveCalls int
	ReleaseCalls int
}

func NewMockQuota() *MockQuotaStore {
	return &MockQuotaStore{}
}

func (m *MockQuotaStore) Reserve(ctx context.Context, playerID, opponentID, day string, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReserveCalls++
	if m.ReserveFunc != nil {
		return m.ReserveFunc(playerID, opponentID, day, limit)
	}
	return nil
}

func (m *MockQuotaStore) Release(ctx context.Context, playerID, opponentID, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReleaseCalls++
	return nil
}

func (m *MockQuotaStore) Count(ctx context.Context, playerID, opponentID, day string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ReserveCalls - m.ReleaseCalls, nil
}

func (m *MockQuotaStore) PruneBefore(ctx context.Context, day string) (int64, error) {
	return 0, nil
}
