package metrics

import "sync"

// Mock is a mock implementation of the Metrics interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu                   sync.Mutex
	matchesRegistered    int
	matchesContested     int
	matchesValidated     int
	matchesCanceled      int
	settlementConflicts  int
	quotaRejections      int
	settlementDurations  []float64
	achievementsUnlocked int
	notificationsSent    map[string]int
	notificationsFailed  map[string]int
	startupTime          float64
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		settlementDurations: make([]float64, 0),
		notificationsSent:   make(map[string]int),
		notificationsFailed: make(map[string]int),
	}
}

func (m *Mock) IncMatchesRegistered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesRegistered++
}

func (m *Mock) IncMatchesContested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesContested++
}

func (m *Mock) IncMatchesValidated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesValidated++
}

func (m *Mock) IncMatchesCanceled() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matchesCanceled++
}

func (m *Mock) IncSettlementConflicts() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementConflicts++
}

func (m *Mock) IncQuotaRejections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotaRejections++
}

func (m *Mock) ObserveSettlementDuration(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlementDurations = append(m.settlementDurations, duration)
}

func (m *Mock) IncAchievementsUnlocked(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.achievementsUnlocked += count
}

func (m *Mock) IncNotificationSent(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsSent[channel]++
}

func (m *Mock) IncNotificationFailed(channel string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notificationsFailed[channel]++
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

// MatchesRegistered returns the number of times IncMatchesRegistered was called.
func (m *Mock) MatchesRegistered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesRegistered
}

// MatchesContested returns the number of times IncMatchesContested was called.
func (m *Mock) MatchesContested() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesContested
}

// MatchesValidated returns the number of times IncMatchesValidated was called.
func (m *Mock) MatchesValidated() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesValidated
}

// MatchesCanceled returns the number of times IncMatchesCanceled was called.
func (m *Mock) MatchesCanceled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchesCanceled
}

// SettlementConflicts returns the number of times IncSettlementConflicts was called.
func (m *Mock) SettlementConflicts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settlementConflicts
}

// QuotaRejections returns the number of times IncQuotaRejections was called.
func (m *Mock) QuotaRejections() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quotaRejections
}

// SettlementDurations returns the observed settlement durations.
func (m *Mock) SettlementDurations() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]float64(nil), m.settlementDurations...)
}

// AchievementsUnlocked returns the sum passed to IncAchievementsUnlocked.
func (m *Mock) AchievementsUnlocked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.achievementsUnlocked
}

// NotificationsSent returns the sent count for a channel.
func (m *Mock) NotificationsSent(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsSent[channel]
}

// NotificationsFailed returns the failed count for a channel.
func (m *Mock) NotificationsFailed(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notificationsFailed[channel]
}

// StartupTime returns the value passed to SetStartupTime.
func (m *Mock) StartupTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startupTime
}
