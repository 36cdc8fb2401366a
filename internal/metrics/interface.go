package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncMatchesRegistered()
	IncMatchesContested()
	IncMatchesValidated()
	IncMatchesCanceled()
	IncSettlementConflicts()
	IncQuotaRejections()
	ObserveSettlementDuration(duration float64)
	IncAchievementsUnlocked(count int)
	IncNotificationSent(channel string)
	IncNotificationFailed(channel string)
	SetStartupTime(duration float64)
}
