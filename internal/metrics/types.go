package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	MatchesRegistered    prometheus.Counter
	MatchesContested     prometheus.Counter
	MatchesValidated     prometheus.Counter
	MatchesCanceled      prometheus.Counter
	SettlementConflicts  prometheus.Counter
	QuotaRejections      prometheus.Counter
	SettlementDuration   prometheus.Histogram
	AchievementsUnlocked prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	StartupTimeSeconds   prometheus.Gauge
}

// Notification channels used as label values.
const (
	ChannelInApp  = "in_app"
	ChannelPush   = "push"
	ChannelPubSub = "pubsub"
	ChannelSlack  = "slack"
)
