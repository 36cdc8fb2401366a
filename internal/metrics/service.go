package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Metrics = (*Service)(nil)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesRegistered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_registered_total",
			Help: "The total number of matches registered by members.",
		}),
		MatchesContested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_contested_total",
			Help: "The total number of score contests.",
		}),
		MatchesValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_validated_total",
			Help: "The total number of matches confirmed and settled.",
		}),
		MatchesCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_matches_canceled_total",
			Help: "The total number of matches canceled by an admin.",
		}),
		SettlementConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_settlement_conflicts_total",
			Help: "The total number of conditional writes that lost a race.",
		}),
		QuotaRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_quota_rejections_total",
			Help: "The total number of registrations refused by the daily pair limit.",
		}),
		SettlementDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ladder_settlement_duration_seconds",
			Help:    "The duration of the confirm critical path.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		AchievementsUnlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ladder_achievements_unlocked_total",
			Help: "The total number of achievements unlocked.",
		}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_notifications_sent_total",
			Help: "The total number of notifications delivered, by channel.",
		}, []string{"channel"}),
		NotificationsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ladder_notifications_failed_total",
			Help: "The total number of notifications that failed, by channel.",
		}, []string{"channel"}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ladder_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
	}

	reg.MustRegister(
		s.MatchesRegistered,
		s.MatchesContested,
		s.MatchesValidated,
		s.MatchesCanceled,
		s.SettlementConflicts,
		s.QuotaRejections,
		s.SettlementDuration,
		s.AchievementsUnlocked,
		s.NotificationsSent,
		s.NotificationsFailed,
		s.StartupTimeSeconds,
	)

	return s
}

func (s *Service) IncMatchesRegistered() {
	s.MatchesRegistered.Inc()
}

func (s *Service) IncMatchesContested() {
	s.MatchesContested.Inc()
}

func (s *Service) IncMatchesValidated() {
	s.MatchesValidated.Inc()
}

func (s *Service) IncMatchesCanceled() {
	s.MatchesCanceled.Inc()
}

func (s *Service) IncSettlementConflicts() {
	s.SettlementConflicts.Inc()
}

func (s *Service) IncQuotaRejections() {
	s.QuotaRejections.Inc()
}

func (s *Service) ObserveSettlementDuration(duration float64) {
	s.SettlementDuration.Observe(duration)
}

func (s *Service) IncAchievementsUnlocked(count int) {
	s.AchievementsUnlocked.Add(float64(count))
}

func (s *Service) IncNotificationSent(channel string) {
	s.NotificationsSent.WithLabelValues(channel).Inc()
}

func (s *Service) IncNotificationFailed(channel string) {
	s.NotificationsFailed.WithLabelValues(channel).Inc()
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}
