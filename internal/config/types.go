package config

import "time"

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	AdminToken    string
	ClubTimezone  string
	Turso         TursoConfig
	Slack         SlackConfig
	Push          PushConfig
	Settlement    SettlementConfig
	ProjectID     string
	EventsTopic   string
}

type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}

type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
	// DryRun logs feed messages instead of posting them.
	DryRun bool
}

// PushConfig carries the VAPID identity used for web push delivery.
type PushConfig struct {
	Subscriber      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	TTL             int
}

// SettlementConfig bounds the critical and best-effort paths of match settlement.
type SettlementConfig struct {
	Timeout            time.Duration
	BackgroundTimeout  time.Duration
	AchievementTimeout time.Duration
	CatalogTTL         time.Duration
	// QuotaRetention and NotificationRetention are in days.
	QuotaRetention        int
	NotificationRetention int
	HousekeepingInterval  time.Duration
}

// Enabled reports whether web push can be sent.
func (p PushConfig) Enabled() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}

// Enabled reports whether the club channel feed is configured.
func (s SlackConfig) Enabled() bool {
	return s.Token != "" && s.ChannelID != ""
}
