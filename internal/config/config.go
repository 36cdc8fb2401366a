package config

import (
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return ""
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: getEnvDefault("MIGRATIONS_DIR", "./migrations"),
		Port:          getEnv("PORT"),
		AdminToken:    getEnv("ADMIN_TOKEN"),
		ClubTimezone:  getEnvDefault("CLUB_TIMEZONE", "America/Sao_Paulo"),
		Turso: TursoConfig{
			PrimaryURL: getEnvDefault("TURSO_PRIMARY_URL", ""),
			AuthToken:  getEnvDefault("TURSO_AUTH_TOKEN", ""),
		},
		Slack: SlackConfig{
			Token:         getEnvDefault("SLACK_BOT_TOKEN", ""),
			ChannelID:     getEnvDefault("SLACK_CHANNEL_ID", ""),
			SigningSecret: getEnvDefault("SLACK_SIGNING_SECRET", ""),
			DryRun:        getEnvBool("SLACK_DRY_RUN", false),
		},
		Push: PushConfig{
			Subscriber:      getEnvDefault("VAPID_SUBSCRIBER", "mailto:admin@example.com"),
			VAPIDPublicKey:  getEnvDefault("VAPID_PUBLIC_KEY", ""),
			VAPIDPrivateKey: getEnvDefault("VAPID_PRIVATE_KEY", ""),
			TTL:             getEnvInt("PUSH_TTL_SECONDS", 3600),
		},
		Settlement: SettlementConfig{
			Timeout:               getEnvDuration("SETTLEMENT_TIMEOUT", 5*time.Second),
			BackgroundTimeout:     getEnvDuration("BACKGROUND_TIMEOUT", 20*time.Second),
			AchievementTimeout:    getEnvDuration("ACHIEVEMENT_TIMEOUT", 2*time.Second),
			CatalogTTL:            getEnvDuration("ACHIEVEMENT_CACHE_TTL", 30*time.Second),
			QuotaRetention:        getEnvInt("QUOTA_RETENTION_DAYS", 7),
			NotificationRetention: getEnvInt("NOTIFICATION_RETENTION_DAYS", 30),
			HousekeepingInterval:  getEnvDuration("HOUSEKEEPING_INTERVAL", time.Hour),
		},
		ProjectID:   getEnvDefault("GCP_PROJECT", ""),
		EventsTopic: getEnvDefault("EVENTS_TOPIC", "match-events"),
	}
	return cfg
}

func getEnvDefault(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn("Invalid integer in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		log.Warn("Invalid boolean in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		log.Warn("Invalid duration in environment, using default", "key", key, "value", raw, "default", fallback)
		return fallback
	}
	return v
}
