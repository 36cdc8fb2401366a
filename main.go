package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/config"
	"github.com/mauv0809/pingpong-ladder/internal/database"
	server "github.com/mauv0809/pingpong-ladder/internal/http"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/notifier/slack"
	"github.com/mauv0809/pingpong-ladder/internal/pubsub"
	"github.com/mauv0809/pingpong-ladder/internal/push"
	"github.com/mauv0809/pingpong-ladder/internal/scheduler"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.ClubTimezone)
	if err != nil {
		log.Fatalf("Invalid club timezone %q: %s", cfg.ClubTimezone, err)
	}

	db, dbTeardown, err := database.InitDB(cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken, cfg.MigrationsDir)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()

	clubStore := club.New(db)
	matchStore := match.NewStore(db)
	quotaStore := match.NewQuotaStore(db)
	achievementStore := achievement.New(db)
	catalog := achievement.NewCatalogCache(achievementStore, cfg.Settlement.CatalogTTL)
	engine := achievement.NewEngine(achievementStore, catalog, clubStore, matchStore, metricsSvc, loc)
	notificationStore := notifier.NewStore(db)

	var pusher push.Sender
	if cfg.Push.Enabled() {
		pusher = push.New(push.Options{
			Subscriber:      cfg.Push.Subscriber,
			VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
			VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
			TTL:             cfg.Push.TTL,
		})
	} else {
		log.Warn("VAPID keys not configured, web push disabled")
	}

	var publisher pubsub.PubSubClient
	if cfg.ProjectID != "" {
		client, err := pubsub.New(context.Background(), cfg.ProjectID, cfg.EventsTopic)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
		defer client.Close()
		publisher = client
	}
	dispatcher := notifier.NewDispatcher(notificationStore, pusher, publisher, metricsSvc)

	slackNotifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc, cfg.Slack.DryRun || !cfg.Slack.Enabled())
	var feed settlement.Feed
	if cfg.Slack.Enabled() || cfg.Slack.DryRun {
		feed = slackNotifier
	}

	settlementSvc := settlement.New(clubStore, matchStore, quotaStore, engine, dispatcher, feed, metricsSvc, settlement.Options{
		Timeout:            cfg.Settlement.Timeout,
		BackgroundTimeout:  cfg.Settlement.BackgroundTimeout,
		AchievementTimeout: cfg.Settlement.AchievementTimeout,
		Location:           loc,
	})

	housekeeping, err := scheduler.New(quotaStore, notificationStore, catalog, scheduler.Options{
		Interval:              cfg.Settlement.HousekeepingInterval,
		QuotaRetention:        cfg.Settlement.QuotaRetention,
		NotificationRetention: cfg.Settlement.NotificationRetention,
		Location:              loc,
	})
	if err != nil {
		log.Fatalf("Failed to create scheduler: %s", err)
	}
	if err := housekeeping.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %s", err)
	}

	s := server.NewServer(server.Dependencies{
		DB:             db,
		Settlement:     settlementSvc,
		Club:           clubStore,
		Matches:        matchStore,
		Achievements:   achievementStore,
		Notifications:  notificationStore,
		Deliverer:      dispatcher,
		PubSub:         publisher,
		SlackFormatter: slackNotifier,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
	})

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port, "timezone", loc.String())
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}

		// Let detached post-processing finish before the database closes.
		if err := settlementSvc.Wait(ctx); err != nil {
			log.Warn("Background tasks still running at shutdown", "error", err)
		}
	}

	if err := housekeeping.Stop(); err != nil {
		log.Error("Scheduler shutdown failed", "error", err)
	}
	log.Info("Server process shutting down")
}
