package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/mauv0809/pingpong-ladder/internal/achievement"
	"github.com/mauv0809/pingpong-ladder/internal/club"
	"github.com/mauv0809/pingpong-ladder/internal/database"
	"github.com/mauv0809/pingpong-ladder/internal/match"
	"github.com/mauv0809/pingpong-ladder/internal/metrics"
	"github.com/mauv0809/pingpong-ladder/internal/notifier"
	"github.com/mauv0809/pingpong-ladder/internal/settlement"
	"github.com/prometheus/client_golang/prometheus"
)

// Simplified config loading for the script
func loadConfig() map[string]string {
	err := godotenv.Load()
	if err != nil {
		log.Warn("No .env file found, reading from environment variables")
	}

	config := map[string]string{
		"DB_NAME":           "ladder.db",
		"MIGRATIONS_DIR":    "./migrations",
		"TURSO_PRIMARY_URL": "",
		"TURSO_AUTH_TOKEN":  "",
		"SEED_PLAYERS":      "8",
		"SEED_MATCHES":      "200",
	}
	for key := range config {
		if value, ok := os.LookupEnv(key); ok {
			config[key] = value
		}
	}
	return config
}

func intValue(cfg map[string]string, key string) int {
	v, err := strconv.Atoi(cfg[key])
	if err != nil || v <= 0 {
		log.Fatalf("Error: %s must be a positive integer, got %q", key, cfg[key])
	}
	return v
}

var outcomes = []string{"3x0", "3x1", "3x2", "2x3", "1x3", "0x3"}

func main() {
	log.Info("Starting database seeder...")
	cfg := loadConfig()
	numPlayers := intValue(cfg, "SEED_PLAYERS")
	numMatches := intValue(cfg, "SEED_MATCHES")
	if numPlayers < 2 {
		log.Fatal("Error: SEED_PLAYERS must be at least 2")
	}

	db, teardown, err := database.InitDB(cfg["DB_NAME"], cfg["TURSO_PRIMARY_URL"], cfg["TURSO_AUTH_TOKEN"], cfg["MIGRATIONS_DIR"])
	if err != nil {
		log.Fatalf("Failed to open database: %s", err)
	}
	defer teardown()

	ctx := context.Background()
	m := metrics.NewService(prometheus.NewRegistry())
	clubStore := club.New(db)
	matchStore := match.NewStore(db)
	achievementStore := achievement.New(db)
	engine := achievement.NewEngine(achievementStore, achievement.NewCatalogCache(achievementStore, achievement.DefaultCatalogTTL),
		clubStore, matchStore, m, time.UTC)
	dispatcher := notifier.NewDispatcher(notifier.NewStore(db), nil, nil, m)
	svc := settlement.New(clubStore, matchStore, match.NewQuotaStore(db), engine, dispatcher, nil, m, settlement.Options{})

	players := make([]string, 0, numPlayers)
	for i := 1; i <= numPlayers; i++ {
		id := fmt.Sprintf("seed-player-%d", i)
		if err := clubStore.AddPlayer(ctx, club.Player{ID: id, Name: fmt.Sprintf("Seeder Player %d", i)}); err != nil {
			log.Fatalf("Failed to insert dummy player %s: %s", id, err)
		}
		players = append(players, id)
	}
	log.Info("Ensured dummy players exist.", "count", len(players))

	log.Info("Preparing to play dummy matches...", "total", numMatches)
	startTime := time.Now()
	start := startTime.AddDate(0, 0, -90)
	played, skipped := 0, 0

	for i := 0; i < numMatches; i++ {
		// Matches are spread evenly over the last 90 days.
		at := start.Add(time.Duration(i) * 90 * 24 * time.Hour / time.Duration(numMatches))
		svc.SetClock(func() time.Time { return at })

		a := players[rand.IntN(len(players))]
		b := players[rand.IntN(len(players))]
		if a == b {
			skipped++
			continue
		}

		reg, err := svc.Register(ctx, a, b, outcomes[rand.IntN(len(outcomes))])
		if errors.Is(err, settlement.ErrQuotaExceeded) {
			skipped++
			continue
		}
		if err != nil {
			log.Fatalf("Failed to register match: %s", err)
		}
		if _, err := svc.Confirm(ctx, reg.MatchID, b); err != nil {
			log.Fatalf("Failed to confirm match %s: %s", reg.MatchID, err)
		}
		// The clock is shared with detached post-processing.
		if err := svc.Wait(ctx); err != nil {
			log.Fatalf("Background tasks did not finish: %s", err)
		}
		played++
		if played%50 == 0 {
			log.Info("Played batch", "completed", played, "total", numMatches)
		}
	}

	log.Info("Successfully seeded matches.", "played", played, "skipped", skipped, "duration", time.Since(startTime))
}
