package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/safework-pro/qr-registration-backend/internal/config"
	"github.com/safework-pro/qr-registration-backend/internal/database"
	"github.com/safework-pro/qr-registration-backend/internal/models"
	"github.com/safework-pro/qr-registration-backend/internal/services"
)

// One-shot maintenance sweep, intended to run from cron or a scheduled job.
// The request path already enforces expiry lazily; this sweep keeps stored
// statuses and dashboard counts honest for tokens nobody ever scanned, and
// prunes old rate limit rows while it is at it.
func main() {
	var dbURLFlag string
	var skipRateLimits bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&skipRateLimits, "skip-rate-limits", false, "do not prune old rate limit rows")
	flag.Parse()

	// Optional .env so secrets never ride on the command line
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	postgres, ok := db.(*database.PostgresDB)
	if !ok {
		log.Fatal("failed to cast database connection to PostgresDB")
	}

	tokenRepo := database.NewRegistrationTokenRepository(postgres.DB)
	logRepo := database.NewRegistrationLogRepository(db)

	ids, err := tokenRepo.ExpireOverdueTokens()
	if err != nil {
		log.Fatalf("failed to expire overdue tokens: %v", err)
	}

	for _, id := range ids {
		entry := &models.RegistrationLog{
			TokenID: id,
			Action:  models.LogActionExpired,
			Status:  string(models.TokenStatusExpired),
			Message: "token expired by maintenance sweep",
		}
		if err := logRepo.Insert(entry); err != nil {
			log.Printf("warning: failed to log expiry for token %s: %v", id, err)
		}
	}

	fmt.Printf("Expired %d overdue token(s)\n", len(ids))

	if !skipRateLimits {
		window := 10 * time.Minute
		if minutes, err := strconv.Atoi(os.Getenv("RATE_LIMIT_WINDOW_MINUTES")); err == nil && minutes > 0 {
			window = time.Duration(minutes) * time.Minute
		}

		rateLimitService := services.NewRateLimitService(db, 0, window)
		pruned, err := rateLimitService.CleanupExpiredRateLimits()
		if err != nil {
			log.Fatalf("failed to prune rate limit rows: %v", err)
		}
		fmt.Printf("Pruned %d old rate limit row(s)\n", pruned)
	}
}
