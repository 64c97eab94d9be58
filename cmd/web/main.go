package main

import (
	"log"
	"os"

	"log/slog"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	apphttp "delguur.mn/app/internal/http"
)

func main() {
	// Load .env file (ignore error if not found - prod uses real env vars)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Database connection
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	cfg := apphttp.Config{
		WebhookKeyHash: os.Getenv("SMS_WEBHOOK_KEY_HASH"),
		AdminKeyHash:   os.Getenv("ADMIN_API_KEY_HASH"),
	}
	if cfg.WebhookKeyHash == "" || cfg.AdminKeyHash == "" {
		log.Fatal("SMS_WEBHOOK_KEY_HASH and ADMIN_API_KEY_HASH environment variables are required")
	}
	if s := os.Getenv("AMOUNT_TOLERANCE"); s != "" {
		tol, err := decimal.NewFromString(s)
		if err != nil {
			log.Fatalf("invalid AMOUNT_TOLERANCE: %v", err)
		}
		cfg.AmountTolerance = tol
	}

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}

	r := apphttp.NewRouter(logger, db, cfg)
	_ = r.Run(addr)
}
