// Command migrate applies the embedded schema migrations to DATABASE_URL.
package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"sqlexpansion/internal/db"
	"sqlexpansion/internal/infra"
)

func main() {
	_ = godotenv.Load()

	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", time.Minute, "overall migration timeout")
	flag.Parse()

	logger := infra.NewLogger(os.Getenv("APP_ENV")).With().Str("cmd", "migrate").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	conn, err := sql.Open("postgres", dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}

	n, err := db.NewMigrator(conn, logger).Up(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}
	logger.Info().Int("applied", n).Msg("schema up to date")
}
