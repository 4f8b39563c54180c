// Command stagekey stores the bearer token used to call the remote pipeline
// runner, so deployments do not need PIPELINES_API_KEY in the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"sqlexpansion/internal/infra"
	"sqlexpansion/internal/infra/credentials"
)

func main() {
	_ = godotenv.Load()

	var (
		keyFlag  string
		noteFlag string
	)
	flag.StringVar(&keyFlag, "key", "", "pipelines API key (fallbacks to PIPELINES_API_KEY)")
	flag.StringVar(&noteFlag, "note", "", "free-form note stored with the key")
	flag.Parse()

	key := strings.TrimSpace(keyFlag)
	if key == "" {
		key = strings.TrimSpace(os.Getenv("PIPELINES_API_KEY"))
	}
	if key == "" {
		fmt.Fprintln(os.Stderr, "pipelines API key is required via -key or PIPELINES_API_KEY")
		os.Exit(1)
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "stagekey").Logger()
	store := credentials.NewStore(infra.NewSQLRunner(pool, logger))

	props := map[string]any{"stored_at": time.Now().UTC().Format(time.RFC3339)}
	if note := strings.TrimSpace(noteFlag); note != "" {
		props["note"] = note
	}

	ctxExec, cancelExec := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelExec()
	if err := store.SetPipelinesAPIKey(ctxExec, key, props); err != nil {
		fmt.Fprintf(os.Stderr, "failed to persist pipelines api key: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("pipelines API key stored successfully")
}
