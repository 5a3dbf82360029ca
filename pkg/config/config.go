// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"voicemind/pkg/domain"
)

// Config holds everything the service needs to start. Populated from the
// environment once in main and passed down explicitly.
type Config struct {
	// SupabaseURL is the project URL (https://<ref>.supabase.co).
	SupabaseURL string
	// SupabaseKey is the service-role key. The pipeline bypasses row-level
	// security, so the anon key is not enough.
	SupabaseKey string
	// DatabaseURL overrides the Postgres connection string derived from the
	// project URL. Optional.
	DatabaseURL string

	OpenAIKey string

	ListenAddr    string
	StorageBucket string
	WorkerCount   int
}

// FromEnv builds a Config from environment variables and validates the
// required ones.
func FromEnv() (*Config, error) {
	cfg := &Config{
		SupabaseURL:   os.Getenv("SUPABASE_URL"),
		SupabaseKey:   os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		DatabaseURL:   os.Getenv("SUPABASE_DB_URL"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		ListenAddr:    getenvDefault("LISTEN_ADDR", ":8080"),
		StorageBucket: getenvDefault("STORAGE_BUCKET", domain.StorageBucket),
		WorkerCount:   intEnvDefault("WORKER_COUNT", 4),
	}

	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseKey == "" {
		return nil, fmt.Errorf("SUPABASE_SERVICE_ROLE_KEY is required")
	}
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intEnvDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
