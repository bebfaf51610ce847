package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything the process needs from its deployment
// environment. It is built once in main and passed down explicitly;
// nothing in this codebase reads the environment after startup.
type Config struct {
	// AppID namespaces all stored documents, mirroring the
	// /artifacts/{appId}/users/{identity} path convention of the
	// backing document store.
	AppID string

	// SessionSecret signs the HS256 session tokens.
	SessionSecret string

	// BootstrapSecret verifies pre-provisioned custom tokens. Empty
	// disables the custom-token exchange flow; anonymous sign-in is
	// always available.
	BootstrapSecret string

	// GeminiAPIKey may be empty; the generative endpoint tolerates an
	// absent key in the observed deployment context.
	GeminiAPIKey string

	DatabaseURL string
	HTTPPort    string
}

// Load reads .env (if present) and the environment. Missing required
// credentials are a configuration error, fatal to the whole session.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		AppID:           getEnv("APP_ID", ""),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		BootstrapSecret: getEnv("BOOTSTRAP_SECRET", ""),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "studymate.db"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
	}

	if cfg.AppID == "" {
		return nil, fmt.Errorf("APP_ID environment variable is required")
	}
	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
