// Package config loads process settings from the environment and the
// region and curated hub files from YAML.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds settings shared by the commands and the planner API
type Config struct {
	// Database
	DatabasePath string
	PostgresURL  string

	// Foot router
	OSRMHost       string
	WalkTimeout    time.Duration
	WalkCapSeconds int

	// Offline builders
	RegionsFile string
	CuratedFile string

	// Planner API
	Port           string
	AllowedOrigins []string
	IndexTTL       time.Duration
	SearchLimit    int
}

// LoadEnvFiles loads .env, then lets .env.local override it. Missing files
// are ignored.
func LoadEnvFiles(dir string) {
	if dir == "" {
		dir = "."
	}
	_ = godotenv.Load(dir + "/.env")
	_ = godotenv.Overload(dir + "/.env.local")
}

// Load reads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		DatabasePath: getEnv("SQLITE_DATABASE", "data/matatu.db"),
		PostgresURL:  getEnv("DATABASE_URL", ""),

		OSRMHost:       getEnv("OSRM_HOST", "http://localhost:5000"),
		WalkTimeout:    getEnvDuration("WALK_TIMEOUT", 5*time.Second),
		WalkCapSeconds: getEnvInt("WALK_CAP_SECONDS", 900),

		RegionsFile: getEnv("REGIONS_FILE", "config/regions.yaml"),
		CuratedFile: getEnv("CURATED_HUBS_FILE", ""),

		Port:           getEnv("PORT", "8081"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		IndexTTL:       getEnvDuration("INDEX_TTL", 24*time.Hour),
		SearchLimit:    getEnvInt("SEARCH_LIMIT", 5),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
