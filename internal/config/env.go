package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables layered over the config file.
const (
	EnvAddr     = "TYPERACER_ADDR"
	EnvDB       = "TYPERACER_DB"
	EnvNATSURL  = "TYPERACER_NATS_URL"
	EnvLogLevel = "TYPERACER_LOG_LEVEL"
	EnvServer   = "TYPERACER_SERVER"

	// EnvProgressInterval overrides the race progress interval in ms.
	EnvProgressInterval = "TYPERACER_PROGRESS_INTERVAL"
)

// LoadDotEnv loads variables from a .env file without overriding the
// environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// GetEnv returns the value of key or defaultValue when unset.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsInt returns key parsed as an int or defaultValue.
func GetEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// EnvString returns a pointer to the value of key, or fallback when unset.
// It layers the environment over a file value.
func EnvString(key string, fallback *string) *string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return &value
	}
	return fallback
}
