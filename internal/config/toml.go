// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Player PlayerConfig `toml:"player"`
	Solo   SoloConfig   `toml:"solo"`
	Race   RaceConfig   `toml:"race"`
	Server ServerConfig `toml:"server"`
}

// PlayerConfig maps the local identity.
type PlayerConfig struct {
	ID   *string `toml:"id"`
	Name *string `toml:"name"`
}

// SoloConfig maps solo game settings.
type SoloConfig struct {
	Duration   *int     `toml:"duration"`
	Window     *int     `toml:"window"`
	Wordlist   *string  `toml:"wordlist"`
	Words      *int     `toml:"words"`
	CapsPct    *float64 `toml:"caps"`
	PunctPct   *float64 `toml:"punct"`
	PunctSet   *string  `toml:"punct-set"`
	FocusWeak  *bool    `toml:"focus-weak"`
	WeakTop    *int     `toml:"weak-top"`
	WeakFactor *float64 `toml:"weak-factor"`
	Submit     *bool    `toml:"submit"`
}

// RaceConfig maps race client settings.
type RaceConfig struct {
	Server           *string `toml:"server"`
	ProgressInterval *int    `toml:"progress-interval"`
}

// ServerConfig maps race server settings.
type ServerConfig struct {
	Addr     *string `toml:"addr"`
	DB       *string `toml:"db"`
	NATSURL  *string `toml:"nats-url"`
	LogLevel *string `toml:"log-level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
