package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/typeracer/internal/model"
)

// LoadOrCreatePlayerID returns the id stored at path, generating and
// saving a new one on first use.
func LoadOrCreatePlayerID(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read player id: %w", err)
	}
	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("failed to write player id: %w", err)
	}
	return id, nil
}

// ResolvePlayer builds the local identity. Config values win; otherwise the
// id is the persisted generated one and the name comes from $USER.
func ResolvePlayer(cfg PlayerConfig, idPath string) (model.Player, error) {
	var p model.Player
	if cfg.ID != nil && strings.TrimSpace(*cfg.ID) != "" {
		p.ID = strings.TrimSpace(*cfg.ID)
	} else {
		id, err := LoadOrCreatePlayerID(idPath)
		if err != nil {
			return model.Player{}, err
		}
		p.ID = id
	}
	if cfg.Name != nil && strings.TrimSpace(*cfg.Name) != "" {
		p.Name = strings.TrimSpace(*cfg.Name)
	} else {
		p.Name = GetEnv("USER", "player")
	}
	return p, nil
}
