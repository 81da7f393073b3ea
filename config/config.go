package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Config is the persisted server configuration. Fields left zero in the
// file fall back to defaults; the TMDB token can also come from the
// environment so it stays out of the config file.
type Config struct {
	Port             int    `json:"port"`
	StorageDir       string `json:"storageDir"`
	TMDBAccessToken  string `json:"tmdbAccessToken,omitempty"`
	Language         string `json:"language"`
	SessionHours     int    `json:"sessionHours"`
	SearchDebounceMS int    `json:"searchDebounceMs"`

	LogFile       string `json:"logFile"`
	LogMaxSizeMB  int    `json:"logMaxSizeMb"`
	LogMaxBackups int    `json:"logMaxBackups"`

	AuthRatePerMinute int `json:"authRatePerMinute"`
	AuthRateBurst     int `json:"authRateBurst"`
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		Port:              8090,
		StorageDir:        "data",
		Language:          "en-US",
		SessionHours:      24 * 30,
		SearchDebounceMS:  500,
		LogFile:           "logs/server.log",
		LogMaxSizeMB:      20,
		LogMaxBackups:     3,
		AuthRatePerMinute: 10,
		AuthRateBurst:     5,
	}
}

// SessionDuration returns the configured session lifetime.
func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionHours) * time.Hour
}

// SearchDebounce returns the configured input debounce window.
func (c Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

// Manager loads, overrides and persists the configuration file.
type Manager struct {
	mu   sync.RWMutex
	path string
	cfg  Config
}

// NewManager reads the config file at path, creating it with defaults when
// missing, then applies environment overrides.
func NewManager(path string) (*Manager, error) {
	if strings.TrimSpace(path) == "" {
		path = "config.json"
	}

	m := &Manager{path: path, cfg: Defaults()}

	if err := m.load(); err != nil {
		return nil, err
	}
	m.applyEnv()

	return m, nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		// First run: write the defaults so the file is there to edit.
		return m.save()
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	m.normalize(&cfg)
	m.cfg = cfg
	return nil
}

func (m *Manager) normalize(cfg *Config) {
	def := Defaults()
	if cfg.Port <= 0 || cfg.Port > 65535 {
		cfg.Port = def.Port
	}
	if strings.TrimSpace(cfg.StorageDir) == "" {
		cfg.StorageDir = def.StorageDir
	}
	if strings.TrimSpace(cfg.Language) == "" {
		cfg.Language = def.Language
	}
	if cfg.SessionHours <= 0 {
		cfg.SessionHours = def.SessionHours
	}
	if cfg.SearchDebounceMS <= 0 {
		cfg.SearchDebounceMS = def.SearchDebounceMS
	}
	if cfg.LogMaxSizeMB <= 0 {
		cfg.LogMaxSizeMB = def.LogMaxSizeMB
	}
	if cfg.LogMaxBackups < 0 {
		cfg.LogMaxBackups = def.LogMaxBackups
	}
	if cfg.AuthRatePerMinute <= 0 {
		cfg.AuthRatePerMinute = def.AuthRatePerMinute
	}
	if cfg.AuthRateBurst <= 0 {
		cfg.AuthRateBurst = def.AuthRateBurst
	}
}

// applyEnv lets deployment env vars override the file.
func (m *Manager) applyEnv() {
	if v := os.Getenv("TMDB_ACCESS_TOKEN"); v != "" {
		m.cfg.TMDBAccessToken = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 && port <= 65535 {
			m.cfg.Port = port
		}
	}
	if v := os.Getenv("STORAGE_DIR"); v != "" {
		m.cfg.StorageDir = v
	}
	if v := os.Getenv("LANGUAGE"); v != "" {
		m.cfg.Language = v
	}
}

func (m *Manager) save() error {
	if dir := filepath.Dir(m.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	// The token never lands in the file when it came from the environment.
	persisted := m.cfg
	if os.Getenv("TMDB_ACCESS_TOKEN") != "" {
		persisted.TMDBAccessToken = ""
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return err
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp, m.path)
}
