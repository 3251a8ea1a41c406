// Package config loads hub settings.
//
// PRECEDENCE (lowest to highest):
//
//	defaults → YAML file (--config) → .env files → HUB_* environment → CLI flags
//
// .env files only fill in variables that aren't already set in the real
// environment, so they sit between the file and the environment. Flags are
// applied by the cmd package after Load returns.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the hub binary needs to start.
type Config struct {
	// APIURL is the base URL of the remote ResourceHub API.
	APIURL string `yaml:"api_url"`
	// IdentityPath, when set, enables a dedicated "who am I" endpoint
	// (e.g. "/auth/me"). Empty means identity is inferred.
	IdentityPath string `yaml:"identity_path"`
	// DBPath is the SQLite file holding the session token.
	DBPath string `yaml:"db_path"`
	// Ephemeral keeps the session in memory only. Flag-only.
	Ephemeral bool `yaml:"-"`

	Port        string        `yaml:"port"`
	VisitSecret string        `yaml:"visit_secret"`
	VisitTTL    time.Duration `yaml:"visit_ttl"`

	ReconcileDelay time.Duration `yaml:"reconcile_delay"`
	HTTPTimeout    time.Duration `yaml:"http_timeout"`
	LogLevel       string        `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIURL:         "http://localhost:8080",
		DBPath:         defaultDBPath(),
		Port:           "3000",
		VisitTTL:       15 * time.Minute,
		ReconcileDelay: 500 * time.Millisecond,
		HTTPTimeout:    15 * time.Second,
		LogLevel:       "info",
	}
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "resourcehub.db"
	}
	return filepath.Join(dir, "resourcehub", "session.db")
}

// LoadDotEnv reads .env.local and then .env from dir, if present.
// Variables already in the environment win.
func LoadDotEnv(dir string) {
	for _, name := range []string{".env.local", ".env"} {
		_ = godotenv.Load(filepath.Join(dir, name))
	}
}

// Load builds a Config from defaults, the YAML file at path (optional; a
// missing file is not an error), and HUB_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("HUB_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := os.Getenv("HUB_IDENTITY_PATH"); v != "" {
		c.IdentityPath = v
	}
	if v := os.Getenv("HUB_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("HUB_PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("HUB_VISIT_SECRET"); v != "" {
		c.VisitSecret = v
	}
	if v := os.Getenv("HUB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HUB_RECONCILE_DELAY", &c.ReconcileDelay},
		{"HUB_HTTP_TIMEOUT", &c.HTTPTimeout},
		{"HUB_VISIT_TTL", &c.VisitTTL},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("config: api url %q must be an absolute http(s) URL", c.APIURL)
	}
	if c.IdentityPath != "" && !strings.HasPrefix(c.IdentityPath, "/") {
		return fmt.Errorf("config: identity path %q must start with /", c.IdentityPath)
	}
	if !c.Ephemeral && c.DBPath == "" {
		return errors.New("config: db path is required unless running ephemeral")
	}
	if c.ReconcileDelay < 0 || c.HTTPTimeout <= 0 || c.VisitTTL <= 0 {
		return errors.New("config: durations must be positive")
	}
	if c.VisitSecret != "" && len(c.VisitSecret) < 16 {
		return errors.New("config: visit secret must be at least 16 characters")
	}
	return nil
}

// EnsureVisitSecret fills in a random visit secret when none is configured.
// Visits live in memory, so a per-process secret loses nothing on restart.
func (c *Config) EnsureVisitSecret() error {
	if c.VisitSecret != "" {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("config: generating visit secret: %w", err)
	}
	c.VisitSecret = hex.EncodeToString(buf)
	return nil
}

// Addr is the listen address of the local web front.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
