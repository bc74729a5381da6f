package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath = "INBOXQ_CONFIG"
	EnvStore      = "INBOXQ_STORE"
	EnvRedisAddr  = "INBOXQ_REDIS_ADDR"
	EnvRedisDB    = "INBOXQ_REDIS_DB"
	EnvStateDir   = "INBOXQ_STATE_DIR"
	EnvSQLitePath = "INBOXQ_SQLITE_PATH"
	EnvServerAddr = "INBOXQ_SERVER_ADDR"
)

// Settings is the local configuration file.
type Settings struct {
	Storage StorageSettings `yaml:"storage"`
	List    ListSettings    `yaml:"list"`
	Server  ServerSettings  `yaml:"server"`
	Watch   WatchSettings   `yaml:"watch"`
	API     APISettings     `yaml:"api"`
}

// StorageSettings selects where saved filters and preferences live.
type StorageSettings struct {
	Backend  string        `yaml:"backend"`
	StateDir string        `yaml:"stateDir"`
	Redis    RedisSettings `yaml:"redis"`
	SQLite   string        `yaml:"sqlitePath"`
	Slot     string        `yaml:"slot"`
}

// RedisSettings configures the redis backend.
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// ListSettings seeds session defaults before persisted preferences apply.
type ListSettings struct {
	PerPage   int    `yaml:"perPage"`
	SortBy    string `yaml:"sortBy"`
	SortOrder string `yaml:"sortOrder"`
}

// ServerSettings configures `inboxq serve`.
type ServerSettings struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// WatchSettings configures `inboxq watch`.
type WatchSettings struct {
	Interval time.Duration `yaml:"interval"`
}

// APISettings tunes retries against the conversation listing service.
type APISettings struct {
	RateLimitRetries   int           `yaml:"rateLimitRetries"`
	ServerErrorRetries int           `yaml:"serverErrorRetries"`
	BreakerThreshold   int           `yaml:"breakerThreshold"`
	BreakerCooldown    time.Duration `yaml:"breakerCooldown"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		Storage: StorageSettings{
			Backend: "file",
		},
		Server: ServerSettings{
			Addr:           ":8787",
			AllowedOrigins: []string{"*"},
		},
		Watch: WatchSettings{Interval: 30 * time.Second},
		API: APISettings{
			RateLimitRetries:   3,
			ServerErrorRetries: 1,
			BreakerThreshold:   5,
			BreakerCooldown:    30 * time.Second,
		},
	}
}

// SettingsPath returns INBOXQ_CONFIG or "$XDG_CONFIG_HOME/inboxq/config.yaml".
func SettingsPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	dir, err := userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, serviceName, "config.yaml"), nil
}

// LoadSettings reads path over the defaults and applies env overrides. An
// empty path resolves via SettingsPath; a missing default file is not an
// error, but a missing explicit file is.
func LoadSettings(path string) (Settings, error) {
	explicit := path != "" || strings.TrimSpace(os.Getenv(EnvConfigPath)) != ""
	if path == "" {
		p, err := SettingsPath()
		if err != nil {
			return Settings{}, err
		}
		path = p
	}

	s := DefaultSettings()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case errors.Is(err, fs.ErrNotExist):
		return Settings{}, fmt.Errorf("config file %s not found: %w", path, err)
	case err != nil:
		return Settings{}, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&s)
	return s, nil
}

func applyEnvOverrides(s *Settings) {
	if v := strings.TrimSpace(os.Getenv(EnvStore)); v != "" {
		s.Storage.Backend = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisAddr)); v != "" {
		s.Storage.Redis.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvRedisDB)); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			s.Storage.Redis.DB = db
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateDir)); v != "" {
		s.Storage.StateDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSQLitePath)); v != "" {
		s.Storage.SQLite = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		s.Server.Addr = v
	}
}

// Save writes s as YAML to path, creating the directory.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
