package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultURL   = "http://localhost:8000"
	defaultStore = "fs"
	appDir       = ".concierge"
)

// fileConfig is the YAML config file. Every field is optional.
type fileConfig struct {
	URL         string        `yaml:"url"`
	Token       string        `yaml:"token"`
	User        string        `yaml:"user"`
	Store       string        `yaml:"store"`
	DataDir     string        `yaml:"data_dir"`
	RedisURL    string        `yaml:"redis_url"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
	LogFile     string        `yaml:"log_file"`
	Watchdog    time.Duration `yaml:"watchdog"`
	MaxSessions int           `yaml:"max_sessions"`
}

// flagValues holds parsed flags. Zero values mean "not set".
type flagValues struct {
	url      string
	token    string
	user     string
	store    string
	dataDir  string
	redisURL string
	logFile  string
	watchdog time.Duration
}

// envValues holds the environment variables the command reads. Env is only
// read in main and passed in as values.
type envValues struct {
	url      string
	token    string
	user     string
	password string
}

// config is the resolved configuration.
type config struct {
	url         string
	token       string
	user        string
	password    string
	store       string
	dataDir     string
	redisURL    string
	redisTTL    time.Duration
	logFile     string
	watchdog    time.Duration
	maxSessions int
}

// loadConfigFile reads the YAML config at path. A missing file yields an
// empty config unless required is set.
func loadConfigFile(path string, required bool) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// resolveConfig merges flags, environment, config file and defaults, in that
// order of precedence.
func resolveConfig(f flagValues, env envValues, file fileConfig, home string) (config, error) {
	cfg := config{
		url:         first(f.url, env.url, file.URL, defaultURL),
		token:       first(f.token, env.token, file.Token),
		user:        first(f.user, env.user, file.User),
		password:    env.password,
		store:       first(f.store, file.Store, defaultStore),
		dataDir:     first(f.dataDir, file.DataDir, filepath.Join(home, appDir)),
		redisURL:    first(f.redisURL, file.RedisURL),
		redisTTL:    file.RedisTTL,
		logFile:     first(f.logFile, file.LogFile, filepath.Join(home, appDir, "concierge.log")),
		watchdog:    firstDuration(f.watchdog, file.Watchdog),
		maxSessions: file.MaxSessions,
	}

	switch cfg.store {
	case "fs", "sqlite":
	case "redis":
		if cfg.redisURL == "" {
			return config{}, errors.New("store redis requires -redis-url or redis_url in the config file")
		}
	default:
		return config{}, fmt.Errorf("unknown store %q: must be \"fs\", \"sqlite\" or \"redis\"", cfg.store)
	}
	if cfg.watchdog < 0 {
		return config{}, fmt.Errorf("watchdog must be positive, got %s", cfg.watchdog)
	}
	if cfg.maxSessions < 0 {
		return config{}, fmt.Errorf("max_sessions must not be negative, got %d", cfg.maxSessions)
	}
	return cfg, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
