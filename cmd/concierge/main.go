// Command concierge is a terminal client for the shopping and travel
// assistant.
//
// Usage:
//
//	concierge [flags]
//
// Flags:
//
//	-url string        Backend base URL (default http://localhost:8000)
//	-token string      Bearer token (skips login)
//	-user string       Username to log in with; the password is read from CONCIERGE_PASSWORD
//	-config string     Path to YAML config (default ~/.concierge/config.yaml)
//	-store string      Session store: fs, sqlite, redis (default fs)
//	-data-dir string   Directory for the fs and sqlite stores (default ~/.concierge)
//	-redis-url string  Redis URL for the redis store
//	-log string        Log file, "-" disables logging (default ~/.concierge/concierge.log)
//	-debug             Log at debug level
//	-watchdog duration Give up on a response after this long (default 2m0s)
//	-session string    Resume a cached session by ID
//	-list              List cached sessions and exit
//	-delete string     Delete a cached session and exit
//
// Environment variables CONCIERGE_URL, CONCIERGE_TOKEN, CONCIERGE_USER and
// CONCIERGE_PASSWORD are read after a .env file in the working directory is
// loaded. Flags take precedence over the environment, which takes
// precedence over the config file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fwojciec/concierge"
	"github.com/fwojciec/concierge/backend"
	bt "github.com/fwojciec/concierge/bubbletea"
	cjson "github.com/fwojciec/concierge/json"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "concierge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse flags.
	var (
		f          flagValues
		configPath = flag.String("config", "", "Path to YAML config (default ~/.concierge/config.yaml)")
		debug      = flag.Bool("debug", false, "Log at debug level")
		sessionID  = flag.String("session", "", "Resume a cached session by ID")
		list       = flag.Bool("list", false, "List cached sessions and exit")
		deleteID   = flag.String("delete", "", "Delete a cached session and exit")
	)
	flag.StringVar(&f.url, "url", "", "Backend base URL (default "+defaultURL+")")
	flag.StringVar(&f.token, "token", "", "Bearer token (skips login)")
	flag.StringVar(&f.user, "user", "", "Username to log in with; the password is read from CONCIERGE_PASSWORD")
	flag.StringVar(&f.store, "store", "", "Session store: fs, sqlite, redis (default fs)")
	flag.StringVar(&f.dataDir, "data-dir", "", "Directory for the fs and sqlite stores (default ~/.concierge)")
	flag.StringVar(&f.redisURL, "redis-url", "", "Redis URL for the redis store")
	flag.StringVar(&f.logFile, "log", "", `Log file, "-" disables logging (default ~/.concierge/concierge.log)`)
	flag.DurationVar(&f.watchdog, "watchdog", 0, "Give up on a response after this long (default 2m0s)")
	flag.Parse()

	// Handle OS signals for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	path, required := *configPath, true
	if path == "" {
		path, required = filepath.Join(home, appDir, "config.yaml"), false
	}
	file, err := loadConfigFile(path, required)
	if err != nil {
		return err
	}

	// Env vars are read here and passed as values.
	cfg, err := resolveConfig(f, envValues{
		url:      os.Getenv("CONCIERGE_URL"),
		token:    os.Getenv("CONCIERGE_TOKEN"),
		user:     os.Getenv("CONCIERGE_USER"),
		password: os.Getenv("CONCIERGE_PASSWORD"),
	}, file, home)
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.logFile, *debug)
	if err != nil {
		return err
	}
	defer closeLog()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.store, err)
	}
	defer closeStore()

	var repoOpts []cjson.RepositoryOption
	if cfg.maxSessions > 0 {
		repoOpts = append(repoOpts, cjson.WithLimit(cfg.maxSessions))
	}
	repo := cjson.NewSessionRepository(store, repoOpts...)

	switch {
	case *list:
		sessions, err := repo.List(ctx)
		if err != nil {
			return err
		}
		return printSessions(os.Stdout, sessions)
	case *deleteID != "":
		return repo.Delete(ctx, *deleteID)
	}

	session, err := loadOrCreateSession(ctx, repo, *sessionID)
	if err != nil {
		return err
	}

	clientOpts := []backend.Option{
		backend.WithBaseURL(cfg.url),
		backend.WithLogger(logger),
	}
	token := cfg.token
	if token == "" && cfg.user != "" {
		if cfg.password == "" {
			return errors.New("login: CONCIERGE_PASSWORD is not set")
		}
		token, err = backend.New(clientOpts...).Login(ctx, cfg.user, cfg.password)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		logger.Info("logged in", "user", cfg.user)
	}
	if token != "" {
		clientOpts = append(clientOpts, backend.WithToken(token))
	}
	client := backend.New(clientOpts...)

	var machineOpts []concierge.MachineOption
	if cfg.watchdog > 0 {
		machineOpts = append(machineOpts, concierge.WithWatchdog(cfg.watchdog))
	}

	// Create and run TUI.
	tuiModel := bt.New(client, &session, concierge.DefaultTheme(),
		bt.WithSessionSaver(repo),
		bt.WithLogger(logger),
		bt.WithMachineOptions(machineOpts...),
	)
	logger.Info("starting", "url", cfg.url, "store", cfg.store, "session", session.ID)

	if err := bt.Run(ctx, tuiModel); err != nil {
		return fmt.Errorf("TUI: %w", err)
	}

	if len(session.Messages) > 0 {
		fmt.Fprintf(os.Stderr, "Resume with: concierge -session %s\n", session.ID)
	}
	return nil
}

func loadOrCreateSession(ctx context.Context, repo *cjson.SessionRepository, id string) (concierge.Session, error) {
	if id == "" {
		return concierge.NewSession(time.Now()), nil
	}
	s, err := repo.Load(ctx, id)
	if err != nil {
		return concierge.Session{}, fmt.Errorf("load session: %w", err)
	}
	return s, nil
}

// openLogger returns a text logger writing to path. The TUI owns the
// terminal, so logs never go to stderr.
func openLogger(path string, debug bool) (*slog.Logger, func(), error) {
	if path == "-" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, func() { _ = f.Close() }, nil
}
