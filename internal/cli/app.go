package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sadopc/flow/internal/config"
	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

// app is everything a command needs, opened from the merged config.
type app struct {
	cfg     *config.Config
	store   *store.Store
	core    *focus.Core
	logger  *slog.Logger
	logFile *os.File
}

func openApp(ctx context.Context) (*app, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, logFile, err := openLogger(cfg)
	if err != nil {
		return nil, err
	}

	s, err := store.New(cfg.DBPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}

	core := focus.New(s,
		focus.WithLogger(logger),
		focus.WithCategory(cfg.Session.Category),
	)
	a := &app{cfg: cfg, store: s, core: core, logger: logger, logFile: logFile}
	if err := core.Start(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("load profile: %w", err)
	}
	logger.Debug("opened", "db", cfg.DBPath)
	return a, nil
}

// Close drains the core before the database goes away.
func (a *app) Close() {
	a.core.Close()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", "error", err)
	}
	a.logFile.Close()
}

// requireUser returns the signed-in user or an error telling how to
// create one.
func (a *app) requireUser() (*store.User, error) {
	u := a.core.Identity.User()
	if u == nil {
		return nil, fmt.Errorf("no profile yet: run 'flow profile create --name <name>' or open 'flow'")
	}
	return u, nil
}

// openLogger sends the text log to cfg.LogPath. The terminal belongs to
// the interactive view.
func openLogger(cfg *config.Config) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	h := slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.Level()})
	return slog.New(h), f, nil
}
