package focus

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
)

const (
	// SettingDailyGoal is the daily focus target in seconds.
	SettingDailyGoal = "daily_goal"

	DefaultDailyGoal = 2 * 60 * 60
)

// Settings caches the signed-in user's key/value preferences.
type Settings struct {
	gw     Gateway
	users  UserSource
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]string
	closed bool
}

func NewSettings(gw Gateway, users UserSource, logger *slog.Logger) *Settings {
	return &Settings{gw: gw, users: users, logger: logger, values: make(map[string]string)}
}

func (s *Settings) Fetch(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	userID := s.users.UserID()
	if userID == "" {
		return nil
	}
	values, err := s.gw.GetAllSettings(ctx, userID)
	if err != nil {
		s.logger.Warn("settings fetch failed", "error", err)
		return fmt.Errorf("fetch settings: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.values = values
	return nil
}

func (s *Settings) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	if s.isClosed() {
		return ErrClosed
	}
	userID := s.users.UserID()
	if userID == "" {
		return ErrNoUser
	}
	if err := s.gw.SetSetting(ctx, userID, key, value); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.values[key] = value
	return nil
}

func (s *Settings) Delete(ctx context.Context, key string) error {
	if s.isClosed() {
		return ErrClosed
	}
	userID := s.users.UserID()
	if userID == "" {
		return ErrNoUser
	}
	if err := s.gw.DeleteSetting(ctx, userID, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	delete(s.values, key)
	return nil
}

// DailyGoal returns the daily focus target in seconds.
func (s *Settings) DailyGoal() int64 {
	v, ok := s.Get(SettingDailyGoal)
	if !ok {
		return DefaultDailyGoal
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return DefaultDailyGoal
	}
	return n
}

func (s *Settings) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
}

// Close detaches the cache. Mutations fail with ErrClosed and answers
// that arrive afterwards are dropped.
func (s *Settings) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Settings) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
