package focus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sadopc/flow/internal/store"
)

// Achievements evaluates unlocks after sessions and task toggles and
// keeps the unseen badge count.
type Achievements struct {
	gw     Gateway
	users  UserSource
	logger *slog.Logger

	mu       sync.Mutex
	all      []store.AchievementInfo
	unlocked []store.Achievement
	unseen   int
	err      error
	closed   bool
}

func NewAchievements(gw Gateway, users UserSource, logger *slog.Logger) *Achievements {
	return &Achievements{gw: gw, users: users, logger: logger}
}

// Evaluate asks the gateway to unlock whatever userID now qualifies for.
// New unlocks are queued for TakeUnlocked and refresh the unseen count
// and the catalog.
func (a *Achievements) Evaluate(ctx context.Context, userID string) ([]store.Achievement, error) {
	if userID == "" {
		return nil, nil
	}
	got, err := a.gw.CheckAndUnlockAchievements(ctx, userID)
	if err != nil {
		err = fmt.Errorf("check achievements: %w", err)
		a.setErr(err)
		return nil, err
	}
	if len(got) == 0 {
		return nil, nil
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return got, nil
	}
	a.unlocked = append(a.unlocked, got...)
	a.mu.Unlock()

	for _, ach := range got {
		a.logger.Info("achievement unlocked", "user", userID, "achievement", ach.Type)
	}
	if err := a.RefreshUnseen(ctx); err != nil {
		return got, err
	}
	return got, a.Fetch(ctx)
}

// TakeUnlocked returns the unlocks not yet shown and forgets them, so
// each one is announced once.
func (a *Achievements) TakeUnlocked() []store.Achievement {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.unlocked
	a.unlocked = nil
	return out
}

// RefreshUnseen reloads the unseen count.
func (a *Achievements) RefreshUnseen(ctx context.Context) error {
	userID := a.users.UserID()
	if userID == "" {
		return nil
	}
	n, err := a.gw.GetUnseenAchievementsCount(ctx, userID)
	if err != nil {
		err = fmt.Errorf("count unseen achievements: %w", err)
		a.setErr(err)
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.unseen = n
	}
	return nil
}

// MarkSeen clears the badge. It never evaluates unlocks.
func (a *Achievements) MarkSeen(ctx context.Context) error {
	userID := a.users.UserID()
	if userID == "" {
		return ErrNoUser
	}
	if err := a.gw.MarkAchievementsSeen(ctx, userID); err != nil {
		err = fmt.Errorf("mark achievements seen: %w", err)
		a.setErr(err)
		return err
	}
	return a.RefreshUnseen(ctx)
}

// Fetch reloads the catalog with unlock state.
func (a *Achievements) Fetch(ctx context.Context) error {
	userID := a.users.UserID()
	if userID == "" {
		return nil
	}
	infos, err := a.gw.GetAchievements(ctx, userID)
	if err != nil {
		err = fmt.Errorf("list achievements: %w", err)
		a.setErr(err)
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.all = infos
		a.err = nil
	}
	return nil
}

func (a *Achievements) UnseenCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.unseen
}

func (a *Achievements) All() []store.AchievementInfo {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]store.AchievementInfo, len(a.all))
	copy(out, a.all)
	return out
}

func (a *Achievements) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Handle is the Bus subscriber. Both events trigger an evaluation for
// the user they name.
func (a *Achievements) Handle(ctx context.Context, ev Event) error {
	var userID string
	switch e := ev.(type) {
	case SessionPersisted:
		userID = e.UserID
	case TaskToggled:
		userID = e.UserID
	default:
		return nil
	}
	_, err := a.Evaluate(ctx, userID)
	return err
}

func (a *Achievements) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.all = nil
	a.unlocked = nil
	a.unseen = 0
	a.err = nil
}

func (a *Achievements) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
}

func (a *Achievements) setErr(err error) {
	a.logger.Warn("achievements call failed", "error", err)
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.closed {
		a.err = err
	}
}
