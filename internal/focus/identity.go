package focus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sadopc/flow/internal/store"
)

// Identity holds the single local profile. Every user-scoped component
// reads the current user id from it.
type Identity struct {
	gw     Gateway
	logger *slog.Logger

	mu   sync.RWMutex
	user *store.User
}

func NewIdentity(gw Gateway, logger *slog.Logger) *Identity {
	return &Identity{gw: gw, logger: logger}
}

// Initialize loads the existing profile, if any. flow keeps one local
// profile; should the database hold more, the oldest wins.
func (i *Identity) Initialize(ctx context.Context) (*store.User, error) {
	users, err := i.gw.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	if len(users) == 0 {
		i.set(nil)
		return nil, nil
	}
	if len(users) > 1 {
		i.logger.Warn("several local profiles, using the oldest", "count", len(users), "user", users[0].ID)
	}
	u := users[0]
	i.set(&u)
	return &u, nil
}

// User returns a copy of the signed-in user, or nil.
func (i *Identity) User() *store.User {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return nil
	}
	u := *i.user
	return &u
}

func (i *Identity) UserID() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.user == nil {
		return ""
	}
	return i.user.ID
}

// SignUp creates the local profile and signs it in.
func (i *Identity) SignUp(ctx context.Context, in store.NewUser) (*store.User, error) {
	u, err := i.gw.CreateUser(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	i.set(u)
	i.logger.Info("user created", "user", u.ID)
	return u, nil
}

func (i *Identity) Update(ctx context.Context, p store.UserPatch) (*store.User, error) {
	id := i.UserID()
	if id == "" {
		return nil, ErrNoUser
	}
	u, err := i.gw.UpdateUser(ctx, id, p)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	i.set(u)
	return u, nil
}

// Logout deletes the profile together with all of its data.
func (i *Identity) Logout(ctx context.Context) error {
	id := i.UserID()
	if id == "" {
		return ErrNoUser
	}
	if err := i.gw.DeleteUser(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	i.set(nil)
	i.logger.Info("user deleted", "user", id)
	return nil
}

func (i *Identity) set(u *store.User) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.user = u
}
