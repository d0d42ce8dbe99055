package focus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sadopc/flow/internal/clock"
	"github.com/sadopc/flow/internal/store"
)

// Core owns every focus component and their shared bus. Build one with
// New when the app starts and Close it on exit.
type Core struct {
	Identity     *Identity
	Timer        *Timer
	Recorder     *Recorder
	Stats        *Stats
	Achievements *Achievements
	Tasks        *Tasks
	Settings     *Settings
	Bus          *Bus

	clock     clock.Clock
	logger    *slog.Logger
	closeOnce sync.Once
}

type options struct {
	clock    clock.Clock
	logger   *slog.Logger
	category string
}

type Option func(*options)

func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithCategory sets the category stamped on recorded sessions.
func WithCategory(category string) Option {
	return func(o *options) { o.category = category }
}

func New(gw Gateway, opts ...Option) *Core {
	o := options{
		clock:    clock.Real(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		category: "focus",
	}
	for _, opt := range opts {
		opt(&o)
	}

	bus := NewBus(o.logger.With("component", "bus"))
	identity := NewIdentity(gw, o.logger.With("component", "identity"))
	recorder := NewRecorder(gw, bus, o.logger.With("component", "recorder"), o.category)

	c := &Core{
		Identity:     identity,
		Recorder:     recorder,
		Timer:        NewTimer(o.clock, recorder, identity, o.logger.With("component", "timer")),
		Stats:        NewStats(gw, identity, o.clock, o.logger.With("component", "stats")),
		Achievements: NewAchievements(gw, identity, o.logger.With("component", "achievements")),
		Tasks:        NewTasks(gw, identity, bus, o.logger.With("component", "tasks")),
		Settings:     NewSettings(gw, identity, o.logger.With("component", "settings")),
		Bus:          bus,
		clock:        o.clock,
		logger:       o.logger,
	}
	bus.Subscribe("stats", c.Stats.Handle)
	bus.Subscribe("achievements", c.Achievements.Handle)
	return c
}

// Start loads the local profile and, if there is one, its data.
func (c *Core) Start(ctx context.Context) error {
	u, err := c.Identity.Initialize(ctx)
	if err != nil {
		return err
	}
	if u == nil {
		c.logger.Info("no local profile yet")
		return nil
	}
	return c.Load(ctx)
}

// Load fills every cache for the signed-in user. Failures are joined;
// whatever loaded stays available.
func (c *Core) Load(ctx context.Context) error {
	return errors.Join(
		c.Stats.Refresh(ctx),
		c.Tasks.FetchTasks(ctx, store.DateKey(c.clock.Now())),
		c.Achievements.Fetch(ctx),
		c.Achievements.RefreshUnseen(ctx),
		c.Settings.Fetch(ctx),
	)
}

// SignUp creates the local profile and loads its (empty) data.
func (c *Core) SignUp(ctx context.Context, in store.NewUser) (*store.User, error) {
	u, err := c.Identity.SignUp(ctx, in)
	if err != nil {
		return nil, err
	}
	return u, c.Load(ctx)
}

// Logout deletes the profile and clears every cache.
func (c *Core) Logout(ctx context.Context) error {
	if err := c.Timer.Reset(); err != nil && !errors.Is(err, ErrInvalidTransition) {
		return err
	}
	if err := c.Identity.Logout(ctx); err != nil {
		return err
	}
	c.Bus.Wait()
	c.Stats.Reset()
	c.Achievements.Reset()
	c.Tasks.Reset()
	c.Settings.Reset()
	return nil
}

// Today is the local calendar date according to the core's clock.
func (c *Core) Today() string {
	return store.DateKey(c.clock.Now())
}

// Close stops the timer, drains pending events and detaches the caches
// so late gateway answers are dropped.
func (c *Core) Close() {
	c.closeOnce.Do(func() {
		c.Timer.Close()
		c.Bus.Close()
		c.Stats.Close()
		c.Achievements.Close()
		c.Tasks.Close()
		c.Settings.Close()
	})
}
