package focus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/flow/internal/clock"
	"github.com/sadopc/flow/internal/store"
)

var epoch = time.Date(2026, 3, 14, 10, 0, 0, 0, time.Local)

var errBoom = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedUser string

func (u fixedUser) UserID() string { return string(u) }

// fakeGateway is an in-memory Gateway that counts calls and can be told
// to fail any of them.
type fakeGateway struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error

	user      *store.User
	sessions  []store.FocusSession
	daily     map[string]store.DailyStat
	userStats store.UserStats
	heatmap   []store.HeatmapPoint
	tasks     map[string]store.Task
	nextID    int

	// unlocks is returned (and cleared) by the next CheckAndUnlockAchievements.
	unlocks    []store.Achievement
	checkedFor []string
	unseen     int

	settings map[string]string

	// beforeDaily runs inside GetDailyStats before it answers.
	beforeDaily func(start, end string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		calls:    make(map[string]int),
		fail:     make(map[string]error),
		daily:    make(map[string]store.DailyStat),
		tasks:    make(map[string]store.Task),
		settings: make(map[string]string),
	}
}

// enter records a call to name and returns the injected failure, if any.
func (g *fakeGateway) enter(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[name]++
	return g.fail[name]
}

func (g *fakeGateway) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

func (g *fakeGateway) setFail(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[name] = err
}

func (g *fakeGateway) setDaily(stats ...store.DailyStat) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.daily = make(map[string]store.DailyStat)
	for _, s := range stats {
		g.daily[s.Date] = s
	}
}

func (g *fakeGateway) id(prefix string) string {
	g.nextID++
	return fmt.Sprintf("%s-%d", prefix, g.nextID)
}

func (g *fakeGateway) CreateFocusSession(ctx context.Context, in store.NewFocusSession) (*store.FocusSession, error) {
	if err := g.enter("CreateFocusSession"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	fs := store.FocusSession{
		ID:              g.id("session"),
		UserID:          in.UserID,
		DurationSeconds: in.DurationSeconds,
		StartedAt:       in.StartedAt,
		EndedAt:         in.EndedAt,
		Category:        in.Category,
		Notes:           in.Notes,
	}
	g.sessions = append(g.sessions, fs)
	return &fs, nil
}

func (g *fakeGateway) GetFocusSessions(ctx context.Context, userID string, limit int) ([]store.FocusSession, error) {
	if err := g.enter("GetFocusSessions"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]store.FocusSession(nil), g.sessions...), nil
}

func (g *fakeGateway) GetDailyStats(ctx context.Context, userID, start, end string) ([]store.DailyStat, error) {
	if err := g.enter("GetDailyStats"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	var out []store.DailyStat
	for date, s := range g.daily {
		if date >= start && date <= end {
			out = append(out, s)
		}
	}
	hook := g.beforeDaily
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	if hook != nil {
		hook(start, end)
	}
	return out, nil
}

func (g *fakeGateway) GetUserStats(ctx context.Context, userID string) (*store.UserStats, error) {
	if err := g.enter("GetUserStats"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	us := g.userStats
	return &us, nil
}

func (g *fakeGateway) GetHeatmapData(ctx context.Context, userID string) ([]store.HeatmapPoint, error) {
	if err := g.enter("GetHeatmapData"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]store.HeatmapPoint(nil), g.heatmap...), nil
}

func (g *fakeGateway) GetTasks(ctx context.Context, userID, date string) ([]store.Task, error) {
	if err := g.enter("GetTasks"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []store.Task
	for _, t := range g.tasks {
		if date == "" || t.Date == date {
			out = append(out, t)
		}
	}
	return out, nil
}

func (g *fakeGateway) CreateTask(ctx context.Context, in store.NewTask) (*store.Task, error) {
	if err := g.enter("CreateTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t := store.Task{
		ID:        g.id("task"),
		UserID:    in.UserID,
		Title:     in.Title,
		Category:  in.Category,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	}
	g.tasks[t.ID] = t
	return &t, nil
}

func (g *fakeGateway) UpdateTask(ctx context.Context, id string, p store.TaskPatch) (*store.Task, error) {
	if err := g.enter("UpdateTask"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	g.tasks[id] = t
	return &t, nil
}

func (g *fakeGateway) DeleteTask(ctx context.Context, id string) error {
	if err := g.enter("DeleteTask"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tasks, id)
	return nil
}

func (g *fakeGateway) ToggleTaskCompletion(ctx context.Context, id string) (*store.Task, error) {
	if err := g.enter("ToggleTaskCompletion"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tasks[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Completed = !t.Completed
	g.tasks[id] = t
	return &t, nil
}

func (g *fakeGateway) CheckAndUnlockAchievements(ctx context.Context, userID string) ([]store.Achievement, error) {
	if err := g.enter("CheckAndUnlockAchievements"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checkedFor = append(g.checkedFor, userID)
	out := g.unlocks
	g.unlocks = nil
	g.unseen += len(out)
	return out, nil
}

func (g *fakeGateway) GetAchievements(ctx context.Context, userID string) ([]store.AchievementInfo, error) {
	if err := g.enter("GetAchievements"); err != nil {
		return nil, err
	}
	return store.Catalog(), nil
}

func (g *fakeGateway) GetUnseenAchievementsCount(ctx context.Context, userID string) (int, error) {
	if err := g.enter("GetUnseenAchievementsCount"); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unseen, nil
}

func (g *fakeGateway) MarkAchievementsSeen(ctx context.Context, userID string) error {
	if err := g.enter("MarkAchievementsSeen"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unseen = 0
	return nil
}

func (g *fakeGateway) GetUsers(ctx context.Context) ([]store.User, error) {
	if err := g.enter("GetUsers"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil {
		return nil, nil
	}
	return []store.User{*g.user}, nil
}

func (g *fakeGateway) CreateUser(ctx context.Context, in store.NewUser) (*store.User, error) {
	if err := g.enter("CreateUser"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = &store.User{ID: g.id("user"), Name: in.Name, Email: in.Email}
	u := *g.user
	return &u, nil
}

func (g *fakeGateway) UpdateUser(ctx context.Context, id string, p store.UserPatch) (*store.User, error) {
	if err := g.enter("UpdateUser"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.user == nil || g.user.ID != id {
		return nil, store.ErrNotFound
	}
	if p.Name != nil {
		g.user.Name = *p.Name
	}
	u := *g.user
	return &u, nil
}

func (g *fakeGateway) DeleteUser(ctx context.Context, id string) error {
	if err := g.enter("DeleteUser"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.user = nil
	return nil
}

func (g *fakeGateway) GetAllSettings(ctx context.Context, userID string) (map[string]string, error) {
	if err := g.enter("GetAllSettings"); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]string, len(g.settings))
	for k, v := range g.settings {
		out[k] = v
	}
	return out, nil
}

func (g *fakeGateway) SetSetting(ctx context.Context, userID, key, value string) error {
	if err := g.enter("SetSetting"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings[key] = value
	return nil
}

func (g *fakeGateway) DeleteSetting(ctx context.Context, userID, key string) error {
	if err := g.enter("DeleteSetting"); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.settings, key)
	return nil
}

// newTestCore builds a Core over a fake gateway with a signed-in user.
func newTestCore(t *testing.T) (*Core, *fakeGateway, *clock.FakeClock) {
	t.Helper()
	gw := newFakeGateway()
	gw.user = &store.User{ID: "user-1", Name: "Ada"}
	clk := clock.Fake(epoch)
	c := New(gw, WithClock(clk), WithLogger(discardLogger()))
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start core: %v", err)
	}
	t.Cleanup(c.Close)
	return c, gw, clk
}
