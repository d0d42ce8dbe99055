package focus

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sadopc/flow/internal/store"
)

// TaskInput is a task as the user enters it; the owner comes from the
// signed-in user.
type TaskInput struct {
	Title     string
	Category  store.TaskCategory
	Date      string
	StartTime string
	EndTime   string
}

// Tasks is the task list cache. Mutations go to the gateway first and
// only touch the cache once the gateway has answered.
type Tasks struct {
	gw     Gateway
	users  UserSource
	bus    *Bus
	logger *slog.Logger

	mu     sync.Mutex
	tasks  []store.Task
	err    error
	closed bool
}

func NewTasks(gw Gateway, users UserSource, bus *Bus, logger *slog.Logger) *Tasks {
	return &Tasks{gw: gw, users: users, bus: bus, logger: logger}
}

// FetchTasks replaces the cached tasks of date.
func (t *Tasks) FetchTasks(ctx context.Context, date string) error {
	userID := t.users.UserID()
	if userID == "" {
		return nil
	}
	got, err := t.gw.GetTasks(ctx, userID, date)
	if err != nil {
		return t.fail(fmt.Errorf("fetch tasks for %s: %w", date, err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	kept := t.tasks[:0:0]
	for _, task := range t.tasks {
		if task.Date != date {
			kept = append(kept, task)
		}
	}
	t.tasks = append(kept, got...)
	t.err = nil
	return nil
}

// FetchAll replaces the whole cache.
func (t *Tasks) FetchAll(ctx context.Context) error {
	userID := t.users.UserID()
	if userID == "" {
		return nil
	}
	got, err := t.gw.GetTasks(ctx, userID, "")
	if err != nil {
		return t.fail(fmt.Errorf("fetch tasks: %w", err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.tasks = got
	t.err = nil
	return nil
}

func (t *Tasks) Create(ctx context.Context, in TaskInput) (*store.Task, error) {
	userID := t.users.UserID()
	if userID == "" {
		return nil, ErrNoUser
	}
	task, err := t.gw.CreateTask(ctx, store.NewTask{
		UserID:    userID,
		Title:     in.Title,
		Category:  in.Category,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
	})
	if err != nil {
		return nil, t.fail(fmt.Errorf("create task: %w", err))
	}
	t.put(*task)
	return task, nil
}

func (t *Tasks) Update(ctx context.Context, id string, p store.TaskPatch) (*store.Task, error) {
	if t.users.UserID() == "" {
		return nil, ErrNoUser
	}
	task, err := t.gw.UpdateTask(ctx, id, p)
	if err != nil {
		return nil, t.fail(fmt.Errorf("update task: %w", err))
	}
	t.put(*task)
	return task, nil
}

func (t *Tasks) Delete(ctx context.Context, id string) error {
	if t.users.UserID() == "" {
		return ErrNoUser
	}
	if err := t.gw.DeleteTask(ctx, id); err != nil {
		return t.fail(fmt.Errorf("delete task: %w", err))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	for i, task := range t.tasks {
		if task.ID == id {
			t.tasks = append(t.tasks[:i], t.tasks[i+1:]...)
			break
		}
	}
	return nil
}

// Toggle flips completion on the server, replaces the cached record
// with the server's copy and announces TaskToggled for the task owner.
// On failure the cache is left as it was.
func (t *Tasks) Toggle(ctx context.Context, id string) (*store.Task, error) {
	if t.users.UserID() == "" {
		return nil, ErrNoUser
	}
	task, err := t.gw.ToggleTaskCompletion(ctx, id)
	if err != nil {
		return nil, t.fail(fmt.Errorf("toggle task: %w", err))
	}
	t.put(*task)
	if !t.bus.Publish(TaskToggled{UserID: task.UserID, Task: *task}) {
		t.logger.Warn("task event dropped, bus closed", "task", task.ID)
	}
	return task, nil
}

// TasksForDate returns the cached tasks of date ordered by start time.
func (t *Tasks) TasksForDate(date string) []store.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []store.Task
	for _, task := range t.tasks {
		if task.Date == date {
			out = append(out, task)
		}
	}
	sortTasks(out)
	return out
}

// All returns every cached task ordered by date, then start time.
func (t *Tasks) All() []store.Task {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]store.Task, len(t.tasks))
	copy(out, t.tasks)
	sortTasks(out)
	return out
}

func (t *Tasks) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Tasks) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = nil
	t.err = nil
}

func (t *Tasks) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

func (t *Tasks) put(task store.Task) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.err = nil
	for i := range t.tasks {
		if t.tasks[i].ID == task.ID {
			t.tasks[i] = task
			return
		}
	}
	t.tasks = append(t.tasks, task)
}

func (t *Tasks) fail(err error) error {
	t.logger.Warn("task call failed", "error", err)
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.err = err
	}
	return err
}

func sortTasks(tasks []store.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Date != tasks[j].Date {
			return tasks[i].Date < tasks[j].Date
		}
		return tasks[i].StartTime < tasks[j].StartTime
	})
}
