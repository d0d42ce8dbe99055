package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sadopc/flow/internal/store"
)

// Commands share package-level flag state, so these tests run serially
// and pass every flag they depend on.

type testEnv struct {
	dir    string
	cfg    string
	dbPath string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	env := testEnv{
		dir:    dir,
		cfg:    filepath.Join(dir, "flow.yaml"),
		dbPath: filepath.Join(dir, "flow.db"),
	}
	content := fmt.Sprintf("db_path: %s\nlog_path: %s\nlog_level: debug\n", env.dbPath, filepath.Join(dir, "flow.log"))
	if err := os.WriteFile(env.cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return env
}

func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.Version = "test"
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", e.cfg}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func (e testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("flow %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// seed opens the database directly, creates a profile and hands it to fn.
func (e testEnv) seed(t *testing.T, fn func(s *store.Store, u *store.User)) {
	t.Helper()
	s, err := store.New(e.dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	ctx := context.Background()
	u, err := s.GetUser(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil {
		if u, err = s.CreateUser(ctx, store.NewUser{Name: "Ada"}); err != nil {
			t.Fatal(err)
		}
	}
	if fn != nil {
		fn(s, u)
	}
}

func todayAt(hour, minute int) time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.Local)
}

// ============================================================
// Profile
// ============================================================

func TestProfileLifecycle(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.run(t, "profile"); err == nil || !strings.Contains(err.Error(), "no profile yet") {
		t.Fatalf("expected no-profile error, got %v", err)
	}

	out := env.mustRun(t, "profile", "create", "--name", "Ada", "--email", "ada@example.com")
	if !strings.Contains(out, "Created profile Ada") {
		t.Fatalf("unexpected create output: %q", out)
	}

	out = env.mustRun(t, "profile")
	if !strings.Contains(out, "Ada") || !strings.Contains(out, "ada@example.com") {
		t.Fatalf("unexpected profile output: %q", out)
	}

	if _, err := env.run(t, "profile", "create", "--name", "Bob", "--email", ""); err == nil {
		t.Fatal("expected error creating a second profile")
	}

	if _, err := env.run(t, "profile", "delete", "--yes=false"); err == nil {
		t.Fatal("expected delete without --yes to fail")
	}

	out = env.mustRun(t, "profile", "delete", "--yes")
	if !strings.Contains(out, "Deleted profile Ada") {
		t.Fatalf("unexpected delete output: %q", out)
	}
	if _, err := env.run(t, "profile"); err == nil {
		t.Fatal("profile should be gone")
	}
}

func TestProfileCreateRequiresName(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "profile", "create", "--name", "", "--email", ""); err == nil {
		t.Fatal("expected error without --name")
	}
}

// ============================================================
// Tasks
// ============================================================

func TestTasksAddListToggleRemove(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, nil)

	out := env.mustRun(t, "tasks", "add", "Write report",
		"--date", "2026-03-14", "--category", "Event", "--start", "09:00", "--end", "10:00")
	if !strings.Contains(out, "Added") || !strings.Contains(out, "Write report") {
		t.Fatalf("unexpected add output: %q", out)
	}

	out = env.mustRun(t, "tasks", "--date", "2026-03-14")
	for _, want := range []string{"Tasks for 2026-03-14 (1)", "[ ]", "09:00-10:00", "Event", "Write report"} {
		if !strings.Contains(out, want) {
			t.Errorf("list output missing %q:\n%s", want, out)
		}
	}

	var id string
	env.seed(t, func(s *store.Store, u *store.User) {
		tasks, err := s.GetTasks(context.Background(), u.ID, "2026-03-14")
		if err != nil || len(tasks) != 1 {
			t.Fatalf("tasks = %v, err = %v", tasks, err)
		}
		id = tasks[0].ID
	})

	out = env.mustRun(t, "tasks", "done", id[:8])
	if !strings.Contains(out, "[x]") {
		t.Fatalf("task not completed: %q", out)
	}

	out = env.mustRun(t, "tasks", "rm", id)
	if !strings.Contains(out, "Deleted "+id[:8]) {
		t.Fatalf("unexpected rm output: %q", out)
	}

	out = env.mustRun(t, "tasks", "--date", "2026-03-14")
	if !strings.Contains(out, "No tasks for 2026-03-14") {
		t.Fatalf("expected empty list, got %q", out)
	}
}

func TestTasksRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, nil)

	if _, err := env.run(t, "tasks", "--date", "14/03/2026"); err == nil {
		t.Error("expected error for bad date")
	}
	if _, err := env.run(t, "tasks", "add", "x", "--date", "2026-03-14", "--category", "Chore", "--start", "", "--end", ""); err == nil {
		t.Error("expected error for unknown category")
	}
	if _, err := env.run(t, "tasks", "done", "nope"); err == nil {
		t.Error("expected error for unknown task id")
	}
}

func TestTasksRequireProfile(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "tasks", "add", "x", "--date", "2026-03-14", "--category", "To Do", "--start", "", "--end", "")
	if err == nil || !strings.Contains(err.Error(), "no profile yet") {
		t.Fatalf("expected no-profile error, got %v", err)
	}
}

// ============================================================
// Stats, sessions, export
// ============================================================

func seedSession(t *testing.T, env testEnv) {
	t.Helper()
	env.seed(t, func(s *store.Store, u *store.User) {
		start := todayAt(0, 1)
		_, err := s.CreateFocusSession(context.Background(), store.NewFocusSession{
			UserID:          u.ID,
			DurationSeconds: 1800,
			StartedAt:       start,
			EndedAt:         start.Add(30 * time.Minute),
			Category:        "focus",
		})
		if err != nil {
			t.Fatal(err)
		}
	})
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env)

	out := env.mustRun(t, "stats")
	for _, want := range []string{"Today", "00:30:00 of 02:00:00", "Last 7 days", "30m", "All time", "Streak"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestSessions(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env)

	out := env.mustRun(t, "sessions", "--limit", "5")
	if !strings.Contains(out, "Recent sessions (1)") || !strings.Contains(out, "00:30:00") {
		t.Fatalf("unexpected sessions output:\n%s", out)
	}
}

func TestExportJSON(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env)
	path := filepath.Join(env.dir, "out.json")

	env.mustRun(t, "export", "--format", "json", "--out", path)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var bundle map[string]any
	if err := json.Unmarshal(data, &bundle); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	sessions, ok := bundle["focus_sessions"].([]any)
	if !ok || len(sessions) != 1 {
		t.Fatalf("focus_sessions = %v", bundle["focus_sessions"])
	}
}

func TestExportCSVToStdout(t *testing.T) {
	env := newTestEnv(t)
	seedSession(t, env)

	out := env.mustRun(t, "export", "--format", "csv", "--out", "-")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %d lines:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "ID,Date") {
		t.Errorf("unexpected header %q", lines[0])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "export", "--format", "xml", "--out", "-"); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestImportRestoresExport(t *testing.T) {
	src := newTestEnv(t)
	seedSession(t, src)
	path := filepath.Join(src.dir, "backup.json")
	src.mustRun(t, "export", "--format", "json", "--out", path)

	dst := newTestEnv(t)
	out := dst.mustRun(t, "import", path)
	if !strings.Contains(out, "Created profile Ada") || !strings.Contains(out, "Imported 1 sessions") {
		t.Fatalf("unexpected import output:\n%s", out)
	}
	out = dst.mustRun(t, "sessions", "--limit", "10")
	if !strings.Contains(out, "Recent sessions (1)") || !strings.Contains(out, "00:30:00") {
		t.Fatalf("unexpected sessions after import:\n%s", out)
	}

	out = dst.mustRun(t, "import", path)
	if !strings.Contains(out, "Imported 0 sessions") || strings.Contains(out, "Created profile") {
		t.Fatalf("second import should add nothing:\n%s", out)
	}
}

func TestImportMissingFile(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.run(t, "import", filepath.Join(env.dir, "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// ============================================================
// Config and version
// ============================================================

func TestConfigCommands(t *testing.T) {
	env := newTestEnv(t)

	out := env.mustRun(t, "config", "path")
	if strings.TrimSpace(out) != env.cfg {
		t.Errorf("config path = %q, want %q", out, env.cfg)
	}

	out = env.mustRun(t, "config", "show")
	if !strings.Contains(out, "db_path: "+env.dbPath) || !strings.Contains(out, "log_level: debug") {
		t.Errorf("unexpected config show:\n%s", out)
	}

	if _, err := env.run(t, "config", "init"); err == nil {
		t.Error("init should refuse to overwrite an existing file")
	}

	fresh := testEnv{cfg: filepath.Join(env.dir, "fresh", "flow.yaml")}
	out = fresh.mustRun(t, "config", "init")
	if !strings.Contains(out, "Wrote") {
		t.Errorf("unexpected init output: %q", out)
	}
	if _, err := os.Stat(fresh.cfg); err != nil {
		t.Errorf("config not written: %v", err)
	}
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "version")
	if strings.TrimSpace(out) != "flow test" {
		t.Fatalf("version output = %q", out)
	}
}

func TestClockTime(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{3661, "01:01:01"},
		{36000, "10:00:00"},
	}
	for _, tt := range tests {
		if got := clockTime(tt.secs); got != tt.want {
			t.Errorf("clockTime(%d) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}
