package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ImportData is a user's history read back from a backup.
type ImportData struct {
	User         User
	Sessions     []FocusSession
	Tasks        []Task
	Achievements []Achievement
	Settings     map[string]string
}

// ImportResult counts the rows an import actually added. Rows whose id
// is already present are skipped and not counted.
type ImportResult struct {
	UserID       string
	UserCreated  bool
	Sessions     int
	Tasks        int
	Achievements int
	Settings     int
}

func (r *ImportResult) String() string {
	return fmt.Sprintf("Imported %d sessions, %d tasks, %d achievements, %d settings",
		r.Sessions, r.Tasks, r.Achievements, r.Settings)
}

// ImportBundle merges in into the local profile in one transaction. The
// profile is created from in.User when the database has none; otherwise
// everything lands on the existing profile. Each imported session is
// folded into daily_stats the same way CreateFocusSession does it, so
// importing the same backup twice changes nothing.
func (s *Store) ImportBundle(ctx context.Context, in ImportData) (*ImportResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res := &ImportResult{}
	if res.UserID, res.UserCreated, err = s.importUser(ctx, tx, in.User); err != nil {
		return nil, err
	}
	now := s.now()

	for _, fs := range in.Sessions {
		if fs.DurationSeconds <= 0 {
			return nil, fmt.Errorf("import session %s: invalid duration %d", fs.ID, fs.DurationSeconds)
		}
		id := fs.ID
		if id == "" {
			id = s.newID()
		}
		r, err := tx.ExecContext(ctx,
			`INSERT INTO focus_sessions (id, user_id, duration_seconds, started_at, ended_at, category, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			id, res.UserID, fs.DurationSeconds,
			fs.StartedAt.Format(time.RFC3339), fs.EndedAt.Format(time.RFC3339),
			fs.Category, fs.Notes, now,
		)
		if err != nil {
			return nil, fmt.Errorf("import session %s: %w", id, err)
		}
		if n, _ := r.RowsAffected(); n == 0 {
			continue
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO daily_stats (id, user_id, date, total_focus_seconds, session_count)
			 VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT(user_id, date) DO UPDATE SET
			   total_focus_seconds = total_focus_seconds + excluded.total_focus_seconds,
			   session_count = session_count + 1`,
			s.newID(), res.UserID, DateKey(fs.StartedAt), fs.DurationSeconds,
		)
		if err != nil {
			return nil, fmt.Errorf("upsert daily stats: %w", err)
		}
		res.Sessions++
	}

	for _, t := range in.Tasks {
		if !t.Category.Valid() {
			return nil, fmt.Errorf("import task %s: unknown category %q", t.ID, t.Category)
		}
		id := t.ID
		if id == "" {
			id = s.newID()
		}
		r, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, user_id, title, category, date, start_time, end_time, completed, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO NOTHING`,
			id, res.UserID, t.Title, string(t.Category), t.Date, t.StartTime, t.EndTime, boolInt(t.Completed), now,
		)
		if err != nil {
			return nil, fmt.Errorf("import task %s: %w", id, err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.Tasks++
		}
	}

	for _, a := range in.Achievements {
		if !knownAchievement(a.Type) {
			return nil, fmt.Errorf("import achievement: unknown type %q", a.Type)
		}
		// Restored unlocks come back seen.
		r, err := tx.ExecContext(ctx,
			`INSERT INTO achievements (id, user_id, achievement_type, unlocked_at, seen)
			 VALUES (?, ?, ?, ?, 1)
			 ON CONFLICT(user_id, achievement_type) DO NOTHING`,
			s.newID(), res.UserID, string(a.Type), a.UnlockedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return nil, fmt.Errorf("import achievement %s: %w", a.Type, err)
		}
		if n, _ := r.RowsAffected(); n > 0 {
			res.Achievements++
		}
	}

	for key, value := range in.Settings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_settings (user_id, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value`,
			res.UserID, key, value,
		)
		if err != nil {
			return nil, fmt.Errorf("import setting %q: %w", key, err)
		}
		res.Settings++
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit import: %w", err)
	}
	return res, nil
}

func (s *Store) importUser(ctx context.Context, tx *sql.Tx, u User) (string, bool, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM users ORDER BY created_at, id LIMIT 1`).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", false, fmt.Errorf("import user: %w", err)
	}

	if strings.TrimSpace(u.Name) == "" {
		return "", false, errors.New("import user: name is required")
	}
	id = u.ID
	if id == "" {
		id = s.newID()
	}
	now := s.now()
	joined := now
	if !u.JoinDate.IsZero() {
		joined = u.JoinDate.UTC().Format(time.RFC3339)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, name, email, avatar_path, join_date, is_premium, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, u.Name, u.Email, u.AvatarPath, joined, boolInt(u.IsPremium), now, now,
	)
	if err != nil {
		return "", false, fmt.Errorf("import user: %w", err)
	}
	return id, true, nil
}

func knownAchievement(t AchievementType) bool {
	for _, def := range catalog {
		if def.Type == t {
			return true
		}
	}
	return false
}
