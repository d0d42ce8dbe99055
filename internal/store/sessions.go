package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const sessionColumns = `id, user_id, duration_seconds, started_at, ended_at, category, notes, created_at`

func scanSession(row rowScanner) (*FocusSession, error) {
	fs := &FocusSession{}
	var startedAt, endedAt, createdAt string
	if err := row.Scan(&fs.ID, &fs.UserID, &fs.DurationSeconds, &startedAt, &endedAt, &fs.Category, &fs.Notes, &createdAt); err != nil {
		return nil, err
	}
	fs.StartedAt = parseTime(startedAt)
	fs.EndedAt = parseTime(endedAt)
	fs.CreatedAt = parseTime(createdAt)
	return fs, nil
}

// CreateFocusSession records a finished session and folds it into the
// daily_stats row of the day it started on, in one transaction.
// Timestamps keep their UTC offset so the local start hour and date
// stay recoverable.
func (s *Store) CreateFocusSession(ctx context.Context, in NewFocusSession) (*FocusSession, error) {
	if in.UserID == "" {
		return nil, errors.New("create focus session: user id is required")
	}
	if in.DurationSeconds <= 0 {
		return nil, fmt.Errorf("create focus session: invalid duration %d", in.DurationSeconds)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	id := s.newID()
	now := s.now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO focus_sessions (id, user_id, duration_seconds, started_at, ended_at, category, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.UserID, in.DurationSeconds,
		in.StartedAt.Format(time.RFC3339), in.EndedAt.Format(time.RFC3339),
		in.Category, in.Notes, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert focus session: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO daily_stats (id, user_id, date, total_focus_seconds, session_count)
		 VALUES (?, ?, ?, ?, 1)
		 ON CONFLICT(user_id, date) DO UPDATE SET
		   total_focus_seconds = total_focus_seconds + excluded.total_focus_seconds,
		   session_count = session_count + 1`,
		s.newID(), in.UserID, DateKey(in.StartedAt), in.DurationSeconds,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert daily stats: %w", err)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM focus_sessions WHERE id = ?`, id)
	fs, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get focus session %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit focus session: %w", err)
	}
	return fs, nil
}

// GetFocusSessions returns the user's most recent sessions first. A
// limit <= 0 returns all of them.
func (s *Store) GetFocusSessions(ctx context.Context, userID string, limit int) ([]FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE user_id = ? ORDER BY started_at DESC, created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	var sessions []FocusSession
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *fs)
	}
	return sessions, rows.Err()
}
