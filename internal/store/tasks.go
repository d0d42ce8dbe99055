package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const taskColumns = `id, user_id, title, category, date, start_time, end_time, completed, created_at`

func scanTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var category, createdAt string
	var completed int
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &category, &t.Date, &t.StartTime, &t.EndTime, &completed, &createdAt); err != nil {
		return nil, err
	}
	t.Category = TaskCategory(category)
	t.Completed = completed == 1
	t.CreatedAt = parseTime(createdAt)
	return t, nil
}

// GetTasks returns the user's tasks for date ordered by start time, or
// every task (newest date first) when date is empty.
func (s *Store) GetTasks(ctx context.Context, userID, date string) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = ?`
	args := []any{userID}
	if date != "" {
		query += ` AND date = ? ORDER BY start_time, created_at`
		args = append(args, date)
	} else {
		query += ` ORDER BY date DESC, start_time, created_at`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("create task: title is required")
	}
	if !in.Category.Valid() {
		return nil, fmt.Errorf("create task: invalid category %q", in.Category)
	}
	id := s.newID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, category, date, start_time, end_time, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.UserID, in.Title, string(in.Category), in.Date, in.StartTime, in.EndTime, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) UpdateTask(ctx context.Context, id string, p TaskPatch) (*Task, error) {
	var sets []string
	var args []any
	if p.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Category != nil {
		if !p.Category.Valid() {
			return nil, fmt.Errorf("update task %s: invalid category %q", id, *p.Category)
		}
		sets = append(sets, "category = ?")
		args = append(args, string(*p.Category))
	}
	if p.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, *p.Date)
	}
	if p.StartTime != nil {
		sets = append(sets, "start_time = ?")
		args = append(args, *p.StartTime)
	}
	if p.EndTime != nil {
		sets = append(sets, "end_time = ?")
		args = append(args, *p.EndTime)
	}
	if p.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, boolInt(*p.Completed))
	}
	if len(sets) == 0 {
		return s.GetTask(ctx, id)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("update task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete task %s: %w", id, ErrNotFound)
	}
	return nil
}

// ToggleTaskCompletion flips the completed flag and returns the stored row.
func (s *Store) ToggleTaskCompletion(ctx context.Context, id string) (*Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = CASE completed WHEN 1 THEN 0 ELSE 1 END WHERE id = ?`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("toggle task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
