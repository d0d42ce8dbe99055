package store

import (
	"context"
	"fmt"
	"time"
)

// GetDailyStats returns the per-day totals for dates in [start, end],
// both inclusive, ordered by date. Days without focus have no row.
func (s *Store) GetDailyStats(ctx context.Context, userID, start, end string) ([]DailyStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_focus_seconds, session_count
		FROM daily_stats
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStat
	for rows.Next() {
		var ds DailyStat
		if err := rows.Scan(&ds.Date, &ds.TotalFocusSeconds, &ds.SessionCount); err != nil {
			return nil, err
		}
		stats = append(stats, ds)
	}
	return stats, rows.Err()
}

func (s *Store) GetUserStats(ctx context.Context, userID string) (*UserStats, error) {
	us := &UserStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_seconds), 0), COUNT(*)
		FROM focus_sessions WHERE user_id = ?`, userID,
	).Scan(&us.TotalFocusTime, &us.TotalSessions)
	if err != nil {
		return nil, fmt.Errorf("session totals: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE user_id = ? AND completed = 1`, userID,
	).Scan(&us.TasksCompleted)
	if err != nil {
		return nil, fmt.Errorf("completed tasks: %w", err)
	}

	dates, err := s.focusDates(ctx, userID)
	if err != nil {
		return nil, err
	}
	us.CurrentStreak, us.LongestStreak = streaks(dates, s.clock.Now())
	return us, nil
}

// GetHeatmapData returns one point per focused day over the last year,
// ordered by date.
func (s *Store) GetHeatmapData(ctx context.Context, userID string) ([]HeatmapPoint, error) {
	since := DateKey(s.clock.Now().AddDate(0, 0, -365))
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, total_focus_seconds / 60
		FROM daily_stats
		WHERE user_id = ? AND date >= ?
		ORDER BY date`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("heatmap data: %w", err)
	}
	defer rows.Close()

	var points []HeatmapPoint
	for rows.Next() {
		var p HeatmapPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// focusDates lists the dates with any focus time, newest first.
func (s *Store) focusDates(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date FROM daily_stats
		WHERE user_id = ? AND total_focus_seconds > 0
		ORDER BY date DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("focus dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// streaks computes the current and longest run of consecutive days from
// dates sorted newest first. The current run only counts if it reaches
// today or yesterday.
func streaks(dates []string, now time.Time) (current, longest int) {
	if len(dates) == 0 {
		return 0, 0
	}

	days := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		t, err := time.Parse(DateLayout, d)
		if err != nil {
			continue
		}
		days = append(days, t)
	}
	if len(days) == 0 {
		return 0, 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	gap := dayDiff(today, days[0])
	if gap == 0 || gap == 1 {
		current = 1
		for i := 1; i < len(days); i++ {
			if dayDiff(days[i-1], days[i]) != 1 {
				break
			}
			current++
		}
	}

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if dayDiff(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}
	return current, longest
}

// dayDiff returns the whole days from b to a; both are UTC midnights.
func dayDiff(a, b time.Time) int {
	return int(a.Sub(b).Hours() / 24)
}
