package store

import (
	"context"
	"fmt"
)

// achievementDef describes one unlockable and the rule that unlocks it.
type achievementDef struct {
	Type        AchievementType
	Name        string
	Description string
	unlocked    func(p progress) bool
}

// progress is the snapshot of a user's history the rules are checked against.
type progress struct {
	sessions       int
	longestSession int64
	totalSeconds   int64
	currentStreak  int
	tasksCompleted int
	earlyStarts    int
	lateFinishes   int
}

var catalog = []achievementDef{
	{AchievementFirstSession, "First Focus", "Complete your first focus session",
		func(p progress) bool { return p.sessions >= 1 }},
	{AchievementHourMaster, "Hour Master", "Complete a single session over 1 hour",
		func(p progress) bool { return p.longestSession >= 3600 }},
	{AchievementStreakWeek, "Week Warrior", "Maintain a 7-day streak",
		func(p progress) bool { return p.currentStreak >= 7 }},
	{AchievementStreakMonth, "Monthly Champion", "Maintain a 30-day streak",
		func(p progress) bool { return p.currentStreak >= 30 }},
	{AchievementTotalHours10, "10 Hours Club", "Accumulate 10 hours of focus time",
		func(p progress) bool { return p.totalSeconds >= 10*3600 }},
	{AchievementTotalHours50, "50 Hours Legend", "Accumulate 50 hours of focus time",
		func(p progress) bool { return p.totalSeconds >= 50*3600 }},
	{AchievementTotalHours100, "Century Master", "Accumulate 100 hours of focus time",
		func(p progress) bool { return p.totalSeconds >= 100*3600 }},
	{AchievementEarlyBird, "Early Bird", "Start a session before 6 AM",
		func(p progress) bool { return p.earlyStarts > 0 }},
	{AchievementNightOwl, "Night Owl", "Complete a session after 11 PM",
		func(p progress) bool { return p.lateFinishes > 0 }},
	{AchievementTaskMaster, "Task Master", "Complete 50 tasks",
		func(p progress) bool { return p.tasksCompleted >= 50 }},
}

// Catalog returns every achievement with its display text and no
// unlock state.
func Catalog() []AchievementInfo {
	infos := make([]AchievementInfo, len(catalog))
	for i, def := range catalog {
		infos[i] = AchievementInfo{Type: def.Type, Name: def.Name, Description: def.Description}
	}
	return infos
}

func (s *Store) progress(ctx context.Context, userID string) (progress, error) {
	var p progress
	stats, err := s.GetUserStats(ctx, userID)
	if err != nil {
		return p, err
	}
	p.sessions = stats.TotalSessions
	p.totalSeconds = stats.TotalFocusTime
	p.currentStreak = stats.CurrentStreak
	p.tasksCompleted = stats.TasksCompleted

	// started_at and ended_at keep their local offset, so characters
	// 12-13 are the local hour.
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(duration_seconds), 0),
		       COALESCE(SUM(CAST(substr(started_at, 12, 2) AS INTEGER) < 6), 0),
		       COALESCE(SUM(CAST(substr(ended_at, 12, 2) AS INTEGER) >= 23), 0)
		FROM focus_sessions WHERE user_id = ?`, userID,
	).Scan(&p.longestSession, &p.earlyStarts, &p.lateFinishes)
	if err != nil {
		return p, fmt.Errorf("session progress: %w", err)
	}
	return p, nil
}

// CheckAndUnlockAchievements records every achievement the user now
// qualifies for and returns only the ones unlocked by this call.
func (s *Store) CheckAndUnlockAchievements(ctx context.Context, userID string) ([]Achievement, error) {
	p, err := s.progress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check achievements: %w", err)
	}

	var unlocked []Achievement
	for _, def := range catalog {
		if !def.unlocked(p) {
			continue
		}
		id := s.newID()
		now := s.now()
		res, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO achievements (id, user_id, achievement_type, unlocked_at) VALUES (?, ?, ?, ?)`,
			id, userID, string(def.Type), now,
		)
		if err != nil {
			return unlocked, fmt.Errorf("unlock %s: %w", def.Type, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			unlocked = append(unlocked, Achievement{
				ID: id, UserID: userID, Type: def.Type, UnlockedAt: parseTime(now),
			})
		}
	}
	return unlocked, nil
}

// GetAchievements returns the whole catalog with the user's unlock state.
func (s *Store) GetAchievements(ctx context.Context, userID string) ([]AchievementInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_type, unlocked_at FROM achievements WHERE user_id = ?`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	unlockedAt := make(map[AchievementType]string)
	for rows.Next() {
		var typ, at string
		if err := rows.Scan(&typ, &at); err != nil {
			return nil, err
		}
		unlockedAt[AchievementType(typ)] = at
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	infos := Catalog()
	for i := range infos {
		if at, ok := unlockedAt[infos[i].Type]; ok {
			t := parseTime(at)
			infos[i].Unlocked = true
			infos[i].UnlockedAt = &t
		}
	}
	return infos, nil
}

func (s *Store) GetUnseenAchievementsCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM achievements WHERE user_id = ? AND seen = 0`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unseen achievements: %w", err)
	}
	return n, nil
}

func (s *Store) MarkAchievementsSeen(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE achievements SET seen = 1 WHERE user_id = ? AND seen = 0`, userID,
	)
	if err != nil {
		return fmt.Errorf("mark achievements seen: %w", err)
	}
	return nil
}
