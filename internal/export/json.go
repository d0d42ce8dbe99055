package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/flow/internal/store"
)

const bundleVersion = 1

// Source is the read side of the gateway that an export needs.
type Source interface {
	GetUser(ctx context.Context) (*store.User, error)
	GetFocusSessions(ctx context.Context, userID string, limit int) ([]store.FocusSession, error)
	GetDailyStats(ctx context.Context, userID, start, end string) ([]store.DailyStat, error)
	GetTasks(ctx context.Context, userID, date string) ([]store.Task, error)
	GetAchievements(ctx context.Context, userID string) ([]store.AchievementInfo, error)
	GetAllSettings(ctx context.Context, userID string) (map[string]string, error)
}

// Bundle is the full data export of one user.
type Bundle struct {
	Version       int               `json:"version"`
	ExportedAt    string            `json:"exported_at"`
	User          jsonUser          `json:"user"`
	FocusSessions []jsonSession     `json:"focus_sessions"`
	DailyStats    []jsonDailyStat   `json:"daily_stats"`
	Tasks         []jsonTask        `json:"tasks"`
	Achievements  []jsonAchievement `json:"achievements"`
	Settings      map[string]string `json:"settings"`
}

type jsonUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	JoinDate string `json:"join_date"`
}

type jsonSession struct {
	ID          string `json:"id"`
	StartedAt   string `json:"started_at"`
	EndedAt     string `json:"ended_at"`
	DurationSec int64  `json:"duration_seconds"`
	Duration    string `json:"duration"`
	Category    string `json:"category,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type jsonDailyStat struct {
	Date         string `json:"date"`
	TotalSeconds int64  `json:"total_focus_seconds"`
	Sessions     int    `json:"session_count"`
}

type jsonTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	Date      string `json:"date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	Completed bool   `json:"completed"`
}

type jsonAchievement struct {
	Type       string `json:"type"`
	Name       string `json:"name"`
	UnlockedAt string `json:"unlocked_at"`
}

// Collect reads everything the local profile owns. It fails if there
// is no profile.
func Collect(ctx context.Context, src Source, now time.Time) (*Bundle, error) {
	u, err := src.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if u == nil {
		return nil, fmt.Errorf("export: no user profile")
	}

	sessions, err := src.GetFocusSessions(ctx, u.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	daily, err := src.GetDailyStats(ctx, u.ID, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, fmt.Errorf("load daily stats: %w", err)
	}
	tasks, err := src.GetTasks(ctx, u.ID, "")
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	achievements, err := src.GetAchievements(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	settings, err := src.GetAllSettings(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	b := &Bundle{
		Version:    bundleVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
		User: jsonUser{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			JoinDate: u.JoinDate.Format(time.RFC3339),
		},
		FocusSessions: []jsonSession{},
		DailyStats:    []jsonDailyStat{},
		Tasks:         []jsonTask{},
		Achievements:  []jsonAchievement{},
		Settings:      settings,
	}
	for _, s := range sessions {
		b.FocusSessions = append(b.FocusSessions, jsonSession{
			ID:          s.ID,
			StartedAt:   s.StartedAt.Format(time.RFC3339),
			EndedAt:     s.EndedAt.Format(time.RFC3339),
			DurationSec: s.DurationSeconds,
			Duration:    formatDuration(s.DurationSeconds),
			Category:    s.Category,
			Notes:       s.Notes,
		})
	}
	for _, d := range daily {
		b.DailyStats = append(b.DailyStats, jsonDailyStat{Date: d.Date, TotalSeconds: d.TotalFocusSeconds, Sessions: d.SessionCount})
	}
	for _, t := range tasks {
		b.Tasks = append(b.Tasks, jsonTask{
			ID:        t.ID,
			Title:     t.Title,
			Category:  string(t.Category),
			Date:      t.Date,
			StartTime: t.StartTime,
			EndTime:   t.EndTime,
			Completed: t.Completed,
		})
	}
	for _, a := range achievements {
		if !a.Unlocked || a.UnlockedAt == nil {
			continue
		}
		b.Achievements = append(b.Achievements, jsonAchievement{
			Type:       string(a.Type),
			Name:       a.Name,
			UnlockedAt: a.UnlockedAt.Format(time.RFC3339),
		})
	}
	return b, nil
}

// ToJSON writes b to path.
func ToJSON(b *Bundle, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()
	return WriteJSON(f, b)
}

func WriteJSON(w io.Writer, b *Bundle) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}
