package store

import (
	"errors"
	"time"
)

// DateLayout is the calendar-day key used by daily stats, heatmap points
// and tasks.
const DateLayout = "2006-01-02"

// DateKey returns the calendar date of t in t's own location. Callers
// pass local times, so a session that starts at 23:50 belongs to that
// day even if it ends after midnight.
func DateKey(t time.Time) string { return t.Format(DateLayout) }

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

type User struct {
	ID         string
	Name       string
	Email      string
	AvatarPath string
	JoinDate   time.Time
	IsPremium  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type NewUser struct {
	Name  string
	Email string
}

// UserPatch updates only the non-nil fields.
type UserPatch struct {
	Name       *string
	Email      *string
	AvatarPath *string
}

type FocusSession struct {
	ID              string
	UserID          string
	DurationSeconds int64
	StartedAt       time.Time
	EndedAt         time.Time
	Category        string
	Notes           string
	CreatedAt       time.Time
}

type NewFocusSession struct {
	UserID          string
	DurationSeconds int64
	StartedAt       time.Time
	EndedAt         time.Time
	Category        string
	Notes           string
}

// DailyStat is the focus total for one user on one calendar date.
type DailyStat struct {
	Date              string
	TotalFocusSeconds int64
	SessionCount      int
}

type UserStats struct {
	TotalFocusTime int64 // seconds
	TotalSessions  int
	CurrentStreak  int
	LongestStreak  int
	TasksCompleted int
}

// HeatmapPoint is one day of the yearly heatmap. Value is in minutes.
type HeatmapPoint struct {
	Date  string
	Value int64
}

type TaskCategory string

const (
	CategoryReminder TaskCategory = "Reminder"
	CategoryToDo     TaskCategory = "To Do"
	CategoryEvent    TaskCategory = "Event"
)

// TaskCategories lists the accepted categories in display order.
var TaskCategories = []TaskCategory{CategoryToDo, CategoryEvent, CategoryReminder}

func (c TaskCategory) Valid() bool {
	switch c {
	case CategoryReminder, CategoryToDo, CategoryEvent:
		return true
	}
	return false
}

type Task struct {
	ID        string
	UserID    string
	Title     string
	Category  TaskCategory
	Date      string
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Completed bool
	CreatedAt time.Time
}

type NewTask struct {
	UserID    string
	Title     string
	Category  TaskCategory
	Date      string
	StartTime string
	EndTime   string
}

// TaskPatch updates only the non-nil fields.
type TaskPatch struct {
	Title     *string
	Category  *TaskCategory
	Date      *string
	StartTime *string
	EndTime   *string
	Completed *bool
}

type AchievementType string

const (
	AchievementFirstSession  AchievementType = "first_session"
	AchievementHourMaster    AchievementType = "hour_master"
	AchievementStreakWeek    AchievementType = "streak_week"
	AchievementStreakMonth   AchievementType = "streak_month"
	AchievementTotalHours10  AchievementType = "total_hours_10"
	AchievementTotalHours50  AchievementType = "total_hours_50"
	AchievementTotalHours100 AchievementType = "total_hours_100"
	AchievementEarlyBird     AchievementType = "early_bird"
	AchievementNightOwl      AchievementType = "night_owl"
	AchievementTaskMaster    AchievementType = "task_master"
)

// Achievement is an unlock record.
type Achievement struct {
	ID         string
	UserID     string
	Type       AchievementType
	UnlockedAt time.Time
}

// AchievementInfo is a catalog entry joined with the user's unlock state.
type AchievementInfo struct {
	Type        AchievementType
	Name        string
	Description string
	Unlocked    bool
	UnlockedAt  *time.Time
}
