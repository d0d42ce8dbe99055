package focus

import (
	"context"

	"github.com/sadopc/flow/internal/store"
)

// Gateway is the persistence boundary. Every call may fail on its own
// and none of them retry.
type Gateway interface {
	CreateFocusSession(ctx context.Context, in store.NewFocusSession) (*store.FocusSession, error)
	GetFocusSessions(ctx context.Context, userID string, limit int) ([]store.FocusSession, error)

	GetDailyStats(ctx context.Context, userID, start, end string) ([]store.DailyStat, error)
	GetUserStats(ctx context.Context, userID string) (*store.UserStats, error)
	GetHeatmapData(ctx context.Context, userID string) ([]store.HeatmapPoint, error)

	GetTasks(ctx context.Context, userID, date string) ([]store.Task, error)
	CreateTask(ctx context.Context, in store.NewTask) (*store.Task, error)
	UpdateTask(ctx context.Context, id string, p store.TaskPatch) (*store.Task, error)
	DeleteTask(ctx context.Context, id string) error
	ToggleTaskCompletion(ctx context.Context, id string) (*store.Task, error)

	CheckAndUnlockAchievements(ctx context.Context, userID string) ([]store.Achievement, error)
	GetAchievements(ctx context.Context, userID string) ([]store.AchievementInfo, error)
	GetUnseenAchievementsCount(ctx context.Context, userID string) (int, error)
	MarkAchievementsSeen(ctx context.Context, userID string) error

	GetUsers(ctx context.Context) ([]store.User, error)
	CreateUser(ctx context.Context, in store.NewUser) (*store.User, error)
	UpdateUser(ctx context.Context, id string, p store.UserPatch) (*store.User, error)
	DeleteUser(ctx context.Context, id string) error

	GetAllSettings(ctx context.Context, userID string) (map[string]string, error)
	SetSetting(ctx context.Context, userID, key, value string) error
	DeleteSetting(ctx context.Context, userID, key string) error
}

var _ Gateway = (*store.Store)(nil)

// UserSource reports the signed-in user's id, or "" when signed out.
type UserSource interface {
	UserID() string
}
