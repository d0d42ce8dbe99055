package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/flow/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewFocus viewState = iota
	viewTasks
	viewStats
	viewAchievements
	viewSettings
)

var viewNames = []string{"Focus", "Tasks", "Stats", "Achievements", "Profile"}

// --- Messages ---

type tickMsg time.Time

type statusMsg struct {
	text    string
	isError bool
}

// sessionDoneMsg carries the result of completing the timer. session is
// nil when nothing was recorded.
type sessionDoneMsg struct {
	session *store.FocusSession
	err     error
}

type taskChangedMsg struct {
	task *store.Task
	err  error
}

type tasksLoadedMsg struct {
	date string
	err  error
}

type profileSavedMsg struct {
	user *store.User
	err  error
}

type loggedOutMsg struct {
	err error
}

type achievementsSeenMsg struct {
	err error
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

func formatHours(secs int64) string {
	h := float64(secs) / 3600
	return fmt.Sprintf("%.1fh", h)
}

func errStatus(prefix string, err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}
