package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
)

// orbArt is the orb drawn for each timer phase.
var orbArt = map[focus.OrbState][]string{
	focus.Idle: {
		"   ·  ·  ·   ",
		" ·         · ",
		"·           ·",
		" ·         · ",
		"   ·  ·  ·   ",
	},
	focus.Forming: {
		"             ",
		"    ░░░░░    ",
		"   ░░▒▒▒░░   ",
		"    ░░░░░    ",
		"             ",
	},
	focus.Running: {
		"   ▄█████▄   ",
		" ▄█████████▄ ",
		"█████████████",
		" ▀█████████▀ ",
		"   ▀█████▀   ",
	},
	focus.Dissolving: {
		"   ░ ▒ ░ ▒   ",
		" ▒ ░     ░ ▒ ",
		"░   ▒   ▒   ░",
		" ▒ ░     ░ ▒ ",
		"   ░ ▒ ░ ▒   ",
	},
}

func orbStyle(s focus.OrbState) lipgloss.Style {
	switch s {
	case focus.Forming:
		return orbFormingStyle
	case focus.Running:
		return orbRunningStyle
	case focus.Dissolving:
		return orbDissolvingStyle
	}
	return orbIdleStyle
}

// orbLabel names what the user sees. An idle timer that still holds
// elapsed time is a paused session.
func orbLabel(snap focus.Snapshot) string {
	switch snap.State {
	case focus.Forming:
		return "forming"
	case focus.Running:
		return "focusing"
	case focus.Dissolving:
		return "settling"
	}
	if snap.ElapsedSeconds > 0 {
		return "paused"
	}
	return "ready"
}

func renderOrb(snap focus.Snapshot, w int) string {
	style := orbStyle(snap.State).Width(w)
	art := style.Render(strings.Join(orbArt[snap.State], "\n"))
	clock := clockStyle.Width(w).Render(formatSeconds(snap.ElapsedSeconds))
	label := mutedStyle.Width(w).Align(lipgloss.Center).Render(orbLabel(snap))
	return lipgloss.JoinVertical(lipgloss.Center, art, "", clock, label)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// completeCmd finishes the run off the UI goroutine; the recorder talks
// to the database.
func completeCmd(c *focus.Core) tea.Cmd {
	return func() tea.Msg {
		fs, err := c.Timer.Complete(context.Background())
		return sessionDoneMsg{session: fs, err: err}
	}
}

// sessionStatus turns a completion result into a footer message.
func sessionStatus(msg sessionDoneMsg) (statusMsg, bool) {
	switch {
	case errors.Is(msg.err, focus.ErrSessionTooShort):
		return statusMsg{text: "Under a minute, session not recorded"}, true
	case errors.Is(msg.err, focus.ErrNoUser):
		return statusMsg{text: "Create a profile to record sessions", isError: true}, true
	case msg.err != nil:
		return errStatus("Session not saved", msg.err), true
	case msg.session != nil:
		return statusMsg{text: "Saved " + formatSeconds(msg.session.DurationSeconds) + " of focus"}, true
	}
	return statusMsg{}, false
}
