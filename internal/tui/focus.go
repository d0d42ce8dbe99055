package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
)

const maxAgendaItems = 5

type focusModel struct {
	core   *focus.Core
	width  int
	height int
}

func newFocusModel(c *focus.Core) focusModel {
	return focusModel{core: c}
}

func (f *focusModel) setSize(w, h int) {
	f.width = w
	f.height = h
}

func (f focusModel) update(msg tea.Msg) (focusModel, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return f, nil
	}

	var err error
	switch {
	case key.Matches(km, keys.Start):
		err = f.core.Timer.Start()
	case key.Matches(km, keys.Pause):
		err = f.core.Timer.Pause()
	case key.Matches(km, keys.Reset):
		err = f.core.Timer.Reset()
	case key.Matches(km, keys.Complete):
		return f, completeCmd(f.core)
	}
	// Presses that arrive mid-animation are dropped.
	if err != nil && !errors.Is(err, focus.ErrInvalidTransition) {
		return f, func() tea.Msg { return errStatus("Timer", err) }
	}
	return f, nil
}

func (f focusModel) view() string {
	if f.width < 20 {
		return "Terminal too small"
	}
	w := f.width - 4
	snap := f.core.Timer.Snapshot()

	orbPanel := panelStyle
	if snap.State != focus.Idle {
		orbPanel = activePanelStyle
	}
	orb := orbPanel.Width(w).Render(renderOrb(snap, w-6))

	return lipgloss.JoinVertical(lipgloss.Left, orb, f.renderToday(w), f.renderAgenda(w))
}

func (f focusModel) renderToday(w int) string {
	today := f.core.Stats.TodayFocusSeconds()
	goal := f.core.Settings.DailyGoal()

	header := fmt.Sprintf("%s  %s  %s",
		titleStyle.Render("Today"),
		highlightStyle.Render(formatSeconds(today)),
		mutedStyle.Render(fmt.Sprintf("%d sessions", f.core.Stats.TodaySessionCount())),
	)
	bar := progressBar(today, goal, max(10, w-24))
	goalLine := fmt.Sprintf("%s %s", bar, mutedStyle.Render("goal "+formatHours(goal)))

	rows := []string{header, goalLine}
	if err := f.core.Stats.Err(); err != nil {
		rows = append(rows, warningStyle.Render("Stats may be out of date"))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (f focusModel) renderAgenda(w int) string {
	title := titleStyle.Render("Today's tasks")
	tasks := f.core.Tasks.TasksForDate(f.core.Today())
	if len(tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("Nothing planned. Press 2 to add a task."),
		))
	}

	rows := []string{title}
	for i, t := range tasks {
		if i == maxAgendaItems {
			rows = append(rows, mutedStyle.Render(fmt.Sprintf("  +%d more", len(tasks)-i)))
			break
		}
		rows = append(rows, "  "+renderTaskLine(t, false))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

// progressBar draws done/goal over width cells, capped at full.
func progressBar(done, goal int64, width int) string {
	filled := 0
	if goal > 0 {
		filled = int(done * int64(width) / goal)
	}
	filled = min(max(filled, 0), width)
	return progressFillStyle.Render(strings.Repeat("█", filled)) +
		progressEmptyStyle.Render(strings.Repeat("░", width-filled))
}
