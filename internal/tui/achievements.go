package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

type achievementsModel struct {
	core   *focus.Core
	width  int
	height int
}

func newAchievementsModel(c *focus.Core) achievementsModel {
	return achievementsModel{core: c}
}

func (m *achievementsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// open reloads the catalog and marks everything as seen, which clears
// the tab badge.
func (m achievementsModel) open() tea.Cmd {
	c := m.core
	return func() tea.Msg {
		ctx := context.Background()
		err := errors.Join(c.Achievements.Fetch(ctx), c.Achievements.MarkSeen(ctx))
		return achievementsSeenMsg{err: err}
	}
}

func (m achievementsModel) update(msg tea.Msg) (achievementsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, keys.Seen) {
		return m, m.open()
	}
	return m, nil
}

func (m achievementsModel) view() string {
	w := m.width - 4
	all := m.core.Achievements.All()

	unlocked := 0
	for _, a := range all {
		if a.Unlocked {
			unlocked++
		}
	}
	header := titleStyle.Render("Achievements") + "  " +
		accentStyle.Render(fmt.Sprintf("%d of %d unlocked", unlocked, len(all)))

	rows := []string{header, ""}
	if len(all) == 0 {
		rows = append(rows, mutedStyle.Render("Nothing loaded yet."))
	}
	for _, a := range all {
		rows = append(rows, renderAchievement(a))
	}
	if err := m.core.Achievements.Err(); err != nil {
		rows = append(rows, "", errorStyle.Render(err.Error()))
	}
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderAchievement(a store.AchievementInfo) string {
	if !a.Unlocked {
		return mutedStyle.Render(fmt.Sprintf("  🔒 %-18s %s", a.Name, a.Description))
	}
	when := ""
	if a.UnlockedAt != nil {
		when = a.UnlockedAt.Local().Format("Jan 02, 2006")
	}
	return fmt.Sprintf("  %s %s %s  %s",
		successStyle.Render("★"),
		highlightStyle.Render(fmt.Sprintf("%-18s", a.Name)),
		a.Description,
		mutedStyle.Render(when),
	)
}

// renderUnlocked is the modal shown when a session or task unlocks
// something new.
func renderUnlocked(unlocked []store.Achievement, w int) string {
	names := make(map[store.AchievementType]store.AchievementInfo)
	for _, info := range store.Catalog() {
		names[info.Type] = info
	}

	rows := []string{warningStyle.Bold(true).Render("Achievement unlocked!"), ""}
	for _, a := range unlocked {
		info, ok := names[a.Type]
		if !ok {
			info = store.AchievementInfo{Name: string(a.Type)}
		}
		rows = append(rows, titleStyle.Render("★ "+info.Name))
		if info.Description != "" {
			rows = append(rows, mutedStyle.Render(info.Description))
		}
	}
	rows = append(rows, "", mutedStyle.Render("enter: continue"))
	return modalStyle.Width(min(w, 60)).Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}
