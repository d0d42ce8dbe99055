package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/export"
	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

// App is the root Bubble Tea model. It renders straight from the core's
// caches; every database call runs as a tea.Cmd.
type App struct {
	core   *focus.Core
	src    export.Source
	tick   time.Duration
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	focus        focusModel
	tasks        tasksModel
	stats        statsModel
	achievements achievementsModel
	settings     settingsModel

	// unlocked holds achievements waiting to be announced.
	unlocked []store.Achievement

	help      help.Model
	status    string
	statusErr bool
}

// NewApp builds the UI over c. src feeds the export picker and tick is
// the display refresh interval. Without a profile the app opens on the
// sign-up form.
func NewApp(c *focus.Core, src export.Source, tick time.Duration) App {
	h := help.New()
	h.ShowAll = false
	if tick <= 0 {
		tick = focus.TickInterval
	}

	a := App{
		core:         c,
		src:          src,
		tick:         tick,
		activeView:   viewFocus,
		focus:        newFocusModel(c),
		tasks:        newTasksModel(c),
		stats:        newStatsModel(c),
		achievements: newAchievementsModel(c),
		settings:     newSettingsModel(c),
		help:         h,
	}
	if c.Identity.User() == nil {
		a.activeView = viewSettings
		a.settings, _ = a.settings.showSignUpForm()
	}
	return a
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(a.tick)}
	if a.settings.formActive && a.settings.form != nil {
		cmds = append(cmds, a.settings.form.Init())
	}
	return tea.Batch(cmds...)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.focus.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		a.achievements.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.stats.buildChart()
		return a, nil

	case tea.KeyMsg:
		if len(a.unlocked) > 0 {
			if key.Matches(msg, keys.Enter) || key.Matches(msg, keys.Back) {
				a.unlocked = nil
			}
			return a, nil
		}

		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			if a.core.Identity.User() == nil {
				return a, nil
			}
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewFocus)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewTasks)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewStats)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewAchievements)
		case key.Matches(msg, keys.Tab5):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	case tickMsg:
		a.core.Timer.Tick()
		if fresh := a.core.Achievements.TakeUnlocked(); len(fresh) > 0 {
			a.unlocked = append(a.unlocked, fresh...)
		}
		var cmd tea.Cmd
		if a.activeView == viewStats {
			a.stats, cmd = a.stats.update(msg)
		}
		return a, tea.Batch(tickCmd(a.tick), cmd)

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case sessionDoneMsg:
		if st, ok := sessionStatus(msg); ok {
			a.status, a.statusErr = st.text, st.isError
		}
		return a, nil

	case taskChangedMsg:
		if msg.err != nil {
			a.setError("Task", msg.err)
		}
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd

	case tasksLoadedMsg:
		if msg.err != nil {
			a.setError("Tasks", msg.err)
		}
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd

	case statsLoadedMsg:
		if msg.err != nil {
			a.setError("Stats", msg.err)
		}
		var cmd tea.Cmd
		a.stats, cmd = a.stats.update(msg)
		return a, cmd

	case achievementsSeenMsg:
		if msg.err != nil {
			a.setError("Achievements", msg.err)
		}
		return a, nil

	case profileSavedMsg:
		if msg.err != nil {
			a.setError("Profile", msg.err)
			return a, nil
		}
		a.status, a.statusErr = "Saved profile for "+msg.user.Name, false
		if a.activeView == viewSettings && a.settings.formKind == formSignUp {
			a.activeView = viewFocus
		}
		return a, nil

	case loggedOutMsg:
		if msg.err != nil {
			a.setError("Delete profile", msg.err)
			return a, nil
		}
		a.status, a.statusErr = "Profile deleted", false
		a.activeView = viewSettings
		var cmd tea.Cmd
		a.settings, cmd = a.settings.showSignUpForm()
		return a, cmd

	case exportDoneMsg:
		a.status, a.statusErr = "Exported to "+msg.path, false
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setError(prefix string, err error) {
	st := errStatus(prefix, err)
	a.status, a.statusErr = st.text, true
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	return a, a.refreshCurrentView()
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewFocus:
		a.focus, cmd = a.focus.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	case viewAchievements:
		a.achievements, cmd = a.achievements.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTasks:
		return a.tasks.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	if a.core.Identity.User() == nil {
		return nil
	}
	switch a.activeView {
	case viewTasks:
		return a.tasks.refresh()
	case viewStats:
		return a.stats.refresh()
	case viewAchievements:
		return a.achievements.open()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewFocus:
		content = a.focus.view()
	case viewTasks:
		content = a.tasks.view()
	case viewStats:
		content = a.stats.view()
	case viewAchievements:
		content = a.achievements.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	switch {
	case len(a.unlocked) > 0:
		content = lipgloss.Place(a.width, contentHeight, lipgloss.Center, lipgloss.Center,
			renderUnlocked(a.unlocked, a.width-4))
	case a.exportPicking:
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == viewAchievements {
			if n := a.core.Achievements.UnseenCount(); n > 0 {
				name += " " + badgeStyle.Render(fmt.Sprintf("%d", n))
			}
		}
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("flow")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusErr {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	// Timer indicator while a session is open on another view
	timerInfo := ""
	if snap := a.core.Timer.Snapshot(); snap.State != focus.Idle || snap.ElapsedSeconds > 0 {
		style := successStyle
		if snap.State != focus.Running {
			style = warningStyle
		}
		timerInfo = style.Render(" ● " + formatSeconds(snap.ElapsedSeconds))
	}

	left := footerStyle.Render(helpView)
	right := timerInfo + status

	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(right)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

var exportFormats = []string{"Sessions (CSV)", "Everything (JSON)"}

func (a App) renderExportPicker() string {
	rows := []string{titleStyle.Render("Export"), ""}
	for i, f := range exportFormats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "", mutedStyle.Render("  enter: export  esc: cancel"))

	return activePanelStyle.Width(a.width - 4).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(exportFormats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	src, userID := a.src, a.core.Identity.UserID()
	return func() tea.Msg {
		home, err := os.UserHomeDir()
		if err != nil {
			return errStatus("Export", err)
		}
		dir := filepath.Join(home, "flow-exports")
		path, err := exportTo(context.Background(), src, userID, dir, format, time.Now())
		if err != nil {
			return errStatus("Export", err)
		}
		return exportDoneMsg{path: path}
	}
}

// exportTo writes sessions as CSV (format 0) or the whole profile as
// JSON into dir and returns the file path.
func exportTo(ctx context.Context, src export.Source, userID, dir string, format int, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stamp := now.Format("2006-01-02")
	if format == 0 {
		sessions, err := src.GetFocusSessions(ctx, userID, 0)
		if err != nil {
			return "", err
		}
		path := filepath.Join(dir, fmt.Sprintf("flow-sessions-%s.csv", stamp))
		return path, export.SessionsToCSV(sessions, path)
	}

	bundle, err := export.Collect(ctx, src, now)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("flow-export-%s.json", stamp))
	return path, export.ToJSON(bundle, path)
}
