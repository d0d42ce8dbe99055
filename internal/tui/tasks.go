package tui

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type tasksModel struct {
	core   *focus.Core
	width  int
	height int

	date   string
	cursor int

	formActive bool
	form       *huh.Form

	// Form field pointers (survive value copies)
	formTitle    *string
	formCategory *store.TaskCategory
	formStart    *string
	formEnd      *string
}

func newTasksModel(c *focus.Core) tasksModel {
	title, start, end := "", "", ""
	category := store.CategoryToDo
	return tasksModel{
		core:         c,
		date:         c.Today(),
		formTitle:    &title,
		formCategory: &category,
		formStart:    &start,
		formEnd:      &end,
	}
}

func (m *tasksModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m tasksModel) refresh() tea.Cmd {
	c, date := m.core, m.date
	return func() tea.Msg {
		return tasksLoadedMsg{date: date, err: c.Tasks.FetchTasks(context.Background(), date)}
	}
}

func (m tasksModel) visible() []store.Task {
	return m.core.Tasks.TasksForDate(m.date)
}

func (m tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksLoadedMsg, taskChangedMsg:
		m.cursor = min(m.cursor, max(0, len(m.visible())-1))
		return m, nil

	case tea.KeyMsg:
		tasks := m.visible()
		switch {
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Left):
			return m.shiftDate(-1)
		case key.Matches(msg, keys.Right):
			return m.shiftDate(1)
		case key.Matches(msg, keys.Enter):
			if len(tasks) > 0 {
				return m, toggleTaskCmd(m.core, tasks[m.cursor].ID)
			}
		case key.Matches(msg, keys.Delete):
			if len(tasks) > 0 {
				return m, deleteTaskCmd(m.core, tasks[m.cursor])
			}
		case key.Matches(msg, keys.New):
			return m.showNewTaskForm()
		}
	}
	return m, nil
}

func (m tasksModel) shiftDate(days int) (tasksModel, tea.Cmd) {
	d, err := time.ParseInLocation(store.DateLayout, m.date, time.Local)
	if err != nil {
		d = time.Now()
	}
	m.date = store.DateKey(d.AddDate(0, 0, days))
	m.cursor = 0
	return m, m.refresh()
}

// toggleTaskCmd flips completion. Stats and achievements follow through
// the core's event bus.
func toggleTaskCmd(c *focus.Core, id string) tea.Cmd {
	return func() tea.Msg {
		t, err := c.Tasks.Toggle(context.Background(), id)
		return taskChangedMsg{task: t, err: err}
	}
}

func deleteTaskCmd(c *focus.Core, t store.Task) tea.Cmd {
	return func() tea.Msg {
		return taskChangedMsg{err: c.Tasks.Delete(context.Background(), t.ID)}
	}
}

func (m tasksModel) showNewTaskForm() (tasksModel, tea.Cmd) {
	*m.formTitle = ""
	*m.formCategory = store.CategoryToDo
	*m.formStart = ""
	*m.formEnd = ""

	options := make([]huh.Option[store.TaskCategory], len(store.TaskCategories))
	for i, c := range store.TaskCategories {
		options[i] = huh.NewOption(string(c), c)
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(m.formTitle).Validate(requireText("a title")),
			huh.NewSelect[store.TaskCategory]().Title("Category").Options(options...).Value(m.formCategory),
			huh.NewInput().Title("Start (HH:MM, optional)").Value(m.formStart).Validate(optionalClock),
			huh.NewInput().Title("End (HH:MM, optional)").Value(m.formEnd).Validate(optionalClock),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, createTaskCmd(m.core, focus.TaskInput{
			Title:     strings.TrimSpace(*m.formTitle),
			Category:  *m.formCategory,
			Date:      m.date,
			StartTime: *m.formStart,
			EndTime:   *m.formEnd,
		})
	}
	return m, cmd
}

func createTaskCmd(c *focus.Core, in focus.TaskInput) tea.Cmd {
	return func() tea.Msg {
		t, err := c.Tasks.Create(context.Background(), in)
		return taskChangedMsg{task: t, err: err}
	}
}

func requireText(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("enter %s", what)
		}
		return nil
	}
}

func optionalClock(s string) error {
	if s == "" || clockPattern.MatchString(s) {
		return nil
	}
	return errors.New("use HH:MM")
}

func (m tasksModel) view() string {
	w := m.width - 4
	if m.formActive && m.form != nil {
		title := titleStyle.Render("New task for " + m.date)
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()))
	}

	header := titleStyle.Render("Tasks") + "  " + highlightStyle.Render(m.dateLabel())
	tasks := m.visible()

	rows := []string{header, ""}
	if len(tasks) == 0 {
		rows = append(rows, mutedStyle.Render("No tasks. Press n to add one."))
	}
	for i, t := range tasks {
		rows = append(rows, renderTaskLine(t, i == m.cursor))
	}
	if err := m.core.Tasks.Err(); err != nil {
		rows = append(rows, "", errorStyle.Render(err.Error()))
	}
	rows = append(rows, "", mutedStyle.Render("  n: new  enter: done/undo  d: delete  ←/→: day"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (m tasksModel) dateLabel() string {
	if m.date == m.core.Today() {
		return m.date + " (today)"
	}
	return m.date
}

func renderTaskLine(t store.Task, selected bool) string {
	cursor := "  "
	style := normalItemStyle
	if selected {
		cursor = "> "
		style = selectedItemStyle
	}
	mark := "○"
	if t.Completed {
		mark = successStyle.Render("●")
		if !selected {
			style = completedItemStyle
		}
	}
	when := ""
	if t.StartTime != "" {
		when = t.StartTime
		if t.EndTime != "" {
			when += "-" + t.EndTime
		}
	}
	meta := mutedStyle.Render(fmt.Sprintf("%-11s %s", when, t.Category))
	return fmt.Sprintf("%s%s %s  %s", cursor, mark, style.Render(t.Title), meta)
}
