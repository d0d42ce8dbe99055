package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

type formKind int

const (
	formSignUp formKind = iota
	formEdit
	formLogout
)

type settingsModel struct {
	core   *focus.Core
	width  int
	height int

	formActive bool
	form       *huh.Form
	formKind   formKind

	// Form values as pointers (survive value copies)
	name      *string
	email     *string
	dailyGoal *string
	confirm   *bool
}

func newSettingsModel(c *focus.Core) settingsModel {
	name, email, goal, confirm := "", "", "", false
	return settingsModel{
		core:      c,
		name:      &name,
		email:     &email,
		dailyGoal: &goal,
		confirm:   &confirm,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case s.core.Identity.User() == nil && (key.Matches(msg, keys.Enter) || key.Matches(msg, keys.New)):
			return s.showSignUpForm()
		case s.core.Identity.User() == nil:
			return s, nil
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.New):
			return s.showEditForm()
		case key.Matches(msg, keys.Delete):
			return s.showLogoutForm()
		}
	}
	return s, nil
}

func (s settingsModel) showSignUpForm() (settingsModel, tea.Cmd) {
	*s.name = ""
	*s.email = ""
	s.formKind = formSignUp
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Your name").Value(s.name).Validate(requireText("your name")),
			huh.NewInput().Title("Email (optional)").Value(s.email),
		).Title("Welcome to flow"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showEditForm() (settingsModel, tea.Cmd) {
	u := s.core.Identity.User()
	*s.name = u.Name
	*s.email = u.Email
	*s.dailyGoal = secsToHours(s.core.Settings.DailyGoal())
	s.formKind = formEdit

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(s.name).Validate(requireText("a name")),
			huh.NewInput().Title("Email").Value(s.email),
		).Title("Profile"),
		huh.NewGroup(
			huh.NewInput().Title("Daily goal (hours)").Value(s.dailyGoal).Validate(validHours),
		).Title("Goal"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) showLogoutForm() (settingsModel, tea.Cmd) {
	*s.confirm = false
	s.formKind = formLogout
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Delete this profile?").
				Description("Every session, task and achievement goes with it.").
				Affirmative("Delete").
				Negative("Keep").
				Value(s.confirm),
		),
	).WithShowHelp(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" && s.formKind != formSignUp {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		switch s.formKind {
		case formSignUp:
			return s, signUpCmd(s.core, store.NewUser{Name: strings.TrimSpace(*s.name), Email: strings.TrimSpace(*s.email)})
		case formEdit:
			return s, saveProfileCmd(s.core, strings.TrimSpace(*s.name), strings.TrimSpace(*s.email), *s.dailyGoal)
		case formLogout:
			if *s.confirm {
				return s, logoutCmd(s.core)
			}
		}
		return s, nil
	}
	return s, cmd
}

func signUpCmd(c *focus.Core, in store.NewUser) tea.Cmd {
	return func() tea.Msg {
		u, err := c.SignUp(context.Background(), in)
		return profileSavedMsg{user: u, err: err}
	}
}

func saveProfileCmd(c *focus.Core, name, email, goalHours string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		u, err := c.Identity.Update(ctx, store.UserPatch{Name: &name, Email: &email})
		if err != nil {
			return profileSavedMsg{err: err}
		}
		if secs, ok := hoursToSecs(goalHours); ok {
			err = c.Settings.Set(ctx, focus.SettingDailyGoal, strconv.FormatInt(secs, 10))
		}
		return profileSavedMsg{user: u, err: err}
	}
}

func logoutCmd(c *focus.Core) tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg{err: c.Logout(context.Background())}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(s.form.View())
	}

	u := s.core.Identity.User()
	if u == nil {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("No profile yet"),
			"",
			subtitleStyle.Render("Press enter to create one. Sessions are only recorded for a profile."),
		))
	}

	rows := []string{titleStyle.Render("Profile"), ""}
	field := func(label, value string) {
		l := lipgloss.NewStyle().Width(16).Render(label)
		rows = append(rows, fmt.Sprintf("  %s %s", l, highlightStyle.Render(value)))
	}
	field("Name", u.Name)
	if u.Email != "" {
		field("Email", u.Email)
	}
	field("Joined", u.JoinDate.Local().Format("Jan 02, 2006"))
	field("Daily goal", formatHours(s.core.Settings.DailyGoal()))

	rows = append(rows, "", mutedStyle.Render("  enter: edit  d: delete profile"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func secsToHours(secs int64) string {
	return strconv.FormatFloat(float64(secs)/3600, 'f', -1, 64)
}

func hoursToSecs(s string) (int64, bool) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || hours <= 0 {
		return 0, false
	}
	return int64(hours * 3600), true
}

func validHours(s string) error {
	if _, ok := hoursToSecs(s); !ok {
		return errors.New("enter a positive number of hours")
	}
	if h, _ := strconv.ParseFloat(strings.TrimSpace(s), 64); h > 24 {
		return errors.New("a day has 24 hours")
	}
	return nil
}
