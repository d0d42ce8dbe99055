package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

const maxHeatmapWeeks = 26

type statsModel struct {
	core   *focus.Core
	width  int
	height int

	chart barchart.Model
}

func newStatsModel(c *focus.Core) statsModel {
	return statsModel{
		core:  c,
		chart: barchart.New(60, 12),
	}
}

func (s *statsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type statsLoadedMsg struct {
	err error
}

func (s statsModel) refresh() tea.Cmd {
	c := s.core
	return func() tea.Msg {
		return statsLoadedMsg{err: c.Stats.Refresh(context.Background())}
	}
}

func (s statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	switch msg.(type) {
	case statsLoadedMsg, tickMsg:
		s.buildChart()
	}
	return s, nil
}

func (s *statsModel) buildChart() {
	chartWidth := max(20, s.width-8)
	chartHeight := 10
	if s.height > 36 {
		chartHeight = 14
	}
	s.chart = barchart.New(chartWidth, chartHeight)

	today := s.today()
	week := s.core.Stats.WeekData()
	bars := make([]barchart.BarData, 0, len(week))
	for i, minutes := range week {
		day := today.AddDate(0, 0, i-(focus.WeekDays-1))
		style := lipgloss.NewStyle().Foreground(colorSecondary)
		if i == len(week)-1 {
			style = lipgloss.NewStyle().Foreground(colorPrimary)
		}
		bars = append(bars, barchart.BarData{
			Label:  day.Format("Mon"),
			Values: []barchart.BarValue{{Name: "minutes", Value: float64(minutes), Style: style}},
		})
	}
	s.chart.PushAll(bars)
	s.chart.Draw()
}

func (s statsModel) today() time.Time {
	t, err := time.ParseInLocation(store.DateLayout, s.core.Today(), time.Local)
	if err != nil {
		return time.Now()
	}
	return t
}

func (s statsModel) view() string {
	w := s.width - 4

	week := s.core.Stats.WeekData()
	total := 0
	for _, m := range week {
		total += m
	}
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Last 7 days"), "  ",
		mutedStyle.Render(fmt.Sprintf("%dh %02dm", total/60, total%60)),
	)

	rows := []string{header, "", s.chart.View(), "", s.renderSummary(), "", titleStyle.Render("Year"), s.renderHeatmap(w)}
	if err := s.core.Stats.Err(); err != nil {
		rows = append(rows, "", warningStyle.Render("Showing cached numbers: "+err.Error()))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s statsModel) renderSummary() string {
	sum := s.core.Stats.Summary()
	cells := []struct{ label, value string }{
		{"Total focus", formatSeconds(sum.TotalFocusTime)},
		{"Sessions", fmt.Sprintf("%d", sum.TotalSessions)},
		{"Streak", fmt.Sprintf("%d days", sum.CurrentStreak)},
		{"Best streak", fmt.Sprintf("%d days", sum.LongestStreak)},
		{"Tasks done", fmt.Sprintf("%d", sum.TasksCompleted)},
	}
	parts := make([]string, len(cells))
	for i, c := range cells {
		parts[i] = lipgloss.JoinVertical(lipgloss.Left,
			mutedStyle.Render(c.label),
			highlightStyle.Render(c.value),
		)
		parts[i] = lipgloss.NewStyle().PaddingRight(4).Render(parts[i])
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderHeatmap draws one column per week, Sunday on top, ending with
// the current week.
func (s statsModel) renderHeatmap(w int) string {
	weeks := min(maxHeatmapWeeks, max(1, (w-6)/2))
	values := make(map[string]int64)
	for _, p := range s.core.Stats.Heatmap() {
		values[p.Date] = p.Value
	}

	today := s.today()
	start := today.AddDate(0, 0, -int(today.Weekday())-7*(weeks-1))

	var b strings.Builder
	for row := 0; row < 7; row++ {
		for col := 0; col < weeks; col++ {
			d := start.AddDate(0, 0, col*7+row)
			if d.After(today) {
				b.WriteString("  ")
				continue
			}
			level := heatLevel(values[store.DateKey(d)])
			b.WriteString(lipgloss.NewStyle().Foreground(heatmapColors[level]).Render("■") + " ")
		}
		if row < 6 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// heatLevel buckets a day's focus minutes into a heatmap color index.
func heatLevel(minutes int64) int {
	switch {
	case minutes <= 0:
		return 0
	case minutes < 30:
		return 1
	case minutes < 60:
		return 2
	case minutes < 120:
		return 3
	}
	return 4
}
