package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/focus"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6C63FF"))
	labelStyle   = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("#666666"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#2EC4B6"))
)

const weekBarWidth = 30

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's focus, the last week and streaks",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireUser(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStats(a.core, time.Now()))
	return nil
}

func renderStats(c *focus.Core, now time.Time) string {
	summary := c.Stats.Summary()
	goal := c.Settings.DailyGoal()
	today := c.Stats.TodayFocusSeconds()

	var b strings.Builder
	b.WriteString(headingStyle.Render("Today") + "\n")
	row(&b, "Focus", fmt.Sprintf("%s of %s", clockTime(today), clockTime(goal)))
	row(&b, "Sessions", fmt.Sprintf("%d", c.Stats.TodaySessionCount()))

	b.WriteString("\n" + headingStyle.Render("Last 7 days") + "\n")
	week := c.Stats.WeekData()
	peak := 0
	for _, m := range week {
		peak = max(peak, m)
	}
	for i, minutes := range week {
		day := now.AddDate(0, 0, i-(focus.WeekDays-1)).Format("Mon 02")
		width := 0
		if peak > 0 {
			width = minutes * weekBarWidth / peak
		}
		bar := barStyle.Render(strings.Repeat("█", width))
		fmt.Fprintf(&b, "%s %s %dm\n", labelStyle.Render(day), bar, minutes)
	}

	b.WriteString("\n" + headingStyle.Render("All time") + "\n")
	row(&b, "Focus", clockTime(summary.TotalFocusTime))
	row(&b, "Sessions", fmt.Sprintf("%d", summary.TotalSessions))
	row(&b, "Streak", fmt.Sprintf("%d days (best %d)", summary.CurrentStreak, summary.LongestStreak))
	row(&b, "Tasks done", fmt.Sprintf("%d", summary.TasksCompleted))

	if n := c.Achievements.UnseenCount(); n > 0 {
		fmt.Fprintf(&b, "\n%d new achievement(s), open flow to see them\n", n)
	}
	return strings.TrimRight(b.String(), "\n")
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// clockTime formats seconds as HH:MM:SS.
func clockTime(secs int64) string {
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs%3600)/60, secs%60)
}
