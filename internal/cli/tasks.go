package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/focus"
	"github.com/sadopc/flow/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the tasks of a day",
	Args:  cobra.NoArgs,
	RunE:  runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksAdd,
}

var tasksDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task's completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksDone,
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksRm,
}

func init() {
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksDoneCmd)
	tasksCmd.AddCommand(tasksRmCmd)

	tasksCmd.Flags().String("date", "", "Day to list, YYYY-MM-DD (default today)")
	tasksAddCmd.Flags().String("date", "", "Day of the task, YYYY-MM-DD (default today)")
	tasksAddCmd.Flags().String("category", string(store.CategoryToDo), `One of "To Do", "Event", "Reminder"`)
	tasksAddCmd.Flags().String("start", "", "Start time, HH:MM")
	tasksAddCmd.Flags().String("end", "", "End time, HH:MM")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	if err := a.core.Tasks.FetchTasks(cmd.Context(), date); err != nil {
		return err
	}
	tasks := a.core.Tasks.TasksForDate(date)

	out := cmd.OutOrStdout()
	if len(tasks) == 0 {
		fmt.Fprintf(out, "No tasks for %s.\n", date)
		return nil
	}
	fmt.Fprintf(out, "Tasks for %s (%d):\n\n", date, len(tasks))
	for _, t := range tasks {
		fmt.Fprintln(out, formatTask(t))
	}
	return nil
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	date, err := dateFlag(cmd)
	if err != nil {
		return err
	}
	category, _ := cmd.Flags().GetString("category")
	start, _ := cmd.Flags().GetString("start")
	end, _ := cmd.Flags().GetString("end")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.core.Tasks.Create(cmd.Context(), focus.TaskInput{
		Title:     args[0],
		Category:  store.TaskCategory(category),
		Date:      date,
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		if errors.Is(err, focus.ErrNoUser) {
			_, err = a.requireUser()
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Added", formatTask(*task))
	return nil
}

func runTasksDone(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	id, err := resolveTask(cmd, a, args[0])
	if err != nil {
		return err
	}
	task, err := a.core.Tasks.Toggle(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, formatTask(*task))

	// The toggle re-checks achievements in the background.
	a.core.Bus.Wait()
	for _, u := range a.core.Achievements.TakeUnlocked() {
		fmt.Fprintf(out, "Achievement unlocked: %s\n", achievementName(u.Type))
	}
	return nil
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	if _, err := a.requireUser(); err != nil {
		return err
	}

	id, err := resolveTask(cmd, a, args[0])
	if err != nil {
		return err
	}
	if err := a.core.Tasks.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Deleted", shortID(id))
	return nil
}

// resolveTask accepts a full id or an unambiguous prefix of one.
func resolveTask(cmd *cobra.Command, a *app, ref string) (string, error) {
	if err := a.core.Tasks.FetchAll(cmd.Context()); err != nil {
		return "", err
	}
	var matches []string
	for _, t := range a.core.Tasks.All() {
		if t.ID == ref {
			return t.ID, nil
		}
		if strings.HasPrefix(t.ID, ref) {
			matches = append(matches, t.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no task %q", ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func dateFlag(cmd *cobra.Command) (string, error) {
	date, _ := cmd.Flags().GetString("date")
	if date == "" {
		return store.DateKey(time.Now()), nil
	}
	if _, err := time.Parse(store.DateLayout, date); err != nil {
		return "", fmt.Errorf("invalid --date %q, want YYYY-MM-DD", date)
	}
	return date, nil
}

func formatTask(t store.Task) string {
	mark := "[ ]"
	if t.Completed {
		mark = "[x]"
	}
	when := ""
	if t.StartTime != "" {
		when = t.StartTime
		if t.EndTime != "" {
			when += "-" + t.EndTime
		}
	}
	return fmt.Sprintf("  %s %s  %-11s %-9s %s", mark, shortID(t.ID), when, t.Category, t.Title)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func achievementName(t store.AchievementType) string {
	for _, info := range store.Catalog() {
		if info.Type == t {
			return info.Name
		}
	}
	return string(t)
}
