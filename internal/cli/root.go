// Package cli wires flow's commands.
package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/tui"
)

var (
	configPath string
	rootCmd    *cobra.Command
)

func init() {
	rootCmd = &cobra.Command{
		Use:   "flow",
		Short: "flow - focus sessions, tasks and streaks in the terminal",
		Long: `flow times focus sessions, keeps a small task list and turns both into
daily totals, streaks, a yearly heatmap and achievements.

Run without a subcommand to open the interactive view.`,
		RunE:          runTUI, // Default action is the interactive view
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/flow/flow.yaml)")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.NewApp(a.core, a.store, a.cfg.TickInterval()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
