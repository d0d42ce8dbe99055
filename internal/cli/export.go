package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export sessions as CSV or everything as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent focus sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessions,
}

func init() {
	exportCmd.Flags().String("format", "json", "csv (sessions) or json (full profile)")
	exportCmd.Flags().StringP("out", "o", "-", "Output file, - for stdout")
	sessionsCmd.Flags().Int("limit", 10, "Number of sessions to show")
}

func runExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")
	if format != "csv" && format != "json" {
		return fmt.Errorf("unknown format %q, want csv or json", format)
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	u, err := a.requireUser()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	if format == "csv" {
		err = writeSessionsCSV(cmd, a, u.ID, w)
	} else {
		err = writeBundle(cmd, a, w)
	}
	if err != nil {
		return err
	}

	if outPath != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", outPath)
	}
	return nil
}

func writeSessionsCSV(cmd *cobra.Command, a *app, userID string, w io.Writer) error {
	sessions, err := a.store.GetFocusSessions(cmd.Context(), userID, 0)
	if err != nil {
		return err
	}
	return export.WriteSessionsCSV(w, sessions)
}

func writeBundle(cmd *cobra.Command, a *app, w io.Writer) error {
	bundle, err := export.Collect(cmd.Context(), a.store, time.Now())
	if err != nil {
		return err
	}
	return export.WriteJSON(w, bundle)
}

func runSessions(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()
	u, err := a.requireUser()
	if err != nil {
		return err
	}

	sessions, err := a.store.GetFocusSessions(cmd.Context(), u.ID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions yet.")
		return nil
	}
	fmt.Fprintf(out, "Recent sessions (%d):\n\n", len(sessions))
	for _, s := range sessions {
		fmt.Fprintf(out, "  %s  %s  %s\n",
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			clockTime(s.DurationSeconds),
			s.Category)
	}
	return nil
}
