package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/export"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Restore a JSON export into the local profile",
	Long: `Restore a file written by 'flow export --format json'. Without a local
profile the one in the file is created; otherwise everything is added to
the existing profile. Rows that are already present are skipped, so
importing the same file twice is harmless. Use - to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	var (
		b   *export.Bundle
		err error
	)
	if args[0] == "-" {
		b, err = export.ReadJSON(cmd.InOrStdin())
	} else {
		b, err = export.FromJSON(args[0])
	}
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := export.Import(cmd.Context(), a.store, b)
	if err != nil {
		return err
	}
	a.logger.Info("imported backup", "user", res.UserID, "sessions", res.Sessions, "tasks", res.Tasks)
	out := cmd.OutOrStdout()
	if res.UserCreated {
		fmt.Fprintf(out, "Created profile %s\n", b.User.Name)
	}
	fmt.Fprintln(out, res.String())
	return nil
}
