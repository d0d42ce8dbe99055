package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/flow/internal/store"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show the local profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileShow,
}

var profileCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the local profile",
	Args:  cobra.NoArgs,
	RunE:  runProfileCreate,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the local profile and all of its data",
	Args:  cobra.NoArgs,
	RunE:  runProfileDelete,
}

func init() {
	profileCmd.AddCommand(profileCreateCmd)
	profileCmd.AddCommand(profileDeleteCmd)

	profileCreateCmd.Flags().String("name", "", "Display name")
	profileCreateCmd.Flags().String("email", "", "Email (optional)")
	profileDeleteCmd.Flags().Bool("yes", false, "Confirm deletion")
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.requireUser()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:    %s\n", u.Name)
	if u.Email != "" {
		fmt.Fprintf(out, "Email:   %s\n", u.Email)
	}
	fmt.Fprintf(out, "Joined:  %s\n", u.JoinDate.Local().Format("2006-01-02"))
	return nil
}

func runProfileCreate(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	if name == "" {
		return errors.New("--name is required")
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if u := a.core.Identity.User(); u != nil {
		return fmt.Errorf("profile %q already exists", u.Name)
	}
	u, err := a.core.SignUp(cmd.Context(), store.NewUser{Name: name, Email: email})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s\n", u.Name)
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		return errors.New("this deletes every session, task and achievement; pass --yes to confirm")
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
	if err := a.core.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", u.Name)
	return nil
}
