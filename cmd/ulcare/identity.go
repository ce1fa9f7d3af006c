package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hildanuzulul/Ulcare/internal/config"
	"github.com/hildanuzulul/Ulcare/internal/database"
	"github.com/hildanuzulul/Ulcare/internal/model"
)

// errNoIdentity is returned by classify when no identity is stored.
var errNoIdentity = errors.New(`no patient identity stored: run "ulcare identity set --name NAME --gender L|P" first, or use --anonymous`)

// NewIdentityCmd creates the identity command and its subcommands.
func NewIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Manage the stored patient identity",
		Long: `Identity stores the patient's name and gender once so every
classification result can be attributed to them.

The record is kept in a local SQLite database under the XDG data directory
(~/.local/share/ulcare on Linux). Saving replaces any previous identity.

Examples:
  ulcare identity set --name "Siti Aminah" --gender P
  ulcare identity show
  ulcare identity clear`,
	}

	cmd.PersistentFlags().String("data-dir", config.XDGDataDir(),
		"Directory holding the identity database")

	cmd.AddCommand(newIdentitySetCmd())
	cmd.AddCommand(newIdentityShowCmd())
	cmd.AddCommand(newIdentityClearCmd())

	return cmd
}

func newIdentitySetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Save the patient name and gender",
		Args:  cobra.NoArgs,
		RunE:  runIdentitySetCmd,
	}

	cmd.Flags().StringP("name", "n", "", "Patient name")
	cmd.Flags().StringP("gender", "g", "", "Patient gender: L (laki-laki) or P (perempuan)")

	return cmd
}

func newIdentityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the stored identity",
		Args:  cobra.NoArgs,
		RunE:  runIdentityShowCmd,
	}
}

func newIdentityClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored identity",
		Args:  cobra.NoArgs,
		RunE:  runIdentityClearCmd,
	}
}

// openIdentityStore opens the database named by the data-dir flag.
func openIdentityStore(cmd *cobra.Command) (*database.IdentityStore, error) {
	dir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, err
	}
	store, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}
	return store, nil
}

// runIdentitySetCmd validates and saves the identity.
func runIdentitySetCmd(cmd *cobra.Command, _ []string) error {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return err
	}
	gender, err := cmd.Flags().GetString("gender")
	if err != nil {
		return err
	}

	id, err := model.NewIdentity(name, gender)
	if err != nil {
		return err
	}

	store, err := openIdentityStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SaveIdentity(cmd.Context(), id); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved identity: %s (%s)\n", id.Name, id.Gender.Display())
	return nil
}

// runIdentityShowCmd prints the stored identity.
func runIdentityShowCmd(cmd *cobra.Command, _ []string) error {
	store, err := openIdentityStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := store.GetIdentity(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if id == nil {
		fmt.Fprintln(out, "No identity stored.")
		return nil
	}
	fmt.Fprintf(out, "Name:   %s\n", id.Name)
	fmt.Fprintf(out, "Gender: %s (%s)\n", id.Gender.Display(), id.Gender)
	return nil
}

// runIdentityClearCmd removes the stored identity.
func runIdentityClearCmd(cmd *cobra.Command, _ []string) error {
	store, err := openIdentityStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.ClearIdentity(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Identity cleared.")
	return nil
}
