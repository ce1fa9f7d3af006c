package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for Ulcare.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ulcare",
		Short: "Diabetic foot ulcer severity classification",
		Long: `Ulcare classifies the severity of a diabetic foot ulcer from a photo.

An on-device model assigns one of five labels, from light to urgent, and
the matching clinical detail and recommended action are shown with it.
Nothing leaves the machine.

Store the patient identity once with "ulcare identity set", then classify
photos with "ulcare classify". The result supports, and does not replace,
a clinical examination.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewClassifyCmd())
	cmd.AddCommand(NewIdentityCmd())
	cmd.AddCommand(NewInspectCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
