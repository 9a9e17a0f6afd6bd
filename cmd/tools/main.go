package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tools",
		Short:         "Helpdesk API operator tools",
		Long:          `Administrative commands for the helpdesk API: database migrations, asset imports, test tokens and password hashes.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newMigrateCommand(),
		newImportCommand(),
		newJWTCommand(),
		newHashPasswordCommand(),
	)
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
