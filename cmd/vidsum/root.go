package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var apiBind string

	rootCmd := &cobra.Command{
		Use:           "vidsum",
		Short:         "vidsum client CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVar(&apiBind, "api", "http://127.0.0.1:8087", "Base URL of a running vidsumd instance")

	ctx := &commandContext{apiBind: &apiBind}

	rootCmd.AddCommand(newHealthCommand(ctx))
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newSummarizeCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))

	return rootCmd
}

// commandContext threads the resolved API base URL into every subcommand
// constructor.
type commandContext struct {
	apiBind *string
}

func (c *commandContext) client() *apiClient {
	return newAPIClient(*c.apiBind)
}
