package main

import (
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:       "cache [status|reload]",
	Short:     "Inspect or refresh the dataset cache",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"status", "reload"},
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		status, err := proc.ManageCache(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
