package main

import (
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find subsystems or systems by pattern",
}

var searchSubsystemsCmd = &cobra.Command{
	Use:   "subsystems [pattern]",
	Short: "List subsystems whose ID or description matches the pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		matches, err := proc.SearchSubsystems(cmd.Context(), patternArg(args))
		if err != nil {
			return err
		}
		return printJSON(matches)
	},
}

var searchSystemsCmd = &cobra.Command{
	Use:   "systems [pattern]",
	Short: "List systems whose ID or description matches the pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		matches, err := proc.SearchSystems(cmd.Context(), patternArg(args))
		if err != nil {
			return err
		}
		return printJSON(matches)
	},
}

// patternArg treats a missing argument as the match-all pattern.
func patternArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	searchCmd.AddCommand(searchSubsystemsCmd)
	searchCmd.AddCommand(searchSystemsCmd)
	rootCmd.AddCommand(searchCmd)
}
