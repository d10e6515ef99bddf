package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/sells-group/itr-cli/internal/processor"
)

var querySubsystem string

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the full ITR status breakdown for a subsystem",
	RunE: func(cmd *cobra.Command, args []string) error {
		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		breakdown, err := proc.GetITRStatus(cmd.Context(), querySubsystem)
		var notFound *processor.NotFoundError
		if errors.As(err, &notFound) {
			// A miss is a normal outcome; print it structurally.
			return printJSON(map[string]any{
				"error":        notFound.Error(),
				"subsystem_id": notFound.SubsystemID,
				"suggestions":  notFound.Suggestions,
			})
		}
		if err != nil {
			return err
		}

		return printJSON(breakdown)
	},
}

func init() {
	queryCmd.Flags().StringVar(&querySubsystem, "subsystem", "", "subsystem ID to query (required)")
	_ = queryCmd.MarkFlagRequired("subsystem")
	rootCmd.AddCommand(queryCmd)
}
