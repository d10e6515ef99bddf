package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/cache"
	"github.com/sells-group/itr-cli/internal/config"
	"github.com/sells-group/itr-cli/internal/processor"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "itr-cli",
	Short: "ITR completions reporting and chat assistant",
	Long:  "Loads an ITR completions workbook, deduplicates and caches it, and answers status queries directly or through a conversational agent.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// initProcessor builds the query engine and its cache store. The
// returned closer releases the store.
func initProcessor() (*processor.Processor, func(), error) {
	store, err := cache.OpenStore(cfg.Cache.Dir)
	if err != nil {
		return nil, nil, err
	}

	proc := processor.New(processor.Config{
		SourcePath:   cfg.Source.Path,
		FallbackPath: cfg.Source.FallbackPath,
		SheetName:    cfg.Source.SheetName,
		SheetIndex:   cfg.Source.SheetIndex,
	}, cache.NewManager(store))

	return proc, func() { _ = store.Close() }, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
