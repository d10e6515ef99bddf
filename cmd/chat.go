package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/itr-cli/internal/agent"
	anthropicpkg "github.com/sells-group/itr-cli/pkg/anthropic"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive ITR assistant with conversational memory",
	Long: `Starts an interactive shell backed by an Anthropic model with the four
ITR tools. The assistant remembers earlier questions, so follow-ups like
"how many of them are ITR-A?" work.

Commands inside the shell:
  quit, exit      end the session
  /reset, /clear  start a fresh conversation
  /memory         show conversation status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Anthropic.Key == "" {
			return eris.New("anthropic API key not set (config anthropic.key or ITR_ANTHROPIC_KEY)")
		}

		proc, closer, err := initProcessor()
		if err != nil {
			return err
		}
		defer closer()

		a := agent.New(anthropicpkg.NewClient(cfg.Anthropic.Key), proc, agent.Options{
			Model:             cfg.Anthropic.Model,
			MaxTokens:         cfg.Anthropic.MaxTokens,
			MaxToolIterations: cfg.Agent.MaxToolIterations,
			RequestsPerMinute: cfg.Agent.RequestsPerMinute,
		})

		fmt.Println("ITR assistant ready. Ask about ITR status, e.g.")
		fmt.Println(`  "How many open ITRs are in subsystem 7-1100-P-01-05?"`)
		fmt.Println(`  "Find subsystems starting with 7-1100"`)
		fmt.Println("Type 'quit' to exit, '/reset' to clear memory, '/memory' for session status.")
		fmt.Println()

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print("You: ")
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			input := strings.TrimSpace(scanner.Text())

			switch strings.ToLower(input) {
			case "":
				continue
			case "quit", "exit", "q":
				fmt.Println("Goodbye!")
				return nil
			case "/reset", "/clear":
				a.Reset()
				fmt.Println("Conversation memory cleared.")
				fmt.Println()
				continue
			case "/memory":
				fmt.Printf("Session %s: %d turns in current conversation\n", a.SessionID(), a.Turns())
				if a.Turns() > 0 {
					fmt.Println("Follow-up questions can reference earlier answers ('them', 'those', 'it').")
				} else {
					fmt.Println("Start by asking about an ITR subsystem.")
				}
				fmt.Println()
				continue
			}

			answer, err := a.Ask(cmd.Context(), input)
			if err != nil {
				zap.L().Error("chat turn failed", zap.Error(err))
				fmt.Printf("Error: %v\nTry again, '/reset' to clear memory, or 'quit' to exit.\n\n", err)
				continue
			}
			fmt.Printf("\nAssistant: %s\n\n", answer)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
