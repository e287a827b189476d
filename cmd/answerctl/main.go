// Command answerctl runs the guardrail engine and fact planner offline against
// fixture files and maintains the activity registry.
//
// Usage:
//
//	answerctl guardrail check --text "talk to a human" --direction user_message
//	answerctl plan --query "Bu ürün kaç ml?" --snapshots snapshots.yaml
//	answerctl keywords handoff
//	answerctl registry validate --path configs/activity-registry.json
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"

	applog "commerce-answers/internal/common/logger"
)

var (
	logger   *zap.Logger
	logLevel string
	compact  bool
)

var rootCmd = &cobra.Command{
	Use:   "answerctl",
	Short: "Offline tooling for the commerce answer engine",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = applog.New(logLevel, "console")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&compact, "compact", false, "print JSON on a single line")

	rootCmd.AddCommand(guardrailCmd, planCmd, keywordsCmd, registryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func log() *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

// printJSON writes v as pretty JSON unless --compact is set.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if compact {
		data = append(data, '\n')
	} else {
		data = pretty.Pretty(data)
	}
	_, err = w.Write(data)
	return err
}
