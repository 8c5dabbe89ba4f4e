// Command sqldrift compares database schemas and plans reconciliation DDL.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqldrift/sqldrift/cmd/compare"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "sqldrift",
		Short:   "Schema drift detection and migration planning",
		Long:    "sqldrift compares two database schemas, classifies every structural\ndifference by operational risk, and renders a dependency-ordered DDL script\nthat reconciles the destination toward the source.",
		Version: version,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(compare.NewCompareCommand())
	return root
}

// setupLogging configures the process-wide slog handler. Level and format
// come from SQLDRIFT_LOG_LEVEL and SQLDRIFT_LOG_FORMAT.
func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(viper.GetString("log_level")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if viper.GetString("log_format") == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func main() {
	viper.SetEnvPrefix("sqldrift")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := newRootCommand().Execute(); err != nil {
		var exitErr *compare.ExitError
		if errors.As(err, &exitErr) {
			// Differences are an outcome, not a failure.
			if exitErr.Code == compare.ExitDifferences || exitErr.Code == compare.ExitBreaking {
				fmt.Fprintln(os.Stderr, err)
			} else {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(compare.ExitCompareFail)
	}
}
