package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/wrtgo/wrtgo/internal/obs"
	"github.com/wrtgo/wrtgo/wrterr"
)

var (
	// Version information, set via ldflags during build.
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeForCLI(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "wrtgo",
	Short:   "wrtgo - a deterministic, fuel-metered WebAssembly Component Model runtime core",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"wrtgo version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "", "Path to a RuntimeConfig YAML file (optional)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(linkCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	obs.Init(obs.Config{
		Level:      obs.Level(logLevel),
		JSONOutput: logJSON,
	})
}

// exitCodeForCLI maps a command error to the CLI exit-code contract: a
// bare (non-*wrterr.Error) error from flag parsing or I/O still exits 1
// via wrterr.ExitCode's unknown-kind fallback.
func exitCodeForCLI(err error) int {
	return wrterr.ExitCode(err)
}
