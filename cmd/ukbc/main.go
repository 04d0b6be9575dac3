package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"ukernel/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "ukbc",
	Short: "Micro-kernel IR catalog tool",
	Long: `ukbc lists, resolves and packs the precompiled micro-kernel IR modules
that are linked into generated code for each compilation target`,
	SilenceUsage: true,
}

// main registers subcommands and persistent flags, then executes the root
// command. Any command error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().String("config", "", "path to ukbc.toml (default: search upwards from the working directory)")
	rootCmd.PersistentFlags().String("catalog", "", "directory of *.bc files used instead of the embedded catalog")
	rootCmd.PersistentFlags().String("trace", "", "trace output file (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|target|module)")
	rootCmd.PersistentFlags().String("trace-mode", "stream", "trace storage (stream|ring|both)")
	rootCmd.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")
	rootCmd.PersistentFlags().Int("trace-ring-size", 1024, "events kept in the trace ring buffer")
	rootCmd.PersistentFlags().String("cpu-profile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("mem-profile", "", "write a heap profile to this file on exit")
	rootCmd.PersistentFlags().String("runtime-trace", "", "write a Go runtime trace to this file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return applyColorFlag(cmd)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
