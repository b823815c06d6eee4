// Package main provides the profiled binary: the profiling daemon and its
// control CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/profiled-project/profiled/internal/cli/profiling"
	"github.com/profiled-project/profiled/internal/cli/serve"
	"github.com/profiled-project/profiled/pkg/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "profiled",
		Short:         "profiled - remotely controllable sampling profiler daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serve.NewServeCmd())

	// Client commands sit directly on root for a flat hierarchy
	// (e.g. "profiled start" instead of "profiled session start").
	profiling.RegisterCommands(rootCmd)

	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println(version.String())
		},
	}
}
