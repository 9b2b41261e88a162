// Command fiberctl is an operator tool for the fiber package: it runs the
// library's own end-to-end scenarios, renders a live ring dashboard, streams
// scheduler telemetry over a websocket, and hot-reloads scheduler config from
// a YAML file. None of this ships inside the fiber package itself - it is an
// outer surface for exercising and observing it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// logger is this command's structured logger, in the same style as the
// fiber package's own package-level slog logger.
var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

func main() {
	rootCmd := &cobra.Command{
		Use:     "fiberctl",
		Short:   "Operate and observe the fiber scheduler",
		Long:    "fiberctl runs fiber scheduling scenarios and exposes them for live observation.",
		Version: "0.1.0",
	}

	rootCmd.AddCommand(newDemoCommand())
	rootCmd.AddCommand(newTopCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWatchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
