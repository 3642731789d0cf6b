package main

import (
	"os"

	"github.com/spf13/cobra"
)

var Command = &cobra.Command{
	Use:   "unique-window",
	Short: "keep the first event per key in every tumbling window",
	Long: `unique-window reads events from a source, keeps the first event of every key
in each tumbling processing-time window and logs the batch at every window boundary.`,
	SilenceUsage: true,
}

func main() {
	if err := Command.Execute(); err != nil {
		os.Exit(1)
	}
}
