package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [collection]",
	Short: "Stream change events from the store",
	Long: `Watch prints a line for every document change until interrupted.
With a collection argument only that collection is observed.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		collection := ""
		if len(args) == 1 {
			collection = args[0]
		}

		storeTarget, err := resolveTarget()
		if err != nil {
			fatal("Failed to resolve store", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		engine, err := openEngine(ctx, storeTarget)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer engine.Close(ctx)

		events, err := engine.Watch(ctx, collection)
		if err != nil {
			fatal("Failed to start watching", err)
		}

		fmt.Fprintln(os.Stderr, "Watching for changes. Press Ctrl+C to stop.")
		for event := range events {
			fmt.Println(event.String())
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
