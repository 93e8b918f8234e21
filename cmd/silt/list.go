package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list [collection]",
	Short: "List the documents in a collection",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		collection := args[0]

		storeTarget, err := resolveTarget()
		if err != nil {
			fatal("Failed to resolve store", err)
		}

		ctx := context.Background()
		engine, err := openEngine(ctx, storeTarget)
		if err != nil {
			fatal("Failed to open store", err)
		}
		defer engine.Close(ctx)

		ids, err := engine.List(ctx, collection)
		if err != nil {
			fatal("Failed to list documents", err)
		}

		if listJSON {
			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(ids); err != nil {
				fatal("Failed to encode listing", err)
			}
			return
		}

		for _, id := range ids {
			fmt.Println(id)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
}
