package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get [collection] [id]",
	Short: "Read a document",
	Long:  `Read a document by collection and ID. Outputs the stored fields as indented JSON.`,
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		collection, id := args[0], args[1]

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

		doc, err := engine.Find(ctx, collection, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading document: %v\n", err)
			os.Exit(1)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(doc); err != nil {
			fatal("Failed to encode document", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
