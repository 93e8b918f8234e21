package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/silt"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a silt store",
	Long:  `Initialize a new silt store: provisions the directory, manifest and index.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := "."
		if len(args) == 1 {
			path = args[0]
		} else if cwd, err := os.Getwd(); err == nil {
			path = cwd
		}

		ctx := context.Background()
		engine, err := silt.Open(ctx, path, engineOptions(silt.WithAutoInit(true))...)
		if err != nil {
			fatal("Failed to initialize store", err)
		}
		defer engine.Close(ctx)

		fmt.Println("Initialized empty silt store in", path)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
