package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/silt"
)

var (
	verbose  bool
	target   string
	adapter  string
	database string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "silt",
	Short: "A selective-persistence engine for document stores",
	Long: `Silt stores Go entities as documents and plans writes so partial saves
never clobber preserved fields. The CLI works on the raw document level:
point it at a directory store or a MongoDB connection string.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}

		opts := &slog.HandlerOptions{
			Level: level,
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, opts))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// fatal reports a command failure on stderr and exits.
func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&target, "store", "s", "", "Store target: directory path or mongodb:// URI (default: nearest store root)")
	rootCmd.PersistentFlags().StringVar(&adapter, "adapter", "", "Force a storage adapter (file, memory, mongo)")
	rootCmd.PersistentFlags().StringVar(&database, "database", "", "Database name for the mongo adapter")
}

// resolveTarget returns the store target: the --store flag when given,
// otherwise the nearest store root above the working directory.
func resolveTarget() (string, error) {
	if target != "" {
		return target, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}

	root, err := silt.FindStoreRoot(cwd)
	if err != nil {
		return "", err
	}
	return root, nil
}

// engineOptions assembles the options shared by every subcommand.
func engineOptions(extra ...silt.Option) []silt.Option {
	opts := []silt.Option{
		silt.WithLogger(slog.Default()),
	}
	if adapter != "" {
		opts = append(opts, silt.WithAdapter(adapter))
	}
	if database != "" {
		opts = append(opts, silt.WithDatabase(database))
	}
	return append(opts, extra...)
}

// openEngine opens an existing store; it never provisions one.
func openEngine(ctx context.Context, storeTarget string) (*silt.Engine, error) {
	return silt.Open(ctx, storeTarget, engineOptions(silt.WithMustExist(true))...)
}
