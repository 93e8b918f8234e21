package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/silt"
)

type note struct {
	silt.Meta   `bson:",inline"`
	silt.Stamps `bson:",inline"`
	Title       string   `bson:"title"`
	Body        string   `bson:"body"`
	Tags        []string `bson:"tags,omitempty"`
}

func main() {
	count := flag.Int("count", 1000, "Number of documents to generate")
	batch := flag.Int("batch", 100, "Documents per SaveMany call")
	keep := flag.Bool("keep", false, "Keep the benchmark store after running")
	flag.Parse()

	benchDir, err := os.MkdirTemp("", "silt_bench_")
	if err != nil {
		panic(err)
	}
	defer func() {
		if !*keep {
			os.RemoveAll(benchDir)
		} else {
			fmt.Printf("Keeping bench dir: %s\n", benchDir)
		}
	}()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	engine, err := silt.Open(context.Background(), benchDir,
		silt.WithLogger(logger),
		silt.WithAutoInit(true),
	)
	if err != nil {
		panic(err)
	}

	ctx := context.TODO()

	fmt.Printf("Writing %d documents to %s (batches of %d)...\n", *count, benchDir, *batch)
	startWrite := time.Now()
	written := 0
	for written < *count {
		n := *batch
		if remaining := *count - written; remaining < n {
			n = remaining
		}
		docs := make([]silt.Entity, n)
		for i := 0; i < n; i++ {
			docs[i] = &note{
				Title: fmt.Sprintf("Note %d", written+i),
				Body:  "This is a benchmark document.",
				Tags:  []string{"benchmark", "test"},
			}
		}
		if _, err := engine.SaveMany(ctx, docs...); err != nil {
			panic(err)
		}
		written += n
	}
	writeDuration := time.Since(startWrite)
	fmt.Printf("Write took: %v (%.0f docs/s)\n", writeDuration, float64(*count)/writeDuration.Seconds())

	// Run 1: same engine instance, index already in memory.
	fmt.Println("Running List (Run 1 - Warm)...")
	startList := time.Now()
	ids, err := engine.List(ctx, "note")
	if err != nil {
		panic(err)
	}
	warm := time.Since(startList)
	fmt.Printf("Run 1 Result: %v (Items: %d)\n", warm, len(ids))

	if err := engine.Close(ctx); err != nil {
		panic(err)
	}

	// Run 2: fresh engine, simulates a new CLI invocation loading the
	// persisted index from disk.
	engine2, err := silt.Open(context.Background(), benchDir,
		silt.WithLogger(logger),
	)
	if err != nil {
		panic(err)
	}

	fmt.Println("Running List (Run 2 - Cold)...")
	startList2 := time.Now()
	ids2, err := engine2.List(ctx, "note")
	if err != nil {
		panic(err)
	}
	cold := time.Since(startList2)
	fmt.Printf("Run 2 Result: %v (Items: %d)\n", cold, len(ids2))

	if err := engine2.Close(ctx); err != nil {
		panic(err)
	}

	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("Benchmark Result (%d documents):\n", *count)
	fmt.Printf("  Write: %v\n", writeDuration)
	fmt.Printf("  Warm list: %v\n", warm)
	fmt.Printf("  Cold list: %v\n", cold)
	fmt.Printf("--------------------------------------------------\n")
}
