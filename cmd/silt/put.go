package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aretw0/silt/pkg/core"
)

var (
	putID   string
	putData string
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put [collection]",
	Short: "Write a document",
	Long: `Create or replace a document in the given collection. Fields are read
from --data as a JSON object, or from stdin when --data is "-".`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		collection := args[0]

		fields, embeddedID, err := decodeFields(putData)
		if err != nil {
			fatal("Failed to parse document data", err)
		}

		id := putID
		if id == "" {
			id = embeddedID
		}
		if id == "" {
			id = uuid.NewString()
		}

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

		res, err := engine.Store().ReplaceUpsert(ctx, collection, core.Document{
			ID:     id,
			Fields: fields,
		})
		if err != nil {
			fatal("Failed to save document", err)
		}

		if res.Upserted > 0 {
			fmt.Printf("Document '%s' created in %s.\n", id, collection)
			return
		}
		fmt.Printf("Document '%s' replaced in %s.\n", id, collection)
	},
}

// decodeFields parses a JSON object into deterministic field updates. An
// "_id" member is not a field; it is pulled out and returned separately.
func decodeFields(data string) ([]core.FieldUpdate, string, error) {
	if data == "-" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read stdin: %w", err)
		}
		data = string(raw)
	}
	if data == "" {
		return nil, "", nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, "", err
	}

	embeddedID, _ := m["_id"].(string)
	delete(m, "_id")

	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]core.FieldUpdate, 0, len(names))
	for _, name := range names {
		fields = append(fields, core.FieldUpdate{Name: name, Value: m[name]})
	}
	return fields, embeddedID, nil
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().StringVar(&putID, "id", "", "Document ID (generated when omitted)")
	putCmd.Flags().StringVarP(&putData, "data", "d", "", "Document fields as a JSON object, or '-' for stdin")
}
