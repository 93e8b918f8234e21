package file

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/silt/pkg/core"
)

// encodeDocument renders a document as relaxed extended JSON, identifier
// included, so files round-trip through the same codec the mongo adapter's
// documents do.
func encodeDocument(doc core.Document) ([]byte, error) {
	m := bson.M{"_id": doc.ID}
	for _, f := range doc.Fields {
		m[f.Name] = f.Value
	}
	data, err := bson.MarshalExtJSONIndent(m, false, false, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document %s: %w", doc.ID, err)
	}
	return append(data, '\n'), nil
}

// encodeRaw renders an already-assembled field map, used by field-scoped
// updates that re-encode a decoded document.
func encodeRaw(m bson.M) ([]byte, error) {
	data, err := bson.MarshalExtJSONIndent(m, false, false, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeDocument parses a stored document back into a raw field map.
func decodeDocument(data []byte) (bson.M, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON(data, false, &m); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return m, nil
}
