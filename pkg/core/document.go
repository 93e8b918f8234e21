package core

import (
	"errors"
	"fmt"
	"reflect"
)

// FieldUpdate is one field write. ServerTime entries instruct the store to
// stamp the field with its own current time instead of a client value;
// they appear only in UpdateFields payloads, never in full replaces.
type FieldUpdate struct {
	Name       string
	Value      any
	ServerTime bool
}

// Document is a flattened write payload: the identifier plus the field
// values to store, in descriptor order. Adapters consume Documents verbatim
// and never re-apply omit rules; the planner already did.
type Document struct {
	ID     string
	Fields []FieldUpdate
}

// Flatten renders an entity into its full replace payload. Identifier and
// ignored fields are excluded, omit-empty and omit-nil rules applied.
func Flatten(md *TypeMetadata, e Entity) (Document, error) {
	v, err := structValue(md, e)
	if err != nil {
		return Document{}, err
	}

	doc := Document{ID: e.GetID()}
	for _, d := range md.Fields {
		if d.IsID || d.Ignored {
			continue
		}
		fv, err := v.FieldByIndexErr(d.Index)
		if err != nil {
			continue // nil inlined pointer, nothing to read
		}
		if d.OmitEmpty && fv.IsZero() {
			continue
		}
		if d.OmitNil && isNilValue(fv) {
			continue
		}
		doc.Fields = append(doc.Fields, FieldUpdate{Name: d.Name, Value: fv.Interface()})
	}
	return doc, nil
}

func structValue(md *TypeMetadata, e Entity) (reflect.Value, error) {
	v := reflect.ValueOf(e)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, errors.New("nil entity")
		}
		v = v.Elem()
	}
	if v.Type() != md.Type {
		return reflect.Value{}, fmt.Errorf("entity type %s does not match metadata for %s", v.Type(), md.Type)
	}
	return v, nil
}

func isNilValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
