package core

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// PreserveMode is the tri-state partial-save disposition of a field,
// derived from its silt tag.
type PreserveMode uint8

const (
	// PreserveUnset means the field carries no preservation tag.
	PreserveUnset PreserveMode = iota
	// PreserveAlways marks a field tagged to survive partial saves.
	PreserveAlways
	// PreserveNever marks a field tagged to be overwritten by partial saves.
	PreserveNever
)

// FieldDescriptor is the precomputed shape of one struct field. All
// per-save decisions read these flags; reflection tags are parsed exactly
// once per type.
type FieldDescriptor struct {
	// Name is the storage name: the bson tag name, or the lowercased Go
	// field name when untagged (mirroring the MongoDB driver default).
	Name string

	// GoName is the struct field name.
	GoName string

	// Index is the reflect traversal path from the root struct,
	// embedding-aware.
	Index []int

	// IsID marks the identifier field (storage name "_id").
	IsID bool

	// OmitEmpty skips the field when its value is the zero value.
	OmitEmpty bool

	// OmitNil skips the field when its pointer/interface/map/slice value
	// is nil.
	OmitNil bool

	// Ignored marks a field that is never persisted (bson:"-"). The
	// descriptor is kept so name lookups still resolve.
	Ignored bool

	// Created marks the creation-timestamp field.
	Created bool

	// Modified marks the modification-timestamp field.
	Modified bool

	// Preserve is the field's partial-save disposition.
	Preserve PreserveMode
}

// TypeMetadata is the per-type descriptor table. One record exists per
// entity type, computed once and reused for the life of the registry.
type TypeMetadata struct {
	// Type is the underlying struct type.
	Type reflect.Type

	// Collection is the resolved collection name.
	Collection string

	// Fields holds the descriptors in declaration order.
	Fields []FieldDescriptor

	// HasCreatedOn reports whether the type participates in creation
	// stamping (implements Creatable).
	HasCreatedOn bool

	// HasModifiedOn reports whether the type participates in modification
	// stamping. True only when the type implements Modifiable AND a
	// modification field resolved to a storage name.
	HasModifiedOn bool

	// ModifiedOnField is the storage name of the modification-timestamp
	// field, empty when HasModifiedOn is false.
	ModifiedOnField string

	byName map[string]int
}

// FieldByName resolves a descriptor by Go name or storage name.
func (md *TypeMetadata) FieldByName(name string) (FieldDescriptor, bool) {
	i, ok := md.byName[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return md.Fields[i], true
}

var (
	creatableType  = reflect.TypeOf((*Creatable)(nil)).Elem()
	modifiableType = reflect.TypeOf((*Modifiable)(nil)).Elem()
	namerType      = reflect.TypeOf((*CollectionNamer)(nil)).Elem()
)

// buildTypeMetadata computes the descriptor table for a struct type. The
// registry is the only caller; everything here runs once per type.
func buildTypeMetadata(t reflect.Type) (*TypeMetadata, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}

	md := &TypeMetadata{
		Type:   t,
		byName: make(map[string]int),
	}

	if err := md.appendFields(t, nil, make(map[string]bool)); err != nil {
		return nil, err
	}

	ptr := reflect.PointerTo(t)
	md.HasCreatedOn = ptr.Implements(creatableType)

	for _, d := range md.Fields {
		if d.Modified && !d.Ignored {
			md.ModifiedOnField = d.Name
			break
		}
	}
	md.HasModifiedOn = ptr.Implements(modifiableType) && md.ModifiedOnField != ""

	md.Collection = collectionName(t)
	return md, nil
}

// appendFields walks one struct level, promoting inlined embeds at their
// declared position. On duplicate storage names the first declaration
// wins. Ignored fields claim no storage name and resolve only by Go name.
func (md *TypeMetadata) appendFields(t reflect.Type, index []int, claimed map[string]bool) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue // unexported
		}

		path := make([]int, 0, len(index)+1)
		path = append(append(path, index...), i)

		name, omitEmpty, inline, skip := parseBSONTag(f.Tag.Get("bson"))

		if f.Anonymous && inline && !skip {
			et := f.Type
			if et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				if err := md.appendFields(et, path, claimed); err != nil {
					return err
				}
				continue
			}
		}

		d := FieldDescriptor{
			GoName:    f.Name,
			Index:     path,
			OmitEmpty: omitEmpty,
			Ignored:   skip,
		}
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		d.Name = name
		d.IsID = !skip && name == "_id"

		if err := applySiltTag(&d, f.Tag.Get("silt")); err != nil {
			return fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}
		if !d.Created && !d.Modified && f.Type == timeType {
			switch f.Name {
			case "CreatedOn":
				d.Created = true
			case "ModifiedOn":
				d.Modified = true
			}
		}

		if d.Ignored {
			md.Fields = append(md.Fields, d)
			if _, ok := md.byName[d.GoName]; !ok {
				md.byName[d.GoName] = len(md.Fields) - 1
			}
			continue
		}

		if claimed[d.Name] {
			continue
		}
		claimed[d.Name] = true

		md.Fields = append(md.Fields, d)
		idx := len(md.Fields) - 1
		if _, ok := md.byName[d.Name]; !ok {
			md.byName[d.Name] = idx
		}
		if _, ok := md.byName[d.GoName]; !ok {
			md.byName[d.GoName] = idx
		}
	}
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// parseBSONTag follows the MongoDB driver's struct tag conventions:
// "name,opt,...", "-" to skip, ",inline" to promote an embedded struct.
func parseBSONTag(tag string) (name string, omitEmpty, inline, skip bool) {
	if tag == "-" {
		return "", false, false, true
	}
	parts := strings.Split(tag, ",")
	name = parts[0]
	for _, opt := range parts[1:] {
		switch opt {
		case "omitempty":
			omitEmpty = true
		case "inline":
			inline = true
		}
	}
	return name, omitEmpty, inline, false
}

// applySiltTag parses the silt option tag. It carries options only, never
// a storage name; naming belongs to the bson tag.
func applySiltTag(d *FieldDescriptor, tag string) error {
	if tag == "" {
		return nil
	}
	for _, opt := range strings.Split(tag, ",") {
		switch strings.TrimSpace(opt) {
		case "":
		case "preserve":
			if d.Preserve == PreserveNever {
				return fmt.Errorf("tag options preserve and overwrite are mutually exclusive")
			}
			d.Preserve = PreserveAlways
		case "overwrite":
			if d.Preserve == PreserveAlways {
				return fmt.Errorf("tag options preserve and overwrite are mutually exclusive")
			}
			d.Preserve = PreserveNever
		case "omitnil":
			d.OmitNil = true
		case "created":
			d.Created = true
		case "modified":
			d.Modified = true
		default:
			return fmt.Errorf("unknown silt tag option %q", opt)
		}
	}
	return nil
}

// collectionName resolves the collection for a type: CollectionNamer wins,
// otherwise the lowercased type name.
func collectionName(t reflect.Type) string {
	if reflect.PointerTo(t).Implements(namerType) {
		if cn, ok := reflect.New(t).Interface().(CollectionNamer); ok {
			if name := cn.CollectionName(); name != "" {
				return name
			}
		}
	}
	return strings.ToLower(t.Name())
}
