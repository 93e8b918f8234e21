package core

import (
	"fmt"
	"strings"
)

// SelectUpdateFields computes the field set a partial save writes, honoring
// the preservation policy. The result is ordered by field declaration and
// ends with the server-time directive for the modification stamp when the
// type has one.
//
// The eligible universe excludes the identifier, never-persisted fields,
// zero-valued omit-empty fields and nil omit-nil fields. Preservation then
// subtracts from it:
//
//   - explicit projection: the named fields are preserved; names resolve
//     against Go and storage names, root level only.
//   - tagged mode: "overwrite" tags make the tagged fields the update set;
//     "preserve" tags make the tagged fields the preserved set. Both tag
//     kinds among eligible fields is a conflict.
func SelectUpdateFields(md *TypeMetadata, e Entity, p Policy) ([]FieldUpdate, error) {
	v, err := structValue(md, e)
	if err != nil {
		return nil, err
	}

	var eligible []int
	values := make(map[int]any, len(md.Fields))
	for i, d := range md.Fields {
		if d.IsID || d.Ignored {
			continue
		}
		fv, err := v.FieldByIndexErr(d.Index)
		if err != nil {
			continue
		}
		if d.OmitEmpty && fv.IsZero() {
			continue
		}
		if d.OmitNil && isNilValue(fv) {
			continue
		}
		eligible = append(eligible, i)
		values[i] = fv.Interface()
	}

	preserved := make(map[int]bool)
	if p.explicit {
		if len(p.fields) == 0 {
			return nil, ErrEmptyProjection
		}
		for _, name := range p.fields {
			if strings.Contains(name, ".") {
				return nil, fmt.Errorf("%w: %q", ErrNestedProjection, name)
			}
			idx, ok := md.byName[name]
			if !ok {
				return nil, fmt.Errorf("%w: %q on %s", ErrUnknownField, name, md.Type)
			}
			preserved[idx] = true
		}
	} else {
		var keep, drop []int
		for _, i := range eligible {
			switch md.Fields[i].Preserve {
			case PreserveAlways:
				keep = append(keep, i)
			case PreserveNever:
				drop = append(drop, i)
			}
		}
		switch {
		case len(keep) > 0 && len(drop) > 0:
			return nil, fmt.Errorf("%w: %s", ErrPolicyConflict, md.Type)
		case len(drop) > 0:
			dropped := make(map[int]bool, len(drop))
			for _, i := range drop {
				dropped[i] = true
			}
			for _, i := range eligible {
				if !dropped[i] {
					preserved[i] = true
				}
			}
		case len(keep) > 0:
			for _, i := range keep {
				preserved[i] = true
			}
		}
		if len(preserved) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyPreservation, md.Type)
		}
	}

	updates := make([]FieldUpdate, 0, len(eligible))
	for _, i := range eligible {
		if preserved[i] {
			continue
		}
		updates = append(updates, FieldUpdate{Name: md.Fields[i].Name, Value: values[i]})
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyUpdate, md.Type)
	}

	// The stamp always travels as a server-time directive so the stored
	// timestamp advances on every successful partial save.
	if md.HasModifiedOn {
		filtered := updates[:0]
		for _, u := range updates {
			if u.Name != md.ModifiedOnField {
				filtered = append(filtered, u)
			}
		}
		updates = append(filtered, FieldUpdate{Name: md.ModifiedOnField, ServerTime: true})
	}
	return updates, nil
}
