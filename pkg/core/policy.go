package core

import (
	"fmt"
	"strings"
)

// Policy describes which fields a partial save must leave untouched.
// The zero value is the attribute-derived mode: preservation is resolved
// from the silt tags on the entity's fields.
type Policy struct {
	explicit bool
	fields   []string
}

// PreserveTagged returns the attribute-derived policy. Eligible fields
// tagged "preserve" survive the save; fields tagged "overwrite" are the
// only ones written. Mixing both tag kinds on one save is a conflict.
func PreserveTagged() Policy {
	return Policy{}
}

// Preserve returns an explicit projection policy naming the fields to keep.
// Names may be Go field names or storage names; only root-level fields can
// be referenced.
func Preserve(fields ...string) Policy {
	return Policy{explicit: true, fields: fields}
}

func (p Policy) String() string {
	if !p.explicit {
		return "tagged"
	}
	return fmt.Sprintf("preserve(%s)", strings.Join(p.fields, ","))
}
