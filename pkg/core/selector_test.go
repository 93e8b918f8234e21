package core_test

import (
	"errors"
	"testing"
	"time"

	"github.com/aretw0/silt/pkg/core"
)

type Product struct {
	core.Meta   `bson:",inline"`
	core.Stamps `bson:",inline"`
	Name        string  `bson:"name"`
	Price       float64 `bson:"price" silt:"overwrite"`
	Stock       int     `bson:"stock" silt:"overwrite"`
	Notes       string  `bson:"notes"`
}

type Account struct {
	core.Meta `bson:",inline"`
	Owner     string  `bson:"owner"`
	Balance   float64 `bson:"balance" silt:"preserve"`
	Email     string  `bson:"email"`
}

func mustMeta(t *testing.T, reg *core.Registry, v any) *core.TypeMetadata {
	t.Helper()
	md, err := reg.Lookup(v)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	return md
}

func updateNames(fields []core.FieldUpdate) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestSelectUpdateFields_Tagged(t *testing.T) {
	reg := core.NewRegistry(nil)
	now := time.Now().UTC()

	t.Run("Overwrite Tags Pick The Update Set", func(t *testing.T) {
		p := &Product{Name: "lamp", Price: 9.5, Stock: 3, Notes: "aisle 4"}
		p.SetID("p1")
		p.SetCreatedOn(now)
		p.SetModifiedOn(now)

		fields, err := core.SelectUpdateFields(mustMeta(t, reg, p), p, core.PreserveTagged())
		if err != nil {
			t.Fatalf("SelectUpdateFields failed: %v", err)
		}

		want := []string{"price", "stock", "modified_on"}
		got := updateNames(fields)
		if len(got) != len(want) {
			t.Fatalf("Expected fields %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("Expected fields %v, got %v", want, got)
			}
		}
		last := fields[len(fields)-1]
		if !last.ServerTime {
			t.Error("Expected the modification stamp to be a server-time directive")
		}
	})

	t.Run("Preserve Tags Pick The Preserved Set", func(t *testing.T) {
		a := &Account{Owner: "dana", Balance: 12.50, Email: "d@example.com"}
		a.SetID("a1")

		fields, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.PreserveTagged())
		if err != nil {
			t.Fatalf("SelectUpdateFields failed: %v", err)
		}

		got := updateNames(fields)
		if len(got) != 2 || got[0] != "owner" || got[1] != "email" {
			t.Errorf("Expected [owner email], got %v", got)
		}
	})

	t.Run("Both Tag Kinds Conflict", func(t *testing.T) {
		type Clash struct {
			core.Meta `bson:",inline"`
			A         string `bson:"a" silt:"preserve"`
			B         string `bson:"b" silt:"overwrite"`
		}
		c := &Clash{A: "x", B: "y"}
		c.SetID("c1")

		_, err := core.SelectUpdateFields(mustMeta(t, reg, c), c, core.PreserveTagged())
		if !errors.Is(err, core.ErrPolicyConflict) {
			t.Errorf("Expected ErrPolicyConflict, got %v", err)
		}
	})

	t.Run("Conflict Scanned Over Eligible Fields Only", func(t *testing.T) {
		type SoftClash struct {
			core.Meta `bson:",inline"`
			A         string `bson:"a,omitempty" silt:"preserve"`
			B         string `bson:"b" silt:"overwrite"`
			C         string `bson:"c"`
		}
		s := &SoftClash{B: "y", C: "z"} // A is zero, so its preserve tag is out of play
		s.SetID("s1")

		fields, err := core.SelectUpdateFields(mustMeta(t, reg, s), s, core.PreserveTagged())
		if err != nil {
			t.Fatalf("Expected no conflict when one side is ineligible, got %v", err)
		}
		got := updateNames(fields)
		if len(got) != 1 || got[0] != "b" {
			t.Errorf("Expected [b], got %v", got)
		}
	})

	t.Run("No Tags Means Empty Preservation", func(t *testing.T) {
		a := &Article{Title: "t", Body: "b"}
		a.SetID("a1")

		_, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.PreserveTagged())
		if !errors.Is(err, core.ErrEmptyPreservation) {
			t.Errorf("Expected ErrEmptyPreservation, got %v", err)
		}
	})

	t.Run("Overwrite Covering Everything Means Empty Preservation", func(t *testing.T) {
		type AllDrop struct {
			core.Meta `bson:",inline"`
			A         string `bson:"a" silt:"overwrite"`
		}
		d := &AllDrop{A: "x"}
		d.SetID("d1")

		_, err := core.SelectUpdateFields(mustMeta(t, reg, d), d, core.PreserveTagged())
		if !errors.Is(err, core.ErrEmptyPreservation) {
			t.Errorf("Expected ErrEmptyPreservation, got %v", err)
		}
	})
}

func TestSelectUpdateFields_Projection(t *testing.T) {
	reg := core.NewRegistry(nil)
	now := time.Now().UTC()

	loaded := func() *Article {
		a := &Article{Title: "title", Body: "body", Tags: []string{"x"}, Views: 7}
		a.SetID("a1")
		a.SetCreatedOn(now)
		a.SetModifiedOn(now)
		return a
	}

	t.Run("Named Fields Are Preserved", func(t *testing.T) {
		a := loaded()
		fields, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.Preserve("Title", "created_on"))
		if err != nil {
			t.Fatalf("SelectUpdateFields failed: %v", err)
		}
		for _, f := range fields {
			if f.Name == "title" || f.Name == "created_on" {
				t.Errorf("Preserved field %q leaked into the update set", f.Name)
			}
			if f.Name == "_id" {
				t.Error("Identifier leaked into the update set")
			}
		}
		last := fields[len(fields)-1]
		if last.Name != "modified_on" || !last.ServerTime {
			t.Errorf("Expected trailing server-time stamp, got %+v", last)
		}
	})

	t.Run("Zero Names", func(t *testing.T) {
		a := loaded()
		_, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.Preserve())
		if !errors.Is(err, core.ErrEmptyProjection) {
			t.Errorf("Expected ErrEmptyProjection, got %v", err)
		}
	})

	t.Run("Nested Path", func(t *testing.T) {
		a := loaded()
		_, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.Preserve("Body.Length"))
		if !errors.Is(err, core.ErrNestedProjection) {
			t.Errorf("Expected ErrNestedProjection, got %v", err)
		}
	})

	t.Run("Unknown Field", func(t *testing.T) {
		a := loaded()
		_, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.Preserve("Colour"))
		if !errors.Is(err, core.ErrUnknownField) {
			t.Errorf("Expected ErrUnknownField, got %v", err)
		}
	})

	t.Run("Preserving Every Eligible Field Means Empty Update", func(t *testing.T) {
		a := &Article{Title: "only", Views: 1}
		a.SetID("a1")
		// body/tags/stamps are zero and omitted, so title and views are
		// the whole eligible set.
		_, err := core.SelectUpdateFields(mustMeta(t, reg, a), a, core.Preserve("Title", "Views"))
		if !errors.Is(err, core.ErrEmptyUpdate) {
			t.Errorf("Expected ErrEmptyUpdate, got %v", err)
		}
	})

	t.Run("Preserved Stamp Still Advances", func(t *testing.T) {
		a := loaded()
		fields, err := core.SelectUpdateFields(mustMeta(t, reg, a), a,
			core.Preserve("CreatedOn", "Body", "Tags", "Views", "ModifiedOn"))
		if err != nil {
			t.Fatalf("SelectUpdateFields failed: %v", err)
		}
		got := updateNames(fields)
		if len(got) != 2 || got[0] != "title" || got[1] != "modified_on" {
			t.Fatalf("Expected [title modified_on], got %v", got)
		}
		if !fields[1].ServerTime {
			t.Error("Expected the stamp to come back as a server-time directive")
		}
	})
}
