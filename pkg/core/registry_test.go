package core_test

import (
	"sync"
	"testing"

	"github.com/aretw0/silt/pkg/core"
)

func TestRegistry_ConcurrentLookupConverges(t *testing.T) {
	reg := core.NewRegistry(nil)

	const goroutines = 32
	results := make([]*core.TypeMetadata, goroutines)

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(i int) {
			defer wg.Done()
			md, err := reg.Lookup(&Article{})
			if err != nil {
				t.Errorf("Lookup failed: %v", err)
				return
			}
			results[i] = md
		}(i)
	}
	wg.Wait()

	first := results[0]
	if first == nil {
		t.Fatal("Expected metadata from first goroutine")
	}
	for i, md := range results {
		if md != first {
			t.Fatalf("Goroutine %d got a different record; lookups must converge on one", i)
		}
	}
	if reg.Len() != 1 {
		t.Errorf("Expected exactly one registered type, got %d", reg.Len())
	}
}

func TestRegistry_State(t *testing.T) {
	reg := core.NewRegistry(nil)
	if _, err := reg.Lookup(&Article{}); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := reg.Lookup(&Invoice{}); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	state, ok := reg.State().(core.RegistryState)
	if !ok {
		t.Fatalf("Expected RegistryState, got %T", reg.State())
	}
	if state.Types != 2 {
		t.Errorf("Expected 2 types, got %d", state.Types)
	}
	if reg.ComponentType() != "metadata-registry" {
		t.Errorf("Unexpected component type %q", reg.ComponentType())
	}
}
