package health

import "testing"

func TestRegistryGetOrCreateIsIdempotent(t *testing.T) {
	built := 0
	r := NewRegistry(func(name string) *Monitor {
		built++
		return &Monitor{name: name, ring: NewRing()}
	})

	a := r.GetOrCreate("motherstream")
	b := r.GetOrCreate("motherstream")
	if a != b {
		t.Fatal("expected GetOrCreate to return the same instance for the same name")
	}
	if built != 1 {
		t.Fatalf("expected the factory to run once, ran %d times", built)
	}

	if _, ok := r.Get("missing"); ok {
		t.Fatal("expected Get to report false for a name never created")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry(func(name string) *Monitor {
		return &Monitor{name: name, ring: NewRing()}
	})
	r.GetOrCreate("motherstream")
	r.GetOrCreate("loading")

	names := r.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 monitors, got %d (%v)", len(names), names)
	}
}
