package id

import (
	"strings"
	"testing"
)

func TestRandomGenerator_NewID(t *testing.T) {
	gen := NewRandomGenerator()

	first, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	second, err := gen.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if len(first) != 32 {
		t.Fatalf("unexpected id length: got=%d want=%d", len(first), 32)
	}
	if first == second {
		t.Fatalf("expected distinct ids, got %q twice", first)
	}

	var zero RandomGenerator
	if got, err := zero.NewID(); err != nil || len(got) != 32 {
		t.Fatalf("zero value generator: id=%q err=%v", got, err)
	}
}

func TestValidExternal(t *testing.T) {
	valid := []string{"abc-123_DEF.9", strings.Repeat("a", 64)}
	for _, input := range valid {
		if !ValidExternal(input) {
			t.Fatalf("expected %q to be accepted", input)
		}
	}

	invalid := []string{"", "has space", "line\nbreak", strings.Repeat("a", 65)}
	for _, input := range invalid {
		if ValidExternal(input) {
			t.Fatalf("expected %q to be rejected", input)
		}
	}
}
