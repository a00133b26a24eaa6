package hostfunc

import (
	"context"
	"testing"
)

func noop(ctx context.Context, args map[string]any) (any, error) {
	return nil, nil
}

func TestTableOrderPreserved(t *testing.T) {
	table := NewTable()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := table.Register(n, noop); err != nil {
			t.Fatalf("Register(%s) failed: %v", n, err)
		}
	}

	got := table.Names()
	if len(got) != len(names) {
		t.Fatalf("expected %d entries, got %d", len(names), len(got))
	}
	for i, n := range names {
		if got[i] != n {
			t.Errorf("entry %d: expected %s, got %s", i, n, got[i])
		}
	}
}

func TestTableDuplicateRejected(t *testing.T) {
	table := NewTable()
	if err := table.Register("fn", noop); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := table.Register("fn", noop); err == nil {
		t.Error("expected error for duplicate name")
	}
}

func TestTableSealed(t *testing.T) {
	table := NewTable()
	table.Register("fn", noop)
	table.Seal()

	if err := table.Register("late", noop); err == nil {
		t.Error("expected error registering into sealed table")
	}
	if table.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", table.Len())
	}
	if _, ok := table.Get("fn"); !ok {
		t.Error("sealed table should still serve lookups")
	}
}

func TestTableRejectsEmptyAndNil(t *testing.T) {
	table := NewTable()
	if err := table.Register("", noop); err == nil {
		t.Error("expected error for empty name")
	}
	if err := table.Register("fn", nil); err == nil {
		t.Error("expected error for nil function")
	}
}

func TestTableEntriesIsCopy(t *testing.T) {
	table := NewTable()
	table.Register("fn", noop)

	entries := table.Entries()
	entries[0].Name = "mutated"

	if table.Names()[0] != "fn" {
		t.Error("Entries() must not expose internal state")
	}
}
