package hostfunc

import (
	"context"
	"fmt"
	"sync"
)

// Func is a host function callable from script code.
type Func func(ctx context.Context, args map[string]any) (any, error)

// Entry is one named host function in a Table.
type Entry struct {
	Name string
	Fn   Func
}

// Table is the process-wide ordered list of host functions bound into every
// compiled program. Entries are registered during process initialization and
// the table is sealed before the first request is served; registration order
// is the order in which entries are bound into programs.
type Table struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
	sealed  bool
}

func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Register appends a named function to the table. Names are unique and the
// table must not be sealed yet.
func (t *Table) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("hostfunc: empty function name")
	}
	if fn == nil {
		return fmt.Errorf("hostfunc: nil function for %s", name)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return fmt.Errorf("hostfunc: table sealed, cannot register %s", name)
	}
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("hostfunc: duplicate function %s", name)
	}

	t.index[name] = len(t.entries)
	t.entries = append(t.entries, Entry{Name: name, Fn: fn})
	return nil
}

// Seal marks the table read-only. Further Register calls fail.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

func (t *Table) Get(name string) (Func, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.entries[i].Fn, true
}

// Entries returns the registered functions in registration order.
func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Name
	}
	return names
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
