package hostfunc

import (
	"context"
	"strings"
	"testing"
)

func TestKVSetGet(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	_, err := kv.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, err := kv.Get(ctx, map[string]any{"key": "foo"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != "bar" {
		t.Errorf("expected bar, got %v", val)
	}
}

func TestKVGetMissing(t *testing.T) {
	kv := NewKVStore()

	val, err := kv.Get(context.Background(), map[string]any{"key": "nope"})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected nil for missing key, got %v", val)
	}
}

func TestKVDelete(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	kv.Set(ctx, map[string]any{"key": "foo", "value": "bar"})
	if _, err := kv.Delete(ctx, map[string]any{"key": "foo"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	val, _ := kv.Get(ctx, map[string]any{"key": "foo"})
	if val != nil {
		t.Errorf("expected nil after delete, got %v", val)
	}
}

func TestKVKeysSorted(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	for _, k := range []string{"c", "a", "b"} {
		kv.Set(ctx, map[string]any{"key": k, "value": "v"})
	}

	val, err := kv.Keys(ctx, nil)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	keys := val.([]string)
	if strings.Join(keys, ",") != "a,b,c" {
		t.Errorf("expected sorted keys, got %v", keys)
	}
}

func TestKVLimits(t *testing.T) {
	kv := NewKVStore(WithKVMaxEntries(1), WithKVMaxKeySize(4), WithKVMaxValueSize(4))
	ctx := context.Background()

	if _, err := kv.Set(ctx, map[string]any{"key": "toolong", "value": "v"}); err == nil {
		t.Error("expected key size error")
	}
	if _, err := kv.Set(ctx, map[string]any{"key": "k", "value": "toolong"}); err == nil {
		t.Error("expected value size error")
	}

	if _, err := kv.Set(ctx, map[string]any{"key": "k1", "value": "v"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := kv.Set(ctx, map[string]any{"key": "k2", "value": "v"}); err == nil {
		t.Error("expected store full error")
	}
	// Overwriting an existing key must still work at capacity.
	if _, err := kv.Set(ctx, map[string]any{"key": "k1", "value": "w"}); err != nil {
		t.Errorf("overwrite at capacity failed: %v", err)
	}
}

func TestKVMissingArgs(t *testing.T) {
	kv := NewKVStore()
	ctx := context.Background()

	if _, err := kv.Get(ctx, map[string]any{}); err == nil {
		t.Error("expected error for missing key arg")
	}
	if _, err := kv.Set(ctx, map[string]any{"key": "k"}); err == nil {
		t.Error("expected error for missing value arg")
	}
}
