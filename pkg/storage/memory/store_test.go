package memory

import (
	"context"
	"testing"
)

func TestStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := New()

	if _, ok, err := store.Get(ctx, "token"); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "token", "t1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, "token")
	if err != nil || !ok || val != "t1" {
		t.Fatalf("unexpected get result %q ok=%v err=%v", val, ok, err)
	}
	if err := store.Set(ctx, "token", "t2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if val, _, _ := store.Get(ctx, "token"); val != "t2" {
		t.Fatalf("expected overwrite, got %q", val)
	}
	if err := store.Remove(ctx, "token"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove(ctx, "token"); err != nil {
		t.Fatalf("removing a missing key must not fail: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d keys", store.Len())
	}
}
