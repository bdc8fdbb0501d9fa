package memory

import (
	"context"
	"testing"
)

func TestKVStore(t *testing.T) {
	s := NewKVStore()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "k"); ok {
		t.Fatal("expected missing key")
	}
	_ = s.Set(ctx, "k", "v1")
	_ = s.Set(ctx, "k", "v2")

	v, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Fatalf("expected v2, got %q ok=%v err=%v", v, ok, err)
	}
}
