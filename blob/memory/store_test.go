package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/rbaliyan/webmail/blob"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("PutGet", func(t *testing.T) {
		if err := s.Put(ctx, "a/b", []byte("hello")); err != nil {
			t.Fatalf("put: %v", err)
		}
		data, err := s.Get(ctx, "a/b")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(data) != "hello" {
			t.Fatalf("unexpected data: %q", data)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		if err := s.Put(ctx, "a/b", []byte("world")); err != nil {
			t.Fatalf("put: %v", err)
		}
		data, _ := s.Get(ctx, "a/b")
		if string(data) != "world" {
			t.Fatalf("unexpected data: %q", data)
		}
	})

	t.Run("Head", func(t *testing.T) {
		ok, err := s.Head(ctx, "a/b")
		if err != nil || !ok {
			t.Fatalf("expected existing key, ok=%v err=%v", ok, err)
		}
		ok, err = s.Head(ctx, "missing")
		if err != nil || ok {
			t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
		}
	})

	t.Run("List", func(t *testing.T) {
		_ = s.Put(ctx, "a/c", []byte("x"))
		_ = s.Put(ctx, "b/d", []byte("y"))
		keys, err := s.List(ctx, "a/")
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(keys) != 2 || keys[0] != "a/b" || keys[1] != "a/c" {
			t.Fatalf("unexpected keys: %v", keys)
		}
	})

	t.Run("DeleteMany", func(t *testing.T) {
		if err := s.Delete(ctx, "a/b", "a/c", "missing"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.Get(ctx, "a/b"); !errors.Is(err, blob.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if s.Len() != 1 {
			t.Fatalf("expected 1 object left, got %d", s.Len())
		}
	})
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Put(ctx, "k", []byte("abc"))

	data, _ := s.Get(ctx, "k")
	data[0] = 'z'

	again, _ := s.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}
