package mailbox

import (
	"context"
	"errors"
	"testing"
)

func TestContacts(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)

	t.Run("Create", func(t *testing.T) {
		c, err := a.CreateContact(ctx, "Alice", "alice@example.com")
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if c.ID == 0 {
			t.Error("expected an assigned id")
		}
	})

	t.Run("EmptyNameAllowed", func(t *testing.T) {
		if _, err := a.CreateContact(ctx, "", "noname@example.com"); err != nil {
			t.Fatalf("create: %v", err)
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := a.CreateContact(ctx, "Alice Again", "alice@example.com")
		if !errors.Is(err, ErrDuplicateEntry) {
			t.Fatalf("expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		contacts, err := a.Contacts(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(contacts) != 2 {
			t.Fatalf("expected 2 contacts, got %d", len(contacts))
		}
	})

	t.Run("PartialUpdate", func(t *testing.T) {
		name := "Alice B"
		c, err := a.UpdateContact(ctx, 1, ContactUpdate{Name: &name})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if c.Name != "Alice B" || c.Email != "alice@example.com" {
			t.Errorf("partial update touched email: %+v", c)
		}
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		name := "x"
		if _, err := a.UpdateContact(ctx, 999, ContactUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := a.DeleteContact(ctx, 1); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := a.DeleteContact(ctx, 1); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  spaces  everywhere  ", "spaces-everywhere"},
		{"Symbols!@#", "symbols"},
		{"multi---dash", "multi-dash"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
