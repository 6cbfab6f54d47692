package mailbox

import (
	"context"
	"testing"
	"time"
)

func seedSearchData(t *testing.T, a *Actor) {
	t.Helper()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []struct {
		folder string
		data   EmailData
	}{
		{FolderInbox, EmailData{Subject: "Quarterly report", Sender: "alice@example.com", Recipient: "me@example.com", Body: "numbers attached", Date: base}},
		{FolderInbox, EmailData{Subject: "Lunch?", Sender: "bob@example.com", Recipient: "me@example.com", Body: "new place near the office", Date: base.AddDate(0, 0, 1)}},
		{FolderArchive, EmailData{Subject: "Old report", Sender: "alice@example.com", Recipient: "me@example.com", Body: "archived numbers", Date: base.AddDate(0, -2, 0)}},
		{FolderSent, EmailData{Subject: "Re: Lunch?", Sender: "me@example.com", Recipient: "bob@example.com", Body: "sure, 100% in", Date: base.AddDate(0, 0, 2)}},
	}
	for _, s := range seed {
		if _, err := a.CreateEmail(context.Background(), s.folder, s.data, nil); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	a := newTestActor(t)
	seedSearchData(t, a)

	t.Run("SubjectCaseInsensitive", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "REPORT"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 hits, got %d", len(got))
		}
	})

	t.Run("BodyMatch", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "office"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 1 || got[0].Subject != "Lunch?" {
			t.Fatalf("unexpected hits: %+v", got)
		}
	})

	t.Run("FolderScope", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "report", Folder: FolderArchive})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 1 || got[0].Subject != "Old report" {
			t.Fatalf("unexpected hits: %+v", got)
		}
	})

	t.Run("FromScope", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "lunch", From: "bob@"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 1 || got[0].Sender != "bob@example.com" {
			t.Fatalf("unexpected hits: %+v", got)
		}
	})

	t.Run("DateRange", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{
			Query:     "report",
			DateStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 1 || got[0].Subject != "Quarterly report" {
			t.Fatalf("unexpected hits: %+v", got)
		}
	})

	t.Run("OrderedByDateDesc", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "example.com"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].Date.After(got[i-1].Date) {
				t.Errorf("not sorted descending at %d", i)
			}
		}
	})

	t.Run("LikeWildcardsAreLiteral", func(t *testing.T) {
		got, err := a.Search(ctx, SearchQuery{Query: "100%"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 1 || got[0].Subject != "Re: Lunch?" {
			t.Fatalf("unexpected hits: %+v", got)
		}
		// A bare % would match everything if it escaped into the
		// pattern.
		got, err = a.Search(ctx, SearchQuery{Query: "zzz%yyy"})
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no hits, got %d", len(got))
		}
	})
}
