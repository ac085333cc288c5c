package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
	"voice-journal/internal/infra/memory"
)

func TestThoughtStore_ScopedToUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewThoughtStore()

	th := &domain.Thought{UserID: "alice", RawTranscript: "hello"}
	if err := store.Create(ctx, th); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if th.ID == "" {
		t.Fatal("Create should assign an id")
	}

	if _, err := store.Get(ctx, "bob", th.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get as other user: got %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "bob", th.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Delete as other user: got %v, want ErrNotFound", err)
	}

	got, err := store.Get(ctx, "alice", th.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RawTranscript != "hello" {
		t.Errorf("RawTranscript: got %q", got.RawTranscript)
	}
}

func TestThoughtStore_ListFilters(t *testing.T) {
	ctx := context.Background()
	store := memory.NewThoughtStore()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	seed := []domain.Thought{
		{UserID: "alice", CleanedText: "Plan the garden", Tags: []string{"home"}, CreatedAt: base},
		{UserID: "alice", CleanedText: "Quarterly review notes", Tags: []string{"work"}, CreatedAt: base.Add(time.Hour)},
		{UserID: "alice", RawTranscript: "um garden budget", Tags: []string{"home", "money"}, CreatedAt: base.Add(2 * time.Hour)},
		{UserID: "bob", CleanedText: "garden party", Tags: []string{"home"}, CreatedAt: base},
	}
	for i := range seed {
		if err := store.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	tests := []struct {
		name      string
		opts      application.ListOptions
		wantTotal int
		wantFirst string
	}{
		{"all newest first", application.ListOptions{}, 3, seed[2].ID},
		{"by tag", application.ListOptions{Tag: "#Work"}, 1, seed[1].ID},
		{"by query in raw transcript", application.ListOptions{Query: "BUDGET"}, 1, seed[2].ID},
		{"by query and tag", application.ListOptions{Query: "garden", Tag: "home"}, 2, seed[2].ID},
		{"paged", application.ListOptions{Limit: 1, Offset: 1}, 3, seed[1].ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := store.List(ctx, "alice", tt.opts)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total: got %d, want %d", total, tt.wantTotal)
			}
			if len(got) == 0 || got[0].ID != tt.wantFirst {
				t.Errorf("first thought: got %+v, want id %s", got, tt.wantFirst)
			}
		})
	}

	got, total, err := store.List(ctx, "alice", application.ListOptions{Offset: 10})
	if err != nil || total != 3 || len(got) != 0 {
		t.Errorf("offset past end: got %d items, total %d, err %v", len(got), total, err)
	}
}

func TestThoughtStore_DeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewThoughtStore()

	for _, user := range []string{"alice", "alice", "bob"} {
		if err := store.Create(ctx, &domain.Thought{UserID: user, RawTranscript: "x"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	if err := store.DeleteAllForUser(ctx, "alice"); err != nil {
		t.Fatalf("DeleteAllForUser: %v", err)
	}

	if _, total, _ := store.List(ctx, "alice", application.ListOptions{}); total != 0 {
		t.Errorf("alice thoughts left: %d", total)
	}
	if _, total, _ := store.List(ctx, "bob", application.ListOptions{}); total != 1 {
		t.Errorf("bob thoughts: got %d, want 1", total)
	}
}

func TestProfileStore_Usage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()

	p, err := store.GetOrCreate(ctx, "alice", "alice@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if p.Tier != domain.TierTrial {
		t.Errorf("new profile tier: got %s, want trial", p.Tier)
	}

	if err := store.AddUsage(ctx, "alice", 2.5, 2); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	p, _ = store.Get(ctx, "alice")
	if p.MinutesUsed != 2.5 || p.CreditsUsed != 2 {
		t.Errorf("usage: got %v minutes, %d credits", p.MinutesUsed, p.CreditsUsed)
	}

	periodStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if err := store.ResetUsage(ctx, "alice", periodStart); err != nil {
		t.Fatalf("ResetUsage: %v", err)
	}
	p, _ = store.Get(ctx, "alice")
	if p.MinutesUsed != 0 || !p.UsagePeriodStart.Equal(periodStart) {
		t.Errorf("after reset: %v minutes, period start %v", p.MinutesUsed, p.UsagePeriodStart)
	}

	if err := store.AddUsage(ctx, "nobody", 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddUsage unknown user: got %v", err)
	}
}

func TestProfileStore_FindByCustomerID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProfileStore()

	p, _ := store.GetOrCreate(ctx, "alice", "")
	p.StripeCustomerID = "cus_123"
	if err := store.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	found, err := store.FindByCustomerID(ctx, "cus_123")
	if err != nil {
		t.Fatalf("FindByCustomerID: %v", err)
	}
	if found.UserID != "alice" {
		t.Errorf("UserID: got %s", found.UserID)
	}

	if _, err := store.FindByCustomerID(ctx, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("empty customer id: got %v", err)
	}
}
