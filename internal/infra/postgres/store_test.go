package postgres_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"voice-journal/internal/application"
	"voice-journal/internal/domain"
	"voice-journal/internal/infra/postgres"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Connect(ctx, url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Skipf("database not reachable: %v", err)
	}
	return db
}

func TestThoughtRepository(t *testing.T) {
	db := setupDB(t)
	repo := postgres.NewThoughtRepository(db)
	ctx := context.Background()
	userID := uuid.NewString()
	t.Cleanup(func() { _ = repo.DeleteAllForUser(ctx, userID) })

	first := &domain.Thought{UserID: userID, RawTranscript: "um water the garden", CleanedText: "Water the garden.", Tags: []string{"home"}, Category: "personal"}
	second := &domain.Thought{UserID: userID, RawTranscript: "budget review 100% done", Tags: []string{"work", "money"}, Category: "work"}
	for _, th := range []*domain.Thought{first, second} {
		if err := repo.Create(ctx, th); err != nil {
			t.Fatalf("Create: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("Create should fill id and timestamps: %+v", first)
	}

	got, err := repo.Get(ctx, userID, first.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CleanedText != "Water the garden." || len(got.Tags) != 1 || got.Tags[0] != "home" {
		t.Errorf("Get: %+v", got)
	}

	if _, err := repo.Get(ctx, uuid.NewString(), first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Get as other user: got %v", err)
	}

	list, total, err := repo.List(ctx, userID, application.ListOptions{})
	if err != nil || total != 2 || list[0].ID != second.ID {
		t.Errorf("List: total %d, err %v", total, err)
	}

	list, total, _ = repo.List(ctx, userID, application.ListOptions{Tag: "money"})
	if total != 1 || list[0].ID != second.ID {
		t.Errorf("List by tag: total %d", total)
	}

	list, total, _ = repo.List(ctx, userID, application.ListOptions{Query: "100%"})
	if total != 1 || list[0].ID != second.ID {
		t.Errorf("List by query: total %d", total)
	}

	if err := repo.Delete(ctx, userID, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, userID, first.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second Delete: got %v", err)
	}
}

func TestProfileRepository(t *testing.T) {
	db := setupDB(t)
	repo := postgres.NewProfileRepository(db)
	ctx := context.Background()
	userID := uuid.NewString()
	t.Cleanup(func() { _ = repo.Delete(ctx, userID) })

	p, err := repo.GetOrCreate(ctx, userID, "user@example.com")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if p.Tier != domain.TierTrial {
		t.Errorf("tier: got %s", p.Tier)
	}

	p.Tier = domain.TierPro
	p.StripeCustomerID = "cus_" + userID[:8]
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("Update: %v", err)
	}

	found, err := repo.FindByCustomerID(ctx, p.StripeCustomerID)
	if err != nil || found.UserID != userID || found.Tier != domain.TierPro {
		t.Fatalf("FindByCustomerID: %+v, %v", found, err)
	}

	if err := repo.AddUsage(ctx, userID, 1.5, 2); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	if err := repo.AddUsage(ctx, userID, 0.5, 0); err != nil {
		t.Fatalf("AddUsage: %v", err)
	}
	p, _ = repo.Get(ctx, userID)
	if p.MinutesUsed != 2 || p.CreditsUsed != 2 {
		t.Errorf("usage: %v minutes, %d credits", p.MinutesUsed, p.CreditsUsed)
	}

	if err := repo.ResetUsage(ctx, userID, time.Now()); err != nil {
		t.Fatalf("ResetUsage: %v", err)
	}
	p, _ = repo.Get(ctx, userID)
	if p.MinutesUsed != 0 {
		t.Errorf("usage after reset: %v", p.MinutesUsed)
	}

	if err := repo.AddUsage(ctx, uuid.NewString(), 1, 0); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("AddUsage unknown user: got %v", err)
	}
}

func TestProfileRepository_ConcurrentGetOrCreate(t *testing.T) {
	db := setupDB(t)
	repo := postgres.NewProfileRepository(db)
	ctx := context.Background()
	userID := uuid.NewString()
	t.Cleanup(func() { _ = repo.Delete(ctx, userID) })

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := repo.GetOrCreate(ctx, userID, "user@example.com")
			if err == nil && p.UserID != userID {
				err = errors.New("wrong profile returned")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("GetOrCreate: %v", err)
		}
	}

	var count int64
	if err := db.Table("profiles").Where("user_id = ?", userID).Count(&count).Error; err != nil {
		t.Fatalf("counting profiles: %v", err)
	}
	if count != 1 {
		t.Errorf("profiles for user: got %d, want 1", count)
	}
}
