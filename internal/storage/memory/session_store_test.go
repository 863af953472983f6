package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"drop-live/internal/domain"
	"drop-live/internal/storage"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	live := &domain.Session{TokenHash: "h1", UserID: "u1", Wallet: "w1", CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastSeenAt: now}
	dead := &domain.Session{TokenHash: "h2", UserID: "u1", Wallet: "w1", CreatedAt: now, ExpiresAt: now.Add(-time.Second), LastSeenAt: now}

	for _, s := range []*domain.Session{live, dead} {
		if err := store.Insert(ctx, s); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := store.Insert(ctx, live); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	touched := now.Add(10 * time.Minute)
	if err := store.TouchLastSeen(ctx, "h1", touched); err != nil {
		t.Fatalf("TouchLastSeen failed: %v", err)
	}
	got, _ := store.GetByHash(ctx, "h1")
	if !got.LastSeenAt.Equal(touched) {
		t.Errorf("LastSeenAt not updated: %v", got.LastSeenAt)
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 expired session removed, got %d", n)
	}

	if err := store.Delete(ctx, "h1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "h1"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
	if _, err := store.GetByHash(ctx, "h1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUserStore_UniqueWallet(t *testing.T) {
	store := NewUserStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.User{ID: "u1", Wallet: "w1"}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, &domain.User{ID: "u2", Wallet: "w1"}); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}

	u, err := store.GetByWallet(ctx, "w1")
	if err != nil || u.ID != "u1" {
		t.Errorf("GetByWallet: got %+v err=%v", u, err)
	}
	if _, err := store.GetByID(ctx, "u2"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClaimStore_ListByDrop(t *testing.T) {
	store := NewClaimStore()
	ctx := context.Background()
	now := time.Now()

	_ = store.Insert(ctx, &domain.Claim{ID: "c1", DropID: "d1", Wallet: "w", Signatures: []string{"s1"}, CreatedAt: now})
	_ = store.Insert(ctx, &domain.Claim{ID: "c2", DropID: "d1", Wallet: "w", Signatures: []string{"s2", "s3"}, CreatedAt: now.Add(time.Second)})
	_ = store.Insert(ctx, &domain.Claim{ID: "c3", DropID: "d2", Wallet: "w", CreatedAt: now})

	list, err := store.ListByDrop(ctx, "d1")
	if err != nil {
		t.Fatalf("ListByDrop failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "c2" {
		t.Errorf("expected [c2 c1], got %d items", len(list))
	}
	if len(list[0].Signatures) != 2 {
		t.Errorf("expected 2 signatures, got %d", len(list[0].Signatures))
	}
}
