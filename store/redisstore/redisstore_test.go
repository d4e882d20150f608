package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/bba-labs/authkit"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, New(client, "test")
}

func TestPutCreateAndGet(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	account := &authkit.Account{
		ID:    "id-1",
		Email: "a@x.com",
		Slot: authkit.EphemeralSlot{
			Purpose: authkit.SlotEmailVerification,
			Value:   "123456",
		},
	}
	if err := s.Put(ctx, account); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if account.Version != 1 {
		t.Fatalf("expected version 1 after create, got %d", account.Version)
	}

	got, err := s.Get(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != "id-1" || got.Slot.Value != "123456" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
	if got.Version != 1 {
		t.Fatalf("expected stored version 1, got %d", got.Version)
	}
}

func TestPutDuplicateCreate(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, &authkit.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	err := s.Put(ctx, &authkit.Account{Email: "a@x.com"})
	if !errors.Is(err, authkit.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestPutVersionConflict(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	account := &authkit.Account{Email: "a@x.com"}
	if err := s.Put(ctx, account); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	first, _ := s.Get(ctx, "a@x.com")
	second, _ := s.Get(ctx, "a@x.com")

	first.Verified = true
	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("first Put failed: %v", err)
	}

	second.Verified = true
	err := s.Put(ctx, second)
	if !errors.Is(err, authkit.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestPutUpdateMissing(t *testing.T) {
	_, s := newTestStore(t)

	err := s.Put(context.Background(), &authkit.Account{Email: "a@x.com", Version: 3})
	if !errors.Is(err, authkit.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	_, s := newTestStore(t)

	_, err := s.Get(context.Background(), "missing@x.com")
	if !errors.Is(err, authkit.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestGetCorruptRecord(t *testing.T) {
	mr, s := newTestStore(t)

	mr.Set("test:acct:a@x.com", "{not json")
	_, err := s.Get(context.Background(), "a@x.com")
	if !errors.Is(err, authkit.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestExists(t *testing.T) {
	_, s := newTestStore(t)
	ctx := context.Background()

	ok, err := s.Exists(ctx, "a@x.com")
	if err != nil || ok {
		t.Fatalf("expected absent, got ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, &authkit.Account{Email: "a@x.com"}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	ok, err = s.Exists(ctx, "a@x.com")
	if err != nil || !ok {
		t.Fatalf("expected present, got ok=%v err=%v", ok, err)
	}
}

func TestStoreUnavailable(t *testing.T) {
	mr, s := newTestStore(t)
	mr.Close()

	if _, err := s.Get(context.Background(), "a@x.com"); !errors.Is(err, authkit.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if _, err := s.Exists(context.Background(), "a@x.com"); !errors.Is(err, authkit.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
