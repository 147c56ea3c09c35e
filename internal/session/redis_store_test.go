package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRefreshSessionRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	expiresAt := time.Now().Add(time.Hour)
	if err := store.SaveRefreshSession(ctx, "hash-1", 42, expiresAt); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}

	userID, err := store.LookupRefreshSession(ctx, "hash-1")
	if err != nil {
		t.Fatalf("LookupRefreshSession() error = %v", err)
	}
	if userID != 42 {
		t.Fatalf("userID = %d, want 42", userID)
	}
}

func TestRefreshSessionExpires(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", 42, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("expected lookup to fail after expiry")
	}
}

func TestRevokeRefreshSession(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	if err := store.SaveRefreshSession(ctx, "hash-1", 42, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("SaveRefreshSession() error = %v", err)
	}
	if err := store.RevokeRefreshSession(ctx, "hash-1"); err != nil {
		t.Fatalf("RevokeRefreshSession() error = %v", err)
	}
	if _, err := store.LookupRefreshSession(ctx, "hash-1"); err == nil {
		t.Fatal("expected lookup to fail after revocation")
	}
}

func TestAccessTokenRevocation(t *testing.T) {
	store, mr := setupTestStore(t)
	ctx := context.Background()

	revoked, err := store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked() error = %v", err)
	}
	if revoked {
		t.Fatal("fresh jti reported revoked")
	}

	if err := store.RevokeAccessToken(ctx, "jti-1", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("RevokeAccessToken() error = %v", err)
	}
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked() error = %v", err)
	}
	if !revoked {
		t.Fatal("revoked jti not detected")
	}

	// The revocation marker only needs to outlive the token itself.
	mr.FastForward(2 * time.Minute)
	revoked, err = store.IsAccessTokenRevoked(ctx, "jti-1")
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked() error = %v", err)
	}
	if revoked {
		t.Fatal("revocation marker survived past token expiry")
	}
}
