package types

import (
	"context"
	"testing"
	"time"
)

func TestWithRequestID_GetRequestID(t *testing.T) {
	t.Run("round-trip stores and retrieves request ID", func(t *testing.T) {
		id := "3f1c9a52-0d7e-4b8a-9c21-6e5f0a4b7d10"
		ctx := WithRequestID(context.Background(), id)
		if got := GetRequestID(ctx); got != id {
			t.Errorf("got %q, want %q", got, id)
		}
	})

	t.Run("returns empty string when no request ID in context", func(t *testing.T) {
		if got := GetRequestID(context.Background()); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
	})

	t.Run("inner value shadows outer", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "outer")
		ctx = WithRequestID(ctx, "inner")
		if got := GetRequestID(ctx); got != "inner" {
			t.Errorf("got %q, want inner", got)
		}
	})
}

func TestContextKeys_ArePrivate(t *testing.T) {
	// A plain string key must not collide with the typed contextKey.
	ctx := context.WithValue(context.Background(), "request_id", "should-not-match")
	if got := GetRequestID(ctx); got != "" {
		t.Errorf("expected empty string due to key type mismatch, got %q", got)
	}
}

func TestRealClock(t *testing.T) {
	before := time.Now()
	got := RealClock{}.Now()
	if got.Before(before) || got.After(time.Now()) {
		t.Errorf("RealClock returned %v outside [%v, now]", got, before)
	}
}
