package requestctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), 42)
	got, ok := UserIDFromContext(ctx)
	if !ok || got != 42 {
		t.Fatalf("expected user 42, got %d (ok=%v)", got, ok)
	}
}

func TestUserIDMissing(t *testing.T) {
	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Fatal("expected no user id")
	}
	if _, ok := UserIDFromContext(WithUserID(context.Background(), 0)); ok {
		t.Fatal("expected zero user id to be rejected")
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
