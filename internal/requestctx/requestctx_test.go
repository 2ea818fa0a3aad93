package requestctx

import (
	"context"
	"testing"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Fatalf("GetRequestID = %q", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}

func TestActorDefaultsToSystem(t *testing.T) {
	if got := GetActorID(context.Background()); got != "system" {
		t.Fatalf("GetActorID = %q", got)
	}
	ctx := WithActorID(context.Background(), "hr-admin")
	if got := GetActorID(ctx); got != "hr-admin" {
		t.Fatalf("GetActorID = %q", got)
	}
}
