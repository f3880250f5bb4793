package audit

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestNewStamperRejectsBadZone(t *testing.T) {
	if _, err := NewStamper(""); err == nil {
		t.Fatal("expected error for empty zone")
	}
	if _, err := NewStamper("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown zone")
	}
}

func TestStampCreateWritesOnce(t *testing.T) {
	base := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	s, err := NewStamper("America/Bogota", WithClock(fixedClock(base)))
	if err != nil {
		t.Fatalf("NewStamper: %v", err)
	}

	var f Fields
	s.StampCreate(&f, "1094567890")
	if f.RegisteredBy != "1094567890" {
		t.Fatalf("RegisteredBy = %q", f.RegisteredBy)
	}
	if got := f.RegisteredAt.Hour(); got != 10 {
		t.Fatalf("RegisteredAt hour = %d, want 10 (UTC-5)", got)
	}
	if zone, _ := f.RegisteredAt.Zone(); zone != "-05" {
		t.Fatalf("zone = %q, want -05", zone)
	}

	s2, _ := NewStamper("America/Bogota", WithClock(fixedClock(base.Add(time.Hour))))
	s2.StampCreate(&f, "someone-else")
	if f.RegisteredBy != "1094567890" || !f.RegisteredAt.Equal(base) {
		t.Fatal("creation stamp was overwritten")
	}
}

func TestStampModifyIsRepeatable(t *testing.T) {
	base := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	s, err := NewStamper("America/Bogota", WithClock(fixedClock(base)))
	if err != nil {
		t.Fatalf("NewStamper: %v", err)
	}

	var f Fields
	s.StampModify(&f, "1094567890")
	if f.ModifiedBy == nil || *f.ModifiedBy != "1094567890" {
		t.Fatalf("ModifiedBy = %v", f.ModifiedBy)
	}
	first := *f.ModifiedAt

	s2, _ := NewStamper("America/Bogota", WithClock(fixedClock(base.Add(time.Minute))))
	s2.StampModify(&f, "1094567890")
	if !f.ModifiedAt.After(first) {
		t.Fatal("second modify did not refresh the timestamp")
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("empty context request id = %q", got)
	}
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithActor(ctx, "1094567890")
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("request id = %q", got)
	}
	if got := ActorFromContext(ctx); got != "1094567890" {
		t.Fatalf("actor = %q", got)
	}
}
