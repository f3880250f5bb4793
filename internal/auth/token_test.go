package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

type stubCallerStore struct {
	byDocument map[string]Caller
}

func (s *stubCallerStore) FindCallerByDocument(_ context.Context, document string) (Caller, error) {
	c, ok := s.byDocument[document]
	if !ok {
		return Caller{}, ErrNotFound
	}
	return c, nil
}

func (s *stubCallerStore) FindCaller(_ context.Context, id string) (Caller, error) {
	for _, c := range s.byDocument {
		if c.ID == id {
			return c, nil
		}
	}
	return Caller{}, ErrNotFound
}

func testCaller() Caller {
	return Caller{
		ID:        "clr-1",
		Document:  "1094567890",
		Email:     "ana@example.com",
		CompanyID: "cmp-1",
		StatusID:  "st-act",
		RoleIDs:   []string{"rol-1", "rol-2"},
	}
}

func newTestIssuer(t *testing.T, clock func() time.Time, opts ...IssuerOption) *Issuer {
	t.Helper()
	store := &stubCallerStore{byDocument: map[string]Caller{"1094567890": testCaller()}}
	all := append([]IssuerOption{WithIssuerClock(clock)}, opts...)
	issuer, err := NewIssuer("test-secret-key", store, all...)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return issuer
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("  ", &stubCallerStore{}); err == nil {
		t.Fatal("expected error for empty secret")
	}
	if _, err := NewIssuer("secret", nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestIssueAndParseRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, func() time.Time { return now })

	signed, err := issuer.Issue(testCaller())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := now.Add(5 * 24 * time.Hour); !signed.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", signed.ExpiresAt, want)
	}

	claims, err := issuer.ParseAndValidate(signed.Token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Document != "1094567890" {
		t.Fatalf("Document = %q", claims.Document)
	}
	if claims.Roles != "rol-1,rol-2" {
		t.Fatalf("Roles = %q", claims.Roles)
	}
	if claims.CompanyID != "cmp-1" || claims.StatusID != "st-act" {
		t.Fatalf("company/status claims wrong: %+v", claims)
	}
	if got := claims.RoleIDs(); len(got) != 2 || got[0] != "rol-1" || got[1] != "rol-2" {
		t.Fatalf("RoleIDs = %v", got)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, func() time.Time { return now })
	signed, _ := issuer.Issue(testCaller())

	other, err := NewIssuer("different-secret", &stubCallerStore{byDocument: map[string]Caller{}},
		WithIssuerClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	if _, err := other.ParseAndValidate(signed.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	issued := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	issuer := newTestIssuer(t, func() time.Time { return issued }, WithTokenTTL(time.Hour))
	signed, _ := issuer.Issue(testCaller())

	later := newTestIssuer(t, func() time.Time { return issued.Add(2 * time.Hour) }, WithTokenTTL(time.Hour))
	if _, err := later.ParseAndValidate(signed.Token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	issuer := newTestIssuer(t, time.Now)
	for _, token := range []string{"", "   ", "not.a.token"} {
		if _, err := issuer.ParseAndValidate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("token %q: err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestRoleIDsToleratesMalformedClaim(t *testing.T) {
	cases := map[string][]string{
		"":            nil,
		"  ":          nil,
		",,,":         nil,
		" a , ,b,":    {"a", "b"},
		"solo":        {"solo"},
		"dup,dup":     {"dup", "dup"},
		"x,\ty ,  z ": {"x", "y", "z"},
	}
	for in, want := range cases {
		c := &Claims{Roles: in}
		got := c.RoleIDs()
		if len(got) != len(want) {
			t.Fatalf("RoleIDs(%q) = %v, want %v", in, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("RoleIDs(%q) = %v, want %v", in, got, want)
			}
		}
	}
}

func TestRenewReissuesFromCurrentRecord(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubCallerStore{byDocument: map[string]Caller{"1094567890": testCaller()}}
	issuer, err := NewIssuer("test-secret-key", store, WithIssuerClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	signed, _ := issuer.Issue(testCaller())

	// Role set changed since issuance; the renewed token reflects it.
	updated := testCaller()
	updated.RoleIDs = []string{"rol-9"}
	store.byDocument["1094567890"] = updated

	renewed, err := issuer.Renew(context.Background(), signed.Token)
	if err != nil {
		t.Fatalf("Renew: %v", err)
	}
	claims, err := issuer.ParseAndValidate(renewed.Token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Roles != "rol-9" {
		t.Fatalf("Roles = %q, want rol-9", claims.Roles)
	}
}

func TestRenewUnknownCaller(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &stubCallerStore{byDocument: map[string]Caller{"1094567890": testCaller()}}
	issuer, _ := NewIssuer("test-secret-key", store, WithIssuerClock(func() time.Time { return now }))
	signed, _ := issuer.Issue(testCaller())

	delete(store.byDocument, "1094567890")
	if _, err := issuer.Renew(context.Background(), signed.Token); !errors.Is(err, ErrCallerNotFound) {
		t.Fatalf("err = %v, want ErrCallerNotFound", err)
	}
}
