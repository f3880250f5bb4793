package registry_test

import (
	"context"
	"errors"
	"testing"

	"registra.org/internal/registry"
)

func TestDeleteRoleRetiresActiveLinks(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)
	roleID := caller.RoleIDs[0]

	// A second role keeps its links; only the deleted role's links flip.
	other, err := w.svc.CreateRole(context.Background(), w.actor, registry.RoleInput{Name: "auditor"})
	if err != nil {
		t.Fatal(err)
	}
	otherLink, err := w.svc.CreateRoleLink(context.Background(), w.actor, registry.RoleLinkInput{
		CallerID: caller.ID,
		RoleID:   other.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := w.svc.DeleteRole(context.Background(), w.actor, roleID); err != nil {
		t.Fatalf("DeleteRole: %v", err)
	}

	role, err := w.svc.GetRole(context.Background(), roleID)
	if err != nil {
		t.Fatal(err)
	}
	if role.StatusID != inactiveID {
		t.Fatalf("role StatusID = %q, want inactive", role.StatusID)
	}
	if role.ModifiedBy == nil || *role.ModifiedBy != w.actor.Document {
		t.Fatalf("role ModifiedBy = %v", role.ModifiedBy)
	}

	links, err := w.svc.ListRoleLinks(context.Background(), caller.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	for _, link := range links {
		switch link.RoleID {
		case roleID:
			if link.StatusID != inactiveID {
				t.Fatalf("deleted role's link still %q", link.StatusID)
			}
		case other.ID:
			if link.StatusID != activeID {
				t.Fatalf("unrelated link %q flipped to %q", otherLink.ID, link.StatusID)
			}
		}
	}
}

func TestDeleteCallerRetiresItsLinks(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)

	if err := w.svc.DeleteCaller(context.Background(), w.actor, caller.ID); err != nil {
		t.Fatalf("DeleteCaller: %v", err)
	}

	stored, err := w.svc.GetCaller(context.Background(), caller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.StatusID != inactiveID {
		t.Fatalf("caller StatusID = %q, want inactive", stored.StatusID)
	}

	links, err := w.svc.ListRoleLinks(context.Background(), caller.ID, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) == 0 {
		t.Fatal("expected surviving link rows")
	}
	for _, link := range links {
		if link.StatusID != inactiveID {
			t.Fatalf("link %s still %q", link.ID, link.StatusID)
		}
	}
}

func TestDeleteMissingTarget(t *testing.T) {
	w := newWorld(t)
	if err := w.svc.DeleteCompany(context.Background(), w.actor, "ghost"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := w.svc.DeleteRole(context.Background(), w.actor, "  "); !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("blank id: err = %v, want ErrInvalidInput", err)
	}
}

func TestDeleteIsAtomic(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)
	roleID := caller.RoleIDs[0]

	boom := errors.New("storage down")
	w.store.FailMarkInactive = boom

	if err := w.svc.DeleteRole(context.Background(), w.actor, roleID); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want injected failure", err)
	}

	// Nothing was applied: role and link are still active.
	role, err := w.svc.GetRole(context.Background(), roleID)
	if err != nil {
		t.Fatal(err)
	}
	if role.StatusID != activeID {
		t.Fatalf("role StatusID = %q after failed delete", role.StatusID)
	}
	links, err := w.svc.ListRoleLinks(context.Background(), caller.ID, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 1 {
		t.Fatalf("active links = %d, want 1", len(links))
	}
}

func TestDeletedRoleStaysDeleted(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)
	roleID := caller.RoleIDs[0]

	if err := w.svc.DeleteRole(context.Background(), w.actor, roleID); err != nil {
		t.Fatal(err)
	}
	// Repeating the delete is harmless and the row never comes back active.
	if err := w.svc.DeleteRole(context.Background(), w.actor, roleID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
	role, err := w.svc.GetRole(context.Background(), roleID)
	if err != nil {
		t.Fatal(err)
	}
	if role.StatusID != inactiveID {
		t.Fatalf("role StatusID = %q", role.StatusID)
	}
}
