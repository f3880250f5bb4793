package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/registry"
	"registra.org/internal/status"
	"registra.org/internal/store/mem"
)

const (
	activeID   = "st-act"
	inactiveID = "st-ina"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type world struct {
	store *mem.Store
	svc   *registry.Service
	actor auth.Caller
}

func newWorld(t *testing.T) *world {
	t.Helper()
	store := mem.New()
	store.AddStatus(status.Record{ID: activeID, Sequence: status.SequenceActive, Name: "Activo"})
	store.AddStatus(status.Record{ID: inactiveID, Sequence: status.SequenceInactive, Name: "Inactivo"})

	catalog, err := status.NewCatalog(store)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	stamper, err := audit.NewStamper("America/Bogota", audit.WithClock(func() time.Time { return testNow }))
	if err != nil {
		t.Fatalf("NewStamper: %v", err)
	}
	svc, err := registry.NewService(store, catalog, stamper)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	ctx := context.Background()
	actor := auth.Caller{ID: "clr-admin", Document: "999000111"}

	dt := registry.DocumentType{ID: "dt-1", Name: "NIT", StatusID: activeID}
	if err := store.CreateDocumentType(ctx, &dt); err != nil {
		t.Fatal(err)
	}
	ct := registry.CompanyType{ID: "ct-1", Name: "Privada", StatusID: activeID}
	if err := store.CreateCompanyType(ctx, &ct); err != nil {
		t.Fatal(err)
	}
	country := registry.Country{ID: "cty-1", Name: "Colombia", StatusID: activeID}
	if err := store.CreateCountry(ctx, &country); err != nil {
		t.Fatal(err)
	}
	return &world{store: store, svc: svc, actor: actor}
}

func (w *world) addCompany(t *testing.T) registry.Company {
	t.Helper()
	company, err := w.svc.CreateCompany(context.Background(), w.actor, registry.CompanyInput{
		DocumentTypeID: "dt-1",
		Document:       "900123456",
		CompanyTypeID:  "ct-1",
		Name:           "Acme SAS",
	})
	if err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	return company
}

func TestCreateCompanyDefaultsToActiveAndStamps(t *testing.T) {
	w := newWorld(t)
	company := w.addCompany(t)

	if company.StatusID != activeID {
		t.Fatalf("StatusID = %q, want active", company.StatusID)
	}
	if company.RegisteredBy != w.actor.Document {
		t.Fatalf("RegisteredBy = %q", company.RegisteredBy)
	}
	if !company.RegisteredAt.Equal(testNow) {
		t.Fatalf("RegisteredAt = %v", company.RegisteredAt)
	}
	if company.ModifiedBy != nil || company.ModifiedAt != nil {
		t.Fatal("fresh record carries modification stamps")
	}
	if company.ID == "" {
		t.Fatal("no id assigned")
	}
}

func TestCreateCompanyValidatesReferences(t *testing.T) {
	w := newWorld(t)
	_, err := w.svc.CreateCompany(context.Background(), w.actor, registry.CompanyInput{
		DocumentTypeID: "dt-missing",
		Document:       "900123456",
		CompanyTypeID:  "ct-1",
		Name:           "Acme SAS",
	})
	if !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	_, err = w.svc.CreateCompany(context.Background(), w.actor, registry.CompanyInput{
		DocumentTypeID: "dt-1",
		Document:       "  ",
		CompanyTypeID:  "ct-1",
		Name:           "Acme SAS",
	})
	if !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("blank document: err = %v, want ErrInvalidInput", err)
	}
}

func TestListCompaniesHidesInactiveByDefault(t *testing.T) {
	w := newWorld(t)
	kept := w.addCompany(t)

	gone, err := w.svc.CreateCompany(context.Background(), w.actor, registry.CompanyInput{
		DocumentTypeID: "dt-1",
		Document:       "900999999",
		CompanyTypeID:  "ct-1",
		Name:           "Borrada SAS",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.svc.DeleteCompany(context.Background(), w.actor, gone.ID); err != nil {
		t.Fatalf("DeleteCompany: %v", err)
	}

	active, err := w.svc.ListCompanies(context.Background(), false)
	if err != nil {
		t.Fatalf("ListCompanies: %v", err)
	}
	if len(active) != 1 || active[0].ID != kept.ID {
		t.Fatalf("active list = %+v", active)
	}

	all, err := w.svc.ListCompanies(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("full list has %d entries, want 2", len(all))
	}
}

func TestUpdateCompanyStampsModification(t *testing.T) {
	w := newWorld(t)
	company := w.addCompany(t)

	name := "Acme Renombrada SAS"
	updated, err := w.svc.UpdateCompany(context.Background(), w.actor, company.ID, registry.CompanyUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateCompany: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("Name = %q", updated.Name)
	}
	if updated.ModifiedBy == nil || *updated.ModifiedBy != w.actor.Document {
		t.Fatalf("ModifiedBy = %v", updated.ModifiedBy)
	}
	if updated.RegisteredBy != company.RegisteredBy || !updated.RegisteredAt.Equal(company.RegisteredAt) {
		t.Fatal("creation stamp changed on update")
	}

	blank := "   "
	if _, err := w.svc.UpdateCompany(context.Background(), w.actor, company.ID, registry.CompanyUpdate{Name: &blank}); !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("blank name: err = %v, want ErrInvalidInput", err)
	}
}

func TestUpdateMissingCompany(t *testing.T) {
	w := newWorld(t)
	name := "X"
	_, err := w.svc.UpdateCompany(context.Background(), w.actor, "ghost", registry.CompanyUpdate{Name: &name})
	if !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestWorkSiteRequiresExistingCompany(t *testing.T) {
	w := newWorld(t)
	_, err := w.svc.CreateWorkSite(context.Background(), w.actor, registry.WorkSiteInput{
		Name:      "Sede Norte",
		CompanyID: "ghost",
	})
	if !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	company := w.addCompany(t)
	ws, err := w.svc.CreateWorkSite(context.Background(), w.actor, registry.WorkSiteInput{
		Name:      "Sede Norte",
		CompanyID: company.ID,
	})
	if err != nil {
		t.Fatalf("CreateWorkSite: %v", err)
	}
	if ws.CompanyID != company.ID || ws.StatusID != activeID {
		t.Fatalf("unexpected work site %+v", ws)
	}
}

func registerTestCaller(t *testing.T, w *world) auth.Caller {
	t.Helper()
	role, err := w.svc.CreateRole(context.Background(), w.actor, registry.RoleInput{Name: "operador"})
	if err != nil {
		t.Fatalf("CreateRole: %v", err)
	}
	company := w.addCompany(t)
	caller, err := w.svc.RegisterCaller(context.Background(), registry.CallerInput{
		DocumentTypeID: "dt-1",
		Document:       "1094567890",
		Email:          "ana@example.com",
		Names:          "Ana",
		Surnames:       "Gomez",
		Password:       "s3cret-pass",
		RoleID:         role.ID,
		CountryID:      "cty-1",
		CompanyID:      company.ID,
	})
	if err != nil {
		t.Fatalf("RegisterCaller: %v", err)
	}
	return caller
}

func TestRegisterCallerSelfStampsAndLinksRole(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)

	if caller.RegisteredBy != caller.Document {
		t.Fatalf("RegisteredBy = %q, want the caller's own document", caller.RegisteredBy)
	}
	if len(caller.RoleIDs) != 1 {
		t.Fatalf("RoleIDs = %v", caller.RoleIDs)
	}

	links, err := w.svc.ListRoleLinks(context.Background(), caller.ID, false)
	if err != nil {
		t.Fatalf("ListRoleLinks: %v", err)
	}
	if len(links) != 1 || links[0].StatusID != activeID {
		t.Fatalf("links = %+v", links)
	}

	// Same document again is a conflict.
	_, err = w.svc.RegisterCaller(context.Background(), registry.CallerInput{
		DocumentTypeID: "dt-1",
		Document:       caller.Document,
		Email:          "otra@example.com",
		Names:          "Otra",
		Password:       "s3cret-pass",
		RoleID:         caller.RoleIDs[0],
		CountryID:      "cty-1",
		CompanyID:      caller.CompanyID,
	})
	if !errors.Is(err, registry.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestRegisterCallerRejectsShortPassword(t *testing.T) {
	w := newWorld(t)
	role, _ := w.svc.CreateRole(context.Background(), w.actor, registry.RoleInput{Name: "operador"})
	company := w.addCompany(t)
	_, err := w.svc.RegisterCaller(context.Background(), registry.CallerInput{
		DocumentTypeID: "dt-1",
		Document:       "1094567890",
		Email:          "ana@example.com",
		Names:          "Ana",
		Password:       "short",
		RoleID:         role.ID,
		CountryID:      "cty-1",
		CompanyID:      company.ID,
	})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("err = %v, want auth.ErrInvalidInput", err)
	}
}

func TestChangePassword(t *testing.T) {
	w := newWorld(t)
	caller := registerTestCaller(t, w)

	err := w.svc.ChangePassword(context.Background(), caller, "wrong-pass", "new-s3cret-pass")
	if !errors.Is(err, registry.ErrInvalidInput) {
		t.Fatalf("wrong current: err = %v, want ErrInvalidInput", err)
	}

	if err := w.svc.ChangePassword(context.Background(), caller, "s3cret-pass", "new-s3cret-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	stored, err := w.store.FindCaller(context.Background(), caller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !auth.VerifyPassword(stored.PasswordHash, "new-s3cret-pass") {
		t.Fatal("new password does not verify")
	}
	if auth.VerifyPassword(stored.PasswordHash, "s3cret-pass") {
		t.Fatal("old password still verifies")
	}
}
