package httpapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"registra.org/internal/audit"
	"registra.org/internal/auth"
	"registra.org/internal/httpapi"
	"registra.org/internal/registry"
	"registra.org/internal/status"
	"registra.org/internal/store/mem"
)

const (
	activeID   = "st-act"
	inactiveID = "st-ina"

	testSecret   = "unit-test-secret"
	testPassword = "s3cret-pass"
)

type env struct {
	handler http.Handler
	store   *mem.Store
	svc     *registry.Service
	issuer  *auth.Issuer

	caller  auth.Caller
	token   string
	role    auth.Role
	company registry.Company
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithRate(t, 1000, 1000)
}

func newEnvWithRate(t *testing.T, perSecond float64, burst int) *env {
	t.Helper()
	ctx := context.Background()

	store := mem.New()
	store.AddStatus(status.Record{ID: activeID, Sequence: status.SequenceActive, Name: "Activo"})
	store.AddStatus(status.Record{ID: inactiveID, Sequence: status.SequenceInactive, Name: "Inactivo"})

	catalog, err := status.NewCatalog(store)
	if err != nil {
		t.Fatal(err)
	}
	stamper, err := audit.NewStamper("America/Bogota")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := registry.NewService(store, catalog, stamper)
	if err != nil {
		t.Fatal(err)
	}

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

	seedActor := auth.Caller{ID: "clr-seed", Document: "999000111"}
	company, err := svc.CreateCompany(ctx, seedActor, registry.CompanyInput{
		DocumentTypeID: "dt-1",
		Document:       "900123456",
		CompanyTypeID:  "ct-1",
		Name:           "Acme SAS",
	})
	if err != nil {
		t.Fatal(err)
	}
	role, err := svc.CreateRole(ctx, seedActor, registry.RoleInput{Name: "operador"})
	if err != nil {
		t.Fatal(err)
	}
	caller, err := svc.RegisterCaller(ctx, registry.CallerInput{
		DocumentTypeID: "dt-1",
		Document:       "1094567890",
		Email:          "ana@example.com",
		Names:          "Ana",
		Surnames:       "Gomez",
		Password:       testPassword,
		RoleID:         role.ID,
		CountryID:      "cty-1",
		CompanyID:      company.ID,
	})
	if err != nil {
		t.Fatal(err)
	}

	issuer, err := auth.NewIssuer(testSecret, store)
	if err != nil {
		t.Fatal(err)
	}
	resolver, err := auth.NewResolver(store)
	if err != nil {
		t.Fatal(err)
	}
	aggregator, err := auth.NewAggregator(store)
	if err != nil {
		t.Fatal(err)
	}
	gate, err := auth.NewGate(store)
	if err != nil {
		t.Fatal(err)
	}

	api := httpapi.New(httpapi.Deps{
		Issuer:        issuer,
		Resolver:      resolver,
		Aggregator:    aggregator,
		Gate:          gate,
		Registry:      svc,
		Statuses:      catalog,
		Version:       "test",
		RatePerSecond: perSecond,
		RateBurst:     burst,
		MaxBodyBytes:  1 << 20,
	})

	signed, err := issuer.Issue(caller)
	if err != nil {
		t.Fatal(err)
	}

	return &env{
		handler: api.Handler(),
		store:   store,
		svc:     svc,
		issuer:  issuer,
		caller:  caller,
		token:   signed.Token,
		role:    role,
		company: company,
	}
}

func (e *env) do(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) grant(view string, p auth.ViewPermission) {
	p.CallerID = e.caller.ID
	p.View = view
	e.store.SetPermission(p)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestPublicEndpoints(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d", rec.Code)
	}
	rec = e.do(t, http.MethodGet, "/v1/info", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info = %d", rec.Code)
	}
	var info map[string]string
	decodeBody(t, rec, &info)
	if info["service"] != "registra" {
		t.Fatalf("info = %v", info)
	}
}

func TestMissingBearerIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/companies", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestGarbageTokenIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodGet, "/api/companies", "", "not-a-token")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestTokenForUnknownCallerIsNotFound(t *testing.T) {
	e := newEnv(t)

	ghost := auth.Caller{ID: "clr-ghost", Document: "000000000"}
	signed, err := e.issuer.Issue(ghost)
	if err != nil {
		t.Fatal(err)
	}
	rec := e.do(t, http.MethodGet, "/api/companies", "", signed.Token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", rec.Code)
	}
}

func TestLoginAndRenew(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/user/login",
		`{"document":"1094567890","password":"`+testPassword+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d body %s", rec.Code, rec.Body.String())
	}
	var tok struct {
		Token     string `json:"token"`
		ExpiresAt string `json:"expires_at"`
	}
	decodeBody(t, rec, &tok)
	if tok.Token == "" || tok.ExpiresAt == "" {
		t.Fatalf("token response %+v", tok)
	}

	claims, err := e.issuer.ParseAndValidate(tok.Token)
	if err != nil {
		t.Fatalf("issued token invalid: %v", err)
	}
	if claims.Document != "1094567890" || claims.Roles != e.role.ID {
		t.Fatalf("claims %+v", claims)
	}

	rec = e.do(t, http.MethodGet, "/api/user/renew", "", tok.Token)
	if rec.Code != http.StatusOK {
		t.Fatalf("renew = %d body %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &tok)
	if _, err := e.issuer.ParseAndValidate(tok.Token); err != nil {
		t.Fatalf("renewed token invalid: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/user/login",
		`{"document":"1094567890","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %d, want 401", rec.Code)
	}
}

func TestRegisterIsPublicAndReturnsToken(t *testing.T) {
	e := newEnv(t)

	body := `{
		"document_type_id": "dt-1",
		"document": "52000111",
		"email": "pedro@example.com",
		"names": "Pedro",
		"surnames": "Perez",
		"phone": "3001234567",
		"password": "otra-clave-larga",
		"role_id": "` + e.role.ID + `",
		"country_id": "cty-1",
		"company_id": "` + e.company.ID + `"
	}`
	rec := e.do(t, http.MethodPost, "/api/user/register", body, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		User  auth.Caller `json:"user"`
		Token struct {
			Token string `json:"token"`
		} `json:"token"`
	}
	decodeBody(t, rec, &out)
	if out.User.StatusID != activeID {
		t.Fatalf("new user status %q", out.User.StatusID)
	}
	if out.User.RegisteredBy != "52000111" {
		t.Fatalf("RegisteredBy = %q, want self", out.User.RegisteredBy)
	}
	if _, err := e.issuer.ParseAndValidate(out.Token.Token); err != nil {
		t.Fatalf("register token invalid: %v", err)
	}
}

func TestDenyByDefaultThenGrant(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/companies", "", e.token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("ungranted query = %d, want 403", rec.Code)
	}
	var errBody struct {
		Error     string `json:"error"`
		RequestID string `json:"request_id"`
	}
	decodeBody(t, rec, &errBody)
	if errBody.Error != "operation not permitted" {
		t.Fatalf("error = %q", errBody.Error)
	}
	if errBody.RequestID == "" {
		t.Fatal("missing request id in error body")
	}

	e.grant(httpapi.ViewCompanies, auth.ViewPermission{CanQuery: true})
	rec = e.do(t, http.MethodGet, "/api/companies", "", e.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("granted query = %d body %s", rec.Code, rec.Body.String())
	}
	var companies []registry.Company
	decodeBody(t, rec, &companies)
	if len(companies) != 1 || companies[0].ID != e.company.ID {
		t.Fatalf("companies = %+v", companies)
	}
}

func TestOperationFlagsAreIndependent(t *testing.T) {
	e := newEnv(t)
	e.grant(httpapi.ViewCompanies, auth.ViewPermission{CanQuery: true})

	body := `{"document_type_id":"dt-1","document":"901111111","company_type_id":"ct-1","name":"Beta SAS"}`
	rec := e.do(t, http.MethodPost, "/api/companies", body, e.token)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("create without flag = %d, want 403", rec.Code)
	}

	e.grant(httpapi.ViewCompanies, auth.ViewPermission{CanQuery: true, CanCreate: true})
	rec = e.do(t, http.MethodPost, "/api/companies", body, e.token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create with flag = %d body %s", rec.Code, rec.Body.String())
	}
	var created registry.Company
	decodeBody(t, rec, &created)
	if created.StatusID != activeID || created.RegisteredBy != e.caller.Document {
		t.Fatalf("created %+v", created)
	}
	if want := httpapi.ViewCompanies + "/" + created.ID; rec.Header().Get("Location") != want {
		t.Fatalf("Location = %q, want %q", rec.Header().Get("Location"), want)
	}
}

func TestDeleteUserCascadesLinks(t *testing.T) {
	e := newEnv(t)
	e.grant(httpapi.ViewUsers, auth.ViewPermission{CanDelete: true})

	rec := e.do(t, http.MethodDelete, "/api/users/"+e.caller.ID, "", e.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d body %s", rec.Code, rec.Body.String())
	}

	stored, err := e.store.FindCaller(context.Background(), e.caller.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.StatusID != inactiveID {
		t.Fatalf("caller status %q, want inactive", stored.StatusID)
	}
	links, err := e.store.LinksForCaller(context.Background(), e.caller.ID, activeID)
	if err != nil {
		t.Fatal(err)
	}
	if len(links) != 0 {
		t.Fatalf("active links remain: %+v", links)
	}
}

func TestStatusViewIsQueryOnly(t *testing.T) {
	e := newEnv(t)
	e.grant(httpapi.ViewStatus, auth.ViewPermission{CanQuery: true})

	rec := e.do(t, http.MethodGet, "/api/status", "", e.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("status list = %d", rec.Code)
	}
	var records []status.Record
	decodeBody(t, rec, &records)
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}

	rec = e.do(t, http.MethodPost, "/api/status", `{}`, e.token)
	if rec.Code == http.StatusOK || rec.Code == http.StatusCreated {
		t.Fatalf("status create should not exist, got %d", rec.Code)
	}
}

func TestChangePasswordFlow(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/user/password",
		`{"current_password":"`+testPassword+`","new_password":"clave-nueva-larga"}`, e.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password = %d body %s", rec.Code, rec.Body.String())
	}

	rec = e.do(t, http.MethodPost, "/api/user/login",
		`{"document":"1094567890","password":"`+testPassword+`"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password still works: %d", rec.Code)
	}
	rec = e.do(t, http.MethodPost, "/api/user/login",
		`{"document":"1094567890","password":"clave-nueva-larga"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("new password login = %d", rec.Code)
	}
}

func TestMeExpandsRoleDescriptions(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/api/user/me", "", e.token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d", rec.Code)
	}
	var out struct {
		Roles []string `json:"roles"`
	}
	decodeBody(t, rec, &out)
	if len(out.Roles) != 1 || out.Roles[0] != "operador" {
		t.Fatalf("roles = %v", out.Roles)
	}
}

func TestRequestIDHeader(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Fatalf("X-Request-ID = %q, want fixed-id", got)
	}
}

func TestRateLimitAnswers429(t *testing.T) {
	e := newEnvWithRate(t, 1, 1)

	first := e.do(t, http.MethodGet, "/healthz", "", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first = %d", first.Code)
	}
	var limited *httptest.ResponseRecorder
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		rec := e.do(t, http.MethodGet, "/healthz", "", "")
		if rec.Code == http.StatusTooManyRequests {
			limited = rec
			break
		}
	}
	if limited == nil {
		t.Fatal("never rate limited")
	}
	if limited.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, limited, &body)
	if body.Error != "rate limit exceeded" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestUnknownFieldInBodyIsRejected(t *testing.T) {
	e := newEnv(t)
	e.grant(httpapi.ViewCompanies, auth.ViewPermission{CanCreate: true})

	rec := e.do(t, http.MethodPost, "/api/companies",
		`{"name":"X","document":"1","document_type_id":"dt-1","company_type_id":"ct-1","bogus":true}`, e.token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
}
