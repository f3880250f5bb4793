// Package httpapi is the HTTP surface: routing, middleware, authentication
// and the permission gate in front of every resource view.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"registra.org/internal/auth"
	"registra.org/internal/obs"
	"registra.org/internal/registry"
	"registra.org/internal/status"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe func(ctx context.Context) error

type Deps struct {
	Issuer     *auth.Issuer
	Resolver   *auth.Resolver
	Aggregator *auth.Aggregator
	Gate       *auth.Gate
	Registry   *registry.Service
	Statuses   *status.Catalog
	ReadyProbe ReadyProbe

	Version       string
	RatePerSecond float64
	RateBurst     int
	MaxBodyBytes  int64
}

type API struct {
	router *mux.Router

	issuer     *auth.Issuer
	resolver   *auth.Resolver
	aggregator *auth.Aggregator
	gate       *auth.Gate
	registry   *registry.Service
	statuses   *status.Catalog
	ready      ReadyProbe

	version       string
	ratePerSecond float64
	rateBurst     int
	maxBodyBytes  int64
}

func New(d Deps) *API {
	a := &API{
		router:        mux.NewRouter(),
		issuer:        d.Issuer,
		resolver:      d.Resolver,
		aggregator:    d.Aggregator,
		gate:          d.Gate,
		registry:      d.Registry,
		statuses:      d.Statuses,
		ready:         d.ReadyProbe,
		version:       d.Version,
		ratePerSecond: d.RatePerSecond,
		rateBurst:     d.RateBurst,
		maxBodyBytes:  d.MaxBodyBytes,
	}
	if a.ratePerSecond <= 0 {
		a.ratePerSecond = 10
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}
	a.routes()
	return a
}

type resourceHandlers struct {
	list   http.HandlerFunc
	create http.HandlerFunc
	update http.HandlerFunc
	delete http.HandlerFunc
}

// registerView binds a view identifier to its routes. Item routes live under
// the view root; the permission row is keyed by the root alone.
func (a *API) registerView(view string, h resourceHandlers) {
	if h.list != nil {
		a.router.HandleFunc(view, h.list).Methods(http.MethodGet)
	}
	if h.create != nil {
		a.router.HandleFunc(view, h.create).Methods(http.MethodPost)
	}
	if h.update != nil {
		a.router.HandleFunc(view+"/{id}", h.update).Methods(http.MethodPut)
	}
	if h.delete != nil {
		a.router.HandleFunc(view+"/{id}", h.delete).Methods(http.MethodDelete)
	}
}

func (a *API) routes() {
	r := a.router
	r.HandleFunc("/healthz", a.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.handleReadyz).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.handleInfo).Methods(http.MethodGet)

	r.HandleFunc("/api/user/register", a.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/user/login", a.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/user/renew", a.handleRenew).Methods(http.MethodGet)
	r.HandleFunc("/api/user/password", a.handleChangePassword).Methods(http.MethodPost)
	r.HandleFunc("/api/user/me", a.handleMe).Methods(http.MethodGet)

	a.registerView(ViewCompanies, resourceHandlers{
		list:   a.listCompanies,
		create: a.createCompany,
		update: a.updateCompany,
		delete: a.deleteCompany,
	})
	a.registerView(ViewCompanyTypes, resourceHandlers{
		list:   a.listCompanyTypes,
		create: a.createCompanyType,
		update: a.updateCompanyType,
		delete: a.deleteCompanyType,
	})
	a.registerView(ViewCountries, resourceHandlers{
		list:   a.listCountries,
		create: a.createCountry,
		update: a.updateCountry,
		delete: a.deleteCountry,
	})
	a.registerView(ViewDocumentTypes, resourceHandlers{
		list:   a.listDocumentTypes,
		create: a.createDocumentType,
		update: a.updateDocumentType,
		delete: a.deleteDocumentType,
	})
	a.registerView(ViewWorkSites, resourceHandlers{
		list:   a.listWorkSites,
		create: a.createWorkSite,
		update: a.updateWorkSite,
		delete: a.deleteWorkSite,
	})
	a.registerView(ViewRoles, resourceHandlers{
		list:   a.listRoles,
		create: a.createRole,
		update: a.updateRole,
		delete: a.deleteRole,
	})
	a.registerView(ViewUserRoles, resourceHandlers{
		list:   a.listRoleLinks,
		create: a.createRoleLink,
		delete: a.deleteRoleLink,
	})
	a.registerView(ViewUsers, resourceHandlers{
		list:   a.listUsers,
		update: a.updateUser,
		delete: a.deleteUser,
	})
	a.registerView(ViewStatus, resourceHandlers{
		list: a.listStatuses,
	})
}

// Handler assembles the middleware chain around the router.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.router)
	h = RateLimit(h, a.ratePerSecond, a.rateBurst)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			writeError(w, r, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "registra",
		"version": a.version,
	})
}
