package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/geoforest/licensing/pkg/slogx"

	_ "github.com/geoforest/licensing/api/licensing" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	keys         *jwtx.KeySet // nil when Firebase verifies tokens
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	TenantService     *service.TenantService
	TeamService       *service.TeamService
	ProjectService    *service.ProjectService
	DelegationService *service.DelegationService
	AuthService       *service.AuthService // Optional: only set when tokens are issued locally
}

func NewRouter(
	verifier jwtx.Verifier,
	keys *jwtx.KeySet,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTenants()
	r.registerTeam()
	r.registerProjects()
	r.registerDelegations()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			GeoForest Licensing Service API
//	@version		0.1.0
//	@description	Multi-tenant licenses, team membership, projects and single-use project delegation codes
//	@description	for the GeoForest field survey app.
//	@description
//	@description				Callers authenticate with a bearer token carrying license_id and role claims, issued either
//	@description				by Firebase Authentication or by this service's local directory.
//
//	@contact.name				GeoForest Team
//	@contact.url				https://github.com/geoforest/licensing
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// elevated lists the roles allowed to change a license.
var elevated = []string{domain.RoleOwner.String(), domain.RoleManager.String()}

func (r *Router) registerAuth() {
	if r.AuthService == nil {
		return
	}
	h := &AuthHandler{AuthService: r.AuthService}

	// Credential endpoints - strict rate limit by IP (brute force)
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignUp),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/token",
		httpx.Chain(http.HandlerFunc(h.HandleToken),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	if r.keys != nil {
		r.Mux.Handle("GET /.well-known/jwks.json",
			httpx.Chain(JWKSHandler(r.keys),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}

func (r *Router) registerTenants() {
	h := &TenantsHandler{TenantService: r.TenantService}

	// POST /v1/tenants - strict, a caller provisions once
	r.Mux.Handle("POST /v1/tenants",
		httpx.Chain(http.HandlerFunc(h.HandleProvision),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("GET /v1/tenants/me",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTeam() {
	h := &TeamHandler{TeamService: r.TeamService}

	securedAdd := httpx.Chain(http.HandlerFunc(h.HandleAdd),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(elevated...),
		httpx.RateLimitByTenant(httpx.ModerateLimit),
	)
	securedRemove := httpx.Chain(http.HandlerFunc(h.HandleRemove),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(elevated...),
		httpx.RateLimitByTenant(httpx.ModerateLimit),
	)

	r.Mux.Handle("POST /v1/team/members", securedAdd)
	r.Mux.Handle("DELETE /v1/team/members/{id}", securedRemove)
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{ProjectService: r.ProjectService}

	securedRegister := httpx.Chain(http.HandlerFunc(h.HandleRegister),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(elevated...),
		httpx.RateLimitByTenant(httpx.ModerateLimit),
	)
	securedList := httpx.Chain(http.HandlerFunc(h.HandleList),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	securedDelete := httpx.Chain(http.HandlerFunc(h.HandleDelete),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(elevated...),
		httpx.RateLimitByTenant(httpx.ModerateLimit),
	)
	securedReceived := httpx.Chain(http.HandlerFunc(h.HandleDelegated),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("POST /v1/projects", securedRegister)
	r.Mux.Handle("GET /v1/projects", securedList)
	r.Mux.Handle("DELETE /v1/projects/{id}", securedDelete)
	r.Mux.Handle("GET /v1/delegations/received", securedReceived)
}

func (r *Router) registerDelegations() {
	h := &DelegationsHandler{DelegationService: r.DelegationService}

	securedCreate := httpx.Chain(http.HandlerFunc(h.HandleCreate),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireAnyRole(elevated...),
		httpx.RateLimitByTenant(httpx.ModerateLimit),
	)

	// POST /v1/delegations/redeem - strict rate limit by user (codes are
	// short enough to guess)
	securedRedeem := httpx.Chain(http.HandlerFunc(h.HandleRedeem),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.StrictLimit),
	)

	securedIssued := httpx.Chain(http.HandlerFunc(h.HandleListIssued),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)

	r.Mux.Handle("POST /v1/delegations", securedCreate)
	r.Mux.Handle("POST /v1/delegations/redeem", securedRedeem)
	r.Mux.Handle("GET /v1/delegations/issued", securedIssued)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
