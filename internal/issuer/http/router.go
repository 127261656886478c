package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/metrics"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/httpx"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"

	_ "github.com/aussiebroadwan/vcissuer/api/issuer" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// ReadinessChecker is implemented by collaborators that can report whether
// they are able to serve, such as the credential signer.
type ReadinessChecker interface {
	Ready() error
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	publicURL    string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store
	metrics      *metrics.Metrics

	// AdminToken guards the offer endpoints. When empty the endpoints
	// answer 404, unless OpenOffers is set.
	AdminToken string
	OpenOffers bool

	Signer ReadinessChecker

	OfferService      *service.OfferService
	TokenService      *service.TokenService
	CredentialService *service.CredentialService
	MetadataService   *service.MetadataService
}

// NewRouter returns a Router. publicURL, when set, is the credential issuer
// identifier; otherwise it is derived from each request.
func NewRouter(
	publicURL, buildVersion string,
	st store.Store,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Router {
	if m == nil {
		m = metrics.New()
	}
	r := &Router{
		Mux:          http.NewServeMux(),
		publicURL:    strings.TrimRight(publicURL, "/"),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		metrics:      m,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerMetadata()
	r.registerOID4VCI()
	r.registerOffers()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Verifiable Credential Issuer API
//	@version		0.1.0
//	@description	OpenID4VCI pre-authorized code issuer for ISO 18013-5 mdoc loyalty credentials.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/vcissuer
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token from /token, or the admin token for /offers. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// baseURL is the credential issuer identifier for req.
func (r *Router) baseURL(req *http.Request) string {
	if r.publicURL != "" {
		return r.publicURL
	}
	return httpx.RequestBaseURL(req)
}

func (r *Router) registerMetadata() {
	h := &MetadataHandler{MetadataService: r.MetadataService, baseURL: r.baseURL}

	// Public documents - high limit
	r.Mux.Handle("GET /.well-known/openid-credential-issuer",
		httpx.Chain(http.HandlerFunc(h.HandleIssuer),
			httpx.RateLimitByIP(httpx.PublicLimit, r.metrics.RateLimitHook("metadata")),
		),
	)
	r.Mux.Handle("GET /.well-known/oauth-authorization-server",
		httpx.Chain(http.HandlerFunc(h.HandleAuthorizationServer),
			httpx.RateLimitByIP(httpx.PublicLimit, r.metrics.RateLimitHook("metadata")),
		),
	)
}

func (r *Router) registerOID4VCI() {
	// POST /token - strict rate limit by IP, the only place a tx_code can be guessed
	tokenHandler := &TokenHandler{TokenService: r.TokenService, metrics: r.metrics}
	r.Mux.Handle("POST "+service.TokenPath,
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.TokenLimit, r.metrics.RateLimitHook("token")),
		),
	)

	// POST /credential - limited per client and bearer token
	credentialHandler := &CredentialHandler{
		CredentialService: r.CredentialService,
		baseURL:           r.baseURL,
		metrics:           r.metrics,
	}
	r.Mux.Handle("POST "+service.CredentialPath,
		httpx.Chain(credentialHandler,
			httpx.RateLimitByBearer(httpx.CredentialLimit, r.metrics.RateLimitHook("credential")),
		),
	)
}

func (r *Router) registerOffers() {
	h := &OffersHandler{OfferService: r.OfferService, baseURL: r.baseURL, metrics: r.metrics}

	guard := httpx.StaticBearerMiddleware(r.AdminToken)
	if r.AdminToken == "" && r.OpenOffers {
		r.logger.Warn("offer endpoints are open: no admin token configured")
		guard = func(next http.Handler) http.Handler { return next }
	}

	// Admin endpoints - moderate limit by IP, checked before the token so
	// guessing the admin token is throttled too.
	r.Mux.Handle("POST /offers",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.RateLimitByIP(httpx.AdminLimit, r.metrics.RateLimitHook("offers")),
			guard,
		),
	)
	r.Mux.Handle("GET /offers/qr.png",
		httpx.Chain(http.HandlerFunc(h.HandleQRCode),
			httpx.RateLimitByIP(httpx.AdminLimit, r.metrics.RateLimitHook("offers")),
			guard,
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit, nil),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Signer),
			httpx.RateLimitByIP(httpx.PublicLimit, nil),
		),
	)
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
