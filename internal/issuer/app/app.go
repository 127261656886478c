package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/vcissuer/internal/issuer/domain"
	httpapi "github.com/aussiebroadwan/vcissuer/internal/issuer/http"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/metrics"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/service"
	"github.com/aussiebroadwan/vcissuer/internal/issuer/store"
	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/qrx"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

// BuildVersion is overridden at build time via -ldflags.
var BuildVersion = "v0.1.0"

// Application encapsulates the issuer service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db      store.Store
	signer  *service.MdocSigner
	metrics *metrics.Metrics
	catalog domain.Catalog

	// Services
	codeService         *service.CodeService
	offerService        *service.OfferService
	tokenService        *service.TokenService
	credentialService   *service.CredentialService
	metadataService     *service.MetadataService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "vc-issuer",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		metrics: metrics.New(),
		catalog: domain.DefaultCatalog(),
	}

	if err := initPepper(app.cfg, app.logger); err != nil {
		return nil, fmt.Errorf("failed to load tx code pepper: %w", err)
	}

	db, err := OpenStore(app.cfg, app.logger)
	if err != nil {
		return nil, err
	}
	app.db = db

	iss, err := InitIssuerKey(app.cfg, app.logger, time.Now())
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize issuer key: %w", err)
	}
	app.signer = &service.MdocSigner{Issuer: iss}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the routed HTTP handler, mainly for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	ln, err := net.Listen("tcp", app.server.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return app.Serve(ln)
}

// Serve is Run on an existing listener.
func (app *Application) Serve(ln net.Listener) error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("issuer starting",
		"addr", ln.Addr().String(),
		"version", BuildVersion,
		"store", app.cfg.Store,
		"public_url", app.cfg.PublicURL,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.Serve(ln)
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down issuer...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close the store
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("issuer stopped")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	app.codeService = &service.CodeService{
		Store:        app.db,
		CodeTTL:      app.cfg.CodeTTL,
		TokenTTL:     app.cfg.TokenTTL,
		TxCodeLength: app.cfg.TxCodeLength,
	}

	app.offerService = &service.OfferService{
		Codes:             app.codeService,
		Catalog:           app.catalog,
		QR:                qrx.NewPNGEncoder(0),
		TxCodeDescription: app.cfg.TxCodeDescription,
	}

	app.tokenService = &service.TokenService{Codes: app.codeService}

	claims, err := service.LoadClaims(app.cfg.ClaimsFile, app.catalog)
	if err != nil {
		return fmt.Errorf("failed to load credential claims: %w", err)
	}
	if app.cfg.ClaimsFile != "" {
		app.logger.Info("credential claims loaded", "file", app.cfg.ClaimsFile)
	}

	app.credentialService = &service.CredentialService{
		Codes:    app.codeService,
		Catalog:  app.catalog,
		Claims:   claims,
		Signer:   app.signer,
		Validity: app.cfg.CredentialValidity,
	}

	app.metadataService = &service.MetadataService{
		Catalog: app.catalog,
		Display: service.DefaultIssuerDisplay(),
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.codeService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	app.housekeepingService.OnSweep = func(res service.SweepResult) {
		app.metrics.ObserveSweep(res.Expired, res.TokensDeleted, res.CodesDeleted)
	}

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.cfg.PublicURL,
		BuildVersion,
		app.db,
		app.metrics,
		app.logger,
	)

	// Offer endpoints stay reachable without a token only in development
	router.AdminToken = app.cfg.AdminToken
	router.OpenOffers = app.cfg.AdminToken == "" && app.cfg.IsDev()
	if app.cfg.AdminToken == "" && !router.OpenOffers {
		app.logger.Warn("ISSUER_ADMIN_TOKEN is not set, offer endpoints are disabled")
	}

	// Wire services to router
	router.Signer = app.signer
	router.OfferService = app.offerService
	router.TokenService = app.tokenService
	router.CredentialService = app.credentialService
	router.MetadataService = app.metadataService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// initPepper loads the tx code pepper at startup. A freshly generated pepper
// behind the shared redis store means this instance cannot verify tx codes
// minted elsewhere, so it is called out.
func initPepper(cfg Config, logger *slog.Logger) error {
	cryptox.SetPepperPath(cfg.PepperFile)

	generated, err := cryptox.LoadPepper()
	if err != nil {
		return err
	}
	if generated && cfg.Store == StoreRedis {
		logger.Warn("generated a new tx code pepper for a shared redis store; every instance must mount the same ISSUER_PEPPER_FILE",
			slog.String("path", cfg.PepperFile),
		)
	}
	return nil
}
