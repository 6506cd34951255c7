package main

import (
	"context"
	"log"

	"horizon/internal/domain/bank"
	"horizon/internal/domain/dashboard"
	"horizon/internal/domain/linking"
	"horizon/internal/domain/user"
	"horizon/internal/infrastructure/backend"
	"horizon/internal/infrastructure/crypto"
	"horizon/internal/infrastructure/docstore"
	"horizon/internal/infrastructure/dwolla"
	"horizon/internal/infrastructure/plaid"
	"horizon/internal/infrastructure/redis"
	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	Backend *backend.Backend

	// Handlers
	AuthHandler      *httphandlers.AuthHandler
	LinkHandler      *httphandlers.LinkHandler
	BankHandler      *httphandlers.BankHandler
	DashboardHandler *httphandlers.DashboardHandler

	Users       *user.Service
	Reconciler  *linking.Reconciler
	LinkLimiter *middleware.RateLimiter
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	b, err := backend.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := b.OpenIdentity(ctx, cfg); err != nil {
		b.Close()
		return nil, err
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		b.Close()
		return nil, err
	}

	aggregator, err := plaid.NewClient(cfg.Plaid.ClientID, cfg.Plaid.Secret, cfg.Plaid.Env)
	if err != nil {
		b.Close()
		return nil, err
	}
	payments, err := dwolla.NewClient(ctx, cfg.Dwolla.Key, cfg.Dwolla.Secret, cfg.Dwolla.Env)
	if err != nil {
		b.Close()
		return nil, err
	}

	// Repositories
	userRepo := docstore.NewUserRepository(b.Store, cfg.Store.UserCollection, encryptor)
	bankRepo := docstore.NewBankRepository(b.Store, cfg.Store.BankCollection, encryptor)
	reconciliationRepo := docstore.NewReconciliationRepository(b.Store, cfg.Store.ReconciliationCollection, encryptor)

	// Domain services
	userService := user.NewService(userRepo, b.Identity, payments)
	bankService := bank.NewService(bankRepo)

	var homeCache dashboard.Cache
	if b.Redis != nil {
		homeCache = redis.NewViewCache[dashboard.Home](b.Redis.Client, cfg.Redis.DashboardCacheTTL)
	} else {
		log.Println("REDIS_ADDR not set, dashboard cache disabled")
	}
	dashboardService := dashboard.NewService(bankService, aggregator, homeCache)

	orchestrator := linking.NewOrchestrator(linking.Config{
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		Language:     cfg.Plaid.Language,
		Processor:    cfg.Plaid.Processor,
	}, aggregator, payments, bankService, reconciliationRepo, dashboardService)
	reconciler := linking.NewReconciler(reconciliationRepo, aggregator, payments, cfg.Reconciler.MaxAttempts)

	cookies := httphandlers.SessionCookies{Name: cfg.Identity.CookieName}

	return &Dependencies{
		Backend:          b,
		AuthHandler:      httphandlers.NewAuthHandler(userService, cookies),
		LinkHandler:      httphandlers.NewLinkHandler(orchestrator),
		BankHandler:      httphandlers.NewBankHandler(bankService),
		DashboardHandler: httphandlers.NewDashboardHandler(dashboardService),
		Users:            userService,
		Reconciler:       reconciler,
		LinkLimiter:      middleware.NewRateLimiter(cfg.RateLimit.LinkPerSecond, cfg.RateLimit.LinkBurst),
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if err := d.Backend.Close(); err != nil {
		log.Printf("Error closing backend: %v", err)
	}
}
