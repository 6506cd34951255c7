package main

import (
	"log"
	"net/http"

	httphandlers "horizon/internal/interfaces/http"
	"horizon/internal/shared/config"
	"horizon/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", httphandlers.HandleHealth)

	// Public auth routes
	mux.HandleFunc("POST /api/auth/sign-up", deps.AuthHandler.HandleSignUp)
	mux.HandleFunc("POST /api/auth/sign-in", deps.AuthHandler.HandleSignIn)
	mux.HandleFunc("POST /api/auth/logout", deps.AuthHandler.HandleLogout)

	// Protected routes
	authMiddleware := middleware.Auth(deps.Users, cfg.Identity.CookieName)
	protected := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(h)
	}
	// Auth runs first so the limiter keys on the user.
	limited := func(h http.HandlerFunc) http.Handler {
		return authMiddleware(deps.LinkLimiter.Middleware(h))
	}

	mux.Handle("GET /api/users/me", protected(httphandlers.HandleMe))
	mux.Handle("POST /api/link/token", limited(deps.LinkHandler.HandleCreateLinkToken))
	mux.Handle("POST /api/link/exchange", limited(deps.LinkHandler.HandleExchangePublicToken))
	mux.Handle("GET /api/banks", protected(deps.BankHandler.HandleListBanks))
	mux.Handle("GET /api/banks/{id}", protected(deps.BankHandler.HandleGetBank))
	mux.Handle("GET /api/banks/shared/{shareableId}", protected(deps.BankHandler.HandleGetSharedBank))
	mux.Handle("GET /api/dashboard", protected(deps.DashboardHandler.HandleHome))

	// Apply global middleware
	handler := middleware.Logging(middleware.CORS(cfg.Server.AllowedHosts)(mux))
	handler = middleware.Tracing(handler)
	handler = middleware.Telemetry(cfg.Telemetry.ServiceName)(handler)

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(middleware.SecureCookies(handler))
		log.Println("TLS security middleware enabled (HSTS + SecureCookies)")
	}

	return handler
}
