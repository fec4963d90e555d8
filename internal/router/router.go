package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/library-lending/internal/config"
	"github.com/iliyamo/library-lending/internal/handler"
	"github.com/iliyamo/library-lending/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring probe this endpoint.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the staff authentication routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts a refresh_token body or an Authorization header, so
	// it stays outside the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("LIBRARIAN", "ADMIN"))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated catalog browse endpoints.  A
// Redis response cache fronts these reads when a client is available;
// guests can search the catalog without a staff session.
func RegisterPublic(e *echo.Echo, b *handler.BookHandler, rdb *redis.Client) {
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	// Catalog list with optional ?q= filter over title/author/category.
	e.GET("/v1/books", b.List, limit, cache)
	e.GET("/v1/books/:id", b.Get, limit, cache)
}

// RegisterLending registers the state-changing circulation desk routes.
// Every route requires a staff session; the token bucket protects the
// database from bursty desk clients.
func RegisterLending(e *echo.Echo, l *handler.LendingHandler, b *handler.BookHandler, m *handler.MemberHandler, f *handler.FineHandler, jwtSecret string, rdb *redis.Client) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("LIBRARIAN", "ADMIN"))
	g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	// Lending engine operations.
	g.POST("/loans", l.Borrow)
	g.POST("/loans/:id/return", l.Return)
	g.GET("/loans/overdue", l.ListOverdue)
	g.POST("/reservations", l.Reserve)
	g.GET("/fines", f.List)
	g.POST("/fines/:id/pay", l.PayFine)
	g.PUT("/books/:id/maintenance", l.SetMaintenance)

	// Catalog management.
	g.POST("/books", b.Create)
	g.PUT("/books/:id", b.Update)
	g.DELETE("/books/:id", b.Delete)
	g.GET("/books/:id/reservations", b.Reservations)

	// Member registry.
	g.POST("/members", m.Create)
	g.GET("/members", m.List)
	g.GET("/members/:id", m.Get)
	g.PUT("/members/:id", m.Update)
	g.DELETE("/members/:id", m.Delete)
	g.GET("/members/:id/loans", m.Loans)
	g.GET("/members/:id/fines", m.Fines)
}
