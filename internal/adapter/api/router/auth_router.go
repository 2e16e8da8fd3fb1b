package router

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/handler"
	"pingline/internal/adapter/api/middleware"
	"pingline/internal/infrastructure/ratelimit"
)

func SetupAuthRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, ipLimiter *ratelimit.RateLimiter) {
	authHandler := handler.GetAuthHandler()

	// Public routes, throttled per IP against credential stuffing
	authLimit := middleware.RateLimitByIP(ipLimiter, "auth")
	e.POST("/v1/auth/register", authHandler.Register, authLimit)
	e.POST("/v1/auth/login", authHandler.Login, authLimit)
	e.POST("/v1/auth/refresh", authHandler.RefreshToken, authLimit)

	// Protected routes
	protected := e.Group("/v1/auth")
	protected.Use(authMiddleware.Authenticate)

	protected.POST("/logout", authHandler.Logout)
	protected.GET("/me", authHandler.Me)
}
