package router

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/middleware"
	"pingline/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, ipLimiter *ratelimit.RateLimiter) {
	SetupAuthRouter(e, authMiddleware, ipLimiter)
	SetupUserRouter(e, authMiddleware)
	SetupChatroomRouter(e, authMiddleware)
	SetupFileRouter(e, authMiddleware)
	SetupPushRouter(e, authMiddleware)
	SetupHealthRouter(e)
}
