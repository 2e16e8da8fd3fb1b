package router

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/handler"
	"pingline/internal/adapter/api/middleware"
)

func SetupPushRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	pushHandler := handler.GetPushHandler()

	push := e.Group("/v1/push")
	push.Use(authMiddleware.Authenticate)

	push.GET("/key", pushHandler.GetVAPIDKey)      // GET /v1/push/key - VAPID public key
	push.POST("/subscribe", pushHandler.Subscribe) // POST /v1/push/subscribe
	push.POST("/unsubscribe", pushHandler.Unsubscribe)
}
