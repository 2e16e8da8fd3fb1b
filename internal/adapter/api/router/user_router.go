package router

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/handler"
	"pingline/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()

	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("", userHandler.ListUsers)        // GET /v1/users - browse users to chat with
	users.GET("/me", userHandler.Me)            // GET /v1/users/me - own profile
	users.GET("/:id", userHandler.GetUser)      // GET /v1/users/:id - single profile
	users.PUT("/me", userHandler.UpdateProfile) // PUT /v1/users/me - edit own profile
}
