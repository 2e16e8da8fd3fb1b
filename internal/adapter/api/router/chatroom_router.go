package router

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/adapter/api/handler"
	"pingline/internal/adapter/api/middleware"
)

func SetupChatroomRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatroomHandler := handler.GetChatroomHandler()
	messageHandler := handler.GetMessageHandler()

	rooms := e.Group("/v1/chatrooms")
	rooms.Use(authMiddleware.Authenticate)

	// Room management
	rooms.POST("", chatroomHandler.CreateChatroom)      // POST /v1/chatrooms - open room with a user
	rooms.GET("", chatroomHandler.ListChatrooms)        // GET /v1/chatrooms - caller's rooms
	rooms.GET("/:id", chatroomHandler.GetChatroom)      // GET /v1/chatrooms/:id
	rooms.PUT("/:id/open", chatroomHandler.ResetUnread) // PUT /v1/chatrooms/:id/open - reset unread counter

	// Messages
	rooms.GET("/:id/messages", messageHandler.ListMessages) // GET /v1/chatrooms/:id/messages?before=<id>
	rooms.POST("/:id/messages", messageHandler.SendMessage) // POST /v1/chatrooms/:id/messages
	rooms.PUT("/:id/read", messageHandler.MarkRead)         // PUT /v1/chatrooms/:id/read - mark visible as read
}
