package handler

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/usecase"
	"pingline/pkg/errors"
	"pingline/pkg/response"
)

type ChatroomHandler struct {
	chatroomUseCase *usecase.ChatroomUseCase
}

func NewChatroomHandler(chatroomUseCase *usecase.ChatroomUseCase) *ChatroomHandler {
	return &ChatroomHandler{
		chatroomUseCase: chatroomUseCase,
	}
}

type createChatroomRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// CreateChatroom opens the room with another user, creating it on first
// contact. Reopening an existing pair returns the same room.
func (h *ChatroomHandler) CreateChatroom(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req createChatroomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	room, err := h.chatroomUseCase.CreateChatroom(c.Request().Context(), uid, req.UserID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, room)
}

func (h *ChatroomHandler) ListChatrooms(c echo.Context) error {
	uid := c.Get("uid").(string)

	rooms, err := h.chatroomUseCase.ListChatrooms(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, rooms)
}

func (h *ChatroomHandler) GetChatroom(c echo.Context) error {
	uid := c.Get("uid").(string)

	room, err := h.chatroomUseCase.GetChatroom(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

// ResetUnread zeroes the caller's unread counter for the room. Clients call
// this when opening a room over plain HTTP instead of the WebSocket session.
func (h *ChatroomHandler) ResetUnread(c echo.Context) error {
	uid := c.Get("uid").(string)

	if err := h.chatroomUseCase.ResetUnread(c.Request().Context(), c.Param("id"), uid); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "ok"})
}
