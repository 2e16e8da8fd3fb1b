package handler

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/usecase"
	"pingline/pkg/errors"
	"pingline/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"omitempty,max=4000"`
	Image   string `json:"image" validate:"omitempty,url"`
}

// ListMessages returns one page of the room's history, newest page first.
// Passing ?before=<message_id> pages backward from that message.
func (h *MessageHandler) ListMessages(c echo.Context) error {
	uid := c.Get("uid").(string)
	roomID := c.Param("id")

	var page *usecase.MessagePage
	var err error

	if before := c.QueryParam("before"); before != "" {
		page, err = h.messageUseCase.ListBefore(c.Request().Context(), roomID, uid, before)
	} else {
		page, err = h.messageUseCase.ListLatest(c.Request().Context(), roomID, uid)
	}
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, page)
}

func (h *MessageHandler) SendMessage(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.SendMessage(c.Request().Context(), uid, usecase.SendMessageInput{
		RoomID:  c.Param("id"),
		Content: req.Content,
		Image:   req.Image,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkRead marks everything visible from the other participant as read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	uid := c.Get("uid").(string)

	marked, err := h.messageUseCase.MarkRoomRead(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"marked": marked})
}
