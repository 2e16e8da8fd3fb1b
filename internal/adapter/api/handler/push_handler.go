package handler

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/domain/entity"
	"pingline/internal/domain/repository"
	"pingline/pkg/errors"
	"pingline/pkg/response"
)

// PushHandler manages browser push subscriptions: clients register the
// endpoint their service worker obtained, and fetch the VAPID public key
// they need to obtain one.
type PushHandler struct {
	subRepo        repository.PushSubscriptionRepository
	vapidPublicKey string
}

var pushHandler *PushHandler

func NewPushHandler(subRepo repository.PushSubscriptionRepository, vapidPublicKey string) *PushHandler {
	return &PushHandler{
		subRepo:        subRepo,
		vapidPublicKey: vapidPublicKey,
	}
}

func SetupPushHandler(subRepo repository.PushSubscriptionRepository, vapidPublicKey string) {
	pushHandler = NewPushHandler(subRepo, vapidPublicKey)
}

func GetPushHandler() *PushHandler {
	return pushHandler
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	Keys     struct {
		P256dh string `json:"p256dh" validate:"required"`
		Auth   string `json:"auth" validate:"required"`
	} `json:"keys"`
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
}

func (h *PushHandler) GetVAPIDKey(c echo.Context) error {
	return response.Success(c, map[string]string{"public_key": h.vapidPublicKey})
}

func (h *PushHandler) Subscribe(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	sub := &entity.PushSubscription{
		UserID:   uid,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}

	if err := h.subRepo.Save(c.Request().Context(), sub); err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"status": "subscribed"})
}

func (h *PushHandler) Unsubscribe(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req unsubscribeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.subRepo.DeleteByEndpoint(c.Request().Context(), uid, req.Endpoint); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "unsubscribed"})
}
