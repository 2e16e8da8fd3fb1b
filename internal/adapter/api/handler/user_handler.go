package handler

import (
	"github.com/labstack/echo/v4"

	"pingline/internal/usecase"
	"pingline/pkg/errors"
	"pingline/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type updateProfileRequest struct {
	Name   string `json:"name" validate:"omitempty,min=2"`
	Avatar string `json:"avatar" validate:"omitempty,url"`
	Status string `json:"status" validate:"omitempty,max=120"`
}

// ListUsers returns everyone except the caller, for the contact picker.
func (h *UserHandler) ListUsers(c echo.Context) error {
	uid := c.Get("uid").(string)

	users, err := h.userUseCase.ListUsers(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, toUserResponse(user))
	}

	return response.Success(c, out)
}

// Me resolves the caller's own profile from the verified token.
func (h *UserHandler) Me(c echo.Context) error {
	uid := c.Get("uid").(string)

	user, err := h.userUseCase.GetUserProfile(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, toUserResponse(user))
}

func (h *UserHandler) GetUser(c echo.Context) error {
	user, err := h.userUseCase.GetUserProfile(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, toUserResponse(user))
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	uid := c.Get("uid").(string)

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	user, err := h.userUseCase.UpdateProfile(c.Request().Context(), uid, usecase.UpdateProfileInput{
		Name:      req.Name,
		AvatarURL: req.Avatar,
		Status:    req.Status,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, toUserResponse(user))
}
