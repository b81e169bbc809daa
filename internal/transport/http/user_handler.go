package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
	"github.com/dosecerta/dosecerta-backend/internal/service"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

type UserHandler struct {
	users   ports.UserRepository
	storage *service.StorageService
}

func RegisterUsers(e *echo.Echo, auth *service.AuthService, users ports.UserRepository, storage *service.StorageService) {
	handler := &UserHandler{users: users, storage: storage}

	me := e.Group("/api/v1/users/me", RequireAuth(auth))
	me.GET("", handler.getProfile)
	me.PUT("", handler.updateProfile)
	me.PUT("/image", handler.updateImage)
}

func (h *UserHandler) getProfile(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(user)})
}

func (h *UserHandler) updateProfile(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if req.FullName != nil {
		trimmed := strings.TrimSpace(*req.FullName)
		if trimmed == "" {
			return c.JSON(http.StatusBadRequest, util.Error("full_name cannot be empty"))
		}
		req.FullName = &trimmed
	}

	updated, err := h.users.UpdateProfile(c.Request().Context(), user.ID, req.FullName, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not update profile"))
	}
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(updated)})
}

func (h *UserHandler) updateImage(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok || user == nil {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("image file is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("could not read the uploaded file"))
	}
	defer file.Close()

	url, err := h.storage.UploadAvatar(c.Request().Context(), user.ID, service.AvatarUpload{
		Reader:      file,
		Size:        fileHeader.Size,
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageTooLarge):
			return c.JSON(http.StatusRequestEntityTooLarge, util.Error("image exceeds the maximum allowed size"))
		case errors.Is(err, service.ErrUnsupportedImage):
			return c.JSON(http.StatusUnsupportedMediaType, util.Error("only jpeg, png and webp images are accepted"))
		default:
			return c.JSON(http.StatusServiceUnavailable, util.Error("could not store the image, try again later"))
		}
	}

	updated, err := h.users.UpdateProfile(c.Request().Context(), user.ID, nil, &url)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not update profile"))
	}
	return c.JSON(http.StatusOK, AuthUserResponse{User: toAuthUser(updated)})
}
