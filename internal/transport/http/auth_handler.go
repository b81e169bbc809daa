package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dosecerta/dosecerta-backend/internal/domain"
	"github.com/dosecerta/dosecerta-backend/internal/repository/ports"
	"github.com/dosecerta/dosecerta-backend/internal/service"
	"github.com/dosecerta/dosecerta-backend/internal/transport/mail"
	"github.com/dosecerta/dosecerta-backend/internal/util"
)

type AuthHandler struct {
	auth *service.AuthService
}

func RegisterAuth(e *echo.Echo, auth *service.AuthService, limiter ports.RateLimiter) {
	handler := &AuthHandler{auth: auth}

	group := e.Group("/api/v1/auth")
	group.POST("/register", handler.register)
	group.POST("/verify", handler.verify)
	group.POST("/login", handler.login)
	group.POST("/google", handler.loginWithGoogle)
	group.POST("/forgot-password", handler.forgotPassword)
	group.POST("/check-email", handler.checkEmail, RateLimit(limiter, "check-email"))

	group.POST("/logout", handler.logout, RequireAuth(auth))
}

func (h *AuthHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	result, err := h.auth.Register(c.Request().Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, util.Error("a valid email address is required"))
		case errors.Is(err, service.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, util.Error("password must have at least 8 characters including upper case, lower case and a digit"))
		case errors.Is(err, service.ErrEmailTaken):
			return c.JSON(http.StatusConflict, util.Error("an account with this email already exists"))
		case errors.Is(err, mail.ErrAllStrategiesFailed):
			return c.JSON(http.StatusServiceUnavailable, util.Error("could not send the verification email, try again later"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not start registration"))
		}
	}

	response := RegisterResponse{
		Success:   true,
		Message:   "verification email sent",
		ExpiresAt: result.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if result.Delivery != nil {
		response.Delivery = &DeliveryInfo{
			Method:   result.Delivery.MethodUsed,
			Degraded: result.Delivery.Degraded,
		}
	}
	return c.JSON(http.StatusAccepted, response)
}

func (h *AuthHandler) verify(c echo.Context) error {
	var req VerifyTokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.Token) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("token is required"))
	}

	purpose := domain.TokenPurpose(req.Purpose)
	if req.Purpose == "" {
		// Older clients only call verify for signup confirmation.
		purpose = domain.PurposeEmailVerification
	}
	if !purpose.Valid() {
		return c.JSON(http.StatusBadRequest, util.Error("unknown token purpose"))
	}

	result, err := h.auth.VerifyToken(c.Request().Context(), strings.TrimSpace(req.Token), purpose, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			return c.JSON(http.StatusNotFound, util.Error("token not found"))
		case errors.Is(err, service.ErrTokenExpired):
			return c.JSON(http.StatusGone, util.Error("token expired, request a new one"))
		case errors.Is(err, service.ErrTokenAlreadyConsumed):
			return c.JSON(http.StatusConflict, util.Error("token already used"))
		case errors.Is(err, service.ErrPasswordRequired):
			return c.JSON(http.StatusBadRequest, util.Error("new_password is required to reset the password"))
		case errors.Is(err, service.ErrWeakPassword):
			return c.JSON(http.StatusBadRequest, util.Error("password must have at least 8 characters including upper case, lower case and a digit"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not verify token"))
		}
	}

	message := "email confirmed"
	if purpose == domain.PurposePasswordReset {
		message = "password updated"
	}
	return c.JSON(http.StatusOK, util.Envelope{
		"success": true,
		"message": message,
		"email":   result.Email,
	})
}

func (h *AuthHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	auth, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
		case errors.Is(err, service.ErrEmailNotConfirmed):
			return c.JSON(http.StatusForbidden, util.Error("confirm your email before logging in"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not log in"))
		}
	}

	return c.JSON(http.StatusOK, AuthTokenResponse{
		Token:     auth.Token,
		ExpiresAt: auth.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toAuthUser(auth.User),
	})
}

func (h *AuthHandler) loginWithGoogle(c echo.Context) error {
	var req GoogleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if strings.TrimSpace(req.IDToken) == "" {
		return c.JSON(http.StatusBadRequest, util.Error("id_token is required"))
	}

	auth, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		if errors.Is(err, service.ErrGoogleToken) {
			return c.JSON(http.StatusUnauthorized, util.Error("invalid google token"))
		}
		return c.JSON(http.StatusInternalServerError, util.Error("could not log in"))
	}

	return c.JSON(http.StatusOK, AuthTokenResponse{
		Token:     auth.Token,
		ExpiresAt: auth.ExpiresAt.UTC().Format(time.RFC3339),
		User:      toAuthUser(auth.User),
	})
}

func (h *AuthHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	err := h.auth.ForgotPassword(c.Request().Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidEmail):
			return c.JSON(http.StatusBadRequest, util.Error("a valid email address is required"))
		case errors.Is(err, mail.ErrAllStrategiesFailed):
			return c.JSON(http.StatusServiceUnavailable, util.Error("could not send the reset email, try again later"))
		default:
			return c.JSON(http.StatusInternalServerError, util.Error("could not process the request"))
		}
	}

	// Same answer whether or not the account exists.
	return c.JSON(http.StatusOK, util.Message("if the email is registered, a reset link has been sent"))
}

// checkEmail answers with a fixed message regardless of whether the address is
// registered; combined with the rate limit it gives the frontend a retry
// signal without becoming an account oracle.
func (h *AuthHandler) checkEmail(c echo.Context) error {
	var req CheckEmailRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	if err := util.ValidateEmail(util.NormalizeEmail(req.Email)); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("a valid email address is required"))
	}
	return c.JSON(http.StatusOK, util.Message("if the email is registered, instructions have been sent"))
}

func (h *AuthHandler) logout(c echo.Context) error {
	token, ok := CurrentToken(c)
	if !ok || token == "" {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		return c.JSON(http.StatusInternalServerError, util.Error("could not log out"))
	}
	return c.JSON(http.StatusOK, util.Message("logged out"))
}
