package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dosecerta/dosecerta-backend/internal/util"
)

// NewRouter builds the echo instance with the middleware every route shares.
// Feature routes are attached by the Register* functions.
func NewRouter(allowOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	registerLogging(e)
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.CORSWithConfig(corsConfig(allowOrigins)))

	e.GET("/health", health)
	return e
}

// corsConfig allows credentials only for an explicit origin list; browsers
// reject the wildcard-plus-credentials combination.
func corsConfig(allowOrigins []string) middleware.CORSConfig {
	allowCredentials := true
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}
	return middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderOrigin,
			echo.HeaderXRequestedWith,
		},
		AllowCredentials: allowCredentials,
	}
}

func health(c echo.Context) error {
	return c.JSON(http.StatusOK, util.Envelope{
		"status":  "ok",
		"service": "dosecerta-api",
	})
}
