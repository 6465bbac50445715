package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/internal/middleware"
	"github.com/Skotchmaster/accounts/internal/roles"
)

// Pinger reports whether the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	AuthHandler *AuthHTTP
	UserHandler *UserHTTP
	Auth        *middleware.Auth
	DB          Pinger

	Production bool
	RateLimit  config.RateLimit
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = NewErrorHandler(d.Production)
	e.Validator = NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.DB.Ping(ctx); err != nil {
			return apperr.Wrap(apperr.ErrUnavailable, "database unavailable", err)
		}
		return c.NoContent(http.StatusOK)
	})

	authGroup := e.Group("/auth")
	if d.Production {
		authGroup.Use(authRateLimiter(d.RateLimit))
	}
	authGroup.POST("/register", d.AuthHandler.Register)
	authGroup.POST("/login", d.AuthHandler.Login)
	authGroup.POST("/logout", d.AuthHandler.Logout)
	authGroup.POST("/refresh-tokens", d.AuthHandler.RefreshTokens)
	authGroup.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	authGroup.POST("/reset-password", d.AuthHandler.ResetPassword)
	authGroup.POST("/send-verification-email", d.AuthHandler.SendVerificationEmail, d.Auth.Require())
	authGroup.POST("/verify-email", d.AuthHandler.VerifyEmail)

	users := e.Group("/users")
	users.POST("", d.UserHandler.CreateUser, d.Auth.Require(roles.ManageUsers))
	users.GET("", d.UserHandler.GetUsers, d.Auth.Require(roles.GetUsers))
	users.GET("/search", d.UserHandler.SearchUsers, d.Auth.Require(roles.GetUsers))
	users.GET("/:userId", d.UserHandler.GetUser, d.Auth.Require(roles.GetUsers))
	users.PATCH("/:userId", d.UserHandler.UpdateUser, d.Auth.Require(roles.ManageUsers))
	users.DELETE("/:userId", d.UserHandler.DeleteUser, d.Auth.Require(roles.ManageUsers))
}

func authRateLimiter(cfg config.RateLimit) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.Rate),
		Burst:     cfg.Burst,
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})
}
