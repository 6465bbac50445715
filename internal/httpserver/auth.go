package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/middleware"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/internal/transport"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

// bindAndValidate is shared by every handler with a request body.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "invalid body", err)
	}
	return c.Validate(req)
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.register")

	var req transport.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return err
	}

	user, tokens, err := h.Svc.Register(ctx, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, echo.Map{"user": user, "tokens": tokens})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return err
	}

	user, tokens, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{"user": user, "tokens": tokens})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	var req transport.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.Svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) RefreshTokens(c echo.Context) error {
	var req transport.RefreshTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	tokens, err := h.Svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

func (h *AuthHTTP) ForgotPassword(c echo.Context) error {
	var req transport.ForgotPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.Svc.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) ResetPassword(c echo.Context) error {
	req := transport.ResetPasswordRequest{Token: c.QueryParam("token")}
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.Svc.ResetPassword(c.Request().Context(), req.Token, req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) SendVerificationEmail(c echo.Context) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return apperr.New(apperr.ErrUnauthorized, "Please authenticate")
	}
	if err := h.Svc.SendVerificationEmail(c.Request().Context(), user); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) VerifyEmail(c echo.Context) error {
	req := transport.VerifyEmailRequest{Token: c.QueryParam("token")}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.Svc.VerifyEmail(c.Request().Context(), req.Token); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
