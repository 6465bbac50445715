package httpserver

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/internal/transport"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

type UserHTTP struct {
	Svc *service.UserService
}

func userIDParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		return uuid.Nil, apperr.Wrap(apperr.ErrValidation, `"userId" must be a valid id`, err)
	}
	return id, nil
}

func (h *UserHTTP) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.create")

	var req transport.CreateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("create_user_error", "status", 400, "error", err)
		return err
	}

	user, err := h.Svc.CreateUser(ctx, service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHTTP) GetUsers(c echo.Context) error {
	var q transport.GetUsersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := h.Svc.QueryUsers(c.Request().Context(),
		repo.UserFilter{Name: q.Name, Role: q.Role},
		repo.QueryOptions{SortBy: q.SortBy, Limit: q.Limit, Page: q.Page},
	)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UserHTTP) SearchUsers(c echo.Context) error {
	var q transport.SearchUsersQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	page, err := h.Svc.SearchUsers(c.Request().Context(), q.Q, q.Page, q.Limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (h *UserHTTP) GetUser(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	user, err := h.Svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) UpdateUser(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}

	var req transport.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Empty() {
		return apperr.Validation("at least one of name, email, password is required")
	}

	user, err := h.Svc.UpdateUser(c.Request().Context(), id, service.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) DeleteUser(c echo.Context) error {
	id, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := h.Svc.DeleteUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
