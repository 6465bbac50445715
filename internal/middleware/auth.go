package middleware

import (
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/roles"
	"github.com/Skotchmaster/accounts/pkg/logging"
	"github.com/Skotchmaster/accounts/pkg/tokens"
)

const (
	userKey     = "user"
	targetParam = "userId"
)

type Auth struct {
	Repo      *repo.GormRepo
	JWTSecret []byte
}

func NewAuth(r *repo.GormRepo, secret []byte) *Auth {
	return &Auth{Repo: r, JWTSecret: secret}
}

// Require authenticates the caller from a bearer access token and then
// demands every right in required. A caller addressing their own :userId
// skips the rights check.
func (a *Auth) Require(required ...roles.Right) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("mw", "auth")

			user, err := a.authenticate(c)
			if err != nil {
				l.Warn("auth_failed", "status", apperr.Status(err), "error", err)
				return err
			}
			c.Set(userKey, user)

			if len(required) > 0 && !roles.HasAll(user.Role, required...) && c.Param(targetParam) != user.ID.String() {
				l.Warn("auth_failed", "status", 403, "reason", "missing rights", "user_id", user.ID.String(), "role", user.Role)
				return apperr.New(apperr.ErrForbidden, "Forbidden")
			}
			return next(c)
		}
	}
}

func (a *Auth) authenticate(c echo.Context) (*models.User, error) {
	const msg = "Please authenticate"

	raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
	if !ok {
		return nil, apperr.New(apperr.ErrUnauthorized, msg)
	}

	claims, err := tokens.ClaimsFromToken(raw, a.JWTSecret)
	if err != nil {
		return nil, apperr.Collapse(msg, err)
	}
	if claims.Type != string(models.TokenAccess) {
		return nil, apperr.New(apperr.ErrUnauthorized, msg)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.Collapse(msg, err)
	}

	user, err := a.Repo.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return nil, apperr.Collapse(msg, err)
	}
	return user, nil
}

// bearerToken extracts the credentials of a Bearer authorization header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// CurrentUser returns the user resolved by Require.
func CurrentUser(c echo.Context) (*models.User, bool) {
	u, ok := c.Get(userKey).(*models.User)
	return u, ok
}
