package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/roles"
	"github.com/Skotchmaster/accounts/pkg/db"
	"github.com/Skotchmaster/accounts/pkg/hash"
	"github.com/Skotchmaster/accounts/pkg/tokens"
)

var secret = []byte("test-jwt-secret")

func TestMain(m *testing.M) {
	hash.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newTestAuth(t *testing.T) (*Auth, *models.User, *models.User) {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })
	r := repo.New(gdb)

	user, err := models.NewUser("Alice", "alice@example.com", "password1", models.RoleUser)
	require.NoError(t, err)
	require.NoError(t, r.CreateUser(context.Background(), user))

	admin, err := models.NewUser("Root", "root@example.com", "password1", models.RoleAdmin)
	require.NoError(t, err)
	require.NoError(t, r.CreateUser(context.Background(), admin))

	return NewAuth(r, secret), user, admin
}

func bearer(t *testing.T, u *models.User, kind models.TokenType, exp time.Time) string {
	t.Helper()

	raw, err := tokens.Sign(secret, u.ID.String(), string(kind), time.Now(), exp)
	require.NoError(t, err)
	return "Bearer " + raw
}

func run(a *Auth, authHeader, userIDParam string, required ...roles.Right) (bool, *models.User, error) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userIDParam != "" {
		c.SetParamNames("userId")
		c.SetParamValues(userIDParam)
	}

	called := false
	var seen *models.User
	h := a.Require(required...)(func(c echo.Context) error {
		called = true
		seen, _ = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	})
	err := h(c)
	return called, seen, err
}

func TestRequire_Authentication(t *testing.T) {
	a, user, _ := newTestAuth(t)
	hour := time.Now().Add(time.Hour)

	ghost, err := models.NewUser("Ghost", "ghost@example.com", "password1", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer "},
		{"garbage", "Bearer garbage"},
		{"refresh token", bearer(t, user, models.TokenRefresh, hour)},
		{"expired access", bearer(t, user, models.TokenAccess, time.Now().Add(-time.Minute))},
		{"unknown user", bearer(t, ghost, models.TokenAccess, hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, _, err := run(a, tt.header, "")
			require.Error(t, err)
			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, apperr.Status(err))
			assert.Equal(t, "Please authenticate", err.(*apperr.Error).Message)
		})
	}
}

func TestRequire_Rights(t *testing.T) {
	a, user, admin := newTestAuth(t)
	hour := time.Now().Add(time.Hour)
	userBearer := bearer(t, user, models.TokenAccess, hour)
	adminBearer := bearer(t, admin, models.TokenAccess, hour)

	tests := []struct {
		name     string
		header   string
		param    string
		required []roles.Right
		wantErr  bool
	}{
		{"no rights required", userBearer, "", nil, false},
		{"user lacks getUsers", userBearer, "", []roles.Right{roles.GetUsers}, true},
		{"user on other user", userBearer, admin.ID.String(), []roles.Right{roles.GetUsers}, true},
		{"user on self", userBearer, user.ID.String(), []roles.Right{roles.ManageUsers}, false},
		{"admin needs both", adminBearer, "", []roles.Right{roles.GetUsers, roles.ManageUsers}, false},
		{"admin on other user", adminBearer, user.ID.String(), []roles.Right{roles.ManageUsers}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called, seen, err := run(a, tt.header, tt.param, tt.required...)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, called)
				assert.Equal(t, http.StatusForbidden, apperr.Status(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, called)
			require.NotNil(t, seen)
		})
	}
}

func TestRequire_SchemeCaseInsensitive(t *testing.T) {
	a, user, _ := newTestAuth(t)
	raw := strings.TrimPrefix(bearer(t, user, models.TokenAccess, time.Now().Add(time.Hour)), "Bearer ")

	for _, header := range []string{"bearer " + raw, "BEARER " + raw, "  Bearer   " + raw} {
		called, seen, err := run(a, header, "")
		require.NoError(t, err, header)
		assert.True(t, called)
		assert.Equal(t, user.ID, seen.ID)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer", "", false},
		{"Bearer    ", "", false},
		{"Bearerabc", "", false},
		{"Basic abc", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
