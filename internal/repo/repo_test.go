package repo

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/pkg/db"
	"github.com/Skotchmaster/accounts/pkg/hash"
)

func TestMain(m *testing.M) {
	hash.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	gdb, err := db.Open(context.Background(), db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	return New(gdb)
}

func mustUser(t *testing.T, r *GormRepo, name, email, role string) *models.User {
	t.Helper()

	u, err := models.NewUser(name, email, "password1", role)
	require.NoError(t, err)
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	mustUser(t, r, "Alice", "alice@example.com", "")

	dup, err := models.NewUser("Other", "ALICE@example.com", "password1", "")
	require.NoError(t, err)
	assert.ErrorIs(t, r.CreateUser(ctx, dup), ErrEmailTaken)
}

func TestIsEmailTaken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	taken, err := r.IsEmailTaken(ctx, " Alice@Example.com", uuid.Nil)
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = r.IsEmailTaken(ctx, "alice@example.com", alice.ID)
	require.NoError(t, err)
	assert.False(t, taken)

	taken, err = r.IsEmailTaken(ctx, "bob@example.com", uuid.Nil)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestGetUser(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	byID, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Email, byID.Email)
	assert.True(t, byID.IsPasswordMatch("password1"))

	byEmail, err := r.GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	_, err = r.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = r.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestQueryUsers_FilterSortPaginate(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustUser(t, r, fmt.Sprintf("user%d", i), fmt.Sprintf("u%d@example.com", i), models.RoleUser)
	}
	mustUser(t, r, "boss", "boss@example.com", models.RoleAdmin)

	page, err := r.QueryUsers(ctx, UserFilter{Role: models.RoleUser}, QueryOptions{SortBy: "name:desc", Limit: 2, Page: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.TotalResults)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Page)
	require.Len(t, page.Results, 2)
	assert.Equal(t, "user4", page.Results[0].Name)
	assert.Equal(t, "user3", page.Results[1].Name)

	last, err := r.QueryUsers(ctx, UserFilter{Role: models.RoleUser}, QueryOptions{SortBy: "name", Limit: 2, Page: 3})
	require.NoError(t, err)
	require.Len(t, last.Results, 1)
	assert.Equal(t, "user4", last.Results[0].Name)

	byName, err := r.QueryUsers(ctx, UserFilter{Name: "boss"}, QueryOptions{})
	require.NoError(t, err)
	require.Len(t, byName.Results, 1)
	assert.Equal(t, models.RoleAdmin, byName.Results[0].Role)
	assert.Equal(t, 10, byName.Limit)
}

func TestParseSort(t *testing.T) {
	cols := ParseSort("name:desc, createdAt ,password:asc")
	require.Len(t, cols, 2)
	assert.Equal(t, "name", cols[0].Column.Name)
	assert.True(t, cols[0].Desc)
	assert.Equal(t, "created_at", cols[1].Column.Name)
	assert.False(t, cols[1].Desc)

	def := ParseSort("")
	require.Len(t, def, 1)
	assert.Equal(t, "created_at", def[0].Column.Name)
}

func TestUpdateUser(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")
	mustUser(t, r, "Bob", "bob@example.com", "")

	alice.Name = "Alice B"
	alice.Email = "Alice.B@example.com"
	require.NoError(t, r.UpdateUser(ctx, alice))

	got, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice B", got.Name)
	assert.Equal(t, "alice.b@example.com", got.Email)

	alice.Email = "bob@example.com"
	assert.ErrorIs(t, r.UpdateUser(ctx, alice), ErrEmailTaken)

	ghost := &models.User{ID: uuid.New(), Name: "x", Email: "x@example.com", Role: models.RoleUser}
	assert.ErrorIs(t, r.UpdateUser(ctx, ghost), gorm.ErrRecordNotFound)
}

func TestUpdatePassword_Rehashes(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	require.NoError(t, r.UpdatePassword(ctx, alice.ID, "newpassword2"))

	got, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "newpassword2", got.Password)
	assert.True(t, got.IsPasswordMatch("newpassword2"))
	assert.False(t, got.IsPasswordMatch("password1"))

	assert.ErrorIs(t, r.UpdatePassword(ctx, alice.ID, "short"), models.ErrInvalidPassword)
	assert.ErrorIs(t, r.UpdatePassword(ctx, uuid.New(), "password3"), gorm.ErrRecordNotFound)
}

func TestMarkEmailVerified(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	require.NoError(t, r.MarkEmailVerified(ctx, alice.ID))
	got, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, got.IsEmailVerified)

	assert.ErrorIs(t, r.MarkEmailVerified(ctx, uuid.New()), gorm.ErrRecordNotFound)
}

func TestDeleteUser_RemovesTokens(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	exp := time.Now().Add(time.Hour).UTC()
	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("a"), alice.ID, models.TokenRefresh, exp, false)))
	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("b"), alice.ID, models.TokenResetPassword, exp, false)))

	require.NoError(t, r.DeleteUser(ctx, alice.ID))

	_, err := r.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	n, err := r.CountTokens(ctx, alice.ID, models.TokenRefresh)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, r.DeleteUser(ctx, alice.ID), gorm.ErrRecordNotFound)
}
