package models

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Skotchmaster/accounts/pkg/hash"
)

func TestMain(m *testing.M) {
	hash.Cost = bcrypt.MinCost
	os.Exit(m.Run())
}

func TestNewUser_NormalisesAndHashes(t *testing.T) {
	u, err := NewUser("  Alice ", "  Alice@Example.COM ", "password1", "")
	require.NoError(t, err)

	assert.Equal(t, "Alice", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsEmailVerified)
	assert.NotEqual(t, "password1", u.Password)
	assert.True(t, hash.IsHash(u.Password))
	assert.True(t, u.IsPasswordMatch("password1"))
	assert.False(t, u.IsPasswordMatch("password2"))
}

func TestNewUser_Rejects(t *testing.T) {
	tests := []struct {
		name, userName, email, password, role string
		want                                  error
	}{
		{"empty name", " ", "a@example.com", "password1", "", ErrEmptyName},
		{"bad email", "A", "not-an-email", "password1", "", ErrInvalidEmail},
		{"short password", "A", "a@example.com", "pass1", "", ErrInvalidPassword},
		{"no digit", "A", "a@example.com", "password", "", ErrInvalidPassword},
		{"no letter", "A", "a@example.com", "12345678", "", ErrInvalidPassword},
		{"bad role", "A", "a@example.com", "password1", "root", ErrInvalidRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.userName, tt.email, tt.password, tt.role)
			assert.Nil(t, u)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUser_JSONHasNoPassword(t *testing.T) {
	u, err := NewUser("Alice", "alice@example.com", "password1", RoleAdmin)
	require.NoError(t, err)

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.NotContains(t, m, "password")
	assert.NotContains(t, m, "Password")
	assert.NotContains(t, m, "UpdatedAt")
	assert.NotContains(t, m, "CreatedAt")
	assert.Len(t, m, 5)
	assert.Equal(t, u.ID.String(), m["id"])
	assert.Equal(t, "admin", m["role"])
	assert.Equal(t, false, m["isEmailVerified"])
}
