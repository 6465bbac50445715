package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/pkg/hash"
)

func TestFindToken(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")
	exp := time.Now().Add(time.Hour).UTC()

	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("live"), alice.ID, models.TokenRefresh, exp, false)))
	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("dead"), alice.ID, models.TokenRefresh, exp, true)))

	got, err := r.FindToken(ctx, "live", models.TokenRefresh, uuid.Nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, hash.Sha256Hex("live"), got.Token)

	_, err = r.FindToken(ctx, "live", models.TokenRefresh, alice.ID)
	require.NoError(t, err)

	tests := []struct {
		name   string
		raw    string
		kind   models.TokenType
		userID uuid.UUID
	}{
		{"blacklisted", "dead", models.TokenRefresh, uuid.Nil},
		{"wrong kind", "live", models.TokenResetPassword, uuid.Nil},
		{"wrong owner", "live", models.TokenRefresh, uuid.New()},
		{"unknown", "other", models.TokenRefresh, uuid.Nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.FindToken(ctx, tt.raw, tt.kind, tt.userID)
			assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		})
	}
}

func TestConsumeToken_OnlyOnce(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	tok := models.NewToken(hash.Sha256Hex("once"), alice.ID, models.TokenRefresh, time.Now().Add(time.Hour).UTC(), false)
	require.NoError(t, r.SaveToken(ctx, tok))

	require.NoError(t, r.ConsumeToken(ctx, tok.ID))
	assert.ErrorIs(t, r.ConsumeToken(ctx, tok.ID), gorm.ErrRecordNotFound)
}

func TestDeleteTokens_ByKind(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")
	exp := time.Now().Add(time.Hour).UTC()

	for _, raw := range []string{"r1", "r2"} {
		require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex(raw), alice.ID, models.TokenResetPassword, exp, false)))
	}
	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("keep"), alice.ID, models.TokenRefresh, exp, false)))

	n, err := r.DeleteTokens(ctx, alice.ID, models.TokenResetPassword)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := r.CountTokens(ctx, alice.ID, models.TokenRefresh)
	require.NoError(t, err)
	assert.EqualValues(t, 1, left)
}

func TestDeleteExpiredTokens(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")
	now := time.Now().UTC()

	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("old"), alice.ID, models.TokenRefresh, now.Add(-time.Minute), false)))
	require.NoError(t, r.SaveToken(ctx, models.NewToken(hash.Sha256Hex("new"), alice.ID, models.TokenRefresh, now.Add(time.Hour), false)))

	n, err := r.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.FindToken(ctx, "new", models.TokenRefresh, uuid.Nil)
	assert.NoError(t, err)
}

func TestTransaction_RollsBack(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	alice := mustUser(t, r, "Alice", "alice@example.com", "")

	boom := errors.New("boom")
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		require.NoError(t, tx.MarkEmailVerified(ctx, alice.ID))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := r.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.IsEmailVerified)
}
