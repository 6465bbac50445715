package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/pkg/hash"
	"github.com/Skotchmaster/accounts/pkg/tokens"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenNotFound = errors.New("token not found")
)

type TokenInfo struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type AuthTokens struct {
	Access  TokenInfo `json:"access"`
	Refresh TokenInfo `json:"refresh"`
}

// TokenService mints, persists and verifies every token the service hands out.
type TokenService struct {
	Repo *repo.GormRepo
	JWT  config.JWT
	Now  func() time.Time
}

func NewTokenService(r *repo.GormRepo, cfg config.JWT) *TokenService {
	return &TokenService{Repo: r, JWT: cfg, Now: time.Now}
}

func (t *TokenService) now() time.Time {
	if t.Now == nil {
		return time.Now().UTC()
	}
	return t.Now().UTC()
}

func (t *TokenService) withRepo(r *repo.GormRepo) *TokenService {
	cp := *t
	cp.Repo = r
	return &cp
}

func (t *TokenService) GenerateToken(userID uuid.UUID, expires time.Time, kind models.TokenType) (string, error) {
	return t.GenerateTokenWithSecret(userID, expires, kind, t.JWT.Secret)
}

func (t *TokenService) GenerateTokenWithSecret(userID uuid.UUID, expires time.Time, kind models.TokenType, secret []byte) (string, error) {
	return tokens.Sign(secret, userID.String(), string(kind), t.now(), expires)
}

func (t *TokenService) SaveToken(ctx context.Context, token string, userID uuid.UUID, expires time.Time, kind models.TokenType, blacklisted bool) (*models.Token, error) {
	row := models.NewToken(hash.Sha256Hex(token), userID, kind, expires.UTC(), blacklisted)
	if err := t.Repo.SaveToken(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// VerifyToken checks the signature, expiry and kind of token, then requires a
// live row for it owned by the token's subject. Either failure is reported
// as ErrInvalidToken or ErrTokenNotFound.
func (t *TokenService) VerifyToken(ctx context.Context, token string, kind models.TokenType) (*models.Token, error) {
	claims, err := tokens.ClaimsFromToken(token, t.JWT.Secret)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	if claims.Type != string(kind) {
		return nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	row, err := t.Repo.FindToken(ctx, token, kind, userID)
	if err != nil {
		return nil, errors.Join(ErrTokenNotFound, err)
	}
	return row, nil
}

func (t *TokenService) GenerateAuthTokens(ctx context.Context, user *models.User) (*AuthTokens, error) {
	now := t.now()

	accessExp := now.Add(t.JWT.AccessTTL)
	access, err := t.GenerateToken(user.ID, accessExp, models.TokenAccess)
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(t.JWT.RefreshTTL)
	refresh, err := t.GenerateToken(user.ID, refreshExp, models.TokenRefresh)
	if err != nil {
		return nil, err
	}
	if _, err := t.SaveToken(ctx, refresh, user.ID, refreshExp, models.TokenRefresh, false); err != nil {
		return nil, err
	}

	return &AuthTokens{
		Access:  TokenInfo{Token: access, Expires: accessExp},
		Refresh: TokenInfo{Token: refresh, Expires: refreshExp},
	}, nil
}

func (t *TokenService) GenerateResetPasswordToken(ctx context.Context, email string) (string, error) {
	user, err := t.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return "", apperr.Wrap(apperr.ErrNotFound, "No users found with this email", err)
		}
		return "", apperr.Internal(err)
	}

	expires := t.now().Add(t.JWT.ResetPasswordTTL)
	token, err := t.GenerateToken(user.ID, expires, models.TokenResetPassword)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if _, err := t.SaveToken(ctx, token, user.ID, expires, models.TokenResetPassword, false); err != nil {
		return "", apperr.Internal(err)
	}
	return token, nil
}

// GenerateVerifyEmailToken trusts userID; callers resolve it from an
// authenticated request.
func (t *TokenService) GenerateVerifyEmailToken(ctx context.Context, userID uuid.UUID) (string, error) {
	expires := t.now().Add(t.JWT.VerifyEmailTTL)
	token, err := t.GenerateToken(userID, expires, models.TokenVerifyEmail)
	if err != nil {
		return "", err
	}
	if _, err := t.SaveToken(ctx, token, userID, expires, models.TokenVerifyEmail, false); err != nil {
		return "", err
	}
	return token, nil
}
