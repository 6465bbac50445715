package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

const (
	msgIncorrectCredentials = "Incorrect email or password"
	msgPleaseAuthenticate   = "Please authenticate"
	msgResetFailed          = "Password reset failed"
	msgVerifyFailed         = "Email verification failed"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *TokenService
	Users  *UserService
	Email  EmailSender
	Events EventPublisher
}

func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*models.User, *AuthTokens, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	in.Role = models.RoleUser
	user, err := s.Users.create(ctx, in, events.UserRegistered)
	if err != nil {
		return nil, nil, err
	}

	tokens, err := s.Tokens.GenerateAuthTokens(ctx, user)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, nil, apperr.Internal(err)
	}

	l.Info("register_success", "user_id", user.ID.String())
	return user, tokens, nil
}

// Login fails with the same message whether the email or the password was wrong.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, *AuthTokens, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, nil, apperr.New(apperr.ErrInvalidCredentials, msgIncorrectCredentials)
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, nil, apperr.Internal(err)
	}
	if !user.IsPasswordMatch(password) {
		l.Warn("login_failed", "status", 401, "reason", "password mismatch", "user_id", user.ID.String())
		return nil, nil, apperr.New(apperr.ErrInvalidCredentials, msgIncorrectCredentials)
	}

	tokens, err := s.Tokens.GenerateAuthTokens(ctx, user)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue tokens", "error", err)
		return nil, nil, apperr.Internal(err)
	}

	publish(ctx, s.Events, events.UserLoggedIn, user)
	l.Info("login_success", "user_id", user.ID.String())
	return user, tokens, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	row, err := s.Repo.FindToken(ctx, refreshToken, models.TokenRefresh, uuid.Nil)
	if err == nil {
		err = s.Repo.ConsumeToken(ctx, row.ID)
	}
	if err != nil {
		if isNotFound(err) {
			l.Warn("logout_failed", "status", 404, "reason", "refresh token not found")
			return apperr.Wrap(apperr.ErrNotFound, "Not found", err)
		}
		l.Error("logout_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}

	user, err := s.Repo.GetUserByID(ctx, row.UserID)
	if err != nil {
		l.Warn("logout_user_lookup_failed", "user_id", row.UserID.String(), "error", err)
		user = &models.User{ID: row.UserID}
	}
	publish(ctx, s.Events, events.UserLoggedOut, user)
	l.Info("logout_success", "user_id", row.UserID.String())
	return nil
}

// Refresh exchanges a refresh token for a new pair. The old token is deleted
// in the same transaction, so it can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	var tokens *AuthTokens
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		ts := s.Tokens.withRepo(tx)
		row, err := ts.VerifyToken(ctx, refreshToken, models.TokenRefresh)
		if err != nil {
			return err
		}
		user, err := tx.GetUserByID(ctx, row.UserID)
		if err != nil {
			return err
		}
		if err := tx.ConsumeToken(ctx, row.ID); err != nil {
			return err
		}
		tokens, err = ts.GenerateAuthTokens(ctx, user)
		return err
	})
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return nil, apperr.Collapse(msgPleaseAuthenticate, err)
	}

	l.Info("refresh_success")
	return tokens, nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "auth.forgot_password")

	token, err := s.Tokens.GenerateResetPasswordToken(ctx, email)
	if err != nil {
		l.Warn("forgot_password_failed", "status", apperr.Status(err), "error", err)
		return err
	}
	if err := s.Email.SendResetPasswordEmail(ctx, models.NormalizeEmail(email), token); err != nil {
		l.Error("forgot_password_failed", "status", 500, "reason", "cannot send email", "error", err)
		return apperr.Internal(err)
	}
	return nil
}

// ResetPassword sets a new password and deletes every outstanding reset
// token of the user, not only the one presented.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.reset_password")

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		row, err := s.Tokens.withRepo(tx).VerifyToken(ctx, token, models.TokenResetPassword)
		if err != nil {
			return err
		}
		user, err = tx.GetUserByID(ctx, row.UserID)
		if err != nil {
			return err
		}
		if err := consumeAll(ctx, tx, user, models.TokenResetPassword); err != nil {
			return err
		}
		return tx.UpdatePassword(ctx, user.ID, newPassword)
	})
	if err != nil {
		l.Warn("reset_password_failed", "status", 401, "error", err)
		return apperr.Collapse(msgResetFailed, err)
	}

	publish(ctx, s.Events, events.PasswordReset, user)
	l.Info("reset_password_success", "user_id", user.ID.String())
	return nil
}

func (s *AuthService) SendVerificationEmail(ctx context.Context, user *models.User) error {
	l := logging.FromContext(ctx).With("svc", "auth.send_verification_email")

	token, err := s.Tokens.GenerateVerifyEmailToken(ctx, user.ID)
	if err != nil {
		l.Error("send_verification_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}
	if err := s.Email.SendVerificationEmail(ctx, user.Email, token); err != nil {
		l.Error("send_verification_failed", "status", 500, "reason", "cannot send email", "error", err)
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	l := logging.FromContext(ctx).With("svc", "auth.verify_email")

	var user *models.User
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		row, err := s.Tokens.withRepo(tx).VerifyToken(ctx, token, models.TokenVerifyEmail)
		if err != nil {
			return err
		}
		user, err = tx.GetUserByID(ctx, row.UserID)
		if err != nil {
			return err
		}
		if err := consumeAll(ctx, tx, user, models.TokenVerifyEmail); err != nil {
			return err
		}
		return tx.MarkEmailVerified(ctx, user.ID)
	})
	if err != nil {
		l.Warn("verify_email_failed", "status", 401, "error", err)
		return apperr.Collapse(msgVerifyFailed, err)
	}

	user.IsEmailVerified = true
	publish(ctx, s.Events, events.EmailVerified, user)
	l.Info("verify_email_success", "user_id", user.ID.String())
	return nil
}

var errAlreadyConsumed = errors.New("token already consumed")

// consumeAll deletes every token of kind for user. Zero deleted rows means a
// concurrent request got there first.
func consumeAll(ctx context.Context, tx *repo.GormRepo, user *models.User, kind models.TokenType) error {
	n, err := tx.DeleteTokens(ctx, user.ID, kind)
	if err != nil {
		return err
	}
	if n == 0 {
		return errAlreadyConsumed
	}
	return nil
}
