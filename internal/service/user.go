package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/util"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

const (
	msgEmailTaken   = "Email already taken"
	msgUserNotFound = "User not found"
)

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
}

type UserService struct {
	Repo   *repo.GormRepo
	Events EventPublisher
	Index  UserIndex
}

func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	return s.create(ctx, in, events.UserCreated)
}

func (s *UserService) create(ctx context.Context, in CreateUserInput, event string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.create")

	taken, err := s.Repo.IsEmailTaken(ctx, in.Email, uuid.Nil)
	if err != nil {
		l.Error("create_user_failed", "status", 500, "error", err)
		return nil, apperr.Internal(err)
	}
	if taken {
		l.Warn("create_user_failed", "status", 400, "reason", "email taken")
		return nil, apperr.New(apperr.ErrConflict, msgEmailTaken)
	}

	user, err := models.NewUser(in.Name, in.Email, in.Password, in.Role)
	if err != nil {
		l.Warn("create_user_failed", "status", 400, "reason", "invalid input", "error", err)
		return nil, apperr.Validation(err.Error())
	}

	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			l.Warn("create_user_failed", "status", 400, "reason", "email taken")
			return nil, apperr.Wrap(apperr.ErrConflict, msgEmailTaken, err)
		}
		l.Error("create_user_failed", "status", 500, "error", err)
		return nil, apperr.Internal(err)
	}

	publish(ctx, s.Events, event, user)
	indexUser(ctx, s.Index, user)
	l.Info("create_user_success", "user_id", user.ID.String())
	return user, nil
}

func (s *UserService) QueryUsers(ctx context.Context, f repo.UserFilter, opts repo.QueryOptions) (*repo.Page[models.User], error) {
	page, err := s.Repo.QueryUsers(ctx, f, opts)
	if err != nil {
		logging.FromContext(ctx).Error("query_users_failed", "svc", "user.query", "error", err)
		return nil, apperr.Internal(err)
	}
	return page, nil
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.Wrap(apperr.ErrNotFound, msgUserNotFound, err)
		}
		return nil, apperr.Internal(err)
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "user.update", "user_id", id.String())

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := models.NormalizeEmail(*in.Email)
		if err := models.ValidateEmail(email); err != nil {
			return nil, apperr.Validation(err.Error())
		}
		taken, err := s.Repo.IsEmailTaken(ctx, email, id)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			l.Warn("update_user_failed", "status", 400, "reason", "email taken")
			return nil, apperr.New(apperr.ErrConflict, msgEmailTaken)
		}
		user.Email = email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation(models.ErrEmptyName.Error())
		}
		user.Name = name
	}
	if in.Password != nil {
		if err := models.ValidatePassword(*in.Password); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if err := tx.UpdateUser(ctx, user); err != nil {
			return err
		}
		if in.Password != nil {
			return tx.UpdatePassword(ctx, id, *in.Password)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEmailTaken):
			return nil, apperr.Wrap(apperr.ErrConflict, msgEmailTaken, err)
		case isNotFound(err):
			return nil, apperr.Wrap(apperr.ErrNotFound, msgUserNotFound, err)
		}
		l.Error("update_user_failed", "status", 500, "error", err)
		return nil, apperr.Internal(err)
	}

	updated, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Events, events.UserUpdated, updated)
	indexUser(ctx, s.Index, updated)
	l.Info("update_user_success")
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "user.delete", "user_id", id.String())

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.DeleteUser(ctx, id); err != nil {
		if isNotFound(err) {
			return apperr.Wrap(apperr.ErrNotFound, msgUserNotFound, err)
		}
		l.Error("delete_user_failed", "status", 500, "error", err)
		return apperr.Internal(err)
	}

	publish(ctx, s.Events, events.UserDeleted, user)
	unindexUser(ctx, s.Index, id.String())
	l.Info("delete_user_success")
	return nil
}

func (s *UserService) SearchUsers(ctx context.Context, query string, page, limit int) (*repo.Page[models.User], error) {
	if s.Index == nil {
		return nil, apperr.New(apperr.ErrUnavailable, "Search is not available")
	}

	page, from, size := util.Calculate(page, limit)
	total, users, err := s.Index.SearchUsers(ctx, query, from, size)
	if err != nil {
		logging.FromContext(ctx).Error("search_users_failed", "svc", "user.search", "error", err)
		return nil, apperr.Wrap(apperr.ErrUnavailable, "Search is not available", err)
	}

	return &repo.Page[models.User]{
		Results:      users,
		Page:         page,
		Limit:        size,
		TotalPages:   util.TotalPages(total, size),
		TotalResults: total,
	}, nil
}
