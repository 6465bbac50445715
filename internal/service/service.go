package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

type EmailSender interface {
	SendResetPasswordEmail(ctx context.Context, to, token string) error
	SendVerificationEmail(ctx context.Context, to, token string) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, key string, event any) error
}

type UserIndex interface {
	IndexUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id string) error
	SearchUsers(ctx context.Context, query string, from, size int) (int64, []models.User, error)
}

// publish and the index helpers are best effort: the request has already
// succeeded in the database, so failures are only logged.
func publish(ctx context.Context, p EventPublisher, kind string, u *models.User) {
	if p == nil {
		return
	}
	id := u.ID.String()
	if err := p.PublishEvent(ctx, id, events.NewUserEvent(kind, id, u.Email)); err != nil {
		logging.FromContext(ctx).Warn("publish_event_failed", "event", kind, "user_id", id, "error", err)
	}
}

func indexUser(ctx context.Context, idx UserIndex, u *models.User) {
	if idx == nil {
		return
	}
	if err := idx.IndexUser(ctx, u); err != nil {
		logging.FromContext(ctx).Warn("index_user_failed", "user_id", u.ID.String(), "error", err)
	}
}

func unindexUser(ctx context.Context, idx UserIndex, id string) {
	if idx == nil {
		return
	}
	if err := idx.DeleteUser(ctx, id); err != nil {
		logging.FromContext(ctx).Warn("unindex_user_failed", "user_id", id, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
