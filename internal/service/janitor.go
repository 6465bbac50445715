package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

// Janitor periodically deletes expired token rows. Verification ignores
// expired rows on its own, so the janitor only keeps the table small.
type Janitor struct {
	Repo     *repo.GormRepo
	Interval time.Duration
}

func (j *Janitor) Run(ctx context.Context) {
	if j.Interval <= 0 {
		return
	}
	l := logging.FromContext(ctx).With("svc", "token.janitor")

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := j.Repo.DeleteExpiredTokens(ctx, now)
			if err != nil {
				l.Error("purge_tokens_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("purge_tokens_done", "deleted", n)
			}
		}
	}
}
