package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/pkg/hash"
)

func (r *GormRepo) SaveToken(ctx context.Context, t *models.Token) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// FindToken looks up a non-blacklisted token of kind by its raw string.
// A non-nil userID also pins the owner.
func (r *GormRepo) FindToken(ctx context.Context, raw string, kind models.TokenType, userID uuid.UUID) (*models.Token, error) {
	q := r.DB.WithContext(ctx).
		Where("token = ? AND type = ? AND blacklisted = ?", hash.Sha256Hex(raw), kind, false)
	if userID != uuid.Nil {
		q = q.Where("user_id = ?", userID)
	}
	var t models.Token
	if err := q.First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ConsumeToken deletes a single token row. It fails with
// gorm.ErrRecordNotFound when the row is already gone, so of two concurrent
// consumers only one succeeds.
func (r *GormRepo) ConsumeToken(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Token{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteTokens removes every token of kind issued to userID.
func (r *GormRepo) DeleteTokens(ctx context.Context, userID uuid.UUID, kind models.TokenType) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, kind).
		Delete(&models.Token{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) CountTokens(ctx context.Context, userID uuid.UUID, kind models.TokenType) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Token{}).
		Where("user_id = ? AND type = ?", userID, kind).
		Count(&count).Error
	return count, err
}

func (r *GormRepo) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires < ?", now.UTC()).Delete(&models.Token{})
	return res.RowsAffected, res.Error
}
