package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/accounts/internal/models"
)

var ErrEmailTaken = errors.New("email already taken")

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo { return &GormRepo{DB: db} }

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.User{}, &models.Token{})
}

// Transaction runs fn against a repo bound to a single transaction.
// Only tx may be used inside fn.
func (r *GormRepo) Transaction(ctx context.Context, fn func(tx *GormRepo) error) error {
	return r.DB.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&GormRepo{DB: db})
	})
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
