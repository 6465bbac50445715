package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/accounts/internal/models"
	"github.com/Skotchmaster/accounts/internal/util"
)

type UserFilter struct {
	Name string
	Role string
}

type QueryOptions struct {
	SortBy string
	Limit  int
	Page   int
}

type Page[T any] struct {
	Results      []T   `json:"results"`
	Page         int   `json:"page"`
	Limit        int   `json:"limit"`
	TotalPages   int   `json:"totalPages"`
	TotalResults int64 `json:"totalResults"`
}

var sortColumns = map[string]string{
	"name":            "name",
	"email":           "email",
	"role":            "role",
	"createdAt":       "created_at",
	"isEmailVerified": "is_email_verified",
}

// ParseSort turns "name:desc,createdAt" into order clauses. Unknown fields
// are skipped; an empty result falls back to createdAt ascending.
func ParseSort(sortBy string) []clause.OrderByColumn {
	var cols []clause.OrderByColumn
	for _, part := range strings.Split(sortBy, ",") {
		field, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		col, ok := sortColumns[field]
		if !ok {
			continue
		}
		cols = append(cols, clause.OrderByColumn{
			Column: clause.Column{Name: col},
			Desc:   strings.EqualFold(dir, "desc"),
		})
	}
	if len(cols) == 0 {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: "created_at"}})
	}
	return cols
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

// IsEmailTaken reports whether email belongs to a user other than excludeID.
// Pass uuid.Nil to check against every user.
func (r *GormRepo) IsEmailTaken(ctx context.Context, email string, excludeID uuid.UUID) (bool, error) {
	q := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", models.NormalizeEmail(email))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (f UserFilter) scope(db *gorm.DB) *gorm.DB {
	if f.Name != "" {
		db = db.Where("name = ?", f.Name)
	}
	if f.Role != "" {
		db = db.Where("role = ?", f.Role)
	}
	return db
}

func (r *GormRepo) QueryUsers(ctx context.Context, f UserFilter, opts QueryOptions) (*Page[models.User], error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Scopes(f.scope).Count(&total).Error; err != nil {
		return nil, err
	}

	page, offset, limit := util.Calculate(opts.Page, opts.Limit)
	items := make([]models.User, 0, limit)
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Scopes(f.scope).
		Order(clause.OrderBy{Columns: ParseSort(opts.SortBy)}).
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return nil, err
	}

	return &Page[models.User]{
		Results:      items,
		Page:         page,
		Limit:        limit,
		TotalPages:   util.TotalPages(total, limit),
		TotalResults: total,
	}, nil
}

// UpdateUser saves name, email and role. Passwords go through UpdatePassword.
func (r *GormRepo) UpdateUser(ctx context.Context, u *models.User) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", u.ID).
		Updates(map[string]any{
			"name":  u.Name,
			"email": models.NormalizeEmail(u.Email),
			"role":  u.Role,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdatePassword validates and re-hashes password before storing it.
func (r *GormRepo) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	var u models.User
	if err := u.SetPassword(password); err != nil {
		return err
	}
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", u.Password)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("is_email_verified", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteUser removes the user together with every token issued to them.
func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.DB.Where("user_id = ?", id).Delete(&models.Token{}).Error; err != nil {
			return err
		}
		res := tx.DB.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
