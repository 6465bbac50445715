package models

import (
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Skotchmaster/accounts/pkg/hash"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type TokenType string

const (
	TokenAccess        TokenType = "access"
	TokenRefresh       TokenType = "refresh"
	TokenResetPassword TokenType = "reset_password"
	TokenVerifyEmail   TokenType = "verify_email"
)

var (
	ErrInvalidEmail    = errors.New("invalid email")
	ErrInvalidPassword = errors.New("password must contain at least 8 characters, one letter and one number")
	ErrInvalidRole     = errors.New("invalid role")
	ErrEmptyName       = errors.New("name is required")
)

var validate = validator.New()

type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"         json:"id"`
	Name            string    `gorm:"not null"                     json:"name"`
	Email           string    `gorm:"uniqueIndex;not null"         json:"email"`
	Password        string    `gorm:"not null"                     json:"-"`
	Role            string    `gorm:"not null;default:user;index"  json:"role"`
	IsEmailVerified bool      `gorm:"not null;default:false"       json:"isEmailVerified"`
	CreatedAt       time.Time `gorm:"index"                        json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

type Token struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Token       string    `gorm:"index;not null"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Type        TokenType `gorm:"index;not null"`
	Expires     time.Time `gorm:"index;not null"`
	Blacklisted bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

// ValidatePassword requires at least 8 characters with a letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrInvalidPassword
	}
	return nil
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// NewUser validates and normalises its input and stores only the bcrypt hash
// of password. An empty role means RoleUser.
func NewUser(name, email, password, role string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if role == "" {
		role = RoleUser
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}
	u := &User{
		ID:    uuid.New(),
		Name:  name,
		Email: email,
		Role:  role,
	}
	if err := u.SetPassword(password); err != nil {
		return nil, err
	}
	return u, nil
}

// SetPassword validates and hashes password. It is the only way a password
// reaches a User.
func (u *User) SetPassword(password string) error {
	if err := ValidatePassword(password); err != nil {
		return err
	}
	h, err := hash.HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = h
	return nil
}

func (u *User) IsPasswordMatch(password string) bool {
	return hash.CheckPassword(u.Password, password)
}

func NewToken(hashed string, userID uuid.UUID, kind TokenType, expires time.Time, blacklisted bool) *Token {
	return &Token{
		ID:          uuid.New(),
		Token:       hashed,
		UserID:      userID,
		Type:        kind,
		Expires:     expires,
		Blacklisted: blacklisted,
	}
}
