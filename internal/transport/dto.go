package transport

type RegisterRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
}

type LoginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Token comes from the query string of a POST, which Bind does not read.
type ResetPasswordRequest struct {
	Token    string `json:"-"        validate:"required"`
	Password string `json:"password" validate:"required,password"`
}

type VerifyEmailRequest struct {
	Token string `json:"-" validate:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,password"`
	Role     string `json:"role"     validate:"required,oneof=user admin"`
}

// UpdateUserRequest needs at least one field; see Empty.
type UpdateUserRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,password"`
}

func (r UpdateUserRequest) Empty() bool {
	return r.Name == nil && r.Email == nil && r.Password == nil
}

type GetUsersQuery struct {
	Name   string `query:"name"`
	Role   string `query:"role"   validate:"omitempty,oneof=user admin"`
	SortBy string `query:"sortBy"`
	Limit  int    `query:"limit"  validate:"gte=0"`
	Page   int    `query:"page"   validate:"gte=0"`
}

type SearchUsersQuery struct {
	Q     string `query:"q"     validate:"required"`
	Limit int    `query:"limit" validate:"gte=0"`
	Page  int    `query:"page"  validate:"gte=0"`
}
