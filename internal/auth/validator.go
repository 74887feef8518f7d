package auth

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// RegisterRequest carries the fields a new account must provide. Bounds
// mirror the persisted schema (username 3-30, password at least 6).
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
	Role     string `json:"role"`
}

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ValidateRegister checks business rules before any hashing work happens.
func ValidateRegister(req RegisterRequest) error {
	return validate.Struct(req)
}

// ValidateLogin checks the login payload shape.
func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
