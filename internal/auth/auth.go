// Package auth provides the authentication collaborator: registration,
// login and logout for end users, with the session token carried in the
// request context.
package auth

import (
	"context"
	stderrors "errors"
	"time"
)

var (
	// ErrInvalidCredentials is returned when an email and password do not match.
	ErrInvalidCredentials = stderrors.New("invalid credentials")
	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = stderrors.New("email already registered")
	// ErrUnauthenticated is returned when the context carries no valid session token.
	ErrUnauthenticated = stderrors.New("not authenticated")
)

// Service is the contract call sites depend on.
type Service interface {
	IsAuthenticated(ctx context.Context) bool
	CurrentUser(ctx context.Context) (*User, error)
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Register(ctx context.Context, reg Registration) (*Session, error)
	Logout(ctx context.Context) error
}

// User is an account as exposed to callers.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Credentials identify an existing account.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Registration creates a new account.
type Registration struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Session is an issued login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type contextKey string

const tokenKey contextKey = "authToken"

// WithToken returns a context carrying a session token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the session token carried by ctx.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok && token != ""
}
