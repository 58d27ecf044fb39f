package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"resumeforge/internal/config"
	"resumeforge/internal/errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type account struct {
	user         User
	passwordHash string
}

// LocalService is an in-memory Service. Accounts live for the life of the process.
type LocalService struct {
	mu       sync.RWMutex
	accounts map[string]*account // by normalized email
	byID     map[string]*account
	revoked  map[string]time.Time // token ID -> token expiry

	hasher   *PasswordHasher
	tokens   *TokenService
	validate *validator.Validate
	logger   *errors.Logger
	now      func() time.Time
}

// Ensure LocalService implements Service
var _ Service = (*LocalService)(nil)

// NewLocalService creates the in-memory auth collaborator from configuration.
func NewLocalService(cfg config.AuthConfig, logger *errors.Logger) (*LocalService, error) {
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "auth.jwtSecret must be at least 32 characters", nil)
	}
	hasher, err := NewPasswordHasher(cfg.BcryptCost, cfg.Pepper)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid password hashing settings", err)
	}

	return &LocalService{
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		revoked:  make(map[string]time.Time),
		hasher:   hasher,
		tokens:   NewTokenService(cfg.JWTSecret, cfg.Issuer, time.Duration(cfg.ExpirationHours)*time.Hour),
		validate: validator.New(),
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Register creates an account and logs it in.
func (s *LocalService) Register(ctx context.Context, reg Registration) (*Session, error) {
	if err := s.validate.StructCtx(ctx, reg); err != nil {
		return nil, invalidRequest(err)
	}

	hash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, errors.NewInternalError("PASSWORD_HASH_FAILED", "failed to register account", err)
	}

	email := normalizeEmail(reg.Email)
	acct := &account{
		user: User{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(reg.Name),
			Email:     email,
			CreatedAt: s.now().UTC(),
		},
		passwordHash: hash,
	}

	s.mu.Lock()
	if _, exists := s.accounts[email]; exists {
		s.mu.Unlock()
		return nil, errors.NewConflictError(errors.ErrCodeEmailTaken, "an account with this email already exists", ErrEmailTaken)
	}
	s.accounts[email] = acct
	s.byID[acct.user.ID] = acct
	s.mu.Unlock()

	s.logger.Info("Account registered", "user_id", acct.user.ID)
	return s.issue(acct)
}

// Login verifies credentials and issues a session token.
func (s *LocalService) Login(ctx context.Context, creds Credentials) (*Session, error) {
	if err := s.validate.StructCtx(ctx, creds); err != nil {
		return nil, invalidRequest(err)
	}

	s.mu.RLock()
	acct, ok := s.accounts[normalizeEmail(creds.Email)]
	s.mu.RUnlock()

	if !ok || !s.hasher.Verify(creds.Password, acct.passwordHash) {
		return nil, errors.NewAuthError(errors.ErrCodeInvalidCredentials, "invalid email or password", ErrInvalidCredentials)
	}

	s.logger.Debug("Login succeeded", "user_id", acct.user.ID)
	return s.issue(acct)
}

// Logout revokes the token carried by ctx.
func (s *LocalService) Logout(ctx context.Context) error {
	claims, err := s.claims(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.revoked[claims.ID] = claims.ExpiresAt.Time
	s.pruneRevokedLocked()
	s.mu.Unlock()

	s.logger.Debug("Logout succeeded", "user_id", claims.UserID)
	return nil
}

// IsAuthenticated reports whether ctx carries a valid, unrevoked token.
func (s *LocalService) IsAuthenticated(ctx context.Context) bool {
	_, err := s.CurrentUser(ctx)
	return err == nil
}

// CurrentUser returns the account behind the token carried by ctx.
func (s *LocalService) CurrentUser(ctx context.Context) (*User, error) {
	claims, err := s.claims(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	acct, ok := s.byID[claims.UserID]
	s.mu.RUnlock()
	if !ok {
		return nil, unauthenticated(fmt.Errorf("unknown user %s", claims.UserID))
	}

	user := acct.user
	return &user, nil
}

func (s *LocalService) claims(ctx context.Context) (*Claims, error) {
	token, ok := TokenFromContext(ctx)
	if !ok {
		return nil, unauthenticated(nil)
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, unauthenticated(err)
	}

	s.mu.RLock()
	_, revoked := s.revoked[claims.ID]
	s.mu.RUnlock()
	if revoked {
		return nil, unauthenticated(fmt.Errorf("token has been revoked"))
	}
	return claims, nil
}

func (s *LocalService) issue(acct *account) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(acct.user.ID)
	if err != nil {
		return nil, errors.NewInternalError("TOKEN_ISSUE_FAILED", "failed to issue session token", err)
	}
	user := acct.user
	return &Session{Token: token, ExpiresAt: expiresAt, User: &user}, nil
}

// pruneRevokedLocked drops revocations whose tokens have expired anyway.
func (s *LocalService) pruneRevokedLocked() {
	now := s.now()
	for id, expiresAt := range s.revoked {
		if now.After(expiresAt) {
			delete(s.revoked, id)
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func unauthenticated(cause error) error {
	if cause == nil {
		cause = ErrUnauthenticated
	} else {
		cause = fmt.Errorf("%w: %w", ErrUnauthenticated, cause)
	}
	return errors.NewAuthError(errors.ErrCodeUnauthenticated, "authentication required", cause)
}

func invalidRequest(err error) error {
	appErr := errors.NewValidationError(errors.ErrCodeInvalidRequest, "invalid request", err)
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		fields := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			fields = append(fields, fe.Field())
		}
		appErr.WithContext("fields", strings.Join(fields, ","))
	}
	return appErr
}
