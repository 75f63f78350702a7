package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/auth"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
)

// Session is the result of a successful register or login.
type Session struct {
	Token string           `json:"token"`
	User  *models.SafeUser `json:"user"`
}

var errBadCredentials = errors.New("invalid email or password")

// AuthService implements register, login and token authentication on top
// of UserService and the token service.
type AuthService struct {
	users     *UserService
	hasher    *auth.PasswordHasher
	tokens    *auth.TokenService
	logger    logging.Logger
	dummyHash string
}

// NewAuthService precomputes a digest used to keep the cost of a login for
// an unknown email equal to that of a wrong password.
func NewAuthService(users *UserService, hasher *auth.PasswordHasher, tokens *auth.TokenService, l logging.Logger) (*AuthService, error) {
	dummy, err := hasher.Hash("dummy-password-for-timing")
	if err != nil {
		return nil, fmt.Errorf("error preparing dummy hash: %w", err)
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		logger:    l.With("module", "auth_service"),
		dummyHash: dummy,
	}, nil
}

// Register creates an ordinary user and logs them in.
func (s *AuthService) Register(ctx context.Context, in CreateUserInput) (*Session, error) {
	in.Role = models.RoleUser

	user, err := s.users.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

// Login checks credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, found, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	digest := s.dummyHash
	if found {
		digest = user.PasswordHash
	}

	ok, err := s.hasher.Verify(in.Password, digest)
	if err != nil {
		s.logger.Error(ctx, "password verification failed", "error", err)
		return nil, fmt.Errorf("error verifying password: %w", err)
	}
	if !found || !ok {
		s.logger.Info(ctx, "login rejected")
		return nil, badCredentials()
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	return s.session(user.Safe())
}

// Authenticate verifies a token and returns its claim.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Claim, error) {
	return s.tokens.Verify(ctx, token)
}

// TokenValidity is the lifetime of issued tokens, used for cookie Max-Age.
func (s *AuthService) TokenValidity() int {
	return int(s.tokens.Validity().Seconds())
}

func (s *AuthService) session(user *models.SafeUser) (*Session, error) {
	token, err := s.tokens.Issue(auth.Claim{UserID: user.ID, Email: user.Email, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("error issuing token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func badCredentials() error {
	e := apperr.Unauthenticated(errBadCredentials)
	e.Message = errBadCredentials.Error()
	return e
}
