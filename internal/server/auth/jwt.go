package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
	"github.com/dmitrijs2005/gophblog/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenValidity is used when no validity is configured.
const DefaultTokenValidity = 7 * 24 * time.Hour

// Claim is the verified identity carried by an access token.
type Claim struct {
	UserID int64
	Email  string
	Role   models.Role
}

// Claims is the JWT payload: registered claims plus the identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID int64       `json:"uid"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
}

// TokenService issues and verifies HS256-signed access tokens. It keeps no
// state: a token stays valid until its expiry even if the user's
// credentials change in the meantime.
type TokenService struct {
	secretKey []byte
	validity  time.Duration
	logger    logging.Logger
}

func NewTokenService(secretKey []byte, validity time.Duration, l logging.Logger) *TokenService {
	if validity <= 0 {
		validity = DefaultTokenValidity
	}
	return &TokenService{
		secretKey: secretKey,
		validity:  validity,
		logger:    l.With("module", "token_service"),
	}
}

// Validity returns the lifetime baked into issued tokens.
func (s *TokenService) Validity() time.Duration {
	return s.validity
}

// Issue signs claim with the configured validity.
func (s *TokenService) Issue(claim Claim) (string, error) {
	return GenerateToken(claim, s.secretKey, s.validity)
}

// Verify checks the token and returns its claim. Every failure is reported
// as apperr.Unauthenticated; the concrete reason only goes to the log.
func (s *TokenService) Verify(ctx context.Context, tokenString string) (Claim, error) {
	claim, err := ParseToken(tokenString, s.secretKey)
	if err != nil {
		s.logger.Warn(ctx, "token rejected", "reason", err.Error())
		return Claim{}, apperr.Unauthenticated(err)
	}
	return claim, nil
}

// GenerateToken creates a signed token for claim valid for validityDuration.
func GenerateToken(claim Claim, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claim.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID: claim.UserID,
		Email:  claim.Email,
		Role:   claim.Role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken validates signature, algorithm and expiry and returns the claim.
func ParseToken(tokenString string, secretKey []byte) (Claim, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, ErrTokenExpired
		}
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID <= 0 {
		return Claim{}, ErrInvalidToken
	}

	return Claim{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
