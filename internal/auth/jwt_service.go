package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// TokenExpiry is the fixed lifetime of an issued token. Expiry is absolute;
// there is no refresh.
const TokenExpiry = time.Hour

var (
	// ErrMalformedToken is returned when a token cannot be parsed or its signature is invalid.
	ErrMalformedToken = errors.New("malformed token")
	// ErrTokenExpired is returned when a token is past its validity window.
	ErrTokenExpired = errors.New("token expired")
)

// Claims represents JWT claims. The subject is the account id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed bearer tokens. It keeps no
// server-side state: a token stays valid until it expires.
type TokenService struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenService creates a new token service with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		now:    time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// WithClock returns a copy of the service that reads time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	cp := *s
	cp.now = now
	return &cp
}

// Issue signs a token for accountID and returns it with its expiry time.
func (s *TokenService) Issue(accountID uuid.UUID) (string, time.Time, error) {
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(TokenExpiry)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks the signature and expiry of tokenString and returns the
// account id it was issued for. It never touches storage.
func (s *TokenService) Verify(tokenString string) (uuid.UUID, error) {
	claims := &Claims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrMalformedToken
	}

	if claims.ExpiresAt == nil || !claims.VerifyExpiresAt(s.now(), true) {
		return uuid.Nil, ErrTokenExpired
	}

	accountID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrMalformedToken
	}
	return accountID, nil
}
