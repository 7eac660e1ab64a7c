package auth

import (
	"errors"
	"time"

	"github.com/frahmantamala/todolist/internal"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultConfirmationTTL applies when IssueConfirmation is given no TTL.
const DefaultConfirmationTTL = time.Hour

// TokenService issues and checks signed, expiring tokens. Confirmation and
// auth tokens carry different claims, so neither is accepted as the other.
type TokenService interface {
	IssueConfirmation(userID int64, ttl time.Duration) (string, error)
	RedeemConfirmation(token string) (int64, error)
	IssueAuth(userID int64, ttl time.Duration) (string, error)
	VerifyAuth(token string) (int64, bool)
}

type confirmationClaims struct {
	Confirm *int64 `json:"confirm,omitempty"`
	jwt.RegisteredClaims
}

type authClaims struct {
	UserID *int64 `json:"id,omitempty"`
	jwt.RegisteredClaims
}

type JWTTokenService struct {
	secret []byte
	leeway time.Duration
	now    func() time.Time
}

type Option func(*JWTTokenService)

func withClock(now func() time.Time) Option {
	return func(s *JWTTokenService) {
		s.now = now
	}
}

func WithLeeway(d time.Duration) Option {
	return func(s *JWTTokenService) {
		s.leeway = d
	}
}

func NewJWTTokenService(secret string, opts ...Option) (*JWTTokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	s := &JWTTokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JWTTokenService) IssueConfirmation(userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = DefaultConfirmationTTL
	}
	id := userID
	return s.sign(&confirmationClaims{
		Confirm:          &id,
		RegisteredClaims: s.registered(ttl),
	})
}

// RedeemConfirmation returns the user ID a confirmation token was issued
// for. Bad signatures, expiry, foreign algorithms and missing claims all
// collapse into ErrInvalidToken.
func (s *JWTTokenService) RedeemConfirmation(token string) (int64, error) {
	var claims confirmationClaims
	if err := s.parse(token, &claims); err != nil || claims.Confirm == nil {
		return 0, internal.ErrInvalidToken
	}
	return *claims.Confirm, nil
}

func (s *JWTTokenService) IssueAuth(userID int64, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("auth token ttl must be positive")
	}
	id := userID
	return s.sign(&authClaims{
		UserID:           &id,
		RegisteredClaims: s.registered(ttl),
	})
}

func (s *JWTTokenService) VerifyAuth(token string) (int64, bool) {
	var claims authClaims
	if err := s.parse(token, &claims); err != nil || claims.UserID == nil {
		return 0, false
	}
	return *claims.UserID, true
}

func (s *JWTTokenService) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := s.now()
	return jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (s *JWTTokenService) sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *JWTTokenService) parse(token string, claims jwt.Claims) error {
	if token == "" {
		return internal.ErrInvalidToken
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	return err
}
