package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/SDARS-2025/discipline-service/internal/models"
)

// Token verification failures. The guard maps these onto distinct
// Unauthorized reason tags, so the split matters: an absent bearer is
// "missing", garbage is "malformed", and only a genuinely timed-out
// token is "expired".
var (
	ErrTokenMissing   = errors.New("no token provided")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")
	ErrTokenSignature = errors.New("token signature is invalid")
	ErrTokenAlgorithm = errors.New("token signed with unexpected algorithm")
	ErrTokenWrongType = errors.New("token is not valid for this purpose")
)

const exchangeTokenType = "verify"

// SessionClaims are carried by login tokens.
type SessionClaims struct {
	ID   uint            `json:"id"`
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// ExchangeClaims are carried by email-confirmation exchange tokens.
type ExchangeClaims struct {
	UserID uint   `json:"userId"`
	Email  string `json:"email"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies signed, time-bounded assertions.
// Session and exchange tokens use separate secrets so a leaked
// confirmation link can never be replayed as a session.
type TokenService struct {
	sessionSecret  []byte
	exchangeSecret []byte
	sessionTTL     time.Duration
	exchangeTTL    time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

func NewTokenService(sessionSecret, exchangeSecret string, sessionTTL, exchangeTTL time.Duration) *TokenService {
	return &TokenService{
		sessionSecret:  []byte(sessionSecret),
		exchangeSecret: []byte(exchangeSecret),
		sessionTTL:     sessionTTL,
		exchangeTTL:    exchangeTTL,
		now:            time.Now,
	}
}

// WithClock returns a copy of the service using the given clock.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// IssueSession signs a session assertion for an authenticated user.
func (s *TokenService) IssueSession(userID uint, role models.UserRole) (string, error) {
	now := s.now()
	claims := SessionClaims{
		ID:   userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.sessionSecret)
}

// VerifySession parses and validates a session token.
func (s *TokenService) VerifySession(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := s.verify(token, claims, s.sessionSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// IssueExchange signs a short-lived confirmation-exchange token that
// identifies the user a confirmation link was mailed to.
func (s *TokenService) IssueExchange(userID uint, email string) (string, error) {
	now := s.now()
	claims := ExchangeClaims{
		UserID: userID,
		Email:  email,
		Type:   exchangeTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.exchangeTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.exchangeSecret)
}

// VerifyExchange parses and validates a confirmation-exchange token.
func (s *TokenService) VerifyExchange(token string) (*ExchangeClaims, error) {
	claims := &ExchangeClaims{}
	if err := s.verify(token, claims, s.exchangeSecret); err != nil {
		return nil, err
	}
	if claims.Type != exchangeTokenType {
		return nil, ErrTokenWrongType
	}
	return claims, nil
}

func (s *TokenService) verify(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return ErrTokenMissing
	}

	// Expiry is checked by hand against the service clock below, so the
	// parser is trusted for structure and signature only. This keeps the
	// clock swappable without touching the package-global jwt.TimeFunc.
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Pin the algorithm: a token asserting any other method is
		// rejected before its signature is even considered.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok || t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrTokenAlgorithm
		}
		return secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenAlgorithm):
			return ErrTokenAlgorithm
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return ErrTokenSignature
		case errors.Is(err, jwt.ErrTokenMalformed):
			return ErrTokenMalformed
		default:
			return fmt.Errorf("%w: %s", ErrTokenMalformed, err)
		}
	}

	// A token without an expiry is not a valid time-bounded assertion.
	exp := tokenExpiry(claims)
	if exp == nil || !s.now().Before(exp.Time) {
		return ErrTokenExpired
	}
	return nil
}

func tokenExpiry(claims jwt.Claims) *jwt.NumericDate {
	switch c := claims.(type) {
	case *SessionClaims:
		return c.ExpiresAt
	case *ExchangeClaims:
		return c.ExpiresAt
	}
	return nil
}

// confirmationTokenBytes gives the stored email token 256 bits of entropy.
const confirmationTokenBytes = 32

// NewConfirmationToken returns a single-use random hex string for the
// email confirmation link.
func NewConfirmationToken() (string, error) {
	buf := make([]byte, confirmationTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
