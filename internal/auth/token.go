package auth

import (
	"fmt"
	"strconv"
	"time"

	"tourdesk/internal/domain"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "tourdesk"

type Claims struct {
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	CustomerID int64  `json:"customer_id,omitempty"`
	jwtlib.RegisteredClaims
}

// Principal converts verified claims into the request identity.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{
		UserID:     c.UserID,
		Email:      c.Email,
		Role:       c.Role,
		CustomerID: c.CustomerID,
	}
}

// TokenService issues and verifies HS256 bearer tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for p and returns it with its expiry.
func (s *TokenService) Issue(p domain.Principal) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	claims := Claims{
		UserID:     p.UserID,
		Email:      p.Email,
		Role:       p.Role,
		CustomerID: p.CustomerID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(p.UserID, 10),
			ExpiresAt: jwtlib.NewNumericDate(expires),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses a token and returns the principal it carries. Any failure is
// reported as domain.ErrUnauthorized.
func (s *TokenService) Verify(tokenStr string) (domain.Principal, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(*jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return domain.Principal{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Role == "" {
		return domain.Principal{}, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}
	return claims.Principal(), nil
}
