package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Roles issued by the identity service.
const (
	RoleStoreOwner = "store_owner"
	RoleAdmin      = "admin"
)

// Claims is the principal supplied by the external identity service. The
// store slug is the tenant-ownership claim gating per-store operations.
type Claims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	StoreSlug string `json:"store_slug,omitempty"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the principal carries the admin claim.
func (c *Claims) IsAdmin() bool { return c.Role == RoleAdmin }

// OwnsStore reports whether the principal may manage the given store's
// orders. Admins manage every store.
func (c *Claims) OwnsStore(slug string) bool {
	return c.IsAdmin() || (c.Role == RoleStoreOwner && c.StoreSlug == slug)
}

// JWTService validates bearer tokens issued by the identity service. Token
// issuance lives there; GenerateToken exists for local development and tests.
type JWTService struct {
	secretKey []byte
	expiry    time.Duration
}

func NewJWTService(secretKey string, expiry time.Duration) *JWTService {
	return &JWTService{secretKey: []byte(secretKey), expiry: expiry}
}

// GenerateToken creates a signed token carrying the given principal.
func (s *JWTService) GenerateToken(userID, email, storeSlug, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:    userID,
		Email:     email,
		StoreSlug: storeSlug,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken parses and verifies a bearer token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
