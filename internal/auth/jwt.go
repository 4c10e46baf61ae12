package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var JWTSecret []byte

// SetSecret sets the JWT secret key (e.g., from config)
func SetSecret(secret string) {
	JWTSecret = []byte(secret)
}

// Identity is the authenticated caller, passed explicitly into every
// messaging operation.
type Identity struct {
	ID            int64
	Email         string
	InstitutionID int64
	Roles         map[int64]struct{}
}

func (i Identity) HasRole(roleID int64) bool {
	_, ok := i.Roles[roleID]
	return ok
}

// Claims represents the JWT payload issued by the auth service
type Claims struct {
	UserID        int64   `json:"id"`
	Email         string  `json:"email"`
	InstitutionID int64   `json:"institution_id"`
	Roles         []int64 `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	roles := make(map[int64]struct{}, len(c.Roles))
	for _, r := range c.Roles {
		roles[r] = struct{}{}
	}
	return Identity{
		ID:            c.UserID,
		Email:         c.Email,
		InstitutionID: c.InstitutionID,
		Roles:         roles,
	}
}

// GenerateToken creates a signed JWT for the given identity
func GenerateToken(id Identity, ttl time.Duration) (string, error) {
	if len(JWTSecret) == 0 {
		return "", errors.New("JWT secret not set")
	}

	roles := make([]int64, 0, len(id.Roles))
	for r := range id.Roles {
		roles = append(roles, r)
	}

	claims := Claims{
		UserID:        id.ID,
		Email:         id.Email,
		InstitutionID: id.InstitutionID,
		Roles:         roles,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

// ValidateToken parses and verifies a JWT string
func ValidateToken(tokenStr string) (*Claims, error) {
	if len(JWTSecret) == 0 {
		return nil, errors.New("JWT secret not set")
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	if claims.UserID <= 0 {
		return nil, errors.New("token carries no user id")
	}

	return claims, nil
}
