package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role is an operator's access level.
type Role string

// Roles. Operators issue pump commands and read history; admins
// additionally manage provisioning (outside this core).
const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// CustomClaims extends JWT standard claims with AgroLink-specific fields.
//
// Operator identity comes from the external account subsystem; this core
// only validates tokens it did not issue the accounts for. AccountID
// scopes what the operator may see.
type CustomClaims struct {
	jwt.RegisteredClaims
	Role      Role   `json:"role"`
	AccountID string `json:"account_id"`
}

// GenerateAccessToken creates a signed JWT access token for an operator.
// Access tokens are short-lived and validated by signature only (no DB hit).
func GenerateAccessToken(subject, accountID string, role Role, secret string, ttlMinutes int) (string, error) {
	if ttlMinutes <= 0 {
		ttlMinutes = 15 //nolint:mnd // default 15-minute access token TTL
	}

	now := time.Now()
	claims := CustomClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlMinutes) * time.Minute)),
			ID:        uuid.NewString(),
		},
		Role:      role,
		AccountID: accountID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates and parses a JWT access token, returning the custom claims.
// It checks the signature, expiry, and required fields.
func ParseToken(tokenString, secret string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	if claims.Role == "" {
		return nil, fmt.Errorf("%w: missing role", ErrTokenInvalid)
	}

	return claims, nil
}
