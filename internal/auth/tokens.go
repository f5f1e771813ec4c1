package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/procare/procare_api/internal/user"
)

// Claims is the payload carried by access tokens. The signature expiry bounds
// the absolute token lifetime; the session key in the ephemeral store bounds
// the revocability window. The shorter of the two wins in practice.
type Claims struct {
	UserID   string `json:"id"`
	Phone    string `json:"phone_main"`
	CardCode string `json:"card_code,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a manager with a fixed signing secret and expiry.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Sign issues an access token for the account and returns its expiry time.
func (m *TokenManager) Sign(u user.User) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := Claims{
		UserID:   u.ID,
		Phone:    u.PhoneMain,
		CardCode: u.CardCode,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse verifies the signature and expiry and returns the claims.
func (m *TokenManager) Parse(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return Claims{}, newError(KindInvalidToken, "invalid_token", "invalid or expired token")
	}
	if claims.UserID == "" {
		return Claims{}, newError(KindInvalidToken, "invalid_payload", "invalid token payload")
	}
	return claims, nil
}
