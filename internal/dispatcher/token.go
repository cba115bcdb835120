package dispatcher

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/taskpilot/chatbot/internal/models"
)

// ErrNoSigningKey means the dispatch signing key is not configured. Minting
// is a hard dependency of dispatch; there is no unsigned fallback.
var ErrNoSigningKey = errors.New("dispatch signing key not configured")

// TokenSigner mints the short-lived bearer credential the automation backend
// requires. The TTL bounds how long a leaked token stays useful.
type TokenSigner struct {
	key []byte
	ttl time.Duration
}

func NewTokenSigner(key string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{key: []byte(key), ttl: ttl}
}

// Mint returns a signed token scoped to the user's account, profile, tier
// and permission grants.
func (s *TokenSigner) Mint(user models.UserContext) (string, error) {
	if len(s.key) == 0 {
		return "", ErrNoSigningKey
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.AccountID,
		"pid":   user.ProfileID,
		"tier":  string(user.Tier),
		"perms": user.Permissions,
		"iat":   now.Unix(),
		"exp":   now.Add(s.ttl).Unix(),
		"jti":   uuid.New().String(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
