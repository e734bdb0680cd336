package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is the fixed validity window of an admin token.
const TokenTTL = 24 * time.Hour

const passwordCost = bcrypt.DefaultCost

// ErrBadToken wraps every reason ParseToken refuses a token.
var ErrBadToken = errors.New("invalid token")

// Only HS256 tokens carrying an expiry are accepted.
var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
)

// HashPassword returns the bcrypt hash stored for an admin.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// PasswordMatches reports whether password hashes to stored.
func PasswordMatches(stored, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
}

// Claims identify the admin a token was issued to.
type Claims struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func MakeToken(id int64, username, secret string) (string, error) {
	return makeToken(id, username, secret, time.Now())
}

func makeToken(id int64, username, secret string, now time.Time) (string, error) {
	c := Claims{
		ID:       id,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}

// ParseToken verifies raw against secret and returns its claims.
func ParseToken(raw, secret string) (*Claims, error) {
	var c Claims
	key := []byte(secret)
	if _, err := parser.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return key, nil }); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	return &c, nil
}

// RandomSecret returns a hex signing secret for processes started without one.
func RandomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
