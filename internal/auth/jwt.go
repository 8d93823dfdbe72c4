package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/attaboy/gamesocial/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Realm separates player tokens from operator tokens.
type Realm string

const (
	RealmPlayer Realm = "player"
	RealmAdmin  Realm = "admin"
)

// clockSkew is tolerated between the identity service and this one.
const clockSkew = 30 * time.Second

// Claims are the token claims. For players Subject is the uid the ledger and chat log key on.
type Claims struct {
	jwt.RegisteredClaims
	Realm    Realm  `json:"realm"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"` // admin realm: viewer, moderator, admin
}

// JWTManager validates HS256 tokens issued by the identity service. GenerateToken
// exists for that service and for tests.
type JWTManager struct {
	secret []byte
	expiry time.Duration
	parser *jwt.Parser
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
	}
}

// GenerateToken signs a token for subject in the given realm.
func (m *JWTManager) GenerateToken(realm Realm, subject, username, role string) (string, error) {
	if realm != RealmPlayer && realm != RealmAdmin {
		return "", fmt.Errorf("unknown realm: %s", realm)
	}

	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			ID:        uuid.NewString(),
		},
		Realm:    realm,
		Username: username,
		Role:     role,
	}).SignedString(m.secret)
}

// ValidateToken checks signature, algorithm and expiry and requires a subject.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := m.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("token expired")
	case err != nil:
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if err := domain.ValidateUID(claims.Subject); err != nil {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// ValidateTokenForRealm validates a token and ensures it belongs to the expected realm.
func (m *JWTManager) ValidateTokenForRealm(tokenString string, expectedRealm Realm) (*Claims, error) {
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Realm != expectedRealm {
		return nil, fmt.Errorf("expected realm %s, got %s", expectedRealm, claims.Realm)
	}
	return claims, nil
}
