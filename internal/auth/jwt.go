// Package auth guards the mutating API routes with signed bearer tokens.
//
// Write protection is optional: the server only installs RequireAuth when a
// JWT_SECRET is configured. Tokens are minted offline with cmd/token.
//
// A token is a JWT signed with HS256:
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Payload: {"iss":"forgenotes","sub":"alice","jti":"cv37rs3pp9olc6atsptg","exp":...}
//
// The server verifies the signature with the shared secret; there is no
// token store, so a token is valid until it expires.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	issuer = "forgenotes"

	// MinSecretLength is the shortest accepted signing secret.
	MinSecretLength = 16

	// DefaultTTL is the lifetime of a token when none is given.
	DefaultTTL = 30 * 24 * time.Hour
)

// Identity is what a valid token says about its bearer.
type Identity struct {
	Subject   string
	TokenID   string
	ExpiresAt time.Time
}

// TokenService issues and verifies tokens with one HMAC secret.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: JWT secret must be at least %d characters", MinSecretLength)
	}
	return &TokenService{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a token for subject valid for ttl. A zero ttl means
// DefaultTTL. Each token gets a unique ID (jti).
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("auth: token subject is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := s.now()
	c := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature, issuer, algorithm and expiry.
//
// jwt.WithValidMethods rejects "alg":"none" and any algorithm other than
// HS256, so a token cannot pick its own verification method.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	var c jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&c,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}
	if !token.Valid || c.Subject == "" {
		return nil, errors.New("auth: token has no subject")
	}

	return &Identity{
		Subject:   c.Subject,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
