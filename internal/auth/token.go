// File: internal/auth/token.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"fitcoach_backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const tokenIssuer = "fitcoach_backend"

// Claims carried by an access token.
type Claims struct {
	SessionID uuid.UUID `json:"sid"`
	Email     string    `json:"email"`
	jwt.RegisteredClaims
}

// TokenSigner issues and validates HS256 access tokens. Tokens are derived entirely from the
// session record, so the same record always yields the same token.
type TokenSigner struct {
	secret []byte
}

// NewTokenSigner creates a signer from AUTH_JWT_SECRET.
func NewTokenSigner(cfg *config.Config) *TokenSigner {
	return &TokenSigner{secret: []byte(cfg.JWTSecret)}
}

// Sign returns the access token for rec.
func (t *TokenSigner) Sign(rec *SessionRecord) (string, error) {
	claims := &Claims{
		SessionID: rec.ID,
		Email:     rec.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(rec.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(rec.issuedAt()),
			Issuer:    tokenIssuer,
			Subject:   rec.UserID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("could not sign access token: %w", err)
	}
	return signed, nil
}

// Parse validates signature, issuer and expiry, returning the claims.
func (t *TokenSigner) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken.WithDetails(err.Error())
	}
	if !token.Valid || claims.SessionID == uuid.Nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// toSession converts a record into its public form.
func (t *TokenSigner) toSession(rec *SessionRecord) (*Session, error) {
	token, err := t.Sign(rec)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Email:       rec.Email,
		AccessToken: token,
		ExpiresAt:   rec.ExpiresAt.Truncate(time.Second),
	}, nil
}
