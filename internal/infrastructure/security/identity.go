package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// SubjectKey is the gin context key holding the authenticated subject
const SubjectKey = "subject"

var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
)

// TokenIdentity resolves the current user's subject from an HS256-signed
// bearer token issued by the identity provider.
type TokenIdentity struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewTokenIdentity creates an identity collaborator for the shared secret.
// An empty issuer disables the issuer check.
func NewTokenIdentity(secret, issuer string, logger *zap.Logger) *TokenIdentity {
	return &TokenIdentity{
		secret: []byte(secret),
		issuer: issuer,
		logger: logger.Named("identity"),
	}
}

// Subject validates credential ("Bearer <jwt>" or a bare token) and returns
// its subject claim.
func (i *TokenIdentity) Subject(ctx context.Context, credential string) (string, error) {
	tokenString := strings.TrimSpace(credential)
	if len(tokenString) > 7 && strings.EqualFold(tokenString[:7], "bearer ") {
		tokenString = strings.TrimSpace(tokenString[7:])
	}
	if tokenString == "" {
		return "", ErrMissingCredential
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.secret, nil
	}, opts...)
	if err != nil {
		i.logger.Debug("Token rejected", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: subject claim is required", ErrInvalidCredential)
	}

	return claims.Subject, nil
}

// IssueToken signs a token for subject valid for ttl. It is used by tooling
// and tests that stand in for the identity provider.
func (i *TokenIdentity) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
