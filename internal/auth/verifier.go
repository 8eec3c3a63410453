// Package auth verifies the bearer tokens presented at the socket handshake
// and on REST requests. One Verifier implementation exists per strategy and
// NewVerifier picks one from configuration.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"chat-realtime/internal/apperrors"
	"chat-realtime/internal/config"
	"chat-realtime/pkg/logger"
)

// Identity is the authenticated principal behind a token.
type Identity struct {
	UserID string
	Email  string
}

type Verifier interface {
	// VerifyToken returns the identity behind token or an error wrapping
	// apperrors.ErrAuthentication.
	VerifyToken(ctx context.Context, token string) (*Identity, error)
}

// NewVerifier builds the verifier selected by cfg.Auth.Provider.
func NewVerifier(cfg *config.Config) (Verifier, error) {
	switch cfg.Auth.Provider {
	case config.AuthProviderJWT, "":
		return NewJWTVerifier(cfg.Auth.JWTSecret), nil
	case config.AuthProviderSession:
		return NewSessionVerifier(cfg.Auth.SessionURL, cfg.Auth.SessionCookie, nil), nil
	case config.AuthProviderMock:
		logger.Warn("Using mock token verifier. This should only be used for testing purposes.")
		return NewMockVerifier(DefaultMockUsers()), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Auth.Provider)
	}
}

// ValidateRequest authenticates an HTTP request carrying an
// "Authorization: Bearer <token>" header.
func ValidateRequest(ctx context.Context, v Verifier, r *http.Request) (*Identity, error) {
	token := BearerToken(r)
	if token == "" {
		return nil, apperrors.ErrAuthentication
	}
	return v.VerifyToken(ctx, token)
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// HandshakeToken extracts the socket handshake token: the "token" query
// parameter, falling back to the Authorization header.
func HandshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return BearerToken(r)
}

func invalid(reason string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrAuthentication, reason)
}
