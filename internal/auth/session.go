package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SessionVerifier treats the token as a session cookie and asks the web
// application's session endpoint who it belongs to.
type SessionVerifier struct {
	baseURL    string
	cookieName string
	client     *http.Client
}

type sessionResponse struct {
	User *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func NewSessionVerifier(baseURL, cookieName string, client *http.Client) *SessionVerifier {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &SessionVerifier{
		baseURL:    strings.TrimRight(baseURL, "/"),
		cookieName: cookieName,
		client:     client,
	}
}

func (v *SessionVerifier) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, invalid("missing token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: v.cookieName, Value: token})

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, invalid(fmt.Sprintf("session lookup failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, invalid(fmt.Sprintf("session endpoint returned %d", resp.StatusCode))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, invalid("malformed session response")
	}
	if session.User == nil || session.User.ID == "" {
		return nil, invalid("no active session")
	}

	return &Identity{UserID: session.User.ID, Email: session.User.Email}, nil
}
