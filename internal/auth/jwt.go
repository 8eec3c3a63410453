package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) VerifyToken(_ context.Context, tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, invalid("missing token")
	}

	token, err := jwt.ParseWithClaims(tokenString, jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, invalid(err.Error())
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, invalid("invalid token")
	}

	// Issuers disagree on where the user id lives.
	userID := firstString(claims, "userId", "sub", "id", "user_id")
	if userID == "" {
		return nil, invalid("token carries no user id")
	}

	email, _ := claims["email"].(string)
	return &Identity{UserID: userID, Email: email}, nil
}

// IssueToken signs a token for userID. Used by tests and local tooling; the
// production issuer lives outside this service.
func (v *JWTVerifier) IssueToken(userID string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"userId": userID,
		"sub":    userID,
		"exp":    time.Now().Add(ttl).Unix(),
		"iat":    time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

func firstString(claims jwt.MapClaims, keys ...string) string {
	for _, key := range keys {
		switch v := claims[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
