// Command devtoken prints a signed token for a user so a socket client can
// connect to a server running with AUTH_PROVIDER=jwt.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"chat-realtime/internal/auth"
	"chat-realtime/pkg/logger"
)

func main() {
	userID := flag.String("user", "", "user id to put in the token")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if *userID == "" || secret == "" {
		fmt.Fprintln(os.Stderr, "usage: JWT_SECRET=... devtoken -user <id> [-ttl 1h]")
		os.Exit(2)
	}

	token, err := auth.NewJWTVerifier([]byte(secret)).IssueToken(*userID, *ttl)
	if err != nil {
		logger.Fatal("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}
