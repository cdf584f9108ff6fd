package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"customs-calc/pkg/auth"
	"customs-calc/pkg/config"
)

// Prints a bearer token for the /api/v1/admin endpoints.
func main() {
	userID := flag.Int64("user", 0, "user id recorded in the token (defaults to DEVELOPER_ID)")
	ttl := flag.Duration("ttl", 0, "token lifetime (defaults to JWT_EXPIRATION_HOURS)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.JWT.Configured() {
		log.Fatal("JWT_SECRET_KEY is not set, the server does not mount admin routes without it")
	}

	id := *userID
	if id == 0 {
		id = cfg.Telegram.DeveloperID
	}
	duration := cfg.JWT.Expiration
	if *ttl > 0 {
		duration = *ttl
	}

	token, err := auth.NewJWTManager(cfg.JWT.SecretKey, duration).GenerateToken(id, auth.RoleAdmin)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires at %s", time.Now().Add(duration).Format(time.RFC3339))
}
