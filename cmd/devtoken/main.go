// Command devtoken prints a signed bearer token for local development.
// Production tokens come from the identity service; this only mirrors its
// claim layout so the API can be exercised without it.
//
//	JWT_SECRET=dev go run ./cmd/devtoken -role procurement -email ops@example.com
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"nakl/internal/config"
	"nakl/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	role := flag.String("role", middleware.RoleAdmin, "admin | procurement | evaluator | finance")
	email := flag.String("email", "dev@nakl.local", "email claim")
	userID := flag.String("user", "", "user id claim (random when empty)")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	switch *role {
	case middleware.RoleAdmin, middleware.RoleProcurement, middleware.RoleEvaluator, middleware.RoleFinance:
	default:
		log.Fatal().Str("role", *role).Msg("unknown role")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.IsProduction() {
		log.Fatal().Msg("refusing to mint tokens with APP_ENV=production")
	}

	id := *userID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		log.Fatal().Err(err).Msg("-user must be a uuid")
	}

	now := time.Now()
	claims := middleware.JWTClaims{
		UserID: id,
		Email:  *email,
		Role:   *role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(*ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatal().Err(err).Msg("sign token")
	}
	fmt.Println(signed)
}
