// seed inserts a verified test user into the local dev database so login
// can be tried without going through the activation email.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/infrastructure/postgres"
	"github.com/ErlanBelekov/user-auth/internal/password"
)

const (
	seedName     = "seed"
	seedEmail    = "seed@test.local"
	seedPassword = "seed-password-123"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set, run: direnv allow")
	}

	if err := postgres.Migrate(dbURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	hash, err := password.NewBcryptHasher(password.DefaultCost).Hash(seedPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	users := postgres.NewUserRepository(pool)
	u, err := users.Insert(ctx, &domain.User{
		Name:         seedName,
		Email:        seedEmail,
		PasswordHash: hash,
		Verified:     true,
	})
	switch {
	case errors.Is(err, domain.ErrEmailTaken):
		fmt.Printf("Seed user %s already exists\n", seedEmail)
	case err != nil:
		log.Fatalf("insert user: %v", err)
	default:
		fmt.Println("Seed complete")
		fmt.Println()
		fmt.Printf("  User:     %s\n", seedEmail)
		fmt.Printf("  User ID:  %s\n", u.ID)
	}

	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  curl -si -X POST http://localhost:8080/auth/login \\")
	fmt.Println("    -H 'Content-Type: application/json' \\")
	fmt.Printf("    -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println("  # → 303 See Other, Set-Cookie: session=eyJ...")
	fmt.Println()
	fmt.Println("  curl -s http://localhost:8080/main -H \"Authorization: Bearer $TOKEN\"")
}
