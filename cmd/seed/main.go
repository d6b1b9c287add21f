// Command seed creates a local development user and prints a session token
// and a full-access API key for it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/domain/apikey"
	"filevault/internal/domain/identity"
	"filevault/internal/domain/user"
	"filevault/internal/logging"
	"filevault/internal/pkg/jwt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.IsProd() {
		log.Fatal("seed refuses to run in production")
	}

	subject := os.Getenv("SEED_SUBJECT")
	if subject == "" {
		subject = "user_dev"
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	ctx := context.Background()
	logger := logging.Nop()

	ledger := user.NewLedger(user.NewRepository(db, cfg.DBTimeout), cfg.DefaultQuota, logger)
	u, err := ledger.Upsert(ctx, identity.Identity{
		SubjectID: subject,
		Email:     subject + "@example.com",
		FirstName: "Dev",
		LastName:  "User",
	})
	if err != nil {
		log.Fatalf("upsert user failed: %v", err)
	}

	tokens := jwt.New(cfg.SessionSecret, 30*24*time.Hour, cfg.SessionIssuer)
	token, err := tokens.GenerateToken(subject, jwt.Claims{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName})
	if err != nil {
		log.Fatalf("sign session failed: %v", err)
	}

	keys := apikey.NewService(apikey.NewRepository(db, cfg.DBTimeout), logger)
	_, plain, err := keys.Create(ctx, u.ID, "seed", []string{"read", "write", "delete"}, nil)
	if err != nil {
		log.Fatalf("create api key failed: %v", err)
	}
	keys.Wait()

	fmt.Printf("user_id:  %s\nprefix:   %s\nsession:  %s\napi_key:  %s\n", u.ID, u.Prefix, token, plain)
}
