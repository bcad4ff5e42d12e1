// Command seed provisions demo accounts for local development. It is
// idempotent: existing emails are left untouched.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/certtrack-api/internal/models"
	"github.com/noah-isme/certtrack-api/internal/repository"
	"github.com/noah-isme/certtrack-api/pkg/config"
	"github.com/noah-isme/certtrack-api/pkg/database"
)

type demoUser struct {
	email      string
	password   string
	fullName   string
	role       models.UserRole
	department string
}

var demoUsers = []demoUser{
	{"employee@example.com", "employee-demo-1", "Demo Employee", models.RoleEmployee, "Engineering"},
	{"manager@example.com", "manager-demo-1", "Demo Manager", models.RoleManager, "Engineering"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	repo := repository.NewUserRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, du := range demoUsers {
		if _, err := repo.FindByEmail(ctx, du.email); err == nil {
			log.Printf("skip %s: already exists", du.email)
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			log.Fatalf("lookup %s: %v", du.email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(du.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password for %s: %v", du.email, err)
		}

		dept := du.department
		user := &models.User{
			Email:        du.email,
			PasswordHash: string(hash),
			FullName:     du.fullName,
			Role:         du.role,
			Department:   &dept,
			Active:       true,
		}
		if err := repo.Create(ctx, user); err != nil {
			log.Fatalf("create %s: %v", du.email, err)
		}
		log.Printf("seeded %s (%s)", du.email, du.role)
	}
}
