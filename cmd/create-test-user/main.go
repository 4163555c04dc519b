package main

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"policyassist-backend/config"
	"policyassist-backend/models"
	"policyassist-backend/repository"
)

// demoUsers are the accounts of the demo login. Department and country
// given at login override the stored values.
var demoUsers = []struct {
	username   string
	password   string
	role       string
	department string
	country    string
}{
	{"test_user", "password123", "employee", "engineering", "india"},
	{"emp", "emp123", "employee", "product", "foreign"},
	{"hr_bob", "hrpass", "HR", "hr", "india"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()
	pool, err := repository.Connect(ctx, cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)

	for _, u := range demoUsers {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}

		user := &models.User{
			Username:     u.username,
			PasswordHash: string(hashedPassword),
			Roles:        []string{u.role},
			Department:   u.department,
			Country:      u.country,
		}
		if err := users.Upsert(ctx, user); err != nil {
			log.Fatalf("Failed to create user %s: %v", u.username, err)
		}

		fmt.Printf("✅ %s (%s, %s/%s)\n", u.username, u.role, u.department, u.country)
		fmt.Printf("   ID: %s\n", user.ID)
		fmt.Printf("   Password: %s\n", u.password)
	}
}
