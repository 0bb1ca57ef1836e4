/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command createadmin bootstraps an administrator account so the admin
// console is reachable on a fresh database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"time"

	"account-backoffice-go/internal/common"
	"account-backoffice-go/internal/config"
	"account-backoffice-go/internal/database"
	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func main() {
	logger, cleanup := common.InitializeLogger()
	defer cleanup()

	var (
		email     = flag.String("email", "", "admin email address (required)")
		password  = flag.String("password", "", "admin password, at least 8 characters (required)")
		firstName = flag.String("first-name", "Admin", "admin first name")
		lastName  = flag.String("last-name", "User", "admin last name")
	)
	flag.Parse()

	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}
	if !emailPattern.MatchString(*email) {
		logger.Fatal("Invalid email address", zap.String("email", *email))
	}
	if len(*password) < 8 {
		logger.Fatal("Password must be at least 8 characters")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), 12)
	if err != nil {
		logger.Fatal("Failed to hash password", zap.Error(err))
	}

	user, err := db.CreateUser(ctx, store.CreateUserParams{
		Email:        *email,
		PasswordHash: string(hash),
		FirstName:    *firstName,
		LastName:     *lastName,
		Role:         models.RoleAdmin,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			logger.Fatal("A user with this email already exists", zap.String("email", *email))
		}
		logger.Fatal("Failed to create admin user", zap.Error(err))
	}

	fmt.Printf("Admin user created: %s (%s)\n", user.Email, user.ID)
}
