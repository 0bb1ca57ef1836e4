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

package api

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minPasswordLength = 8

// ErrInvalidCredentials covers both unknown users and wrong passwords so the
// login response never reveals which one it was.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrAccountBlocked is returned when a deactivated user attempts to log in.
var ErrAccountBlocked = errors.New("account is blocked")

const passwordResetTTL = time.Hour

func (s *Service) Register(ctx context.Context, req models.RegisterRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: invalid email address", store.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, minPasswordLength)
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, fmt.Errorf("%w: first and last name are required", store.ErrValidation)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, store.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MiddleName:   req.MiddleName,
		Phone:        req.Phone,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, user, "Registration successful", ipAddress, userAgent)
}

func (s *Service) Login(ctx context.Context, req models.LoginRequest, ipAddress, userAgent string) (*models.AuthResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountBlocked
	}

	return s.issueSession(ctx, user, "Login successful", ipAddress, userAgent)
}

func (s *Service) issueSession(ctx context.Context, user *models.User, message, ipAddress, userAgent string) (*models.AuthResponse, error) {
	token, err := s.auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecordSession(ctx, user.ID, ipAddress, userAgent); err != nil {
		zap.L().Warn("Failed to record session", zap.String("user_id", user.ID), zap.Error(err))
	}
	return &models.AuthResponse{Message: message, User: user, Token: token}, nil
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	return s.store.GetUserByID(ctx, userID)
}

// RequestPasswordReset creates a reset token for the given email. The
// response is identical whether or not the email is registered.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			zap.L().Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token := uuid.New().String()
	if err := s.store.CreatePasswordResetToken(ctx, user.ID, token, time.Now().Add(passwordResetTTL)); err != nil {
		return err
	}

	s.notifier.PasswordReset(ctx, user, token)
	return nil
}

func (s *Service) ConfirmPasswordReset(ctx context.Context, req models.PasswordResetConfirm) error {
	if len(req.NewPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, minPasswordLength)
	}

	userID, err := s.store.ConsumePasswordResetToken(ctx, req.Token)
	if err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return err
	}

	zap.L().Info("Password reset completed", zap.String("user_id", userID))
	return nil
}
