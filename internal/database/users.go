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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateUser(ctx context.Context, params store.CreateUserParams) (*models.User, error) {
	if params.Email == "" {
		return nil, fmt.Errorf("%w: email is required", store.ErrValidation)
	}
	if params.PasswordHash == "" {
		return nil, fmt.Errorf("%w: password hash is required", store.ErrValidation)
	}

	role := params.Role
	if role == "" {
		role = models.RoleUser
	}

	userID := uuid.New().String()
	_, err := s.db.ExecContext(ctx, insertUserQuery,
		userID, strings.ToLower(params.Email), params.PasswordHash,
		params.FirstName, params.LastName, params.MiddleName, params.Phone, role)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("user with email %s %w", params.Email, store.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	zap.L().Info("User created", zap.String("user_id", userID), zap.String("role", role))
	return s.GetUserByID(ctx, userID)
}

func (s *Service) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserByIDQuery, userID))
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx, selectUserByEmailQuery, strings.ToLower(email)))
}

func (s *Service) ListUsers(ctx context.Context, filter store.UserFilter) ([]models.UserSummary, *models.Pagination, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := "WHERE 1=1"
	args := []any{}
	if filter.Search != "" {
		where += ` AND (u.email LIKE ? OR u.first_name LIKE ? OR u.last_name LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM users u ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := `
		SELECT u.id, u.email, u.password_hash, u.first_name, u.last_name, u.middle_name, u.phone,
			u.role, u.is_active, u.is_verified, u.created_at, u.updated_at,
			(SELECT COUNT(*) FROM banking_accounts ba WHERE ba.user_id = u.id) AS accounts_count
		FROM users u ` + where + `
		ORDER BY u.created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.UserSummary
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
			&u.MiddleName, &u.Phone, &u.Role, &u.IsActive, &u.IsVerified,
			&u.CreatedAt, &u.UpdatedAt, &u.AccountsCount); err != nil {
			return nil, nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		u.TotalBalance = decimal.Zero
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}

	if err := s.fillUserBalances(ctx, users); err != nil {
		return nil, nil, err
	}

	return users, paginate(page, limit, total), nil
}

// fillUserBalances sums the banking balances of the listed users in exact
// decimals. Stored amounts are TEXT, so the accumulation happens here rather
// than in SQL, which would coerce them to floats.
func (s *Service) fillUserBalances(ctx context.Context, users []models.UserSummary) error {
	if len(users) == 0 {
		return nil
	}

	ids := make([]any, len(users))
	placeholders := make([]string, len(users))
	index := make(map[string]int, len(users))
	for i := range users {
		ids[i] = users[i].ID
		placeholders[i] = "?"
		index[users[i].ID] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, balance FROM banking_accounts WHERE user_id IN (`+strings.Join(placeholders, ",")+`)`,
		ids...)
	if err != nil {
		return fmt.Errorf("failed to load user balances: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, balanceStr string
		if err := rows.Scan(&userID, &balanceStr); err != nil {
			return fmt.Errorf("failed to scan balance row: %w", err)
		}
		balance, err := parseDecimal(balanceStr)
		if err != nil {
			return err
		}
		i := index[userID]
		users[i].TotalBalance = users[i].TotalBalance.Add(balance)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate balance rows: %w", err)
	}
	return nil
}

func (s *Service) UpdateUser(ctx context.Context, userID string, params store.UpdateUserParams) (*models.User, error) {
	sets := []string{}
	args := []any{}
	if params.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, strings.ToLower(*params.Email))
	}
	if params.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *params.FirstName)
	}
	if params.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *params.LastName)
	}
	if params.MiddleName != nil {
		sets = append(sets, "middle_name = ?")
		args = append(args, *params.MiddleName)
	}
	if params.Phone != nil {
		sets = append(sets, "phone = ?")
		args = append(args, *params.Phone)
	}
	if params.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *params.IsActive)
	}
	if params.IsVerified != nil {
		sets = append(sets, "is_verified = ?")
		args = append(args, *params.IsVerified)
	}
	if params.Role != nil {
		if !isValidRole(*params.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, *params.Role)
		}
		sets = append(sets, "role = ?")
		args = append(args, *params.Role)
	}
	if len(sets) == 0 {
		return s.GetUserByID(ctx, userID)
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") + ", updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	args = append(args, userID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("email %w", store.ErrConflict)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, fmt.Errorf("user %s %w", userID, store.ErrNotFound)
	}

	return s.GetUserByID(ctx, userID)
}

func (s *Service) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, updateUserPasswordQuery, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("user %s %w", userID, store.ErrNotFound)
	}
	return nil
}

func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	result, err := s.db.ExecContext(ctx, setUserActiveQuery, active, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to set user active flag: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, fmt.Errorf("user %s %w", userID, store.ErrNotFound)
	}
	return s.GetUserByID(ctx, userID)
}

func (s *Service) SetUserRole(ctx context.Context, userID, role string) (*models.User, error) {
	if !isValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, role)
	}
	result, err := s.db.ExecContext(ctx, setUserRoleQuery, role, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to set user role: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, fmt.Errorf("user %s %w", userID, store.ErrNotFound)
	}
	return s.GetUserByID(ctx, userID)
}

// DeleteUser removes the user row. Accounts, operations, history, sessions
// and profit records follow through foreign key cascades.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	result, err := s.db.ExecContext(ctx, deleteUserQuery, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("user %s %w", userID, store.ErrNotFound)
	}
	zap.L().Info("User deleted", zap.String("user_id", userID))
	return nil
}

func (s *Service) RecordSession(ctx context.Context, userID, ipAddress, userAgent string) error {
	_, err := s.db.ExecContext(ctx, insertSessionQuery, uuid.New().String(), userID, ipAddress, userAgent)
	if err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}
	return nil
}

func (s *Service) CreatePasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, insertPasswordResetTokenQuery, uuid.New().String(), userID, token, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// ConsumePasswordResetToken validates a token and marks it used in one
// transaction. Returns the owning user id.
func (s *Service) ConsumePasswordResetToken(ctx context.Context, token string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var userID string
	var expiresAt time.Time
	var used bool
	err = tx.QueryRowContext(ctx, selectPasswordResetTokenQuery, token).Scan(&userID, &expiresAt, &used)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("reset token %w", store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up reset token: %w", err)
	}
	if used {
		return "", fmt.Errorf("%w: reset token already used", store.ErrValidation)
	}
	if time.Now().After(expiresAt) {
		return "", fmt.Errorf("%w: reset token expired", store.ErrValidation)
	}

	result, err := tx.ExecContext(ctx, markPasswordResetTokenUsedQuery, token)
	if err != nil {
		return "", fmt.Errorf("failed to mark reset token used: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return "", err
	} else if affected == 0 {
		return "", fmt.Errorf("reset token %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return userID, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName,
		&u.MiddleName, &u.Phone, &u.Role, &u.IsActive, &u.IsVerified,
		&u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

func isValidRole(role string) bool {
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleModerator:
		return true
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func paginate(page, limit, total int) *models.Pagination {
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &models.Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}
