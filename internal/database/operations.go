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

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateOperation registers a deposit or withdrawal request in the created
// status. Withdrawals are pre-checked against the current spendable balance
// so obviously uncovered requests are refused up front; the authoritative
// check happens again when the operation is completed.
func (s *Service) CreateOperation(ctx context.Context, params store.CreateOperationParams) (*models.Operation, error) {
	if params.OperationType != models.OperationDeposit && params.OperationType != models.OperationWithdrawal {
		return nil, fmt.Errorf("%w: unknown operation type %q", store.ErrValidation, params.OperationType)
	}
	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	var kind, ownerID, currency, principalStr, profitStr string
	err := s.db.QueryRowContext(ctx, resolveAccountQuery, params.AccountID, params.AccountID).Scan(
		&kind, &ownerID, &currency, &principalStr, &profitStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("account %s %w", params.AccountID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve account: %w", err)
	}
	// Accounts of other users are indistinguishable from missing ones.
	if ownerID != params.UserID {
		return nil, fmt.Errorf("account %s %w", params.AccountID, store.ErrNotFound)
	}

	if params.OperationType == models.OperationWithdrawal {
		principal, err := parseDecimal(principalStr)
		if err != nil {
			return nil, err
		}
		profit, err := parseDecimal(profitStr)
		if err != nil {
			return nil, err
		}
		spendable := principal.Add(profit)
		if spendable.LessThan(params.Amount) {
			return nil, fmt.Errorf("%w: balance %s, requested %s",
				store.ErrInsufficientFunds, spendable.String(), params.Amount.String())
		}
	}

	if params.Currency == "" {
		params.Currency = currency
	}
	recipientDetails := params.RecipientDetails
	if recipientDetails == "" {
		recipientDetails = "{}"
	}

	operationID := uuid.New().String()
	_, err = s.db.ExecContext(ctx, insertOperationQuery,
		operationID, params.UserID, params.AccountID, kind, params.OperationType,
		params.Amount.String(), params.Currency, models.StatusCreated,
		params.Comment, "", recipientDetails, params.ContactMethod)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation: %w", err)
	}

	zap.L().Info("Operation created",
		zap.String("operation_id", operationID),
		zap.String("type", params.OperationType),
		zap.String("amount", params.Amount.String()))

	return s.GetOperation(ctx, operationID)
}

func (s *Service) GetOperation(ctx context.Context, operationID string) (*models.Operation, error) {
	return scanOperation(s.db.QueryRowContext(ctx, selectOperationByIDQuery, operationID))
}

func (s *Service) GetUserOperation(ctx context.Context, userID, operationID string) (*models.Operation, error) {
	return scanOperation(s.db.QueryRowContext(ctx, selectUserOperationQuery, operationID, userID))
}

func (s *Service) ListOperations(ctx context.Context, filter store.OperationFilter) ([]models.Operation, *models.Pagination, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := "WHERE 1=1"
	args := []any{}
	if filter.UserID != "" {
		where += " AND o.user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		where += " AND o.status = ?"
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		where += " AND o.operation_type = ?"
		args = append(args, filter.Type)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM operations o ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count operations: %w", err)
	}

	listQuery := `SELECT ` + selectOperationColumns + selectOperationJoins + `
	` + where + `
	ORDER BY o.created_at DESC, o.id DESC
	LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list operations: %w", err)
	}
	defer rows.Close()

	operations := []models.Operation{}
	for rows.Next() {
		op, err := scanOperationFrom(rows)
		if err != nil {
			return nil, nil, err
		}
		operations = append(operations, *op)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate operations: %w", err)
	}

	return operations, paginate(page, limit, total), nil
}

// DeleteOperation removes an operation that never touched a balance.
// Completed operations are part of the ledger and cannot be deleted.
func (s *Service) DeleteOperation(ctx context.Context, operationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	op, err := loadOperationForUpdate(ctx, tx, operationID)
	if err != nil {
		return err
	}
	if op.status == models.StatusCompleted {
		return fmt.Errorf("%w: completed operations cannot be deleted", store.ErrInvalidOperationState)
	}

	if _, err := tx.ExecContext(ctx, deleteOperationQuery, operationID); err != nil {
		return fmt.Errorf("failed to delete operation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	zap.L().Info("Operation deleted", zap.String("operation_id", operationID))
	return nil
}

func (s *Service) GetOperationHistory(ctx context.Context, operationID string) ([]models.OperationHistory, error) {
	rows, err := s.db.QueryContext(ctx, selectOperationHistoryQuery, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation history: %w", err)
	}
	defer rows.Close()

	history := []models.OperationHistory{}
	for rows.Next() {
		var h models.OperationHistory
		if err := rows.Scan(&h.ID, &h.OperationID, &h.StatusFrom, &h.StatusTo, &h.Comment, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		history = append(history, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return history, nil
}

type operationScanner interface {
	Scan(dest ...any) error
}

func scanOperation(row *sql.Row) (*models.Operation, error) {
	op, err := scanOperationFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %w", store.ErrNotFound)
	}
	return op, err
}

func scanOperationFrom(scanner operationScanner) (*models.Operation, error) {
	var op models.Operation
	var amount string
	err := scanner.Scan(&op.ID, &op.UserID, &op.AccountID, &op.AccountKind, &op.OperationType,
		&amount, &op.Currency, &op.Status, &op.Comment, &op.AdminComment,
		&op.RecipientDetails, &op.ContactMethod, &op.CreatedAt, &op.UpdatedAt, &op.AccountNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan operation: %w", err)
	}
	if op.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	return &op, nil
}
