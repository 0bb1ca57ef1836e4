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
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// operationRow is the minimal operation state loaded inside a mutating
// transaction.
type operationRow struct {
	id            string
	userID        string
	accountID     string
	accountKind   string
	operationType string
	amount        decimal.Decimal
	currency      string
	status        string
}

// syntheticOperation describes a completed operation written by the
// reconciliation path rather than by a user request.
type syntheticOperation struct {
	userID      string
	accountID   string
	accountKind string
	amount      decimal.Decimal
	currency    string
	comment     string
}

// TransitionOperation moves an operation to a new status. Completing an
// operation applies its amount to the account balance inside the same
// transaction; the funds check for withdrawals is always re-done here, no
// matter what was checked when the request was created.
func (s *Service) TransitionOperation(ctx context.Context, operationID, newStatus, adminComment string) (*models.Operation, error) {
	switch newStatus {
	case models.StatusCreated, models.StatusProcessing, models.StatusCompleted, models.StatusRejected:
	default:
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidStatus, newStatus)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	op, err := loadOperationForUpdate(ctx, tx, operationID)
	if err != nil {
		return nil, err
	}
	if op.status == models.StatusCompleted || op.status == models.StatusRejected {
		return nil, fmt.Errorf("%w: operation already %s", store.ErrInvalidOperationState, op.status)
	}

	if newStatus == models.StatusCompleted {
		if err := s.applyOperationTx(ctx, tx, op, op.amount); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, updateOperationStatusQuery, newStatus, adminComment, operationID); err != nil {
		return nil, fmt.Errorf("failed to update operation status: %w", err)
	}
	if err := insertHistory(ctx, tx, operationID, op.status, newStatus, adminComment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Operation transitioned",
		zap.String("operation_id", operationID),
		zap.String("from", op.status),
		zap.String("to", newStatus))

	return s.GetOperation(ctx, operationID)
}

// ProcessDeposit completes a pending deposit crediting the amount confirmed
// by the administrator, which overrides whatever the user originally
// requested.
func (s *Service) ProcessDeposit(ctx context.Context, operationID string, amount decimal.Decimal, adminComment string) (*models.Operation, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	op, err := loadOperationForUpdate(ctx, tx, operationID)
	if err != nil {
		return nil, err
	}
	if op.operationType != models.OperationDeposit {
		return nil, fmt.Errorf("%w: operation %s is not a deposit", store.ErrInvalidOperationState, operationID)
	}
	if op.status != models.StatusCreated {
		return nil, fmt.Errorf("%w: deposit is %s, expected %s", store.ErrInvalidOperationState, op.status, models.StatusCreated)
	}

	if err := s.applyOperationTx(ctx, tx, op, amount); err != nil {
		return nil, err
	}

	comment := adminComment
	if comment == "" {
		comment = "Funds credited"
	}
	if _, err := tx.ExecContext(ctx, updateOperationStatusAmountQuery,
		models.StatusCompleted, amount.String(), comment, operationID); err != nil {
		return nil, fmt.Errorf("failed to update operation: %w", err)
	}
	if err := insertHistory(ctx, tx, operationID, op.status, models.StatusCompleted, comment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Deposit processed",
		zap.String("operation_id", operationID),
		zap.String("amount", amount.String()))

	return s.GetOperation(ctx, operationID)
}

// applyOperationTx mutates the target account balance for an operation that
// is being completed. Must run inside the caller's transaction.
func (s *Service) applyOperationTx(ctx context.Context, tx *sql.Tx, op *operationRow, amount decimal.Decimal) error {
	switch op.accountKind {
	case models.AccountKindBanking:
		return s.applyBankingTx(ctx, tx, op, amount)
	case models.AccountKindTrading:
		return s.applyTradingTx(ctx, tx, op, amount)
	default:
		return fmt.Errorf("unknown account kind %q for operation %s", op.accountKind, op.id)
	}
}

func (s *Service) applyBankingTx(ctx context.Context, tx *sql.Tx, op *operationRow, amount decimal.Decimal) error {
	var id, userID, number, balanceStr, currency string
	var version int64
	err := tx.QueryRowContext(ctx, selectBankingAccountForUpdateQuery, op.accountID).Scan(
		&id, &userID, &number, &balanceStr, &currency, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("banking account %s %w", op.accountID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load banking account: %w", err)
	}

	balance, err := parseDecimal(balanceStr)
	if err != nil {
		return err
	}

	var newBalance decimal.Decimal
	switch op.operationType {
	case models.OperationDeposit:
		newBalance = balance.Add(amount)
	case models.OperationWithdrawal:
		if balance.LessThan(amount) {
			return fmt.Errorf("%w: balance %s, requested %s", store.ErrInsufficientFunds, balance.String(), amount.String())
		}
		newBalance = balance.Sub(amount)
	default:
		return fmt.Errorf("unknown operation type %q", op.operationType)
	}

	result, err := tx.ExecContext(ctx, updateBankingBalanceQuery, newBalance.String(), op.accountID, version)
	if err != nil {
		return fmt.Errorf("failed to update banking balance: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("banking account %s was modified concurrently: %w", op.accountID, store.ErrConcurrentModification)
	}
	return nil
}

func (s *Service) applyTradingTx(ctx context.Context, tx *sql.Tx, op *operationRow, amount decimal.Decimal) error {
	var id, userID, number, currency, status, percentageStr, depositStr, profitStr string
	var version int64
	err := tx.QueryRowContext(ctx, selectTradingAccountForUpdateQuery, op.accountID).Scan(
		&id, &userID, &number, &currency, &status, &percentageStr, &depositStr, &profitStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("trading account %s %w", op.accountID, store.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to load trading account: %w", err)
	}

	deposit, err := parseDecimal(depositStr)
	if err != nil {
		return err
	}
	profit, err := parseDecimal(profitStr)
	if err != nil {
		return err
	}

	var newDeposit, newProfit decimal.Decimal
	switch op.operationType {
	case models.OperationDeposit:
		// Deposits grow the principal. Profit is only ever moved by
		// yield accruals and admin adjustments.
		newDeposit = deposit.Add(amount)
		newProfit = profit
	case models.OperationWithdrawal:
		newProfit, newDeposit, err = drawDown(profit, deposit, amount)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown operation type %q", op.operationType)
	}

	result, err := tx.ExecContext(ctx, updateTradingBalanceQuery,
		newDeposit.String(), newProfit.String(), op.accountID, version)
	if err != nil {
		return fmt.Errorf("failed to update trading balance: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("trading account %s was modified concurrently: %w", op.accountID, store.ErrConcurrentModification)
	}
	return nil
}

// drawDown withdraws from a two-part trading balance, consuming profit first
// and only then principal. Fails when profit plus principal cannot cover the
// amount; neither part may go negative.
func drawDown(profit, deposit, amount decimal.Decimal) (newProfit, newDeposit decimal.Decimal, err error) {
	total := profit.Add(deposit)
	if total.LessThan(amount) {
		return profit, deposit, fmt.Errorf("%w: balance %s, requested %s",
			store.ErrInsufficientFunds, total.String(), amount.String())
	}
	if profit.GreaterThanOrEqual(amount) {
		return profit.Sub(amount), deposit, nil
	}
	remainder := amount.Sub(profit)
	return decimal.Zero, deposit.Sub(remainder), nil
}

func loadOperationForUpdate(ctx context.Context, tx *sql.Tx, operationID string) (*operationRow, error) {
	var op operationRow
	var amountStr string
	err := tx.QueryRowContext(ctx, selectOperationForUpdateQuery, operationID).Scan(
		&op.id, &op.userID, &op.accountID, &op.accountKind, &op.operationType,
		&amountStr, &op.currency, &op.status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("operation %s %w", operationID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load operation: %w", err)
	}
	if op.amount, err = parseDecimal(amountStr); err != nil {
		return nil, err
	}
	return &op, nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, operationID, from, to, comment string) error {
	_, err := tx.ExecContext(ctx, insertOperationHistoryQuery,
		uuid.New().String(), operationID, from, to, comment)
	if err != nil {
		return fmt.Errorf("failed to record operation history: %w", err)
	}
	return nil
}

// insertSyntheticOperation writes an already-completed operation produced by
// an admin account edit, plus its single history row. The balance mutation
// itself is the caller's responsibility.
func insertSyntheticOperation(ctx context.Context, tx *sql.Tx, synth syntheticOperation, operationType string) error {
	operationID := uuid.New().String()
	_, err := tx.ExecContext(ctx, insertOperationQuery,
		operationID, synth.userID, synth.accountID, synth.accountKind, operationType,
		synth.amount.String(), synth.currency, models.StatusCompleted,
		synth.comment, "", "{}", "")
	if err != nil {
		return fmt.Errorf("failed to insert synthesized operation: %w", err)
	}
	return insertHistory(ctx, tx, operationID, models.StatusCreated, models.StatusCompleted, synth.comment)
}
