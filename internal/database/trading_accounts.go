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

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Service) CreateTradingAccount(ctx context.Context, params store.CreateTradingAccountParams) (*models.TradingAccount, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	if params.DepositAmount.IsNegative() {
		return nil, fmt.Errorf("%w: deposit amount cannot be negative", store.ErrValidation)
	}
	if params.Percentage.IsNegative() {
		return nil, fmt.Errorf("%w: percentage cannot be negative", store.ErrValidation)
	}
	currency := params.Currency
	if currency == "" {
		currency = "USD"
	}

	accountID := uuid.New().String()
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		number := generateAccountNumber("TR")
		_, err := s.db.ExecContext(ctx, insertTradingAccountQuery,
			accountID, params.UserID, number, currency,
			params.Percentage.String(), params.DepositAmount.String())
		if err == nil {
			zap.L().Info("Trading account created",
				zap.String("account_id", accountID),
				zap.String("account_number", number))
			return s.GetTradingAccount(ctx, accountID)
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create trading account: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to allocate unique account number: %w", lastErr)
}

func (s *Service) GetTradingAccount(ctx context.Context, accountID string) (*models.TradingAccount, error) {
	account, err := scanTradingAccount(s.db.QueryRowContext(ctx, selectTradingAccountByIDQuery, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trading account %s %w", accountID, store.ErrNotFound)
	}
	return account, err
}

func (s *Service) ListUserTradingAccounts(ctx context.Context, userID string) ([]models.TradingAccount, error) {
	rows, err := s.db.QueryContext(ctx, selectTradingAccountsByUserQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trading accounts: %w", err)
	}
	defer rows.Close()
	return collectTradingAccounts(rows)
}

func (s *Service) ListTradingAccounts(ctx context.Context, filter store.TradingAccountFilter) ([]models.TradingAccount, *models.Pagination, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := "WHERE 1=1"
	args := []any{}
	if filter.Search != "" {
		where += ` AND (ta.account_number LIKE ? OR u.email LIKE ? OR u.first_name LIKE ? OR u.last_name LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if filter.Currency != "" {
		where += " AND ta.currency = ?"
		args = append(args, filter.Currency)
	}
	if filter.Status != "" {
		where += " AND ta.status = ?"
		args = append(args, filter.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM trading_accounts ta JOIN users u ON u.id = ta.user_id ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count trading accounts: %w", err)
	}

	listQuery := `
		SELECT ` + selectTradingAccountColumns + `,
			u.first_name || ' ' || u.last_name AS owner_name, u.email AS owner_email
		FROM trading_accounts ta
		JOIN users u ON u.id = ta.user_id ` + where + `
		ORDER BY ta.created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list trading accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.TradingAccount{}
	for rows.Next() {
		var a models.TradingAccount
		var percentage, deposit, profit string
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.Currency, &a.Status,
			&percentage, &deposit, &profit, &a.Version, &a.CreatedAt, &a.UpdatedAt,
			&a.OwnerName, &a.OwnerEmail); err != nil {
			return nil, nil, fmt.Errorf("failed to scan trading account row: %w", err)
		}
		if err := fillTradingAmounts(&a, percentage, deposit, profit); err != nil {
			return nil, nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate trading accounts: %w", err)
	}

	return accounts, paginate(page, limit, total), nil
}

// UpdateTradingAccount applies an admin edit and reconciles the operation log
// with whatever balance fields changed. For each changed field a completed
// operation is synthesized so the log still explains the account state:
//
//   - an explicit profit change produces one operation for the profit delta
//   - an explicit principal change produces one operation for that delta
//   - an explicit balance, sent without a principal change, produces one
//     operation for whatever part of the move the other edits have not
//     already covered, and re-derives profit as balance minus principal
//
// When both balance and principal are sent, the explicit balance decides the
// final state and no separate balance operation is written. Admin edits are
// trusted: no funds check applies and values may move in either direction.
func (s *Service) UpdateTradingAccount(ctx context.Context, accountID string, params store.UpdateTradingAccountParams) (*models.TradingAccount, int, error) {
	if params.Profit != nil && params.Profit.IsNegative() {
		return nil, 0, fmt.Errorf("%w: profit cannot be negative", store.ErrValidation)
	}
	if params.DepositAmount != nil && params.DepositAmount.IsNegative() {
		return nil, 0, fmt.Errorf("%w: deposit amount cannot be negative", store.ErrValidation)
	}
	if params.Balance != nil && params.Balance.IsNegative() {
		return nil, 0, fmt.Errorf("%w: balance cannot be negative", store.ErrValidation)
	}
	if params.Percentage != nil && params.Percentage.IsNegative() {
		return nil, 0, fmt.Errorf("%w: percentage cannot be negative", store.ErrValidation)
	}
	if params.Status != nil && !isValidTradingStatus(*params.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", store.ErrValidation, *params.Status)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		id, userID, number, currency, status string
		percentageStr, depositStr, profitStr string
		version                              int64
	}
	err = tx.QueryRowContext(ctx, selectTradingAccountForUpdateQuery, accountID).Scan(
		&current.id, &current.userID, &current.number, &current.currency, &current.status,
		&current.percentageStr, &current.depositStr, &current.profitStr, &current.version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("trading account %s %w", accountID, store.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load trading account: %w", err)
	}

	oldDeposit, err := parseDecimal(current.depositStr)
	if err != nil {
		return nil, 0, err
	}
	oldProfit, err := parseDecimal(current.profitStr)
	if err != nil {
		return nil, 0, err
	}

	currency := current.currency
	if params.Currency != nil {
		currency = *params.Currency
	}

	newDeposit := oldDeposit
	if params.DepositAmount != nil {
		newDeposit = *params.DepositAmount
	}
	newProfit := oldProfit
	if params.Profit != nil {
		newProfit = *params.Profit
	}

	opsCreated := 0
	if params.Profit != nil {
		delta := params.Profit.Sub(oldProfit)
		if !delta.IsZero() {
			comment := fmt.Sprintf("Profit adjusted by administrator: %s", formatSignedAmount(delta, currency))
			if err := insertSyntheticOperation(ctx, tx, syntheticOperation{
				userID:      current.userID,
				accountID:   accountID,
				accountKind: models.AccountKindTrading,
				amount:      delta.Abs(),
				currency:    currency,
				comment:     comment,
			}, deltaOperationType(delta)); err != nil {
				return nil, 0, err
			}
			opsCreated++
		}
	}
	if params.DepositAmount != nil {
		delta := params.DepositAmount.Sub(oldDeposit)
		if !delta.IsZero() {
			comment := fmt.Sprintf("Principal adjusted by administrator: %s", formatSignedAmount(delta, currency))
			if err := insertSyntheticOperation(ctx, tx, syntheticOperation{
				userID:      current.userID,
				accountID:   accountID,
				accountKind: models.AccountKindTrading,
				amount:      delta.Abs(),
				currency:    currency,
				comment:     comment,
			}, deltaOperationType(delta)); err != nil {
				return nil, 0, err
			}
			opsCreated++
		}
	}
	if params.Balance != nil {
		derivedProfit := params.Balance.Sub(newDeposit)
		if params.DepositAmount == nil {
			// Delta against the state the edits above already produced,
			// so a simultaneous profit edit is not counted twice.
			delta := params.Balance.Sub(newDeposit.Add(newProfit))
			if !delta.IsZero() {
				comment := fmt.Sprintf("Balance adjusted by administrator: %s", formatSignedAmount(delta, currency))
				if err := insertSyntheticOperation(ctx, tx, syntheticOperation{
					userID:      current.userID,
					accountID:   accountID,
					accountKind: models.AccountKindTrading,
					amount:      delta.Abs(),
					currency:    currency,
					comment:     comment,
				}, deltaOperationType(delta)); err != nil {
					return nil, 0, err
				}
				opsCreated++
			}
		}
		newProfit = derivedProfit
	}

	sets := []string{"deposit_amount = ?", "profit = ?"}
	args := []any{newDeposit.String(), newProfit.String()}
	if params.AccountNumber != nil && *params.AccountNumber != current.number {
		var count int
		if err := tx.QueryRowContext(ctx, countTradingAccountNumberQuery, *params.AccountNumber).Scan(&count); err != nil {
			return nil, 0, fmt.Errorf("failed to check account number: %w", err)
		}
		if count > 0 {
			return nil, 0, fmt.Errorf("account number %s %w", *params.AccountNumber, store.ErrConflict)
		}
		sets = append(sets, "account_number = ?")
		args = append(args, *params.AccountNumber)
	}
	if params.Currency != nil {
		sets = append(sets, "currency = ?")
		args = append(args, *params.Currency)
	}
	if params.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *params.Status)
	}
	if params.Percentage != nil {
		sets = append(sets, "percentage = ?")
		args = append(args, params.Percentage.String())
	}

	query := "UPDATE trading_accounts SET " + strings.Join(sets, ", ") +
		", version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?"
	args = append(args, accountID, current.version)

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, 0, fmt.Errorf("account number %w", store.ErrConflict)
		}
		return nil, 0, fmt.Errorf("failed to update trading account: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, 0, err
	} else if affected == 0 {
		return nil, 0, fmt.Errorf("trading account %s was modified concurrently: %w",
			accountID, store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Trading account updated",
		zap.String("account_id", accountID),
		zap.Int("operations_synthesized", opsCreated))

	account, err := s.GetTradingAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return account, opsCreated, nil
}

func (s *Service) SetTradingAccountStatus(ctx context.Context, accountID, status string) (*models.TradingAccount, error) {
	if !isValidTradingStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", store.ErrValidation, status)
	}
	result, err := s.db.ExecContext(ctx, setTradingAccountStatusQuery, status, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to set trading account status: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if affected == 0 {
		return nil, fmt.Errorf("trading account %s %w", accountID, store.ErrNotFound)
	}
	return s.GetTradingAccount(ctx, accountID)
}

// DeleteTradingAccount removes the account together with its operations.
// Operations reference accounts of either kind through one column, so the
// cleanup is explicit rather than a foreign key cascade.
func (s *Service) DeleteTradingAccount(ctx context.Context, accountID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteTradingOperationsQuery, accountID); err != nil {
		return fmt.Errorf("failed to delete trading operations: %w", err)
	}
	result, err := tx.ExecContext(ctx, deleteTradingAccountQuery, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete trading account: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("trading account %s %w", accountID, store.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	zap.L().Info("Trading account deleted", zap.String("account_id", accountID))
	return nil
}

func scanTradingAccount(row *sql.Row) (*models.TradingAccount, error) {
	var a models.TradingAccount
	var percentage, deposit, profit string
	err := row.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.Currency, &a.Status,
		&percentage, &deposit, &profit, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := fillTradingAmounts(&a, percentage, deposit, profit); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectTradingAccounts(rows *sql.Rows) ([]models.TradingAccount, error) {
	accounts := []models.TradingAccount{}
	for rows.Next() {
		var a models.TradingAccount
		var percentage, deposit, profit string
		if err := rows.Scan(&a.ID, &a.UserID, &a.AccountNumber, &a.Currency, &a.Status,
			&percentage, &deposit, &profit, &a.Version, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trading account row: %w", err)
		}
		if err := fillTradingAmounts(&a, percentage, deposit, profit); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trading accounts: %w", err)
	}
	return accounts, nil
}

// fillTradingAmounts parses the stored amounts and derives the total balance.
func fillTradingAmounts(a *models.TradingAccount, percentage, deposit, profit string) error {
	var err error
	if a.Percentage, err = parseDecimal(percentage); err != nil {
		return err
	}
	if a.DepositAmount, err = parseDecimal(deposit); err != nil {
		return err
	}
	if a.Profit, err = parseDecimal(profit); err != nil {
		return err
	}
	a.Balance = a.DepositAmount.Add(a.Profit)
	return nil
}

func isValidTradingStatus(status string) bool {
	switch status {
	case models.TradingActive, models.TradingInactive, models.TradingClosed:
		return true
	}
	return false
}
