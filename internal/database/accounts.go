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
	"math/rand"
	"strings"
	"time"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateBankingAccount(ctx context.Context, params store.CreateBankingAccountParams) (*models.BankingAccount, error) {
	if params.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	currency := params.Currency
	if currency == "" {
		currency = "RUB"
	}

	accountID := uuid.New().String()
	var lastErr error
	for attempt := 0; attempt < 10; attempt++ {
		number := generateAccountNumber("BA")
		_, err := s.db.ExecContext(ctx, insertBankingAccountQuery,
			accountID, params.UserID, number, currency,
			params.BankName, params.BIK, params.INN, params.KPP, params.CorrAccount)
		if err == nil {
			zap.L().Info("Banking account created",
				zap.String("account_id", accountID),
				zap.String("account_number", number))
			return s.GetBankingAccount(ctx, accountID)
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("failed to create banking account: %w", err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to allocate unique account number: %w", lastErr)
}

func (s *Service) GetBankingAccount(ctx context.Context, accountID string) (*models.BankingAccount, error) {
	return scanBankingAccount(s.db.QueryRowContext(ctx, selectBankingAccountByIDQuery, accountID))
}

func (s *Service) ListBankingAccounts(ctx context.Context, userID string) ([]models.BankingAccount, decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, selectBankingAccountsByUserQuery, userID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to list banking accounts: %w", err)
	}
	defer rows.Close()

	accounts := []models.BankingAccount{}
	total := decimal.Zero
	for rows.Next() {
		account, err := scanBankingAccountRows(rows)
		if err != nil {
			return nil, decimal.Zero, err
		}
		accounts = append(accounts, *account)
		total = total.Add(account.Balance)
	}
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to iterate banking accounts: %w", err)
	}
	return accounts, total, nil
}

// UpdateBankingAccount applies an admin edit. A balance change is written
// through the ledger: the stored balance moves to the requested value and a
// completed deposit or withdrawal operation is synthesized for the difference
// so the operation log stays consistent with the account state. Returns the
// updated account and the number of operations synthesized.
func (s *Service) UpdateBankingAccount(ctx context.Context, accountID string, params store.UpdateBankingAccountParams) (*models.BankingAccount, int, error) {
	if params.Balance != nil && params.Balance.IsNegative() {
		return nil, 0, fmt.Errorf("%w: balance cannot be negative", store.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var current struct {
		id, userID, number, balance, currency string
		version                               int64
	}
	err = tx.QueryRowContext(ctx, selectBankingAccountForUpdateQuery, accountID).Scan(
		&current.id, &current.userID, &current.number, &current.balance, &current.currency, &current.version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("banking account %s %w", accountID, store.ErrNotFound)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load banking account: %w", err)
	}

	oldBalance, err := parseDecimal(current.balance)
	if err != nil {
		return nil, 0, err
	}

	sets := []string{}
	args := []any{}
	if params.AccountNumber != nil && *params.AccountNumber != current.number {
		var count int
		if err := tx.QueryRowContext(ctx, countBankingAccountNumberQuery, *params.AccountNumber).Scan(&count); err != nil {
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
	if params.BankName != nil {
		sets = append(sets, "bank_name = ?")
		args = append(args, *params.BankName)
	}
	if params.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *params.IsActive)
	}

	opsCreated := 0
	if params.Balance != nil {
		delta := params.Balance.Sub(oldBalance)
		if !delta.IsZero() {
			sets = append(sets, "balance = ?")
			args = append(args, params.Balance.String())

			currency := current.currency
			if params.Currency != nil {
				currency = *params.Currency
			}
			comment := fmt.Sprintf("Balance adjusted by administrator: %s", formatSignedAmount(delta, currency))
			if err := insertSyntheticOperation(ctx, tx, syntheticOperation{
				userID:      current.userID,
				accountID:   accountID,
				accountKind: models.AccountKindBanking,
				amount:      delta.Abs(),
				currency:    currency,
				comment:     comment,
			}, deltaOperationType(delta)); err != nil {
				return nil, 0, err
			}
			opsCreated++
		}
	}

	if len(sets) > 0 {
		query := "UPDATE banking_accounts SET " + strings.Join(sets, ", ") +
			", version = version + 1, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND version = ?"
		args = append(args, accountID, current.version)
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, 0, fmt.Errorf("account number %w", store.ErrConflict)
			}
			return nil, 0, fmt.Errorf("failed to update banking account: %w", err)
		}
		if affected, err := result.RowsAffected(); err != nil {
			return nil, 0, err
		} else if affected == 0 {
			return nil, 0, fmt.Errorf("banking account %s was modified concurrently: %w",
				accountID, store.ErrConcurrentModification)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Banking account updated",
		zap.String("account_id", accountID),
		zap.Int("operations_synthesized", opsCreated))

	account, err := s.GetBankingAccount(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}
	return account, opsCreated, nil
}

type bankingScanner interface {
	Scan(dest ...any) error
}

func scanBankingAccount(row *sql.Row) (*models.BankingAccount, error) {
	account, err := scanBankingAccountFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("banking account %w", store.ErrNotFound)
	}
	return account, err
}

func scanBankingAccountRows(rows *sql.Rows) (*models.BankingAccount, error) {
	return scanBankingAccountFrom(rows)
}

func scanBankingAccountFrom(scanner bankingScanner) (*models.BankingAccount, error) {
	var a models.BankingAccount
	var balance string
	err := scanner.Scan(&a.ID, &a.UserID, &a.AccountNumber, &balance, &a.Currency, &a.IsActive,
		&a.BankName, &a.BIK, &a.INN, &a.KPP, &a.CorrAccount, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan banking account: %w", err)
	}
	if a.Balance, err = parseDecimal(balance); err != nil {
		return nil, err
	}
	return &a, nil
}

// generateAccountNumber builds a prefixed account number from the current
// time plus a random suffix. Collisions are handled by the caller's retry.
func generateAccountNumber(prefix string) string {
	return fmt.Sprintf("%s%d%04d", prefix, time.Now().UnixMilli(), rand.Intn(10000))
}

func deltaOperationType(delta decimal.Decimal) string {
	if delta.IsNegative() {
		return models.OperationWithdrawal
	}
	return models.OperationDeposit
}

func formatSignedAmount(delta decimal.Decimal, currency string) string {
	if delta.IsNegative() {
		return fmt.Sprintf("%s %s", delta.String(), currency)
	}
	return fmt.Sprintf("+%s %s", delta.String(), currency)
}
