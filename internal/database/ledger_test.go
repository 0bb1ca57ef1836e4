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
	"path/filepath"
	"sync"
	"testing"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/shopspring/decimal"
)

func setupTestDb(t *testing.T) *Service {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps concurrent transactions serialized the same
	// way for every run.
	db.SetMaxOpenConns(1)

	service, err := NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func createTestUser(t *testing.T, s *Service, email string) *models.User {
	t.Helper()
	user, err := s.CreateUser(context.Background(), store.CreateUserParams{
		Email:        email,
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     "User",
	})
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestTradingAccount opens a trading account with the given principal
// and profit already applied.
func createTestTradingAccount(t *testing.T, s *Service, userID, deposit, profit string) *models.TradingAccount {
	t.Helper()
	ctx := context.Background()

	account, err := s.CreateTradingAccount(ctx, store.CreateTradingAccountParams{
		UserID:        userID,
		Currency:      "USD",
		DepositAmount: d(t, deposit),
	})
	if err != nil {
		t.Fatalf("failed to create trading account: %v", err)
	}
	if profit != "0" {
		p := d(t, profit)
		if account, _, err = s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{Profit: &p}); err != nil {
			t.Fatalf("failed to seed profit: %v", err)
		}
	}
	return account
}

func createTestBankingAccount(t *testing.T, s *Service, userID, balance string) *models.BankingAccount {
	t.Helper()
	ctx := context.Background()

	account, err := s.CreateBankingAccount(ctx, store.CreateBankingAccountParams{
		UserID:   userID,
		Currency: "RUB",
	})
	if err != nil {
		t.Fatalf("failed to create banking account: %v", err)
	}
	if balance != "0" {
		b := d(t, balance)
		if account, _, err = s.UpdateBankingAccount(ctx, account.ID, store.UpdateBankingAccountParams{Balance: &b}); err != nil {
			t.Fatalf("failed to seed balance: %v", err)
		}
	}
	return account
}

func createWithdrawal(t *testing.T, s *Service, userID, accountID, amount string) *models.Operation {
	t.Helper()
	op, err := s.CreateOperation(context.Background(), store.CreateOperationParams{
		UserID:        userID,
		AccountID:     accountID,
		OperationType: models.OperationWithdrawal,
		Amount:        d(t, amount),
	})
	if err != nil {
		t.Fatalf("failed to create withdrawal: %v", err)
	}
	return op
}

func createDeposit(t *testing.T, s *Service, userID, accountID, amount string) *models.Operation {
	t.Helper()
	op, err := s.CreateOperation(context.Background(), store.CreateOperationParams{
		UserID:        userID,
		AccountID:     accountID,
		OperationType: models.OperationDeposit,
		Amount:        d(t, amount),
	})
	if err != nil {
		t.Fatalf("failed to create deposit: %v", err)
	}
	return op
}

func d(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	dec, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("invalid decimal %q: %v", value, err)
	}
	return dec
}

func assertDecimal(t *testing.T, got decimal.Decimal, want string, label string) {
	t.Helper()
	if !got.Equal(d(t, want)) {
		t.Errorf("%s = %s, want %s", label, got.String(), want)
	}
}

func TestDrawDown(t *testing.T) {
	tests := []struct {
		name                    string
		profit, deposit, amount string
		wantProfit, wantDeposit string
		wantInsufficient        bool
	}{
		{name: "profit covers", profit: "300", deposit: "1000", amount: "200", wantProfit: "100", wantDeposit: "1000"},
		{name: "exact profit", profit: "300", deposit: "1000", amount: "300", wantProfit: "0", wantDeposit: "1000"},
		{name: "spills into principal", profit: "300", deposit: "1000", amount: "400", wantProfit: "0", wantDeposit: "900"},
		{name: "drains everything", profit: "300", deposit: "1000", amount: "1300", wantProfit: "0", wantDeposit: "0"},
		{name: "no profit", profit: "0", deposit: "500", amount: "500", wantProfit: "0", wantDeposit: "0"},
		{name: "over balance", profit: "300", deposit: "1000", amount: "1300.01", wantInsufficient: true},
		{name: "fractional", profit: "0.10", deposit: "100", amount: "0.25", wantProfit: "0", wantDeposit: "99.85"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotProfit, gotDeposit, err := drawDown(d(t, tt.profit), d(t, tt.deposit), d(t, tt.amount))
			if tt.wantInsufficient {
				if !errors.Is(err, store.ErrInsufficientFunds) {
					t.Fatalf("expected ErrInsufficientFunds, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertDecimal(t, gotProfit, tt.wantProfit, "profit")
			assertDecimal(t, gotDeposit, tt.wantDeposit, "deposit")
		})
	}
}

func TestWithdrawalDrawsProfitFirst(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "profit-first@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "300")

	op := createWithdrawal(t, s, user.ID, account.ID, "200")
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, "paid out"); err != nil {
		t.Fatalf("failed to complete withdrawal: %v", err)
	}

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Profit, "100", "profit")
	assertDecimal(t, updated.DepositAmount, "1000", "deposit amount")
	assertDecimal(t, updated.Balance, "1100", "balance")
}

func TestWithdrawalSpillsIntoPrincipal(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "spill@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "300")

	op := createWithdrawal(t, s, user.ID, account.ID, "400")
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete withdrawal: %v", err)
	}

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Profit, "0", "profit")
	assertDecimal(t, updated.DepositAmount, "900", "deposit amount")
}

func TestWithdrawalRejectedWhenUncovered(t *testing.T) {
	s := setupTestDb(t)
	user := createTestUser(t, s, "uncovered@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "300")

	_, err := s.CreateOperation(context.Background(), store.CreateOperationParams{
		UserID:        user.ID,
		AccountID:     account.ID,
		OperationType: models.OperationWithdrawal,
		Amount:        d(t, "1301"),
	})
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestFundsRecheckedOnCompletion(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "recheck@example.com")
	account := createTestTradingAccount(t, s, user.ID, "500", "0")

	// Both requests pass the creation-time check against the full balance.
	first := createWithdrawal(t, s, user.ID, account.ID, "300")
	second := createWithdrawal(t, s, user.ID, account.ID, "300")

	if _, err := s.TransitionOperation(ctx, first.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete first withdrawal: %v", err)
	}
	_, err := s.TransitionOperation(ctx, second.ID, models.StatusCompleted, "")
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	// The failed completion must leave both the account and the operation
	// untouched.
	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Balance, "200", "balance")

	op, err := s.GetOperation(ctx, second.ID)
	if err != nil {
		t.Fatalf("failed to reload operation: %v", err)
	}
	if op.Status != models.StatusCreated {
		t.Errorf("operation status = %s, want %s", op.Status, models.StatusCreated)
	}
}

func TestTerminalStatusesAreImmutable(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "terminal@example.com")
	account := createTestTradingAccount(t, s, user.ID, "500", "0")

	completed := createWithdrawal(t, s, user.ID, account.ID, "100")
	if _, err := s.TransitionOperation(ctx, completed.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete withdrawal: %v", err)
	}
	if _, err := s.TransitionOperation(ctx, completed.ID, models.StatusRejected, ""); !errors.Is(err, store.ErrInvalidOperationState) {
		t.Fatalf("expected ErrInvalidOperationState for completed operation, got %v", err)
	}

	rejected := createWithdrawal(t, s, user.ID, account.ID, "100")
	if _, err := s.TransitionOperation(ctx, rejected.ID, models.StatusRejected, "declined"); err != nil {
		t.Fatalf("failed to reject withdrawal: %v", err)
	}
	if _, err := s.TransitionOperation(ctx, rejected.ID, models.StatusCompleted, ""); !errors.Is(err, store.ErrInvalidOperationState) {
		t.Fatalf("expected ErrInvalidOperationState for rejected operation, got %v", err)
	}
}

func TestRejectionLeavesBalanceUntouched(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "reject@example.com")
	account := createTestTradingAccount(t, s, user.ID, "500", "100")

	op := createWithdrawal(t, s, user.ID, account.ID, "200")
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusRejected, "suspicious"); err != nil {
		t.Fatalf("failed to reject withdrawal: %v", err)
	}

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Balance, "600", "balance")
	assertDecimal(t, updated.Profit, "100", "profit")
}

func TestDepositCreditsOnlyPrincipal(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "principal@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "250")

	op := createDeposit(t, s, user.ID, account.ID, "500")
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete deposit: %v", err)
	}

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.DepositAmount, "1500", "deposit amount")
	assertDecimal(t, updated.Profit, "250", "profit")
}

func TestProcessDepositOverridesRequestedAmount(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "override@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	op := createDeposit(t, s, user.ID, account.ID, "100")
	processed, err := s.ProcessDeposit(ctx, op.ID, d(t, "150"), "wire settled for 150")
	if err != nil {
		t.Fatalf("failed to process deposit: %v", err)
	}
	if processed.Status != models.StatusCompleted {
		t.Errorf("status = %s, want %s", processed.Status, models.StatusCompleted)
	}
	assertDecimal(t, processed.Amount, "150", "operation amount")

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.DepositAmount, "1150", "deposit amount")

	history, err := s.GetOperationHistory(ctx, op.ID)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history length = %d, want 1", len(history))
	}
	if history[0].StatusFrom != models.StatusCreated || history[0].StatusTo != models.StatusCompleted {
		t.Errorf("history transition = %s -> %s, want created -> completed",
			history[0].StatusFrom, history[0].StatusTo)
	}
}

func TestProcessDepositGuards(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "guards@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	withdrawal := createWithdrawal(t, s, user.ID, account.ID, "100")
	if _, err := s.ProcessDeposit(ctx, withdrawal.ID, d(t, "100"), ""); !errors.Is(err, store.ErrInvalidOperationState) {
		t.Errorf("expected ErrInvalidOperationState for withdrawal, got %v", err)
	}

	deposit := createDeposit(t, s, user.ID, account.ID, "100")
	if _, err := s.ProcessDeposit(ctx, deposit.ID, d(t, "0"), ""); !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation for zero amount, got %v", err)
	}

	if _, err := s.ProcessDeposit(ctx, deposit.ID, d(t, "100"), ""); err != nil {
		t.Fatalf("failed to process deposit: %v", err)
	}
	if _, err := s.ProcessDeposit(ctx, deposit.ID, d(t, "100"), ""); !errors.Is(err, store.ErrInvalidOperationState) {
		t.Errorf("expected ErrInvalidOperationState for settled deposit, got %v", err)
	}
}

func TestTransitionRecordsHistory(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "history@example.com")
	account := createTestTradingAccount(t, s, user.ID, "500", "0")

	op := createWithdrawal(t, s, user.ID, account.ID, "100")
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusProcessing, "in review"); err != nil {
		t.Fatalf("failed to move to processing: %v", err)
	}
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, "paid"); err != nil {
		t.Fatalf("failed to complete: %v", err)
	}

	history, err := s.GetOperationHistory(ctx, op.ID)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].StatusTo != models.StatusProcessing || history[1].StatusTo != models.StatusCompleted {
		t.Errorf("unexpected transition order: %s then %s", history[0].StatusTo, history[1].StatusTo)
	}
}

func TestBankingWithdrawalAndDeposit(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "banking@example.com")
	account := createTestBankingAccount(t, s, user.ID, "1000")

	withdrawal := createWithdrawal(t, s, user.ID, account.ID, "250")
	if _, err := s.TransitionOperation(ctx, withdrawal.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete withdrawal: %v", err)
	}

	deposit := createDeposit(t, s, user.ID, account.ID, "100")
	if _, err := s.TransitionOperation(ctx, deposit.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete deposit: %v", err)
	}

	updated, err := s.GetBankingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Balance, "850", "balance")
}

func TestConcurrentWithdrawalsOnlyOneSucceeds(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "concurrent@example.com")
	account := createTestTradingAccount(t, s, user.ID, "500", "0")

	first := createWithdrawal(t, s, user.ID, account.ID, "300")
	second := createWithdrawal(t, s, user.ID, account.ID, "300")

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, id := range []string{first.ID, second.ID} {
		wg.Add(1)
		go func(operationID string) {
			defer wg.Done()
			_, err := s.TransitionOperation(ctx, operationID, models.StatusCompleted, "")
			results <- err
		}(id)
	}
	wg.Wait()
	close(results)

	var succeeded, refused int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, store.ErrInsufficientFunds), errors.Is(err, store.ErrConcurrentModification):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || refused != 1 {
		t.Fatalf("succeeded = %d, refused = %d, want exactly one of each", succeeded, refused)
	}

	updated, err := s.GetTradingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, updated.Balance, "200", "balance")
}

func TestFailedHistoryWriteRollsBackBalance(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "atomic@example.com")
	account := createTestBankingAccount(t, s, user.ID, "500")
	op := createWithdrawal(t, s, user.ID, account.ID, "200")

	// Force the last write of the transaction to fail, after the balance
	// and status updates have already executed.
	if _, err := s.db.ExecContext(ctx, `
		CREATE TRIGGER history_locked BEFORE INSERT ON operation_history
		BEGIN SELECT RAISE(ABORT, 'history locked'); END`); err != nil {
		t.Fatalf("failed to create trigger: %v", err)
	}

	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, ""); err == nil {
		t.Fatal("expected transition to fail")
	}

	reloaded, err := s.GetBankingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, reloaded.Balance, "500", "balance after rollback")

	current, err := s.GetOperation(ctx, op.ID)
	if err != nil {
		t.Fatalf("failed to reload operation: %v", err)
	}
	if current.Status != models.StatusCreated {
		t.Errorf("status = %s, want created after rollback", current.Status)
	}

	if _, err := s.db.ExecContext(ctx, "DROP TRIGGER history_locked"); err != nil {
		t.Fatalf("failed to drop trigger: %v", err)
	}
	if _, err := s.TransitionOperation(ctx, op.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("retry after dropping trigger failed: %v", err)
	}
	reloaded, err = s.GetBankingAccount(ctx, account.ID)
	if err != nil {
		t.Fatalf("failed to reload account: %v", err)
	}
	assertDecimal(t, reloaded.Balance, "300", "balance after retry")
}
