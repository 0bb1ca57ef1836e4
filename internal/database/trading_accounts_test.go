package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"
)

func listAccountOperations(t *testing.T, s *Service, userID string) []models.Operation {
	t.Helper()
	ops, _, err := s.ListOperations(context.Background(), store.OperationFilter{UserID: userID, Page: 1, Limit: 50})
	if err != nil {
		t.Fatalf("failed to list operations: %v", err)
	}
	return ops
}

func TestTradingAccountNumberHasPrefix(t *testing.T) {
	s := setupTestDb(t)
	user := createTestUser(t, s, "prefix@example.com")
	account := createTestTradingAccount(t, s, user.ID, "0", "0")

	if !strings.HasPrefix(account.AccountNumber, "TR") {
		t.Errorf("account number %q does not start with TR", account.AccountNumber)
	}
}

func TestProfitIncreaseSynthesizesDeposit(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-profit@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	profit := d(t, "50")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{Profit: &profit})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 1 {
		t.Fatalf("opsCreated = %d, want 1", opsCreated)
	}
	assertDecimal(t, updated.Profit, "50", "profit")
	assertDecimal(t, updated.Balance, "1050", "balance")

	ops := listAccountOperations(t, s, user.ID)
	if len(ops) != 1 {
		t.Fatalf("operations = %d, want 1", len(ops))
	}
	op := ops[0]
	if op.OperationType != models.OperationDeposit {
		t.Errorf("type = %s, want deposit", op.OperationType)
	}
	if op.Status != models.StatusCompleted {
		t.Errorf("status = %s, want completed", op.Status)
	}
	assertDecimal(t, op.Amount, "50", "operation amount")
	if !strings.Contains(op.Comment, "Profit adjusted") {
		t.Errorf("unexpected comment %q", op.Comment)
	}
	if op.RecipientDetails != "{}" {
		t.Errorf("recipient details = %q, want {}", op.RecipientDetails)
	}

	history, err := s.GetOperationHistory(ctx, op.ID)
	if err != nil {
		t.Fatalf("failed to load history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("history length = %d, want 1", len(history))
	}
}

func TestPrincipalDecreaseSynthesizesWithdrawal(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-principal@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	deposit := d(t, "940")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{DepositAmount: &deposit})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 1 {
		t.Fatalf("opsCreated = %d, want 1", opsCreated)
	}
	assertDecimal(t, updated.DepositAmount, "940", "deposit amount")

	ops := listAccountOperations(t, s, user.ID)
	if len(ops) != 1 {
		t.Fatalf("operations = %d, want 1", len(ops))
	}
	if ops[0].OperationType != models.OperationWithdrawal {
		t.Errorf("type = %s, want withdrawal", ops[0].OperationType)
	}
	assertDecimal(t, ops[0].Amount, "60", "operation amount")
}

func TestProfitAndPrincipalChangesSynthesizeTwoOperations(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-both@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "100")

	profit := d(t, "150")
	deposit := d(t, "900")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{
		Profit:        &profit,
		DepositAmount: &deposit,
	})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 2 {
		t.Fatalf("opsCreated = %d, want 2", opsCreated)
	}
	assertDecimal(t, updated.Balance, "1050", "balance")
}

func TestBalanceEditDerivesProfit(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-balance@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "100")

	balance := d(t, "1400")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{Balance: &balance})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 1 {
		t.Fatalf("opsCreated = %d, want 1", opsCreated)
	}
	assertDecimal(t, updated.DepositAmount, "1000", "deposit amount")
	assertDecimal(t, updated.Profit, "400", "profit")
	assertDecimal(t, updated.Balance, "1400", "balance")
}

func TestExplicitBalanceWinsOverDerivation(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-explicit@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "100")

	deposit := d(t, "1200")
	balance := d(t, "1500")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{
		DepositAmount: &deposit,
		Balance:       &balance,
	})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	// Only the principal delta gets an operation; the explicit balance
	// settles the profit part without a second entry.
	if opsCreated != 1 {
		t.Fatalf("opsCreated = %d, want 1", opsCreated)
	}
	assertDecimal(t, updated.DepositAmount, "1200", "deposit amount")
	assertDecimal(t, updated.Profit, "300", "profit")
	assertDecimal(t, updated.Balance, "1500", "balance")
}

func TestProfitAndBalanceEditsCoverDeltaOnce(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-profit-balance@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "100")

	profit := d(t, "150")
	balance := d(t, "1400")
	updated, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{
		Profit:  &profit,
		Balance: &balance,
	})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 2 {
		t.Fatalf("opsCreated = %d, want 2", opsCreated)
	}
	assertDecimal(t, updated.DepositAmount, "1000", "deposit amount")
	assertDecimal(t, updated.Profit, "400", "profit")
	assertDecimal(t, updated.Balance, "1400", "balance")

	// The two entries split the 300 move: 50 for the profit edit, 250 for
	// the rest of the balance move. Summed together they must equal it.
	ops := listAccountOperations(t, s, user.ID)
	if len(ops) != 2 {
		t.Fatalf("operations = %d, want 2", len(ops))
	}
	total := d(t, "0")
	for _, op := range ops {
		if op.OperationType != models.OperationDeposit {
			t.Errorf("type = %s, want deposit", op.OperationType)
		}
		total = total.Add(op.Amount)
	}
	assertDecimal(t, total, "300", "summed operation amounts")
}

func TestUnchangedValuesSynthesizeNothing(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-none@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	deposit := d(t, "1000")
	status := models.TradingInactive
	_, opsCreated, err := s.UpdateTradingAccount(ctx, account.ID, store.UpdateTradingAccountParams{
		DepositAmount: &deposit,
		Status:        &status,
	})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 0 {
		t.Fatalf("opsCreated = %d, want 0", opsCreated)
	}
	if ops := listAccountOperations(t, s, user.ID); len(ops) != 0 {
		t.Errorf("operations = %d, want 0", len(ops))
	}
}

func TestAccountNumberConflictRefused(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-conflict@example.com")
	first := createTestTradingAccount(t, s, user.ID, "0", "0")
	second := createTestTradingAccount(t, s, user.ID, "0", "0")

	_, _, err := s.UpdateTradingAccount(ctx, second.ID, store.UpdateTradingAccountParams{
		AccountNumber: &first.AccountNumber,
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestNegativeValuesRefused(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-negative@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")

	negative := d(t, "-1")
	for _, params := range []store.UpdateTradingAccountParams{
		{Profit: &negative},
		{DepositAmount: &negative},
		{Balance: &negative},
	} {
		if _, _, err := s.UpdateTradingAccount(ctx, account.ID, params); !errors.Is(err, store.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	}
}

func TestDeleteTradingAccountRemovesOperations(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-delete@example.com")
	account := createTestTradingAccount(t, s, user.ID, "1000", "0")
	createWithdrawal(t, s, user.ID, account.ID, "100")

	if err := s.DeleteTradingAccount(ctx, account.ID); err != nil {
		t.Fatalf("failed to delete account: %v", err)
	}
	if _, err := s.GetTradingAccount(ctx, account.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ops := listAccountOperations(t, s, user.ID); len(ops) != 0 {
		t.Errorf("operations = %d, want 0 after account deletion", len(ops))
	}
}

func TestBankingBalanceEditSynthesizesOperation(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "synth-banking@example.com")
	account := createTestBankingAccount(t, s, user.ID, "500")

	balance := d(t, "350")
	updated, opsCreated, err := s.UpdateBankingAccount(ctx, account.ID, store.UpdateBankingAccountParams{Balance: &balance})
	if err != nil {
		t.Fatalf("failed to update account: %v", err)
	}
	if opsCreated != 1 {
		t.Fatalf("opsCreated = %d, want 1", opsCreated)
	}
	assertDecimal(t, updated.Balance, "350", "balance")

	ops := listAccountOperations(t, s, user.ID)
	// The seed write plus this edit.
	if len(ops) != 2 {
		t.Fatalf("operations = %d, want 2", len(ops))
	}
	var withdrawals []models.Operation
	for _, op := range ops {
		if op.OperationType == models.OperationWithdrawal {
			withdrawals = append(withdrawals, op)
		}
	}
	if len(withdrawals) != 1 {
		t.Fatalf("withdrawals = %d, want 1", len(withdrawals))
	}
	assertDecimal(t, withdrawals[0].Amount, "150", "operation amount")
}
