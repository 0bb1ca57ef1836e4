package database

import (
	"context"
	"errors"
	"testing"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"
)

func TestCreateOperationResolvesAccountKind(t *testing.T) {
	s := setupTestDb(t)
	user := createTestUser(t, s, "resolve@example.com")
	banking := createTestBankingAccount(t, s, user.ID, "100")
	trading := createTestTradingAccount(t, s, user.ID, "100", "0")

	bankingOp := createDeposit(t, s, user.ID, banking.ID, "10")
	if bankingOp.AccountKind != models.AccountKindBanking {
		t.Errorf("kind = %s, want banking", bankingOp.AccountKind)
	}
	if bankingOp.AccountNumber != banking.AccountNumber {
		t.Errorf("account number = %s, want %s", bankingOp.AccountNumber, banking.AccountNumber)
	}
	if bankingOp.Currency != "RUB" {
		t.Errorf("currency = %s, want the account's RUB", bankingOp.Currency)
	}

	tradingOp := createDeposit(t, s, user.ID, trading.ID, "10")
	if tradingOp.AccountKind != models.AccountKindTrading {
		t.Errorf("kind = %s, want trading", tradingOp.AccountKind)
	}
}

func TestCreateOperationHidesForeignAccounts(t *testing.T) {
	s := setupTestDb(t)
	owner := createTestUser(t, s, "owner@example.com")
	intruder := createTestUser(t, s, "intruder@example.com")
	account := createTestBankingAccount(t, s, owner.ID, "100")

	_, err := s.CreateOperation(context.Background(), store.CreateOperationParams{
		UserID:        intruder.ID,
		AccountID:     account.ID,
		OperationType: models.OperationDeposit,
		Amount:        d(t, "10"),
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign account, got %v", err)
	}
}

func TestCreateOperationValidation(t *testing.T) {
	s := setupTestDb(t)
	user := createTestUser(t, s, "validation@example.com")
	account := createTestBankingAccount(t, s, user.ID, "100")
	ctx := context.Background()

	_, err := s.CreateOperation(ctx, store.CreateOperationParams{
		UserID:        user.ID,
		AccountID:     account.ID,
		OperationType: "transfer",
		Amount:        d(t, "10"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation for unknown type, got %v", err)
	}

	_, err = s.CreateOperation(ctx, store.CreateOperationParams{
		UserID:        user.ID,
		AccountID:     account.ID,
		OperationType: models.OperationDeposit,
		Amount:        d(t, "-5"),
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Errorf("expected ErrValidation for negative amount, got %v", err)
	}
}

func TestGetUserOperationScoping(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	owner := createTestUser(t, s, "scope-owner@example.com")
	other := createTestUser(t, s, "scope-other@example.com")
	account := createTestBankingAccount(t, s, owner.ID, "100")
	op := createDeposit(t, s, owner.ID, account.ID, "10")

	if _, err := s.GetUserOperation(ctx, owner.ID, op.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := s.GetUserOperation(ctx, other.ID, op.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign operation, got %v", err)
	}
}

func TestListOperationsFiltersAndPaginates(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "list@example.com")
	account := createTestBankingAccount(t, s, user.ID, "1000")

	for i := 0; i < 3; i++ {
		createDeposit(t, s, user.ID, account.ID, "10")
	}
	withdrawal := createWithdrawal(t, s, user.ID, account.ID, "5")
	if _, err := s.TransitionOperation(ctx, withdrawal.ID, models.StatusRejected, ""); err != nil {
		t.Fatalf("failed to reject withdrawal: %v", err)
	}

	// Status narrows the page to the three pending deposits; the account
	// seed wrote a completed one.
	deposits, pagination, err := s.ListOperations(ctx, store.OperationFilter{
		UserID: user.ID, Type: models.OperationDeposit, Status: models.StatusCreated, Page: 1, Limit: 2,
	})
	if err != nil {
		t.Fatalf("failed to list deposits: %v", err)
	}
	if len(deposits) != 2 {
		t.Errorf("page size = %d, want 2", len(deposits))
	}
	if pagination.Total != 3 || pagination.Pages != 2 {
		t.Errorf("pagination = %+v, want total 3 over 2 pages", pagination)
	}

	rejected, _, err := s.ListOperations(ctx, store.OperationFilter{
		UserID: user.ID, Status: models.StatusRejected, Page: 1, Limit: 10,
	})
	if err != nil {
		t.Fatalf("failed to list rejected: %v", err)
	}
	if len(rejected) != 1 {
		t.Errorf("rejected = %d, want 1", len(rejected))
	}
}

func TestDeleteOperationRefusesCompleted(t *testing.T) {
	s := setupTestDb(t)
	ctx := context.Background()
	user := createTestUser(t, s, "delete-op@example.com")
	account := createTestBankingAccount(t, s, user.ID, "1000")

	completed := createDeposit(t, s, user.ID, account.ID, "10")
	if _, err := s.TransitionOperation(ctx, completed.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("failed to complete deposit: %v", err)
	}
	if err := s.DeleteOperation(ctx, completed.ID); !errors.Is(err, store.ErrInvalidOperationState) {
		t.Fatalf("expected ErrInvalidOperationState, got %v", err)
	}

	pending := createDeposit(t, s, user.ID, account.ID, "10")
	if err := s.DeleteOperation(ctx, pending.ID); err != nil {
		t.Fatalf("failed to delete pending operation: %v", err)
	}
	if _, err := s.GetOperation(ctx, pending.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestInvalidTargetStatusRefused(t *testing.T) {
	s := setupTestDb(t)
	user := createTestUser(t, s, "bad-status@example.com")
	account := createTestBankingAccount(t, s, user.ID, "100")
	op := createDeposit(t, s, user.ID, account.ID, "10")

	_, err := s.TransitionOperation(context.Background(), op.ID, "done", "")
	if !errors.Is(err, store.ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}
