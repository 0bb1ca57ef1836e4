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

package store

import (
	"context"
	"errors"
	"time"

	"account-backoffice-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all layers. The HTTP boundary maps these to
// status codes; everything not in this list is treated as an internal error.
var (
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("already exists")
	ErrValidation             = errors.New("validation failed")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidStatus          = errors.New("invalid operation status")
	ErrInvalidOperationState  = errors.New("operation is not in the expected state")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// CreateUserParams contains the parameters for creating a user.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	MiddleName   string
	Phone        string
	Role         string
}

// UpdateUserParams carries optional user fields for admin edits. Nil means
// "leave unchanged".
type UpdateUserParams struct {
	Email      *string
	FirstName  *string
	LastName   *string
	MiddleName *string
	Phone      *string
	IsActive   *bool
	IsVerified *bool
	Role       *string
}

// CreateBankingAccountParams contains the parameters for opening a banking account.
type CreateBankingAccountParams struct {
	UserID      string
	Currency    string
	BankName    string
	BIK         string
	INN         string
	KPP         string
	CorrAccount string
}

// UpdateBankingAccountParams carries optional banking account fields for admin
// edits. A non-nil Balance triggers reconciliation synthesis for the delta.
type UpdateBankingAccountParams struct {
	AccountNumber *string
	Balance       *decimal.Decimal
	Currency      *string
	BankName      *string
	IsActive      *bool
}

// CreateTradingAccountParams contains the parameters for opening a trading account.
type CreateTradingAccountParams struct {
	UserID        string
	Currency      string
	Percentage    decimal.Decimal
	DepositAmount decimal.Decimal
}

// UpdateTradingAccountParams carries optional trading account fields for admin
// edits. Non-nil Profit, DepositAmount and Balance trigger reconciliation
// synthesis for each delta independently.
type UpdateTradingAccountParams struct {
	AccountNumber *string
	Profit        *decimal.Decimal
	DepositAmount *decimal.Decimal
	Balance       *decimal.Decimal
	Percentage    *decimal.Decimal
	Currency      *string
	Status        *string
}

// CreateOperationParams contains the parameters for a user-initiated
// deposit or withdrawal request.
type CreateOperationParams struct {
	UserID           string
	AccountID        string
	OperationType    string
	Amount           decimal.Decimal
	Currency         string
	Comment          string
	RecipientDetails string
	ContactMethod    string
}

// OperationFilter narrows operation listings.
type OperationFilter struct {
	UserID string
	Status string
	Type   string
	Page   int
	Limit  int
}

// UserFilter narrows user listings.
type UserFilter struct {
	Search string
	Page   int
	Limit  int
}

// TradingAccountFilter narrows trading account listings.
type TradingAccountFilter struct {
	Search   string
	Currency string
	Status   string
	Page     int
	Limit    int
}

// ProfitFilter narrows profit record listings.
type ProfitFilter struct {
	Search string
	Page   int
	Limit  int
}

// CreateProfitParams contains the parameters for recording a yield period.
type CreateProfitParams struct {
	UserID        string
	AccountNumber string
	FromDate      string
	ToDate        string
	Amount        decimal.Decimal
	Percentage    decimal.Decimal
}

// BackOfficeStore defines the contract the service layer depends on. The
// sqlite implementation lives in internal/database.
type BackOfficeStore interface {
	// --- Users ---
	CreateUser(ctx context.Context, params CreateUserParams) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]models.UserSummary, *models.Pagination, error)
	UpdateUser(ctx context.Context, userID string, params UpdateUserParams) (*models.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
	SetUserActive(ctx context.Context, userID string, active bool) (*models.User, error)
	SetUserRole(ctx context.Context, userID, role string) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
	RecordSession(ctx context.Context, userID, ipAddress, userAgent string) error

	// --- Password reset ---
	CreatePasswordResetToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	ConsumePasswordResetToken(ctx context.Context, token string) (string, error)

	// --- Banking accounts ---
	CreateBankingAccount(ctx context.Context, params CreateBankingAccountParams) (*models.BankingAccount, error)
	GetBankingAccount(ctx context.Context, accountID string) (*models.BankingAccount, error)
	ListBankingAccounts(ctx context.Context, userID string) ([]models.BankingAccount, decimal.Decimal, error)
	UpdateBankingAccount(ctx context.Context, accountID string, params UpdateBankingAccountParams) (*models.BankingAccount, int, error)

	// --- Trading accounts ---
	CreateTradingAccount(ctx context.Context, params CreateTradingAccountParams) (*models.TradingAccount, error)
	GetTradingAccount(ctx context.Context, accountID string) (*models.TradingAccount, error)
	ListTradingAccounts(ctx context.Context, filter TradingAccountFilter) ([]models.TradingAccount, *models.Pagination, error)
	ListUserTradingAccounts(ctx context.Context, userID string) ([]models.TradingAccount, error)
	UpdateTradingAccount(ctx context.Context, accountID string, params UpdateTradingAccountParams) (*models.TradingAccount, int, error)
	SetTradingAccountStatus(ctx context.Context, accountID, status string) (*models.TradingAccount, error)
	DeleteTradingAccount(ctx context.Context, accountID string) error

	// --- Operations ---
	CreateOperation(ctx context.Context, params CreateOperationParams) (*models.Operation, error)
	GetOperation(ctx context.Context, operationID string) (*models.Operation, error)
	GetUserOperation(ctx context.Context, userID, operationID string) (*models.Operation, error)
	ListOperations(ctx context.Context, filter OperationFilter) ([]models.Operation, *models.Pagination, error)
	TransitionOperation(ctx context.Context, operationID, newStatus, adminComment string) (*models.Operation, error)
	ProcessDeposit(ctx context.Context, operationID string, amount decimal.Decimal, adminComment string) (*models.Operation, error)
	DeleteOperation(ctx context.Context, operationID string) error
	GetOperationHistory(ctx context.Context, operationID string) ([]models.OperationHistory, error)

	// --- Profit records ---
	CreateProfit(ctx context.Context, params CreateProfitParams) (*models.ProfitRecord, error)
	ListProfits(ctx context.Context, filter ProfitFilter) ([]models.ProfitRecord, *models.Pagination, error)
	DeleteProfit(ctx context.Context, profitID string) error

	// --- Stats ---
	GetUserStats(ctx context.Context, userID string) (*models.UserStats, error)
	GetAdminStats(ctx context.Context) (*models.AdminStats, error)
	GetUserDetails(ctx context.Context, userID string) (*models.UserDetails, error)

	// --- Lifecycle ---
	Close()
}
