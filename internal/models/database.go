package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role values for User.Role.
const (
	RoleUser      = "user"
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
)

// Operation types.
const (
	OperationDeposit    = "deposit"
	OperationWithdrawal = "withdrawal"
)

// Operation statuses. StatusCompleted and StatusRejected are terminal.
const (
	StatusCreated    = "created"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// Account kind discriminator stored on every operation.
const (
	AccountKindBanking = "banking"
	AccountKindTrading = "trading"
)

// Trading account statuses.
const (
	TradingActive   = "active"
	TradingInactive = "inactive"
	TradingClosed   = "closed"
)

// User represents a registered user of the back office.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"firstName"`
	LastName     string    `db:"last_name" json:"lastName"`
	MiddleName   string    `db:"middle_name" json:"middleName,omitempty"`
	Phone        string    `db:"phone" json:"phone,omitempty"`
	Role         string    `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	IsVerified   bool      `db:"is_verified" json:"isVerified"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// UserSummary is the admin listing row: user plus account aggregates.
type UserSummary struct {
	User
	AccountsCount int             `json:"accountsCount"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
}

// BankingAccount is a single-balance account holding external bank details.
// The bank metadata fields are descriptive only.
type BankingAccount struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	Balance       decimal.Decimal `db:"balance" json:"balance"`
	Currency      string          `db:"currency" json:"currency"`
	IsActive      bool            `db:"is_active" json:"isActive"`
	BankName      string          `db:"bank_name" json:"bankName,omitempty"`
	BIK           string          `db:"bik" json:"bik,omitempty"`
	INN           string          `db:"inn" json:"inn,omitempty"`
	KPP           string          `db:"kpp" json:"kpp,omitempty"`
	CorrAccount   string          `db:"corr_account" json:"corrAccount,omitempty"`
	Version       int64           `db:"version" json:"-"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// TradingAccount holds a two-part balance: principal (DepositAmount) and
// accrued gain (Profit). Balance is always derived as DepositAmount + Profit
// and never stored on its own.
type TradingAccount struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	Currency      string          `db:"currency" json:"currency"`
	Status        string          `db:"status" json:"status"`
	Percentage    decimal.Decimal `db:"percentage" json:"percentage"`
	DepositAmount decimal.Decimal `db:"deposit_amount" json:"depositAmount"`
	Profit        decimal.Decimal `db:"profit" json:"profit"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `db:"version" json:"-"`
	OwnerName     string          `json:"ownerName,omitempty"`
	OwnerEmail    string          `json:"ownerEmail,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updatedAt"`
}

// Operation is one funds-movement request (or an administratively synthesized
// one) against exactly one account.
type Operation struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"userId"`
	AccountID        string          `db:"account_id" json:"accountId"`
	AccountKind      string          `db:"account_kind" json:"accountKind"`
	AccountNumber    string          `json:"accountNumber,omitempty"`
	OperationType    string          `db:"operation_type" json:"operationType"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Currency         string          `db:"currency" json:"currency"`
	Status           string          `db:"status" json:"status"`
	Comment          string          `db:"comment" json:"comment,omitempty"`
	AdminComment     string          `db:"admin_comment" json:"adminComment,omitempty"`
	RecipientDetails string          `db:"recipient_details" json:"recipientDetails,omitempty"`
	ContactMethod    string          `db:"contact_method" json:"contactMethod,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// OperationHistory is an append-only record of one status transition.
type OperationHistory struct {
	ID          string    `db:"id" json:"id"`
	OperationID string    `db:"operation_id" json:"operationId"`
	StatusFrom  string    `db:"status_from" json:"statusFrom"`
	StatusTo    string    `db:"status_to" json:"statusTo"`
	Comment     string    `db:"comment" json:"comment,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// ProfitRecord is a periodic yield accrual entry for a trading account.
type ProfitRecord struct {
	ID            string          `db:"id" json:"id"`
	UserID        string          `db:"user_id" json:"userId"`
	AccountNumber string          `db:"account_number" json:"accountNumber"`
	FromDate      string          `db:"from_date" json:"fromDate"`
	ToDate        string          `db:"to_date" json:"toDate"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Percentage    decimal.Decimal `db:"percentage" json:"percentage"`
	OwnerName     string          `json:"ownerName,omitempty"`
	OwnerEmail    string          `json:"ownerEmail,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// Pagination describes one page of a listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// UserStats aggregates one user's accounts and recent operations.
type UserStats struct {
	BankBalance          decimal.Decimal `json:"bankBalance"`
	BankAccountsCount    int             `json:"bankAccountsCount"`
	TradingProfit        decimal.Decimal `json:"tradingProfit"`
	TradingAccountsCount int             `json:"tradingAccountsCount"`
	OperationsTotal      int             `json:"operationsTotal"`
	Deposits30Days       decimal.Decimal `json:"deposits30Days"`
	Withdrawals30Days    decimal.Decimal `json:"withdrawals30Days"`
	AvgPercentage        decimal.Decimal `json:"avgPercentage"`
}

// AdminStats aggregates counts and sums across the whole system.
type AdminStats struct {
	TotalUsers           int             `json:"totalUsers"`
	ActiveUsers          int             `json:"activeUsers"`
	BlockedUsers         int             `json:"blockedUsers"`
	BankAccounts         int             `json:"bankAccounts"`
	TradingAccounts      int             `json:"tradingAccounts"`
	TotalOperations      int             `json:"totalOperations"`
	DepositOperations    int             `json:"depositOperations"`
	WithdrawalOperations int             `json:"withdrawalOperations"`
	PendingOperations    int             `json:"pendingOperations"`
	ProcessingOperations int             `json:"processingOperations"`
	CompletedOperations  int             `json:"completedOperations"`
	RejectedOperations   int             `json:"rejectedOperations"`
	BankBalance          decimal.Decimal `json:"bankBalance"`
	TradingBalance       decimal.Decimal `json:"tradingBalance"`
	TotalDeposits        decimal.Decimal `json:"totalDeposits"`
	TotalWithdrawals     decimal.Decimal `json:"totalWithdrawals"`
}

// UserDetails is the admin drill-down view of one user.
type UserDetails struct {
	User             *User            `json:"user"`
	BankingAccounts  []BankingAccount `json:"accounts"`
	TradingAccounts  []TradingAccount `json:"tradingAccounts"`
	RecentOperations []Operation      `json:"recentOperations"`
}
