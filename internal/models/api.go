package models

import "github.com/shopspring/decimal"

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName"`
	Phone      string `json:"phone"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token and the authenticated user.
type AuthResponse struct {
	Message string `json:"message"`
	User    *User  `json:"user"`
	Token   string `json:"token"`
}

// PasswordResetRequest is the body of POST /auth/password-reset/request.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirm is the body of POST /auth/password-reset/confirm.
type PasswordResetConfirm struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// CreateBankingAccountRequest is the body of POST /accounts.
type CreateBankingAccountRequest struct {
	Currency    string `json:"currency"`
	BankName    string `json:"bankName"`
	BIK         string `json:"bik"`
	INN         string `json:"inn"`
	KPP         string `json:"kpp"`
	CorrAccount string `json:"corrAccount"`
}

// CreateDepositRequest is the body of POST /operations/deposit.
type CreateDepositRequest struct {
	AccountID     string          `json:"accountId"`
	Amount        decimal.Decimal `json:"amount"`
	Comment       string          `json:"comment"`
	ContactMethod string          `json:"contactMethod"`
}

// CreateWithdrawalRequest is the body of POST /operations/withdrawal.
type CreateWithdrawalRequest struct {
	AccountID        string          `json:"accountId"`
	Amount           decimal.Decimal `json:"amount"`
	Comment          string          `json:"comment"`
	RecipientDetails map[string]any  `json:"recipientDetails"`
}

// UpdateOperationStatusRequest is the body of PUT /admin/operations/{id}/status.
type UpdateOperationStatusRequest struct {
	Status       string `json:"status"`
	AdminComment string `json:"adminComment"`
}

// ProcessDepositRequest is the body of POST /admin/operations/{id}/process-deposit.
// Amount is the admin-confirmed settled amount and replaces the requested one.
type ProcessDepositRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	AdminComment string          `json:"adminComment"`
}

// CreateTradingAccountRequest is the body of POST /admin/trading-accounts.
type CreateTradingAccountRequest struct {
	UserID        string          `json:"userId"`
	Currency      string          `json:"currency"`
	Percentage    decimal.Decimal `json:"percentage"`
	DepositAmount decimal.Decimal `json:"depositAmount"`
}

// UpdateTradingAccountRequest is the body of PUT /admin/trading-accounts/{id}.
// Nil fields are left unchanged; balance-bearing fields trigger
// reconciliation synthesis.
type UpdateTradingAccountRequest struct {
	AccountNumber *string          `json:"accountNumber"`
	Profit        *decimal.Decimal `json:"profit"`
	DepositAmount *decimal.Decimal `json:"depositAmount"`
	Balance       *decimal.Decimal `json:"balance"`
	Percentage    *decimal.Decimal `json:"percentage"`
	Currency      *string          `json:"currency"`
	Status        *string          `json:"status"`
}

// UpdateBankingAccountRequest is the body of PUT /admin/accounts/{id}.
type UpdateBankingAccountRequest struct {
	AccountNumber *string          `json:"accountNumber"`
	Balance       *decimal.Decimal `json:"balance"`
	Currency      *string          `json:"currency"`
	BankName      *string          `json:"bankName"`
	IsActive      *bool            `json:"isActive"`
}

// AdminCreateUserRequest is the body of POST /admin/users.
type AdminCreateUserRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
}

// UpdateUserRequest is the body of PUT /admin/users/{id}.
type UpdateUserRequest struct {
	Email      *string `json:"email"`
	FirstName  *string `json:"firstName"`
	LastName   *string `json:"lastName"`
	MiddleName *string `json:"middleName"`
	Phone      *string `json:"phone"`
	IsActive   *bool   `json:"isActive"`
	IsVerified *bool   `json:"isVerified"`
	Role       *string `json:"role"`
}

// CreateProfitRequest is the body of POST /admin/profits.
type CreateProfitRequest struct {
	UserID        string          `json:"userId"`
	AccountNumber string          `json:"accountNumber"`
	FromDate      string          `json:"fromDate"`
	ToDate        string          `json:"toDate"`
	Amount        decimal.Decimal `json:"amount"`
	Percentage    decimal.Decimal `json:"percentage"`
}
