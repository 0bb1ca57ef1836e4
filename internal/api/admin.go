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

package api

import (
	"context"
	"fmt"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users      []models.UserSummary `json:"users"`
	Pagination *models.Pagination   `json:"pagination"`
}

// TradingAccountPage is one page of the admin trading account listing.
type TradingAccountPage struct {
	Accounts   []models.TradingAccount `json:"accounts"`
	Pagination *models.Pagination      `json:"pagination"`
}

// ProfitPage is one page of the profit record listing.
type ProfitPage struct {
	Profits    []models.ProfitRecord `json:"profits"`
	Pagination *models.Pagination    `json:"pagination"`
}

// AccountUpdateResult reports an admin account edit together with how many
// operations the reconciliation pass synthesized.
type AccountUpdateResult[T any] struct {
	Account           T   `json:"account"`
	OperationsCreated int `json:"operationsCreated"`
}

// --- Users ---

func (s *Service) ListUsers(ctx context.Context, search string, page, limit int) (*UserPage, error) {
	users, pagination, err := s.store.ListUsers(ctx, store.UserFilter{Search: search, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	return &UserPage{Users: users, Pagination: pagination}, nil
}

func (s *Service) GetUserDetails(ctx context.Context, userID string) (*models.UserDetails, error) {
	return s.store.GetUserDetails(ctx, userID)
}

func (s *Service) UpdateUser(ctx context.Context, userID string, req models.UpdateUserRequest) (*models.User, error) {
	if req.Email != nil && !emailPattern.MatchString(*req.Email) {
		return nil, fmt.Errorf("%w: invalid email address", store.ErrValidation)
	}
	return s.store.UpdateUser(ctx, userID, store.UpdateUserParams{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		MiddleName: req.MiddleName,
		Phone:      req.Phone,
		IsActive:   req.IsActive,
		IsVerified: req.IsVerified,
		Role:       req.Role,
	})
}

// AdminCreateUser registers a user on someone's behalf, optionally with an
// elevated role.
func (s *Service) AdminCreateUser(ctx context.Context, req models.AdminCreateUserRequest) (*models.User, error) {
	if !emailPattern.MatchString(req.Email) {
		return nil, fmt.Errorf("%w: invalid email address", store.ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, minPasswordLength)
	}
	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	switch role {
	case models.RoleUser, models.RoleAdmin, models.RoleModerator:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", store.ErrValidation, role)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return s.store.CreateUser(ctx, store.CreateUserParams{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		MiddleName:   req.MiddleName,
		Phone:        req.Phone,
		Role:         role,
	})
}

func (s *Service) SetUserActive(ctx context.Context, userID string, active bool) (*models.User, error) {
	return s.store.SetUserActive(ctx, userID, active)
}

// SetUserRole changes a user's role. Admins cannot change their own role,
// which keeps at least the acting admin in place.
func (s *Service) SetUserRole(ctx context.Context, actorID, userID, role string) (*models.User, error) {
	if actorID == userID {
		return nil, fmt.Errorf("%w: cannot change own role", store.ErrValidation)
	}
	return s.store.SetUserRole(ctx, userID, role)
}

// SetUserPassword lets an admin overwrite a user's password.
func (s *Service) SetUserPassword(ctx context.Context, userID, password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", store.ErrValidation, minPasswordLength)
	}
	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return err
	}
	return s.store.UpdateUserPassword(ctx, userID, hash)
}

func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	return s.store.DeleteUser(ctx, userID)
}

func (s *Service) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	return s.store.GetAdminStats(ctx)
}

// --- Operations ---

func (s *Service) ListAllOperations(ctx context.Context, userID, status, opType string, page, limit int) (*OperationPage, error) {
	operations, pagination, err := s.store.ListOperations(ctx, store.OperationFilter{
		UserID: userID,
		Status: status,
		Type:   opType,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return &OperationPage{Operations: operations, Pagination: pagination}, nil
}

func (s *Service) GetOperationDetails(ctx context.Context, operationID string) (*OperationDetails, error) {
	op, err := s.store.GetOperation(ctx, operationID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetOperationHistory(ctx, operationID)
	if err != nil {
		return nil, err
	}
	return &OperationDetails{Operation: op, History: history}, nil
}

// UpdateOperationStatus transitions an operation and notifies its owner once
// the transition committed.
func (s *Service) UpdateOperationStatus(ctx context.Context, operationID string, req models.UpdateOperationStatusRequest) (*models.Operation, error) {
	op, err := s.store.TransitionOperation(ctx, operationID, req.Status, req.AdminComment)
	if err != nil {
		return nil, err
	}
	s.notifyStatusChanged(ctx, op)
	return op, nil
}

// ProcessDeposit credits a pending deposit with the admin-confirmed amount.
func (s *Service) ProcessDeposit(ctx context.Context, operationID string, req models.ProcessDepositRequest) (*models.Operation, error) {
	op, err := s.store.ProcessDeposit(ctx, operationID, req.Amount, req.AdminComment)
	if err != nil {
		return nil, err
	}
	s.notifyStatusChanged(ctx, op)
	return op, nil
}

func (s *Service) DeleteOperation(ctx context.Context, operationID string) error {
	return s.store.DeleteOperation(ctx, operationID)
}

func (s *Service) notifyStatusChanged(ctx context.Context, op *models.Operation) {
	user, err := s.store.GetUserByID(ctx, op.UserID)
	if err != nil {
		zap.L().Warn("Failed to load user for notification",
			zap.String("user_id", op.UserID), zap.Error(err))
		return
	}
	s.notifier.OperationStatusChanged(context.WithoutCancel(ctx), user, op)
}

// --- Banking accounts ---

func (s *Service) UpdateBankingAccount(ctx context.Context, accountID string, req models.UpdateBankingAccountRequest) (*AccountUpdateResult[*models.BankingAccount], error) {
	if req.Currency != nil && !s.validCurrency(*req.Currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", store.ErrValidation, *req.Currency)
	}
	account, opsCreated, err := s.store.UpdateBankingAccount(ctx, accountID, store.UpdateBankingAccountParams{
		AccountNumber: req.AccountNumber,
		Balance:       req.Balance,
		Currency:      req.Currency,
		BankName:      req.BankName,
		IsActive:      req.IsActive,
	})
	if err != nil {
		return nil, err
	}
	return &AccountUpdateResult[*models.BankingAccount]{Account: account, OperationsCreated: opsCreated}, nil
}

// --- Trading accounts ---

func (s *Service) CreateTradingAccount(ctx context.Context, req models.CreateTradingAccountRequest) (*models.TradingAccount, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", store.ErrValidation)
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}
	if !s.validCurrency(currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", store.ErrValidation, currency)
	}
	if _, err := s.store.GetUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}

	return s.store.CreateTradingAccount(ctx, store.CreateTradingAccountParams{
		UserID:        req.UserID,
		Currency:      currency,
		Percentage:    req.Percentage,
		DepositAmount: req.DepositAmount,
	})
}

func (s *Service) ListTradingAccounts(ctx context.Context, search, currency, status string, page, limit int) (*TradingAccountPage, error) {
	accounts, pagination, err := s.store.ListTradingAccounts(ctx, store.TradingAccountFilter{
		Search:   search,
		Currency: currency,
		Status:   status,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		return nil, err
	}
	return &TradingAccountPage{Accounts: accounts, Pagination: pagination}, nil
}

func (s *Service) GetTradingAccount(ctx context.Context, accountID string) (*models.TradingAccount, error) {
	return s.store.GetTradingAccount(ctx, accountID)
}

func (s *Service) UpdateTradingAccount(ctx context.Context, accountID string, req models.UpdateTradingAccountRequest) (*AccountUpdateResult[*models.TradingAccount], error) {
	if req.Currency != nil && !s.validCurrency(*req.Currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", store.ErrValidation, *req.Currency)
	}
	account, opsCreated, err := s.store.UpdateTradingAccount(ctx, accountID, store.UpdateTradingAccountParams{
		AccountNumber: req.AccountNumber,
		Profit:        req.Profit,
		DepositAmount: req.DepositAmount,
		Balance:       req.Balance,
		Percentage:    req.Percentage,
		Currency:      req.Currency,
		Status:        req.Status,
	})
	if err != nil {
		return nil, err
	}
	return &AccountUpdateResult[*models.TradingAccount]{Account: account, OperationsCreated: opsCreated}, nil
}

func (s *Service) SetTradingAccountStatus(ctx context.Context, accountID, status string) (*models.TradingAccount, error) {
	return s.store.SetTradingAccountStatus(ctx, accountID, status)
}

func (s *Service) DeleteTradingAccount(ctx context.Context, accountID string) error {
	return s.store.DeleteTradingAccount(ctx, accountID)
}

// --- Profit records ---

func (s *Service) CreateProfit(ctx context.Context, req models.CreateProfitRequest) (*models.ProfitRecord, error) {
	if req.Amount.LessThan(decimal.Zero) {
		return nil, fmt.Errorf("%w: amount cannot be negative", store.ErrValidation)
	}
	return s.store.CreateProfit(ctx, store.CreateProfitParams{
		UserID:        req.UserID,
		AccountNumber: req.AccountNumber,
		FromDate:      req.FromDate,
		ToDate:        req.ToDate,
		Amount:        req.Amount,
		Percentage:    req.Percentage,
	})
}

func (s *Service) ListProfits(ctx context.Context, search string, page, limit int) (*ProfitPage, error) {
	profits, pagination, err := s.store.ListProfits(ctx, store.ProfitFilter{Search: search, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	return &ProfitPage{Profits: profits, Pagination: pagination}, nil
}

func (s *Service) DeleteProfit(ctx context.Context, profitID string) error {
	return s.store.DeleteProfit(ctx, profitID)
}
