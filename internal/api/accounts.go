package api

import (
	"context"
	"fmt"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/shopspring/decimal"
)

// AccountsOverview is the user's account listing with the combined balance.
type AccountsOverview struct {
	Accounts     []models.BankingAccount `json:"accounts"`
	TotalBalance decimal.Decimal         `json:"totalBalance"`
}

func (s *Service) CreateBankingAccount(ctx context.Context, userID string, req models.CreateBankingAccountRequest) (*models.BankingAccount, error) {
	currency := req.Currency
	if currency == "" {
		currency = "RUB"
	}
	if !s.validCurrency(currency) {
		return nil, fmt.Errorf("%w: unsupported currency %q", store.ErrValidation, currency)
	}

	return s.store.CreateBankingAccount(ctx, store.CreateBankingAccountParams{
		UserID:      userID,
		Currency:    currency,
		BankName:    req.BankName,
		BIK:         req.BIK,
		INN:         req.INN,
		KPP:         req.KPP,
		CorrAccount: req.CorrAccount,
	})
}

func (s *Service) ListMyAccounts(ctx context.Context, userID string) (*AccountsOverview, error) {
	accounts, total, err := s.store.ListBankingAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &AccountsOverview{Accounts: accounts, TotalBalance: total}, nil
}

// GetMyAccount loads an account the user owns. Other users' accounts look
// like missing ones.
func (s *Service) GetMyAccount(ctx context.Context, userID, accountID string) (*models.BankingAccount, error) {
	account, err := s.store.GetBankingAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, fmt.Errorf("banking account %s %w", accountID, store.ErrNotFound)
	}
	return account, nil
}

func (s *Service) ListMyTradingAccounts(ctx context.Context, userID string) ([]models.TradingAccount, error) {
	return s.store.ListUserTradingAccounts(ctx, userID)
}

func (s *Service) GetMyStats(ctx context.Context, userID string) (*models.UserStats, error) {
	return s.store.GetUserStats(ctx, userID)
}
