package database

import (
	"context"
	"fmt"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/shopspring/decimal"
)

// Amounts are stored as TEXT, so every monetary aggregate is accumulated in
// decimals here instead of SQL SUM, which would coerce them to floats.

func (s *Service) GetUserStats(ctx context.Context, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM banking_accounts WHERE user_id = ?),
			(SELECT COUNT(*) FROM trading_accounts WHERE user_id = ?),
			(SELECT COUNT(*) FROM operations WHERE user_id = ?)`,
		userID, userID, userID).Scan(
		&stats.BankAccountsCount, &stats.TradingAccountsCount, &stats.OperationsTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}

	stats.BankBalance, err = s.sumColumn(ctx,
		`SELECT balance FROM banking_accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT profit, percentage FROM trading_accounts WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading stats: %w", err)
	}
	defer rows.Close()

	profitSum, percentageSum := decimal.Zero, decimal.Zero
	count := 0
	for rows.Next() {
		var profitStr, percentageStr string
		if err := rows.Scan(&profitStr, &percentageStr); err != nil {
			return nil, fmt.Errorf("failed to scan trading stats row: %w", err)
		}
		profit, err := parseDecimal(profitStr)
		if err != nil {
			return nil, err
		}
		percentage, err := parseDecimal(percentageStr)
		if err != nil {
			return nil, err
		}
		profitSum = profitSum.Add(profit)
		percentageSum = percentageSum.Add(percentage)
		count++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trading stats: %w", err)
	}
	stats.TradingProfit = profitSum
	stats.AvgPercentage = decimal.Zero
	if count > 0 {
		stats.AvgPercentage = percentageSum.Div(decimal.NewFromInt(int64(count)))
	}

	stats.Deposits30Days, stats.Withdrawals30Days, err = s.sumCompletedOperations(ctx, `
		SELECT operation_type, amount FROM operations
		WHERE user_id = ? AND status = 'completed' AND created_at >= datetime('now', '-30 days')`,
		userID)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *Service) GetAdminStats(ctx context.Context) (*models.AdminStats, error) {
	var stats models.AdminStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM users WHERE is_active = 1),
			(SELECT COUNT(*) FROM users WHERE is_active = 0),
			(SELECT COUNT(*) FROM banking_accounts),
			(SELECT COUNT(*) FROM trading_accounts),
			(SELECT COUNT(*) FROM operations),
			(SELECT COUNT(*) FROM operations WHERE operation_type = 'deposit'),
			(SELECT COUNT(*) FROM operations WHERE operation_type = 'withdrawal'),
			(SELECT COUNT(*) FROM operations WHERE status = 'created'),
			(SELECT COUNT(*) FROM operations WHERE status = 'processing'),
			(SELECT COUNT(*) FROM operations WHERE status = 'completed'),
			(SELECT COUNT(*) FROM operations WHERE status = 'rejected')`).Scan(
		&stats.TotalUsers, &stats.ActiveUsers, &stats.BlockedUsers,
		&stats.BankAccounts, &stats.TradingAccounts,
		&stats.TotalOperations, &stats.DepositOperations, &stats.WithdrawalOperations,
		&stats.PendingOperations, &stats.ProcessingOperations,
		&stats.CompletedOperations, &stats.RejectedOperations)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin counts: %w", err)
	}

	if stats.BankBalance, err = s.sumColumn(ctx, `SELECT balance FROM banking_accounts`); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT deposit_amount, profit FROM trading_accounts`)
	if err != nil {
		return nil, fmt.Errorf("failed to load trading balances: %w", err)
	}
	defer rows.Close()

	stats.TradingBalance = decimal.Zero
	for rows.Next() {
		var depositStr, profitStr string
		if err := rows.Scan(&depositStr, &profitStr); err != nil {
			return nil, fmt.Errorf("failed to scan trading balance row: %w", err)
		}
		deposit, err := parseDecimal(depositStr)
		if err != nil {
			return nil, err
		}
		profit, err := parseDecimal(profitStr)
		if err != nil {
			return nil, err
		}
		stats.TradingBalance = stats.TradingBalance.Add(deposit).Add(profit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trading balances: %w", err)
	}

	stats.TotalDeposits, stats.TotalWithdrawals, err = s.sumCompletedOperations(ctx,
		`SELECT operation_type, amount FROM operations WHERE status = 'completed'`)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// sumColumn adds up one decimal TEXT column.
func (s *Service) sumColumn(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load amounts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var valueStr string
		if err := rows.Scan(&valueStr); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount row: %w", err)
		}
		value, err := parseDecimal(valueStr)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(value)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate amount rows: %w", err)
	}
	return total, nil
}

// sumCompletedOperations splits the summed amounts of the selected
// (operation_type, amount) rows into deposits and withdrawals.
func (s *Service) sumCompletedOperations(ctx context.Context, query string, args ...any) (deposits, withdrawals decimal.Decimal, err error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to load operation sums: %w", err)
	}
	defer rows.Close()

	deposits, withdrawals = decimal.Zero, decimal.Zero
	for rows.Next() {
		var opType, amountStr string
		if err := rows.Scan(&opType, &amountStr); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("failed to scan operation sum row: %w", err)
		}
		amount, err := parseDecimal(amountStr)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		switch opType {
		case models.OperationDeposit:
			deposits = deposits.Add(amount)
		case models.OperationWithdrawal:
			withdrawals = withdrawals.Add(amount)
		}
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to iterate operation sums: %w", err)
	}
	return deposits, withdrawals, nil
}

// GetUserDetails is the admin drill-down: the user row, both account lists
// and the most recent operations.
func (s *Service) GetUserDetails(ctx context.Context, userID string) (*models.UserDetails, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	banking, _, err := s.ListBankingAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	trading, err := s.ListUserTradingAccounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	operations, _, err := s.ListOperations(ctx, store.OperationFilter{UserID: userID, Page: 1, Limit: 10})
	if err != nil {
		return nil, err
	}

	return &models.UserDetails{
		User:             user,
		BankingAccounts:  banking,
		TradingAccounts:  trading,
		RecentOperations: operations,
	}, nil
}
