package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateProfit records a yield period for a trading account. The record is
// attached to the account's owner regardless of who submits it.
func (s *Service) CreateProfit(ctx context.Context, params store.CreateProfitParams) (*models.ProfitRecord, error) {
	if params.AccountNumber == "" {
		return nil, fmt.Errorf("%w: account number is required", store.ErrValidation)
	}
	if params.FromDate == "" || params.ToDate == "" {
		return nil, fmt.Errorf("%w: period dates are required", store.ErrValidation)
	}

	var ownerID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM trading_accounts WHERE account_number = ?`, params.AccountNumber).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trading account %s %w", params.AccountNumber, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve trading account: %w", err)
	}

	profitID := uuid.New().String()
	_, err = s.db.ExecContext(ctx, insertProfitQuery,
		profitID, ownerID, params.AccountNumber, params.FromDate, params.ToDate,
		params.Amount.String(), params.Percentage.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create profit record: %w", err)
	}

	zap.L().Info("Profit record created",
		zap.String("profit_id", profitID),
		zap.String("account_number", params.AccountNumber))

	return s.getProfit(ctx, profitID)
}

func (s *Service) ListProfits(ctx context.Context, filter store.ProfitFilter) ([]models.ProfitRecord, *models.Pagination, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)

	where := "WHERE 1=1"
	args := []any{}
	if filter.Search != "" {
		where += ` AND (p.account_number LIKE ? OR u.email LIKE ? OR u.first_name LIKE ? OR u.last_name LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM profit_records p JOIN users u ON u.id = p.user_id ` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, nil, fmt.Errorf("failed to count profit records: %w", err)
	}

	listQuery := `
		SELECT p.id, p.user_id, p.account_number, p.from_date, p.to_date, p.amount, p.percentage, p.created_at,
			u.first_name || ' ' || u.last_name AS owner_name, u.email AS owner_email
		FROM profit_records p
		JOIN users u ON u.id = p.user_id ` + where + `
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?`
	args = append(args, limit, (page-1)*limit)

	rows, err := s.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list profit records: %w", err)
	}
	defer rows.Close()

	records := []models.ProfitRecord{}
	for rows.Next() {
		var p models.ProfitRecord
		var amount, percentage string
		if err := rows.Scan(&p.ID, &p.UserID, &p.AccountNumber, &p.FromDate, &p.ToDate,
			&amount, &percentage, &p.CreatedAt, &p.OwnerName, &p.OwnerEmail); err != nil {
			return nil, nil, fmt.Errorf("failed to scan profit record: %w", err)
		}
		if p.Amount, err = parseDecimal(amount); err != nil {
			return nil, nil, err
		}
		if p.Percentage, err = parseDecimal(percentage); err != nil {
			return nil, nil, err
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate profit records: %w", err)
	}

	return records, paginate(page, limit, total), nil
}

func (s *Service) DeleteProfit(ctx context.Context, profitID string) error {
	result, err := s.db.ExecContext(ctx, deleteProfitQuery, profitID)
	if err != nil {
		return fmt.Errorf("failed to delete profit record: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return fmt.Errorf("profit record %s %w", profitID, store.ErrNotFound)
	}
	return nil
}

func (s *Service) getProfit(ctx context.Context, profitID string) (*models.ProfitRecord, error) {
	var p models.ProfitRecord
	var amount, percentage string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, account_number, from_date, to_date, amount, percentage, created_at
		FROM profit_records WHERE id = ?`, profitID).Scan(
		&p.ID, &p.UserID, &p.AccountNumber, &p.FromDate, &p.ToDate, &amount, &percentage, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profit record %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profit record: %w", err)
	}
	if p.Amount, err = parseDecimal(amount); err != nil {
		return nil, err
	}
	if p.Percentage, err = parseDecimal(percentage); err != nil {
		return nil, err
	}
	return &p, nil
}
