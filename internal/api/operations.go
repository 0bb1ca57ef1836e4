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
	"encoding/json"
	"fmt"

	"account-backoffice-go/internal/models"
	"account-backoffice-go/internal/store"

	"go.uber.org/zap"
)

// OperationPage is one page of a user's operation listing.
type OperationPage struct {
	Operations []models.Operation `json:"operations"`
	Pagination *models.Pagination `json:"pagination"`
}

// OperationDetails is one operation together with its transition history.
type OperationDetails struct {
	Operation *models.Operation         `json:"operation"`
	History   []models.OperationHistory `json:"history"`
}

func (s *Service) CreateDeposit(ctx context.Context, userID string, req models.CreateDepositRequest) (*models.Operation, error) {
	op, err := s.store.CreateOperation(ctx, store.CreateOperationParams{
		UserID:        userID,
		AccountID:     req.AccountID,
		OperationType: models.OperationDeposit,
		Amount:        req.Amount,
		Comment:       req.Comment,
		ContactMethod: req.ContactMethod,
	})
	if err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, userID, op)
	return op, nil
}

func (s *Service) CreateWithdrawal(ctx context.Context, userID string, req models.CreateWithdrawalRequest) (*models.Operation, error) {
	recipientDetails := "{}"
	if len(req.RecipientDetails) > 0 {
		encoded, err := json.Marshal(req.RecipientDetails)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid recipient details", store.ErrValidation)
		}
		recipientDetails = string(encoded)
	}

	op, err := s.store.CreateOperation(ctx, store.CreateOperationParams{
		UserID:           userID,
		AccountID:        req.AccountID,
		OperationType:    models.OperationWithdrawal,
		Amount:           req.Amount,
		Comment:          req.Comment,
		RecipientDetails: recipientDetails,
	})
	if err != nil {
		return nil, err
	}

	s.notifyCreated(ctx, userID, op)
	return op, nil
}

func (s *Service) ListMyOperations(ctx context.Context, userID string, status, opType string, page, limit int) (*OperationPage, error) {
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

func (s *Service) GetMyOperation(ctx context.Context, userID, operationID string) (*OperationDetails, error) {
	op, err := s.store.GetUserOperation(ctx, userID, operationID)
	if err != nil {
		return nil, err
	}
	history, err := s.store.GetOperationHistory(ctx, operationID)
	if err != nil {
		return nil, err
	}
	return &OperationDetails{Operation: op, History: history}, nil
}

// notifyCreated dispatches the new-operation notification after the store
// transaction committed. Delivery failures only log; they never undo the
// operation.
func (s *Service) notifyCreated(ctx context.Context, userID string, op *models.Operation) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		zap.L().Warn("Failed to load user for notification",
			zap.String("user_id", userID), zap.Error(err))
		return
	}
	s.notifier.OperationCreated(context.WithoutCancel(ctx), user, op)
}
