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
	"fmt"

	"account-backoffice-go/internal/auth"
	"account-backoffice-go/internal/notify"
	"account-backoffice-go/internal/store"
)

// Service implements the application operations on top of the store. All
// balance arithmetic happens inside the store's transactions; this layer owns
// validation, authentication and notification dispatch.
type Service struct {
	store      store.BackOfficeStore
	auth       *auth.Manager
	notifier   notify.Notifier
	currencies map[string]bool
}

func NewService(st store.BackOfficeStore, authManager *auth.Manager, notifier notify.Notifier, currencyCodes []string) (*Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if authManager == nil {
		return nil, fmt.Errorf("auth manager cannot be nil")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier cannot be nil")
	}
	if len(currencyCodes) == 0 {
		return nil, fmt.Errorf("currency allow-list cannot be empty")
	}

	currencies := make(map[string]bool, len(currencyCodes))
	for _, code := range currencyCodes {
		currencies[code] = true
	}

	return &Service{
		store:      st,
		auth:       authManager,
		notifier:   notifier,
		currencies: currencies,
	}, nil
}

// Auth returns the token manager, used by the HTTP middleware.
func (s *Service) Auth() *auth.Manager {
	return s.auth
}

func (s *Service) validCurrency(code string) bool {
	return s.currencies[code]
}
