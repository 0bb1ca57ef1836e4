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

package database

// Users

const insertUserQuery = `
	INSERT INTO users (id, email, password_hash, first_name, last_name, middle_name, phone, role)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

const selectUserColumns = `
	id, email, password_hash, first_name, last_name, middle_name, phone,
	role, is_active, is_verified, created_at, updated_at`

const selectUserByIDQuery = `
	SELECT ` + selectUserColumns + `
	FROM users
	WHERE id = ?`

const selectUserByEmailQuery = `
	SELECT ` + selectUserColumns + `
	FROM users
	WHERE email = ? COLLATE NOCASE`

const updateUserPasswordQuery = `
	UPDATE users
	SET password_hash = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const setUserActiveQuery = `
	UPDATE users
	SET is_active = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const setUserRoleQuery = `
	UPDATE users
	SET role = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const deleteUserQuery = `
	DELETE FROM users
	WHERE id = ?`

const insertSessionQuery = `
	INSERT INTO user_sessions (id, user_id, ip_address, user_agent)
	VALUES (?, ?, ?, ?)`

const insertPasswordResetTokenQuery = `
	INSERT INTO password_reset_tokens (id, user_id, token, expires_at)
	VALUES (?, ?, ?, ?)`

const selectPasswordResetTokenQuery = `
	SELECT user_id, expires_at, used
	FROM password_reset_tokens
	WHERE token = ?`

const markPasswordResetTokenUsedQuery = `
	UPDATE password_reset_tokens
	SET used = 1
	WHERE token = ? AND used = 0`

// Banking accounts

const insertBankingAccountQuery = `
	INSERT INTO banking_accounts (id, user_id, account_number, balance, currency, bank_name, bik, inn, kpp, corr_account)
	VALUES (?, ?, ?, '0', ?, ?, ?, ?, ?, ?)`

const selectBankingAccountColumns = `
	id, user_id, account_number, balance, currency, is_active,
	bank_name, bik, inn, kpp, corr_account, version, created_at, updated_at`

const selectBankingAccountByIDQuery = `
	SELECT ` + selectBankingAccountColumns + `
	FROM banking_accounts
	WHERE id = ?`

const selectBankingAccountsByUserQuery = `
	SELECT ` + selectBankingAccountColumns + `
	FROM banking_accounts
	WHERE user_id = ?
	ORDER BY created_at DESC`

const selectBankingAccountForUpdateQuery = `
	SELECT id, user_id, account_number, balance, currency, version
	FROM banking_accounts
	WHERE id = ?`

const updateBankingBalanceQuery = `
	UPDATE banking_accounts
	SET balance = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND version = ?`

const countBankingAccountNumberQuery = `
	SELECT COUNT(*) FROM banking_accounts WHERE account_number = ?`

// Trading accounts

const insertTradingAccountQuery = `
	INSERT INTO trading_accounts (id, user_id, account_number, currency, percentage, deposit_amount, profit)
	VALUES (?, ?, ?, ?, ?, ?, '0')`

const selectTradingAccountColumns = `
	ta.id, ta.user_id, ta.account_number, ta.currency, ta.status,
	ta.percentage, ta.deposit_amount, ta.profit, ta.version, ta.created_at, ta.updated_at`

const selectTradingAccountByIDQuery = `
	SELECT ` + selectTradingAccountColumns + `
	FROM trading_accounts ta
	WHERE ta.id = ?`

const selectTradingAccountsByUserQuery = `
	SELECT ` + selectTradingAccountColumns + `
	FROM trading_accounts ta
	WHERE ta.user_id = ?
	ORDER BY ta.created_at DESC`

const selectTradingAccountForUpdateQuery = `
	SELECT id, user_id, account_number, currency, status, percentage, deposit_amount, profit, version
	FROM trading_accounts
	WHERE id = ?`

const updateTradingBalanceQuery = `
	UPDATE trading_accounts
	SET deposit_amount = ?, profit = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND version = ?`

const setTradingAccountStatusQuery = `
	UPDATE trading_accounts
	SET status = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const deleteTradingAccountQuery = `
	DELETE FROM trading_accounts
	WHERE id = ?`

const deleteTradingOperationsQuery = `
	DELETE FROM operations
	WHERE account_id = ? AND account_kind = 'trading'`

const countTradingAccountNumberQuery = `
	SELECT COUNT(*) FROM trading_accounts WHERE account_number = ?`

// Account resolution: one round trip resolves an account id to its kind,
// owner, currency and the two balance parts. Banking accounts report their
// whole balance as principal with a zero profit part.
const resolveAccountQuery = `
	SELECT 'banking' AS kind, user_id, currency, balance AS principal, '0' AS profit
	FROM banking_accounts
	WHERE id = ?
	UNION ALL
	SELECT 'trading' AS kind, user_id, currency, deposit_amount, profit
	FROM trading_accounts
	WHERE id = ?`

// Operations

const insertOperationQuery = `
	INSERT INTO operations (id, user_id, account_id, account_kind, operation_type, amount,
		currency, status, comment, admin_comment, recipient_details, contact_method)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const selectOperationColumns = `
	o.id, o.user_id, o.account_id, o.account_kind, o.operation_type, o.amount,
	o.currency, o.status, o.comment, o.admin_comment, o.recipient_details,
	o.contact_method, o.created_at, o.updated_at,
	COALESCE(ba.account_number, ta.account_number, '') AS account_number`

const selectOperationJoins = `
	FROM operations o
	LEFT JOIN banking_accounts ba ON o.account_kind = 'banking' AND o.account_id = ba.id
	LEFT JOIN trading_accounts ta ON o.account_kind = 'trading' AND o.account_id = ta.id`

const selectOperationByIDQuery = `
	SELECT ` + selectOperationColumns + selectOperationJoins + `
	WHERE o.id = ?`

const selectUserOperationQuery = `
	SELECT ` + selectOperationColumns + selectOperationJoins + `
	WHERE o.id = ? AND o.user_id = ?`

const selectOperationForUpdateQuery = `
	SELECT id, user_id, account_id, account_kind, operation_type, amount, currency, status
	FROM operations
	WHERE id = ?`

const updateOperationStatusQuery = `
	UPDATE operations
	SET status = ?, admin_comment = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const updateOperationStatusAmountQuery = `
	UPDATE operations
	SET status = ?, amount = ?, admin_comment = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`

const deleteOperationQuery = `
	DELETE FROM operations
	WHERE id = ?`

const insertOperationHistoryQuery = `
	INSERT INTO operation_history (id, operation_id, status_from, status_to, comment)
	VALUES (?, ?, ?, ?, ?)`

const selectOperationHistoryQuery = `
	SELECT id, operation_id, status_from, status_to, comment, created_at
	FROM operation_history
	WHERE operation_id = ?
	ORDER BY created_at ASC, id ASC`

// Profit records

const insertProfitQuery = `
	INSERT INTO profit_records (id, user_id, account_number, from_date, to_date, amount, percentage)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

const deleteProfitQuery = `
	DELETE FROM profit_records
	WHERE id = ?`
