/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
	"github.com/shopspring/decimal"
)

// RecordTransfer executes one fund transfer as a single atomic unit of
// work: it locks both account rows in ascending id order, validates the
// source balance against the locked snapshot, writes the transaction with
// its two ledger entries, updates both balances and commits. Any failure
// rolls the whole unit back, so partial writes are never observable.
//
// The ascending lock order is the deadlock-avoidance mechanism: two
// concurrent transfers touching the same pair of accounts always request
// the locks in the same relative order, whichever account each caller
// names as source.
func (d *Datasource) RecordTransfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, reference string) (*model.Transaction, error) {
	ctx, span := otel.Tracer("ledgerflow.database").Start(ctx, "Recording transfer")
	defer span.End()

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to open transfer transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	lockFirst, lockSecond := fromID, toID
	if lockSecond < lockFirst {
		lockFirst, lockSecond = lockSecond, lockFirst
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, balance FROM accounts
		WHERE id IN ($1, $2)
		ORDER BY id
		FOR UPDATE
	`, lockFirst, lockSecond)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to lock accounts", err)
	}

	balances := make(map[int64]decimal.Decimal, 2)
	for rows.Next() {
		var id int64
		var balance decimal.Decimal
		if err := rows.Scan(&id, &balance); err != nil {
			_ = rows.Close()
			return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to scan locked account", err)
		}
		balances[id] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed reading locked accounts", err)
	}
	_ = rows.Close()

	fromBalance, fromOk := balances[fromID]
	toBalance, toOk := balances[toID]
	if !fromOk || !toOk {
		return nil, apierror.NewAPIError(apierror.ErrAccountNotFound, "One or both accounts not found", nil)
	}

	if fromBalance.LessThan(amount) {
		return nil, apierror.NewAPIError(apierror.ErrInsufficientFunds,
			fmt.Sprintf("Insufficient funds in account %d", fromID), nil)
	}

	txn := &model.Transaction{
		Amount:      amount,
		Reference:   reference,
		Description: fmt.Sprintf("Transfer from %d to %d", fromID, toID),
		CreatedAt:   time.Now(),
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO transactions (amount, reference, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, amount, reference, txn.Description, txn.CreatedAt).Scan(&txn.TransactionID)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to record transaction", err)
	}

	// Both balance_after snapshots derive from the locked reads above; the
	// row locks, not this code, are the serialization point.
	fromAfter := fromBalance.Sub(amount)
	toAfter := toBalance.Add(amount)

	debit := model.LedgerEntry{
		TransactionID: txn.TransactionID,
		AccountID:     fromID,
		Amount:        amount,
		BalanceAfter:  fromAfter,
		Direction:     model.EntryDebit,
		CreatedAt:     txn.CreatedAt,
	}
	credit := model.LedgerEntry{
		TransactionID: txn.TransactionID,
		AccountID:     toID,
		Amount:        amount,
		BalanceAfter:  toAfter,
		Direction:     model.EntryCredit,
		CreatedAt:     txn.CreatedAt,
	}
	for _, entry := range []model.LedgerEntry{debit, credit} {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (transaction_id, account_id, amount, balance_after, direction, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, entry.TransactionID, entry.AccountID, entry.Amount, entry.BalanceAfter, entry.Direction, entry.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to record ledger entry", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, fromAfter, fromID); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to update source balance", err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`, toAfter, toID); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to update destination balance", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to commit transfer", err)
	}
	committed = true

	txn.Entries = []model.LedgerEntry{debit, credit}
	return txn, nil
}

// GetTransactionWithEntries loads a committed transaction and its two
// ledger entries. Transactions are immutable once committed, so results
// are served from the cache when one is attached.
func (d *Datasource) GetTransactionWithEntries(ctx context.Context, id int64) (*model.Transaction, error) {
	cacheKey := fmt.Sprintf("transactions:%d", id)
	if d.Cache != nil {
		var cached model.Transaction
		if err := d.Cache.Get(ctx, cacheKey, &cached); err == nil && cached.TransactionID != 0 {
			return &cached, nil
		}
	}

	txn := &model.Transaction{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, amount, reference, description, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&txn.TransactionID, &txn.Amount, &txn.Reference, &txn.Description, &txn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Transaction with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to retrieve transaction", err)
	}

	rows, err := d.Conn.QueryContext(ctx, `
		SELECT id, transaction_id, account_id, amount, balance_after, direction, created_at
		FROM ledger_entries
		WHERE transaction_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to retrieve ledger entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry model.LedgerEntry
		err = rows.Scan(&entry.EntryID, &entry.TransactionID, &entry.AccountID, &entry.Amount, &entry.BalanceAfter, &entry.Direction, &entry.CreatedAt)
		if err != nil {
			return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to scan ledger entry", err)
		}
		txn.Entries = append(txn.Entries, entry)
	}
	if err = rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Error occurred while iterating over ledger entries", err)
	}

	if d.Cache != nil {
		// Cache failures never fail the read path.
		if err := d.Cache.Set(ctx, cacheKey, txn, 5*time.Minute); err != nil {
			logrus.Warnf("failed to cache transaction %d: %v", id, err)
		}
	}
	return txn, nil
}
