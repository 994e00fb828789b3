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
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

func TestRecordTransfer_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	amount := decimal.NewFromFloat(100.50)
	reference := gofakeit.UUID()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(int64(1), "1000.00").
			AddRow(int64(2), "500.00"))
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), reference, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET balance").
		WithArgs(sqlmock.AnyArg(), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	txn, err := ds.RecordTransfer(context.Background(), 1, 2, amount, reference)
	require.NoError(t, err)

	assert.Equal(t, int64(7), txn.TransactionID)
	assert.Equal(t, reference, txn.Reference)
	require.Len(t, txn.Entries, 2)

	debit, credit := txn.Entries[0], txn.Entries[1]
	assert.Equal(t, model.EntryDebit, debit.Direction)
	assert.Equal(t, int64(1), debit.AccountID)
	assert.True(t, debit.BalanceAfter.Equal(decimal.NewFromFloat(899.50)))
	assert.Equal(t, model.EntryCredit, credit.Direction)
	assert.Equal(t, int64(2), credit.AccountID)
	assert.True(t, credit.BalanceAfter.Equal(decimal.NewFromFloat(600.50)))

	sum := debit.SignedAmount().Add(credit.SignedAmount())
	assert.True(t, sum.IsZero())

	assert.NoError(t, mock.ExpectationsWereMet())
}

// Lock requests always go out in ascending id order, whichever account is
// the source.
func TestRecordTransfer_LockOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts").
		WithArgs(int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(int64(1), "200.00").
			AddRow(int64(9), "800.00"))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO ledger_entries").WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE accounts SET balance").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE accounts SET balance").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err = ds.RecordTransfer(context.Background(), 9, 1, decimal.NewFromInt(50), "ref_lock_order")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransfer_InsufficientFunds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(int64(1), "10.00").
			AddRow(int64(2), "500.00"))
	mock.ExpectRollback()

	_, err = ds.RecordTransfer(context.Background(), 1, 2, decimal.NewFromInt(100), "ref_nsf")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransfer_AccountNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(int64(1), "1000.00"))
	mock.ExpectRollback()

	_, err = ds.RecordTransfer(context.Background(), 1, 2, decimal.NewFromInt(100), "ref_missing")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrAccountNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordTransfer_StoreFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, balance FROM accounts").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "balance"}).
			AddRow(int64(1), "1000.00").
			AddRow(int64(2), "500.00"))
	mock.ExpectQuery("INSERT INTO transactions").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = ds.RecordTransfer(context.Background(), 1, 2, decimal.NewFromInt(100), "ref_fail")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrStoreFailure))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionWithEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}
	createdAt := time.Now()

	mock.ExpectQuery("SELECT id, amount, reference, description, created_at").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "reference", "description", "created_at"}).
			AddRow(int64(7), "100.50", "ref123", "Transfer from 1 to 2", createdAt))
	mock.ExpectQuery("SELECT id, transaction_id, account_id, amount, balance_after, direction, created_at").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "account_id", "amount", "balance_after", "direction", "created_at"}).
			AddRow(int64(1), int64(7), int64(1), "100.50", "899.50", "DEBIT", createdAt).
			AddRow(int64(2), int64(7), int64(2), "100.50", "600.50", "CREDIT", createdAt))

	txn, err := ds.GetTransactionWithEntries(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "ref123", txn.Reference)
	require.Len(t, txn.Entries, 2)
	assert.Equal(t, model.EntryDebit, txn.Entries[0].Direction)
	assert.Equal(t, model.EntryCredit, txn.Entries[1].Direction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTransactionWithEntries_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT id, amount, reference, description, created_at").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "amount", "reference", "description", "created_at"}))

	_, err = ds.GetTransactionWithEntries(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrNotFound))
}
