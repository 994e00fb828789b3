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

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
	"github.com/shopspring/decimal"
)

// SeedDemoData wipes the ledger and creates two demo accounts with opening
// balances booked as real seed transactions, so the reconciliation
// invariant (stored balance == sum of signed entries) holds from the start.
func (d *Datasource) SeedDemoData(ctx context.Context) error {
	openingBalance := decimal.NewFromInt(1000)

	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to open seed transaction", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`TRUNCATE ledger_entries RESTART IDENTITY CASCADE`,
		`TRUNCATE webhook_jobs RESTART IDENTITY CASCADE`,
		`TRUNCATE transactions RESTART IDENTITY CASCADE`,
		`TRUNCATE accounts RESTART IDENTITY CASCADE`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to clear existing data", err)
		}
	}

	for _, name := range []string{"Alice", "Bob"} {
		var accountID int64
		err := tx.QueryRowContext(ctx, `
			INSERT INTO accounts (name, balance)
			VALUES ($1, $2)
			RETURNING id
		`, name, openingBalance).Scan(&accountID)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to create seed account", err)
		}

		var txnID int64
		err = tx.QueryRowContext(ctx, `
			INSERT INTO transactions (amount, reference, description)
			VALUES ($1, $2, $3)
			RETURNING id
		`, openingBalance, "Initial Deposit", "Seed initial balance for "+name).Scan(&txnID)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to create seed transaction", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO ledger_entries (transaction_id, account_id, amount, balance_after, direction)
			VALUES ($1, $2, $3, $4, $5)
		`, txnID, accountID, openingBalance, openingBalance, model.EntryCredit)
		if err != nil {
			return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to create seed ledger entry", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to commit seed data", err)
	}
	committed = true
	return nil
}
