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

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

func (d *Datasource) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	account := &model.Account{}
	err := d.Conn.QueryRowContext(ctx, `
		SELECT id, name, balance, created_at
		FROM accounts
		WHERE id = $1
	`, id).Scan(&account.AccountID, &account.Name, &account.Balance, &account.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrAccountNotFound, fmt.Sprintf("Account with ID '%d' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to retrieve account", err)
	}
	return account, nil
}

func (d *Datasource) CreateAccount(ctx context.Context, name string) (*model.Account, error) {
	account := &model.Account{Name: name}
	err := d.Conn.QueryRowContext(ctx, `
		INSERT INTO accounts (name)
		VALUES ($1)
		RETURNING id, balance, created_at
	`, name).Scan(&account.AccountID, &account.Balance, &account.CreatedAt)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to create account", err)
	}
	return account, nil
}
