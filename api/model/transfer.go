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
package model

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// RecordTransfer is the request body for POST /transfers.
type RecordTransfer struct {
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
}

func distinctAccountsValidation(t *RecordTransfer) validation.RuleFunc {
	return func(value interface{}) error {
		if t.FromAccountID == t.ToAccountID {
			return errors.New("from_account_id and to_account_id must differ")
		}
		return nil
	}
}

func (t *RecordTransfer) ValidateRecordTransfer() error {
	return validation.ValidateStruct(t,
		validation.Field(&t.FromAccountID, validation.Required),
		validation.Field(&t.ToAccountID, validation.Required, validation.By(distinctAccountsValidation(t))),
		validation.Field(&t.Amount, validation.Required, validation.By(func(value interface{}) error {
			amount, ok := value.(decimal.Decimal)
			if !ok {
				return errors.New("invalid amount type")
			}
			if !amount.IsPositive() {
				return errors.New("amount must be greater than zero")
			}
			return nil
		})),
		validation.Field(&t.Reference, validation.Required),
	)
}
