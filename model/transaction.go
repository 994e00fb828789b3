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
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// EntryDirection marks which side of a transfer a ledger entry records.
//
// Sign convention: a DEBIT entry records value leaving its account (signed
// delta -amount), a CREDIT entry records value arriving (+amount). Every
// transaction posts exactly one of each for the same amount, so the signed
// entries of a transaction always sum to zero.
type EntryDirection string

const (
	EntryDebit  EntryDirection = "DEBIT"
	EntryCredit EntryDirection = "CREDIT"
)

// Transaction is the immutable record of one committed transfer.
type Transaction struct {
	TransactionID int64           `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
	Entries       []LedgerEntry   `json:"entries,omitempty"`
}

// LedgerEntry is one of the two postings of a transaction. BalanceAfter is
// the account balance snapshot taken at posting time, under the row lock.
type LedgerEntry struct {
	EntryID       int64           `json:"entry_id"`
	TransactionID int64           `json:"transaction_id"`
	AccountID     int64           `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Direction     EntryDirection  `json:"direction"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SignedAmount applies the entry's direction to its amount: negative for
// debits, positive for credits.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == EntryDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// TransferResponse is the client-facing result of a transfer, and the value
// memoized under the request's idempotency key.
type TransferResponse struct {
	Success       bool  `json:"success"`
	TransactionID int64 `json:"transaction_id"`
}

const (
	IdempotencyPending   = "PENDING"
	IdempotencyCompleted = "COMPLETED"
)

// IdempotencyRecord is the value stored under an idempotency key. A PENDING
// record is the reservation claimed before the transfer executes; the
// response is backfilled once the transfer commits.
type IdempotencyRecord struct {
	Status   string            `json:"status"`
	Response *TransferResponse `json:"response,omitempty"`
}

func (t *Transaction) ToJSON() ([]byte, error) {
	return json.Marshal(t)
}
