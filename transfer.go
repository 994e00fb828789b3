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

package ledgerflow

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

func validateTransfer(fromID, toID int64, amount decimal.Decimal, reference string) error {
	if fromID == toID {
		return apierror.NewAPIError(apierror.ErrInvalidRequest, "Source and destination accounts must differ", nil)
	}
	if !amount.IsPositive() {
		return apierror.NewAPIError(apierror.ErrInvalidRequest, "Transfer amount must be positive", nil)
	}
	if reference == "" {
		return apierror.NewAPIError(apierror.ErrInvalidRequest, "Transfer reference is required", nil)
	}
	return nil
}

// ProcessTransfer runs one idempotent transfer end to end: claim the
// idempotency key, execute the atomic transfer, memoize the response and
// schedule the webhook. A memoized response from an earlier request with the
// same key is returned without touching any balance.
func (l *LedgerFlow) ProcessTransfer(ctx context.Context, idempotencyKey string, fromID, toID int64, amount decimal.Decimal, reference string) (*model.TransferResponse, error) {
	ctx, span := otel.Tracer("ledgerflow.transfer").Start(ctx, "Processing transfer")
	defer span.End()

	if idempotencyKey == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidRequest, "Idempotency-Key header is required", nil)
	}
	if err := validateTransfer(fromID, toID, amount, reference); err != nil {
		return nil, err
	}

	cached, claimed, err := l.idempotency.Reserve(ctx, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return cached, nil
	}

	txn, err := l.datasource.RecordTransfer(ctx, fromID, toID, amount, reference)
	if err != nil {
		// Free the key so the client can retry after fixing the request.
		if releaseErr := l.idempotency.Release(ctx, idempotencyKey); releaseErr != nil {
			logrus.Errorf("failed to release idempotency key %s: %v", idempotencyKey, releaseErr)
		}
		return nil, err
	}

	response := &model.TransferResponse{
		Success:       true,
		TransactionID: txn.TransactionID,
	}

	// The transfer is committed. Memoization and notification failures are
	// logged, never surfaced; surfacing them would report a settled transfer
	// as failed.
	if err := l.idempotency.Commit(ctx, idempotencyKey, response); err != nil {
		logrus.Errorf("failed to memoize response for idempotency key %s: %v", idempotencyKey, err)
	}
	if err := l.SendTransferWebhook(ctx, txn); err != nil {
		logrus.Errorf("failed to schedule webhook for transaction %d: %v", txn.TransactionID, err)
	}
	return response, nil
}

// GetAccountBalance returns the account with its current stored balance.
func (l *LedgerFlow) GetAccountBalance(ctx context.Context, id int64) (*model.Account, error) {
	return l.datasource.GetAccount(ctx, id)
}

// GetTransaction returns a committed transaction with both ledger entries.
func (l *LedgerFlow) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return l.datasource.GetTransactionWithEntries(ctx, id)
}
