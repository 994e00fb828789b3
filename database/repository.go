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

	"github.com/ledgerflow/ledgerflow/model"
	"github.com/shopspring/decimal"
)

type transfer interface {
	RecordTransfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, reference string) (*model.Transaction, error)
	GetTransactionWithEntries(ctx context.Context, id int64) (*model.Transaction, error)
}

type account interface {
	GetAccount(ctx context.Context, id int64) (*model.Account, error)
	CreateAccount(ctx context.Context, name string) (*model.Account, error)
}

type webhookJob interface {
	CreateWebhookJob(ctx context.Context, job *model.WebhookJob) error
	GetWebhookJob(ctx context.Context, jobID string) (*model.WebhookJob, error)
	MarkWebhookDelivering(ctx context.Context, jobID string) (int, error)
	MarkWebhookDelivered(ctx context.Context, jobID string) error
	MarkWebhookExhausted(ctx context.Context, jobID string) error
	ResetWebhookJob(ctx context.Context, jobID string) error
}

// IDataSource is the storage surface the service layer depends on.
type IDataSource interface {
	transfer
	account
	webhookJob
}
