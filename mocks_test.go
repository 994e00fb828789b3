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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/model"
)

type mockDataSource struct {
	mock.Mock
}

func (m *mockDataSource) RecordTransfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, reference string) (*model.Transaction, error) {
	args := m.Called(ctx, fromID, toID, amount, reference)
	if txn, ok := args.Get(0).(*model.Transaction); ok {
		return txn, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataSource) GetTransactionWithEntries(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	if txn, ok := args.Get(0).(*model.Transaction); ok {
		return txn, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataSource) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if account, ok := args.Get(0).(*model.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataSource) CreateAccount(ctx context.Context, name string) (*model.Account, error) {
	args := m.Called(ctx, name)
	if account, ok := args.Get(0).(*model.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataSource) CreateWebhookJob(ctx context.Context, job *model.WebhookJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *mockDataSource) GetWebhookJob(ctx context.Context, jobID string) (*model.WebhookJob, error) {
	args := m.Called(ctx, jobID)
	if job, ok := args.Get(0).(*model.WebhookJob); ok {
		return job, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDataSource) MarkWebhookDelivering(ctx context.Context, jobID string) (int, error) {
	args := m.Called(ctx, jobID)
	return args.Int(0), args.Error(1)
}

func (m *mockDataSource) MarkWebhookDelivered(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockDataSource) MarkWebhookExhausted(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *mockDataSource) ResetWebhookJob(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

// newTestLedgerFlow builds a service instance backed by miniredis and the
// given datasource, storing a matching mock configuration.
func newTestLedgerFlow(t *testing.T, ds *mockDataSource, webhookURL string) (*LedgerFlow, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	mockConfig := &config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	}
	mockConfig.Notification.Webhook.Url = webhookURL
	config.MockConfig(mockConfig)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cnf, err := config.Fetch()
	require.NoError(t, err)

	return &LedgerFlow{
		queue:       NewQueue(cnf),
		redis:       client,
		datasource:  ds,
		idempotency: NewIdempotency(client),
	}, mr
}
