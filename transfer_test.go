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

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/internal/apierror"
)

func TestValidateTransfer(t *testing.T) {
	amount := decimal.NewFromInt(100)

	assert.NoError(t, validateTransfer(1, 2, amount, "ref123"))

	err := validateTransfer(1, 1, amount, "ref123")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidRequest))

	err = validateTransfer(1, 2, decimal.Zero, "ref123")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidRequest))

	err = validateTransfer(1, 2, decimal.NewFromInt(-5), "ref123")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidRequest))

	err = validateTransfer(1, 2, amount, "")
	assert.True(t, apierror.Is(err, apierror.ErrInvalidRequest))
}

func TestProcessTransfer(t *testing.T) {
	ds := &mockDataSource{}
	lflow, _ := newTestLedgerFlow(t, ds, "")

	amount := decimal.NewFromFloat(100.50)
	ds.On("RecordTransfer", mock.Anything, int64(1), int64(2), amount, "ref123").
		Return(testTransaction(), nil)

	resp, err := lflow.ProcessTransfer(context.Background(), "key1", 1, 2, amount, "ref123")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(7), resp.TransactionID)
	ds.AssertNumberOfCalls(t, "RecordTransfer", 1)
}

func TestProcessTransfer_RequiresIdempotencyKey(t *testing.T) {
	ds := &mockDataSource{}
	lflow, _ := newTestLedgerFlow(t, ds, "")

	_, err := lflow.ProcessTransfer(context.Background(), "", 1, 2, decimal.NewFromInt(100), "ref123")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInvalidRequest))
	ds.AssertNotCalled(t, "RecordTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// A retried request with the same key returns the memoized response and
// moves no funds a second time.
func TestProcessTransfer_Idempotent(t *testing.T) {
	ds := &mockDataSource{}
	lflow, _ := newTestLedgerFlow(t, ds, "")

	amount := decimal.NewFromFloat(100.50)
	ds.On("RecordTransfer", mock.Anything, int64(1), int64(2), amount, "ref123").
		Return(testTransaction(), nil)

	first, err := lflow.ProcessTransfer(context.Background(), "key1", 1, 2, amount, "ref123")
	require.NoError(t, err)

	second, err := lflow.ProcessTransfer(context.Background(), "key1", 1, 2, amount, "ref123")
	require.NoError(t, err)

	assert.Equal(t, first.TransactionID, second.TransactionID)
	ds.AssertNumberOfCalls(t, "RecordTransfer", 1)
}

// A failed transfer releases its reservation so the client can retry with
// the same key.
func TestProcessTransfer_FailureReleasesKey(t *testing.T) {
	ds := &mockDataSource{}
	lflow, _ := newTestLedgerFlow(t, ds, "")

	amount := decimal.NewFromInt(5000)
	nsf := apierror.NewAPIError(apierror.ErrInsufficientFunds, "Insufficient funds in account 1", nil)
	ds.On("RecordTransfer", mock.Anything, int64(1), int64(2), amount, "ref123").
		Return(nil, nsf).Once()
	ds.On("RecordTransfer", mock.Anything, int64(1), int64(2), amount, "ref123").
		Return(testTransaction(), nil).Once()

	_, err := lflow.ProcessTransfer(context.Background(), "key1", 1, 2, amount, "ref123")
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrInsufficientFunds))

	resp, err := lflow.ProcessTransfer(context.Background(), "key1", 1, 2, amount, "ref123")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	ds.AssertNumberOfCalls(t, "RecordTransfer", 2)
}

func TestGetAccountBalance(t *testing.T) {
	ds := &mockDataSource{}
	lflow, _ := newTestLedgerFlow(t, ds, "")

	ds.On("GetAccount", mock.Anything, int64(404)).
		Return(nil, apierror.NewAPIError(apierror.ErrAccountNotFound, "Account with ID '404' not found", nil))

	_, err := lflow.GetAccountBalance(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, apierror.Is(err, apierror.ErrAccountNotFound))
}
