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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

func newTestIdempotency(t *testing.T) (*Idempotency, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewIdempotency(client), mr
}

func TestIdempotencyReserveClaimsKey(t *testing.T) {
	idem, mr := newTestIdempotency(t)
	ctx := context.Background()

	cached, claimed, err := idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Nil(t, cached)

	// The reservation carries the configured TTL.
	ttl := mr.TTL("idempotency:key1")
	assert.Greater(t, ttl.Hours(), 23.0)
}

func TestIdempotencyDuplicatePendingConflicts(t *testing.T) {
	idem, _ := newTestIdempotency(t)
	ctx := context.Background()

	_, claimed, err := idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	require.True(t, claimed)

	_, claimed, err = idem.Reserve(ctx, "key1")
	require.Error(t, err)
	assert.False(t, claimed)
	assert.True(t, apierror.Is(err, apierror.ErrConflict))
}

func TestIdempotencyCommitMemoizesResponse(t *testing.T) {
	idem, _ := newTestIdempotency(t)
	ctx := context.Background()

	_, claimed, err := idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	require.True(t, claimed)

	response := &model.TransferResponse{Success: true, TransactionID: 42}
	require.NoError(t, idem.Commit(ctx, "key1", response))

	cached, claimed, err := idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	assert.False(t, claimed)
	require.NotNil(t, cached)
	assert.True(t, cached.Success)
	assert.Equal(t, int64(42), cached.TransactionID)
}

func TestIdempotencyReleaseFreesKey(t *testing.T) {
	idem, _ := newTestIdempotency(t)
	ctx := context.Background()

	_, claimed, err := idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, idem.Release(ctx, "key1"))

	_, claimed, err = idem.Reserve(ctx, "key1")
	require.NoError(t, err)
	assert.True(t, claimed)
}
