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
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

// Idempotency memoizes transfer responses by client-supplied key. A key is
// claimed atomically with SETNX before the transfer runs, which closes the
// window where two concurrent requests with the same key could both observe
// a miss and both execute.
type Idempotency struct {
	redis redis.UniversalClient
}

func NewIdempotency(redisClient redis.UniversalClient) *Idempotency {
	return &Idempotency{redis: redisClient}
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotency:%s", key)
}

// Reserve claims the idempotency key for this request. It returns
// (nil, true, nil) when the key was claimed and the transfer should run,
// (response, false, nil) when a completed response is already memoized, and
// a CONFLICT error when another request holds a pending claim.
func (i *Idempotency) Reserve(ctx context.Context, key string) (*model.TransferResponse, bool, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, false, err
	}

	pending, err := json.Marshal(model.IdempotencyRecord{Status: model.IdempotencyPending})
	if err != nil {
		return nil, false, err
	}

	claimed, err := i.redis.SetNX(ctx, idempotencyKey(key), pending, configuration.Idempotency.TTL()).Result()
	if err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to reserve idempotency key", err)
	}
	if claimed {
		return nil, true, nil
	}

	value, err := i.redis.Get(ctx, idempotencyKey(key)).Result()
	if err != nil {
		if err == redis.Nil {
			// The prior claim expired or was released between our SETNX and
			// GET. Treat it as an in-flight duplicate; the client can retry.
			return nil, false, apierror.NewAPIError(apierror.ErrConflict,
				fmt.Sprintf("A request with idempotency key '%s' is already in progress", key), nil)
		}
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to read idempotency record", err)
	}

	var record model.IdempotencyRecord
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return nil, false, apierror.NewAPIError(apierror.ErrInternalServer, "Corrupt idempotency record", err)
	}

	if record.Status == model.IdempotencyCompleted && record.Response != nil {
		return record.Response, false, nil
	}
	return nil, false, apierror.NewAPIError(apierror.ErrConflict,
		fmt.Sprintf("A request with idempotency key '%s' is already in progress", key), nil)
}

// Commit backfills the memoized response after the transfer commits. The
// original TTL is preserved so the memo expires relative to first use.
func (i *Idempotency) Commit(ctx context.Context, key string, response *model.TransferResponse) error {
	completed, err := json.Marshal(model.IdempotencyRecord{
		Status:   model.IdempotencyCompleted,
		Response: response,
	})
	if err != nil {
		return err
	}
	return i.redis.Set(ctx, idempotencyKey(key), completed, redis.KeepTTL).Err()
}

// Release drops a pending claim after a failed transfer so the client can
// retry with the same key.
func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.redis.Del(ctx, idempotencyKey(key)).Err()
}
