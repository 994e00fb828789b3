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
	"github.com/redis/go-redis/v9"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/database"
	redis_db "github.com/ledgerflow/ledgerflow/internal/redis-db"
)

// LedgerFlow wires the service layer together: the datasource for ledger
// state, Redis for idempotency reservations and the dispatcher rate window,
// and the queue for webhook delivery. All API handlers and queue workers go
// through one instance.
type LedgerFlow struct {
	queue       *Queue
	redis       redis.UniversalClient
	datasource  database.IDataSource
	idempotency *Idempotency
}

func NewLedgerFlow(db database.IDataSource) (*LedgerFlow, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns)
	if err != nil {
		return nil, err
	}

	newQueue := NewQueue(configuration)
	idempotency := NewIdempotency(redisClient.Client())

	return &LedgerFlow{
		queue:       newQueue,
		redis:       redisClient.Client(),
		datasource:  db,
		idempotency: idempotency,
	}, nil
}
