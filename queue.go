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
	"log"

	"github.com/hibiken/asynq"

	"github.com/ledgerflow/ledgerflow/config"
	redis_db "github.com/ledgerflow/ledgerflow/internal/redis-db"
	"github.com/ledgerflow/ledgerflow/model"
)

// Queue hands webhook jobs to asynq for background delivery.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// RedisOption builds the asynq connection options from the configured Redis
// address.
func RedisOption(conf *config.Configuration) asynq.RedisClientOpt {
	opts, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("invalid redis address %q: %v", conf.Redis.Dns, err)
	}
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

func NewQueue(conf *config.Configuration) *Queue {
	redisOption := RedisOption(conf)
	return &Queue{
		Client:    asynq.NewClient(redisOption),
		Inspector: asynq.NewInspector(redisOption),
	}
}

// EnqueueWebhook schedules one delivery job. The task id deduplicates
// enqueues, so re-enqueueing an in-flight job is a no-op rather than a
// duplicate delivery. MaxRetry counts retries after the first attempt, hence
// the budget minus one.
func (q *Queue) EnqueueWebhook(ctx context.Context, job *model.WebhookJob, taskID string) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	task := asynq.NewTask(configuration.Queue.WebhookQueue, payload)
	info, err := q.Client.EnqueueContext(ctx, task,
		asynq.TaskID(taskID),
		asynq.Queue(configuration.Queue.WebhookQueue),
		asynq.MaxRetry(configuration.Queue.MaxDeliveryAttempts-1),
	)
	if err != nil {
		return err
	}
	log.Printf(" [*] Successfully enqueued webhook job: %+v", info.ID)
	return nil
}
