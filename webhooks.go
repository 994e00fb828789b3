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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/internal/request"
	"github.com/ledgerflow/ledgerflow/model"
)

// NewWebhook represents the structure of a webhook notification.
// It includes an event type and associated payload data.
type NewWebhook struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"data"`
}

// SendTransferWebhook records a delivery job for a committed transfer and
// enqueues it. Called only after the transfer transaction has committed; the
// job id doubles as the asynq task id so a duplicate enqueue collapses into
// the existing task.
func (l *LedgerFlow) SendTransferWebhook(ctx context.Context, txn *model.Transaction) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}

	if configuration.Notification.Webhook.Url == "" {
		return nil
	}

	payload, err := json.Marshal(NewWebhook{
		Event:   "transfer.success",
		Payload: txn,
	})
	if err != nil {
		return err
	}

	job := model.NewWebhookJob(txn.TransactionID, configuration.Notification.Webhook.Url, payload)
	if err := l.datasource.CreateWebhookJob(ctx, job); err != nil {
		return err
	}
	return l.queue.EnqueueWebhook(ctx, job, job.JobID)
}

// ProcessWebhook delivers one webhook job from the queue. Each invocation is
// one attempt: it waits for a slot in the shared rate window, records the
// attempt, posts the payload and settles the job's status. A non-nil return
// without SkipRetry hands the task back to asynq for a backoff retry.
func (l *LedgerFlow) ProcessWebhook(ctx context.Context, task *asynq.Task) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}

	var job model.WebhookJob
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		log.Printf("Error unmarshaling webhook job payload: %v", err)
		return fmt.Errorf("corrupt webhook job payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := l.reserveDeliverySlot(ctx); err != nil {
		return err
	}

	attempts, err := l.datasource.MarkWebhookDelivering(ctx, job.JobID)
	if err != nil {
		if apierror.Is(err, apierror.ErrNotFound) {
			return fmt.Errorf("webhook job %s no longer exists: %w", job.JobID, asynq.SkipRetry)
		}
		return err
	}
	log.Printf("Processing webhook job %s (attempt %d)", job.JobID, attempts)

	deliverErr := l.deliver(ctx, &job, configuration)
	if deliverErr == nil {
		return l.datasource.MarkWebhookDelivered(ctx, job.JobID)
	}

	if l.attemptsExhausted(ctx, configuration) {
		logrus.Errorf("webhook job %s exhausted after %d attempts: %v", job.JobID, attempts, deliverErr)
		if err := l.datasource.MarkWebhookExhausted(ctx, job.JobID); err != nil {
			return err
		}
		return fmt.Errorf("webhook delivery exhausted: %v: %w", deliverErr, asynq.SkipRetry)
	}
	return deliverErr
}

// deliver performs a single HTTP POST of the job payload, bounded by the
// configured per-attempt timeout. Any non-2xx response counts as a failed
// attempt.
func (l *LedgerFlow) deliver(ctx context.Context, job *model.WebhookJob, configuration *config.Configuration) error {
	ctx, cancel := context.WithTimeout(ctx, configuration.Queue.DeliveryTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Payload))
	if err != nil {
		return err
	}
	for key, value := range configuration.Notification.Webhook.Headers {
		req.Header.Set(key, value)
	}

	resp, err := request.Call(req, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// attemptsExhausted reports whether the attempt that just failed was the
// last one in the budget. The retry counters come from the task context; a
// context without them means nobody will retry, which counts as exhausted.
func (l *LedgerFlow) attemptsExhausted(ctx context.Context, configuration *config.Configuration) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		maxRetry = configuration.Queue.MaxDeliveryAttempts - 1
	}
	return retried >= maxRetry
}

// WebhookRetryDelay computes the backoff before retry n: base, then
// doubling per retry. Wired into the asynq server as its RetryDelayFunc.
func WebhookRetryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	base := time.Second
	if configuration, err := config.Fetch(); err == nil {
		base = configuration.Queue.RetryBackoffBase()
	}
	return base * (1 << n)
}

// reserveDeliverySlot blocks until the shared fixed-window rate cap admits
// another delivery. The counter lives in Redis so the cap holds across all
// worker processes. Waiting here does not consume a delivery attempt.
func (l *LedgerFlow) reserveDeliverySlot(ctx context.Context) error {
	configuration, err := config.Fetch()
	if err != nil {
		return err
	}
	window := configuration.Queue.RateLimitWindow()
	max := int64(configuration.Queue.RateLimitMax)

	for {
		windowID := time.Now().UnixMilli() / window.Milliseconds()
		key := fmt.Sprintf("webhooks:ratelimit:%d", windowID)

		count, err := l.redis.Incr(ctx, key).Result()
		if err != nil {
			return err
		}
		if count == 1 {
			// Expiry covers stragglers from clock skew between workers.
			l.redis.Expire(ctx, key, 2*window)
		}
		if count <= max {
			return nil
		}

		nextWindow := time.UnixMilli((windowID + 1) * window.Milliseconds())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(nextWindow)):
		}
	}
}

// ReplayWebhook re-enqueues an exhausted job with a fresh attempt budget.
// Only exhausted jobs are replayable; anything still pending or delivering
// is owned by the queue.
func (l *LedgerFlow) ReplayWebhook(ctx context.Context, jobID string) error {
	job, err := l.datasource.GetWebhookJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != model.JobStatusExhausted {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("Webhook job '%s' is %s; only exhausted jobs can be replayed", jobID, job.Status), nil)
	}

	if err := l.datasource.ResetWebhookJob(ctx, jobID); err != nil {
		return err
	}
	job.Status = model.JobStatusPending
	job.Attempts = 0

	// Fresh task id: the original id may still be tracked by asynq in its
	// archived set, which would swallow the enqueue.
	return l.queue.EnqueueWebhook(ctx, job, model.GenerateUUIDWithSuffix("task"))
}
