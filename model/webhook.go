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
)

const (
	JobStatusPending    = "PENDING"
	JobStatusDelivering = "DELIVERING"
	JobStatusDelivered  = "DELIVERED"
	JobStatusExhausted  = "EXHAUSTED"
)

// WebhookJob tracks one notification delivery. The dispatcher worker is the
// only writer: it bumps Attempts when an attempt starts and settles the job
// in DELIVERED or, once the attempt budget is spent, EXHAUSTED. Exhausted
// jobs are kept for manual replay.
//
// Delivery is at-least-once: a worker crash between a successful call and
// the DELIVERED update causes a redelivery, so the payload carries the
// transaction identity for consumer-side de-duplication.
type WebhookJob struct {
	JobID         string          `json:"job_id"`
	TransactionID int64           `json:"transaction_id"`
	URL           string          `json:"url"`
	Payload       json.RawMessage `json:"payload"`
	Attempts      int             `json:"attempts"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	LastAttemptAt *time.Time      `json:"last_attempt_at,omitempty"`
}

// NewWebhookJob builds a pending job for a committed transaction.
func NewWebhookJob(transactionID int64, url string, payload json.RawMessage) *WebhookJob {
	return &WebhookJob{
		JobID:         GenerateUUIDWithSuffix("job"),
		TransactionID: transactionID,
		URL:           url,
		Payload:       payload,
		Status:        JobStatusPending,
		CreatedAt:     time.Now(),
	}
}
