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
	"database/sql"
	"fmt"

	"github.com/ledgerflow/ledgerflow/internal/apierror"
	"github.com/ledgerflow/ledgerflow/model"
)

func (d *Datasource) CreateWebhookJob(ctx context.Context, job *model.WebhookJob) error {
	_, err := d.Conn.ExecContext(ctx, `
		INSERT INTO webhook_jobs (job_id, transaction_id, url, payload, attempts, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, job.JobID, job.TransactionID, job.URL, []byte(job.Payload), job.Attempts, job.Status, job.CreatedAt)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to record webhook job", err)
	}
	return nil
}

func (d *Datasource) GetWebhookJob(ctx context.Context, jobID string) (*model.WebhookJob, error) {
	job := &model.WebhookJob{}
	var lastAttempt sql.NullTime
	err := d.Conn.QueryRowContext(ctx, `
		SELECT job_id, transaction_id, url, payload, attempts, status, created_at, last_attempt_at
		FROM webhook_jobs
		WHERE job_id = $1
	`, jobID).Scan(&job.JobID, &job.TransactionID, &job.URL, (*[]byte)(&job.Payload), &job.Attempts, &job.Status, &job.CreatedAt, &lastAttempt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Webhook job with ID '%s' not found", jobID), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to retrieve webhook job", err)
	}
	if lastAttempt.Valid {
		job.LastAttemptAt = &lastAttempt.Time
	}
	return job, nil
}

// MarkWebhookDelivering records the start of a delivery attempt and returns
// the new attempt count.
func (d *Datasource) MarkWebhookDelivering(ctx context.Context, jobID string) (int, error) {
	var attempts int
	err := d.Conn.QueryRowContext(ctx, `
		UPDATE webhook_jobs
		SET status = $2, attempts = attempts + 1, last_attempt_at = NOW()
		WHERE job_id = $1
		RETURNING attempts
	`, jobID, model.JobStatusDelivering).Scan(&attempts)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Webhook job with ID '%s' not found", jobID), err)
		}
		return 0, apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to update webhook job", err)
	}
	return attempts, nil
}

func (d *Datasource) MarkWebhookDelivered(ctx context.Context, jobID string) error {
	return d.setWebhookStatus(ctx, jobID, model.JobStatusDelivered)
}

// MarkWebhookExhausted settles a job whose attempt budget is spent. The row
// is kept for manual replay; nothing retries it automatically.
func (d *Datasource) MarkWebhookExhausted(ctx context.Context, jobID string) error {
	return d.setWebhookStatus(ctx, jobID, model.JobStatusExhausted)
}

// ResetWebhookJob returns an exhausted job to PENDING with a fresh attempt
// budget so it can be re-enqueued.
func (d *Datasource) ResetWebhookJob(ctx context.Context, jobID string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE webhook_jobs
		SET status = $2, attempts = 0
		WHERE job_id = $1
	`, jobID, model.JobStatusPending)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to reset webhook job", err)
	}
	return checkJobUpdated(result, jobID)
}

func (d *Datasource) setWebhookStatus(ctx context.Context, jobID, status string) error {
	result, err := d.Conn.ExecContext(ctx, `
		UPDATE webhook_jobs
		SET status = $2
		WHERE job_id = $1
	`, jobID, status)
	if err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to update webhook job status", err)
	}
	return checkJobUpdated(result, jobID)
}

func checkJobUpdated(result sql.Result, jobID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apierror.NewAPIError(apierror.ErrStoreFailure, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("Webhook job with ID '%s' not found", jobID), nil)
	}
	return nil
}
