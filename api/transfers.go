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
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	model2 "github.com/ledgerflow/ledgerflow/api/model"
	"github.com/ledgerflow/ledgerflow/internal/apierror"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// RecordTransfer handles POST /transfers. The Idempotency-Key header is
// mandatory; retried requests with the same key return the memoized response
// instead of moving funds twice.
//
// Responses:
// - 400 Bad Request: missing idempotency key or invalid body.
// - 404 Not Found: either account does not exist.
// - 409 Conflict: another request with the same key is in flight.
// - 422 Unprocessable Entity: insufficient funds.
// - 201 Created: the transfer is committed (or was already committed).
func (a Api) RecordTransfer(c *gin.Context) {
	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if idempotencyKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key header is required"})
		return
	}

	var newTransfer model2.RecordTransfer
	if err := c.ShouldBindJSON(&newTransfer); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	err := newTransfer.ValidateRecordTransfer()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	resp, err := a.ledger.ProcessTransfer(c.Request.Context(), idempotencyKey,
		newTransfer.FromAccountID, newTransfer.ToAccountID, newTransfer.Amount, newTransfer.Reference)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetTransaction handles GET /transactions/:id, returning the transaction
// with both of its ledger entries.
func (a Api) GetTransaction(c *gin.Context) {
	id, passed := c.Params.Get("id")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required. pass id in the route /:id"})
		return
	}
	transactionID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction id must be an integer"})
		return
	}

	transaction, err := a.ledger.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, transaction)
}
