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
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ledgerflow/ledgerflow/api/middleware"
	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/model"
)

// Ledger is the service surface the HTTP layer depends on.
type Ledger interface {
	ProcessTransfer(ctx context.Context, idempotencyKey string, fromID, toID int64, amount decimal.Decimal, reference string) (*model.TransferResponse, error)
	GetAccountBalance(ctx context.Context, id int64) (*model.Account, error)
	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ReplayWebhook(ctx context.Context, jobID string) error
}

type Api struct {
	ledger Ledger
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.GET("/health", a.Health)

	router.GET("/accounts/:id/balance", a.GetAccountBalance)

	router.POST("/transfers", a.RecordTransfer)
	router.GET("/transactions/:id", a.GetTransaction)

	router.POST("/webhooks/:id/replay", a.ReplayWebhook)
	return a.router
}

func NewAPI(l Ledger) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	// Local sink for trying out webhook delivery end to end.
	r.POST("/webhook", func(c *gin.Context) {
		var payload map[string]interface{}
		err := c.Bind(&payload)
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println(payload)
		c.JSON(200, "webhook received")
	})

	return &Api{ledger: l, router: r}
}

func (a Api) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
