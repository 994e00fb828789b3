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

package main

import (
	"log"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/ledgerflow/ledgerflow"
	"github.com/ledgerflow/ledgerflow/config"
)

func initializeWorkerServer(conf *config.Configuration) *asynq.Server {
	return asynq.NewServer(
		ledgerflow.RedisOption(conf),
		asynq.Config{
			Concurrency: conf.Queue.WorkerConcurrency,
			Queues: map[string]int{
				conf.Queue.WebhookQueue: 3,
			},
			// Retry n waits base*2^n, so a five-attempt budget with a one
			// second base spreads attempts over roughly fifteen seconds.
			RetryDelayFunc: ledgerflow.WebhookRetryDelay,
		},
	)
}

// workerCommands defines the "workers" command that consumes the webhook
// delivery queue.
func workerCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start ledgerflow workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			srv := initializeWorkerServer(conf)

			mux := asynq.NewServeMux()
			mux.HandleFunc(conf.Queue.WebhookQueue, app.lflow.ProcessWebhook)

			if err := srv.Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
