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
	"fmt"
	"log"
	"os"

	"github.com/ledgerflow/ledgerflow"
	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/database"
	"github.com/ledgerflow/ledgerflow/internal/cache"
	"github.com/ledgerflow/ledgerflow/internal/notification"
	redis_db "github.com/ledgerflow/ledgerflow/internal/redis-db"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// LedgerFlowCLI encapsulates the root Cobra command.
type LedgerFlowCLI struct {
	cmd *cobra.Command
}

// appInstance holds the service instance and its configuration, shared by
// every subcommand.
type appInstance struct {
	lflow *ledgerflow.LedgerFlow
	cnf   *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and initializes the service instance before
// any subcommand executes.
func preRun(app *appInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("ledgerflow.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newLedgerFlow, err := setupLedgerFlow(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.lflow = newLedgerFlow
		app.cnf = cnf

		return nil
	}
}

func setupLedgerFlow(cfg *config.Configuration) (*ledgerflow.LedgerFlow, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	redisClient, err := redis_db.NewRedisClient(cfg.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error connecting to redis: %v", err)
	}
	db.WithCache(cache.NewCache(redisClient.Client()))

	newLedgerFlow, err := ledgerflow.NewLedgerFlow(db)
	if err != nil {
		return nil, fmt.Errorf("error creating ledgerflow: %v", err)
	}
	return newLedgerFlow, nil
}

func NewCLI() *LedgerFlowCLI {
	var configFile string
	app := &appInstance{}

	var rootCmd = &cobra.Command{
		Use:   "ledgerflow",
		Short: "Transactional ledger engine",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./ledgerflow.json", "Configuration file for ledgerflow")
	rootCmd.PersistentPreRunE = preRun(app)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(seedCommands(app))

	return &LedgerFlowCLI{cmd: rootCmd}
}

func (w LedgerFlowCLI) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
