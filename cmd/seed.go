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
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/ledgerflow/ledgerflow/database"
)

// seedCommands defines the "seed" command that resets the ledger to two
// demo accounts with opening balances. Destructive; meant for local
// development only.
func seedCommands(app *appInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "reset the ledger with demo accounts",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := database.NewDataSource(app.cnf)
			if err != nil {
				log.Fatalf("seed failed: %v", err)
			}
			if err := db.SeedDemoData(context.Background()); err != nil {
				log.Fatalf("seed failed: %v", err)
			}
			log.Println("seeded demo accounts Alice and Bob")
		},
	}

	return cmd
}
