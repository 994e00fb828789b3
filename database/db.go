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
	"database/sql"
	"log"

	"github.com/ledgerflow/ledgerflow/config"
	"github.com/ledgerflow/ledgerflow/internal/cache"

	_ "github.com/lib/pq"
)

// Datasource is the handle to the ledger store. It is constructed
// explicitly at process start and injected into the components that need
// it; there is no package-level instance.
type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (*Datasource, error) {
	con, err := ConnectDB(configuration.DataSource.Dns)
	if err != nil {
		return nil, err
	}
	return &Datasource{Conn: con}, nil
}

// WithCache attaches a cache used for read paths over immutable rows.
func (d *Datasource) WithCache(c cache.Cache) *Datasource {
	d.Cache = c
	return d
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, err
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database connection error: %v", err)
		return nil, err
	}
	err = CreateSchema(db)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// CreateSchema creates the ledger tables if they do not exist yet:
// accounts, transactions, ledger_entries and webhook_jobs. Idempotency
// records live in Redis and have no table here.
func CreateSchema(db *sql.DB) error {
	if err := createAccountTable(db); err != nil {
		return err
	}
	if err := createTransactionTable(db); err != nil {
		return err
	}
	if err := createLedgerEntryTable(db); err != nil {
		return err
	}
	return createWebhookJobTable(db)
}

func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			balance NUMERIC(20,4) NOT NULL DEFAULT 0 CHECK (balance >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating accounts table: %v", err)
	}
	return err
}

func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			amount NUMERIC(20,4) NOT NULL CHECK (amount > 0),
			reference TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating transactions table: %v", err)
	}
	return err
}

func createLedgerEntryTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger_entries (
			id BIGSERIAL PRIMARY KEY,
			transaction_id BIGINT NOT NULL REFERENCES transactions(id),
			account_id BIGINT NOT NULL REFERENCES accounts(id),
			amount NUMERIC(20,4) NOT NULL CHECK (amount > 0),
			balance_after NUMERIC(20,4) NOT NULL,
			direction TEXT NOT NULL CHECK (direction IN ('DEBIT', 'CREDIT')),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		log.Printf("Error creating ledger_entries table: %v", err)
	}
	return err
}

func createWebhookJobTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS webhook_jobs (
			id BIGSERIAL PRIMARY KEY,
			job_id TEXT NOT NULL UNIQUE,
			transaction_id BIGINT NOT NULL REFERENCES transactions(id),
			url TEXT NOT NULL,
			payload JSONB NOT NULL,
			attempts INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'PENDING',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_attempt_at TIMESTAMPTZ
		)
	`)
	if err != nil {
		log.Printf("Error creating webhook_jobs table: %v", err)
	}
	return err
}
