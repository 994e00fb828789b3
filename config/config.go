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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "4100"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"LFLOW_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"LFLOW_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"LFLOW_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"LFLOW_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"LFLOW_REDIS_DNS"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type Notification struct {
	Slack   SlackWebhook `json:"slack"`
	Webhook struct {
		Url     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	} `json:"webhook"`
}

// QueueConfig drives the notification dispatcher: the asynq queue name, the
// attempt budget, the exponential-backoff base, the per-attempt delivery
// timeout and the global fixed-window rate cap shared by all workers.
type QueueConfig struct {
	WebhookQueue        string `json:"webhook_queue" envconfig:"LFLOW_QUEUE_WEBHOOK_QUEUE"`
	MaxDeliveryAttempts int    `json:"max_delivery_attempts" envconfig:"LFLOW_QUEUE_MAX_DELIVERY_ATTEMPTS"`
	RetryBackoffBaseSec int    `json:"retry_backoff_base_sec" envconfig:"LFLOW_QUEUE_RETRY_BACKOFF_BASE_SEC"`
	DeliveryTimeoutSec  int    `json:"delivery_timeout_sec" envconfig:"LFLOW_QUEUE_DELIVERY_TIMEOUT_SEC"`
	RateLimitMax        int    `json:"rate_limit_max" envconfig:"LFLOW_QUEUE_RATE_LIMIT_MAX"`
	RateLimitWindowMs   int    `json:"rate_limit_window_ms" envconfig:"LFLOW_QUEUE_RATE_LIMIT_WINDOW_MS"`
	WorkerConcurrency   int    `json:"worker_concurrency" envconfig:"LFLOW_QUEUE_WORKER_CONCURRENCY"`
}

func (q QueueConfig) RetryBackoffBase() time.Duration {
	return time.Duration(q.RetryBackoffBaseSec) * time.Second
}

func (q QueueConfig) DeliveryTimeout() time.Duration {
	return time.Duration(q.DeliveryTimeoutSec) * time.Second
}

func (q QueueConfig) RateLimitWindow() time.Duration {
	return time.Duration(q.RateLimitWindowMs) * time.Millisecond
}

type IdempotencyConfig struct {
	TTLHours int `json:"ttl_hours" envconfig:"LFLOW_IDEMPOTENCY_TTL_HOURS"`
}

func (i IdempotencyConfig) TTL() time.Duration {
	return time.Duration(i.TTLHours) * time.Hour
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"LFLOW_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"LFLOW_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"LFLOW_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type Configuration struct {
	ProjectName  string            `json:"project_name" envconfig:"LFLOW_PROJECT_NAME"`
	Server       ServerConfig      `json:"server"`
	DataSource   DataSourceConfig  `json:"data_source"`
	Redis        RedisConfig       `json:"redis"`
	Notification Notification      `json:"notification"`
	Queue        QueueConfig       `json:"queue"`
	Idempotency  IdempotencyConfig `json:"idempotency"`
	RateLimit    RateLimitConfig   `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("lflow", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called ledgerflow.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	cnf.addDefaults()

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (cnf *Configuration) addDefaults() {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "LedgerFlow Server"
	}

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
	}

	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "webhook_queue"
	}
	if cnf.Queue.MaxDeliveryAttempts <= 0 {
		cnf.Queue.MaxDeliveryAttempts = 5
	}
	if cnf.Queue.RetryBackoffBaseSec <= 0 {
		cnf.Queue.RetryBackoffBaseSec = 1
	}
	if cnf.Queue.DeliveryTimeoutSec <= 0 {
		cnf.Queue.DeliveryTimeoutSec = 10
	}
	if cnf.Queue.RateLimitMax <= 0 {
		cnf.Queue.RateLimitMax = 5
	}
	if cnf.Queue.RateLimitWindowMs <= 0 {
		cnf.Queue.RateLimitWindowMs = 1000
	}
	if cnf.Queue.WorkerConcurrency <= 0 {
		cnf.Queue.WorkerConcurrency = 3
	}

	if cnf.Idempotency.TTLHours <= 0 {
		cnf.Idempotency.TTLHours = 24
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	mockConfig.addDefaults()
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
