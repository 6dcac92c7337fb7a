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

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"

	// Nocks API endpoints, overridable from config for testing.
	LiveEndpoint    = "https://api.nocks.com/api/v2/"
	SandboxEndpoint = "https://sandbox.nocks.com/api/v2/"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"NOCKS_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"NOCKS_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"NOCKS_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"NOCKS_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"NOCKS_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"NOCKS_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns    string `json:"dns" envconfig:"NOCKS_DATA_SOURCE_DNS"`
	Driver string `json:"driver" envconfig:"NOCKS_DATA_SOURCE_DRIVER"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"NOCKS_REDIS_DNS"`
}

// NocksConfig holds credentials and endpoints for the payment processor.
type NocksConfig struct {
	Token           string `json:"token" envconfig:"NOCKS_API_TOKEN"`
	TestMode        bool   `json:"test_mode" envconfig:"NOCKS_TEST_MODE"`
	Endpoint        string `json:"endpoint" envconfig:"NOCKS_API_ENDPOINT"`
	SandboxEndpoint string `json:"sandbox_endpoint" envconfig:"NOCKS_API_SANDBOX_ENDPOINT"`
}

// APIEndpoint returns the endpoint matching the configured mode.
func (n NocksConfig) APIEndpoint() string {
	if n.TestMode {
		return n.SandboxEndpoint
	}
	return n.Endpoint
}

// GatewayConfig controls order-status mapping and the customer-facing URLs
// baked into transaction requests.
type GatewayConfig struct {
	// Order status applied when a transaction is created. "pending" or
	// "on-hold"; on-hold reserves stock up front.
	InitialOrderStatus string `json:"initial_order_status" envconfig:"NOCKS_GATEWAY_INITIAL_ORDER_STATUS"`
	// Order status applied when the payment completes.
	PaidOrderStatus string `json:"paid_order_status" envconfig:"NOCKS_GATEWAY_PAID_ORDER_STATUS"`
	// Order status applied when the customer cancels a payment. The order
	// itself is not cancelled; the customer may retry.
	CancelledOrderStatus string `json:"cancelled_order_status" envconfig:"NOCKS_GATEWAY_CANCELLED_ORDER_STATUS"`
	// Order status applied when the active payment expires.
	ExpiredOrderStatus string `json:"expired_order_status" envconfig:"NOCKS_GATEWAY_EXPIRED_ORDER_STATUS"`

	Debug    bool   `json:"debug" envconfig:"NOCKS_GATEWAY_DEBUG"`
	ShopName string `json:"shop_name" envconfig:"NOCKS_GATEWAY_SHOP_NAME"`
	Locale   string `json:"locale" envconfig:"NOCKS_GATEWAY_LOCALE"`

	// Public base URLs of this service, used to build the redirect and
	// callback URLs sent to the processor.
	WebhookURL string `json:"webhook_url" envconfig:"NOCKS_GATEWAY_WEBHOOK_URL"`
	ReturnURL  string `json:"return_url" envconfig:"NOCKS_GATEWAY_RETURN_URL"`

	// Shop pages the return endpoint redirects the customer to.
	CheckoutRetryURL string `json:"checkout_retry_url" envconfig:"NOCKS_GATEWAY_CHECKOUT_RETRY_URL"`
	OrderReceivedURL string `json:"order_received_url" envconfig:"NOCKS_GATEWAY_ORDER_RECEIVED_URL"`

	// Receive address per payment method id.
	TargetAddresses map[string]string `json:"target_addresses"`
}

type QueueConfig struct {
	NotificationQueue string `json:"notification_queue" envconfig:"NOCKS_QUEUE_NOTIFICATION"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"NOCKS_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"NOCKS_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"NOCKS_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
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

type Configuration struct {
	ProjectName     string       `json:"project_name" envconfig:"NOCKS_PROJECT_NAME"`
	EnableTelemetry bool         `json:"enable_telemetry" envconfig:"NOCKS_ENABLE_TELEMETRY"`
	Server       ServerConfig     `json:"server"`
	DataSource   DataSourceConfig `json:"data_source"`
	Redis        RedisConfig      `json:"redis"`
	Nocks        NocksConfig      `json:"nocks"`
	Gateway      GatewayConfig    `json:"gateway"`
	Queue        QueueConfig      `json:"queue"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
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
	err = envconfig.Process("nocks", &cnf)
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
		return nil, errors.New("config not loaded from file. Create a json file called nocks.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "Nocks Gateway"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	if cnf.Nocks.Token == "" {
		log.Println("Warning: Nocks API token is empty. Outbound API calls will be rejected by the processor.")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Nocks.Token = strings.TrimSpace(cnf.Nocks.Token)

	if cnf.DataSource.Driver == "" {
		cnf.DataSource.Driver = "postgres"
	}
	if cnf.DataSource.Driver != "postgres" && cnf.DataSource.Driver != "mysql" {
		return errors.New("data source driver must be postgres or mysql")
	}

	// Set default value for Port if it's empty
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Nocks.Endpoint == "" {
		cnf.Nocks.Endpoint = LiveEndpoint
	}
	if cnf.Nocks.SandboxEndpoint == "" {
		cnf.Nocks.SandboxEndpoint = SandboxEndpoint
	}

	if cnf.Gateway.InitialOrderStatus == "" {
		cnf.Gateway.InitialOrderStatus = "pending"
	}
	if cnf.Gateway.PaidOrderStatus == "" {
		cnf.Gateway.PaidOrderStatus = "processing"
	}
	if cnf.Gateway.CancelledOrderStatus == "" {
		// A cancelled payment resets the order, it does not cancel it.
		cnf.Gateway.CancelledOrderStatus = "pending"
	}
	if cnf.Gateway.ExpiredOrderStatus == "" {
		cnf.Gateway.ExpiredOrderStatus = "cancelled"
	}
	if cnf.Gateway.Locale == "" {
		cnf.Gateway.Locale = "en_US"
	}

	if cnf.Queue.NotificationQueue == "" {
		cnf.Queue.NotificationQueue = "new:notification"
	}

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}

	// Set default cleanup interval if not specified
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
