package config

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wacul/ptr"
)

func writeConfigFile(t *testing.T, cnf Configuration) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "nocks*.json")
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(f).Encode(cnf))
	require.NoError(t, f.Close())
	return f.Name()
}

func TestInitConfigAppliesDefaults(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "postgres://localhost/shop"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		Nocks:      NocksConfig{Token: "token", TestMode: true},
	})

	require.NoError(t, InitConfig(file))
	cnf, err := Fetch()
	require.NoError(t, err)

	assert.Equal(t, DEFAULT_PORT, cnf.Server.Port)
	assert.Equal(t, "postgres", cnf.DataSource.Driver)
	assert.Equal(t, SandboxEndpoint, cnf.Nocks.APIEndpoint())
	assert.Equal(t, "pending", cnf.Gateway.InitialOrderStatus)
	assert.Equal(t, "processing", cnf.Gateway.PaidOrderStatus)
	assert.Equal(t, "pending", cnf.Gateway.CancelledOrderStatus)
	assert.Equal(t, "cancelled", cnf.Gateway.ExpiredOrderStatus)
	assert.Equal(t, "new:notification", cnf.Queue.NotificationQueue)
}

func TestInitConfigRequiresDataSource(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		Redis: RedisConfig{Dns: "localhost:6379"},
	})
	assert.Error(t, InitConfig(file))
}

func TestInitConfigRejectsUnknownDriver(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "dsn", Driver: "oracle"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	})
	assert.Error(t, InitConfig(file))
}

func TestAPIEndpointSelectsEnvironment(t *testing.T) {
	n := NocksConfig{Endpoint: LiveEndpoint, SandboxEndpoint: SandboxEndpoint}
	assert.Equal(t, LiveEndpoint, n.APIEndpoint())
	n.TestMode = true
	assert.Equal(t, SandboxEndpoint, n.APIEndpoint())
}

func TestRateLimitDefaults(t *testing.T) {
	file := writeConfigFile(t, Configuration{
		DataSource: DataSourceConfig{Dns: "dsn"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: ptr.Float64(10)},
	})

	require.NoError(t, InitConfig(file))
	cnf, err := Fetch()
	require.NoError(t, err)

	require.NotNil(t, cnf.RateLimit.Burst)
	assert.Equal(t, 20, *cnf.RateLimit.Burst)
	require.NotNil(t, cnf.RateLimit.CleanupIntervalSec)
	assert.Equal(t, 10800, *cnf.RateLimit.CleanupIntervalSec)
}
