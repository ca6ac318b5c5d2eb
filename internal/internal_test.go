package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration(t *testing.T) {
	assert.Equal(t, 1230*time.Millisecond, Duration(1234567*time.Microsecond, 2))
	assert.Equal(t, 12*time.Millisecond, Duration(12345*time.Microsecond, 0))
}

func TestGetBool(t *testing.T) {
	t.Setenv("FLEETMAP_TEST_BOOL", "Yes")
	assert.True(t, GetBool("FLEETMAP_TEST_BOOL", false))

	t.Setenv("FLEETMAP_TEST_BOOL", "nope")
	assert.False(t, GetBool("FLEETMAP_TEST_BOOL", true))

	assert.True(t, GetBool("FLEETMAP_TEST_BOOL_UNSET", true))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, ParseLogLevel("TRACE"))
	assert.Equal(t, zerolog.DebugLevel, ParseLogLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLogLevel("warning"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLogLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLogLevel("whatever"))
}

func TestXID(t *testing.T) {
	assert.NotEqual(t, XID(), XID())
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFile("")
	require.NoError(t, err)

	assert.Equal(t, DefaultTrackingEndpoint, cfg.Tracking.Endpoint)
	assert.Equal(t, 15*time.Second, cfg.Tracking.Interval())
	assert.False(t, cfg.Mqtt.Enabled())
	assert.False(t, cfg.Kafka.Enabled())
}

func TestLoadConfigFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	data := `tracking:
  endpoint: "https://api.fleet.example.com"
  access_token: "from-file"
  poll_interval: 30
mqtt:
  host: "broker.example.com"
  topic: "fleet/test"
kafka:
  service: "kafka.example.com"
  topic: "fleet-live"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	t.Setenv(TRACKING_ACCESS_TOKEN, "from-env")

	cfg, err := LoadConfigFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.fleet.example.com", cfg.Tracking.Endpoint)
	assert.Equal(t, "from-env", cfg.Tracking.AccessToken)
	assert.Equal(t, 30*time.Second, cfg.Tracking.Interval())

	assert.True(t, cfg.Mqtt.Enabled())
	assert.Equal(t, "tcp://broker.example.com:1883", cfg.Mqtt.Broker())
	assert.Equal(t, "fleet/test", cfg.Mqtt.Topic)

	assert.True(t, cfg.Kafka.Enabled())
	assert.Equal(t, "kafka.example.com:9092", cfg.Kafka.BootstrapServers())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("tracking:\n  endpoint: \"not a url\"\n"), 0o600))

	_, err := LoadConfigFile(path)
	assert.Error(t, err)

	t.Setenv(POLL_INTERVAL, "0")
	_, err = LoadConfigFile("")
	assert.Error(t, err)
}

func TestSelectionChangeEvent(t *testing.T) {
	evt := SelectionChangeEvent{PreviousVehicleID: "v1", Generation: 3}
	assert.True(t, evt.Cleared())
	assert.Equal(t, "selection #3: 'v1' -> ''", evt.String())
}
