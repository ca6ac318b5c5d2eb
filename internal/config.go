package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/txsvc/stdlib/v2"
)

const (
	// expected ENV variables
	CONFIG_FILE = "config_file"

	TRACKING_HTTP_ENDPOINT = "TRACKING_HTTP_ENDPOINT"
	TRACKING_ACCESS_TOKEN  = "TRACKING_ACCESS_TOKEN"

	POLL_INTERVAL   = "poll_interval"   // seconds
	REQUEST_TIMEOUT = "request_timeout" // seconds

	KAFKA_SERVICE      = "kafka_service"
	KAFKA_SERVICE_PORT = "kafka_service_port"
	KAFKA_TOPIC        = "kafka_topic"

	DefaultTrackingEndpoint = "http://localhost:3000"
	DefaultPollInterval     = 15
	DefaultRequestTimeout   = 10
)

type (
	Config struct {
		Tracking TrackingSettings `yaml:"tracking"`
		Mqtt     MqttSettings     `yaml:"mqtt"`
		Kafka    KafkaSettings    `yaml:"kafka"`
	}

	TrackingSettings struct {
		Endpoint       string `yaml:"endpoint" validate:"required,url"`
		AccessToken    string `yaml:"access_token"`
		PollInterval   int    `yaml:"poll_interval" validate:"gt=0"`
		RequestTimeout int    `yaml:"request_timeout" validate:"gte=0"`
	}

	KafkaSettings struct {
		Service string `yaml:"service"`
		Port    string `yaml:"port" validate:"omitempty,numeric"`
		Topic   string `yaml:"topic"`
	}
)

func (s *TrackingSettings) Interval() time.Duration {
	return time.Duration(s.PollInterval) * time.Second
}

func (s *TrackingSettings) Timeout() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

func (s *KafkaSettings) Enabled() bool {
	return s.Service != "" && s.Topic != ""
}

func (s *KafkaSettings) BootstrapServers() string {
	return fmt.Sprintf("%s:%s", s.Service, s.Port)
}

// LoadConfig reads the optional YAML file named by config_file, applies
// environment overrides and validates the result.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(stdlib.GetString(CONFIG_FILE, ""))
}

func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{
		Tracking: TrackingSettings{
			Endpoint:       DefaultTrackingEndpoint,
			PollInterval:   DefaultPollInterval,
			RequestTimeout: DefaultRequestTimeout,
		},
		Mqtt: MqttSettings{
			Protocol: "tcp",
			Port:     "1883",
			Topic:    "fleet/live",
		},
		Kafka: KafkaSettings{
			Port: "9092",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() {
	cfg.Tracking.Endpoint = stdlib.GetString(TRACKING_HTTP_ENDPOINT, cfg.Tracking.Endpoint)
	cfg.Tracking.AccessToken = stdlib.GetString(TRACKING_ACCESS_TOKEN, cfg.Tracking.AccessToken)
	cfg.Tracking.PollInterval = int(stdlib.GetInt(POLL_INTERVAL, int64(cfg.Tracking.PollInterval)))
	cfg.Tracking.RequestTimeout = int(stdlib.GetInt(REQUEST_TIMEOUT, int64(cfg.Tracking.RequestTimeout)))

	cfg.Mqtt.Host = stdlib.GetString(MQTT_HOST, cfg.Mqtt.Host)
	cfg.Mqtt.Protocol = stdlib.GetString(MQTT_PROTOCOL, cfg.Mqtt.Protocol)
	cfg.Mqtt.Port = stdlib.GetString(MQTT_PORT, cfg.Mqtt.Port)
	cfg.Mqtt.Username = stdlib.GetString(MQTT_USER, cfg.Mqtt.Username)
	cfg.Mqtt.Password = stdlib.GetString(MQTT_PASSWORD, cfg.Mqtt.Password)
	cfg.Mqtt.Topic = stdlib.GetString(MQTT_TOPIC, cfg.Mqtt.Topic)
	cfg.Mqtt.TLSSkipVerify = GetBool(MQTT_TLS_SKIP_VERIFY, cfg.Mqtt.TLSSkipVerify)

	cfg.Kafka.Service = stdlib.GetString(KAFKA_SERVICE, cfg.Kafka.Service)
	cfg.Kafka.Port = stdlib.GetString(KAFKA_SERVICE_PORT, cfg.Kafka.Port)
	cfg.Kafka.Topic = stdlib.GetString(KAFKA_TOPIC, cfg.Kafka.Topic)
}
