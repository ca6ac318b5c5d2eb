package internal

import (
	"crypto/tls"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	// https://www.hivemq.com/blog/mqtt-essentials-part-6-mqtt-quality-of-service-levels/
	AtLeastOnce byte = 1

	// expected ENV variables
	MQTT_HOST            = "mqtt_host"
	MQTT_PROTOCOL        = "mqtt_protocol"
	MQTT_PORT            = "mqtt_port"
	MQTT_USER            = "mqtt_user"
	MQTT_PASSWORD        = "mqtt_password"
	MQTT_TOPIC           = "mqtt_topic"
	MQTT_TLS_SKIP_VERIFY = "mqtt_tls_skip_verify"
)

type MqttSettings struct {
	Protocol      string `yaml:"protocol" validate:"omitempty,oneof=tcp ssl ws wss"`
	Host          string `yaml:"host"`
	Port          string `yaml:"port" validate:"omitempty,numeric"`
	Username      string `yaml:"user"`
	Password      string `yaml:"password"`
	Topic         string `yaml:"topic"`
	TLSSkipVerify bool   `yaml:"tls_skip_verify"`
}

func (s *MqttSettings) Enabled() bool {
	return s.Host != ""
}

func (s *MqttSettings) Broker() string {
	return fmt.Sprintf("%s://%s:%s", s.Protocol, s.Host, s.Port)
}

func CreateMqttClient(s *MqttSettings, clientID string) mqtt.Client {
	// setup and configuration
	opts := mqtt.NewClientOptions().AddBroker(s.Broker())

	opts.SetCleanSession(true)
	opts.SetClientID(clientID)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetAutoReconnect(true)

	opts.SetDefaultPublishHandler(func(client mqtt.Client, msg mqtt.Message) {
		log.Logger.Info().Str("topic", msg.Topic()).Str("body", string(msg.Payload())).Msg(fmt.Sprintf("un-handled message id %d", msg.MessageID()))
	})
	opts.SetOnConnectHandler(onConnectHandler)
	opts.SetConnectionLostHandler(func(c mqtt.Client, err error) {
		log.Logger.Warn().Err(err).Msg("connection lost")
	})

	if s.Username != "" {
		opts.SetUsername(s.Username)
	}
	if s.Password != "" {
		opts.SetPassword(s.Password)
	}
	if s.Protocol == "ssl" || s.Protocol == "wss" {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: s.TLSSkipVerify,
		})
	}

	// create a client
	return mqtt.NewClient(opts)
}

func onConnectHandler(c mqtt.Client) {
	log.Logger.Info().Bool("connected", c.IsConnected()).Bool("open", c.IsConnectionOpen()).Msg("onConnect")
}
