package relay

import (
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	SinkMqtt = "mqtt"

	mqttPublishTimeout = 5 * time.Second
	mqttDisconnectWait = 250 // ms
)

// MqttPublisher publishes events to <topic>/<kind>.
type MqttPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMqttPublisher connects to the broker described by s.
func NewMqttPublisher(s *internal.MqttSettings, clientID string) (*MqttPublisher, error) {
	cl := internal.CreateMqttClient(s, clientID)
	if token := cl.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Info().Str("broker", s.Broker()).Str("topic", s.Topic).Msg("mqtt relay connected")

	return NewMqttPublisherWithClient(cl, s.Topic), nil
}

func NewMqttPublisherWithClient(cl mqtt.Client, topic string) *MqttPublisher {
	return &MqttPublisher{
		client: cl,
		topic:  strings.TrimSuffix(topic, "/"),
	}
}

func (p *MqttPublisher) Name() string {
	return SinkMqtt
}

func (p *MqttPublisher) Publish(kind string, payload []byte) error {
	token := p.client.Publish(MqttTopic(p.topic, kind), internal.AtLeastOnce, false, payload)
	if !token.WaitTimeout(mqttPublishTimeout) {
		return fmt.Errorf("mqtt publish timeout after %s", mqttPublishTimeout)
	}
	return token.Error()
}

func (p *MqttPublisher) Close() {
	p.client.Disconnect(mqttDisconnectWait)
}

// MqttTopic is the topic events of the given kind are published to.
func MqttTopic(base, kind string) string {
	return fmt.Sprintf("%s/%s", base, kind)
}

// MqttKind extracts the event kind from a topic built by MqttTopic.
func MqttKind(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
