package relay

import (
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	SinkKafka = "kafka"

	kafkaFlushTimeout = 5000 // ms
)

// KafkaPublisher produces events to a single topic, keyed by event kind.
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
	done     chan struct{}
}

func NewKafkaPublisher(s *internal.KafkaSettings, clientID string) (*KafkaPublisher, error) {
	// https://github.com/edenhill/librdkafka/blob/master/CONFIGURATION.md
	kp, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":     s.BootstrapServers(),
		"client.id":             clientID,
		"broker.address.family": "v4",
	})
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: kp,
		topic:    s.Topic,
		done:     make(chan struct{}),
	}
	go p.deliveryReports()

	log.Info().Str("servers", s.BootstrapServers()).Str("topic", s.Topic).Msg("kafka relay connected")
	return p, nil
}

func (p *KafkaPublisher) Name() string {
	return SinkKafka
}

// Publish hands the message to the producer queue. Delivery failures are
// reported asynchronously.
func (p *KafkaPublisher) Publish(kind string, payload []byte) error {
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &p.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(kind),
		Value: payload,
	}, nil)
}

func (p *KafkaPublisher) Close() {
	if remaining := p.producer.Flush(kafkaFlushTimeout); remaining > 0 {
		log.Warn().Int("remaining", remaining).Msg("kafka relay closed with undelivered events")
	}
	p.producer.Close()
	<-p.done
}

func (p *KafkaPublisher) deliveryReports() {
	defer close(p.done)

	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				relayEvents.WithLabelValues(SinkKafka, resultError).Inc()
				log.Warn().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("delivery error")
			}
		case kafka.Error:
			log.Warn().Err(ev).Msg("kafka producer error")
		}
	}
}
