package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
	"github.com/redhat-partner-ecosystem/fleetmap/relay"
)

const (
	// expected ENV variables
	CLIENT_ID         = "client_id"
	GROUP_ID          = "group_id"
	KAFKA_AUTO_OFFSET = "auto_offset"
)

var (
	kc     *kafka.Consumer
	topics []string

	received = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetmap_relay_listener_events_total",
		Help: "The number of relay events received by kind",
	}, []string{"kind"})
)

func init() {
	// setup logging
	internal.SetLogLevel()

	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.Kafka.Enabled() {
		log.Fatal().Err(fmt.Errorf("missing env %s or %s", internal.KAFKA_SERVICE, internal.KAFKA_TOPIC)).Msg("aborting")
	}
	topics = strings.Split(cfg.Kafka.Topic, ",")

	clientID := stdlib.GetString(CLIENT_ID, "fleet-kafka-listener-svc")
	groupID := stdlib.GetString(GROUP_ID, "fleet-kafka-listener")
	autoOffset := stdlib.GetString(KAFKA_AUTO_OFFSET, "end") // smallest, earliest, beginning, largest, latest, end

	// https://github.com/edenhill/librdkafka/blob/master/CONFIGURATION.md
	_kc, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       cfg.Kafka.BootstrapServers(),
		"client.id":               clientID,
		"group.id":                groupID,
		"connections.max.idle.ms": 0,
		"auto.offset.reset":       autoOffset,
		"broker.address.family":   "v4",
	})
	if err != nil {
		log.Fatal().Err(err).Msg(err.Error())
	}
	kc = _kc

	// prometheus endpoint setup
	internal.StartPrometheusListener()
}

func main() {
	defer kc.Close()

	if err := kc.SubscribeTopics(topics, nil); err != nil {
		log.Fatal().Err(err).Msg(err.Error())
	}
	log.Info().Strs("topics", topics).Msg("start listening")

	for {
		msg, err := kc.ReadMessage(-1)
		if err != nil {
			// the client will automatically try to recover from all errors
			log.Error().Err(err).Msg("consumer error")
			continue
		}

		kind := string(msg.Key)
		evt, err := relay.Decode(kind, msg.Value)
		if err != nil {
			log.Warn().Err(err).Str("partition", msg.TopicPartition.String()).Msg("undecodable relay event")
			continue
		}
		received.WithLabelValues(kind).Inc()

		log.Info().Str("partition", msg.TopicPartition.String()).Str("ts", msg.Timestamp.Format(time.RFC3339)).Msg(evt.String())
	}
}
