package main

import (
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
	"github.com/redhat-partner-ecosystem/fleetmap/relay"
)

const (
	// expected ENV variables
	CLIENT_ID  = "client_id"
	TRACE_MQTT = "trace_mqtt"
)

var (
	settings *internal.MqttSettings
	clientID string

	received = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetmap_relay_listener_events_total",
		Help: "The number of relay events received by kind",
	}, []string{"kind"})
)

func init() {
	// setup logging
	internal.SetLogLevel()

	if internal.GetBool(TRACE_MQTT, false) {
		mqtt.CRITICAL = stdlog.New(os.Stdout, "[CRIT] ", 0)
		mqtt.WARN = stdlog.New(os.Stdout, "[WARN]  ", 0)
		mqtt.DEBUG = stdlog.New(os.Stdout, "[DEBUG] ", 0)
	}
	mqtt.ERROR = stdlog.New(os.Stdout, "[ERROR] ", 0)

	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if !cfg.Mqtt.Enabled() {
		log.Fatal().Err(fmt.Errorf("missing env %s", internal.MQTT_HOST)).Msg("aborting")
	}
	settings = &cfg.Mqtt
	clientID = stdlib.GetString(CLIENT_ID, "fleet-mqtt-listener-svc")

	// prometheus endpoint setup
	internal.StartPrometheusListener()
}

func main() {
	// listen for relayed events
	cl := internal.CreateMqttClient(settings, clientID)
	if token := cl.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg(token.Error().Error())
	}
	defer cl.Disconnect(250)

	topic := relay.MqttTopic(settings.Topic, "+")
	if token := cl.Subscribe(topic, internal.AtLeastOnce, receiveMqttMsg); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Str("topic", topic).Msg("subscribe")
	}
	log.Info().Str("broker", settings.Broker()).Str("topic", topic).Str("clientid", clientID).Msg("start listening")

	// wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn().Msg("shutting down")
}

func receiveMqttMsg(client mqtt.Client, msg mqtt.Message) {
	kind := relay.MqttKind(msg.Topic())

	evt, err := relay.Decode(kind, msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("topic", msg.Topic()).Str("body", string(msg.Payload())).Msg("undecodable relay event")
		return
	}
	received.WithLabelValues(kind).Inc()

	log.Info().Str("topic", msg.Topic()).Uint16("id", msg.MessageID()).Msg(evt.String())
}
