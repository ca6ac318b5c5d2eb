package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rs/zerolog/log"

	"github.com/txsvc/apikit"
	"github.com/txsvc/apikit/api"
	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
	"github.com/redhat-partner-ecosystem/fleetmap/fleetmap"
	"github.com/redhat-partner-ecosystem/fleetmap/internal"
	"github.com/redhat-partner-ecosystem/fleetmap/relay"
)

const (
	// expected ENV variables
	CLIENT_ID = "client_id"
)

var (
	srv *server
	rl  *relay.Relay
)

func configure() {
	// setup logging
	internal.SetLogLevel()

	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// no token, no tracking data
	if cfg.Tracking.AccessToken == "" {
		log.Fatal().Err(fmt.Errorf("missing env %s", internal.TRACKING_ACCESS_TOKEN)).Msg("aborting")
	}

	cl, err := tracking.NewClientFromConfig(&cfg.Tracking)
	if err != nil {
		log.Fatal().Err(err).Msg(err.Error())
	}

	console := fleetmap.NewConsole(cl,
		fleetmap.WithPollInterval(cfg.Tracking.Interval()),
		fleetmap.WithRequestTimeout(cfg.Tracking.Timeout()),
	)
	srv = newServer(console)

	// optional relays
	clientID := stdlib.GetString(CLIENT_ID, "fleet-console-svc")
	var publishers []relay.Publisher

	if cfg.Mqtt.Enabled() {
		p, err := relay.NewMqttPublisher(&cfg.Mqtt, clientID)
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt relay")
		}
		publishers = append(publishers, p)
	}
	if cfg.Kafka.Enabled() {
		p, err := relay.NewKafkaPublisher(&cfg.Kafka, clientID)
		if err != nil {
			log.Fatal().Err(err).Msg("kafka relay")
		}
		publishers = append(publishers, p)
	}
	if len(publishers) > 0 {
		rl = relay.New(publishers...)
		rl.Attach(console)
	}

	log.Info().Str("endpoint", cl.Endpoint()).Str("interval", cfg.Tracking.Interval().String()).Int("relays", len(publishers)).Msg("fleet console configured")

	// prometheus endpoint setup
	internal.StartPrometheusListener()
}

func main() {
	configure()
	srv.start(context.Background())

	// start the http listener
	svc, err := apikit.New(setup, shutdown)
	if err != nil {
		log.Fatal().Err(err).Msg(err.Error())
	}
	svc.Listen("")
}

// http endpoint setup

func setup() *echo.Echo {
	// create a new router instance
	e := echo.New()

	// add and configure any middlewares
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))

	// add your own endpoints here
	e.GET("/", api.DefaultEndpoint)
	srv.routes(e)

	// done
	return e
}

func shutdown(ctx context.Context, a *apikit.App) error {
	srv.stop()
	if rl != nil {
		rl.Close()
	}
	return nil
}
