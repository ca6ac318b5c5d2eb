package main

import (
	"context"
	"crypto/subtle"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/txsvc/apikit/api"
	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	// expected ENV variables
	SIMULATOR_ADDR     = "simulator_addr"
	SIMULATOR_VEHICLES = "simulator_vehicles"
	SIMULATOR_TICK     = "simulator_tick" // seconds

	DefaultAddr     = ":3000"
	DefaultVehicles = 5
	DefaultTick     = 4
	DefaultToken    = "simulator"

	// every n-th tick a vehicle stands still
	stopEvery = 5
)

type (
	car struct {
		id     string
		plate  string
		offset int
		speed  float64
	}

	// simulator drives a fleet along a fixed loop and records every position
	// as history, the way the tracking API would.
	simulator struct {
		mu      sync.RWMutex
		cars    []*car
		tick    int
		live    tracking.LiveVehicles
		history map[string]tracking.HistoryPoints
	}
)

// a loop through central Santiago
var gpx = [][2]float64{
	{-33.43722, -70.65028},
	{-33.43915, -70.64460},
	{-33.44190, -70.63895},
	{-33.44580, -70.63410},
	{-33.45025, -70.63652},
	{-33.45390, -70.64207},
	{-33.45512, -70.65018},
	{-33.45204, -70.65790},
	{-33.44701, -70.66112},
	{-33.44115, -70.65703},
}

func init() {
	stdlib.Seed(stdlib.Now())

	// setup logging
	internal.SetLogLevel()
}

func main() {
	token := stdlib.GetString(internal.TRACKING_ACCESS_TOKEN, DefaultToken)
	tick := time.Duration(stdlib.GetInt(SIMULATOR_TICK, DefaultTick)) * time.Second

	sim := newSimulator(int(stdlib.GetInt(SIMULATOR_VEHICLES, DefaultVehicles)))
	sim.step(time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	go sim.run(ctx, tick)

	e := setup(sim, token)
	go func() {
		addr := stdlib.GetString(SIMULATOR_ADDR, DefaultAddr)
		log.Info().Str("addr", addr).Int("vehicles", len(sim.cars)).Msg("simulating tracking api")

		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg(err.Error())
		}
	}()

	// setup shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn().Msg("shutting down")
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	e.Shutdown(sctx)
}

func newSimulator(n int) *simulator {
	sim := &simulator{
		cars:    make([]*car, n),
		history: make(map[string]tracking.HistoryPoints),
	}
	for i := range sim.cars {
		sim.cars[i] = &car{
			id:     fmt.Sprintf("veh-%03d", i+1),
			plate:  fmt.Sprintf("SIM-%02d", i+1),
			offset: i * 2,
			speed:  20 + rand.Float64()*40,
		}
	}
	return sim
}

func (sim *simulator) run(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			sim.step(now)
		}
	}
}

// step moves every car to its next position and records it.
func (sim *simulator) step(now time.Time) {
	sim.mu.Lock()
	defer sim.mu.Unlock()

	ts := now.UTC().Format(tracking.TimeFormat)
	live := make(tracking.LiveVehicles, 0, len(sim.cars))

	for _, c := range sim.cars {
		pos := gpx[(sim.tick+c.offset)%len(gpx)]

		speed := c.speed
		if (sim.tick+c.offset)%stopEvery == 0 {
			speed = 0
		}

		live = append(live, tracking.LiveVehicle{
			VehicleID:    c.id,
			VehiclePlate: c.plate,
			Timestamp:    ts,
			Lat:          pos[0],
			Lng:          pos[1],
			SpeedKmh:     &speed,
		})

		heading := float64((sim.tick * 36) % 360)
		accuracy := 5.0
		sim.history[c.id] = append(sim.history[c.id], tracking.HistoryPoint{
			ID:        internal.XID(),
			Timestamp: ts,
			Lat:       pos[0],
			Lng:       pos[1],
			SpeedKmh:  &speed,
			Heading:   &heading,
			AccuracyM: &accuracy,
		})
	}

	sim.live = live
	sim.tick++

	log.Debug().Int("tick", sim.tick).Int("vehicles", len(live)).Msg("simulation step")
}

func (sim *simulator) liveLocations() tracking.LiveVehicles {
	sim.mu.RLock()
	defer sim.mu.RUnlock()
	return sim.live.Clone()
}

// vehicleHistory returns the recorded positions of a vehicle within [from, to].
func (sim *simulator) vehicleHistory(vehicleID string, from, to time.Time) (tracking.HistoryPoints, bool) {
	sim.mu.RLock()
	defer sim.mu.RUnlock()

	points, ok := sim.history[vehicleID]
	if !ok {
		return nil, false
	}

	out := make(tracking.HistoryPoints, 0, len(points))
	for _, p := range points {
		ts, err := time.Parse(time.RFC3339Nano, p.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(from) || ts.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, true
}

// http endpoint setup

func setup(sim *simulator, token string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.KeyAuth(func(key string, c echo.Context) (bool, error) {
		return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1, nil
	}))

	e.GET("/locations/live", func(c echo.Context) error {
		return api.StandardResponse(c, http.StatusOK, sim.liveLocations())
	})
	e.GET("/locations/vehicles/:vehicleid/history", func(c echo.Context) error {
		return getHistoryEndpoint(c, sim)
	})

	return e
}

func getHistoryEndpoint(c echo.Context, sim *simulator) error {
	vehicleID := c.Param("vehicleid")
	if vehicleID == "" {
		return api.ErrorResponse(c, http.StatusBadRequest, api.ErrInvalidRoute, "vehicleid")
	}

	from, err := time.Parse(time.RFC3339Nano, c.QueryParam("from"))
	if err != nil {
		return api.ErrorResponse(c, http.StatusBadRequest, api.ErrInvalidRoute, "from")
	}
	to, err := time.Parse(time.RFC3339Nano, c.QueryParam("to"))
	if err != nil {
		return api.ErrorResponse(c, http.StatusBadRequest, api.ErrInvalidRoute, "to")
	}

	points, ok := sim.vehicleHistory(vehicleID, from, to)
	if !ok {
		return api.ErrorResponse(c, http.StatusNotFound, api.ErrInvalidRoute, "vehicle not found")
	}
	return api.StandardResponse(c, http.StatusOK, points)
}
