package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/txsvc/apikit/api"

	"github.com/redhat-partner-ecosystem/fleetmap/feed"
	"github.com/redhat-partner-ecosystem/fleetmap/fleetmap"
)

type server struct {
	console *fleetmap.Console
	hub     *hub

	unsubscribe func()
}

func newServer(console *fleetmap.Console) *server {
	return &server{
		console: console,
		hub:     newHub(console),
	}
}

func (s *server) start(ctx context.Context) {
	s.unsubscribe = s.console.Subscribe(s.hub.broadcast)
	s.console.Start(ctx)
}

func (s *server) stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.console.Stop()
	s.hub.close()
}

func (s *server) routes(e *echo.Echo) {
	e.GET("/api/fleet/view", s.getViewEndpoint)
	e.GET("/api/fleet/live", s.getLiveEndpoint)
	e.GET("/api/fleet/history", s.getHistoryEndpoint)
	e.PUT("/api/fleet/selection/:vehicleid", s.putSelectionEndpoint)
	e.DELETE("/api/fleet/selection", s.deleteSelectionEndpoint)
	e.GET("/api/fleet/ws", s.hub.serve)
	e.GET("/gtfs-rt/vehicle-positions", s.getVehiclePositionsEndpoint)
}

func (s *server) getViewEndpoint(c echo.Context) error {
	return api.StandardResponse(c, http.StatusOK, s.console.View())
}

func (s *server) getLiveEndpoint(c echo.Context) error {
	return api.StandardResponse(c, http.StatusOK, s.console.Live())
}

func (s *server) getHistoryEndpoint(c echo.Context) error {
	return api.StandardResponse(c, http.StatusOK, s.console.HistoryState())
}

func (s *server) putSelectionEndpoint(c echo.Context) error {
	vehicleID := c.Param("vehicleid")
	if vehicleID == "" {
		return api.ErrorResponse(c, http.StatusBadRequest, api.ErrInvalidRoute, "vehicleid")
	}
	return api.StandardResponse(c, http.StatusOK, s.console.Select(vehicleID))
}

func (s *server) deleteSelectionEndpoint(c echo.Context) error {
	return api.StandardResponse(c, http.StatusOK, s.console.Clear())
}

func (s *server) getVehiclePositionsEndpoint(c echo.Context) error {
	status := s.console.Live()
	if status.Loading {
		return api.ErrorResponse(c, http.StatusServiceUnavailable, api.ErrInternalError, "live snapshot not loaded")
	}

	data, err := feed.Marshal(status.Data, time.Now())
	if err != nil {
		log.Err(err).Msg("encode vehicle positions")
		return api.ErrorResponse(c, http.StatusInternalServerError, api.ErrInternalError, "vehicle positions")
	}
	return c.Blob(http.StatusOK, feed.ContentType, data)
}
