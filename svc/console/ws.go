package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/fleetmap"
)

const (
	writeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type (
	// {"action":"select","vehicleId":"v1"} or {"action":"clear"}
	command struct {
		Action    string `json:"action"`
		VehicleID string `json:"vehicleId,omitempty"`
	}

	// hub pushes the map view to every connected browser and turns their
	// commands into selection changes.
	hub struct {
		console *fleetmap.Console

		mu      sync.Mutex
		clients map[*websocket.Conn]struct{}
	}
)

func newHub(console *fleetmap.Console) *hub {
	return &hub{
		console: console,
		clients: make(map[*websocket.Conn]struct{}),
	}
}

func (h *hub) serve(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return nil
	}

	// the current view first, so the map renders without waiting for a change
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	err = writeView(conn, h.console.View())
	h.mu.Unlock()

	if err != nil {
		h.remove(conn)
		return nil
	}

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("ws client connected")
	go h.readPump(conn)
	return nil
}

func (h *hub) broadcast(view fleetmap.MapView) {
	data, err := json.Marshal(view)
	if err != nil {
		log.Err(err).Msg("encode map view")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}

func (h *hub) readPump(conn *websocket.Conn) {
	defer h.remove(conn)

	for {
		var cmd command
		if err := conn.ReadJSON(&cmd); err != nil {
			if _, ok := err.(*json.SyntaxError); ok {
				log.Debug().Err(err).Msg("ignoring malformed ws command")
				continue
			}
			return
		}
		h.dispatch(&cmd)
	}
}

func (h *hub) dispatch(cmd *command) {
	switch cmd.Action {
	case fleetmap.CommandSelect:
		if cmd.VehicleID == "" {
			log.Debug().Msg("select without vehicle")
			return
		}
		h.console.Select(cmd.VehicleID)
	case fleetmap.CommandClear:
		h.console.Clear()
	default:
		log.Debug().Str("action", cmd.Action).Msg("unknown ws command")
	}
}

func writeView(conn *websocket.Conn, view fleetmap.MapView) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(view)
}
