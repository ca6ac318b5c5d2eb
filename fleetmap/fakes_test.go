package fleetmap

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

var errUnavailable = errors.New("tracking api unavailable")

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func speed(v float64) *float64 {
	return &v
}

func vehicle(id string, lat, lng float64, kmh *float64) tracking.LiveVehicle {
	return tracking.LiveVehicle{
		VehicleID:    id,
		VehiclePlate: "PL-" + id,
		Timestamp:    "2026-10-19T12:00:00.000Z",
		Lat:          lat,
		Lng:          lng,
		SpeedKmh:     kmh,
	}
}

func points(n int) tracking.HistoryPoints {
	out := make(tracking.HistoryPoints, n)
	for i := range out {
		out[i] = tracking.HistoryPoint{
			ID:  string(rune('a' + i)),
			Lat: -33.0 - float64(i)/10,
			Lng: -70.0 - float64(i)/10,
		}
	}
	return out
}

type liveResult struct {
	vehicles tracking.LiveVehicles
	err      error
}

// scriptedLive answers live polls from a script, repeating the last entry.
type scriptedLive struct {
	mu      sync.Mutex
	script  []liveResult
	calls   int
	release chan struct{} // when set, every poll waits for a token
}

func (s *scriptedLive) GetLiveLocations(ctx context.Context) (tracking.LiveVehicles, error) {
	s.mu.Lock()
	idx := s.calls
	s.calls++
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	r := s.script[idx]
	release := s.release
	s.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.vehicles, r.err
}

func (s *scriptedLive) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type historyReply struct {
	points tracking.HistoryPoints
	err    error
}

type historyCall struct {
	vehicleID string
	from, to  time.Time
	reply     chan historyReply
}

// blockingHistory hands every request to the test and answers only when the
// test replies, regardless of cancellation, like a slow transport would.
type blockingHistory struct {
	calls chan *historyCall
}

func newBlockingHistory() *blockingHistory {
	return &blockingHistory{calls: make(chan *historyCall, 16)}
}

func (b *blockingHistory) GetVehicleHistory(ctx context.Context, vehicleID string, from, to time.Time) (tracking.HistoryPoints, error) {
	c := &historyCall{vehicleID: vehicleID, from: from, to: to, reply: make(chan historyReply, 1)}
	b.calls <- c
	r := <-c.reply
	return r.points, r.err
}

func (b *blockingHistory) next() *historyCall {
	select {
	case c := <-b.calls:
		return c
	case <-time.After(2 * time.Second):
		return nil
	}
}

// countingHistory answers immediately and records every request.
type countingHistory struct {
	mu     sync.Mutex
	calls  []historyCall
	points tracking.HistoryPoints
	err    error
}

func (c *countingHistory) GetVehicleHistory(ctx context.Context, vehicleID string, from, to time.Time) (tracking.HistoryPoints, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, historyCall{vehicleID: vehicleID, from: from, to: to})
	return c.points, c.err
}

func (c *countingHistory) Calls() []historyCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]historyCall, len(c.calls))
	copy(out, c.calls)
	return out
}

// fleetSource combines a scripted live feed and an immediate history.
type fleetSource struct {
	*scriptedLive
	*countingHistory
}

// orderedLive answers the n-th poll with responses[n], holding it until
// gate[n] is closed when a gate is set.
type orderedLive struct {
	mu        sync.Mutex
	calls     int
	responses map[int]liveResult
	gate      map[int]chan struct{}
}

func (o *orderedLive) GetLiveLocations(ctx context.Context) (tracking.LiveVehicles, error) {
	o.mu.Lock()
	o.calls++
	n := o.calls
	r := o.responses[n]
	gate := o.gate[n]
	o.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return r.vehicles, r.err
}

func (o *orderedLive) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}
