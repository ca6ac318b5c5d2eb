package fleetmap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

func TestHistoryFetchOnSelect(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 15, 0, 0, time.UTC)
	src := &countingHistory{points: points(3)}
	sel := NewSelection()

	h := NewHistoryFetcher(src, WithClock(func() time.Time { return now }))
	h.Start(context.Background(), sel)
	defer h.Stop()

	assert.Empty(t, src.Calls(), "nothing selected, nothing fetched")

	sel.Select("v1")
	assert.Eventually(t, func() bool { return !h.State().Loading }, time.Second, 5*time.Millisecond)

	calls := src.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "v1", calls[0].vehicleID)
	assert.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), calls[0].from)
	assert.Equal(t, time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC), calls[0].to)

	state := h.State()
	assert.Equal(t, "v1", state.VehicleID)
	assert.Equal(t, uint64(1), state.Generation)
	assert.False(t, state.Error)
	assert.Equal(t, points(3), state.Points)
	assert.True(t, state.HasPath())
	require.NotNil(t, state.Window)
	assert.Equal(t, calls[0].from, state.Window.From)
}

func TestHistoryReselectRefetches(t *testing.T) {
	src := &countingHistory{points: points(2)}
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)
	defer h.Stop()

	sel.Select("v1")
	assert.Eventually(t, func() bool { return len(src.Calls()) == 1 && !h.State().Loading }, time.Second, 5*time.Millisecond)

	sel.Select("v1")
	assert.Eventually(t, func() bool { return len(src.Calls()) == 2 && !h.State().Loading }, time.Second, 5*time.Millisecond)
	assert.Equal(t, uint64(2), h.State().Generation)
}

func TestHistoryWindowComputedPerFetch(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2026, 10, 19, 23, 59, 58, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	src := &countingHistory{points: points(2)}
	sel := NewSelection()
	h := NewHistoryFetcher(src, WithClock(clock))
	h.Start(context.Background(), sel)
	defer h.Stop()

	sel.Select("v1")
	assert.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	sel.Select("v1")
	assert.Eventually(t, func() bool { return len(src.Calls()) == 2 }, time.Second, 5*time.Millisecond)

	calls := src.Calls()
	assert.Equal(t, 19, calls[0].from.Day())
	assert.Equal(t, 20, calls[1].from.Day())
	assert.Equal(t, time.Date(2026, 10, 20, 23, 59, 59, 0, time.UTC), calls[1].to)
}

func TestHistoryDiscardsAbandonedSelection(t *testing.T) {
	src := newBlockingHistory()
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)

	sel.Select("A")
	callA := src.next()
	require.NotNil(t, callA)

	sel.Select("B")
	callB := src.next()
	require.NotNil(t, callB)
	assert.Equal(t, "B", callB.vehicleID)

	// B resolves first, then A arrives late
	callB.reply <- historyReply{points: tracking3("B")}
	assert.Eventually(t, func() bool { return !h.State().Loading }, time.Second, 5*time.Millisecond)

	callA.reply <- historyReply{points: tracking3("A")}
	h.Stop() // waits for both fetches

	state := h.State()
	assert.Equal(t, "B", state.VehicleID)
	assert.Equal(t, tracking3("B"), state.Points)

	view := Bind(LiveStatus{}, sel.Current(), state)
	require.Len(t, view.Path, 3)
	assert.Equal(t, LatLng{1, 1}, view.Path[0])
}

func TestHistoryLateResponseBeforeCurrent(t *testing.T) {
	src := newBlockingHistory()
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)

	sel.Select("A")
	callA := src.next()
	sel.Select("B")
	callB := src.next()

	// A arrives while B is still pending
	callA.reply <- historyReply{points: tracking3("A")}
	time.Sleep(20 * time.Millisecond)

	state := h.State()
	assert.Equal(t, "B", state.VehicleID)
	assert.True(t, state.Loading)
	assert.Empty(t, state.Points)

	callB.reply <- historyReply{points: tracking3("B")}
	h.Stop()
	assert.Equal(t, tracking3("B"), h.State().Points)
}

func TestHistoryClearedBeforeResolution(t *testing.T) {
	src := newBlockingHistory()
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)

	sel.Select("A")
	callA := src.next()
	sel.Clear()

	callA.reply <- historyReply{points: tracking3("A")}
	h.Stop()

	state := h.State()
	assert.Empty(t, state.VehicleID)
	assert.False(t, state.Loading)
	assert.Empty(t, state.Points)
	assert.False(t, state.HasPath())
}

func TestHistoryFailure(t *testing.T) {
	src := &countingHistory{err: errUnavailable}
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)
	defer h.Stop()

	sel.Select("v1")
	assert.Eventually(t, func() bool { return h.State().Error }, time.Second, 5*time.Millisecond)

	state := h.State()
	assert.False(t, state.Loading)
	assert.ErrorIs(t, state.Err, errUnavailable)
	assert.Nil(t, state.Points)
	assert.Equal(t, "v1", sel.Current().VehicleID, "selection survives a failed fetch")
}

func TestHistoryStartWithActiveSelection(t *testing.T) {
	src := &countingHistory{points: points(2)}
	sel := NewSelection()
	sel.Select("v9")

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)
	defer h.Stop()

	assert.Eventually(t, func() bool { return len(src.Calls()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "v9", src.Calls()[0].vehicleID)
}

func TestHistoryNoFetchAfterStop(t *testing.T) {
	src := &countingHistory{points: points(2)}
	sel := NewSelection()

	h := NewHistoryFetcher(src)
	h.Start(context.Background(), sel)
	h.Stop()

	sel.Select("v1")
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, src.Calls())
}

// tracking3 is a three point trajectory tagged by vehicle.
func tracking3(tag string) tracking.HistoryPoints {
	out := points(3)
	for i := range out {
		out[i].ID = tag + out[i].ID
		out[i].Lat = float64(i + 1)
		out[i].Lng = float64(i + 1)
	}
	return out
}
