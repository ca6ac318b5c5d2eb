package fleetmap

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

const (
	// a path needs at least two points to be drawn
	MinPathPoints = 2
)

type (
	HistorySource interface {
		GetVehicleHistory(ctx context.Context, vehicleID string, from, to time.Time) (tracking.HistoryPoints, error)
	}

	// HistoryState is the trajectory of the selected vehicle for one day window.
	// It always belongs to exactly one selection generation.
	HistoryState struct {
		VehicleID  string                 `json:"vehicleId,omitempty"`
		Generation uint64                 `json:"generation"`
		Window     *Window                `json:"window,omitempty"`
		Loading    bool                   `json:"loading"`
		Error      bool                   `json:"error"`
		Err        error                  `json:"-"`
		Points     tracking.HistoryPoints `json:"points"`
	}

	// HistoryFetcher turns selection changes into history fetches for the
	// current UTC day. Late responses for an abandoned selection are discarded.
	HistoryFetcher struct {
		source HistorySource
		opts   options

		mu          sync.Mutex
		ctx         context.Context
		state       HistoryState
		cancel      context.CancelFunc // in-flight fetch
		unsubscribe func()
		wg          sync.WaitGroup

		observers observers[HistoryState]
	}
)

// HasPath reports whether enough points are available to draw a trajectory.
func (h HistoryState) HasPath() bool {
	return len(h.Points) >= MinPathPoints
}

func NewHistoryFetcher(source HistorySource, opts ...Option) *HistoryFetcher {
	return &HistoryFetcher{
		source: source,
		opts:   newOptions(opts),
	}
}

// Start follows sel until Stop. A selection that is already active is fetched right away.
func (h *HistoryFetcher) Start(ctx context.Context, sel *Selection) {
	h.mu.Lock()
	if h.unsubscribe != nil {
		h.mu.Unlock()
		return
	}
	h.ctx = ctx
	h.unsubscribe = sel.Subscribe(h.onSelection)
	h.mu.Unlock()

	if current := sel.Current(); current.Active() {
		h.onSelection(SelectionChange{Current: current})
	}
}

// Stop detaches from the selection, cancels any in-flight fetch and waits for it.
func (h *HistoryFetcher) Stop() {
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.ctx = nil
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	h.wg.Wait()
}

func (h *HistoryFetcher) onSelection(change SelectionChange) {
	current := change.Current

	h.mu.Lock()
	if h.ctx == nil || current.Generation <= h.state.Generation {
		// not started, or an older change delivered late
		h.mu.Unlock()
		return
	}

	// whatever is in flight belongs to an older generation now
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	h.state = HistoryState{
		VehicleID:  current.VehicleID,
		Generation: current.Generation,
		Loading:    current.Active(),
	}

	if current.Active() {
		ctx, cancel := context.WithCancel(h.ctx)
		h.cancel = cancel
		h.wg.Add(1)
		go h.fetch(ctx, current)
	}
	state := h.state
	h.mu.Unlock()

	h.observers.notify(state)
}

func (h *HistoryFetcher) fetch(ctx context.Context, sel SelectionState) {
	defer h.wg.Done()

	// the window is fixed per fetch, computed when the request is issued
	window := DayWindow(h.opts.now())

	rctx := ctx
	if h.opts.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, h.opts.timeout)
		defer cancel()
	}

	points, err := h.source.GetVehicleHistory(rctx, sel.VehicleID, window.From, window.To)

	h.mu.Lock()
	if ctx.Err() != nil || h.state.Generation != sel.Generation || h.state.VehicleID != sel.VehicleID {
		h.mu.Unlock()
		historyStale.Inc()
		log.Debug().Str("vehicle", sel.VehicleID).Uint64("generation", sel.Generation).Msg("discarding stale history")
		return
	}
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}

	h.state.Loading = false
	h.state.Window = &window
	if err != nil {
		h.state.Error = true
		h.state.Err = err
		h.state.Points = nil
	} else {
		h.state.Error = false
		h.state.Err = nil
		h.state.Points = points
	}
	state := h.state
	h.mu.Unlock()

	if err != nil {
		historyFetches.WithLabelValues(resultError).Inc()
		log.Warn().Err(err).Str("vehicle", sel.VehicleID).Msg("history fetch failed")
	} else {
		historyFetches.WithLabelValues(resultOK).Inc()
		log.Debug().Str("vehicle", sel.VehicleID).Int("points", len(points)).Str("from", window.From.Format(time.RFC3339)).Msg("history")
	}

	h.observers.notify(state)
}

// State returns a copy of the history of the current selection.
func (h *HistoryFetcher) State() HistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()

	state := h.state
	state.Points = h.state.Points.Clone()
	return state
}

func (h *HistoryFetcher) Subscribe(fn func(HistoryState)) func() {
	return h.observers.add(fn)
}
