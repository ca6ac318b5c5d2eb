package fleetmap

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

type (
	// Source is the tracking API as seen by the console.
	Source interface {
		LiveSource
		HistorySource
	}

	// Console wires the poller, the selection and the history fetcher together
	// and publishes the bound MapView on every change.
	Console struct {
		Poller    *Poller
		Selection *Selection
		History   *HistoryFetcher

		mu     sync.Mutex
		unsubs []func()

		// serializes computing a view and delivering it
		publishMu sync.Mutex
		observers observers[MapView]
	}
)

func NewConsole(source Source, opts ...Option) *Console {
	return &Console{
		Poller:    NewPoller(source, opts...),
		Selection: NewSelection(),
		History:   NewHistoryFetcher(source, opts...),
	}
}

// Start activates live polling and history tracking.
func (c *Console) Start(ctx context.Context) {
	c.mu.Lock()
	if c.unsubs != nil {
		c.mu.Unlock()
		return
	}
	c.unsubs = []func(){
		c.Poller.Subscribe(func(LiveStatus) { c.publish() }),
		c.History.Subscribe(func(HistoryState) { c.publish() }),
		c.Selection.Subscribe(func(SelectionChange) { c.publish() }),
	}
	c.mu.Unlock()

	c.History.Start(ctx, c.Selection)
	c.Poller.Start(ctx)

	log.Info().Msg("fleet console started")
}

// Stop tears the console down: no polling and no history fetches afterwards.
func (c *Console) Stop() {
	c.mu.Lock()
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	if unsubs == nil {
		return
	}
	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	c.Poller.Stop()
	c.History.Stop()

	log.Info().Msg("fleet console stopped")
}

// Select is the operator action behind both the sidebar rows and the marker popups.
func (c *Console) Select(vehicleID string) SelectionState {
	return c.Selection.Select(vehicleID)
}

func (c *Console) Clear() SelectionState {
	return c.Selection.Clear()
}

func (c *Console) View() MapView {
	return Bind(c.Poller.Status(), c.Selection.Current(), c.History.State())
}

func (c *Console) Live() LiveStatus {
	return c.Poller.Status()
}

func (c *Console) HistoryState() HistoryState {
	return c.History.State()
}

// Subscribe registers fn for every change of the bound view. Views reach fn
// in the order they were bound, so the last one delivered is never older than
// the state. fn must not call back into Select or Clear.
func (c *Console) Subscribe(fn func(MapView)) func() {
	return c.observers.add(fn)
}

func (c *Console) publish() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.observers.notify(c.View())
}
