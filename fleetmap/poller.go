package fleetmap

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

type (
	LiveSource interface {
		GetLiveLocations(ctx context.Context) (tracking.LiveVehicles, error)
	}

	// LiveStatus is the read-only view of the poller. Data is the latest
	// successful snapshot and survives failed refreshes.
	LiveStatus struct {
		Loading   bool                  `json:"loading"`
		Error     bool                  `json:"error"`
		Err       error                 `json:"-"`
		Data      tracking.LiveVehicles `json:"data"`
		UpdatedAt time.Time             `json:"updatedAt"`
		Sequence  uint64                `json:"sequence"`
	}

	// Poller fetches the live position of the whole fleet immediately on Start
	// and then at a fixed interval until Stop.
	Poller struct {
		source LiveSource
		opts   options

		mu        sync.RWMutex
		status    LiveStatus
		issued    uint64 // sequence of the last poll sent
		completed uint64 // sequence of the last poll applied
		cancel    context.CancelFunc
		done      chan struct{}

		observers observers[LiveStatus]
	}
)

func NewPoller(source LiveSource, opts ...Option) *Poller {
	return &Poller{
		source: source,
		opts:   newOptions(opts),
	}
}

// Start activates polling. Calling Start on a running poller does nothing.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	if p.completed == 0 {
		p.status.Loading = true
	}
	p.mu.Unlock()

	log.Debug().Str("interval", p.opts.interval.String()).Msg("start live polling")

	go p.run(ctx, done)
}

// Stop cancels the polling task and waits for it to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	log.Debug().Msg("stop live polling")
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.Refresh(ctx)

	ticker := time.NewTicker(p.opts.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Refresh(ctx)
		}
	}
}

// Refresh performs one poll and applies its outcome. A response is dropped if
// a poll issued later has already been applied.
func (p *Poller) Refresh(ctx context.Context) error {
	p.mu.Lock()
	p.issued++
	seq := p.issued
	p.mu.Unlock()

	rctx := ctx
	if p.opts.timeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, p.opts.timeout)
		defer cancel()
	}

	vehicles, err := p.source.GetLiveLocations(rctx)
	if ctx.Err() != nil {
		// torn down while the request was in flight
		return ctx.Err()
	}

	p.mu.Lock()
	if seq < p.completed {
		p.mu.Unlock()
		livePolls.WithLabelValues(resultStale).Inc()
		log.Debug().Uint64("seq", seq).Msg("dropping out-of-order live response")
		return nil
	}
	p.completed = seq
	p.status.Loading = false

	if err != nil {
		p.status.Error = true
		p.status.Err = err
	} else {
		if vehicles == nil {
			vehicles = tracking.LiveVehicles{}
		}
		p.status.Error = false
		p.status.Err = nil
		p.status.Data = vehicles
		p.status.UpdatedAt = p.opts.now()
		p.status.Sequence = seq
	}
	status := p.status
	p.mu.Unlock()

	if err != nil {
		livePolls.WithLabelValues(resultError).Inc()
		log.Warn().Err(err).Uint64("seq", seq).Msg("live poll failed")
	} else {
		livePolls.WithLabelValues(resultOK).Inc()
		liveVehicles.Set(float64(len(vehicles)))
		log.Trace().Int("vehicles", len(vehicles)).Uint64("seq", seq).Msg("live snapshot")
	}

	p.observers.notify(status)
	return err
}

// Status returns a copy of the current live state.
func (p *Poller) Status() LiveStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := p.status
	status.Data = p.status.Data.Clone()
	return status
}

// Subscribe registers fn for every applied poll outcome. The snapshot passed to
// fn is shared and must not be modified.
func (p *Poller) Subscribe(fn func(LiveStatus)) func() {
	return p.observers.add(fn)
}

func (p *Poller) Running() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cancel != nil
}
