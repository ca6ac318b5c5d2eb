package relay

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"

	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
	"github.com/redhat-partner-ecosystem/fleetmap/fleetmap"
	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	KindSnapshot  = "snapshot"
	KindSelection = "selection"

	DefaultQueueSize = 64

	resultOK      = "ok"
	resultError   = "error"
	resultDropped = "dropped"
)

var relayEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fleetmap_relay_events_total",
	Help: "The number of relayed fleet events by sink and outcome",
}, []string{"sink", "result"})

type (
	// Publisher delivers one encoded event of the given kind to a sink.
	Publisher interface {
		Name() string
		Publish(kind string, payload []byte) error
		Close()
	}

	// {"sequence":12,"vehicles":[...],"eventTime":1683137969}
	SnapshotEvent struct {
		Sequence  uint64                `json:"sequence"`
		Vehicles  tracking.LiveVehicles `json:"vehicles"`
		EventTime int64                 `json:"eventTime"`
	}

	// Relay forwards applied live snapshots and selection changes of a console
	// to its publishers. Events are queued and published by a single worker,
	// so a slow sink never blocks polling.
	Relay struct {
		publishers []Publisher

		mu     sync.Mutex
		unsubs []func()
		queue  chan event
		done   chan struct{}
	}

	event struct {
		kind    string
		payload []byte
	}
)

func (evt *SnapshotEvent) String() string {
	return fmt.Sprintf("snapshot #%d: %d vehicles", evt.Sequence, len(evt.Vehicles))
}

func New(publishers ...Publisher) *Relay {
	r := &Relay{
		publishers: publishers,
		queue:      make(chan event, DefaultQueueSize),
		done:       make(chan struct{}),
	}
	go r.worker()
	return r
}

// Attach subscribes the relay to the live snapshots and selection changes of c.
func (r *Relay) Attach(c *fleetmap.Console) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unsubs = append(r.unsubs,
		c.Poller.Subscribe(r.onSnapshot),
		c.Selection.Subscribe(r.onSelection),
	)
}

// Close detaches from all consoles, publishes what is still queued and closes the publishers.
func (r *Relay) Close() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	queue := r.queue
	r.queue = nil
	r.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	if queue == nil {
		return
	}
	close(queue)
	<-r.done

	for _, p := range r.publishers {
		p.Close()
	}
}

func (r *Relay) onSnapshot(status fleetmap.LiveStatus) {
	if status.Error {
		// only applied snapshots are relayed
		return
	}
	r.enqueue(KindSnapshot, &SnapshotEvent{
		Sequence:  status.Sequence,
		Vehicles:  status.Data,
		EventTime: stdlib.Now(),
	})
}

func (r *Relay) onSelection(change fleetmap.SelectionChange) {
	r.enqueue(KindSelection, &internal.SelectionChangeEvent{
		PreviousVehicleID: change.Previous.VehicleID,
		NextVehicleID:     change.Current.VehicleID,
		Generation:        change.Current.Generation,
		EventTime:         stdlib.Now(),
	})
}

func (r *Relay) enqueue(kind string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Err(err).Str("kind", kind).Msg("encode relay event")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.queue == nil {
		return
	}
	select {
	case r.queue <- event{kind: kind, payload: payload}:
	default:
		for _, p := range r.publishers {
			relayEvents.WithLabelValues(p.Name(), resultDropped).Inc()
		}
		log.Warn().Str("kind", kind).Msg("relay queue full, event dropped")
	}
}

func (r *Relay) worker() {
	defer close(r.done)

	for evt := range r.queue {
		for _, p := range r.publishers {
			if err := p.Publish(evt.kind, evt.payload); err != nil {
				relayEvents.WithLabelValues(p.Name(), resultError).Inc()
				log.Warn().Err(err).Str("sink", p.Name()).Str("kind", evt.kind).Msg("publish failed")
				continue
			}
			relayEvents.WithLabelValues(p.Name(), resultOK).Inc()
			log.Trace().Str("sink", p.Name()).Str("kind", evt.kind).Int("bytes", len(evt.payload)).Msg("published")
		}
	}
}

// Decode turns a relayed payload back into its event.
func Decode(kind string, payload []byte) (fmt.Stringer, error) {
	switch kind {
	case KindSnapshot:
		var evt SnapshotEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	case KindSelection:
		var evt internal.SelectionChangeEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	}
	return nil, fmt.Errorf("unknown event kind '%s'", kind)
}
