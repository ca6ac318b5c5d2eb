package fleetmap

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK    = "ok"
	resultError = "error"
	resultStale = "stale"
)

var (
	livePolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetmap_live_polls_total",
		Help: "The number of completed live position polls",
	}, []string{"result"})

	liveVehicles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetmap_live_vehicles",
		Help: "The number of vehicles in the current live snapshot",
	})

	historyFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetmap_history_fetches_total",
		Help: "The number of completed vehicle history fetches",
	}, []string{"result"})

	historyStale = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fleetmap_history_stale_total",
		Help: "The number of history responses discarded because the selection moved on",
	})
)
