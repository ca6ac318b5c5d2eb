package internal

import "fmt"

type (
	// {"previousVehicleId":"v1","nextVehicleId":"v2","generation":7,"eventTime":1683137969}
	SelectionChangeEvent struct {
		PreviousVehicleID string `json:"previousVehicleId,omitempty"`
		NextVehicleID     string `json:"nextVehicleId,omitempty"`
		Generation        uint64 `json:"generation"`
		EventTime         int64  `json:"eventTime"`
	}
)

// Cleared reports whether the event removed the operator focus.
func (evt *SelectionChangeEvent) Cleared() bool {
	return evt.NextVehicleID == ""
}

func (evt *SelectionChangeEvent) String() string {
	return fmt.Sprintf("selection #%d: '%s' -> '%s'", evt.Generation, evt.PreviousVehicleID, evt.NextVehicleID)
}
