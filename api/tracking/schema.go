package tracking

type (
	// {"vehicleId":"v1","vehiclePlate":"ABCD-12","timestamp":"2026-10-19T12:00:00.000Z","lat":-33.4,"lng":-70.6,"speedKmh":40}
	LiveVehicle struct {
		VehicleID    string   `json:"vehicleId"`
		VehiclePlate string   `json:"vehiclePlate"`
		Timestamp    string   `json:"timestamp"`
		Lat          float64  `json:"lat"`
		Lng          float64  `json:"lng"`
		SpeedKmh     *float64 `json:"speedKmh,omitempty"`
	}

	LiveVehicles []LiveVehicle

	HistoryPoint struct {
		ID        string   `json:"id"`
		Timestamp string   `json:"timestamp"`
		Lat       float64  `json:"lat"`
		Lng       float64  `json:"lng"`
		SpeedKmh  *float64 `json:"speedKmh,omitempty"`
		Heading   *float64 `json:"heading,omitempty"`
		AccuracyM *float64 `json:"accuracyM,omitempty"`
	}

	HistoryPoints []HistoryPoint
)

// Speed returns the reported speed, zero when the source omitted it.
func (v *LiveVehicle) Speed() float64 {
	if v.SpeedKmh == nil {
		return 0
	}
	return *v.SpeedKmh
}

func (v *LiveVehicle) Moving() bool {
	return v.Speed() > 0
}

// Clone returns a copy that shares no memory with the receiver.
func (vs LiveVehicles) Clone() LiveVehicles {
	if vs == nil {
		return nil
	}
	out := make(LiveVehicles, len(vs))
	for i, v := range vs {
		if v.SpeedKmh != nil {
			speed := *v.SpeedKmh
			v.SpeedKmh = &speed
		}
		out[i] = v
	}
	return out
}

func (hp HistoryPoints) Clone() HistoryPoints {
	if hp == nil {
		return nil
	}
	out := make(HistoryPoints, len(hp))
	copy(out, hp)
	return out
}
