package fleetmap

import (
	"fmt"
	"strconv"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

const (
	FleetZoom   = 12
	DefaultZoom = 11

	CommandSelect = "select"
	CommandClear  = "clear"

	LabelMoving      = "En movimiento"
	LabelStopped     = "Detenido"
	LabelSelected    = "Seleccionado"
	LabelLoading     = "Cargando..."
	LabelError       = "Error al cargar"
	LabelShowHistory = "Ver historial hoy"
)

// DefaultCenter is used while the fleet is empty: Santiago, Chile.
var DefaultCenter = LatLng{-33.45, -70.6667}

type (
	// LatLng is a [lat, lng] pair, the shape map libraries expect.
	LatLng [2]float64

	// Action is an operator command bound to a view element.
	Action struct {
		Label     string `json:"label"`
		Command   string `json:"command"`
		VehicleID string `json:"vehicleId"`
	}

	Marker struct {
		VehicleID  string  `json:"vehicleId"`
		Plate      string  `json:"plate"`
		Position   LatLng  `json:"position"`
		SpeedKmh   float64 `json:"speedKmh"`
		SpeedLabel string  `json:"speedLabel"`
		Timestamp  string  `json:"timestamp"`
		Select     Action  `json:"select"`
	}

	SidebarRow struct {
		VehicleID   string `json:"vehicleId"`
		Plate       string `json:"plate"`
		Moving      bool   `json:"moving"`
		StatusLabel string `json:"statusLabel"`
		Timestamp   string `json:"timestamp"`
		Selected    bool   `json:"selected"`
		Select      Action `json:"select"`
	}

	// MapView is everything the rendering surface needs. It is derived from
	// the live, selection and history state and holds no state of its own.
	MapView struct {
		Center         LatLng       `json:"center"`
		Zoom           int          `json:"zoom"`
		Markers        []Marker     `json:"markers"`
		Sidebar        []SidebarRow `json:"sidebar"`
		Path           []LatLng     `json:"path,omitempty"`
		Selected       string       `json:"selected,omitempty"`
		Loading        bool         `json:"loading"`
		Error          bool         `json:"error"`
		StatusLabel    string       `json:"statusLabel,omitempty"`
		HistoryLoading bool         `json:"historyLoading"`
		HistoryError   bool         `json:"historyError"`
	}
)

// Bind derives the map view. Center and zoom follow the first vehicle of the
// snapshot as returned by the source; the path is only drawn for the current
// selection generation and only with at least two points.
func Bind(live LiveStatus, sel SelectionState, hist HistoryState) MapView {
	view := MapView{
		Center:   Center(live.Data),
		Zoom:     Zoom(live.Data),
		Markers:  make([]Marker, 0, len(live.Data)),
		Sidebar:  make([]SidebarRow, 0, len(live.Data)),
		Selected: sel.VehicleID,
		Loading:  live.Loading,
		Error:    live.Error,
	}

	switch {
	case live.Loading:
		view.StatusLabel = LabelLoading
	case live.Error:
		view.StatusLabel = LabelError
	}

	for i := range live.Data {
		v := &live.Data[i]
		action := Action{Label: LabelShowHistory, Command: CommandSelect, VehicleID: v.VehicleID}

		view.Markers = append(view.Markers, Marker{
			VehicleID:  v.VehicleID,
			Plate:      v.VehiclePlate,
			Position:   LatLng{v.Lat, v.Lng},
			SpeedKmh:   v.Speed(),
			SpeedLabel: SpeedLabel(v.Speed()),
			Timestamp:  v.Timestamp,
			Select:     action,
		})
		view.Sidebar = append(view.Sidebar, SidebarRow{
			VehicleID:   v.VehicleID,
			Plate:       v.VehiclePlate,
			Moving:      v.Moving(),
			StatusLabel: MovementLabel(v),
			Timestamp:   v.Timestamp,
			Selected:    sel.Active() && sel.VehicleID == v.VehicleID,
			Select:      action,
		})
	}

	if sel.Active() && hist.VehicleID == sel.VehicleID && hist.Generation == sel.Generation {
		view.HistoryLoading = hist.Loading
		view.HistoryError = hist.Error
		view.Path = Path(hist.Points)
	}

	return view
}

func Center(vehicles tracking.LiveVehicles) LatLng {
	if len(vehicles) > 0 {
		return LatLng{vehicles[0].Lat, vehicles[0].Lng}
	}
	return DefaultCenter
}

func Zoom(vehicles tracking.LiveVehicles) int {
	if len(vehicles) > 0 {
		return FleetZoom
	}
	return DefaultZoom
}

// Path returns the polyline in source order, or nil with fewer than two points.
func Path(points tracking.HistoryPoints) []LatLng {
	if len(points) < MinPathPoints {
		return nil
	}
	path := make([]LatLng, len(points))
	for i, p := range points {
		path[i] = LatLng{p.Lat, p.Lng}
	}
	return path
}

func MovementLabel(v *tracking.LiveVehicle) string {
	if v.Moving() {
		return LabelMoving
	}
	return LabelStopped
}

func SpeedLabel(kmh float64) string {
	return fmt.Sprintf("Vel: %s km/h", strconv.FormatFloat(kmh, 'f', -1, 64))
}
