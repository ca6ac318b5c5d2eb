package feed

import (
	"time"

	gtfs "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
)

const (
	GtfsRealtimeVersion = "2.0"
	ContentType         = "application/x-protobuf"

	kmhToMs = 1 / 3.6
)

// VehiclePositions encodes a live snapshot as a full-dataset GTFS-realtime feed.
// Vehicles keep the order of the snapshot.
func VehiclePositions(vehicles tracking.LiveVehicles, now time.Time) *gtfs.FeedMessage {
	msg := &gtfs.FeedMessage{
		Header: &gtfs.FeedHeader{
			GtfsRealtimeVersion: proto.String(GtfsRealtimeVersion),
			Incrementality:      gtfs.FeedHeader_FULL_DATASET.Enum(),
			Timestamp:           proto.Uint64(uint64(now.Unix())),
		},
		Entity: make([]*gtfs.FeedEntity, 0, len(vehicles)),
	}

	for i := range vehicles {
		v := &vehicles[i]
		if v.VehicleID == "" {
			continue
		}

		descriptor := &gtfs.VehicleDescriptor{Id: proto.String(v.VehicleID)}
		if v.VehiclePlate != "" {
			descriptor.LicensePlate = proto.String(v.VehiclePlate)
			descriptor.Label = proto.String(v.VehiclePlate)
		}

		position := &gtfs.Position{
			Latitude:  proto.Float32(float32(v.Lat)),
			Longitude: proto.Float32(float32(v.Lng)),
		}
		if v.SpeedKmh != nil {
			position.Speed = proto.Float32(float32(*v.SpeedKmh * kmhToMs))
		}

		vp := &gtfs.VehiclePosition{
			Vehicle:  descriptor,
			Position: position,
		}
		if ts, ok := Timestamp(v.Timestamp); ok {
			vp.Timestamp = proto.Uint64(uint64(ts.Unix()))
		}

		msg.Entity = append(msg.Entity, &gtfs.FeedEntity{
			Id:      proto.String(v.VehicleID),
			Vehicle: vp,
		})
	}
	return msg
}

// Marshal returns the wire encoding of the feed for the snapshot.
func Marshal(vehicles tracking.LiveVehicles, now time.Time) ([]byte, error) {
	return proto.Marshal(VehiclePositions(vehicles, now))
}

// Timestamp parses the ISO-8601 timestamp reported by the tracking API.
func Timestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
