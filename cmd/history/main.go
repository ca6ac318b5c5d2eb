package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/redhat-partner-ecosystem/fleetmap/api/tracking"
	"github.com/redhat-partner-ecosystem/fleetmap/fleetmap"
	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

type source interface {
	fleetmap.LiveSource
	fleetmap.HistorySource
}

func main() {
	var vehicleID string
	var day string
	var asJSON bool

	flag.StringVar(&vehicleID, "vehicle", "", "Vehicle id; without it the live fleet is listed")
	flag.StringVar(&day, "day", "", "UTC day of the history, YYYY-MM-DD (default today)")
	flag.BoolVar(&asJSON, "json", false, "Print raw JSON")
	flag.Parse()

	internal.SetLogLevel()

	cfg, err := internal.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	cl, err := tracking.NewClientFromConfig(&cfg.Tracking)
	if err != nil {
		log.Fatal().Err(err).Msg(err.Error())
	}

	if err := run(context.Background(), cl, os.Stdout, vehicleID, day, asJSON, time.Now()); err != nil {
		log.Fatal().Err(err).Msg("aborting")
	}
}

func run(ctx context.Context, src source, out io.Writer, vehicleID, day string, asJSON bool, now time.Time) error {
	if vehicleID == "" {
		vehicles, err := src.GetLiveLocations(ctx)
		if err != nil {
			return err
		}
		if asJSON {
			return json.NewEncoder(out).Encode(vehicles)
		}
		return printLive(out, vehicles)
	}

	if day != "" {
		d, err := time.Parse("2006-01-02", day)
		if err != nil {
			return fmt.Errorf("invalid day '%s': %w", day, err)
		}
		now = d
	}
	w := fleetmap.DayWindow(now)

	points, err := src.GetVehicleHistory(ctx, vehicleID, w.From, w.To)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(out).Encode(points)
	}
	return printHistory(out, vehicleID, w, points)
}

func printLive(out io.Writer, vehicles tracking.LiveVehicles) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VEHICLE\tPLATE\tSTATUS\tSPEED\tPOSITION\tTIMESTAMP")
	for i := range vehicles {
		v := &vehicles[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.5f,%.5f\t%s\n", v.VehicleID, v.VehiclePlate, fleetmap.MovementLabel(v), fleetmap.SpeedLabel(v.Speed()), v.Lat, v.Lng, v.Timestamp)
	}
	return tw.Flush()
}

func printHistory(out io.Writer, vehicleID string, w fleetmap.Window, points tracking.HistoryPoints) error {
	fmt.Fprintf(out, "%s: %d points between %s and %s\n", vehicleID, len(points), w.From.Format(tracking.TimeFormat), w.To.Format(tracking.TimeFormat))
	if len(points) < fleetmap.MinPathPoints {
		fmt.Fprintln(out, "not enough points for a trajectory")
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIMESTAMP\tPOSITION")
	for _, p := range points {
		fmt.Fprintf(tw, "%s\t%.5f,%.5f\n", p.Timestamp, p.Lat, p.Lng)
	}
	return tw.Flush()
}
