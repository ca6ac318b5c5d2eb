package tracking

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/txsvc/apikit/settings"
	"github.com/txsvc/stdlib/v2"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	TrackingApiAgent = "fleetmap/tracking"

	// ISO8601 with milliseconds, always rendered in UTC as e.g. 2026-10-19T00:00:00.000Z
	TimeFormat = "2006-01-02T15:04:05.000Z07:00"

	liveLocationsURI  = "/locations/live"
	vehicleHistoryURI = "/locations/vehicles/%s/history"
	historyFromParam  = "from"
	historyToParam    = "to"
)

type (
	Client struct {
		rc *internal.RestClient
	}
)

func NewClient(opts ...internal.ClientOption) (*Client, error) {
	ds := &settings.DialSettings{
		Endpoint:  stdlib.GetString(internal.TRACKING_HTTP_ENDPOINT, internal.DefaultTrackingEndpoint),
		UserAgent: TrackingApiAgent,
		Credentials: &settings.Credentials{
			Token: stdlib.GetString(internal.TRACKING_ACCESS_TOKEN, ""),
		},
	}

	rc, err := internal.NewRestClient(ds, opts...)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", internal.TRACKING_HTTP_ENDPOINT, err)
	}

	return &Client{rc: rc}, nil
}

// NewClientFromConfig creates a client for the tracking settings of the console configuration.
func NewClientFromConfig(cfg *internal.TrackingSettings, opts ...internal.ClientOption) (*Client, error) {
	o := []internal.ClientOption{
		internal.WithEndpoint(cfg.Endpoint),
		internal.WithAccessToken(cfg.AccessToken),
	}
	if cfg.RequestTimeout > 0 {
		httpClient := internal.NewLoggingTransport(http.DefaultTransport)
		httpClient.Timeout = cfg.Timeout()
		o = append(o, internal.WithHttpClient(httpClient))
	}
	return NewClient(append(o, opts...)...)
}

// GetLiveLocations returns the current position of every vehicle in the fleet.
func (c *Client) GetLiveLocations(ctx context.Context) (LiveVehicles, error) {
	var resp LiveVehicles

	status, err := c.rc.GET(ctx, liveLocationsURI, nil, &resp)
	if err != nil {
		return nil, internal.NewErrorStatus(status, err, liveLocationsURI)
	}
	if resp == nil {
		resp = LiveVehicles{}
	}

	return resp, nil
}

// GetVehicleHistory returns the recorded positions of one vehicle between from and to,
// in the order returned by the tracking API.
func (c *Client) GetVehicleHistory(ctx context.Context, vehicleID string, from, to time.Time) (HistoryPoints, error) {
	var resp HistoryPoints

	uri := fmt.Sprintf(vehicleHistoryURI, url.PathEscape(vehicleID))
	query := url.Values{}
	query.Set(historyFromParam, from.UTC().Format(TimeFormat))
	query.Set(historyToParam, to.UTC().Format(TimeFormat))

	status, err := c.rc.GET(ctx, uri, query, &resp)
	if err != nil {
		return nil, internal.NewErrorStatus(status, err, uri)
	}
	if resp == nil {
		resp = HistoryPoints{}
	}

	return resp, nil
}

func (c *Client) Endpoint() string {
	return c.rc.Settings.Endpoint
}
