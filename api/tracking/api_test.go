package tracking

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redhat-partner-ecosystem/fleetmap/internal"
)

const (
	vehicleID = "v1"
	token     = "test-token"

	liveJSON = `[
		{"vehicleId":"v1","vehiclePlate":"ABCD-12","timestamp":"2026-10-19T12:00:00.000Z","lat":-33.4,"lng":-70.6,"speedKmh":40},
		{"vehicleId":"v2","vehiclePlate":"EFGH-34","timestamp":"2026-10-19T12:00:05.000Z","lat":-33.5,"lng":-70.7}
	]`
	historyJSON = `[
		{"id":"p2","timestamp":"2026-10-19T10:00:00.000Z","lat":-33.41,"lng":-70.61,"speedKmh":12,"heading":90},
		{"id":"p1","timestamp":"2026-10-19T09:00:00.000Z","lat":-33.40,"lng":-70.60,"accuracyM":5}
	]`
)

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cl, err := NewClient(internal.WithEndpoint(srv.URL), internal.WithAccessToken(token))
	require.NoError(t, err)
	return cl, srv
}

func TestNewClient(t *testing.T) {

	cl, err := NewClient()
	assert.NotNil(t, cl)
	assert.NoError(t, err)

	assert.NotNil(t, cl.rc.HttpClient)
	assert.NotNil(t, cl.rc.Settings)
	assert.NotNil(t, cl.rc.Settings.Credentials)

	assert.Equal(t, TrackingApiAgent, cl.rc.Settings.UserAgent)
	assert.NotEmpty(t, cl.Endpoint())
}

func TestNewClientWithOptions(t *testing.T) {

	cl, err := NewClient(internal.WithEndpoint("foo.example.com"), internal.WithAccessToken("bar"))
	assert.NotNil(t, cl)
	assert.NoError(t, err)

	assert.Equal(t, "foo.example.com", cl.Endpoint())
	assert.Equal(t, "bar", cl.rc.Settings.Credentials.Token)
}

func TestNewClientFromConfig(t *testing.T) {
	cfg := &internal.TrackingSettings{Endpoint: "https://api.example.com", AccessToken: "abc", RequestTimeout: 3}

	cl, err := NewClientFromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cl.Endpoint())
	assert.Equal(t, "abc", cl.rc.Settings.Credentials.Token)
	assert.Equal(t, 3*time.Second, cl.rc.HttpClient.Timeout)
}

func TestGetLiveLocations(t *testing.T) {
	cl, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/live", r.URL.Path)
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.Write([]byte(liveJSON))
	})

	resp, err := cl.GetLiveLocations(context.TODO())
	require.NoError(t, err)
	require.Len(t, resp, 2)

	assert.Equal(t, "v1", resp[0].VehicleID)
	assert.Equal(t, "ABCD-12", resp[0].VehiclePlate)
	assert.Equal(t, 40.0, resp[0].Speed())
	assert.True(t, resp[0].Moving())

	assert.Nil(t, resp[1].SpeedKmh)
	assert.Equal(t, 0.0, resp[1].Speed())
	assert.False(t, resp[1].Moving())
}

func TestGetLiveLocationsEmpty(t *testing.T) {
	cl, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	resp, err := cl.GetLiveLocations(context.TODO())
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Empty(t, resp)
}

func TestGetLiveLocationsFailure(t *testing.T) {
	cl, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resp, err := cl.GetLiveLocations(context.TODO())
	assert.Nil(t, resp)
	assert.Error(t, err)

	var so *internal.StatusObject
	require.True(t, errors.As(err, &so))
	assert.Equal(t, http.StatusInternalServerError, so.Status)
	assert.ErrorIs(t, err, internal.ErrApiInvocationError)
}

func TestGetVehicleHistory(t *testing.T) {
	from := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 10, 19, 23, 59, 59, 0, time.UTC)

	cl, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/vehicles/v1/history", r.URL.Path)
		assert.Equal(t, "2026-10-19T00:00:00.000Z", r.URL.Query().Get("from"))
		assert.Equal(t, "2026-10-19T23:59:59.000Z", r.URL.Query().Get("to"))
		w.Write([]byte(historyJSON))
	})

	resp, err := cl.GetVehicleHistory(context.TODO(), vehicleID, from, to)
	require.NoError(t, err)
	require.Len(t, resp, 2)

	// source order is kept
	assert.Equal(t, "p2", resp[0].ID)
	assert.Equal(t, "p1", resp[1].ID)
	assert.Equal(t, 90.0, *resp[0].Heading)
	assert.Equal(t, 5.0, *resp[1].AccuracyM)
}

func TestGetVehicleHistoryEscapesID(t *testing.T) {
	cl, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/vehicles/a%2Fb/history", r.URL.EscapedPath())
		w.Write([]byte(`[]`))
	})

	now := time.Now()
	resp, err := cl.GetVehicleHistory(context.TODO(), "a/b", now, now)
	require.NoError(t, err)
	assert.Empty(t, resp)
}

func TestLiveVehiclesClone(t *testing.T) {
	speed := 10.0
	vs := LiveVehicles{{VehicleID: "v1", SpeedKmh: &speed}}

	c := vs.Clone()
	*c[0].SpeedKmh = 99

	assert.Equal(t, 10.0, vs[0].Speed())
	assert.Nil(t, LiveVehicles(nil).Clone())
}
