package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"livery/internal/clock"
	"livery/internal/geo"
)

// decodeRequest unwraps the double-encoded body the backend contract requires.
func decodeRequest(t *testing.T, r *http.Request) requestEnvelope {
	t.Helper()
	raw, err := io.ReadAll(r.Body)
	require.NoError(t, err)

	var inner string
	require.NoError(t, json.Unmarshal(raw, &inner), "body must be a JSON string")

	var env requestEnvelope
	require.NoError(t, json.Unmarshal([]byte(inner), &env), "string must contain the envelope")
	return env
}

// respond writes an envelope in the backend's string-wrapped format.
func respond(t *testing.T, w http.ResponseWriter, env Envelope) {
	t.Helper()
	inner, err := json.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(w).Encode(string(inner)))
}

func TestClient_Call_Success(t *testing.T) {
	var got requestEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		respond(t, w, offerEnvelope())
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		Endpoint:  srv.URL,
		UserAgent: "Mozilla/5.0 (Linux; Android 14; Pixel 8)",
		Location:  geo.Static{Reading: geo.Reading{Latitude: 40.7, Longitude: -74.0, Speed: 12.5, Heading: 270}},
	})

	record := c.Auth(context.Background(), "JOB-1")

	require.True(t, record.OK())
	require.Equal(t, "Job Offer", record.Route())

	require.Equal(t, "JOB-1", got.JobID)
	require.Equal(t, "AUTH", got.ActionType)
	require.Equal(t, "AUTH", got.ViewName)
	require.Equal(t, "Android", got.DeviceType)
	require.NotEmpty(t, got.RequestID)
	require.Equal(t, 40.7, got.Latitude)
	require.Equal(t, -74.0, got.Longitude)
	// The envelope carries the reading transposed: heading in the Speed
	// slot, speed in the Heading slot.
	require.Equal(t, 270.0, got.Speed)
	require.Equal(t, 12.5, got.Heading)
}

func TestClient_Call_CompleteCarriesParams(t *testing.T) {
	var got requestEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		respond(t, w, Envelope{
			JHeader:   Header{ActionCode: CodeOK},
			JMetaData: MetaData{Headings: [][]string{{"Status", "Status"}}},
			JData:     [][]string{{"Completed"}},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	record := c.Complete(context.Background(), "JOB-1", "JFK Terminal 4", "Queens, NY", "A. Rivera")

	require.True(t, record.OK())
	require.Equal(t, "Completed", record.Route())
	require.Equal(t, "SAVE", got.ActionType)
	require.Equal(t, "COMPLETE", got.ViewName)
	require.Equal(t, "JFK Terminal 4", got.Params[ParamDropoffLocation])
	require.Equal(t, "Queens, NY", got.Params[ParamDropoffCity])
	require.Equal(t, "A. Rivera", got.Params[ParamPassengerName])
}

func TestClient_Call_NormalizesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	record := c.Auth(context.Background(), "JOB-1")

	require.True(t, record.Unauthorized())
	require.Equal(t, CodeUnauthorized, record.Header().ActionCode)
	require.NotEmpty(t, record.Message())
}

func TestClient_Call_NormalizesUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := NewClient(ClientOptions{Endpoint: srv.URL})
	record := c.Auth(context.Background(), "JOB-1")

	require.True(t, record.Unauthorized())
	require.NotEmpty(t, record.Message())
}

func TestClient_Call_NormalizesMalformedBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"plain object instead of string", `{"JHeader":{}}`},
		{"string containing junk", `"not an envelope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(ClientOptions{Endpoint: srv.URL})
			record := c.Auth(context.Background(), "JOB-1")
			require.True(t, record.Unauthorized())
			require.NotEmpty(t, record.Message())
		})
	}
}

type failingProvider struct{}

func (failingProvider) Current(ctx context.Context) (geo.Reading, error) {
	return geo.Reading{}, errors.New("permission denied")
}

func TestClient_Call_ZeroLocationOnProviderFailure(t *testing.T) {
	var got requestEnvelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		respond(t, w, offerEnvelope())
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, Location: failingProvider{}})
	record := c.Auth(context.Background(), "JOB-1")

	require.True(t, record.OK())
	require.Zero(t, got.Latitude)
	require.Zero(t, got.Longitude)
	require.Zero(t, got.Speed)
	require.Zero(t, got.Heading)
}

func TestClient_Call_StampsActivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(t, w, offerEnvelope())
	}))
	defer srv.Close()

	monitor := NewActivityMonitor(clock.RealClock{})
	defer monitor.Close()
	require.True(t, monitor.Last().IsZero())

	c := NewClient(ClientOptions{Endpoint: srv.URL, Activity: monitor})
	c.Auth(context.Background(), "JOB-1")

	require.False(t, monitor.Last().IsZero())
}

func TestClient_Call_StampsActivityOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	monitor := NewActivityMonitor(clock.RealClock{})
	defer monitor.Close()

	c := NewClient(ClientOptions{Endpoint: srv.URL, Activity: monitor})
	record := c.Auth(context.Background(), "JOB-1")

	require.True(t, record.Unauthorized())
	require.False(t, monitor.Last().IsZero())
}
