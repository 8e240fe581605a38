package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"livery/internal/geo"
	"livery/internal/log"
)

// requestEnvelope is the outgoing wire shape. The backend expects the whole
// envelope serialized to a JSON string and that string JSON-encoded again,
// so the HTTP body is a string-typed JSON document.
type requestEnvelope struct {
	JobID      string            `json:"JobId"`
	ActionType string            `json:"ActionType"`
	ViewName   string            `json:"ViewName"`
	RequestID  string            `json:"RequestId"`
	DeviceType string            `json:"DeviceType"`
	Latitude   float64           `json:"Latitude"`
	Longitude  float64           `json:"Longitude"`
	Speed      float64           `json:"Speed"`
	Heading    float64           `json:"Heading"`
	Params     map[string]string `json:"Params,omitempty"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	// Endpoint is the dispatch backend URL. Required.
	Endpoint string
	// UserAgent is sent with every request and drives device detection.
	UserAgent string
	// HTTPClient overrides the default client (30 s timeout).
	HTTPClient *http.Client
	// Location supplies position readings. Defaults to a zero Static provider.
	Location geo.Provider
	// LocationTimeout bounds each position request. Defaults to geo.DefaultTimeout.
	LocationTimeout time.Duration
	// Activity, when set, is stamped after every call completes.
	Activity *ActivityMonitor
	// Tracer wraps each call in a span. Defaults to a no-op tracer.
	Tracer trace.Tracer
}

// Client issues enveloped requests to the dispatch backend and normalizes
// every outcome into a Record. Transport failures never escape as raw
// errors; they come back as an unauthorized record with a readable message.
type Client struct {
	endpoint    string
	userAgent   string
	device      DeviceKind
	httpc       *http.Client
	location    geo.Provider
	locTimeout  time.Duration
	activity    *ActivityMonitor
	tracer      trace.Tracer
}

// NewClient creates a dispatch client.
func NewClient(opts ClientOptions) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	location := opts.Location
	if location == nil {
		location = geo.Static{}
	}
	locTimeout := opts.LocationTimeout
	if locTimeout == 0 {
		locTimeout = geo.DefaultTimeout
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("dispatch")
	}
	return &Client{
		endpoint:   opts.Endpoint,
		userAgent:  opts.UserAgent,
		device:     DetectDevice(opts.UserAgent),
		httpc:      httpc,
		location:   location,
		locTimeout: locTimeout,
		activity:   opts.Activity,
		tracer:     tracer,
	}
}

// Call issues one action against the backend and returns the resulting
// record. The returned record is never nil: transport and decode failures
// are folded into a synthetic unauthorized record so downstream logic
// handles every outcome the same way.
func (c *Client) Call(ctx context.Context, jobID string, action Action, params map[string]string) *Record {
	ctx, span := c.tracer.Start(ctx, "dispatch.call",
		trace.WithAttributes(
			attribute.String("dispatch.action", action.Type),
			attribute.String("dispatch.view", action.View),
			attribute.String("dispatch.job_id", jobID),
		))
	defer span.End()

	if c.activity != nil {
		defer c.activity.Stamp()
	}

	record := c.call(ctx, jobID, action, params)
	span.SetAttributes(attribute.Int("dispatch.action_code", record.Header().ActionCode))
	return record
}

func (c *Client) call(ctx context.Context, jobID string, action Action, params map[string]string) *Record {
	reading := c.currentLocation(ctx)

	env := requestEnvelope{
		JobID:      jobID,
		ActionType: action.Type,
		ViewName:   action.View,
		RequestID:  uuid.NewString(),
		DeviceType: string(c.device),
		Latitude:   reading.Latitude,
		Longitude:  reading.Longitude,
		// The backend was built against a transposed ordering: it reads the
		// speed from the Heading slot and the heading from the Speed slot.
		// Keep the swap; server-side logic depends on it.
		Speed:   reading.Heading,
		Heading: reading.Speed,
		Params:  params,
	}

	inner, err := json.Marshal(env)
	if err != nil {
		return c.failure(action, fmt.Sprintf("could not encode request: %v", err))
	}
	body, err := json.Marshal(string(inner))
	if err != nil {
		return c.failure(action, fmt.Sprintf("could not encode request body: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return c.failure(action, fmt.Sprintf("could not build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return c.failure(action, fmt.Sprintf("dispatch server unreachable: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.failure(action, fmt.Sprintf("dispatch server returned %s", resp.Status))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.failure(action, fmt.Sprintf("could not read response: %v", err))
	}

	// The response body is a JSON string whose contents are the envelope.
	var payload string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return c.failure(action, fmt.Sprintf("malformed response body: %v", err))
	}
	var respEnv Envelope
	if err := json.Unmarshal([]byte(payload), &respEnv); err != nil {
		return c.failure(action, fmt.Sprintf("malformed response envelope: %v", err))
	}

	record := NewRecord(respEnv)
	log.Debug(log.CatAPI, "call completed",
		"action", action.Type, "view", action.View, "job", jobID,
		"code", record.Header().ActionCode, "route", record.Route())
	return record
}

// currentLocation returns the provider's reading, or the zero reading when
// the provider errors or exceeds the location timeout.
func (c *Client) currentLocation(ctx context.Context) geo.Reading {
	ctx, cancel := context.WithTimeout(ctx, c.locTimeout)
	defer cancel()

	reading, err := c.location.Current(ctx)
	if err != nil {
		log.Warn(log.CatAPI, "no position available, sending zeros", "error", err)
		return geo.ZeroReading()
	}
	return reading
}

func (c *Client) failure(action Action, message string) *Record {
	log.Error(log.CatAPI, "call failed", "action", action.Type, "message", message)
	return Failure(message)
}

// Auth runs the initial authentication call for a job.
func (c *Client) Auth(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionAuth, nil)
}

// Live runs the background liveness check.
func (c *Client) Live(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionLive, nil)
}

// Accept accepts the offered job.
func (c *Client) Accept(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionAccept, nil)
}

// Reject declines the offered job.
func (c *Client) Reject(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionReject, nil)
}

// Arrive marks the driver on scene.
func (c *Client) Arrive(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionArrive, nil)
}

// Start marks the passenger loaded.
func (c *Client) Start(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionStart, nil)
}

// AddStop records an intermediate stop during the ride.
func (c *Client) AddStop(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionAddStop, nil)
}

// End finishes the ride portion of the job.
func (c *Client) End(ctx context.Context, jobID string) *Record {
	return c.Call(ctx, jobID, ActionEnd, nil)
}

// Complete submits the final drop-off details.
func (c *Client) Complete(ctx context.Context, jobID, dropoff, cityState, passenger string) *Record {
	return c.Call(ctx, jobID, ActionSave, map[string]string{
		ParamDropoffLocation: dropoff,
		ParamDropoffCity:     cityState,
		ParamPassengerName:   passenger,
	})
}
