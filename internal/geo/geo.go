// Package geo defines the location provider consumed by the dispatch client.
// The dispatch backend expects a position with every request; when no reading
// is available within the deadline, all fields fall back to zero.
package geo

import (
	"context"
	"time"
)

// DefaultTimeout bounds how long a position request may take before the
// zero-value reading is used instead.
const DefaultTimeout = 10 * time.Second

// Reading is a single position fix.
type Reading struct {
	Latitude  float64
	Longitude float64
	Speed     float64
	Heading   float64
}

// Provider supplies position readings.
// Implementations must respect ctx cancellation.
type Provider interface {
	// Current returns the best available reading. Implementations return an
	// error on permission denial or timeout; callers substitute ZeroReading.
	Current(ctx context.Context) (Reading, error)
}

// ZeroReading is the fallback used when no position can be obtained.
func ZeroReading() Reading { return Reading{} }

// Static is a Provider that always returns a fixed reading.
// Terminal sessions have no positioning hardware, so the reading comes from
// configuration (or stays zero).
type Static struct {
	Reading Reading
}

// Current returns the configured reading.
func (s Static) Current(ctx context.Context) (Reading, error) {
	select {
	case <-ctx.Done():
		return Reading{}, ctx.Err()
	default:
		return s.Reading, nil
	}
}
