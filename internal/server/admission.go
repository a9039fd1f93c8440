package server

import (
	"context"

	"github.com/vyrodovalexey/embhttp/internal/config"
	"github.com/vyrodovalexey/embhttp/internal/observability"
)

// AdmissionGate is a counting permit pool bounding the number of
// concurrently pending accept operations. The gate is owned by the Server
// and shared by all of its accept loops; the permit channel is the only
// concurrently-mutated state in the admission path.
type AdmissionGate struct {
	permits chan struct{}
	metrics *observability.Metrics
}

// NewAdmissionGate creates a gate with the given capacity. A non-positive
// capacity falls back to the configured default.
func NewAdmissionGate(capacity int, metrics *observability.Metrics) *AdmissionGate {
	if capacity <= 0 {
		capacity = config.DefaultAdmissionCapacity
	}
	return &AdmissionGate{
		permits: make(chan struct{}, capacity),
		metrics: metrics,
	}
}

// Acquire takes one permit, blocking while all permits are held. It returns
// the context's error if ctx is cancelled first.
func (g *AdmissionGate) Acquire(ctx context.Context) error {
	select {
	case g.permits <- struct{}{}:
		g.metrics.AdmissionAcquired()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAcquire takes a permit without blocking and reports whether it
// succeeded.
func (g *AdmissionGate) TryAcquire() bool {
	select {
	case g.permits <- struct{}{}:
		g.metrics.AdmissionAcquired()
		return true
	default:
		return false
	}
}

// Release returns one permit. Releasing more than was acquired is a no-op.
func (g *AdmissionGate) Release() {
	select {
	case <-g.permits:
		g.metrics.AdmissionReleased()
	default:
	}
}

// InUse returns the number of permits currently held.
func (g *AdmissionGate) InUse() int {
	return len(g.permits)
}

// Capacity returns the total number of permits.
func (g *AdmissionGate) Capacity() int {
	return cap(g.permits)
}
