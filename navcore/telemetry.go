package navcore

import (
	"sync"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/divider"
	"github.com/windlass-robotics/navcore/polytraj"
)

// Sample is a time-stamped point on the optimized B-spline trajectory,
// sampled for visualization/telemetry per spec.md §6's outbound
// "visualization channels (best-effort)".
type Sample struct {
	T float64
	P r3.Vector
	V r3.Vector
	A r3.Vector
}

// Telemetry holds the best-effort visualization data produced by the most
// recent successful replan, per spec.md §6 and SPEC_FULL.md §12: the
// sampled global path, the polynomial warm-start, the input polyline fed to
// the optimizer, and the optimized B-spline's samples plus the divider's
// interval/distance analysis. Publishing it anywhere is the caller's
// responsibility — this core only populates the struct.
type Telemetry struct {
	GenerationID      uint64
	GlobalPath        []r3.Vector
	PolynomialSamples []polytraj.Sample
	InputPolyline     []r3.Vector
	OptimizedSamples  []Sample
	DividerIntervals  []divider.Interval
}

// telemetryStore is a single mutex-guarded latest-value cell; telemetry is
// refreshed far less often (once per replan) than the active trajectory is
// read, so a plain lock (rather than the trajectory handle's atomic pointer)
// is adequate here, matching spec.md §5's "guard only the fields that
// genuinely need it" framing.
type telemetryStore struct {
	mu    sync.RWMutex
	value Telemetry
}

func (s *telemetryStore) Store(t Telemetry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = t
}

func (s *telemetryStore) Load() Telemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}
