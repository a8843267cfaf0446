package navcore

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/windlass-robotics/navcore/spatialmath"
)

// Goal is an operator-issued goal pose, per spec.md §3. Each new goal
// message resets the plan (spec.md §6); ID distinguishes a genuinely new
// goal from a resubmission of an identical pose, per SPEC_FULL.md §11
// (google/uuid wiring).
type Goal struct {
	ID   uuid.UUID
	Pose spatialmath.Pose
}

// goalStore tracks the last accepted goal and a monotonically increasing
// epoch, used to detect and discard results computed against a superseded
// goal, per spec.md §5 ("Cancellation").
type goalStore struct {
	mu    sync.RWMutex
	goal  Goal
	set   bool
	epoch uint64
}

// Set records a new goal, returning the epoch assigned to it.
func (s *goalStore) Set(g Goal) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goal = g
	s.set = true
	epoch := atomic.AddUint64(&s.epoch, 1)
	return epoch
}

// Current returns the last accepted goal and whether any goal has ever been
// accepted, per spec.md §3's invariant ("Goal is defined ⇔ at least one goal
// has ever been accepted since boot").
func (s *goalStore) Current() (Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.goal, s.set
}

// Epoch returns the epoch of the most recently accepted goal.
func (s *goalStore) Epoch() uint64 {
	return atomic.LoadUint64(&s.epoch)
}
