// Package navcore implements the Planner Orchestrator (C9 in spec.md §4.9):
// the heart of the navigation core. It composes the global planner (C3),
// polynomial planner (C4), and B-spline optimizer (C5) into a single plan
// attempt, handles the warm-start/continuation logic of spec.md §4.9's
// three-way input-path construction, and owns the active-trajectory record
// that the executor (C10) samples.
//
// Grounded on the teacher's services/motion/builtin/replan.go for the
// overall "plan, then supervise execution against a cancellable context"
// shape, and operation.SingleOperationManager (itself grounded on
// operation/manager.go) for goal-epoch cancellation.
package navcore

import (
	"sync/atomic"
	"time"

	"github.com/windlass-robotics/navcore/bsplinetraj"
)

// ActiveTrajectory is the single trajectory the executor is currently
// following, per spec.md §3 ("Active trajectory record").
type ActiveTrajectory struct {
	Spline        *bsplinetraj.Spline
	StartWallTime time.Time
	GenerationID  uint64
}

// ElapsedSplineTime returns the spline-parameter time (wall time scaled by
// ρ) at wall clock now, per spec.md §4.8 ("τ = (now − start)·ρ").
func (a *ActiveTrajectory) ElapsedSplineTime(now time.Time) float64 {
	wall := now.Sub(a.StartWallTime).Seconds()
	if wall < 0 {
		wall = 0
	}
	rho := a.Spline.Rho
	if rho <= 0 {
		rho = 1
	}
	return wall * rho
}

// Done reports whether now is at or past the trajectory's terminal wall
// time.
func (a *ActiveTrajectory) Done(now time.Time) bool {
	rho := a.Spline.Rho
	if rho <= 0 {
		rho = 1
	}
	wall := now.Sub(a.StartWallTime).Seconds()
	return wall*rho >= a.Spline.Duration()
}

// TrajectoryHandle is a single pointer-level atomic swap guarding the active
// trajectory record, per spec.md §5's "Shared mutable trajectory" design
// note: the executor's read path (Load) is wait-free, and a replan's
// Store/Clear call is the only write, so no generation is ever observed
// partially replaced.
type TrajectoryHandle struct {
	p atomic.Pointer[ActiveTrajectory]
}

// Load returns the current active trajectory and whether one is set.
func (h *TrajectoryHandle) Load() (*ActiveTrajectory, bool) {
	v := h.p.Load()
	return v, v != nil
}

// Store atomically replaces the active trajectory.
func (h *TrajectoryHandle) Store(traj *ActiveTrajectory) {
	h.p.Store(traj)
}

// Clear discards the active trajectory, per spec.md §4.9's fatal-failure
// path ("discard the trajectory").
func (h *TrajectoryHandle) Clear() {
	h.p.Store(nil)
}
