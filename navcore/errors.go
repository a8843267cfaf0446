package navcore

import "errors"

// Error kinds per spec.md §7. Each is a sentinel; callers use errors.Is.
var (
	// ErrTransientInfeasibility is returned when the optimizer failed but
	// the current active trajectory remains collision-free. The active
	// trajectory is retained.
	ErrTransientInfeasibility = errors.New("navcore: optimizer infeasible, retaining current trajectory")

	// ErrFatalInfeasibility is returned when the optimizer failed and the
	// current active trajectory is either unsafe or nonexistent. The
	// trajectory is discarded and the executor commanded to hold.
	ErrFatalInfeasibility = errors.New("navcore: optimizer infeasible, no safe trajectory to fall back on")

	// ErrMapUnavailable names a map handle that could not answer a query.
	// Attempt does not return it: it performs no map-availability check.
	ErrMapUnavailable = errors.New("navcore: map unavailable")

	// ErrStaleOdometry names a vehicle state too old to plan from. Attempt
	// does not return it: it performs no odometry-age check.
	ErrStaleOdometry = errors.New("navcore: odometry is stale")

	// ErrGoalUnreachable is returned by the global-planner path once per
	// new goal when C3 cannot find a route under the current map.
	ErrGoalUnreachable = errors.New("navcore: goal unreachable under current map")

	// ErrOptimizerTimeout is returned when the knot-spacing loop yields
	// fewer than two input samples. When the loop merely exhausts its time
	// or iteration budget, Attempt logs a warning and continues with the
	// best spacing attempted so far instead.
	ErrOptimizerTimeout = errors.New("navcore: knot-spacing search timed out")

	// ErrStaleGoal signals that a plan attempt completed against a goal
	// epoch that has since been superseded; the result is discarded.
	ErrStaleGoal = errors.New("navcore: plan computed against a superseded goal")

	// ErrNoGoal is returned by Attempt when no goal has ever been accepted,
	// per spec.md §3's invariant ("Goal is defined ⇔ at least one goal has
	// ever been accepted since boot").
	ErrNoGoal = errors.New("navcore: no goal defined")
)
