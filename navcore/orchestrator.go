package navcore

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/windlass-robotics/navcore/bsplinetraj"
	"github.com/windlass-robotics/navcore/divider"
	"github.com/windlass-robotics/navcore/globalplan"
	"github.com/windlass-robotics/navcore/logging"
	"github.com/windlass-robotics/navcore/navconfig"
	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
	"github.com/windlass-robotics/navcore/operation"
	"github.com/windlass-robotics/navcore/polytraj"
	"github.com/windlass-robotics/navcore/replan"
	"github.com/windlass-robotics/navcore/spatialmath"
	"github.com/windlass-robotics/navcore/vehiclestate"
)

// Options configures an Orchestrator. The static and dynamic navigators
// (cmd/static-navigator, cmd/dynamic-navigator) pass the same Options
// (Deadline from the configured planner time budget) and differ only in
// the replan.Policy they supply, per spec.md §1's "two surrounding
// subsystems... share this same pipeline."
type Options struct {
	// Deadline bounds the knot-spacing loop, per spec.md §4.9 ("A time
	// budget of 50 ms bounds this loop for the static navigator"). Zero
	// disables the deadline, relying on IterationCap alone.
	Deadline time.Duration
	// IterationCap bounds the knot-spacing loop's iteration count
	// regardless of Deadline, per spec.md §4.9 ("~30").
	IterationCap int
	// Now overrides the wall clock, for deterministic tests. Defaults to
	// time.Now.
	Now func() time.Time
}

// Orchestrator implements the Planner Orchestrator (C9), composing C3–C6
// into a single plan attempt per spec.md §4.9.
type Orchestrator struct {
	occMap *occupancy.Map
	cfg    navconfig.Config
	logger logging.Logger
	ops    *operation.SingleOperationManager
	policy *replan.Policy

	goals      goalStore
	traj       TrajectoryHandle
	telemetry  telemetryStore
	yawCommand atomic.Pointer[float64]
	generation atomic.Uint64

	deadline     time.Duration
	iterationCap int
	now          func() time.Time

	// optimize runs the fitted B-spline optimization. Defaults to
	// (*bsplinetraj.Optimizer).Optimize; tests override it to force a
	// deterministic ErrInfeasible without having to contrive an occupancy
	// map the nonlinear optimizer is guaranteed to fail against.
	optimize func(*bsplinetraj.Optimizer) (*bsplinetraj.Spline, error)
}

// New returns an Orchestrator bound to occMap, configured per cfg, logging
// through logger, driving the replan flags in policy.
func New(occMap *occupancy.Map, cfg navconfig.Config, logger logging.Logger, policy *replan.Policy, opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	iterationCap := opts.IterationCap
	if iterationCap <= 0 {
		iterationCap = cfg.PlannerIterationCap
	}
	return &Orchestrator{
		occMap:       occMap,
		cfg:          cfg,
		logger:       logger,
		ops:          &operation.SingleOperationManager{},
		policy:       policy,
		deadline:     opts.Deadline,
		iterationCap: iterationCap,
		now:          now,
		optimize:     (*bsplinetraj.Optimizer).Optimize,
	}
}

// Trajectory exposes the active-trajectory handle for the executor (C10) to
// read, per spec.md §5's "Shared mutable trajectory" design note.
func (o *Orchestrator) Trajectory() *TrajectoryHandle {
	return &o.traj
}

// Telemetry returns the visualization data from the most recent successful
// replan, per spec.md §6.
func (o *Orchestrator) Telemetry() Telemetry {
	return o.telemetry.Load()
}

// CommandedYaw returns the yaw target set by the most recent SetGoal call's
// realignment (spec.md §4.10's "realign yaw toward the goal azimuth"), and
// whether one is pending. It clears once a replan succeeds.
func (o *Orchestrator) CommandedYaw() (float64, bool) {
	p := o.yawCommand.Load()
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Goal returns the most recently accepted goal, if any.
func (o *Orchestrator) Goal() (Goal, bool) {
	return o.goals.Current()
}

// SetGoal accepts a new goal, per spec.md §4.10's "New goal" transition and
// §6's "each new message resets the plan." currentPosition is used both for
// the immediate goal-reach check (spec.md §8's boundary behaviour: "Goal
// coincident with current position: accept and immediately declare reached;
// no plan emitted") and for the yaw-realignment azimuth.
func (o *Orchestrator) SetGoal(currentPosition r3.Vector, pose spatialmath.Pose) Goal {
	g := Goal{ID: uuid.New(), Pose: pose}
	o.goals.Set(g)
	o.policy.NewGoal()

	if !o.cfg.UseYawControl && !o.cfg.NoYawTurning {
		heading := pose.Point.Sub(currentPosition)
		if heading.Norm() > 1e-6 {
			yaw := math.Atan2(heading.Y, heading.X)
			o.yawCommand.Store(&yaw)
		}
	} else {
		o.yawCommand.Store(nil)
	}

	if currentPosition.Sub(pose.Point).Norm() <= o.cfg.GoalReachTolerance {
		o.policy.GoalReached()
		o.traj.Clear()
	}

	return g
}

// ActiveTrajectoryCollisionFree reports whether every sample of the active
// trajectory from now to its end clears inflated occupancy, per spec.md
// §4.10's collision trigger and §4.9's transient/fatal failure distinction.
// It returns true (vacuously) when no trajectory is active.
func (o *Orchestrator) ActiveTrajectoryCollisionFree(now time.Time) bool {
	active, ok := o.traj.Load()
	if !ok {
		return true
	}
	return o.trajectoryCollisionFree(active, now)
}

func (o *Orchestrator) trajectoryCollisionFree(active *ActiveTrajectory, now time.Time) bool {
	totalWallDur := active.Spline.TerminalWallTime()
	elapsedWall := now.Sub(active.StartWallTime).Seconds()
	if elapsedWall < 0 {
		elapsedWall = 0
	}
	dt := o.occMap.Resolution() / math.Max(o.cfg.DesiredVelocity, 1e-3)
	if dt <= 1e-6 {
		dt = 0.05
	}
	for t := elapsedWall; t < totalWallDur; t += dt {
		if o.occMap.InflatedOccupied(active.Spline.PositionAt(t)) == occupancy.InflatedOccupied {
			return false
		}
	}
	return o.occMap.InflatedOccupied(active.Spline.PositionAt(totalWallDur)) != occupancy.InflatedOccupied
}

// continuousPath is a time-parameterized position source sampled at a
// caller-chosen spacing; it unifies the polynomial warm-start and the
// residual B-spline under one shape for the knot-spacing loop, per spec.md
// §9's design note ("treat both as 'sampled polylines' at the input to the
// optimizer").
type continuousPath struct {
	duration float64
	at       func(t float64) r3.Vector
}

func (c continuousPath) sample(delta float64) []r3.Vector {
	if delta <= 0 {
		delta = 0.05
	}
	var out []r3.Vector
	for t := 0.0; t < c.duration; t += delta {
		out = append(out, c.at(t))
	}
	out = append(out, c.at(c.duration))
	return out
}

func residualPath(active *ActiveTrajectory, from time.Time) continuousPath {
	totalWallDur := active.Spline.TerminalWallTime()
	elapsedWall := from.Sub(active.StartWallTime).Seconds()
	if elapsedWall < 0 {
		elapsedWall = 0
	}
	remaining := totalWallDur - elapsedWall
	if remaining < 0 {
		remaining = 0
	}
	return continuousPath{
		duration: remaining,
		at: func(t float64) r3.Vector {
			return active.Spline.PositionAt(elapsedWall + t)
		},
	}
}

func concatPath(first, second continuousPath) continuousPath {
	return continuousPath{
		duration: first.duration + second.duration,
		at: func(t float64) r3.Vector {
			if t <= first.duration {
				return first.at(t)
			}
			return second.at(t - first.duration)
		},
	}
}

// restOfGlobalPath implements spec.md §4.9's global-path substitution: "the
// suffix beginning at the vertex nearest the current position, restricted
// to those whose local direction agrees with forward motion within 135°."
// It returns nil if fewer than two usable vertices remain.
func restOfGlobalPath(global []r3.Vector, currentPos, currentVelocity r3.Vector) []r3.Vector {
	if len(global) == 0 {
		return nil
	}

	nearestIdx := 0
	nearestDist := global[0].Sub(currentPos).Norm()
	for i, p := range global {
		if d := p.Sub(currentPos).Norm(); d < nearestDist {
			nearestDist = d
			nearestIdx = i
		}
	}
	suffix := global[nearestIdx:]

	heading := currentVelocity
	if heading.Norm() < 1e-6 && len(suffix) > 0 {
		heading = suffix[0].Sub(currentPos)
	}
	if heading.Norm() < 1e-6 {
		heading = r3.Vector{X: 1}
	}
	heading = heading.Normalize()

	const maxAngle = 135.0 * math.Pi / 180.0
	out := []r3.Vector{currentPos}
	lastPoint, lastDir := currentPos, heading
	for _, p := range suffix {
		dir := p.Sub(lastPoint)
		if dir.Norm() < 1e-9 {
			continue
		}
		cos := lastDir.Dot(dir.Normalize())
		if cos > 1 {
			cos = 1
		} else if cos < -1 {
			cos = -1
		}
		if math.Acos(cos) > maxAngle {
			continue
		}
		out = append(out, p)
		lastPoint, lastDir = p, dir.Normalize()
	}

	if len(out) < 2 {
		return nil
	}
	return out
}

// fitKnotSpacing implements spec.md §4.9's knot-spacing adjustment loop: it
// resamples src at a shrinking Δ until bsplinetraj reports the spacing
// acceptable, bounded by o.deadline (if set) and o.iterationCap. On expiry
// it returns the best (densest) sampling attempted, per spec.md §5's
// "Timeouts" note.
func (o *Orchestrator) fitKnotSpacing(ctx context.Context, opt *bsplinetraj.Optimizer, src continuousPath) (path []r3.Vector, delta float64, timedOut bool) {
	delta = opt.InitKnotSpacing()
	started := o.now()
	iterationCap := o.iterationCap
	if iterationCap <= 0 {
		iterationCap = 30
	}
	var lastSample []r3.Vector
	lastDelta := delta
	for i := 0; i < iterationCap; i++ {
		if o.deadline > 0 && o.now().Sub(started) > o.deadline {
			return lastSample, lastDelta, true
		}
		select {
		case <-ctx.Done():
			return lastSample, lastDelta, true
		default:
		}

		candidate := src.sample(delta)
		lastSample, lastDelta = candidate, delta
		ok, adjusted, newDelta, _ := opt.CheckInputSpacing(candidate, delta)
		if ok {
			return adjusted, newDelta, false
		}
		delta *= o.cfg.KnotSpacingShrink
	}
	return lastSample, lastDelta, true
}

// Attempt runs one full replan attempt per spec.md §4.9: it constructs the
// input path per the three-way split, fits the knot spacing, optimizes, and
// on success atomically publishes the new generation. Errors are one of the
// sentinels in errors.go; callers decide how to react to each per spec.md
// §7 (typically: clear or retain replan_pending on the supplied policy).
func (o *Orchestrator) Attempt(ctx context.Context, state vehiclestate.State, obstacles []obstacle.Dynamic) error {
	goal, hasGoal := o.goals.Current()
	if !hasGoal {
		return ErrNoGoal
	}
	epoch := o.goals.Epoch()
	o.logger.CDebugf(ctx, "starting replan attempt at epoch %d from position %v", epoch, state.Position)

	ctx, done := o.ops.New(ctx)
	defer done()

	now := o.now()
	active, hasActive := o.traj.Load()
	goalPos := goal.Pose.Point

	boundary := bsplinetraj.Boundary{}
	if hasActive {
		boundary.V0, boundary.A0 = state.Velocity, state.Acceleration
	}

	var src continuousPath
	var globalPath []r3.Vector
	var polySamples []polytraj.Sample

	switch {
	case !hasActive:
		waypoints := []r3.Vector{state.Position, goalPos}
		if o.cfg.UseGlobalPlanner {
			path, err := globalplan.Plan(ctx, o.occMap, state.Position, goalPos, globalplan.DefaultOptions(), nil)
			switch {
			case errors.Is(err, globalplan.ErrNoPath):
				o.policy.Hold()
				o.logger.Errorw("global planner reported goal unreachable", "err", err)
				return ErrGoalUnreachable
			case err != nil:
				o.logger.Warnw("global planner failed, planning directly toward the goal", "err", err)
			default:
				planned := globalplan.Simplify(o.occMap, path, true)
				globalPath = planned
				if rest := restOfGlobalPath(planned, state.Position, state.Velocity); rest != nil {
					waypoints = rest
				}
			}
		}

		poly, err := polytraj.Plan(waypoints, polytraj.Boundary{V0: boundary.V0, A0: boundary.A0}, o.cfg.DesiredVelocity, o.cfg.DesiredAcceleration)
		if err != nil {
			return err
		}
		polySamples = poly.SampleAt(0.1)
		src = continuousPath{duration: poly.Duration(), at: poly.PositionAt}

	case active.Spline.TerminalPosition().Sub(goalPos).Norm() >= o.cfg.GoalReachTolerance:
		residual := residualPath(active, now)
		pEnd := active.Spline.TerminalPosition()
		vEnd := active.Spline.TerminalVelocity()
		aEnd := active.Spline.TerminalAcceleration()

		poly, err := polytraj.Plan([]r3.Vector{pEnd, goalPos}, polytraj.Boundary{V0: vEnd, A0: aEnd}, o.cfg.DesiredVelocity, o.cfg.DesiredAcceleration)
		if err != nil {
			return err
		}

		polySamples = poly.SampleAt(0.1)
		src = concatPath(residual, continuousPath{duration: poly.Duration(), at: poly.PositionAt})
		boundary.Vf = poly.VelocityAt(poly.Duration())
		boundary.Af = poly.AccelerationAt(poly.Duration())

	default:
		src = residualPath(active, now)
	}

	opt := bsplinetraj.NewOptimizer(o.occMap, o.cfg.DesiredVelocity, o.cfg.DesiredAcceleration)
	inputPath, delta, timedOut := o.fitKnotSpacing(ctx, opt, src)
	if timedOut {
		o.logger.Warnw("knot-spacing loop exhausted its budget, using best spacing found", "delta", delta)
	}
	if len(inputPath) < 2 {
		return ErrOptimizerTimeout
	}

	opt.SetDynamicObstacles(obstacles)
	if err := opt.SetInput(inputPath, boundary, delta); err != nil {
		return err
	}
	spline, err := o.optimize(opt)

	if err != nil {
		if hasActive && o.trajectoryCollisionFree(active, now) {
			o.logger.Warnw("optimizer reported infeasibility, retaining current trajectory", "err", err)
			return ErrTransientInfeasibility
		}
		o.traj.Clear()
		o.policy.Hold()
		o.logger.Errorw("optimizer reported infeasibility with no safe trajectory, holding position", "err", err)
		return ErrFatalInfeasibility
	}

	if o.goals.Epoch() != epoch {
		o.logger.Infow("discarding plan computed against a superseded goal", "staleEpoch", epoch, "currentEpoch", o.goals.Epoch())
		return ErrStaleGoal
	}

	generation := o.generation.Add(1)
	o.traj.Store(&ActiveTrajectory{Spline: spline, StartWallTime: now, GenerationID: generation})
	o.policy.MarkTrajectoryReady()
	o.policy.ResetExecutedDistance()
	o.yawCommand.Store(nil)

	o.publishTelemetry(generation, globalPath, polySamples, inputPath, spline)
	return nil
}

func (o *Orchestrator) publishTelemetry(generation uint64, globalPath []r3.Vector, polySamples []polytraj.Sample, inputPath []r3.Vector, spline *bsplinetraj.Spline) {
	const sampleStep = 0.1
	var optimized []Sample
	var dividerSamples []divider.Sample
	duration := spline.TerminalWallTime()
	for t := 0.0; t < duration; t += sampleStep {
		optimized = append(optimized, Sample{T: t, P: spline.PositionAt(t), V: spline.VelocityAt(t), A: spline.AccelerationAt(t)})
		dividerSamples = append(dividerSamples, divider.Sample{T: t, P: spline.PositionAt(t)})
	}
	optimized = append(optimized, Sample{T: duration, P: spline.PositionAt(duration), V: spline.VelocityAt(duration), A: spline.AccelerationAt(duration)})
	dividerSamples = append(dividerSamples, divider.Sample{T: duration, P: spline.PositionAt(duration)})

	intervals := divider.Partition(o.occMap, dividerSamples, 10*o.occMap.Resolution()*4, o.occMap.Resolution()*2)

	o.telemetry.Store(Telemetry{
		GenerationID:      generation,
		GlobalPath:        globalPath,
		PolynomialSamples: polySamples,
		InputPolyline:     inputPath,
		OptimizedSamples:  optimized,
		DividerIntervals:  intervals,
	})
}
