package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	goutils "go.viam.com/utils"
	"golang.org/x/sync/errgroup"

	"github.com/windlass-robotics/navcore/executor"
	"github.com/windlass-robotics/navcore/logging"
	"github.com/windlass-robotics/navcore/navconfig"
	"github.com/windlass-robotics/navcore/navcore"
	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
	"github.com/windlass-robotics/navcore/replan"
	"github.com/windlass-robotics/navcore/vehiclestate"
)

// spawnPeriodic starts fn on a fixed period until ctx is cancelled, using
// go.viam.com/utils' panic-capturing goroutine wrapper and context-aware
// sleep — the idiom grounded on
// components/board/pinwrappers/analog_smoother.go's sampling loop.
func spawnPeriodic(ctx context.Context, wg *sync.WaitGroup, period time.Duration, fn func()) {
	wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		for {
			if ctx.Err() != nil {
				return
			}
			fn()
			if !goutils.SelectContextOrWait(ctx, period) {
				return
			}
		}
	})
}

// runObstacleAndExecutorSupervision pairs the executor-tick loop with the
// obstacle-FOV-poll loop under one errgroup, per SPEC_FULL.md §11's
// domain-stack wiring for golang.org/x/sync/errgroup: "the dynamic
// navigator's obstacle-poll/execute supervision". Either leg exiting (via
// ctx cancellation) tears down both.
func runObstacleAndExecutorSupervision(
	ctx context.Context,
	logger logging.Logger,
	exec *executor.Executor,
	obstacleSource *obstacle.Source,
	policy *replan.Policy,
	sim *vehicleSim,
	cfg navconfig.Config,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			if gctx.Err() != nil {
				return nil
			}
			if err := exec.Tick(gctx); err != nil {
				logger.Warnw("executor tick failed", "err", err)
			}
			if !goutils.SelectContextOrWait(gctx, executorPeriod) {
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			if gctx.Err() != nil {
				return nil
			}
			pollDynamicObstacleTrigger(obstacleSource, policy, sim, cfg)
			if !goutils.SelectContextOrWait(gctx, obstaclePollPeriod) {
				return nil
			}
		}
	})

	return g.Wait()
}

// pollDynamicObstacleTrigger fires spec.md §4.10's "Dynamic obstacle
// present" transition when any obstacle lies within the vehicle's forward
// field of view.
func pollDynamicObstacleTrigger(obstacleSource *obstacle.Source, policy *replan.Policy, sim *vehicleSim, cfg navconfig.Config) {
	obstacles := obstacleSource.Snapshot(sim.Position(), sim.Heading(), cfg.ObstacleFOVRadians)
	if len(obstacles) > 0 {
		policy.DynamicObstaclePresent()
	}
}

// updateFreeRegion carves the vehicle's own body, and every tracked obstacle
// reported this cycle, out of the static occupancy map so neither
// contaminates it (occupancy.Map.UpdateFreeRegion; spec.md §4.1).
func updateFreeRegion(occMap *occupancy.Map, obstacleSource *obstacle.Source, vehiclePos r3.Vector) {
	const bodyRadius = 0.3
	occMap.UpdateFreeRegion(vehiclePos.Sub(r3.Vector{X: bodyRadius, Y: bodyRadius, Z: bodyRadius}),
		vehiclePos.Add(r3.Vector{X: bodyRadius, Y: bodyRadius, Z: bodyRadius}))

	for _, obs := range obstacleSource.SnapshotAll() {
		bounds := obs.Bounds()
		occMap.UpdateFreeRegion(bounds.Min(), bounds.Max())
	}
}

// checkReplanTriggers drives the replan state machine's position-dependent
// triggers (goal-reach idempotence, distance milestone, collision-on-active-
// trajectory) described in spec.md §4.10. The dynamic-obstacle trigger is
// handled separately, by pollDynamicObstacleTrigger.
func checkReplanTriggers(orch *navcore.Orchestrator, policy *replan.Policy, estimator *vehiclestate.Estimator, goal r3.Vector) {
	state, ok := estimator.Latest()
	if !ok {
		return
	}
	policy.ObservePosition(state.Position, goal)
	if !orch.ActiveTrajectoryCollisionFree(time.Now()) {
		policy.CollisionDetected()
	}
}

// runReplanAttempt drains a pending replan trigger by invoking the
// orchestrator, per spec.md §4.10's "replan_pending" flag. Fatal
// infeasibility is left alone: Orchestrator.Attempt already calls
// policy.Hold on that path, clearing every flag including ReplanPending.
func runReplanAttempt(
	ctx context.Context,
	logger logging.Logger,
	orch *navcore.Orchestrator,
	policy *replan.Policy,
	estimator *vehiclestate.Estimator,
	obstacleSource *obstacle.Source,
	cfg navconfig.Config,
) {
	if !policy.Snapshot().ReplanPending {
		return
	}
	goal, ok := orch.Goal()
	if !ok {
		return
	}
	state, ok := estimator.Latest()
	if !ok {
		return
	}
	heading := state.Velocity
	if heading.Norm() == 0 {
		heading = goal.Pose.Point.Sub(state.Position)
	}
	obstacles := obstacleSource.Snapshot(state.Position, heading, cfg.ObstacleFOVRadians)

	err := orch.Attempt(ctx, state, obstacles)
	switch {
	case err == nil:
		policy.ClearReplanPending()
	case isRetryableAttemptError(err):
		policy.ClearReplanPending()
	default:
		logger.Warnw("replan attempt failed", "err", err)
	}
}

// isRetryableAttemptError reports whether a failed attempt leaves the
// replan trigger worth clearing rather than retried next cycle: these are
// the orchestrator errors that do not imply the goal or map state has
// changed since the trigger fired.
func isRetryableAttemptError(err error) bool {
	return errors.Is(err, navcore.ErrTransientInfeasibility) ||
		errors.Is(err, navcore.ErrOptimizerTimeout)
}
