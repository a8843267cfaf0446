// Package replan implements the Replan Policy (C8 in spec.md §4.10): an
// explicit state machine over {goal_received, trajectory_ready,
// replan_pending}, evaluated at the ~100 Hz rate spec.md §5 assigns to the
// policy check, independent of the orchestrator that actually acts on its
// flag.
//
// Grounded on the teacher's replan-loop shape in
// services/motion/builtin/replan.go (poll a condition, set a flag, let the
// caller act), restructured here as a standalone, independently testable
// state machine rather than an inline loop body.
package replan

import (
	"sync"

	"github.com/golang/geo/r3"
)

// Flags mirrors spec.md §4.10's three-flag state machine.
type Flags struct {
	GoalReceived    bool
	TrajectoryReady bool
	ReplanPending   bool
}

// Policy holds the replan flags plus the bookkeeping needed to evaluate
// spec.md §4.10's trigger conditions: the distance-milestone counter and
// whether the dynamic-obstacle trigger is enabled (it is only checked by the
// dynamic navigator, per spec.md §4.10).
type Policy struct {
	mu sync.Mutex

	flags Flags

	goalTolerance     float64
	distanceMilestone float64
	dynamicTrigger    bool

	// executedSinceGeneration accumulates path length flown since the last
	// successful replan, reset on every ResetExecutedDistance call — this
	// mirrors the original source's computeExecutionDistance, which is
	// guarded by "not replanning" so distance does not double-count across
	// a replan boundary (spec.md §12 supplement).
	executedSinceGeneration float64
	lastExecutedPosition    r3.Vector
	hasLastExecutedPosition bool
}

// Options configures a new Policy.
type Options struct {
	// GoalTolerance is the distance at which a trajectory is considered to
	// have reached its goal, per spec.md §6 ("goal_reach_tolerance").
	GoalTolerance float64
	// DistanceMilestone is the cumulative executed path length that
	// triggers a replan, per spec.md §6 ("replan_distance_milestone").
	DistanceMilestone float64
	// DynamicObstacleTrigger enables the "any obstacle present" trigger,
	// per spec.md §4.10 ("dynamic navigator only").
	DynamicObstacleTrigger bool
}

// New returns a Policy configured per opts, with no flags set.
func New(opts Options) *Policy {
	return &Policy{
		goalTolerance:     opts.GoalTolerance,
		distanceMilestone: opts.DistanceMilestone,
		dynamicTrigger:    opts.DynamicObstacleTrigger,
	}
}

// Snapshot returns the current flag values.
func (p *Policy) Snapshot() Flags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}

// NewGoal handles spec.md §4.10's "New goal" transition: trajectory_ready is
// cleared, replan_pending is set, goal_received is cleared (it is momentary
// input, not sticky state), and the executed-distance counter restarts for
// the new generation.
func (p *Policy) NewGoal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags.TrajectoryReady = false
	p.flags.ReplanPending = true
	p.flags.GoalReceived = false
	p.executedSinceGeneration = 0
	p.hasLastExecutedPosition = false
}

// GoalReached handles spec.md §4.10's "Goal reached" transition: every flag
// clears, idempotently — once ‖p − goal‖ ≤ tolerance, repeated calls (the
// "Reach idempotence" law of spec.md §8) produce no further triggers.
func (p *Policy) GoalReached() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = Flags{}
}

// CollisionDetected handles spec.md §4.10's "Collision on active trajectory"
// transition.
func (p *Policy) CollisionDetected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags.ReplanPending = true
}

// DynamicObstaclePresent handles spec.md §4.10's "Dynamic obstacle present"
// transition. Callers on the static navigator should not call this; it is a
// no-op when DynamicObstacleTrigger was not enabled at construction, so a
// single Policy implementation serves both navigators per spec.md §1.
func (p *Policy) DynamicObstaclePresent() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.dynamicTrigger {
		return
	}
	p.flags.ReplanPending = true
}

// ObservePosition folds in the vehicle's current position for the
// distance-milestone trigger and the goal-reach check. If replan_pending is
// already set, the executed-distance accumulator does not advance — the
// original source guards this the same way (spec.md §12) to avoid
// double-counting distance flown across a replan boundary.
func (p *Policy) ObservePosition(position, goal r3.Vector) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasLastExecutedPosition && !p.flags.ReplanPending {
		p.executedSinceGeneration += position.Sub(p.lastExecutedPosition).Norm()
	}
	p.lastExecutedPosition = position
	p.hasLastExecutedPosition = true

	if position.Sub(goal).Norm() <= p.goalTolerance {
		p.flags = Flags{}
		return
	}

	if p.executedSinceGeneration >= p.distanceMilestone {
		p.flags.ReplanPending = true
	}
}

// MarkGoalReceived records that a new goal message arrived, matching spec.md
// §4.10's literal polled-flag framing ("goal_received... clear
// goal_received"). The navigator wiring (cmd/static-navigator,
// cmd/dynamic-navigator) invokes orch.SetGoal directly instead of polling
// this flag — SetGoal calls NewGoal synchronously in the same call stack, so
// nothing ever observes GoalReceived true in that path. MarkGoalReceived
// exists for callers that do model goal arrival as a polled event.
func (p *Policy) MarkGoalReceived() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags.GoalReceived = true
}

// ResetExecutedDistance restarts the distance-milestone counter at the
// current last-observed position, called by the orchestrator on every
// successful replan per spec.md §12's supplement.
func (p *Policy) ResetExecutedDistance() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executedSinceGeneration = 0
}

// ClearReplanPending clears the replan_pending flag; the navigators' replan
// loop (runReplanAttempt in cmd/) calls this after consuming a triggered
// replan (success or transient-infeasible
// failure per spec.md §4.9), never on fatal failure (spec.md §7: a fatal
// failure surfaces to the operator, not silently re-armed).
func (p *Policy) ClearReplanPending() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags.ReplanPending = false
}

// MarkTrajectoryReady sets trajectory_ready, called by the orchestrator
// after a successful replan publishes a new generation.
func (p *Policy) MarkTrajectoryReady() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags.TrajectoryReady = true
}

// Hold clears every flag, used when the orchestrator commands the executor
// to stop on fatal failure (spec.md §4.9) — no further replan should be
// attempted until a new goal arrives.
func (p *Policy) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flags = Flags{}
}
