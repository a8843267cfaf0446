// Package executor implements the Trajectory Executor (C10 in spec.md
// §4.8): at the ~100 Hz rate spec.md §5 assigns it, it reads the active
// trajectory atomically, samples position/velocity/acceleration at the
// current wall-clock time, selects a yaw target per the configured policy,
// and pushes the result to a controller sink.
//
// Grounded on original_source/include/autonomous_flight/px4/navigation.cpp's
// trajExeCB for the exact terminal-zeroing and yaw-selection logic, and the
// teacher's control.Block Next(ctx, ..., dt) shape (control/
// trapezoid_velocity_profile.go) for the periodic-sample interface.
package executor

import (
	"context"
	"math"
	"time"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/navconfig"
	"github.com/windlass-robotics/navcore/navcore"
)

// Setpoint is the outbound message to the controller sink, per spec.md §6.
type Setpoint struct {
	Position     r3.Vector
	Velocity     r3.Vector
	Acceleration r3.Vector
	Yaw          float64
}

// ControllerSink is the low-level autopilot interface's setpoint intake,
// out of scope per spec.md §1 ("target setpoint sink").
type ControllerSink interface {
	SetSetpoint(ctx context.Context, sp Setpoint) error
}

// ArmedStateSource reports whether the autopilot is armed, per spec.md §6
// ("Autopilot state... consumed only to decide whether the executor may
// emit setpoints").
type ArmedStateSource interface {
	Armed() bool
}

// YawSource supplies the current odometry yaw. Tick's periodic sampling
// always uses this when use_yaw_control is false, per spec.md §8's yaw-
// consistency law.
type YawSource interface {
	Yaw() float64
}

// CommandedYawSource supplies an orchestrator-issued yaw override, per
// spec.md §4.10's new-goal realignment ("realign yaw toward the goal
// azimuth if yaw-tracking is disabled"). It is consulted only by
// RealignYaw's one-shot command, never by Tick's per-sample yaw policy — in
// the original source, moveToOrientation fires once from replanCheckCB when
// a goal arrives, entirely decoupled from trajExeCB's per-tick sampling. Ok
// is false once no realignment is pending.
type CommandedYawSource interface {
	CommandedYaw() (yaw float64, ok bool)
}

// terminalZeroWindowSeconds matches the original source's trajExeCB: within
// 0.3 s of the trajectory's terminal time, velocity and acceleration are
// zeroed and yaw is held, guaranteeing a clean stop regardless of spline
// endpoint numerics (spec.md §4.8).
const terminalZeroWindowSeconds = 0.3

// Executor implements C10.
type Executor struct {
	trajectory *navcore.TrajectoryHandle
	armed      ArmedStateSource
	sink       ControllerSink
	yaw        YawSource
	commanded  CommandedYawSource
	cfg        navconfig.Config
	now        func() time.Time
}

// New returns an Executor reading traj, sampled per cfg's yaw policy
// (use_yaw_control / no_yaw_turning), gated by armed, pushing to sink.
// commanded may be nil if the caller never issues yaw realignment overrides.
func New(traj *navcore.TrajectoryHandle, armed ArmedStateSource, yaw YawSource, commanded CommandedYawSource, sink ControllerSink, cfg navconfig.Config) *Executor {
	return &Executor{
		trajectory: traj,
		armed:      armed,
		sink:       sink,
		yaw:        yaw,
		commanded:  commanded,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Tick samples the active trajectory at the current wall time and emits one
// setpoint to the sink, per spec.md §4.8. It is a no-op (no error, no
// sink call) when disarmed or when no trajectory is active — the executor
// never throws; it clamps and holds on missing data, per spec.md §7.
func (e *Executor) Tick(ctx context.Context) error {
	if e.armed != nil && !e.armed.Armed() {
		return nil
	}

	active, ok := e.trajectory.Load()
	if !ok {
		return nil
	}

	now := e.now()
	sp := e.sample(active, now)
	return e.sink.SetSetpoint(ctx, sp)
}

func (e *Executor) sample(active *navcore.ActiveTrajectory, now time.Time) Setpoint {
	spline := active.Spline
	wallElapsed := now.Sub(active.StartWallTime).Seconds()
	if wallElapsed < 0 {
		wallElapsed = 0
	}
	terminal := spline.TerminalWallTime()
	if wallElapsed > terminal {
		wallElapsed = terminal
	}

	pos := spline.PositionAt(wallElapsed)
	vel := spline.VelocityAt(wallElapsed)
	acc := spline.AccelerationAt(wallElapsed)

	nearTerminal := terminal-wallElapsed <= terminalZeroWindowSeconds

	var yaw float64
	switch {
	case nearTerminal:
		yaw = e.odomYaw()
	case e.cfg.NoYawTurning || !e.cfg.UseYawControl:
		yaw = e.odomYaw()
	case vel.Norm() > 1e-6:
		yaw = math.Atan2(vel.Y, vel.X)
	default:
		yaw = e.odomYaw()
	}

	if nearTerminal {
		vel = r3.Vector{}
		acc = r3.Vector{}
	}

	return Setpoint{Position: pos, Velocity: vel, Acceleration: acc, Yaw: yaw}
}

func (e *Executor) odomYaw() float64 {
	if e.yaw == nil {
		return 0
	}
	return e.yaw.Yaw()
}

func (e *Executor) commandedYaw() (float64, bool) {
	if e.commanded == nil {
		return 0, false
	}
	return e.commanded.CommandedYaw()
}

// RealignYaw issues a single setpoint holding the vehicle at its currently
// commanded position with yaw set to the pending goal-azimuth override, per
// spec.md §4.10. It is meant to be called once when a new goal arrives —
// never from Tick's periodic loop — mirroring the original source's
// moveToOrientation being invoked directly from replanCheckCB rather than
// trajExeCB. It is a no-op when disarmed, when no trajectory is active, or
// when no realignment is pending.
func (e *Executor) RealignYaw(ctx context.Context) error {
	if e.armed != nil && !e.armed.Armed() {
		return nil
	}
	yaw, ok := e.commandedYaw()
	if !ok {
		return nil
	}
	pos, ok := e.LookaheadSetpoint(0)
	if !ok {
		return nil
	}
	return e.sink.SetSetpoint(ctx, Setpoint{Position: pos, Yaw: yaw})
}

// LookaheadSetpoint samples the active trajectory ahead of the current wall
// time, for visualization/telemetry only (SPEC_FULL.md §12, grounded on
// original_source/include/autonomous_flight/px4/flightBase.h's
// trajData::getPose look-ahead query). It is never used for the primary
// control setpoint, which always uses the exact current-time sample per
// spec.md §4.8, and it applies none of Tick's terminal-zeroing or yaw
// policy. It returns ok=false when no trajectory is active.
func (e *Executor) LookaheadSetpoint(lookahead time.Duration) (r3.Vector, bool) {
	active, ok := e.trajectory.Load()
	if !ok {
		return r3.Vector{}, false
	}
	wallElapsed := e.now().Add(lookahead).Sub(active.StartWallTime).Seconds()
	if wallElapsed < 0 {
		wallElapsed = 0
	}
	if terminal := active.Spline.TerminalWallTime(); wallElapsed > terminal {
		wallElapsed = terminal
	}
	return active.Spline.PositionAt(wallElapsed), true
}
