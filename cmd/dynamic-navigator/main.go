// Command dynamic-navigator wires the navigation core for the "dynamic"
// surrounding subsystem of spec.md §1: a goal-directed flight that reacts
// to the dynamic-obstacle-present trigger in addition to the distance
// milestone and collision triggers the static navigator also runs, per
// SPEC_FULL.md §13.
//
// It has no real autopilot, odometry source, or perception pipeline to talk
// to (all out of scope per spec.md §1), so it stands the core up against a
// small in-process vehicle simulator that tracks commanded setpoints
// directly — the same role the corpus's fake.* components play for a
// standalone demo (components/board/fake).
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/golang/geo/r3"
	goutils "go.viam.com/utils"

	"github.com/windlass-robotics/navcore/executor"
	"github.com/windlass-robotics/navcore/logging"
	"github.com/windlass-robotics/navcore/navconfig"
	"github.com/windlass-robotics/navcore/navcore"
	"github.com/windlass-robotics/navcore/obstacle"
	"github.com/windlass-robotics/navcore/occupancy"
	"github.com/windlass-robotics/navcore/replan"
	"github.com/windlass-robotics/navcore/spatialmath"
	"github.com/windlass-robotics/navcore/vehiclestate"
)

// Arguments are the command's flags, unmarshaled with go.viam.com/utils'
// reflective flag extraction, matching the corpus's cmd.go convention.
type Arguments struct {
	ConfigPath string  `flag:"config,usage=path to a navconfig YAML file"`
	GoalX      float64 `flag:"goal-x,default=5,usage=goal X coordinate in meters"`
	GoalY      float64 `flag:"goal-y,default=0,usage=goal Y coordinate in meters"`
	GoalZ      float64 `flag:"goal-z,default=1,usage=goal Z coordinate in meters"`
	Debug      bool    `flag:"debug,usage=trace every replan attempt at info level"`
}

// Periods corresponding to the rate table in spec.md §5: the orchestrator
// runs within its 10-50 Hz band, everything else at its assigned rate.
// executorPeriod and obstaclePollPeriod are shared with
// runObstacleAndExecutorSupervision's errgroup pairing.
const (
	orchestratorPeriod   = 50 * time.Millisecond // 20 Hz
	policyCheckPeriod    = 10 * time.Millisecond  // 100 Hz
	executorPeriod       = 10 * time.Millisecond  // 100 Hz
	obstaclePollPeriod   = 10 * time.Millisecond  // 100 Hz
	stateEstimatorPeriod = 33 * time.Millisecond  // ~30 Hz
	freeRegionPeriod     = 10 * time.Millisecond  // 100 Hz
)

func main() {
	logger := logging.NewLogger("dynamic-navigator")

	var args Arguments
	if err := goutils.ParseFlags(os.Args, &args); err != nil {
		logger.Errorw("failed to parse flags", "err", err)
		os.Exit(1)
	}

	cfg := navconfig.Default()
	if args.ConfigPath != "" {
		loaded, err := navconfig.Load(args.ConfigPath)
		if err != nil {
			logger.Errorw("failed to load config", "path", args.ConfigPath, "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.UseGlobalPlanner = true

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if args.Debug {
		ctx = logging.EnableDebugMode(ctx)
	}

	if err := run(ctx, logger, cfg, r3.Vector{X: args.GoalX, Y: args.GoalY, Z: args.GoalZ}); err != nil {
		logger.Errorw("dynamic navigator exited with error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger logging.Logger, cfg navconfig.Config, goal r3.Vector) error {
	occMap := occupancy.NewMap(0.1, 0.3, r3.Vector{X: -50, Y: -50, Z: -50}, r3.Vector{X: 50, Y: 50, Z: 50})
	obstacleSource := obstacle.NewSource()
	estimator := vehiclestate.NewEstimator()
	policy := replan.New(replan.Options{
		GoalTolerance:          cfg.GoalReachTolerance,
		DistanceMilestone:      cfg.ReplanDistanceMilestone,
		DynamicObstacleTrigger: true,
	})
	orch := navcore.New(occMap, cfg, logger, policy, navcore.Options{
		Deadline:     time.Duration(cfg.PlannerTimeBudgetMS) * time.Millisecond,
		IterationCap: cfg.PlannerIterationCap,
	})

	sim := newVehicleSim(r3.Vector{})
	exec := executor.New(orch.Trajectory(), sim, sim, orch, sim, cfg)

	var wg sync.WaitGroup
	spawnPeriodic(ctx, &wg, stateEstimatorPeriod, func() {
		estimator.Update(sim.Odometry(time.Now()))
	})
	spawnPeriodic(ctx, &wg, freeRegionPeriod, func() {
		updateFreeRegion(occMap, obstacleSource, sim.Position())
	})
	spawnPeriodic(ctx, &wg, policyCheckPeriod, func() {
		checkReplanTriggers(orch, policy, estimator, goal)
	})
	spawnPeriodic(ctx, &wg, orchestratorPeriod, func() {
		runReplanAttempt(ctx, logger, orch, policy, estimator, obstacleSource, cfg)
	})

	wg.Add(1)
	goutils.PanicCapturingGo(func() {
		defer wg.Done()
		if err := runObstacleAndExecutorSupervision(ctx, logger, exec, obstacleSource, policy, sim, cfg); err != nil {
			logger.Errorw("obstacle/executor supervision exited with error", "err", err)
		}
	})

	orch.SetGoal(sim.Position(), spatialmath.NewPose(goal, spatialmath.NewZeroOrientation()))
	logger.Infow("goal accepted", "goal", goal)
	if err := exec.RealignYaw(ctx); err != nil {
		logger.Warnw("yaw realignment failed", "err", err)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}
