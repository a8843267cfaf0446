package navconfig

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	test.That(t, cfg.UseGlobalPlanner, test.ShouldBeFalse)
	test.That(t, cfg.DesiredVelocity, test.ShouldEqual, 1.0)
	test.That(t, cfg.GoalReachTolerance, test.ShouldEqual, 0.2)
	test.That(t, cfg.ObstacleFOVRadians, test.ShouldAlmostEqual, math.Pi, 1e-9)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "nav.yaml")
	test.That(t, os.WriteFile(p, []byte("desired_velocity: 2.5\nuse_global_planner: true\n"), 0o600), test.ShouldBeNil)

	cfg, err := Load(p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.DesiredVelocity, test.ShouldEqual, 2.5)
	test.That(t, cfg.UseGlobalPlanner, test.ShouldBeTrue)
	// untouched fields keep their defaults
	test.That(t, cfg.GoalReachTolerance, test.ShouldEqual, 0.2)
}
