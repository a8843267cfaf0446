// Package navconfig holds the optional, defaulted configuration surface of
// the navigation core (spec.md §6). Parameter loading from a running
// system's parameter server is out of scope (spec.md §1); this package only
// owns the struct, its defaults, and a YAML loader for standalone use.
package navconfig

import (
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every optional parameter spec.md §6 lists, pre-populated
// with its defaults.
type Config struct {
	UseGlobalPlanner bool `yaml:"use_global_planner"`
	UseYawControl    bool `yaml:"use_yaw_control"`
	NoYawTurning     bool `yaml:"no_yaw_turning"`

	DesiredVelocity        float64 `yaml:"desired_velocity"`
	DesiredAcceleration    float64 `yaml:"desired_acceleration"`
	DesiredAngularVelocity float64 `yaml:"desired_angular_velocity"`
	TakeoffHeight          float64 `yaml:"takeoff_height"`

	// ObstacleFOVRadians is the dynamic navigator's obstacle-detector field
	// of view, resolving the Open Question of spec.md §9: the original
	// source passes pi radians as a magic constant; this makes it
	// configurable, defaulting to pi (effectively unrestricted).
	ObstacleFOVRadians float64 `yaml:"obstacle_fov_radians"`

	// Fixed per spec.md §6 — present so every consumer reads the same
	// constant rather than re-declaring it, but not intended to be
	// overridden from YAML in normal operation.
	GoalReachTolerance    float64 `yaml:"goal_reach_tolerance"`
	ReplanDistanceMilestone float64 `yaml:"replan_distance_milestone"`
	KnotSpacingShrink     float64 `yaml:"knot_spacing_shrink"`
	PlannerTimeBudgetMS   int     `yaml:"planner_time_budget_ms"`
	PlannerIterationCap   int     `yaml:"planner_iteration_cap"`
}

// Default returns the configuration with every spec.md §6 default applied.
func Default() Config {
	return Config{
		UseGlobalPlanner:        false,
		UseYawControl:           false,
		NoYawTurning:            false,
		DesiredVelocity:         1.0,
		DesiredAcceleration:     1.0,
		DesiredAngularVelocity:  1.0,
		TakeoffHeight:           1.0,
		ObstacleFOVRadians:      math.Pi,
		GoalReachTolerance:      0.2,
		ReplanDistanceMilestone: 3.0,
		KnotSpacingShrink:       0.8,
		PlannerTimeBudgetMS:     50,
		PlannerIterationCap:     30,
	}
}

// Load reads a YAML file at path, applying it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
