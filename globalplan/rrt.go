// Package globalplan implements the Global Path Planner (C3 in spec.md
// §4.3): a goal-biased RRT over the occupancy map that produces a coarse,
// collision-free sequence of waypoints from the vehicle's current position
// to the goal.
//
// Grounded on the teacher's rrtConnect planner (motionplan/rrtConnect.go):
// the nearest-neighbor-then-extend growth loop is carried over, with
// goal-biased target sampling, but specialized from joint-configuration/
// IK planning down to plain ℝ³ point-mass planning against an
// occupancy.Map, since the vehicle has no kinematic chain to solve IK for.
package globalplan

import (
	"context"
	"errors"
	"math"
	"math/rand"

	"github.com/golang/geo/r3"

	"github.com/windlass-robotics/navcore/occupancy"
)

// ErrNoPath is returned when the planner exhausts its iteration budget
// without reaching the goal.
var ErrNoPath = errors.New("global planner: no collision-free path found")

// Options configures a single planning attempt, per spec.md §4.3.
type Options struct {
	// MaxIterations bounds the number of tree-growth iterations.
	MaxIterations int
	// StepSize is the maximum edge length added to the tree per extension,
	// in meters.
	StepSize float64
	// GoalBias is the probability in [0,1] of sampling the goal directly
	// instead of a uniform random point, to pull the tree toward the goal.
	GoalBias float64
	// GoalTolerance is the distance at which a tree node is considered to
	// have reached the goal.
	GoalTolerance float64
	// InflatedCollisionCheck selects whether edges are checked against the
	// inflated occupancy (true) or raw occupancy (false).
	InflatedCollisionCheck bool
}

// DefaultOptions returns reasonable planning parameters for a small aerial
// vehicle operating in an indoor-scale map.
func DefaultOptions() Options {
	return Options{
		MaxIterations:          5000,
		StepSize:               0.5,
		GoalBias:               0.1,
		GoalTolerance:          0.3,
		InflatedCollisionCheck: true,
	}
}

type node struct {
	point  r3.Vector
	parent *node
}

// Plan runs goal-biased RRT from start to goal, within the bounds and
// against the obstacles recorded in m, and returns an ordered sequence of
// waypoints beginning at start and ending at goal. It returns ErrNoPath if
// no path is found within opts.MaxIterations.
func Plan(ctx context.Context, m *occupancy.Map, start, goal r3.Vector, opts Options, rng *rand.Rand) ([]r3.Vector, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(1)) //nolint:gosec
	}

	if m.SegmentFree(start, goal, opts.InflatedCollisionCheck) {
		return []r3.Vector{start, goal}, nil
	}

	min, max := m.Bounds()
	tree := []*node{{point: start}}

	for i := 0; i < opts.MaxIterations; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		target := sampleTarget(rng, min, max, goal, opts.GoalBias)
		near := nearest(tree, target)
		extended := extend(m, near, target, opts.StepSize, opts.InflatedCollisionCheck)
		if extended == nil {
			continue
		}
		tree = append(tree, extended)

		if extended.point.Sub(goal).Norm() <= opts.GoalTolerance {
			if m.SegmentFree(extended.point, goal, opts.InflatedCollisionCheck) {
				goalNode := &node{point: goal, parent: extended}
				return pathTo(goalNode), nil
			}
		}
	}

	return nil, ErrNoPath
}

func sampleTarget(rng *rand.Rand, min, max, goal r3.Vector, goalBias float64) r3.Vector {
	if rng.Float64() < goalBias {
		return goal
	}
	return r3.Vector{
		X: min.X + rng.Float64()*(max.X-min.X),
		Y: min.Y + rng.Float64()*(max.Y-min.Y),
		Z: min.Z + rng.Float64()*(max.Z-min.Z),
	}
}

func nearest(tree []*node, target r3.Vector) *node {
	best := tree[0]
	bestDist := best.point.Sub(target).Norm()
	for _, n := range tree[1:] {
		if d := n.point.Sub(target).Norm(); d < bestDist {
			bestDist = d
			best = n
		}
	}
	return best
}

// extend grows from near toward target by at most stepSize, returning the
// new node if the step is collision-free, or nil if it is not.
func extend(m *occupancy.Map, near *node, target r3.Vector, stepSize float64, inflated bool) *node {
	delta := target.Sub(near.point)
	dist := delta.Norm()
	if dist < 1e-9 {
		return nil
	}

	step := math.Min(stepSize, dist)
	newPoint := near.point.Add(delta.Normalize().Mul(step))

	if !m.SegmentFree(near.point, newPoint, inflated) {
		return nil
	}
	return &node{point: newPoint, parent: near}
}

func pathTo(n *node) []r3.Vector {
	var rev []r3.Vector
	for cur := n; cur != nil; cur = cur.parent {
		rev = append(rev, cur.point)
	}
	out := make([]r3.Vector, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}
