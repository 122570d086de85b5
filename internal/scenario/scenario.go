// Package scenario builds canned simulation setups shared by the demo
// server and the headless scenario runner.
package scenario

import (
	"math"

	"crowdsim/internal/config"
	"crowdsim/internal/geom"
	"crowdsim/internal/sim"

	"github.com/pkg/errors"
)

// Names lists the available scenarios.
func Names() []string {
	return []string{"circle", "crossing", "corridor"}
}

// Build populates the runner with the named scenario: agent defaults,
// agents with goals, and obstacles (already processed).
func Build(r *sim.Runner, cfg config.SimConfig, name string, agents int) error {
	r.SetAgentDefaults(cfg.NeighborDist, cfg.MaxNeighbors, cfg.TimeHorizon,
		cfg.TimeHorizonObst, cfg.Radius, cfg.MaxSpeed, geom.Vec2{})

	switch name {
	case "circle":
		buildCircle(r, agents)
	case "crossing":
		buildCrossing(r, agents)
	case "corridor":
		buildCorridor(r, agents)
	default:
		return errors.Errorf("unknown scenario %q", name)
	}

	r.ProcessObstacles()
	return nil
}

// buildCircle places agents evenly on a circle with antipodal goals and
// a square block at the center, so everyone has to negotiate the middle.
func buildCircle(r *sim.Runner, agents int) {
	const ringRadius = 20.0

	for i := 0; i < agents; i++ {
		angle := 2 * math.Pi * float64(i) / float64(agents)
		pos := geom.Vec2{X: ringRadius * math.Cos(angle), Y: ringRadius * math.Sin(angle)}
		r.AddAgent(pos, pos.Neg())
	}

	r.AddObstacle([]geom.Vec2{
		{X: -2, Y: -2}, {X: 2, Y: -2}, {X: 2, Y: 2}, {X: -2, Y: 2},
	})
}

// buildCrossing sends two perpendicular streams through a shared
// intersection.
func buildCrossing(r *sim.Runner, agents int) {
	const (
		armLength = 18.0
		spacing   = 4.0
	)

	half := agents / 2
	for i := 0; i < half; i++ {
		offset := spacing * float64(i-half/2)
		r.AddAgent(geom.Vec2{X: -armLength, Y: offset}, geom.Vec2{X: armLength, Y: offset})
	}
	for i := half; i < agents; i++ {
		offset := spacing * float64(i-half-(agents-half)/2)
		r.AddAgent(geom.Vec2{X: offset, Y: -armLength}, geom.Vec2{X: offset, Y: armLength})
	}
}

// buildCorridor swaps two groups through a passage between two walls.
func buildCorridor(r *sim.Runner, agents int) {
	const (
		corridorHalf = 3.0
		wallDepth    = 2.0
		wallLength   = 12.0
		startX       = 16.0
		spacing      = 3.5
	)

	half := agents / 2
	for i := 0; i < half; i++ {
		offset := spacing * float64(i-half/2)
		r.AddAgent(geom.Vec2{X: -startX, Y: offset}, geom.Vec2{X: startX, Y: offset})
	}
	for i := half; i < agents; i++ {
		offset := spacing * float64(i-half-(agents-half)/2)
		r.AddAgent(geom.Vec2{X: startX, Y: offset}, geom.Vec2{X: -startX, Y: offset})
	}

	// Upper and lower walls, counterclockwise outlines.
	r.AddObstacle([]geom.Vec2{
		{X: -wallLength / 2, Y: corridorHalf},
		{X: wallLength / 2, Y: corridorHalf},
		{X: wallLength / 2, Y: corridorHalf + wallDepth},
		{X: -wallLength / 2, Y: corridorHalf + wallDepth},
	})
	r.AddObstacle([]geom.Vec2{
		{X: -wallLength / 2, Y: -corridorHalf - wallDepth},
		{X: wallLength / 2, Y: -corridorHalf - wallDepth},
		{X: wallLength / 2, Y: -corridorHalf},
		{X: -wallLength / 2, Y: -corridorHalf},
	})
}
