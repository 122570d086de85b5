// Package sim implements optimal reciprocal collision avoidance (ORCA)
// for disk-shaped agents moving in a plane with static polygonal
// obstacles, after van den Berg et al.
//
// Each tick the simulator computes, for every agent, a new velocity as
// close as possible to its preferred velocity while staying below its
// maximum speed and collision-free with respect to nearby agents and
// obstacle edges for the configured time horizons.
package sim

import (
	"math"

	"crowdsim/internal/geom"
)

// Line is a directed line in velocity space. The admissible set is the
// closed half-plane to its left: {v : det(Direction, Point - v) <= 0}.
type Line struct {
	Point     geom.Vec2
	Direction geom.Vec2
}

// agentNeighbor is one entry of the bounded sorted agent-neighbor list,
// keyed by squared inter-center distance.
type agentNeighbor struct {
	distSq float64
	agent  *Agent
}

// obstacleNeighbor is one entry of the sorted obstacle-neighbor list,
// keyed by squared point-to-segment distance. The vertex id names the
// edge's first vertex.
type obstacleNeighbor struct {
	distSq float64
	vertex int
}

// Agent is one disk-shaped agent. All fields are owned by the simulator;
// callers read and write them through the Simulator accessors.
type Agent struct {
	position     geom.Vec2
	velocity     geom.Vec2
	prefVelocity geom.Vec2
	newVelocity  geom.Vec2

	radius          float64
	maxSpeed        float64
	neighborDist    float64
	maxNeighbors    int
	timeHorizon     float64
	timeHorizonObst float64

	agentNeighbors    []agentNeighbor
	obstacleNeighbors []obstacleNeighbor
	orcaLines         []Line

	id int
}

// insertAgentNeighbor inserts other into the sorted agent-neighbor list
// if it is within range, keeping at most maxNeighbors entries. When the
// list is full the returned range shrinks to the largest retained key so
// the k-d tree query can tighten its search radius.
func (a *Agent) insertAgentNeighbor(other *Agent, rangeSq float64) float64 {
	if a == other {
		return rangeSq
	}

	distSq := a.position.Sub(other.position).AbsSq()
	if distSq >= rangeSq {
		return rangeSq
	}

	if len(a.agentNeighbors) < a.maxNeighbors {
		a.agentNeighbors = append(a.agentNeighbors, agentNeighbor{distSq, other})
	}

	i := len(a.agentNeighbors) - 1
	for i != 0 && distSq < a.agentNeighbors[i-1].distSq {
		a.agentNeighbors[i] = a.agentNeighbors[i-1]
		i--
	}
	a.agentNeighbors[i] = agentNeighbor{distSq, other}

	if len(a.agentNeighbors) == a.maxNeighbors {
		rangeSq = a.agentNeighbors[len(a.agentNeighbors)-1].distSq
	}
	return rangeSq
}

// insertObstacleNeighbor inserts the edge starting at vertex into the
// sorted obstacle-neighbor list if the agent is within range of the
// segment. The range is never shrunk: all edges within it are kept.
func (a *Agent) insertObstacleNeighbor(obs *geom.ObstacleSet, vertex int, rangeSq float64) {
	v1 := obs.At(vertex)
	v2 := obs.At(v1.Next)

	distSq := geom.DistSqPointSegment(v1.Point, v2.Point, a.position)
	if distSq >= rangeSq {
		return
	}

	a.obstacleNeighbors = append(a.obstacleNeighbors, obstacleNeighbor{distSq, vertex})

	i := len(a.obstacleNeighbors) - 1
	for i != 0 && distSq < a.obstacleNeighbors[i-1].distSq {
		a.obstacleNeighbors[i] = a.obstacleNeighbors[i-1]
		i--
	}
	a.obstacleNeighbors[i] = obstacleNeighbor{distSq, vertex}
}

// computeNeighbors gathers the agent's obstacle and agent neighbors from
// the simulator's spatial indices. Obstacle range covers everything the
// agent could reach within its obstacle time horizon plus its radius.
func (a *Agent) computeNeighbors(s *Simulator) {
	a.obstacleNeighbors = a.obstacleNeighbors[:0]
	rangeSq := geom.Sqr(a.timeHorizonObst*a.maxSpeed + a.radius)
	s.obstacleTree.QueryNeighbors(a.position, rangeSq, func(vertexID int) {
		a.insertObstacleNeighbor(&s.obstacles, vertexID, rangeSq)
	})

	a.agentNeighbors = a.agentNeighbors[:0]
	if a.maxNeighbors > 0 {
		// The captured range cell acts as a by-reference parameter:
		// inserts shrink it, and the tree prunes against the shrunk
		// value on every return.
		rangeSq = geom.Sqr(a.neighborDist)
		s.agentTree.QueryNeighbors(a.position, rangeSq, func(id int, _ float64) float64 {
			rangeSq = a.insertAgentNeighbor(s.agents[id], rangeSq)
			return rangeSq
		})
	}
}

// computeNewVelocity constructs the agent's ORCA half-planes from its
// obstacle and agent neighbors and solves the constrained program for
// the velocity closest to prefVelocity.
func (a *Agent) computeNewVelocity(obs *geom.ObstacleSet, timeStep float64) {
	a.orcaLines = a.orcaLines[:0]

	invTimeHorizonObst := 1.0 / a.timeHorizonObst

	// Obstacle half-planes first: they are hard constraints that the
	// fallback program never relaxes.
	for _, on := range a.obstacleNeighbors {
		obstacle1 := obs.At(on.vertex)
		obstacle2 := obs.At(obstacle1.Next)

		relativePosition1 := obstacle1.Point.Sub(a.position)
		relativePosition2 := obstacle2.Point.Sub(a.position)

		// Skip the edge if its velocity obstacle already lies behind an
		// earlier ORCA line.
		alreadyCovered := false
		for _, line := range a.orcaLines {
			if relativePosition1.Scale(invTimeHorizonObst).Sub(line.Point).Det(line.Direction)-invTimeHorizonObst*a.radius >= -geom.Eps &&
				relativePosition2.Scale(invTimeHorizonObst).Sub(line.Point).Det(line.Direction)-invTimeHorizonObst*a.radius >= -geom.Eps {
				alreadyCovered = true
				break
			}
		}
		if alreadyCovered {
			continue
		}

		distSq1 := relativePosition1.AbsSq()
		distSq2 := relativePosition2.AbsSq()
		radiusSq := geom.Sqr(a.radius)

		obstacleVector := obstacle2.Point.Sub(obstacle1.Point)
		s := relativePosition1.Neg().Dot(obstacleVector) / obstacleVector.AbsSq()
		distSqLine := relativePosition1.Neg().Sub(obstacleVector.Scale(s)).AbsSq()

		switch {
		case s < 0 && distSq1 <= radiusSq:
			// Collision with the left vertex; ignored if non-convex.
			if obstacle1.Convex {
				a.orcaLines = append(a.orcaLines, Line{
					Direction: geom.Vec2{X: -relativePosition1.Y, Y: relativePosition1.X}.Normalize(),
				})
			}
			continue

		case s > 1 && distSq2 <= radiusSq:
			// Collision with the right vertex; ignored if non-convex or
			// if it will be taken care of by the neighboring edge.
			if obstacle2.Convex && relativePosition2.Det(obstacle2.Direction) >= 0 {
				a.orcaLines = append(a.orcaLines, Line{
					Direction: geom.Vec2{X: -relativePosition2.Y, Y: relativePosition2.X}.Normalize(),
				})
			}
			continue

		case s >= 0 && s <= 1 && distSqLine <= radiusSq:
			// Collision with the edge interior.
			a.orcaLines = append(a.orcaLines, Line{
				Direction: obstacle1.Direction.Neg(),
			})
			continue
		}

		// No collision: compute leg directions of the velocity obstacle.
		var leftLegDirection, rightLegDirection geom.Vec2

		switch {
		case s < 0 && distSqLine <= radiusSq:
			// The obstacle is viewed obliquely, so the left vertex
			// defines the whole velocity obstacle.
			if !obstacle1.Convex {
				continue
			}
			obstacle2 = obstacle1

			leg1 := math.Sqrt(distSq1 - radiusSq)
			leftLegDirection = geom.Vec2{
				X: relativePosition1.X*leg1 - relativePosition1.Y*a.radius,
				Y: relativePosition1.X*a.radius + relativePosition1.Y*leg1,
			}.Scale(1 / distSq1)
			rightLegDirection = geom.Vec2{
				X: relativePosition1.X*leg1 + relativePosition1.Y*a.radius,
				Y: -relativePosition1.X*a.radius + relativePosition1.Y*leg1,
			}.Scale(1 / distSq1)

		case s > 1 && distSqLine <= radiusSq:
			// Symmetric: the right vertex defines the velocity obstacle.
			if !obstacle2.Convex {
				continue
			}
			obstacle1 = obstacle2

			leg2 := math.Sqrt(distSq2 - radiusSq)
			leftLegDirection = geom.Vec2{
				X: relativePosition2.X*leg2 - relativePosition2.Y*a.radius,
				Y: relativePosition2.X*a.radius + relativePosition2.Y*leg2,
			}.Scale(1 / distSq2)
			rightLegDirection = geom.Vec2{
				X: relativePosition2.X*leg2 + relativePosition2.Y*a.radius,
				Y: -relativePosition2.X*a.radius + relativePosition2.Y*leg2,
			}.Scale(1 / distSq2)

		default:
			// Usual case: one leg per vertex, chain direction for
			// non-convex vertices.
			if obstacle1.Convex {
				leg1 := math.Sqrt(distSq1 - radiusSq)
				leftLegDirection = geom.Vec2{
					X: relativePosition1.X*leg1 - relativePosition1.Y*a.radius,
					Y: relativePosition1.X*a.radius + relativePosition1.Y*leg1,
				}.Scale(1 / distSq1)
			} else {
				leftLegDirection = obstacle1.Direction.Neg()
			}

			if obstacle2.Convex {
				leg2 := math.Sqrt(distSq2 - radiusSq)
				rightLegDirection = geom.Vec2{
					X: relativePosition2.X*leg2 + relativePosition2.Y*a.radius,
					Y: -relativePosition2.X*a.radius + relativePosition2.Y*leg2,
				}.Scale(1 / distSq2)
			} else {
				rightLegDirection = obstacle1.Direction
			}
		}

		// Legs pointing through the neighboring edge are foreign: they
		// belong to that edge's velocity obstacle and are clamped to the
		// neighbor's direction so they are never used as cut-off lines.
		leftNeighbor := obs.At(obstacle1.Prev)

		isLeftLegForeign := false
		isRightLegForeign := false

		if obstacle1.Convex && leftLegDirection.Det(leftNeighbor.Direction.Neg()) >= 0 {
			leftLegDirection = leftNeighbor.Direction.Neg()
			isLeftLegForeign = true
		}
		if obstacle2.Convex && rightLegDirection.Det(obstacle2.Direction) <= 0 {
			rightLegDirection = obstacle2.Direction
			isRightLegForeign = true
		}

		// Project the current velocity onto the velocity obstacle.
		leftCutoff := obstacle1.Point.Sub(a.position).Scale(invTimeHorizonObst)
		rightCutoff := obstacle2.Point.Sub(a.position).Scale(invTimeHorizonObst)
		cutoffVec := rightCutoff.Sub(leftCutoff)

		degenerate := obstacle1 == obstacle2

		var t float64
		if degenerate {
			t = 0.5
		} else {
			t = a.velocity.Sub(leftCutoff).Dot(cutoffVec) / cutoffVec.AbsSq()
		}
		tLeft := a.velocity.Sub(leftCutoff).Dot(leftLegDirection)
		tRight := a.velocity.Sub(rightCutoff).Dot(rightLegDirection)

		if (t < 0 && tLeft < 0) || (degenerate && tLeft < 0 && tRight < 0) {
			// Project on the left cut-off circle.
			unitW := a.velocity.Sub(leftCutoff).Normalize()
			a.orcaLines = append(a.orcaLines, Line{
				Direction: geom.Vec2{X: unitW.Y, Y: -unitW.X},
				Point:     leftCutoff.Add(unitW.Scale(a.radius * invTimeHorizonObst)),
			})
			continue
		}

		if t > 1 && tRight < 0 {
			// Project on the right cut-off circle.
			unitW := a.velocity.Sub(rightCutoff).Normalize()
			a.orcaLines = append(a.orcaLines, Line{
				Direction: geom.Vec2{X: unitW.Y, Y: -unitW.X},
				Point:     rightCutoff.Add(unitW.Scale(a.radius * invTimeHorizonObst)),
			})
			continue
		}

		// Project on the nearest of cut-off line, left leg, right leg.
		distSqCutoff := math.Inf(1)
		if t >= 0 && t <= 1 && !degenerate {
			distSqCutoff = a.velocity.Sub(leftCutoff.Add(cutoffVec.Scale(t))).AbsSq()
		}
		distSqLeft := math.Inf(1)
		if tLeft >= 0 {
			distSqLeft = a.velocity.Sub(leftCutoff.Add(leftLegDirection.Scale(tLeft))).AbsSq()
		}
		distSqRight := math.Inf(1)
		if tRight >= 0 {
			distSqRight = a.velocity.Sub(rightCutoff.Add(rightLegDirection.Scale(tRight))).AbsSq()
		}

		switch {
		case distSqCutoff <= distSqLeft && distSqCutoff <= distSqRight:
			direction := obstacle1.Direction.Neg()
			a.orcaLines = append(a.orcaLines, Line{
				Direction: direction,
				Point:     leftCutoff.Add(geom.Vec2{X: -direction.Y, Y: direction.X}.Scale(a.radius * invTimeHorizonObst)),
			})

		case distSqLeft <= distSqRight:
			if isLeftLegForeign {
				continue
			}
			a.orcaLines = append(a.orcaLines, Line{
				Direction: leftLegDirection,
				Point:     leftCutoff.Add(geom.Vec2{X: -leftLegDirection.Y, Y: leftLegDirection.X}.Scale(a.radius * invTimeHorizonObst)),
			})

		default:
			if isRightLegForeign {
				continue
			}
			direction := rightLegDirection.Neg()
			a.orcaLines = append(a.orcaLines, Line{
				Direction: direction,
				Point:     rightCutoff.Add(geom.Vec2{X: -direction.Y, Y: direction.X}.Scale(a.radius * invTimeHorizonObst)),
			})
		}
	}

	numObstLines := len(a.orcaLines)

	invTimeHorizon := 1.0 / a.timeHorizon

	// Agent half-planes: each pair shares the avoidance effort, so the
	// line passes through velocity + u/2.
	for _, an := range a.agentNeighbors {
		other := an.agent

		relativePosition := other.position.Sub(a.position)
		relativeVelocity := a.velocity.Sub(other.velocity)
		distSq := relativePosition.AbsSq()
		combinedRadius := a.radius + other.radius
		combinedRadiusSq := geom.Sqr(combinedRadius)

		var line Line
		var u geom.Vec2

		if distSq > combinedRadiusSq {
			// No collision yet: truncated velocity obstacle.
			w := relativeVelocity.Sub(relativePosition.Scale(invTimeHorizon))

			wLengthSq := w.AbsSq()
			dotProduct1 := w.Dot(relativePosition)

			if dotProduct1 < 0 && geom.Sqr(dotProduct1) > combinedRadiusSq*wLengthSq {
				// Project on the cut-off circle.
				wLength := math.Sqrt(wLengthSq)
				unitW := w.Scale(1 / wLength)

				line.Direction = geom.Vec2{X: unitW.Y, Y: -unitW.X}
				u = unitW.Scale(combinedRadius*invTimeHorizon - wLength)
			} else {
				// Project on the nearer leg.
				leg := math.Sqrt(distSq - combinedRadiusSq)

				if relativePosition.Det(w) > 0 {
					line.Direction = geom.Vec2{
						X: relativePosition.X*leg - relativePosition.Y*combinedRadius,
						Y: relativePosition.X*combinedRadius + relativePosition.Y*leg,
					}.Scale(1 / distSq)
				} else {
					line.Direction = geom.Vec2{
						X: relativePosition.X*leg + relativePosition.Y*combinedRadius,
						Y: -relativePosition.X*combinedRadius + relativePosition.Y*leg,
					}.Scale(1 / distSq).Neg()
				}

				u = line.Direction.Scale(relativeVelocity.Dot(line.Direction)).Sub(relativeVelocity)
			}
		} else {
			// Already overlapping: cut-off circle at time-step scale.
			invTimeStep := 1.0 / timeStep

			w := relativeVelocity.Sub(relativePosition.Scale(invTimeStep))
			wLength := w.Abs()
			unitW := w.Scale(1 / wLength)

			line.Direction = geom.Vec2{X: unitW.Y, Y: -unitW.X}
			u = unitW.Scale(combinedRadius*invTimeStep - wLength)
		}

		line.Point = a.velocity.Add(u.Scale(0.5))
		a.orcaLines = append(a.orcaLines, line)
	}

	var lineFail int
	a.newVelocity, lineFail = linearProgram2(a.orcaLines, a.maxSpeed, a.prefVelocity, false, a.newVelocity)

	if lineFail < len(a.orcaLines) {
		a.newVelocity = linearProgram3(a.orcaLines, numObstLines, lineFail, a.maxSpeed, a.newVelocity)
	}
}

// update commits the double-buffered velocity and advances the position.
func (a *Agent) update(timeStep float64) {
	a.velocity = a.newVelocity
	a.position = a.position.Add(a.velocity.Scale(timeStep))
}
