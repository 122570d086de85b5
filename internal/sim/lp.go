package sim

import (
	"math"

	"crowdsim/internal/geom"
)

// The velocity program is solved Seidel-style in three cooperating
// routines. Each takes the current best velocity and returns the new
// one, so no mutable state is shared across recursion depths.
//
//   - linearProgram1 optimizes along one constraint line under the
//     earlier constraints and the speed disc.
//   - linearProgram2 walks all constraints in order, re-optimizing with
//     linearProgram1 whenever the current best violates one.
//   - linearProgram3 is the fallback when the program is infeasible: it
//     minimizes the maximum violation over agent constraints while
//     keeping obstacle constraints hard.

// linearProgram1 solves the 1-D program on line lineNo subject to the
// first lineNo constraints and a disc of the given radius. It returns
// the optimized velocity and whether a feasible point exists; on failure
// the input result is returned unchanged.
func linearProgram1(lines []Line, lineNo int, radius float64, optVelocity geom.Vec2, directionOpt bool, result geom.Vec2) (geom.Vec2, bool) {
	dotProduct := lines[lineNo].Point.Dot(lines[lineNo].Direction)
	discriminant := geom.Sqr(dotProduct) + geom.Sqr(radius) - lines[lineNo].Point.AbsSq()

	if discriminant < 0 {
		// The speed disc fully invalidates line lineNo.
		return result, false
	}

	sqrtDiscriminant := math.Sqrt(discriminant)
	tLeft := -dotProduct - sqrtDiscriminant
	tRight := -dotProduct + sqrtDiscriminant

	for i := 0; i < lineNo; i++ {
		denominator := lines[lineNo].Direction.Det(lines[i].Direction)
		numerator := lines[i].Direction.Det(lines[lineNo].Point.Sub(lines[i].Point))

		if math.Abs(denominator) <= geom.Eps {
			// Lines lineNo and i are (almost) parallel.
			if numerator < 0 {
				return result, false
			}
			continue
		}

		t := numerator / denominator

		if denominator >= 0 {
			// Line i bounds line lineNo on the right.
			tRight = math.Min(tRight, t)
		} else {
			// Line i bounds line lineNo on the left.
			tLeft = math.Max(tLeft, t)
		}

		if tLeft > tRight {
			return result, false
		}
	}

	if directionOpt {
		// Optimize direction.
		if optVelocity.Dot(lines[lineNo].Direction) > 0 {
			result = lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(tRight))
		} else {
			result = lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(tLeft))
		}
	} else {
		// Optimize closest point.
		t := lines[lineNo].Direction.Dot(optVelocity.Sub(lines[lineNo].Point))

		switch {
		case t < tLeft:
			result = lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(tLeft))
		case t > tRight:
			result = lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(tRight))
		default:
			result = lines[lineNo].Point.Add(lines[lineNo].Direction.Scale(t))
		}
	}

	return result, true
}

// linearProgram2 solves the 2-D program subject to all constraint lines
// and a disc of the given radius. It returns the optimized velocity and
// the number of constraints satisfied; a return less than len(lines) is
// the index of the first constraint at which the program failed, and the
// velocity then holds the best point before that constraint.
func linearProgram2(lines []Line, radius float64, optVelocity geom.Vec2, directionOpt bool, result geom.Vec2) (geom.Vec2, int) {
	switch {
	case directionOpt:
		// optVelocity is a unit direction in this case.
		result = optVelocity.Scale(radius)
	case optVelocity.AbsSq() > geom.Sqr(radius):
		result = optVelocity.Normalize().Scale(radius)
	default:
		result = optVelocity
	}

	for i := range lines {
		if lines[i].Direction.Det(lines[i].Point.Sub(result)) > 0 {
			// result violates constraint i; re-optimize on its boundary.
			var ok bool
			if result, ok = linearProgram1(lines, i, radius, optVelocity, directionOpt, result); !ok {
				return result, i
			}
		}
	}

	return result, len(lines)
}

// linearProgram3 handles the infeasible case: starting at beginLine, it
// minimizes the maximum penetration distance over the remaining agent
// constraints. Obstacle constraints (indices below numObstLines) are
// never relaxed; they are always part of the projected program.
func linearProgram3(lines []Line, numObstLines, beginLine int, radius float64, result geom.Vec2) geom.Vec2 {
	distance := 0.0

	for i := beginLine; i < len(lines); i++ {
		if lines[i].Direction.Det(lines[i].Point.Sub(result)) <= distance {
			continue
		}

		// result does more than the current worst violation of line i;
		// project the later constraints onto line i.
		projLines := make([]Line, numObstLines, len(lines))
		copy(projLines, lines[:numObstLines])

		for j := numObstLines; j < i; j++ {
			var line Line

			determinant := lines[i].Direction.Det(lines[j].Direction)

			if math.Abs(determinant) <= geom.Eps {
				// Lines i and j are parallel.
				if lines[i].Direction.Dot(lines[j].Direction) > 0 {
					// Same direction: j adds nothing over i.
					continue
				}
				// Opposite direction: bisect.
				line.Point = lines[i].Point.Add(lines[j].Point).Scale(0.5)
			} else {
				line.Point = lines[i].Point.Add(lines[i].Direction.Scale(
					lines[j].Direction.Det(lines[i].Point.Sub(lines[j].Point)) / determinant))
			}

			line.Direction = lines[j].Direction.Sub(lines[i].Direction).Normalize()
			projLines = append(projLines, line)
		}

		optDirection := geom.Vec2{X: -lines[i].Direction.Y, Y: lines[i].Direction.X}
		if newResult, n := linearProgram2(projLines, radius, optDirection, true, result); n >= len(projLines) {
			// A feasible projected point was found. (When it is not,
			// the failure is floating-point drift; keep the previous
			// result, which satisfies line i up to the new distance.)
			result = newResult
		}

		distance = lines[i].Direction.Det(lines[i].Point.Sub(result))
	}

	return result
}
