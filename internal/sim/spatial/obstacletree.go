package spatial

import "crowdsim/internal/geom"

// obstacleTreeNode holds one splitting obstacle edge, identified by its
// first vertex (whose Next gives the second), plus the subtrees of edges
// wholly to its left and right.
type obstacleTreeNode struct {
	vertex      int
	left, right *obstacleTreeNode
}

// ObstacleTree is a binary space partition over obstacle edges. It is
// built once after obstacles are committed and is immutable afterwards.
// The build may grow the vertex arena with split vertices so that every
// subtree contains only edges lying wholly on one side of its splitter.
type ObstacleTree struct {
	root *obstacleTreeNode
	obs  *geom.ObstacleSet
}

// Build rebuilds the tree over all edges currently in obs. The arena may
// grow: edges straddling a splitting line are physically split by
// inserting a new vertex at the intersection.
func (t *ObstacleTree) Build(obs *geom.ObstacleSet) {
	t.obs = obs

	edges := make([]int, obs.Len())
	for i := range edges {
		edges[i] = i
	}
	t.root = t.buildRecursive(edges)
}

func (t *ObstacleTree) buildRecursive(edges []int) *obstacleTreeNode {
	if len(edges) == 0 {
		return nil
	}

	optimalSplit := 0
	minLeft, minRight := len(edges), len(edges)

	// Pick the splitter minimizing (max(L,R), min(L,R)) lexicographically.
	for i, e1 := range edges {
		leftSize, rightSize := 0, 0

		i1 := t.obs.At(e1)
		i2 := t.obs.At(i1.Next)

		for j, e2 := range edges {
			if i == j {
				continue
			}

			j1 := t.obs.At(e2)
			j2 := t.obs.At(j1.Next)

			j1LeftOf := geom.LeftOf(i1.Point, i2.Point, j1.Point)
			j2LeftOf := geom.LeftOf(i1.Point, i2.Point, j2.Point)

			switch {
			case j1LeftOf >= -geom.Eps && j2LeftOf >= -geom.Eps:
				leftSize++
			case j1LeftOf <= geom.Eps && j2LeftOf <= geom.Eps:
				rightSize++
			default:
				leftSize++
				rightSize++
			}

			// Abandon this candidate as soon as it can no longer win.
			if !pairLess(maxi(leftSize, rightSize), mini(leftSize, rightSize),
				maxi(minLeft, minRight), mini(minLeft, minRight)) {
				break
			}
		}

		if pairLess(maxi(leftSize, rightSize), mini(leftSize, rightSize),
			maxi(minLeft, minRight), mini(minLeft, minRight)) {
			minLeft = leftSize
			minRight = rightSize
			optimalSplit = i
		}
	}

	leftEdges := make([]int, 0, minLeft)
	rightEdges := make([]int, 0, minRight)

	splitEdge := edges[optimalSplit]
	i1 := t.obs.At(splitEdge)
	i2 := t.obs.At(i1.Next)

	for j, e2 := range edges {
		if j == optimalSplit {
			continue
		}

		j1 := t.obs.At(e2)
		j2 := t.obs.At(j1.Next)

		j1LeftOf := geom.LeftOf(i1.Point, i2.Point, j1.Point)
		j2LeftOf := geom.LeftOf(i1.Point, i2.Point, j2.Point)

		switch {
		case j1LeftOf >= -geom.Eps && j2LeftOf >= -geom.Eps:
			leftEdges = append(leftEdges, e2)
		case j1LeftOf <= geom.Eps && j2LeftOf <= geom.Eps:
			rightEdges = append(rightEdges, e2)
		default:
			// Straddling edge: cut it at the intersection with line(i).
			splitT := i2.Point.Sub(i1.Point).Det(j1.Point.Sub(i1.Point)) /
				i2.Point.Sub(i1.Point).Det(j1.Point.Sub(j2.Point))
			splitPoint := j1.Point.Add(j2.Point.Sub(j1.Point).Scale(splitT))

			newVertex := t.obs.SplitEdge(e2, splitPoint)

			if j1LeftOf > 0 {
				leftEdges = append(leftEdges, e2)
				rightEdges = append(rightEdges, newVertex)
			} else {
				rightEdges = append(rightEdges, e2)
				leftEdges = append(leftEdges, newVertex)
			}
		}
	}

	node := &obstacleTreeNode{vertex: splitEdge}
	node.left = t.buildRecursive(leftEdges)
	node.right = t.buildRecursive(rightEdges)
	return node
}

// QueryNeighbors visits the first vertex of every edge within
// sqrt(rangeSq) of p that p lies to the right of (the outer side of a
// counterclockwise polygon). Unlike the
// agent query, the range never shrinks: all edges within the initial
// range are wanted.
func (t *ObstacleTree) QueryNeighbors(p geom.Vec2, rangeSq float64, visit func(vertexID int)) {
	t.queryNeighborsRecursive(p, rangeSq, t.root, visit)
}

func (t *ObstacleTree) queryNeighborsRecursive(p geom.Vec2, rangeSq float64, node *obstacleTreeNode, visit func(vertexID int)) {
	if node == nil {
		return
	}

	v1 := t.obs.At(node.vertex)
	v2 := t.obs.At(v1.Next)

	agentLeftOfLine := geom.LeftOf(v1.Point, v2.Point, p)

	if agentLeftOfLine >= 0 {
		t.queryNeighborsRecursive(p, rangeSq, node.left, visit)
	} else {
		t.queryNeighborsRecursive(p, rangeSq, node.right, visit)
	}

	distSqLine := geom.Sqr(agentLeftOfLine) / v2.Point.Sub(v1.Point).AbsSq()
	if distSqLine >= rangeSq {
		return
	}

	if agentLeftOfLine < 0 {
		// p is right of the splitter, on the obstacle's outer side, so
		// the splitter edge itself is a candidate.
		visit(node.vertex)
	}

	if agentLeftOfLine >= 0 {
		t.queryNeighborsRecursive(p, rangeSq, node.right, visit)
	} else {
		t.queryNeighborsRecursive(p, rangeSq, node.left, visit)
	}
}

// QueryVisibility reports whether q1 and q2 are mutually visible with
// clearance radius from every obstacle edge.
func (t *ObstacleTree) QueryVisibility(q1, q2 geom.Vec2, radius float64) bool {
	return t.queryVisibilityRecursive(q1, q2, radius, t.root)
}

func (t *ObstacleTree) queryVisibilityRecursive(q1, q2 geom.Vec2, radius float64, node *obstacleTreeNode) bool {
	if node == nil {
		return true
	}

	v1 := t.obs.At(node.vertex)
	v2 := t.obs.At(v1.Next)

	q1LeftOfI := geom.LeftOf(v1.Point, v2.Point, q1)
	q2LeftOfI := geom.LeftOf(v1.Point, v2.Point, q2)
	invLengthI := 1.0 / v2.Point.Sub(v1.Point).AbsSq()

	switch {
	case q1LeftOfI >= 0 && q2LeftOfI >= 0:
		return t.queryVisibilityRecursive(q1, q2, radius, node.left) &&
			((geom.Sqr(q1LeftOfI)*invLengthI >= geom.Sqr(radius) &&
				geom.Sqr(q2LeftOfI)*invLengthI >= geom.Sqr(radius)) ||
				t.queryVisibilityRecursive(q1, q2, radius, node.right))

	case q1LeftOfI <= 0 && q2LeftOfI <= 0:
		return t.queryVisibilityRecursive(q1, q2, radius, node.right) &&
			((geom.Sqr(q1LeftOfI)*invLengthI >= geom.Sqr(radius) &&
				geom.Sqr(q2LeftOfI)*invLengthI >= geom.Sqr(radius)) ||
				t.queryVisibilityRecursive(q1, q2, radius, node.left))

	case q1LeftOfI >= 0 && q2LeftOfI <= 0:
		// q1 left, q2 right: both subtrees must be clear.
		return t.queryVisibilityRecursive(q1, q2, radius, node.left) &&
			t.queryVisibilityRecursive(q1, q2, radius, node.right)

	default:
		// q1 right, q2 left: the splitter itself may lie between q1 and
		// q2; its endpoints must sit on one side of q1q2 with clearance.
		point1LeftOfQ := geom.LeftOf(q1, q2, v1.Point)
		point2LeftOfQ := geom.LeftOf(q1, q2, v2.Point)
		invLengthQ := 1.0 / q2.Sub(q1).AbsSq()

		return point1LeftOfQ*point2LeftOfQ >= 0 &&
			geom.Sqr(point1LeftOfQ)*invLengthQ > geom.Sqr(radius) &&
			geom.Sqr(point2LeftOfQ)*invLengthQ > geom.Sqr(radius) &&
			t.queryVisibilityRecursive(q1, q2, radius, node.left) &&
			t.queryVisibilityRecursive(q1, q2, radius, node.right)
	}
}

// pairLess reports (a1, a2) < (b1, b2) lexicographically.
func pairLess(a1, a2, b1, b2 int) bool {
	return a1 < b1 || (a1 == b1 && a2 < b2)
}

func mini(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxi(a, b int) int {
	if a > b {
		return a
	}
	return b
}
