package geom

import "testing"

// TestAddPolygonChain verifies that a polygon forms a proper cycle with
// correct directions and convexity flags.
func TestAddPolygonChain(t *testing.T) {
	var set ObstacleSet

	first := set.AddPolygon([]Vec2{
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1},
	})
	if first != 0 {
		t.Fatalf("first vertex id = %d, want 0", first)
	}
	if set.Len() != 4 {
		t.Fatalf("Len = %d, want 4", set.Len())
	}

	for i := 0; i < 4; i++ {
		v := set.At(i)
		if v.ID != i {
			t.Errorf("vertex %d: ID = %d", i, v.ID)
		}
		if v.Next != (i+1)%4 {
			t.Errorf("vertex %d: Next = %d, want %d", i, v.Next, (i+1)%4)
		}
		if v.Prev != (i+3)%4 {
			t.Errorf("vertex %d: Prev = %d, want %d", i, v.Prev, (i+3)%4)
		}
		if set.At(v.Next).Prev != i {
			t.Errorf("vertex %d: next.prev = %d", i, set.At(v.Next).Prev)
		}
		if !v.Convex {
			t.Errorf("vertex %d of a counterclockwise square should be convex", i)
		}
	}

	if d := set.At(0).Direction; d != (Vec2{X: 1, Y: 0}) {
		t.Errorf("vertex 0 direction = %v, want (1,0)", d)
	}
	if d := set.At(3).Direction; d != (Vec2{X: 0, Y: -1}) {
		t.Errorf("vertex 3 direction = %v, want (0,-1)", d)
	}
}

// TestAddPolygonReflex verifies that a reflex vertex is marked non-convex.
func TestAddPolygonReflex(t *testing.T) {
	var set ObstacleSet

	// An arrowhead: vertex 3 points into the polygon.
	set.AddPolygon([]Vec2{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 2, Y: 1},
	})

	if set.At(3).Convex {
		t.Error("reflex vertex should not be convex")
	}
	if !set.At(0).Convex || !set.At(1).Convex || !set.At(2).Convex {
		t.Error("non-reflex vertices should be convex")
	}
}

// TestAddPolygonDegenerate verifies the 2-vertex "line" obstacle.
func TestAddPolygonDegenerate(t *testing.T) {
	var set ObstacleSet

	first := set.AddPolygon([]Vec2{{X: 5, Y: -1}, {X: 5, Y: 1}})
	if first != 0 {
		t.Fatalf("first vertex id = %d, want 0", first)
	}

	v0, v1 := set.At(0), set.At(1)
	if v0.Next != 1 || v0.Prev != 1 || v1.Next != 0 || v1.Prev != 0 {
		t.Error("2-vertex obstacle should form a 2-cycle")
	}
	if !v0.Convex || !v1.Convex {
		t.Error("degenerate obstacle vertices must be convex")
	}
	if v0.Direction != (Vec2{X: 0, Y: 1}) || v1.Direction != (Vec2{X: 0, Y: -1}) {
		t.Errorf("directions = %v, %v", v0.Direction, v1.Direction)
	}
}

// TestAddPolygonTooFew verifies the sentinel for invalid input.
func TestAddPolygonTooFew(t *testing.T) {
	var set ObstacleSet

	if got := set.AddPolygon(nil); got != -1 {
		t.Errorf("AddPolygon(nil) = %d, want -1", got)
	}
	if got := set.AddPolygon([]Vec2{{X: 1, Y: 1}}); got != -1 {
		t.Errorf("AddPolygon with 1 vertex = %d, want -1", got)
	}
	if set.Len() != 0 {
		t.Errorf("failed AddPolygon must not grow the arena")
	}
}

// TestSplitEdge verifies chain splicing and inheritance of the new vertex.
func TestSplitEdge(t *testing.T) {
	var set ObstacleSet

	set.AddPolygon([]Vec2{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 0, Y: 2},
	})

	newID := set.SplitEdge(0, Vec2{X: 1, Y: 0})
	if newID != 4 {
		t.Fatalf("split vertex id = %d, want 4", newID)
	}

	nv := set.At(newID)
	if nv.Point != (Vec2{X: 1, Y: 0}) {
		t.Errorf("split point = %v", nv.Point)
	}
	if !nv.Convex {
		t.Error("split vertex must be convex")
	}
	if nv.Direction != set.At(0).Direction {
		t.Error("split vertex must inherit the edge direction")
	}
	if set.At(0).Next != newID || nv.Prev != 0 || nv.Next != 1 || set.At(1).Prev != newID {
		t.Error("split vertex not spliced into the chain")
	}

	// Chain invariant must survive the split.
	for i := 0; i < set.Len(); i++ {
		if set.At(set.At(i).Next).Prev != i {
			t.Errorf("vertex %d: next.prev broken", i)
		}
	}
}
