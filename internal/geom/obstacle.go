package geom

// ObstacleVertex is one node of a doubly-linked polygon chain, stored in an
// arena slice so that chain pointers are stable integer indices and splits
// during preprocessing are append-only.
type ObstacleVertex struct {
	Point     Vec2
	Direction Vec2 // unit direction of the outgoing edge toward Next
	Convex    bool
	ID        int // arena index, stable for the life of the set
	Next      int
	Prev      int
}

// ObstacleSet is the arena of obstacle vertices for all polygons.
// Vertices are only ever appended; ids equal insertion order.
type ObstacleSet struct {
	vertices []ObstacleVertex
}

// Len returns the number of vertices in the arena, including any split
// vertices added by preprocessing.
func (s *ObstacleSet) Len() int {
	return len(s.vertices)
}

// At returns a pointer to the vertex with the given id.
func (s *ObstacleSet) At(id int) *ObstacleVertex {
	return &s.vertices[id]
}

// Clear drops all vertices.
func (s *ObstacleSet) Clear() {
	s.vertices = s.vertices[:0]
}

// AddPolygon appends the vertices of one polygon as a doubly-linked chain.
// Vertices must be given in counterclockwise order for a solid obstacle;
// two vertices describe a degenerate "line" obstacle.
//
// Each vertex's Direction is the normalized edge to the next vertex
// (wrapping), and Convex holds iff the polygon is non-reflex at the vertex
// (unconditionally true for 2-vertex input).
//
// Returns the id of the first new vertex, or -1 when fewer than 2 vertices
// are supplied.
func (s *ObstacleSet) AddPolygon(verts []Vec2) int {
	if len(verts) < 2 {
		return -1
	}

	first := len(s.vertices)
	n := len(verts)

	for i, p := range verts {
		next := verts[(i+1)%n]
		prevIdx := first + (i+n-1)%n

		v := ObstacleVertex{
			Point:     p,
			Direction: next.Sub(p).Normalize(),
			ID:        first + i,
			Next:      first + (i+1)%n,
			Prev:      prevIdx,
		}

		if n == 2 {
			v.Convex = true
		} else {
			prev := verts[(i+n-1)%n]
			v.Convex = LeftOf(prev, p, next) >= 0
		}

		s.vertices = append(s.vertices, v)
	}

	return first
}

// SplitEdge inserts a new vertex at point on the edge leaving vertex id.
// The new vertex inherits the edge's direction, is convex, and receives a
// fresh id at the end of the arena. Returns the new vertex's id.
func (s *ObstacleSet) SplitEdge(id int, point Vec2) int {
	v := &s.vertices[id]
	nextID := v.Next
	newID := len(s.vertices)

	s.vertices = append(s.vertices, ObstacleVertex{
		Point:     point,
		Direction: v.Direction,
		Convex:    true,
		ID:        newID,
		Next:      nextID,
		Prev:      id,
	})

	s.vertices[id].Next = newID
	s.vertices[nextID].Prev = newID

	return newID
}
