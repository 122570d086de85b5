package geom

import (
	"math"
	"testing"
)

const testEps = 1e-12

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < testEps
}

// TestVecOps verifies the basic vector algebra.
func TestVecOps(t *testing.T) {
	a := Vec2{X: 3, Y: 4}
	b := Vec2{X: -1, Y: 2}

	if got := a.Add(b); got != (Vec2{X: 2, Y: 6}) {
		t.Errorf("Add = %v", got)
	}
	if got := a.Sub(b); got != (Vec2{X: 4, Y: 2}) {
		t.Errorf("Sub = %v", got)
	}
	if got := a.Scale(2); got != (Vec2{X: 6, Y: 8}) {
		t.Errorf("Scale = %v", got)
	}
	if got := a.Dot(b); got != 5 {
		t.Errorf("Dot = %v", got)
	}
	if got := a.AbsSq(); got != 25 {
		t.Errorf("AbsSq = %v", got)
	}
	if got := a.Abs(); got != 5 {
		t.Errorf("Abs = %v", got)
	}
	if got := a.Neg(); got != (Vec2{X: -3, Y: -4}) {
		t.Errorf("Neg = %v", got)
	}

	n := a.Normalize()
	if !almostEqual(n.Abs(), 1) {
		t.Errorf("Normalize magnitude = %v", n.Abs())
	}
	if !almostEqual(n.X, 0.6) || !almostEqual(n.Y, 0.8) {
		t.Errorf("Normalize = %v", n)
	}
}

// TestDet verifies the determinant orientation convention.
func TestDet(t *testing.T) {
	if got := (Vec2{X: 1, Y: 0}).Det(Vec2{X: 0, Y: 1}); got != 1 {
		t.Errorf("det(ex, ey) = %v, want 1", got)
	}
	if got := (Vec2{X: 0, Y: 1}).Det(Vec2{X: 1, Y: 0}); got != -1 {
		t.Errorf("det(ey, ex) = %v, want -1", got)
	}
	if got := (Vec2{X: 2, Y: 3}).Det(Vec2{X: 4, Y: 6}); got != 0 {
		t.Errorf("det of parallel vectors = %v, want 0", got)
	}
}

// TestLeftOf verifies the sign of the point-vs-line classification.
func TestLeftOf(t *testing.T) {
	a := Vec2{X: 0, Y: 0}
	b := Vec2{X: 1, Y: 0}

	if got := LeftOf(a, b, Vec2{X: 0, Y: 1}); got <= 0 {
		t.Errorf("LeftOf for point above = %v, want > 0", got)
	}
	if got := LeftOf(a, b, Vec2{X: 0, Y: -1}); got >= 0 {
		t.Errorf("LeftOf for point below = %v, want < 0", got)
	}
	if got := LeftOf(a, b, Vec2{X: 5, Y: 0}); got != 0 {
		t.Errorf("LeftOf for collinear point = %v, want 0", got)
	}
}

// TestDistSqPointSegment covers the three projection regimes.
func TestDistSqPointSegment(t *testing.T) {
	p := Vec2{X: 0, Y: 0}
	q := Vec2{X: 2, Y: 0}

	tests := []struct {
		name string
		r    Vec2
		want float64
	}{
		{"above interior", Vec2{X: 1, Y: 1}, 1},
		{"beyond q", Vec2{X: 3, Y: 0}, 1},
		{"before p", Vec2{X: -2, Y: 0}, 4},
		{"on segment", Vec2{X: 0.5, Y: 0}, 0},
		{"diagonal past q", Vec2{X: 3, Y: 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistSqPointSegment(p, q, tt.r); !almostEqual(got, tt.want) {
				t.Errorf("DistSqPointSegment = %v, want %v", got, tt.want)
			}
		})
	}
}
