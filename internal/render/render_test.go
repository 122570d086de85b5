package render

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"crowdsim/internal/config"
	"crowdsim/internal/geom"
	"crowdsim/internal/sim"
)

func testSnapshot() *sim.Snapshot {
	return &sim.Snapshot{
		Tick:       7,
		GlobalTime: 0.7,
		Agents: []sim.AgentSnapshot{
			{
				ID:       0,
				Position: geom.Vec2{X: 0, Y: 0},
				Velocity: geom.Vec2{X: 1, Y: 0},
				Radius:   1,
				Goal:     geom.Vec2{X: 5, Y: 0},
				HasGoal:  true,
			},
		},
		AgentCount: 1,
	}
}

// TestDrawMarksAgent verifies an agent disc actually lands on the canvas.
func TestDrawMarksAgent(t *testing.T) {
	cfg := config.RenderConfig{Width: 200, Height: 160, Scale: 10}
	r := New(cfg)
	dc := r.NewContext()

	obstacles := [][]geom.Vec2{
		{{X: -8, Y: -6}, {X: -4, Y: -6}, {X: -4, Y: -3}, {X: -8, Y: -3}},
	}
	r.Draw(dc, testSnapshot(), obstacles)

	img := dc.Image()

	// The agent sits at the frame center with a 10px radius disc; the
	// center pixel must differ from the background.
	bg := img.At(5, 5)
	center := img.At(100, 80)
	if sameColor(bg, center) {
		t.Error("agent disc not drawn at frame center")
	}

	// A pixel inside the obstacle block must differ from the background
	// as well. World (-6, -4.5) maps to (40, 125).
	if sameColor(bg, img.At(40, 125)) {
		t.Error("obstacle not drawn")
	}
}

// TestSaveFrame verifies a PNG lands on disk.
func TestSaveFrame(t *testing.T) {
	cfg := config.RenderConfig{Width: 120, Height: 90, Scale: 8}
	r := New(cfg)
	dc := r.NewContext()

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := r.SaveFrame(dc, testSnapshot(), nil, path); err != nil {
		t.Fatalf("SaveFrame: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("empty frame written")
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}
