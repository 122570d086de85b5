// Package render draws simulation snapshots onto a 2D canvas. It is
// used by the scenario runner to dump PNG frames and is deliberately
// free of any simulation logic: it consumes snapshots and obstacle
// outlines only.
package render

import (
	"fmt"

	"crowdsim/internal/config"
	"crowdsim/internal/geom"
	"crowdsim/internal/sim"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
)

// agentPalette colors agents by id so trajectories are easy to follow
// across frames.
var agentPalette = []string{
	"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4",
	"#ffeaa7", "#fd79a8", "#00b894", "#6c5ce7",
	"#fdcb6e", "#e17055", "#00cec9", "#dfe6e9",
}

// Renderer draws snapshots at a fixed scale, world origin centered.
type Renderer struct {
	cfg config.RenderConfig
}

// New creates a renderer for the given configuration.
func New(cfg config.RenderConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

// NewContext returns a drawing context matching the renderer's frame
// size. Reuse one context across frames to avoid reallocating buffers.
func (r *Renderer) NewContext() *gg.Context {
	return gg.NewContext(r.cfg.Width, r.cfg.Height)
}

// screen maps a world position to pixel coordinates. World origin is
// the frame center; world +y is up.
func (r *Renderer) screen(p geom.Vec2) (float64, float64) {
	return float64(r.cfg.Width)/2 + p.X*r.cfg.Scale,
		float64(r.cfg.Height)/2 - p.Y*r.cfg.Scale
}

// Draw renders one snapshot plus the static obstacle outlines onto dc.
func (r *Renderer) Draw(dc *gg.Context, snap *sim.Snapshot, obstacles [][]geom.Vec2) {
	r.drawBackground(dc)
	r.drawGrid(dc)
	r.drawObstacles(dc, obstacles)
	r.drawAgents(dc, snap)
	r.drawHUD(dc, snap)
}

func (r *Renderer) drawBackground(dc *gg.Context) {
	dc.SetHexColor("#1a1a2e")
	dc.Clear()
}

func (r *Renderer) drawGrid(dc *gg.Context) {
	dc.SetHexColor("#16213e")
	dc.SetLineWidth(1)

	step := 5 * r.cfg.Scale
	cx := float64(r.cfg.Width) / 2
	cy := float64(r.cfg.Height) / 2

	for x := cx; x < float64(r.cfg.Width); x += step {
		dc.DrawLine(x, 0, x, float64(r.cfg.Height))
		dc.DrawLine(2*cx-x, 0, 2*cx-x, float64(r.cfg.Height))
	}
	for y := cy; y < float64(r.cfg.Height); y += step {
		dc.DrawLine(0, y, float64(r.cfg.Width), y)
		dc.DrawLine(0, 2*cy-y, float64(r.cfg.Width), 2*cy-y)
	}
	dc.Stroke()
}

func (r *Renderer) drawObstacles(dc *gg.Context, obstacles [][]geom.Vec2) {
	for _, outline := range obstacles {
		if len(outline) < 2 {
			continue
		}

		x0, y0 := r.screen(outline[0])
		dc.MoveTo(x0, y0)
		for _, p := range outline[1:] {
			x, y := r.screen(p)
			dc.LineTo(x, y)
		}
		dc.ClosePath()

		if len(outline) == 2 {
			// Degenerate line obstacle: stroke only.
			dc.SetHexColor("#533483")
			dc.SetLineWidth(3)
			dc.Stroke()
			continue
		}

		dc.SetHexColor("#0f3460")
		dc.FillPreserve()
		dc.SetHexColor("#533483")
		dc.SetLineWidth(2)
		dc.Stroke()
	}
}

func (r *Renderer) drawAgents(dc *gg.Context, snap *sim.Snapshot) {
	for _, a := range snap.Agents {
		x, y := r.screen(a.Position)
		color := agentPalette[a.ID%len(agentPalette)]

		// Goal marker.
		if a.HasGoal {
			gx, gy := r.screen(a.Goal)
			dc.SetHexColor(color)
			dc.DrawCircle(gx, gy, 3)
			dc.Stroke()
		}

		// Body disc.
		dc.SetHexColor(color)
		dc.DrawCircle(x, y, a.Radius*r.cfg.Scale)
		dc.Fill()

		// Velocity whisker, one simulated second long.
		vx, vy := r.screen(a.Position.Add(a.Velocity))
		dc.SetHexColor("#e0e0e0")
		dc.SetLineWidth(1.5)
		dc.DrawLine(x, y, vx, vy)
		dc.Stroke()
	}
}

func (r *Renderer) drawHUD(dc *gg.Context, snap *sim.Snapshot) {
	dc.SetHexColor("#e0e0e0")
	hud := fmt.Sprintf("tick %d  t=%.1fs  agents %d  at goal %d",
		snap.Tick, snap.GlobalTime, snap.AgentCount, snap.AtGoal)
	dc.DrawString(hud, 10, 20)
}

// SaveFrame renders the snapshot and writes it to path as PNG.
func (r *Renderer) SaveFrame(dc *gg.Context, snap *sim.Snapshot, obstacles [][]geom.Vec2, path string) error {
	r.Draw(dc, snap, obstacles)
	return errors.Wrapf(dc.SavePNG(path), "saving frame %s", path)
}
