package sim

import (
	"testing"
	"time"

	"crowdsim/internal/geom"
)

// newTestRunner returns a runner with sane defaults installed.
func newTestRunner() *Runner {
	r := NewRunner(20, 0.1)
	r.SetAgentDefaults(15, 10, 10, 10, 1, 2, geom.Vec2{})
	return r
}

// TestRunnerAddAgent verifies id assignment and the defaults sentinel.
func TestRunnerAddAgent(t *testing.T) {
	r := NewRunner(20, 0.1)

	if id := r.AddAgent(geom.Vec2{}, geom.Vec2{X: 5}); id != -1 {
		t.Fatalf("AddAgent without defaults = %d, want -1", id)
	}

	r.SetAgentDefaults(15, 10, 10, 10, 1, 2, geom.Vec2{})
	if id := r.AddAgent(geom.Vec2{}, geom.Vec2{X: 5}); id != 0 {
		t.Fatalf("AddAgent = %d, want 0", id)
	}
	if id := r.AddAgent(geom.Vec2{X: 1}, geom.Vec2{X: 6}); id != 1 {
		t.Fatalf("second AddAgent = %d, want 1", id)
	}
}

// TestRunnerStepsTowardGoal verifies the goal steering reaches and then
// holds the goal.
func TestRunnerStepsTowardGoal(t *testing.T) {
	r := newTestRunner()
	id := r.AddAgent(geom.Vec2{}, geom.Vec2{X: 8, Y: 0})

	for i := 0; i < 100; i++ {
		r.Step()
	}

	snap := r.Snapshot()
	if snap.AgentCount != 1 {
		t.Fatalf("AgentCount = %d", snap.AgentCount)
	}
	agent := snap.Agents[id]
	if !agent.AtGoal {
		t.Errorf("agent did not arrive: at %v", agent.Position)
	}
	if snap.AtGoal != 1 {
		t.Errorf("snapshot AtGoal = %d, want 1", snap.AtGoal)
	}
	if agent.Velocity.Abs() > eps {
		t.Errorf("agent still moving at %v after arrival", agent.Velocity)
	}
}

// TestRunnerSetGoal verifies retargeting and the unknown-id result.
func TestRunnerSetGoal(t *testing.T) {
	r := newTestRunner()
	id := r.AddAgent(geom.Vec2{}, geom.Vec2{X: 5})

	if !r.SetGoal(id, geom.Vec2{X: -5}) {
		t.Error("SetGoal on a live agent should succeed")
	}
	if r.SetGoal(99, geom.Vec2{}) {
		t.Error("SetGoal on an unknown id should fail")
	}
	if r.SetGoal(-1, geom.Vec2{}) {
		t.Error("SetGoal on a negative id should fail")
	}

	for i := 0; i < 80; i++ {
		r.Step()
	}
	if pos := r.Snapshot().Agents[id].Position; pos.X > -3 {
		t.Errorf("agent ignored its new goal: %v", pos)
	}
}

// TestRunnerObstacles verifies outline bookkeeping alongside the
// simulator arena.
func TestRunnerObstacles(t *testing.T) {
	r := newTestRunner()

	if id := r.AddObstacle([]geom.Vec2{{X: 1, Y: 1}}); id != -1 {
		t.Fatalf("undersized obstacle = %d, want -1", id)
	}
	if len(r.ObstacleOutlines()) != 0 {
		t.Fatal("failed AddObstacle must not record an outline")
	}

	square := []geom.Vec2{{X: 2, Y: -2}, {X: 6, Y: -2}, {X: 6, Y: 2}, {X: 2, Y: 2}}
	if id := r.AddObstacle(square); id != 0 {
		t.Fatalf("AddObstacle = %d, want 0", id)
	}
	r.ProcessObstacles()

	outlines := r.ObstacleOutlines()
	if len(outlines) != 1 || len(outlines[0]) != 4 {
		t.Fatalf("outlines = %v", outlines)
	}
}

// TestRunnerSnapshotSequence verifies each step publishes a fresh
// snapshot while old reads stay coherent.
func TestRunnerSnapshotSequence(t *testing.T) {
	r := newTestRunner()
	r.AddAgent(geom.Vec2{}, geom.Vec2{X: 5})

	r.Step()
	first := r.Snapshot().Sequence
	r.Step()
	second := r.Snapshot().Sequence

	if second <= first {
		t.Errorf("sequence did not advance: %d then %d", first, second)
	}
}

// TestRunnerStartStop verifies the loop lifecycle does not panic and
// actually ticks.
func TestRunnerStartStop(t *testing.T) {
	r := newTestRunner()
	r.AddAgent(geom.Vec2{}, geom.Vec2{X: 5})

	ticked := make(chan struct{}, 1)
	r.SetTickObserver(func(time.Duration, int) {
		select {
		case ticked <- struct{}{}:
		default:
		}
	})

	r.Start()
	select {
	case <-ticked:
	case <-time.After(2 * time.Second):
		t.Fatal("runner never ticked")
	}

	r.Stop()
	r.Stop() // Double stop must be safe
}
