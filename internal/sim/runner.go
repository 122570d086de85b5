package sim

import (
	"log"
	"sync"
	"time"

	"crowdsim/internal/geom"
)

// goalArrivalFactor scales the per-agent arrival radius: an agent counts
// as arrived once it is within this many radii of its goal.
const goalArrivalFactor = 1.5

// Runner wraps a Simulator in a fixed-rate tick loop and feeds each
// agent's preferred velocity from a per-agent goal. It is the glue the
// core deliberately leaves out: the core only consumes preferred
// velocities, the Runner is the planner that produces them.
//
// All mutation goes through the Runner's lock; readers use the lock-free
// snapshot instead.
type Runner struct {
	mu  sync.RWMutex
	sim *Simulator

	goals   []geom.Vec2
	hasGoal []bool

	outlines [][]geom.Vec2 // static obstacle outlines for rendering

	tickRate int
	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}

	tickCount uint64
	pool      *SnapshotPool

	// onTick, when set, observes each tick's wall-clock duration and
	// agent count (used for metrics; the core itself never logs).
	onTick func(d time.Duration, agents int)
}

// NewRunner creates a runner around a fresh simulator.
func NewRunner(tickRate int, timeStep float64) *Runner {
	s := New()
	s.SetTimeStep(timeStep)

	return &Runner{
		sim:      s,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
		pool:     NewSnapshotPool(64),
	}
}

// Simulator exposes the wrapped simulator. Callers must not step it
// directly while the runner is running.
func (r *Runner) Simulator() *Simulator {
	return r.sim
}

// SetTickObserver installs a hook observing tick durations.
func (r *Runner) SetTickObserver(fn func(d time.Duration, agents int)) {
	r.onTick = fn
}

// SetAgentDefaults forwards to the simulator under the runner's lock.
func (r *Runner) SetAgentDefaults(neighborDist float64, maxNeighbors int, timeHorizon, timeHorizonObst, radius, maxSpeed float64, velocity geom.Vec2) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sim.SetAgentDefaults(neighborDist, maxNeighbors, timeHorizon, timeHorizonObst, radius, maxSpeed, velocity)
}

// AddAgent adds an agent at position heading for goal. Returns the agent
// id, or -1 when no defaults have been set.
func (r *Runner) AddAgent(position, goal geom.Vec2) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.sim.AddAgent(position)
	if id < 0 {
		return id
	}

	r.goals = append(r.goals, goal)
	r.hasGoal = append(r.hasGoal, true)
	return id
}

// SetGoal retargets an existing agent. Returns false for unknown ids.
func (r *Runner) SetGoal(id int, goal geom.Vec2) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id < 0 || id >= r.sim.NumAgents() {
		return false
	}
	r.goals[id] = goal
	r.hasGoal[id] = true
	return true
}

// AddObstacle adds a polygonal obstacle and records its outline for
// rendering. Returns the first vertex id, or -1 for fewer than 2
// vertices. ProcessObstacles must be called before the next tick picks
// the obstacle up.
func (r *Runner) AddObstacle(vertices []geom.Vec2) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.sim.AddObstacle(vertices)
	if id < 0 {
		return id
	}

	outline := make([]geom.Vec2, len(vertices))
	copy(outline, vertices)
	r.outlines = append(r.outlines, outline)
	return id
}

// ProcessObstacles rebuilds the obstacle BSP tree.
func (r *Runner) ProcessObstacles() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sim.ProcessObstacles()
}

// ObstacleOutlines returns the polygon outlines added so far. The result
// is shared; callers must not mutate it.
func (r *Runner) ObstacleOutlines() [][]geom.Vec2 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.outlines
}

// Start begins the tick loop. Safe to call once; Stop ends it.
func (r *Runner) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.ticker = time.NewTicker(time.Second / time.Duration(r.tickRate))

	go func() {
		for {
			select {
			case <-r.ticker.C:
				r.Step()
			case <-r.stopChan:
				return
			}
		}
	}()

	log.Printf("simulation loop started at %d TPS, dt=%.3fs", r.tickRate, r.sim.TimeStep())
}

// Stop ends the tick loop.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	if r.ticker != nil {
		r.ticker.Stop()
	}
	close(r.stopChan)
	log.Println("simulation loop stopped")
}

// Step runs one tick synchronously: steer every agent toward its goal,
// advance the simulator, publish a snapshot.
func (r *Runner) Step() {
	start := time.Now()

	r.mu.Lock()
	r.tickCount++

	for i := 0; i < r.sim.NumAgents(); i++ {
		r.sim.SetAgentPrefVelocity(i, r.preferredVelocity(i))
	}

	r.sim.DoStep()
	r.produceSnapshot()
	agents := r.sim.NumAgents()
	r.mu.Unlock()

	if r.onTick != nil {
		r.onTick(time.Since(start), agents)
	}
}

// preferredVelocity steers agent i toward its goal at full speed,
// slowing once the goal is closer than maxSpeed (one second of travel)
// and stopping at arrival.
func (r *Runner) preferredVelocity(i int) geom.Vec2 {
	if !r.hasGoal[i] {
		return geom.Vec2{}
	}

	toGoal := r.goals[i].Sub(r.sim.AgentPosition(i))
	maxSpeed := r.sim.AgentMaxSpeed(i)

	if toGoal.AbsSq() <= geom.Sqr(r.arrivalRadius(i)) {
		return geom.Vec2{}
	}
	if toGoal.AbsSq() > geom.Sqr(maxSpeed) {
		return toGoal.Normalize().Scale(maxSpeed)
	}
	return toGoal
}

func (r *Runner) arrivalRadius(i int) float64 {
	return goalArrivalFactor * r.sim.AgentRadius(i)
}

// atGoal reports whether agent i is inside its arrival radius.
func (r *Runner) atGoal(i int) bool {
	if !r.hasGoal[i] {
		return false
	}
	return r.goals[i].Sub(r.sim.AgentPosition(i)).AbsSq() <= geom.Sqr(r.arrivalRadius(i))
}

// produceSnapshot fills and publishes the next snapshot slot. Caller
// holds the lock.
func (r *Runner) produceSnapshot() {
	snap := r.pool.AcquireWrite()
	snap.Tick = r.tickCount
	snap.GlobalTime = r.sim.GlobalTime()

	atGoal := 0
	for i := 0; i < r.sim.NumAgents(); i++ {
		arrived := r.atGoal(i)
		if arrived {
			atGoal++
		}
		snap.Agents = append(snap.Agents, AgentSnapshot{
			ID:           i,
			Position:     r.sim.AgentPosition(i),
			Velocity:     r.sim.AgentVelocity(i),
			PrefVelocity: r.sim.AgentPrefVelocity(i),
			Radius:       r.sim.AgentRadius(i),
			MaxSpeed:     r.sim.AgentMaxSpeed(i),
			Goal:         r.goals[i],
			HasGoal:      r.hasGoal[i],
			AtGoal:       arrived,
		})
	}

	snap.AgentCount = r.sim.NumAgents()
	snap.AtGoal = atGoal
	r.pool.PublishWrite()
}

// Snapshot returns the latest published snapshot.
func (r *Runner) Snapshot() *Snapshot {
	return r.pool.AcquireRead()
}
