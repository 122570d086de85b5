package sim

import (
	"runtime"
	"sync"

	"crowdsim/internal/geom"
	"crowdsim/internal/sim/spatial"
)

// DefaultTimeStep is the tick length used by a fresh simulator.
const DefaultTimeStep = 0.1

// agentDefaults is the template applied by AddAgent. It must be set via
// SetAgentDefaults before AddAgent succeeds.
type agentDefaults struct {
	neighborDist    float64
	maxNeighbors    int
	timeHorizon     float64
	timeHorizonObst float64
	radius          float64
	maxSpeed        float64
	velocity        geom.Vec2
}

// Simulator owns the agents, the obstacle arena, both spatial indices,
// the tick length and the global time. It is synchronous: DoStep runs
// to completion before returning. The per-agent
// compute phase fans out over a bounded worker pool; because it reads
// only pre-tick state and each agent writes only its own buffered
// velocity, the result is identical to serial execution.
type Simulator struct {
	agents    []*Agent
	obstacles geom.ObstacleSet

	agentTree    spatial.AgentTree
	obstacleTree spatial.ObstacleTree

	timeStep   float64
	globalTime float64

	defaults *agentDefaults

	numWorkers int

	positions []geom.Vec2 // scratch for the per-tick tree build
}

// New returns an empty simulator with the default tick length and no
// default agent template.
func New() *Simulator {
	return &Simulator{
		timeStep:   DefaultTimeStep,
		numWorkers: runtime.NumCPU(),
	}
}

// SetAgentDefaults installs the template used by AddAgent for every
// agent parameter except position.
func (s *Simulator) SetAgentDefaults(neighborDist float64, maxNeighbors int, timeHorizon, timeHorizonObst, radius, maxSpeed float64, velocity geom.Vec2) {
	s.defaults = &agentDefaults{
		neighborDist:    neighborDist,
		maxNeighbors:    maxNeighbors,
		timeHorizon:     timeHorizon,
		timeHorizonObst: timeHorizonObst,
		radius:          radius,
		maxSpeed:        maxSpeed,
		velocity:        velocity,
	}
}

// SetTimeStep sets the tick length.
func (s *Simulator) SetTimeStep(dt float64) {
	s.timeStep = dt
}

// TimeStep returns the tick length.
func (s *Simulator) TimeStep() float64 {
	return s.timeStep
}

// GlobalTime returns the accumulated simulation time.
func (s *Simulator) GlobalTime() float64 {
	return s.globalTime
}

// SetNumWorkers bounds the worker pool used for the per-agent compute
// phase. Values below 1 force serial execution.
func (s *Simulator) SetNumWorkers(n int) {
	if n < 1 {
		n = 1
	}
	s.numWorkers = n
}

// Clear drops all agents, obstacles, both trees, the global time and the
// default-agent template. SetAgentDefaults must be called again before
// AddAgent succeeds.
func (s *Simulator) Clear() {
	s.agents = nil
	s.obstacles.Clear()
	s.agentTree = spatial.AgentTree{}
	s.obstacleTree = spatial.ObstacleTree{}
	s.timeStep = DefaultTimeStep
	s.globalTime = 0
	s.defaults = nil
	s.positions = nil
}

// AddAgent appends an agent at the given position using the default
// template. Returns the new agent's id, or -1 when no defaults have
// been set. Ids equal insertion order and are stable for the life of
// the simulator.
func (s *Simulator) AddAgent(position geom.Vec2) int {
	if s.defaults == nil {
		return -1
	}
	d := s.defaults
	return s.AddAgentParams(position, d.neighborDist, d.maxNeighbors, d.timeHorizon, d.timeHorizonObst, d.radius, d.maxSpeed, d.velocity)
}

// AddAgentParams appends an agent with explicit parameters, bypassing
// the default template. Returns the new agent's id.
func (s *Simulator) AddAgentParams(position geom.Vec2, neighborDist float64, maxNeighbors int, timeHorizon, timeHorizonObst, radius, maxSpeed float64, velocity geom.Vec2) int {
	a := &Agent{
		position:        position,
		velocity:        velocity,
		neighborDist:    neighborDist,
		maxNeighbors:    maxNeighbors,
		timeHorizon:     timeHorizon,
		timeHorizonObst: timeHorizonObst,
		radius:          radius,
		maxSpeed:        maxSpeed,
		id:              len(s.agents),
	}
	s.agents = append(s.agents, a)
	return a.id
}

// NumAgents returns the number of agents.
func (s *Simulator) NumAgents() int {
	return len(s.agents)
}

// AddObstacle appends one polygonal obstacle given as a list of vertices
// in counterclockwise order (two vertices describe a degenerate "line"
// obstacle). Returns the id of the first new vertex, or -1 when fewer
// than 2 vertices are supplied. ProcessObstacles must run before the
// obstacle affects the simulation.
func (s *Simulator) AddObstacle(vertices []geom.Vec2) int {
	return s.obstacles.AddPolygon(vertices)
}

// ProcessObstacles builds the obstacle BSP tree. The vertex list may
// grow with split vertices; they receive fresh ids at the end of the
// list and participate in chain navigation.
func (s *Simulator) ProcessObstacles() {
	s.obstacleTree.Build(&s.obstacles)
}

// NumObstacleVertices returns the number of obstacle vertices, including
// split vertices introduced by ProcessObstacles.
func (s *Simulator) NumObstacleVertices() int {
	return s.obstacles.Len()
}

// ObstacleVertexPoint returns the position of obstacle vertex no.
func (s *Simulator) ObstacleVertexPoint(no int) geom.Vec2 {
	return s.obstacles.At(no).Point
}

// NextObstacleVertexNo returns the id of the vertex following no in its
// polygon chain.
func (s *Simulator) NextObstacleVertexNo(no int) int {
	return s.obstacles.At(no).Next
}

// PrevObstacleVertexNo returns the id of the vertex preceding no in its
// polygon chain.
func (s *Simulator) PrevObstacleVertexNo(no int) int {
	return s.obstacles.At(no).Prev
}

// QueryVisibility reports whether p and q are mutually visible with the
// given clearance from all obstacle edges. Valid only after
// ProcessObstacles.
func (s *Simulator) QueryVisibility(p, q geom.Vec2, radius float64) bool {
	return s.obstacleTree.QueryVisibility(p, q, radius)
}

// DoStep advances the simulation by one tick: it rebuilds the agent k-d
// tree, computes every agent's neighbors and new velocity from pre-tick
// state, commits all positions and velocities, and advances the global
// time. Returns the new global time.
func (s *Simulator) DoStep() float64 {
	s.positions = s.positions[:0]
	for _, a := range s.agents {
		s.positions = append(s.positions, a.position)
	}
	s.agentTree.Build(s.positions)

	s.forEachAgent(func(a *Agent) {
		a.computeNeighbors(s)
		a.computeNewVelocity(&s.obstacles, s.timeStep)
	})

	for _, a := range s.agents {
		a.update(s.timeStep)
	}

	s.globalTime += s.timeStep
	return s.globalTime
}

// forEachAgent runs fn for every agent, fanning out over the worker pool
// when it pays off. Each agent touches only its own mutable state, so
// the parallel result matches serial execution exactly.
func (s *Simulator) forEachAgent(fn func(*Agent)) {
	n := len(s.agents)
	workers := s.numWorkers
	if workers > n {
		workers = n
	}

	if workers <= 1 || n < 2*minAgentsPerWorker {
		for _, a := range s.agents {
			fn(a)
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + workers - 1) / workers
	for begin := 0; begin < n; begin += chunk {
		end := begin + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(agents []*Agent) {
			defer wg.Done()
			for _, a := range agents {
				fn(a)
			}
		}(s.agents[begin:end])
	}
	wg.Wait()
}

// minAgentsPerWorker is the smallest per-worker share worth a goroutine.
const minAgentsPerWorker = 32

// AgentPosition returns agent i's position.
func (s *Simulator) AgentPosition(i int) geom.Vec2 {
	return s.agents[i].position
}

// SetAgentPosition overwrites agent i's position.
func (s *Simulator) SetAgentPosition(i int, p geom.Vec2) {
	s.agents[i].position = p
}

// AgentVelocity returns agent i's current velocity.
func (s *Simulator) AgentVelocity(i int) geom.Vec2 {
	return s.agents[i].velocity
}

// SetAgentVelocity overwrites agent i's current velocity.
func (s *Simulator) SetAgentVelocity(i int, v geom.Vec2) {
	s.agents[i].velocity = v
}

// AgentPrefVelocity returns agent i's preferred velocity.
func (s *Simulator) AgentPrefVelocity(i int) geom.Vec2 {
	return s.agents[i].prefVelocity
}

// SetAgentPrefVelocity sets agent i's preferred velocity for the next
// tick.
func (s *Simulator) SetAgentPrefVelocity(i int, v geom.Vec2) {
	s.agents[i].prefVelocity = v
}

// AgentRadius returns agent i's radius.
func (s *Simulator) AgentRadius(i int) float64 {
	return s.agents[i].radius
}

// SetAgentRadius sets agent i's radius.
func (s *Simulator) SetAgentRadius(i int, r float64) {
	s.agents[i].radius = r
}

// AgentMaxSpeed returns agent i's maximum speed.
func (s *Simulator) AgentMaxSpeed(i int) float64 {
	return s.agents[i].maxSpeed
}

// SetAgentMaxSpeed sets agent i's maximum speed.
func (s *Simulator) SetAgentMaxSpeed(i int, v float64) {
	s.agents[i].maxSpeed = v
}

// AgentNeighborDist returns agent i's neighbor search distance.
func (s *Simulator) AgentNeighborDist(i int) float64 {
	return s.agents[i].neighborDist
}

// SetAgentNeighborDist sets agent i's neighbor search distance.
func (s *Simulator) SetAgentNeighborDist(i int, d float64) {
	s.agents[i].neighborDist = d
}

// AgentMaxNeighbors returns agent i's neighbor cap.
func (s *Simulator) AgentMaxNeighbors(i int) int {
	return s.agents[i].maxNeighbors
}

// SetAgentMaxNeighbors sets agent i's neighbor cap.
func (s *Simulator) SetAgentMaxNeighbors(i, n int) {
	s.agents[i].maxNeighbors = n
}

// AgentTimeHorizon returns agent i's agent-avoidance time horizon.
func (s *Simulator) AgentTimeHorizon(i int) float64 {
	return s.agents[i].timeHorizon
}

// SetAgentTimeHorizon sets agent i's agent-avoidance time horizon.
func (s *Simulator) SetAgentTimeHorizon(i int, t float64) {
	s.agents[i].timeHorizon = t
}

// AgentTimeHorizonObst returns agent i's obstacle-avoidance time horizon.
func (s *Simulator) AgentTimeHorizonObst(i int) float64 {
	return s.agents[i].timeHorizonObst
}

// SetAgentTimeHorizonObst sets agent i's obstacle-avoidance time horizon.
func (s *Simulator) SetAgentTimeHorizonObst(i int, t float64) {
	s.agents[i].timeHorizonObst = t
}

// AgentNumAgentNeighbors returns how many agent neighbors agent i
// retained last tick.
func (s *Simulator) AgentNumAgentNeighbors(i int) int {
	return len(s.agents[i].agentNeighbors)
}

// AgentAgentNeighbor returns the id of agent i's k-th nearest agent
// neighbor from last tick.
func (s *Simulator) AgentAgentNeighbor(i, k int) int {
	return s.agents[i].agentNeighbors[k].agent.id
}

// AgentNumObstacleNeighbors returns how many obstacle-edge neighbors
// agent i retained last tick.
func (s *Simulator) AgentNumObstacleNeighbors(i int) int {
	return len(s.agents[i].obstacleNeighbors)
}

// AgentObstacleNeighbor returns the first-vertex id of agent i's k-th
// nearest obstacle edge from last tick.
func (s *Simulator) AgentObstacleNeighbor(i, k int) int {
	return s.agents[i].obstacleNeighbors[k].vertex
}

// AgentNumORCALines returns how many ORCA constraint lines agent i
// emitted last tick.
func (s *Simulator) AgentNumORCALines(i int) int {
	return len(s.agents[i].orcaLines)
}

// AgentORCALine returns agent i's k-th ORCA line from last tick.
func (s *Simulator) AgentORCALine(i, k int) Line {
	return s.agents[i].orcaLines[k]
}
