package sim

import (
	"sync/atomic"
	"time"

	"crowdsim/internal/geom"
)

// AgentSnapshot is an immutable copy of one agent's state for rendering
// and streaming. Value types only.
type AgentSnapshot struct {
	ID           int       `json:"id"`
	Position     geom.Vec2 `json:"position"`
	Velocity     geom.Vec2 `json:"velocity"`
	PrefVelocity geom.Vec2 `json:"prefVelocity"`
	Radius       float64   `json:"radius"`
	MaxSpeed     float64   `json:"maxSpeed"`
	Goal         geom.Vec2 `json:"goal"`
	HasGoal      bool      `json:"hasGoal"`
	AtGoal       bool      `json:"atGoal"`
}

// Snapshot is a complete immutable view of the simulation at one tick.
type Snapshot struct {
	Sequence   uint64    `json:"sequence"`
	Timestamp  time.Time `json:"timestamp"`
	Tick       uint64    `json:"tick"`
	GlobalTime float64   `json:"globalTime"`

	Agents     []AgentSnapshot `json:"agents"`
	AgentCount int             `json:"agentCount"`
	AtGoal     int             `json:"atGoal"`
}

// SnapshotPool triple-buffers snapshots so the tick loop can publish
// without blocking readers and readers never see a half-written tick.
type SnapshotPool struct {
	snapshots [3]Snapshot
	writeIdx  uint32 // atomic, producer only
	readIdx   uint32 // atomic
	sequence  uint64 // atomic
}

// NewSnapshotPool returns a pool with slices preallocated for about
// capHint agents.
func NewSnapshotPool(capHint int) *SnapshotPool {
	p := &SnapshotPool{}
	for i := range p.snapshots {
		p.snapshots[i].Agents = make([]AgentSnapshot, 0, capHint)
	}
	return p
}

// AcquireWrite returns the next write slot with slices reset but
// capacity preserved. Producer only.
func (p *SnapshotPool) AcquireWrite() *Snapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Agents = snap.Agents[:0]
	snap.AgentCount = 0
	snap.AtGoal = 0
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite makes the slot filled by AcquireWrite visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest complete snapshot.
func (p *SnapshotPool) AcquireRead() *Snapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
