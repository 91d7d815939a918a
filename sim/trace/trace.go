package trace

import "sort"

// TraceLevel controls the verbosity of history tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelHistories captures one record per particle (fate and counts).
	TraceLevelHistories TraceLevel = "histories"
	// TraceLevelCollisions additionally captures every collision.
	TraceLevelCollisions TraceLevel = "collisions"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:       true,
	TraceLevelHistories:  true,
	TraceLevelCollisions: true,
	"":                   true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level TraceLevel
	// MaxHistories caps how many histories are traced; 0 means no cap.
	MaxHistories uint64
}

// SimulationTrace collects records of one worker. It is not safe for
// concurrent use; per-worker traces are combined with Merge.
type SimulationTrace struct {
	Config     TraceConfig
	Particles  []ParticleRecord
	Collisions []CollisionRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:     config,
		Particles:  make([]ParticleRecord, 0),
		Collisions: make([]CollisionRecord, 0),
	}
}

// Traces reports whether history n is recorded at all.
func (st *SimulationTrace) Traces(history uint64) bool {
	if st == nil || st.Config.Level == TraceLevelNone || st.Config.Level == "" {
		return false
	}
	return st.Config.MaxHistories == 0 || history < st.Config.MaxHistories
}

// TracesCollisions reports whether collisions of history n are recorded.
func (st *SimulationTrace) TracesCollisions(history uint64) bool {
	return st.Traces(history) && st.Config.Level == TraceLevelCollisions
}

// RecordParticle appends a particle record.
func (st *SimulationTrace) RecordParticle(record ParticleRecord) {
	st.Particles = append(st.Particles, record)
}

// RecordCollision appends a collision record.
func (st *SimulationTrace) RecordCollision(record CollisionRecord) {
	st.Collisions = append(st.Collisions, record)
}

// Merge combines per-worker traces into one ordered by history, then by
// sequence within the history.
func Merge(config TraceConfig, traces ...*SimulationTrace) *SimulationTrace {
	out := NewSimulationTrace(config)
	for _, st := range traces {
		if st == nil {
			continue
		}
		out.Particles = append(out.Particles, st.Particles...)
		out.Collisions = append(out.Collisions, st.Collisions...)
	}
	sort.SliceStable(out.Particles, func(i, j int) bool {
		a, b := out.Particles[i], out.Particles[j]
		if a.History != b.History {
			return a.History < b.History
		}
		return a.Sequence < b.Sequence
	})
	sort.SliceStable(out.Collisions, func(i, j int) bool {
		a, b := out.Collisions[i], out.Collisions[j]
		if a.History != b.History {
			return a.History < b.History
		}
		return a.Sequence < b.Sequence
	})
	return out
}
