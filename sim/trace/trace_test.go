package trace

import (
	"testing"
)

func TestSimulationTrace_RecordParticle_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for histories
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelHistories})

	// WHEN a particle record is recorded
	st.RecordParticle(ParticleRecord{History: 3, Collisions: 2, Fate: FateEscaped, FinalEnergy: 0.5, FinalWeight: 1})

	// THEN the trace contains one particle record with correct data
	if len(st.Particles) != 1 {
		t.Fatalf("expected 1 particle, got %d", len(st.Particles))
	}
	if st.Particles[0].History != 3 || st.Particles[0].Fate != FateEscaped {
		t.Errorf("unexpected record %+v", st.Particles[0])
	}
}

func TestSimulationTrace_Traces_RespectsLevelAndCap(t *testing.T) {
	tests := []struct {
		name       string
		config     TraceConfig
		history    uint64
		traces     bool
		collisions bool
	}{
		{"none", TraceConfig{Level: TraceLevelNone}, 0, false, false},
		{"empty level", TraceConfig{}, 0, false, false},
		{"histories", TraceConfig{Level: TraceLevelHistories}, 7, true, false},
		{"collisions", TraceConfig{Level: TraceLevelCollisions}, 7, true, true},
		{"under cap", TraceConfig{Level: TraceLevelCollisions, MaxHistories: 8}, 7, true, true},
		{"at cap", TraceConfig{Level: TraceLevelCollisions, MaxHistories: 7}, 7, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewSimulationTrace(tc.config)
			if got := st.Traces(tc.history); got != tc.traces {
				t.Errorf("Traces(%d) = %v, want %v", tc.history, got, tc.traces)
			}
			if got := st.TracesCollisions(tc.history); got != tc.collisions {
				t.Errorf("TracesCollisions(%d) = %v, want %v", tc.history, got, tc.collisions)
			}
		})
	}

	var nilTrace *SimulationTrace
	if nilTrace.Traces(0) {
		t.Error("nil trace must not trace")
	}
}

func TestMerge_OrdersByHistoryThenSequence(t *testing.T) {
	// GIVEN two worker traces with interleaved histories
	a := NewSimulationTrace(TraceConfig{Level: TraceLevelCollisions})
	b := NewSimulationTrace(TraceConfig{Level: TraceLevelCollisions})
	a.RecordCollision(CollisionRecord{History: 2, Sequence: 1})
	a.RecordCollision(CollisionRecord{History: 2, Sequence: 0})
	b.RecordCollision(CollisionRecord{History: 1, Sequence: 0})
	b.RecordParticle(ParticleRecord{History: 1, Sequence: 1})
	a.RecordParticle(ParticleRecord{History: 0, Sequence: 0})
	b.RecordParticle(ParticleRecord{History: 1, Sequence: 0})

	// WHEN merged
	m := Merge(TraceConfig{Level: TraceLevelCollisions}, a, nil, b)

	// THEN records are ordered deterministically
	if len(m.Collisions) != 3 || len(m.Particles) != 3 {
		t.Fatalf("expected 3 collisions and 3 particles, got %d and %d", len(m.Collisions), len(m.Particles))
	}
	wantCollisions := [][2]uint64{{1, 0}, {2, 0}, {2, 1}}
	for i, w := range wantCollisions {
		c := m.Collisions[i]
		if c.History != w[0] || uint64(c.Sequence) != w[1] {
			t.Errorf("collision %d: got (%d, %d), want %v", i, c.History, c.Sequence, w)
		}
	}
	if m.Particles[0].History != 0 || m.Particles[1].Sequence != 0 || m.Particles[2].Sequence != 1 {
		t.Errorf("particle order not deterministic: %+v", m.Particles)
	}
}

func TestIsValidTraceLevel_ValidLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"none", true},
		{"histories", true},
		{"collisions", true},
		{"", true},
		{"decisions", false},
		{"all", false},
	}
	for _, tc := range tests {
		if got := IsValidTraceLevel(tc.level); got != tc.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tc.level, got, tc.valid)
		}
	}
}
