package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical configuration
// draw identical random numbers for every history, regardless of the number
// of worker goroutines. Tallies then agree up to the order in which worker
// commits are summed.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// RandomStream is the single primitive the collision kernel draws from.
// Float64 returns a value in [0,1).
type RandomStream interface {
	Float64() float64
}

// SubsystemHistory returns the stream name for history n.
func SubsystemHistory(n uint64) string {
	return fmt.Sprintf("history_%d", n)
}

// === PartitionedRNG ===

// PartitionedRNG derives independent, deterministic random streams.
//
// Derivation formula: masterSeed XOR fnv1a64(streamName).
//
// Thread-safety: derivation is a pure function of the key, so SeedFor may be
// called concurrently. The *rand.Rand values handed out are not shared.
type PartitionedRNG struct {
	key SimulationKey
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{key: key}
}

// SeedFor returns the derived seed for the named stream.
func (p *PartitionedRNG) SeedFor(name string) int64 {
	return int64(p.key) ^ fnv1a64(name)
}

// SeedForHistory returns the derived seed for history n.
func (p *PartitionedRNG) SeedForHistory(n uint64) int64 {
	return p.SeedFor(SubsystemHistory(n))
}

// ForHistory returns a fresh stream for history n. Prefer
// WorkerContext.BeginHistory on hot paths, which reseeds in place.
func (p *PartitionedRNG) ForHistory(n uint64) *rand.Rand {
	return rand.New(rand.NewSource(p.SeedForHistory(n)))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
