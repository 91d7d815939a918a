// Package sim provides the core types of the particle transport simulator.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - particle.go: ParticleState, the phase-space point carried through a history
//   - reaction_type.go: the neutron reaction catalogue keyed by ENDF MT number
//   - worker.go: the per-goroutine context (random stream and secondary bank)
//
// # Architecture
//
// The sim package defines the shared types and the Navigator geometry
// interface; the machinery lives in sub-packages:
//   - sim/interp/: grid search and interpolation
//   - sim/collision/: nuclear reactions, nuclides, materials and collision sampling
//   - sim/estimator/: tallies, phase-space binning, moments and statistics
//   - sim/event/: dispatch of track events to the tallies that observe them
//   - sim/geometry/: a slab Navigator
//   - sim/transport/: the history loop and its worker pool
//   - sim/trace/: per-particle and per-collision trace records
//
// # Concurrency
//
// Histories run on a fixed pool of workers. A ParticleState, a ParticleBank
// and a WorkerContext belong to one worker. Nuclear data, materials and
// geometry are immutable after construction and shared. Estimators keep
// per-worker scratch space and lock only when a history commits.
package sim
