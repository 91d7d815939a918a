package sim

import "math/rand"

// WorkerContext is the per-goroutine scratch state threaded explicitly
// through sampling and scoring calls. A WorkerContext must only ever be used
// by the goroutine that owns it.
type WorkerContext struct {
	ID      int           // worker slot, 0..threads-1
	Random  *rand.Rand    // stream for the current history
	Bank    *ParticleBank // pending secondaries of the current history
	History uint64        // index of the current history

	source rand.Source
	rng    *PartitionedRNG
}

// NewWorkerContext creates the context for worker slot id.
func NewWorkerContext(id int, rng *PartitionedRNG) *WorkerContext {
	src := rand.NewSource(rng.SeedForHistory(0))
	return &WorkerContext{
		ID:     id,
		Random: rand.New(src),
		Bank:   NewParticleBank(),
		source: src,
		rng:    rng,
	}
}

// BeginHistory reseeds the worker's stream for history n and empties the bank.
// The stream depends only on the simulation key and n, so results do not
// depend on which worker runs the history.
func (w *WorkerContext) BeginHistory(n uint64) {
	w.History = n
	w.source.Seed(w.rng.SeedForHistory(n))
	w.Random = rand.New(w.source)
	w.Bank.Clear()
}
