// Package trace provides history-trace recording for transport analysis.
// This package has no dependencies on sim/ or its sub-packages; it stores pure data types.
package trace

// Fate is how a particle's track ended.
type Fate string

const (
	FateEscaped   Fate = "escaped"
	FateAbsorbed  Fate = "absorbed"
	FateRoulette  Fate = "roulette"
	FateCutoff    Fate = "energy_cutoff"
	FateLost      Fate = "lost"
)

// ParticleRecord captures one particle track, primary or secondary.
type ParticleRecord struct {
	History     uint64
	Sequence    int // order of the particle within its history
	Generation  int
	Collisions  int
	Crossings   int
	Secondaries int // particles this track pushed to the bank
	Fate        Fate
	FinalEnergy float64 // MeV
	FinalWeight float64
}

// CollisionRecord captures a single collision.
type CollisionRecord struct {
	History   uint64
	Sequence  int // order of the collision within its history
	Cell      int64
	EnergyIn  float64 // MeV
	EnergyOut float64 // MeV; 0 when the particle was terminated
	WeightIn  float64
	WeightOut float64
	Emitted   int // secondaries banked by the collision
}
