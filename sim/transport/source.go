package transport

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
)

// Source emits the first particle of every history.
type Source interface {
	Sample(history uint64, rng sim.RandomStream) *sim.ParticleState
	// ParticleType is the species of every emitted particle.
	ParticleType() sim.ParticleType
}

// PointSource emits monoenergetic particles from a point. A zero Direction
// means isotropic emission.
type PointSource struct {
	ID        int
	Type      sim.ParticleType
	Position  r3.Vec
	Energy    float64 // MeV
	Direction r3.Vec
}

// NewPointSource checks the emission energy and normalizes the direction.
func NewPointSource(id int, t sim.ParticleType, position r3.Vec, energy float64, direction r3.Vec) (*PointSource, error) {
	if !(energy > 0) || math.IsInf(energy, 0) {
		return nil, fmt.Errorf("source %d energy must be positive and finite, got %g", id, energy)
	}
	if direction != (r3.Vec{}) {
		direction = r3.Unit(direction)
	}
	return &PointSource{ID: id, Type: t, Position: position, Energy: energy, Direction: direction}, nil
}

func (s *PointSource) ParticleType() sim.ParticleType { return s.Type }

// Sample emits the source particle of history.
func (s *PointSource) Sample(history uint64, rng sim.RandomStream) *sim.ParticleState {
	p := sim.NewParticleState(s.Type, history)
	p.Position = s.Position
	p.Energy = s.Energy
	p.SourceID = s.ID
	if s.Direction == (r3.Vec{}) {
		p.Direction = isotropic(rng)
	} else {
		p.Direction = s.Direction
	}
	return p
}

func isotropic(rng sim.RandomStream) r3.Vec {
	mu := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	s := math.Sqrt(math.Max(0, 1-mu*mu))
	return r3.Vec{X: mu, Y: s * math.Cos(phi), Z: s * math.Sin(phi)}
}
