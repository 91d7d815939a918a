// Defines the ParticleState struct that models one particle in flight.
// Tracks phase-space coordinates, statistical weight and history bookkeeping.

package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ParticleType identifies the species being transported.
type ParticleType int

const (
	Neutron ParticleType = iota
	Photon
	Electron
	Positron
)

var particleTypeNames = map[ParticleType]string{
	Neutron:  "neutron",
	Photon:   "photon",
	Electron: "electron",
	Positron: "positron",
}

func (t ParticleType) String() string {
	if name, ok := particleTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("particle_type_%d", int(t))
}

// ParseParticleType maps a configuration name to a ParticleType.
func ParseParticleType(name string) (ParticleType, error) {
	for t, n := range particleTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown particle type %q", name)
}

const (
	neutronRestMassEnergy = 939.56542052 // MeV
	speedOfLight          = 2.99792458e10 // cm/s
)

// CellID is an opaque handle to a geometry cell.
type CellID int64

// SurfaceID is an opaque handle to a geometry surface.
type SurfaceID int64

// ParticleState models a single particle's phase-space point and bookkeeping.
// States are owned by exactly one worker at a time; they are never shared
// across goroutines while in flight.
type ParticleState struct {
	Type      ParticleType
	Position  r3.Vec  // cm
	Direction r3.Vec  // unit vector
	Energy    float64 // MeV
	Time      float64 // s
	Weight    float64 // statistical weight

	CollisionNumber  int    // collisions suffered since emission
	GenerationNumber int    // 0 for source particles
	Cell             CellID // cell currently containing the particle
	HistoryNumber    uint64 // index of the history this particle belongs to
	SourceID         int    // id of the source that emitted the history

	gone bool // absorbed, escaped or otherwise terminated
	lost bool // navigation failure
}

// NewParticleState creates a unit-weight particle of the given type.
func NewParticleState(t ParticleType, history uint64) *ParticleState {
	return &ParticleState{
		Type:          t,
		Weight:        1.0,
		Direction:     r3.Vec{Z: 1},
		HistoryNumber: history,
	}
}

// Clone returns an independent copy of the state. The copy is not gone.
func (p *ParticleState) Clone() *ParticleState {
	c := *p
	c.gone = false
	c.lost = false
	return &c
}

// SetGone terminates the particle.
func (p *ParticleState) SetGone() { p.gone = true }

// IsGone reports whether the particle has been terminated.
func (p *ParticleState) IsGone() bool { return p.gone }

// SetLost terminates the particle and flags it as lost by the navigator.
func (p *ParticleState) SetLost() {
	p.gone = true
	p.lost = true
}

// IsLost reports whether the particle was lost by the navigator.
func (p *ParticleState) IsLost() bool { return p.lost }

func (p *ParticleState) IncrementCollisionNumber() { p.CollisionNumber++ }

func (p *ParticleState) IncrementGenerationNumber() { p.GenerationNumber++ }

// MultiplyWeight scales the statistical weight.
// Panics if the factor is negative; weights are never negative.
func (p *ParticleState) MultiplyWeight(factor float64) {
	if factor < 0 {
		panic(fmt.Sprintf("negative weight factor %g for history %d", factor, p.HistoryNumber))
	}
	p.Weight *= factor
}

// Speed returns the particle speed in cm/s.
func (p *ParticleState) Speed() float64 {
	if p.Type != Neutron {
		return speedOfLight
	}
	return speedOfLight * math.Sqrt(2*p.Energy/neutronRestMassEnergy)
}

// Advance moves the particle along its direction by distance (cm) and
// updates the time accordingly.
func (p *ParticleState) Advance(distance float64) {
	p.Position = r3.Add(p.Position, r3.Scale(distance, p.Direction))
	if v := p.Speed(); v > 0 {
		p.Time += distance / v
	}
}

// SetDirection normalizes and stores the direction.
func (p *ParticleState) SetDirection(d r3.Vec) {
	p.Direction = r3.Unit(d)
}

func (p ParticleState) String() string {
	return fmt.Sprintf("ParticleState: (type: %s, history: %d, E: %g MeV, w: %g, cell: %d, collisions: %d, generation: %d)",
		p.Type, p.HistoryNumber, p.Energy, p.Weight, p.Cell, p.CollisionNumber, p.GenerationNumber)
}
