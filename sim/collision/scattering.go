package collision

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/transport-sim/transport-sim/sim"
)

// ScatteringDistribution changes a particle's energy and direction when a
// reaction fires. temperature is the target temperature (MeV).
type ScatteringDistribution interface {
	Scatter(p *sim.ParticleState, temperature float64, rng sim.RandomStream)
}

// ElasticScattering is two-body elastic scattering off a target at rest,
// isotropic in the centre-of-mass frame.
type ElasticScattering struct {
	AtomicWeightRatio float64 // target mass / neutron mass
}

func (s ElasticScattering) Scatter(p *sim.ParticleState, temperature float64, rng sim.RandomStream) {
	a := s.AtomicWeightRatio
	muCM := 2*rng.Float64() - 1
	denom := a*a + 2*a*muCM + 1

	p.Energy *= denom / ((a + 1) * (a + 1))
	muLab := 1.0
	if denom > 0 {
		muLab = (1 + a*muCM) / math.Sqrt(denom)
	}
	rotate(p, clampCosine(muLab), 2*math.Pi*rng.Float64())
}

// LevelInelasticScattering excites a discrete level of the target (ACE law 3).
// QValue is negative; the outgoing centre-of-mass energy is
// (A/(A+1))^2 * (E - (A+1)/A * |Q|).
type LevelInelasticScattering struct {
	AtomicWeightRatio float64
	QValue            float64
}

func (s LevelInelasticScattering) Scatter(p *sim.ParticleState, temperature float64, rng sim.RandomStream) {
	a := s.AtomicWeightRatio
	eIn := p.Energy
	ratio := a / (a + 1)
	eCM := ratio * ratio * (eIn - (a+1)/a*math.Abs(s.QValue))
	if eCM < 0 {
		eCM = 0
	}
	muCM := 2*rng.Float64() - 1

	eLab := eCM + (eIn+2*muCM*(a+1)*math.Sqrt(eIn*eCM))/((a+1)*(a+1))
	muLab := 1.0
	if eLab > 0 {
		muLab = muCM*math.Sqrt(eCM/eLab) + math.Sqrt(eIn/eLab)/(a+1)
	}
	p.Energy = eLab
	rotate(p, clampCosine(muLab), 2*math.Pi*rng.Float64())
}

// FissionSpectrum emits isotropically with a Maxwellian energy spectrum of
// nuclear temperature Theta (MeV).
type FissionSpectrum struct {
	Theta float64
}

func (s FissionSpectrum) Scatter(p *sim.ParticleState, temperature float64, rng sim.RandomStream) {
	c := math.Cos(math.Pi / 2 * rng.Float64())
	p.Energy = -s.Theta * (math.Log(nonZero(rng.Float64())) + math.Log(nonZero(rng.Float64()))*c*c)
	p.SetDirection(isotropicDirection(rng))
}

// IsotropicScattering redirects isotropically without changing the energy.
type IsotropicScattering struct{}

func (IsotropicScattering) Scatter(p *sim.ParticleState, temperature float64, rng sim.RandomStream) {
	p.SetDirection(isotropicDirection(rng))
}

// NewScatteringDistribution builds a distribution by name. Used by the
// nuclear-data configuration layer.
func NewScatteringDistribution(kind string, awr, qValue, theta float64) (ScatteringDistribution, error) {
	switch kind {
	case "elastic":
		if awr <= 0 {
			return nil, fmt.Errorf("%w: elastic scattering needs a positive atomic weight ratio", ErrInvalidReaction)
		}
		return ElasticScattering{AtomicWeightRatio: awr}, nil
	case "level":
		if awr <= 0 {
			return nil, fmt.Errorf("%w: level scattering needs a positive atomic weight ratio", ErrInvalidReaction)
		}
		return LevelInelasticScattering{AtomicWeightRatio: awr, QValue: qValue}, nil
	case "fission":
		if theta <= 0 {
			return nil, fmt.Errorf("%w: fission spectrum needs a positive temperature", ErrInvalidReaction)
		}
		return FissionSpectrum{Theta: theta}, nil
	case "isotropic":
		return IsotropicScattering{}, nil
	}
	return nil, fmt.Errorf("%w: unknown scattering distribution %q", ErrInvalidReaction, kind)
}

// rotate turns the particle direction through polar cosine mu and azimuth phi.
func rotate(p *sim.ParticleState, mu, phi float64) {
	d := p.Direction
	sinTheta := math.Sqrt(math.Max(0, 1-mu*mu))
	cosPhi, sinPhi := math.Cos(phi), math.Sin(phi)

	w2 := 1 - d.Z*d.Z
	if w2 < 1e-10 {
		sign := 1.0
		if d.Z < 0 {
			sign = -1
		}
		p.SetDirection(r3.Vec{X: sinTheta * cosPhi, Y: sinTheta * sinPhi, Z: sign * mu})
		return
	}
	s := math.Sqrt(w2)
	p.SetDirection(r3.Vec{
		X: mu*d.X + sinTheta*(d.X*d.Z*cosPhi-d.Y*sinPhi)/s,
		Y: mu*d.Y + sinTheta*(d.Y*d.Z*cosPhi+d.X*sinPhi)/s,
		Z: mu*d.Z - sinTheta*s*cosPhi,
	})
}

func isotropicDirection(rng sim.RandomStream) r3.Vec {
	mu := 2*rng.Float64() - 1
	phi := 2 * math.Pi * rng.Float64()
	s := math.Sqrt(1 - mu*mu)
	return r3.Vec{X: s * math.Cos(phi), Y: s * math.Sin(phi), Z: mu}
}

func clampCosine(mu float64) float64 {
	return math.Max(-1, math.Min(1, mu))
}

func nonZero(u float64) float64 {
	if u == 0 {
		return math.SmallestNonzeroFloat64
	}
	return u
}
