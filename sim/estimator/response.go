package estimator

import (
	"fmt"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/interp"
)

// ResponseFunction weights a contribution by a property of the particle.
type ResponseFunction interface {
	Name() string
	Evaluate(p *sim.ParticleState) float64
	// IsSpatiallyUniform reports whether the response is independent of
	// position, which flux estimators require.
	IsSpatiallyUniform() bool
}

// DefaultResponse is the unit response.
type DefaultResponse struct{}

func (DefaultResponse) Name() string                        { return "default" }
func (DefaultResponse) Evaluate(*sim.ParticleState) float64 { return 1 }
func (DefaultResponse) IsSpatiallyUniform() bool            { return true }

// EnergyResponse is a response tabulated in energy (zero outside its table).
type EnergyResponse struct {
	name  string
	table *interp.Table
}

// NewEnergyResponse wraps a tabulated energy response.
func NewEnergyResponse(name string, table *interp.Table) (*EnergyResponse, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: energy response needs a name", ErrInvalidEstimator)
	}
	if table == nil {
		return nil, fmt.Errorf("%w: energy response %q has no table", ErrInvalidEstimator, name)
	}
	return &EnergyResponse{name: name, table: table}, nil
}

func (r *EnergyResponse) Name() string { return r.name }

func (r *EnergyResponse) Evaluate(p *sim.ParticleState) float64 { return r.table.Eval(p.Energy) }

func (r *EnergyResponse) IsSpatiallyUniform() bool { return true }

// ContributionMultiplier converts a particle's weight and energy into the
// factor applied to every contribution.
type ContributionMultiplier interface {
	Name() string
	Apply(weight, energy float64) float64
}

// WeightMultiplier scores the particle weight.
type WeightMultiplier struct{}

func (WeightMultiplier) Name() string                         { return "weight" }
func (WeightMultiplier) Apply(weight, energy float64) float64 { return weight }

// WeightAndEnergyMultiplier scores weight times energy.
type WeightAndEnergyMultiplier struct{}

func (WeightAndEnergyMultiplier) Name() string                         { return "weight_and_energy" }
func (WeightAndEnergyMultiplier) Apply(weight, energy float64) float64 { return weight * energy }

// ParseContributionMultiplier maps a configuration name to a policy.
func ParseContributionMultiplier(name string) (ContributionMultiplier, error) {
	switch name {
	case "", "weight":
		return WeightMultiplier{}, nil
	case "weight_and_energy":
		return WeightAndEnergyMultiplier{}, nil
	}
	return nil, fmt.Errorf("%w: unknown contribution multiplier %q", ErrInvalidEstimator, name)
}
