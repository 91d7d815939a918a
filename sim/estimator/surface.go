package estimator

import (
	"fmt"
	"math"

	"github.com/transport-sim/transport-sim/sim"
)

const (
	KindSurfaceFlux    = "surface.flux"
	KindSurfaceCurrent = "surface.current"
)

// DefaultCosineCutoff is the surface flux cosine below which crossings are
// scored as 2/cutoff.
const DefaultCosineCutoff = 0.001

// === Surface flux ===

// SurfaceFluxEstimator scores 1/|mu| per crossing, normalized by the surface
// area. Crossings with |mu| below the cutoff score 2/cutoff.
type SurfaceFluxEstimator struct {
	*EntityEstimator[sim.SurfaceID]
	cosineCutoff float64
}

// NewSurfaceFluxEstimator creates the estimator over surfaces with the given
// areas (cm^2). A zero cosineCutoff selects DefaultCosineCutoff.
func NewSurfaceFluxEstimator(ids *sim.IDAllocator, cfg Config, surfaces []sim.SurfaceID, areas []float64, cosineCutoff float64) (*SurfaceFluxEstimator, error) {
	if cosineCutoff == 0 {
		cosineCutoff = DefaultCosineCutoff
	}
	if !(cosineCutoff > 0 && cosineCutoff <= 1) {
		return nil, fmt.Errorf("%w: %s cosine cutoff must lie in (0, 1], got %g", ErrInvalidEstimator, KindSurfaceFlux, cosineCutoff)
	}
	if err := requireUniformResponses(KindSurfaceFlux, cfg.ResponseFunctions); err != nil {
		return nil, err
	}
	b, err := newBase(KindSurfaceFlux, ids, cfg, nil)
	if err != nil {
		return nil, err
	}
	e, err := newEntityEstimator(b, surfaces, areas)
	if err != nil {
		ids.Release(b.id)
		return nil, err
	}
	return &SurfaceFluxEstimator{EntityEstimator: e, cosineCutoff: cosineCutoff}, nil
}

func (e *SurfaceFluxEstimator) CosineCutoff() float64 { return e.cosineCutoff }

// Contribution returns the per-crossing score for an angle cosine.
func (e *SurfaceFluxEstimator) Contribution(angleCosine float64) float64 {
	mu := math.Abs(angleCosine)
	if mu < e.cosineCutoff {
		return 2 / e.cosineCutoff
	}
	return 1 / mu
}

// UpdateFromParticleCrossingSurfaceEvent scores a crossing. angleCosine is the
// cosine between the direction and the surface normal.
func (e *SurfaceFluxEstimator) UpdateFromParticleCrossingSurfaceEvent(worker int, p *sim.ParticleState, surface sim.SurfaceID, angleCosine float64) {
	if !e.IsParticleTypeAssigned(p.Type) {
		return
	}
	e.addPartialHistoryContribution(worker, surface, p, PointFromParticle(p, angleCosine), e.Contribution(angleCosine))
}

// === Surface current ===

// SurfaceCurrentEstimator counts crossings weighted by the multiplier policy.
type SurfaceCurrentEstimator struct {
	*EntityEstimator[sim.SurfaceID]
}

// NewSurfaceCurrentEstimator creates the estimator over surfaces. Current is
// not normalized by area.
func NewSurfaceCurrentEstimator(ids *sim.IDAllocator, cfg Config, surfaces []sim.SurfaceID) (*SurfaceCurrentEstimator, error) {
	b, err := newBase(KindSurfaceCurrent, ids, cfg, nil)
	if err != nil {
		return nil, err
	}
	norms := make([]float64, len(surfaces))
	for i := range norms {
		norms[i] = 1
	}
	e, err := newEntityEstimator(b, surfaces, norms)
	if err != nil {
		ids.Release(b.id)
		return nil, err
	}
	return &SurfaceCurrentEstimator{EntityEstimator: e}, nil
}

// UpdateFromParticleCrossingSurfaceEvent scores a crossing.
func (e *SurfaceCurrentEstimator) UpdateFromParticleCrossingSurfaceEvent(worker int, p *sim.ParticleState, surface sim.SurfaceID, angleCosine float64) {
	if !e.IsParticleTypeAssigned(p.Type) {
		return
	}
	e.addPartialHistoryContribution(worker, surface, p, PointFromParticle(p, angleCosine), 1)
}
