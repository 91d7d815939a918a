package estimator

import (
	"fmt"

	"github.com/transport-sim/transport-sim/sim"
)

const (
	KindCellTrackLengthFlux = "cell.track_length_flux"
	KindCellCollisionFlux   = "cell.collision_flux"
	KindCellPulseHeight     = "cell.pulse_height"
)

// cellDimensions rejects the cosine dimension, which cells cannot bin on.
func cellDimensions(d PhaseSpaceDimension) error {
	if d == CosineDimension {
		return fmt.Errorf("%w: cell estimators cannot bin on %s", ErrInvalidDiscretization, d)
	}
	return nil
}

func requireUniformResponses(kind string, responses []ResponseFunction) error {
	for _, r := range responses {
		if !r.IsSpatiallyUniform() {
			return fmt.Errorf("%w: %s needs spatially uniform responses, %q is not", ErrInvalidEstimator, kind, r.Name())
		}
	}
	return nil
}

// === Track-length flux ===

// CellTrackLengthFluxEstimator scores the track length traversed in a cell,
// normalized by the cell volume.
type CellTrackLengthFluxEstimator struct {
	*EntityEstimator[sim.CellID]
}

// NewCellTrackLengthFluxEstimator creates the estimator over cells with the
// given volumes (cm^3).
func NewCellTrackLengthFluxEstimator(ids *sim.IDAllocator, cfg Config, cells []sim.CellID, volumes []float64) (*CellTrackLengthFluxEstimator, error) {
	if err := requireUniformResponses(KindCellTrackLengthFlux, cfg.ResponseFunctions); err != nil {
		return nil, err
	}
	b, err := newBase(KindCellTrackLengthFlux, ids, cfg, cellDimensions)
	if err != nil {
		return nil, err
	}
	e, err := newEntityEstimator(b, cells, volumes)
	if err != nil {
		ids.Release(b.id)
		return nil, err
	}
	return &CellTrackLengthFluxEstimator{EntityEstimator: e}, nil
}

// UpdateFromParticleSubtrackEndingInCellEvent scores trackLength (cm).
func (e *CellTrackLengthFluxEstimator) UpdateFromParticleSubtrackEndingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, trackLength float64) {
	if !e.IsParticleTypeAssigned(p.Type) {
		return
	}
	e.addPartialHistoryContribution(worker, cell, p, PointFromParticle(p, 0), trackLength)
}

// === Collision flux ===

// CellCollisionFluxEstimator scores 1/Sigma_t at every collision in a cell,
// normalized by the cell volume.
type CellCollisionFluxEstimator struct {
	*EntityEstimator[sim.CellID]
}

// NewCellCollisionFluxEstimator creates the estimator over cells with the
// given volumes (cm^3).
func NewCellCollisionFluxEstimator(ids *sim.IDAllocator, cfg Config, cells []sim.CellID, volumes []float64) (*CellCollisionFluxEstimator, error) {
	if err := requireUniformResponses(KindCellCollisionFlux, cfg.ResponseFunctions); err != nil {
		return nil, err
	}
	b, err := newBase(KindCellCollisionFlux, ids, cfg, cellDimensions)
	if err != nil {
		return nil, err
	}
	e, err := newEntityEstimator(b, cells, volumes)
	if err != nil {
		ids.Release(b.id)
		return nil, err
	}
	return &CellCollisionFluxEstimator{EntityEstimator: e}, nil
}

// UpdateFromParticleCollidingInCellEvent scores inverseTotalCrossSection
// (cm), the reciprocal macroscopic total cross section at the collision
// energy.
func (e *CellCollisionFluxEstimator) UpdateFromParticleCollidingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, inverseTotalCrossSection float64) {
	if !e.IsParticleTypeAssigned(p.Type) {
		return
	}
	e.addPartialHistoryContribution(worker, cell, p, PointFromParticle(p, 0), inverseTotalCrossSection)
}

// === Pulse height ===

// CellPulseHeightEstimator accumulates the energy deposited in each cell over
// a whole history and scores it once, binned by deposited energy. With the
// weight multiplier each history with a deposit scores 1 in the bin of its
// pulse; with the weight-and-energy multiplier it scores the deposit itself.
type CellPulseHeightEstimator struct {
	*EntityEstimator[sim.CellID]
	deposits []map[sim.CellID]float64
}

// NewCellPulseHeightEstimator creates the estimator over cells. Neutrons
// cannot be tallied and only the energy dimension may be discretized.
func NewCellPulseHeightEstimator(ids *sim.IDAllocator, cfg Config, cells []sim.CellID) (*CellPulseHeightEstimator, error) {
	for _, t := range cfg.ParticleTypes {
		if t == sim.Neutron {
			return nil, fmt.Errorf("%w: %s cannot tally neutrons", ErrInvalidEstimator, KindCellPulseHeight)
		}
	}
	energyOnly := func(d PhaseSpaceDimension) error {
		if d != EnergyDimension {
			return fmt.Errorf("%w: %s can only bin on energy, not %s", ErrInvalidDiscretization, KindCellPulseHeight, d)
		}
		return nil
	}
	b, err := newBase(KindCellPulseHeight, ids, cfg, energyOnly)
	if err != nil {
		return nil, err
	}
	norms := make([]float64, len(cells))
	for i := range norms {
		norms[i] = 1
	}
	e, err := newEntityEstimator(b, cells, norms)
	if err != nil {
		ids.Release(b.id)
		return nil, err
	}
	return &CellPulseHeightEstimator{
		EntityEstimator: e,
		deposits:        []map[sim.CellID]float64{make(map[sim.CellID]float64)},
	}, nil
}

// UpdateFromParticleEnteringCellEvent adds the particle's weighted energy to
// the cell's running deposit.
func (e *CellPulseHeightEstimator) UpdateFromParticleEnteringCellEvent(worker int, p *sim.ParticleState, cell sim.CellID) {
	e.adjustDeposit(worker, p, cell, p.Weight*p.Energy)
}

// UpdateFromParticleLeavingCellEvent removes the particle's weighted energy
// from the cell's running deposit.
func (e *CellPulseHeightEstimator) UpdateFromParticleLeavingCellEvent(worker int, p *sim.ParticleState, cell sim.CellID) {
	e.adjustDeposit(worker, p, cell, -p.Weight*p.Energy)
}

func (e *CellPulseHeightEstimator) adjustDeposit(worker int, p *sim.ParticleState, cell sim.CellID, delta float64) {
	w := e.slot(worker)
	if !e.IsParticleTypeAssigned(p.Type) || !e.IsEntityAssigned(cell) {
		return
	}
	e.deposits[w][cell] += delta
	e.uncommitted[w] = true
}

// EnableThreadSupport sizes the per-worker deposit maps and trackers.
func (e *CellPulseHeightEstimator) EnableThreadSupport(workers int) {
	e.EntityEstimator.EnableThreadSupport(workers)
	e.deposits = make([]map[sim.CellID]float64, workers)
	for w := range e.deposits {
		e.deposits[w] = make(map[sim.CellID]float64)
	}
}

// CommitHistoryContribution bins each cell's deposit and commits the history.
func (e *CellPulseHeightEstimator) CommitHistoryContribution(worker int) {
	w := e.slot(worker)
	for cell, deposit := range e.deposits[w] {
		if deposit <= 0 {
			continue
		}
		bin, ok := e.binIndex(PhasePoint{Energy: deposit})
		if !ok {
			continue
		}
		pulse := &sim.ParticleState{Energy: deposit, Weight: 1}
		e.addToTracker(w, cell, bin, e.contribution.Apply(1, deposit), pulse)
	}
	e.deposits[w] = make(map[sim.CellID]float64)
	e.EntityEstimator.CommitHistoryContribution(worker)
}

// DiscardHistoryContribution drops the worker's deposits and scores.
func (e *CellPulseHeightEstimator) DiscardHistoryContribution(worker int) {
	e.deposits[e.slot(worker)] = make(map[sim.CellID]float64)
	e.EntityEstimator.DiscardHistoryContribution(worker)
}

// ResetData zeroes moments, trackers and running deposits.
func (e *CellPulseHeightEstimator) ResetData() {
	e.EntityEstimator.ResetData()
	e.clearDeposits()
}

// AssignEntities replaces the cells and drops every running deposit.
func (e *CellPulseHeightEstimator) AssignEntities(cells []sim.CellID, norms []float64) error {
	if err := e.EntityEstimator.AssignEntities(cells, norms); err != nil {
		return err
	}
	e.clearDeposits()
	return nil
}

// AssignDiscretization adds an energy discretization and drops every running deposit.
func (e *CellPulseHeightEstimator) AssignDiscretization(d DimensionDiscretization) error {
	if err := e.EntityEstimator.AssignDiscretization(d); err != nil {
		return err
	}
	e.clearDeposits()
	return nil
}

// AssignResponseFunctions replaces the responses and drops every running deposit.
func (e *CellPulseHeightEstimator) AssignResponseFunctions(responses ...ResponseFunction) error {
	if err := e.EntityEstimator.AssignResponseFunctions(responses...); err != nil {
		return err
	}
	e.clearDeposits()
	return nil
}

func (e *CellPulseHeightEstimator) clearDeposits() {
	for w := range e.deposits {
		e.deposits[w] = make(map[sim.CellID]float64)
	}
}
