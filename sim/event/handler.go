// Package event routes particle events from the transport loop to the
// estimators observing them.
//
// Each event type has one dispatcher holding, per entity, the observers to
// notify. Registration happens before sampling starts; dispatch is read-only
// and safe from any number of workers.
package event

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/estimator"
)

// ParticleEnteringCellObserver is notified when a particle enters a cell.
type ParticleEnteringCellObserver interface {
	UpdateFromParticleEnteringCellEvent(worker int, p *sim.ParticleState, cell sim.CellID)
}

// ParticleLeavingCellObserver is notified when a particle leaves a cell.
type ParticleLeavingCellObserver interface {
	UpdateFromParticleLeavingCellEvent(worker int, p *sim.ParticleState, cell sim.CellID)
}

// ParticleSubtrackEndingInCellObserver is notified with the length of each
// straight track segment inside a cell.
type ParticleSubtrackEndingInCellObserver interface {
	UpdateFromParticleSubtrackEndingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, trackLength float64)
}

// ParticleCollidingInCellObserver is notified before a collision is sampled.
type ParticleCollidingInCellObserver interface {
	UpdateFromParticleCollidingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, inverseTotalCrossSection float64)
}

// ParticleCrossingSurfaceObserver is notified when a particle crosses a surface.
type ParticleCrossingSurfaceObserver interface {
	UpdateFromParticleCrossingSurfaceEvent(worker int, p *sim.ParticleState, surface sim.SurfaceID, angleCosine float64)
}

type cellEntities interface {
	Entities() []sim.CellID
}

type surfaceEntities interface {
	Entities() []sim.SurfaceID
}

// dispatcher maps an entity to the estimators observing it, in registration order.
type dispatcher[E ~int64, O any] struct {
	local map[E][]observed[O]
}

type observed[O any] struct {
	est      estimator.Estimator
	observer O
}

func newDispatcher[E ~int64, O any]() dispatcher[E, O] {
	return dispatcher[E, O]{local: make(map[E][]observed[O])}
}

func (d *dispatcher[E, O]) attach(ents []E, est estimator.Estimator, o O) {
	for _, ent := range ents {
		d.local[ent] = append(d.local[ent], observed[O]{est: est, observer: o})
	}
}

// each calls fn for every observer of ent that tallies the particle's type.
func (d *dispatcher[E, O]) each(ent E, t sim.ParticleType, fn func(O)) {
	for _, ob := range d.local[ent] {
		if ob.est.IsParticleTypeAssigned(t) {
			fn(ob.observer)
		}
	}
}

func (d *dispatcher[E, O]) count(ent E) int { return len(d.local[ent]) }

// Handler owns the estimators of a simulation and dispatches events to them.
type Handler struct {
	estimators map[uint64]estimator.Estimator
	order      []uint64

	entering  dispatcher[sim.CellID, ParticleEnteringCellObserver]
	leaving   dispatcher[sim.CellID, ParticleLeavingCellObserver]
	subtrack  dispatcher[sim.CellID, ParticleSubtrackEndingInCellObserver]
	colliding dispatcher[sim.CellID, ParticleCollidingInCellObserver]
	crossing  dispatcher[sim.SurfaceID, ParticleCrossingSurfaceObserver]

	histories atomic.Uint64
}

// NewHandler creates an empty handler.
func NewHandler() *Handler {
	return &Handler{
		estimators: make(map[uint64]estimator.Estimator),
		entering:   newDispatcher[sim.CellID, ParticleEnteringCellObserver](),
		leaving:    newDispatcher[sim.CellID, ParticleLeavingCellObserver](),
		subtrack:   newDispatcher[sim.CellID, ParticleSubtrackEndingInCellObserver](),
		colliding:  newDispatcher[sim.CellID, ParticleCollidingInCellObserver](),
		crossing:   newDispatcher[sim.SurfaceID, ParticleCrossingSurfaceObserver](),
	}
}

// AddEstimator registers est with every dispatcher whose observer interface
// it implements, for each of its entities.
func (h *Handler) AddEstimator(est estimator.Estimator) error {
	if _, dup := h.estimators[est.ID()]; dup {
		return fmt.Errorf("estimator id %d is already registered", est.ID())
	}

	registered := false
	if c, ok := est.(cellEntities); ok {
		cells := c.Entities()
		if o, ok := est.(ParticleEnteringCellObserver); ok {
			h.entering.attach(cells, est, o)
			registered = true
		}
		if o, ok := est.(ParticleLeavingCellObserver); ok {
			h.leaving.attach(cells, est, o)
			registered = true
		}
		if o, ok := est.(ParticleSubtrackEndingInCellObserver); ok {
			h.subtrack.attach(cells, est, o)
			registered = true
		}
		if o, ok := est.(ParticleCollidingInCellObserver); ok {
			h.colliding.attach(cells, est, o)
			registered = true
		}
	}
	if s, ok := est.(surfaceEntities); ok {
		if o, ok := est.(ParticleCrossingSurfaceObserver); ok {
			h.crossing.attach(s.Entities(), est, o)
			registered = true
		}
	}
	if !registered {
		return fmt.Errorf("estimator %d (%s) observes no event type", est.ID(), est.Kind())
	}

	h.estimators[est.ID()] = est
	h.order = append(h.order, est.ID())
	sort.Slice(h.order, func(i, j int) bool { return h.order[i] < h.order[j] })
	logrus.Debugf("registered estimator %d (%s)", est.ID(), est.Kind())
	return nil
}

func (h *Handler) NumberOfObservers() int { return len(h.estimators) }

func (h *Handler) DoesObserverExist(id uint64) bool {
	_, ok := h.estimators[id]
	return ok
}

// Estimator returns the registered estimator with id, or nil.
func (h *Handler) Estimator(id uint64) estimator.Estimator { return h.estimators[id] }

// Estimators returns the registered estimators by ascending id.
func (h *Handler) Estimators() []estimator.Estimator {
	out := make([]estimator.Estimator, len(h.order))
	for i, id := range h.order {
		out[i] = h.estimators[id]
	}
	return out
}

func (h *Handler) EnteringCellObservers(cell sim.CellID) int   { return h.entering.count(cell) }
func (h *Handler) LeavingCellObservers(cell sim.CellID) int    { return h.leaving.count(cell) }
func (h *Handler) SubtrackObservers(cell sim.CellID) int       { return h.subtrack.count(cell) }
func (h *Handler) CollidingObservers(cell sim.CellID) int      { return h.colliding.count(cell) }
func (h *Handler) CrossingObservers(surface sim.SurfaceID) int { return h.crossing.count(surface) }

// === Dispatch ===

func (h *Handler) UpdateObserversFromParticleEnteringCellEvent(worker int, p *sim.ParticleState, cell sim.CellID) {
	h.entering.each(cell, p.Type, func(o ParticleEnteringCellObserver) {
		o.UpdateFromParticleEnteringCellEvent(worker, p, cell)
	})
}

func (h *Handler) UpdateObserversFromParticleLeavingCellEvent(worker int, p *sim.ParticleState, cell sim.CellID) {
	h.leaving.each(cell, p.Type, func(o ParticleLeavingCellObserver) {
		o.UpdateFromParticleLeavingCellEvent(worker, p, cell)
	})
}

func (h *Handler) UpdateObserversFromParticleSubtrackEndingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, trackLength float64) {
	h.subtrack.each(cell, p.Type, func(o ParticleSubtrackEndingInCellObserver) {
		o.UpdateFromParticleSubtrackEndingInCellEvent(worker, p, cell, trackLength)
	})
}

func (h *Handler) UpdateObserversFromParticleCollidingInCellEvent(worker int, p *sim.ParticleState, cell sim.CellID, inverseTotalCrossSection float64) {
	h.colliding.each(cell, p.Type, func(o ParticleCollidingInCellObserver) {
		o.UpdateFromParticleCollidingInCellEvent(worker, p, cell, inverseTotalCrossSection)
	})
}

func (h *Handler) UpdateObserversFromParticleCrossingSurfaceEvent(worker int, p *sim.ParticleState, surface sim.SurfaceID, angleCosine float64) {
	h.crossing.each(surface, p.Type, func(o ParticleCrossingSurfaceObserver) {
		o.UpdateFromParticleCrossingSurfaceEvent(worker, p, surface, angleCosine)
	})
}

// === History bookkeeping ===

// EnableThreadSupport sizes every estimator for workers goroutines.
func (h *Handler) EnableThreadSupport(workers int) {
	for _, id := range h.order {
		h.estimators[id].EnableThreadSupport(workers)
	}
}

// CommitHistoryContributions ends the worker's current history: estimators
// that were scored commit, and the history is counted.
func (h *Handler) CommitHistoryContributions(worker int) {
	for _, id := range h.order {
		est := h.estimators[id]
		if est.HasUncommittedHistoryContribution(worker) {
			est.CommitHistoryContribution(worker)
		}
	}
	h.histories.Add(1)
}

// DiscardHistoryContributions abandons the worker's current history.
func (h *Handler) DiscardHistoryContributions(worker int) {
	for _, id := range h.order {
		h.estimators[id].DiscardHistoryContribution(worker)
	}
}

// NumberOfCommittedHistories returns how many histories have ended.
func (h *Handler) NumberOfCommittedHistories() uint64 { return h.histories.Load() }

// ResetData zeroes every estimator and the history count.
func (h *Handler) ResetData() {
	for _, id := range h.order {
		h.estimators[id].ResetData()
	}
	h.histories.Store(0)
}

// ReduceData reduces every estimator onto root, by ascending id, then the
// history count. Every member of comm must register the same estimators.
func (h *Handler) ReduceData(ctx context.Context, comm estimator.Communicator, root int) error {
	if comm.Size() == 1 {
		return nil
	}
	for _, id := range h.order {
		if err := h.estimators[id].ReduceData(ctx, comm, root); err != nil {
			return err
		}
	}
	count, err := comm.ReduceSum(ctx, root, []float64{float64(h.histories.Load())})
	if err != nil {
		return fmt.Errorf("%w: history count: %v", estimator.ErrReduction, err)
	}
	if comm.Rank() == root {
		h.histories.Store(uint64(count[0]))
	} else {
		h.histories.Store(0)
	}
	return nil
}

// Snapshot processes every estimator, by ascending id.
func (h *Handler) Snapshot(stats estimator.RunStatistics) []estimator.EstimatorSnapshot {
	out := make([]estimator.EstimatorSnapshot, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, h.estimators[id].Snapshot(stats))
	}
	return out
}
