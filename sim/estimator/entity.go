package estimator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/transport-sim/transport-sim/sim"
)

// Entity is a geometry handle an estimator keeps statistics for.
type Entity interface {
	~int64
}

// binContributions maps a composite (response, bin) slot to a history score.
type binContributions map[int]float64

// EntityEstimator keeps per-entity and entity-independent moments.
//
// Bin data (two moments) is kept per entity and for the sum over entities
// ("bin of total"). Total data (four moments, one slot per response
// function) is kept per entity and for the estimator as a whole.
type EntityEstimator[E Entity] struct {
	base

	mu            sync.Mutex
	entities      []E
	normConstants map[E]float64
	totalNorm     float64

	entityBinMoments   map[E]*MomentCollection
	totalBinMoments    *MomentCollection
	entityTotalMoments map[E]*MomentCollection
	totalMoments       *MomentCollection
	committed          uint64

	trackers []map[E]binContributions
}

// newEntityEstimator registers entities with their normalization constants.
// A duplicate entity is skipped with a warning; the first occurrence is kept.
func newEntityEstimator[E Entity](b base, entities []E, norms []float64) (*EntityEstimator[E], error) {
	e := &EntityEstimator[E]{
		base:     b,
		trackers: make([]map[E]binContributions, 1),
	}
	e.trackers[0] = make(map[E]binContributions)
	if err := e.setEntities(entities, norms); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *EntityEstimator[E]) setEntities(entities []E, norms []float64) error {
	if len(entities) == 0 {
		return fmt.Errorf("%w: %s %d needs at least one entity", ErrInvalidEstimator, e.kind, e.id)
	}
	if len(norms) != len(entities) {
		return fmt.Errorf("%w: %s %d has %d entities and %d normalization constants",
			ErrInvalidEstimator, e.kind, e.id, len(entities), len(norms))
	}
	normConstants := make(map[E]float64, len(entities))
	ordered := make([]E, 0, len(entities))
	total := 0.0
	for i, ent := range entities {
		if !(norms[i] > 0) {
			return fmt.Errorf("%w: %s %d entity %d has normalization constant %g",
				ErrInvalidEstimator, e.kind, e.id, int64(ent), norms[i])
		}
		if _, dup := normConstants[ent]; dup {
			logrus.Warnf("estimator %d: entity %d assigned more than once, keeping the first", e.id, int64(ent))
			continue
		}
		normConstants[ent] = norms[i]
		ordered = append(ordered, ent)
		total += norms[i]
	}
	e.entities = ordered
	e.normConstants = normConstants
	e.totalNorm = total
	e.resizeStorage()
	return nil
}

// resizeStorage rebuilds every collection for the current entities, bins and
// response functions. All accumulated data is discarded.
func (e *EntityEstimator[E]) resizeStorage() {
	slots := e.NumberOfBins() * e.NumberOfResponseFunctions()
	responses := e.NumberOfResponseFunctions()

	e.entityBinMoments = make(map[E]*MomentCollection, len(e.entities))
	e.entityTotalMoments = make(map[E]*MomentCollection, len(e.entities))
	for _, ent := range e.entities {
		e.entityBinMoments[ent] = NewMomentCollection(slots, 2)
		e.entityTotalMoments[ent] = NewMomentCollection(responses, 4)
	}
	e.totalBinMoments = NewMomentCollection(slots, 2)
	e.totalMoments = NewMomentCollection(responses, 4)
	e.committed = 0
	for w := range e.trackers {
		e.trackers[w] = make(map[E]binContributions)
		e.uncommitted[w] = false
	}
}

// warnIfAccumulated logs when a reconfiguration is about to drop data.
func (e *EntityEstimator[E]) warnIfAccumulated(what string) {
	if e.committed > 0 {
		logrus.Warnf("estimator %d: %s reassigned after %d committed histories; accumulated data reset",
			e.id, what, e.committed)
	}
}

// AssignEntities replaces the entity set. Accumulated data is reset.
func (e *EntityEstimator[E]) AssignEntities(entities []E, norms []float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnIfAccumulated("entities")
	return e.setEntities(entities, norms)
}

// AssignDiscretization adds a dimension discretization. Accumulated data is reset.
func (e *EntityEstimator[E]) AssignDiscretization(d DimensionDiscretization) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.assignDiscretization(d); err != nil {
		return err
	}
	e.warnIfAccumulated("discretization")
	e.resizeStorage()
	return nil
}

// AssignResponseFunctions replaces the response functions. Accumulated data is reset.
func (e *EntityEstimator[E]) AssignResponseFunctions(responses ...ResponseFunction) error {
	if len(responses) == 0 {
		return fmt.Errorf("%w: estimator %d needs at least one response function", ErrInvalidEstimator, e.id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warnIfAccumulated("response functions")
	e.responses = append([]ResponseFunction(nil), responses...)
	e.resizeStorage()
	return nil
}

// Entities returns the assigned entities in assignment order.
func (e *EntityEstimator[E]) Entities() []E {
	return append([]E(nil), e.entities...)
}

func (e *EntityEstimator[E]) IsEntityAssigned(ent E) bool {
	_, ok := e.normConstants[ent]
	return ok
}

// NormConstant returns the entity's normalization constant, or 0 if unassigned.
func (e *EntityEstimator[E]) NormConstant(ent E) float64 { return e.normConstants[ent] }

func (e *EntityEstimator[E]) TotalNormConstant() float64 { return e.totalNorm }

// EnableThreadSupport sizes per-worker trackers for workers goroutines.
func (e *EntityEstimator[E]) EnableThreadSupport(workers int) {
	if workers < 1 {
		panic(fmt.Sprintf("estimator %d: thread support for %d workers", e.id, workers))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.trackers = make([]map[E]binContributions, workers)
	for w := range e.trackers {
		e.trackers[w] = make(map[E]binContributions)
	}
	e.uncommitted = make([]bool, workers)
}

// addPartialHistoryContribution scores contribution for entity into the
// worker's tracker through every response function. Unassigned entities and
// points outside the discretization are ignored.
func (e *EntityEstimator[E]) addPartialHistoryContribution(worker int, ent E, p *sim.ParticleState, point PhasePoint, contribution float64) {
	w := e.slot(worker)
	if !e.IsEntityAssigned(ent) {
		return
	}
	bin, ok := e.binIndex(point)
	if !ok {
		return
	}
	scaled := contribution * e.contribution.Apply(p.Weight, p.Energy)
	e.addToTracker(w, ent, bin, scaled, p)
}

func (e *EntityEstimator[E]) addToTracker(w int, ent E, bin int, scaled float64, p *sim.ParticleState) {
	bins := e.trackers[w][ent]
	if bins == nil {
		bins = make(binContributions)
		e.trackers[w][ent] = bins
	}
	nBins := e.NumberOfBins()
	for r, resp := range e.responses {
		bins[r*nBins+bin] += scaled * resp.Evaluate(p)
	}
	e.uncommitted[w] = true
}

// CommittedHistories returns how many histories have been committed.
func (e *EntityEstimator[E]) CommittedHistories() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed
}

// CommitHistoryContribution folds the worker's tracker into the shared moments.
func (e *EntityEstimator[E]) CommitHistoryContribution(worker int) {
	w := e.slot(worker)
	tracker := e.trackers[w]
	nBins := e.NumberOfBins()
	nResp := e.NumberOfResponseFunctions()

	// Iterate in a fixed order so floating-point sums do not depend on map order.
	ents := make([]E, 0, len(tracker))
	for ent := range tracker {
		ents = append(ents, ent)
	}
	sort.Slice(ents, func(i, j int) bool { return ents[i] < ents[j] })

	totals := make([]float64, nResp)
	binTotals := make([]float64, nBins*nResp)
	touched := make([]bool, nBins*nResp)

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range ents {
		bins := tracker[ent]
		slots := make([]int, 0, len(bins))
		for s := range bins {
			slots = append(slots, s)
		}
		sort.Ints(slots)

		entityTotals := make([]float64, nResp)
		for _, s := range slots {
			v := bins[s]
			r := s / nBins
			entityTotals[r] += v
			totals[r] += v
			binTotals[s] += v
			touched[s] = true
			e.entityBinMoments[ent].AddHistoryScore(s, v)
		}
		for r, v := range entityTotals {
			e.entityTotalMoments[ent].AddHistoryScore(r, v)
		}
	}
	for r, v := range totals {
		e.totalMoments.AddHistoryScore(r, v)
	}
	for s, v := range binTotals {
		if touched[s] {
			e.totalBinMoments.AddHistoryScore(s, v)
		}
	}
	e.committed++

	e.trackers[w] = make(map[E]binContributions)
	e.uncommitted[w] = false
}

// DiscardHistoryContribution drops the worker's uncommitted scores.
func (e *EntityEstimator[E]) DiscardHistoryContribution(worker int) {
	w := e.slot(worker)
	e.trackers[w] = make(map[E]binContributions)
	e.uncommitted[w] = false
}

// ResetData zeroes all moments and trackers.
func (e *EntityEstimator[E]) ResetData() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

func (e *EntityEstimator[E]) resetLocked() {
	for _, ent := range e.entities {
		e.entityBinMoments[ent].Reset()
		e.entityTotalMoments[ent].Reset()
	}
	e.totalBinMoments.Reset()
	e.totalMoments.Reset()
	e.committed = 0
	for w := range e.trackers {
		e.trackers[w] = make(map[E]binContributions)
		e.uncommitted[w] = false
	}
}

// ReduceData sums every process's moments onto root. Each process must have
// the same entities, bins and response functions.
func (e *EntityEstimator[E]) ReduceData(ctx context.Context, comm Communicator, root int) error {
	if root < 0 || root >= comm.Size() {
		return fmt.Errorf("%w: estimator %d: root %d outside communicator of size %d", ErrReduction, e.id, root, comm.Size())
	}
	if comm.Size() == 1 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, ent := range e.entities {
		if err := reduceInto(ctx, comm, root, e.entityTotalMoments[ent], e.entityBinMoments[ent]); err != nil {
			return fmt.Errorf("%w: estimator %d entity %d: %v", ErrReduction, e.id, int64(ent), err)
		}
	}
	if err := reduceInto(ctx, comm, root, e.totalMoments, e.totalBinMoments); err != nil {
		return fmt.Errorf("%w: estimator %d total data: %v", ErrReduction, e.id, err)
	}
	count, err := comm.ReduceSum(ctx, root, []float64{float64(e.committed)})
	if err != nil {
		return fmt.Errorf("%w: estimator %d history count: %v", ErrReduction, e.id, err)
	}
	if comm.Rank() == root {
		e.committed = uint64(count[0])
	} else {
		e.resetLocked()
	}
	return nil
}

// reduceInto reduces the collections as one buffer and loads the result on root.
func reduceInto(ctx context.Context, comm Communicator, root int, collections ...*MomentCollection) error {
	size := 0
	for _, c := range collections {
		size += c.flatLen()
	}
	buf := make([]float64, 0, size)
	for _, c := range collections {
		buf = c.flatten(buf)
	}
	out, err := comm.ReduceSum(ctx, root, buf)
	if err != nil {
		return err
	}
	if comm.Rank() != root {
		return nil
	}
	for _, c := range collections {
		out = c.load(out)
	}
	return nil
}

// === Processed and raw data ===

// EntityBinData returns the processed bin data of ent, indexed by
// response*bins+bin. An unassigned entity reads as all zeros.
func (e *EntityEstimator[E]) EntityBinData(ent E, stats RunStatistics) []BinStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.entityBinMoments[ent]
	if !ok {
		return make([]BinStatistics, e.NumberOfBins()*e.NumberOfResponseFunctions())
	}
	return e.processBins(m, e.normConstants[ent], stats)
}

// TotalBinData returns the processed bin data summed over entities.
func (e *EntityEstimator[E]) TotalBinData(stats RunStatistics) []BinStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processBins(e.totalBinMoments, e.totalNorm, stats)
}

// EntityTotalData returns the processed per-response totals of ent, zero
// for an unassigned entity.
func (e *EntityEstimator[E]) EntityTotalData(ent E, stats RunStatistics) []TotalStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.entityTotalMoments[ent]
	if !ok {
		return make([]TotalStatistics, e.NumberOfResponseFunctions())
	}
	return e.processTotals(m, e.normConstants[ent], stats)
}

// TotalData returns the processed per-response totals of the estimator.
func (e *EntityEstimator[E]) TotalData(stats RunStatistics) []TotalStatistics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processTotals(e.totalMoments, e.totalNorm, stats)
}

// EntityBinMoments returns a copy of the raw bin moments of ent, or nil.
func (e *EntityEstimator[E]) EntityBinMoments(ent E) *MomentCollection {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.entityBinMoments[ent]; ok {
		return m.Clone()
	}
	return nil
}

// EntityTotalMoments returns a copy of the raw total moments of ent, or nil.
func (e *EntityEstimator[E]) EntityTotalMoments(ent E) *MomentCollection {
	e.mu.Lock()
	defer e.mu.Unlock()
	if m, ok := e.entityTotalMoments[ent]; ok {
		return m.Clone()
	}
	return nil
}

// TotalBinMoments returns a copy of the raw bin-of-total moments.
func (e *EntityEstimator[E]) TotalBinMoments() *MomentCollection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalBinMoments.Clone()
}

// TotalMoments returns a copy of the raw estimator total moments.
func (e *EntityEstimator[E]) TotalMoments() *MomentCollection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totalMoments.Clone()
}

func (e *EntityEstimator[E]) processBins(m *MomentCollection, norm float64, stats RunStatistics) []BinStatistics {
	out := make([]BinStatistics, m.Size())
	for i := range out {
		out[i] = processTwo(m, i, e.multiplier, norm, stats)
	}
	return out
}

func (e *EntityEstimator[E]) processTotals(m *MomentCollection, norm float64, stats RunStatistics) []TotalStatistics {
	out := make([]TotalStatistics, m.Size())
	for i := range out {
		out[i] = processFour(m, i, e.multiplier, norm, stats)
	}
	return out
}
