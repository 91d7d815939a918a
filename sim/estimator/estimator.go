package estimator

import (
	"context"
	"fmt"
	"sort"

	"github.com/transport-sim/transport-sim/sim"
)

// Estimator is the contract the event handler drives. Concrete tallies add
// observer methods for the events they score.
type Estimator interface {
	ID() uint64
	Kind() string
	IsParticleTypeAssigned(t sim.ParticleType) bool

	// EnableThreadSupport sizes per-worker state. Call before sampling starts,
	// from the coordinating goroutine only.
	EnableThreadSupport(workers int)
	HasUncommittedHistoryContribution(worker int) bool
	// CommitHistoryContribution folds the worker's current history into the
	// shared moments. Safe to call concurrently for distinct workers.
	CommitHistoryContribution(worker int)
	// DiscardHistoryContribution drops the worker's uncommitted history.
	DiscardHistoryContribution(worker int)

	ResetData()
	// ReduceData sums data from every process onto root. Collective: every
	// member of comm must call it. Non-root processes are reset afterwards.
	ReduceData(ctx context.Context, comm Communicator, root int) error

	Snapshot(stats RunStatistics) EstimatorSnapshot
}

// Config holds the settings shared by all estimators.
type Config struct {
	// ID is reserved from the allocator when non-zero, otherwise the next free
	// id is taken.
	ID                uint64
	Multiplier        float64
	ParticleTypes     []sim.ParticleType
	Contribution      ContributionMultiplier
	Discretizations   []DimensionDiscretization
	ResponseFunctions []ResponseFunction
}

// base holds identity and binning shared by every estimator.
type base struct {
	id             uint64
	kind           string
	multiplier     float64
	particleTypes  map[sim.ParticleType]bool
	contribution   ContributionMultiplier
	discretization *PhaseSpaceDiscretization
	responses      []ResponseFunction

	// checkDimension rejects dimensions the concrete tally cannot bin on.
	checkDimension func(PhaseSpaceDimension) error
	uncommitted    []bool
}

func newBase(kind string, ids *sim.IDAllocator, cfg Config, checkDimension func(PhaseSpaceDimension) error) (base, error) {
	if ids == nil {
		return base{}, fmt.Errorf("%w: %s needs an id allocator", ErrInvalidEstimator, kind)
	}
	if !(cfg.Multiplier > 0) {
		return base{}, fmt.Errorf("%w: %s multiplier must be positive, got %g", ErrInvalidEstimator, kind, cfg.Multiplier)
	}
	if len(cfg.ParticleTypes) == 0 {
		return base{}, fmt.Errorf("%w: %s needs at least one particle type", ErrInvalidEstimator, kind)
	}
	if checkDimension == nil {
		checkDimension = func(PhaseSpaceDimension) error { return nil }
	}

	b := base{
		kind:           kind,
		multiplier:     cfg.Multiplier,
		particleTypes:  make(map[sim.ParticleType]bool, len(cfg.ParticleTypes)),
		contribution:   cfg.Contribution,
		discretization: NewPhaseSpaceDiscretization(),
		responses:      []ResponseFunction{DefaultResponse{}},
		checkDimension: checkDimension,
		uncommitted:    make([]bool, 1),
	}
	if b.contribution == nil {
		b.contribution = WeightMultiplier{}
	}
	for _, t := range cfg.ParticleTypes {
		b.particleTypes[t] = true
	}
	for _, d := range cfg.Discretizations {
		if err := b.assignDiscretization(d); err != nil {
			return base{}, err
		}
	}
	if len(cfg.ResponseFunctions) > 0 {
		b.responses = append([]ResponseFunction(nil), cfg.ResponseFunctions...)
	}

	if cfg.ID != 0 {
		if err := ids.Reserve(cfg.ID); err != nil {
			return base{}, fmt.Errorf("%w: %s: %v", ErrInvalidEstimator, kind, err)
		}
		b.id = cfg.ID
	} else {
		b.id = ids.Next()
	}
	return b, nil
}

func (b *base) ID() uint64 { return b.id }

func (b *base) Kind() string { return b.kind }

func (b *base) Multiplier() float64 { return b.multiplier }

func (b *base) IsParticleTypeAssigned(t sim.ParticleType) bool { return b.particleTypes[t] }

// ParticleTypes returns the assigned particle types, ascending.
func (b *base) ParticleTypes() []sim.ParticleType {
	out := make([]sim.ParticleType, 0, len(b.particleTypes))
	for t := range b.particleTypes {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *base) NumberOfBins() int { return b.discretization.NumberOfBins() }

func (b *base) NumberOfResponseFunctions() int { return len(b.responses) }

func (b *base) BinName(i int) string { return b.discretization.BinName(i) }

func (b *base) ResponseFunctionName(i int) string { return b.responses[i].Name() }

// HasUncommittedHistoryContribution reports whether worker scored since its
// last commit.
func (b *base) HasUncommittedHistoryContribution(worker int) bool {
	return b.uncommitted[b.slot(worker)]
}

func (b *base) assignDiscretization(d DimensionDiscretization) error {
	if d == nil {
		return fmt.Errorf("%w: nil discretization", ErrInvalidDiscretization)
	}
	if err := b.checkDimension(d.Dimension()); err != nil {
		return err
	}
	return b.discretization.Assign(d)
}

// binIndex returns the composite bin of point.
func (b *base) binIndex(point PhasePoint) (int, bool) {
	return b.discretization.BinIndex(point)
}

func (b *base) slot(worker int) int {
	if worker < 0 || worker >= len(b.uncommitted) {
		panic(fmt.Sprintf("estimator %d: worker %d outside thread support of %d; call EnableThreadSupport first",
			b.id, worker, len(b.uncommitted)))
	}
	return worker
}
