package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/estimator"
)

type fixture struct {
	handler     *Handler
	trackLength *estimator.CellTrackLengthFluxEstimator
	collision   *estimator.CellCollisionFluxEstimator
	pulse       *estimator.CellPulseHeightEstimator
	surfaceFlux *estimator.SurfaceFluxEstimator
	current     *estimator.SurfaceCurrentEstimator
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ids := sim.NewIDAllocator()
	neutrons := estimator.Config{Multiplier: 1, ParticleTypes: []sim.ParticleType{sim.Neutron}}
	photons := estimator.Config{Multiplier: 1, ParticleTypes: []sim.ParticleType{sim.Photon}}

	var f fixture
	var err error
	f.trackLength, err = estimator.NewCellTrackLengthFluxEstimator(ids, neutrons, []sim.CellID{1, 2}, []float64{1, 1})
	require.NoError(t, err)
	f.collision, err = estimator.NewCellCollisionFluxEstimator(ids, neutrons, []sim.CellID{1}, []float64{1})
	require.NoError(t, err)
	f.pulse, err = estimator.NewCellPulseHeightEstimator(ids, photons, []sim.CellID{2})
	require.NoError(t, err)
	f.surfaceFlux, err = estimator.NewSurfaceFluxEstimator(ids, neutrons, []sim.SurfaceID{10}, []float64{1}, 0)
	require.NoError(t, err)
	f.current, err = estimator.NewSurfaceCurrentEstimator(ids, neutrons, []sim.SurfaceID{10, 11})
	require.NoError(t, err)

	f.handler = NewHandler()
	for _, est := range []estimator.Estimator{f.current, f.trackLength, f.collision, f.pulse, f.surfaceFlux} {
		require.NoError(t, f.handler.AddEstimator(est))
	}
	return f
}

func particle(t sim.ParticleType, energy float64) *sim.ParticleState {
	p := sim.NewParticleState(t, 0)
	p.Energy = energy
	return p
}

func TestHandler_Registration(t *testing.T) {
	f := newFixture(t)
	h := f.handler

	assert.Equal(t, 5, h.NumberOfObservers())
	for id := uint64(1); id <= 5; id++ {
		assert.True(t, h.DoesObserverExist(id), "id %d", id)
	}
	assert.False(t, h.DoesObserverExist(6))

	assert.Equal(t, 1, h.SubtrackObservers(1))
	assert.Equal(t, 1, h.SubtrackObservers(2))
	assert.Equal(t, 1, h.CollidingObservers(1))
	assert.Equal(t, 0, h.CollidingObservers(2))
	assert.Equal(t, 1, h.EnteringCellObservers(2))
	assert.Equal(t, 1, h.LeavingCellObservers(2))
	assert.Equal(t, 2, h.CrossingObservers(10))
	assert.Equal(t, 1, h.CrossingObservers(11))

	// estimators are kept by ascending id regardless of registration order
	ests := h.Estimators()
	require.Len(t, ests, 5)
	for i, est := range ests {
		assert.Equal(t, uint64(i+1), est.ID())
	}
	assert.Same(t, f.pulse, h.Estimator(f.pulse.ID()))
}

func TestHandler_DuplicateRegistration(t *testing.T) {
	f := newFixture(t)
	assert.Error(t, f.handler.AddEstimator(f.trackLength))
}

func TestHandler_DispatchesByEntityAndParticleType(t *testing.T) {
	f := newFixture(t)
	h := f.handler

	// WHEN a neutron tracks in cells 1 and 2, collides in 1 and crosses 10
	n := particle(sim.Neutron, 1)
	h.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, n, 1, 2)
	h.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, n, 2, 1)
	h.UpdateObserversFromParticleCollidingInCellEvent(0, n, 1, 0.5)
	h.UpdateObserversFromParticleCrossingSurfaceEvent(0, n, 10, 0.5)
	// AND a photon tracks in cell 1 and deposits in cell 2
	g := particle(sim.Photon, 2)
	h.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, g, 1, 100)
	h.UpdateObserversFromParticleEnteringCellEvent(0, g, 2)
	h.CommitHistoryContributions(0)

	// THEN each estimator saw only its own entities and particle types
	assert.Equal(t, 2.0, f.trackLength.EntityTotalMoments(1).Moment(1, 0))
	assert.Equal(t, 1.0, f.trackLength.EntityTotalMoments(2).Moment(1, 0))
	assert.Equal(t, 0.5, f.collision.TotalMoments().Moment(1, 0))
	assert.Equal(t, 2.0, f.surfaceFlux.TotalMoments().Moment(1, 0))
	assert.Equal(t, 1.0, f.current.EntityTotalMoments(10).Moment(1, 0))
	assert.Equal(t, 1.0, f.pulse.TotalMoments().Moment(1, 0)) // one pulse
	assert.Equal(t, uint64(1), h.NumberOfCommittedHistories())
}

func TestHandler_CommitOnlyScoredEstimators(t *testing.T) {
	f := newFixture(t)
	h := f.handler

	h.UpdateObserversFromParticleCrossingSurfaceEvent(0, particle(sim.Neutron, 1), 11, 1)
	h.CommitHistoryContributions(0)
	h.CommitHistoryContributions(0)

	assert.Equal(t, uint64(1), f.current.CommittedHistories())
	assert.Equal(t, uint64(0), f.trackLength.CommittedHistories())
	assert.Equal(t, uint64(2), h.NumberOfCommittedHistories())
	for _, est := range h.Estimators() {
		assert.False(t, est.HasUncommittedHistoryContribution(0))
	}
}

func TestHandler_DiscardAndReset(t *testing.T) {
	f := newFixture(t)
	h := f.handler

	h.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, particle(sim.Neutron, 1), 1, 3)
	h.DiscardHistoryContributions(0)
	assert.False(t, f.trackLength.HasUncommittedHistoryContribution(0))

	h.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, particle(sim.Neutron, 1), 1, 3)
	h.CommitHistoryContributions(0)
	h.ResetData()
	assert.Equal(t, uint64(0), h.NumberOfCommittedHistories())
	assert.Equal(t, 0.0, f.trackLength.TotalMoments().Moment(1, 0))
}

func TestHandler_ThreadedCommits(t *testing.T) {
	f := newFixture(t)
	h := f.handler
	h.EnableThreadSupport(4)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 250; i++ {
				h.UpdateObserversFromParticleSubtrackEndingInCellEvent(worker, particle(sim.Neutron, 1), 2, 1)
				h.CommitHistoryContributions(worker)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, uint64(1000), h.NumberOfCommittedHistories())
	assert.Equal(t, 1000.0, f.trackLength.EntityTotalMoments(2).Moment(1, 0))
}

func TestHandler_ReduceAndSnapshot(t *testing.T) {
	const ranks = 3
	comms := estimator.NewLocalGroup(ranks)
	fixtures := make([]fixture, ranks)
	for r := range fixtures {
		fixtures[r] = newFixture(t)
		fixtures[r].handler.UpdateObserversFromParticleSubtrackEndingInCellEvent(0, particle(sim.Neutron, 1), 1, float64(r+1))
		fixtures[r].handler.CommitHistoryContributions(0)
	}

	errs := make([]error, ranks)
	var wg sync.WaitGroup
	for r := 0; r < ranks; r++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			errs[r] = fixtures[r].handler.ReduceData(context.Background(), comms[r], 0)
		}(r)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	root := fixtures[0].handler
	assert.Equal(t, uint64(3), root.NumberOfCommittedHistories())
	assert.Equal(t, uint64(0), fixtures[1].handler.NumberOfCommittedHistories())

	stats := estimator.RunStatistics{Histories: root.NumberOfCommittedHistories(), Elapsed: time.Second}
	snaps := root.Snapshot(stats)
	require.Len(t, snaps, 5)
	assert.Equal(t, fixtures[0].trackLength.ID(), snaps[0].ID)
	// (1 + 2 + 3) / 3 histories / unit volume
	assert.InDelta(t, 2.0, snaps[0].Entities[0].Totals[0].Mean, 1e-12)
}
