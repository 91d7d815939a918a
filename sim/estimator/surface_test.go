package estimator

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transport-sim/transport-sim/sim"
)

func TestSurfaceFlux_CosineCutoff(t *testing.T) {
	est, err := NewSurfaceFluxEstimator(sim.NewIDAllocator(), neutronConfig(), []sim.SurfaceID{1}, []float64{1}, 0.01)
	require.NoError(t, err)

	tests := []struct {
		cosine float64
		want   float64
	}{
		{0.001, 200},  // below the cutoff
		{-0.001, 200}, // crossing direction does not matter
		{0.5, 2},
		{-1, 1},
		{0.01, 100}, // at the cutoff
	}
	for _, tc := range tests {
		assert.InDelta(t, tc.want, est.Contribution(tc.cosine), 1e-9, "cosine %g", tc.cosine)
	}
}

func TestSurfaceFlux_ScoresGrazingCrossing(t *testing.T) {
	// GIVEN cutoff 0.01 and a unit surface
	est, err := NewSurfaceFluxEstimator(sim.NewIDAllocator(), neutronConfig(), []sim.SurfaceID{9}, []float64{1}, 0.01)
	require.NoError(t, err)

	// WHEN a unit-weight neutron crosses at mu = 0.001
	est.UpdateFromParticleCrossingSurfaceEvent(0, neutron(1, 1), 9, 0.001)
	est.CommitHistoryContribution(0)

	// THEN the history scores 2/cutoff = 200
	assert.InDelta(t, 200, est.TotalMoments().Moment(1, 0), 1e-9)
}

func TestSurfaceFlux_DefaultAndInvalidCutoff(t *testing.T) {
	est, err := NewSurfaceFluxEstimator(sim.NewIDAllocator(), neutronConfig(), []sim.SurfaceID{1}, []float64{1}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultCosineCutoff, est.CosineCutoff())

	for _, cutoff := range []float64{-0.1, 1.5} {
		_, err := NewSurfaceFluxEstimator(sim.NewIDAllocator(), neutronConfig(), []sim.SurfaceID{1}, []float64{1}, cutoff)
		assert.ErrorIs(t, err, ErrInvalidEstimator, "cutoff %g", cutoff)
	}
}

func TestSurfaceFlux_CosineBins(t *testing.T) {
	bins, err := NewContinuousDiscretization(CosineDimension, []float64{-1, 0, 1})
	require.NoError(t, err)
	cfg := neutronConfig()
	cfg.Discretizations = []DimensionDiscretization{bins}
	est, err := NewSurfaceFluxEstimator(sim.NewIDAllocator(), cfg, []sim.SurfaceID{1}, []float64{4}, 0)
	require.NoError(t, err)

	est.UpdateFromParticleCrossingSurfaceEvent(0, neutron(1, 1), 1, -0.5)
	est.CommitHistoryContribution(0)

	assert.Equal(t, []float64{2, 0}, est.EntityBinMoments(1).Moments(1))
	data := est.EntityBinData(1, RunStatistics{Histories: 1})
	assert.InDelta(t, 0.5, data[0].Mean, 1e-15)
}

func TestSurfaceCurrent_CountsWeightedCrossings(t *testing.T) {
	est, err := NewSurfaceCurrentEstimator(sim.NewIDAllocator(), neutronConfig(), []sim.SurfaceID{1, 2})
	require.NoError(t, err)

	est.UpdateFromParticleCrossingSurfaceEvent(0, neutron(1, 0.25), 1, 0.3)
	est.UpdateFromParticleCrossingSurfaceEvent(0, neutron(1, 0.25), 1, -0.9)
	est.CommitHistoryContribution(0)

	assert.Equal(t, 0.5, est.EntityTotalMoments(1).Moment(1, 0))
	assert.Equal(t, 0.0, est.EntityTotalMoments(2).Moment(1, 0))
	assert.Equal(t, 2.0, est.TotalNormConstant())
}

func TestSnapshot_KeyedByEntityAndBin(t *testing.T) {
	bins, err := NewContinuousDiscretization(EnergyDimension, []float64{0, 1, 10})
	require.NoError(t, err)
	cfg := neutronConfig()
	cfg.Multiplier = 2
	cfg.Discretizations = []DimensionDiscretization{bins}
	est, err := NewCellTrackLengthFluxEstimator(sim.NewIDAllocator(), cfg, []sim.CellID{3, 1}, []float64{1, 2})
	require.NoError(t, err)

	est.UpdateFromParticleSubtrackEndingInCellEvent(0, neutron(5, 1), 1, 1)
	est.CommitHistoryContribution(0)
	est.UpdateFromParticleSubtrackEndingInCellEvent(0, neutron(5, 1), 1, 3)
	est.CommitHistoryContribution(0)

	stats := RunStatistics{Histories: 2, Elapsed: 2 * time.Second}
	snap := est.Snapshot(stats)

	assert.Equal(t, KindCellTrackLengthFlux, snap.Kind)
	require.Len(t, snap.Entities, 2)
	assert.Equal(t, int64(1), snap.Entities[0].EntityID)
	assert.Equal(t, int64(3), snap.Entities[1].EntityID)

	cell1 := snap.Entities[0]
	require.Len(t, cell1.Bins, 2)
	assert.Equal(t, 1, cell1.Bins[1].Bin)
	assert.Equal(t, "default", cell1.Bins[1].Response)
	// mean = (4/2) * multiplier 2 / volume 2
	assert.InDelta(t, 2.0, cell1.Bins[1].Mean, 1e-12)
	assert.InDelta(t, 0.5, cell1.Bins[1].RelativeError, 1e-12)
	assert.InDelta(t, 2.0, snap.Totals[0].Mean*3/2, 1e-12)

	report := NewReport(uuid.New(), stats, []EstimatorSnapshot{snap})
	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, report.RunID.String(), decoded["run_id"])
	assert.Len(t, decoded["estimators"], 1)
}
