package estimator

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BinRecord is the processed value of one (response, bin) slot.
type BinRecord struct {
	Bin      int    `json:"bin"`
	BinName  string `json:"bin_name"`
	Response string `json:"response"`
	BinStatistics
}

// TotalRecord is the processed total of one response function.
type TotalRecord struct {
	Response string `json:"response"`
	TotalStatistics
}

// EntitySnapshot holds the processed data of one entity.
type EntitySnapshot struct {
	EntityID     int64         `json:"entity_id"`
	NormConstant float64       `json:"norm_constant"`
	Bins         []BinRecord   `json:"bins"`
	Totals       []TotalRecord `json:"totals"`
}

// EstimatorSnapshot holds the processed data of one estimator, keyed by
// entity id and bin index.
type EstimatorSnapshot struct {
	ID         uint64           `json:"id"`
	Kind       string           `json:"kind"`
	Multiplier float64          `json:"multiplier"`
	Histories  uint64           `json:"histories"`
	Entities   []EntitySnapshot `json:"entities"`
	TotalBins  []BinRecord      `json:"total_bins"`
	Totals     []TotalRecord    `json:"totals"`
}

// Snapshot processes every moment collection with stats.
func (e *EntityEstimator[E]) Snapshot(stats RunStatistics) EstimatorSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := EstimatorSnapshot{
		ID:         e.id,
		Kind:       e.kind,
		Multiplier: e.multiplier,
		Histories:  stats.Histories,
		Entities:   make([]EntitySnapshot, 0, len(e.entities)),
	}
	for _, ent := range e.entities {
		norm := e.normConstants[ent]
		snap.Entities = append(snap.Entities, EntitySnapshot{
			EntityID:     int64(ent),
			NormConstant: norm,
			Bins:         e.binRecords(e.processBins(e.entityBinMoments[ent], norm, stats)),
			Totals:       e.totalRecords(e.processTotals(e.entityTotalMoments[ent], norm, stats)),
		})
	}
	sort.Slice(snap.Entities, func(i, j int) bool { return snap.Entities[i].EntityID < snap.Entities[j].EntityID })
	snap.TotalBins = e.binRecords(e.processBins(e.totalBinMoments, e.totalNorm, stats))
	snap.Totals = e.totalRecords(e.processTotals(e.totalMoments, e.totalNorm, stats))
	return snap
}

func (e *EntityEstimator[E]) binRecords(data []BinStatistics) []BinRecord {
	nBins := e.NumberOfBins()
	out := make([]BinRecord, len(data))
	for s, d := range data {
		out[s] = BinRecord{
			Bin:           s % nBins,
			BinName:       e.BinName(s % nBins),
			Response:      e.ResponseFunctionName(s / nBins),
			BinStatistics: d,
		}
	}
	return out
}

func (e *EntityEstimator[E]) totalRecords(data []TotalStatistics) []TotalRecord {
	out := make([]TotalRecord, len(data))
	for r, d := range data {
		out[r] = TotalRecord{Response: e.ResponseFunctionName(r), TotalStatistics: d}
	}
	return out
}

// Report is the exported result of a run.
type Report struct {
	RunID      uuid.UUID           `json:"run_id"`
	Histories  uint64              `json:"histories"`
	ElapsedS   float64             `json:"elapsed_s"`
	Estimators []EstimatorSnapshot `json:"estimators"`
}

// NewReport orders snapshots by estimator id.
func NewReport(runID uuid.UUID, stats RunStatistics, snaps []EstimatorSnapshot) Report {
	sorted := append([]EstimatorSnapshot(nil), snaps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return Report{
		RunID:      runID,
		Histories:  stats.Histories,
		ElapsedS:   stats.Elapsed.Seconds(),
		Estimators: sorted,
	}
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encoding report %s: %w", r.RunID, err)
	}
	return nil
}

// LogSummary prints each estimator's totals at info level.
func (r Report) LogSummary() {
	logrus.Infof("=== Run %s: %d histories in %v ===", r.RunID, r.Histories,
		time.Duration(r.ElapsedS*float64(time.Second)).Round(time.Millisecond))
	for _, s := range r.Estimators {
		for _, t := range s.Totals {
			logrus.Infof("estimator %d (%s) %s: mean %.6e  RE %.4f  VOV %.4f  FOM %.3e",
				s.ID, s.Kind, t.Response, t.Mean, t.RelativeError, t.VOV, t.FOM)
		}
	}
}
