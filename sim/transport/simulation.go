package transport

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/transport-sim/transport-sim/sim"
	"github.com/transport-sim/transport-sim/sim/collision"
	"github.com/transport-sim/transport-sim/sim/estimator"
	"github.com/transport-sim/transport-sim/sim/event"
	"github.com/transport-sim/transport-sim/sim/trace"
)

// Model is everything a run transports particles through.
type Model struct {
	Navigator sim.Navigator
	// Materials maps cells to their fill. Cells without an entry are void.
	Materials map[sim.CellID]*collision.NeutronMaterial
	Source    Source
	Handler   *event.Handler
}

// Result summarizes a finished run.
type Result struct {
	RunID     uuid.UUID
	Histories uint64 // histories committed to the estimators
	Elapsed   time.Duration
	Cancelled bool
}

// Statistics returns the estimator processing inputs for this result.
func (r Result) Statistics() estimator.RunStatistics {
	return estimator.RunStatistics{Histories: r.Histories, Elapsed: r.Elapsed}
}

type energyRange struct{ lo, hi float64 }

// Simulation runs a fixed number of histories once.
type Simulation struct {
	runID  uuid.UUID
	cfg    Config
	model  Model
	rng    *sim.PartitionedRNG
	diag   *Diagnostics
	ranges map[*collision.NeutronMaterial]energyRange

	hasRun bool
	traces []*trace.SimulationTrace
}

// NewSimulation validates cfg and model.
func NewSimulation(cfg Config, model Model) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if model.Navigator == nil {
		return nil, fmt.Errorf("model has no geometry")
	}
	if model.Source == nil {
		return nil, fmt.Errorf("model has no source")
	}
	if model.Handler == nil {
		return nil, fmt.Errorf("model has no event handler")
	}
	ranges := make(map[*collision.NeutronMaterial]energyRange)
	for cell, m := range model.Materials {
		if m == nil {
			continue
		}
		if t := model.Source.ParticleType(); t != sim.Neutron {
			return nil, fmt.Errorf("%s source cannot cross material %d in cell %d: only neutron physics is available", t, m.ID(), cell)
		}
		lo, hi := m.EnergyRange()
		if lo > hi {
			return nil, fmt.Errorf("material %d in cell %d: nuclide energy grids do not overlap", m.ID(), cell)
		}
		ranges[m] = energyRange{lo, hi}
	}
	id := uuid.New()
	return &Simulation{
		runID:  id,
		cfg:    cfg,
		model:  model,
		rng:    sim.NewPartitionedRNG(sim.NewSimulationKey(cfg.Seed)),
		diag:   NewDiagnostics(id.String()),
		ranges: ranges,
	}, nil
}

func (s *Simulation) RunID() uuid.UUID { return s.runID }

func (s *Simulation) Config() Config { return s.cfg }

func (s *Simulation) Diagnostics() *Diagnostics { return s.diag }

// Trace returns the merged per-worker traces, or nil when tracing is off.
func (s *Simulation) Trace() *trace.SimulationTrace {
	if s.traces == nil {
		return nil
	}
	return trace.Merge(s.cfg.Trace, s.traces...)
}

// errAbandoned marks a history given up because the run is stopping.
var errAbandoned = errors.New("history abandoned")

// Run transports every history. Cancelling ctx stops the run between
// histories; the partial result is returned with Cancelled set. A sampling
// failure stops every worker and is returned.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	if s.hasRun {
		panic("Simulation.Run() called more than once")
	}
	s.hasRun = true

	h := s.model.Handler
	h.EnableThreadSupport(s.cfg.Threads)
	if s.cfg.Trace.Level != trace.TraceLevelNone && s.cfg.Trace.Level != "" {
		s.traces = make([]*trace.SimulationTrace, s.cfg.Threads)
		for i := range s.traces {
			s.traces[i] = trace.NewSimulationTrace(s.cfg.Trace)
		}
	}

	logrus.Infof("run %s: %d histories from %d on %d workers (seed %d)",
		s.runID, s.cfg.Histories, s.cfg.FirstHistory, s.cfg.Threads, s.cfg.Seed)
	start := time.Now()
	before := h.NumberOfCommittedHistories()

	var next atomic.Uint64
	progressEvery := s.cfg.Histories / 10
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.cfg.Threads; w++ {
		wc := sim.NewWorkerContext(w, s.rng)
		g.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				i := next.Add(1) - 1
				if i >= s.cfg.Histories {
					return nil
				}
				err := s.runHistory(gctx, wc, s.cfg.FirstHistory+i)
				if errors.Is(err, errAbandoned) {
					return nil
				}
				if err != nil {
					return err
				}
				if progressEvery > 0 && (i+1)%progressEvery == 0 {
					logrus.Debugf("run %s: %d/%d histories", s.runID, i+1, s.cfg.Histories)
				}
			}
		})
	}
	err := g.Wait()

	res := Result{
		RunID:     s.runID,
		Histories: h.NumberOfCommittedHistories() - before,
		Elapsed:   time.Since(start),
		Cancelled: err == nil && ctx.Err() != nil,
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", s.runID, err)
	}
	if res.Cancelled {
		logrus.Warnf("run %s cancelled after %d of %d histories", s.runID, res.Histories, s.cfg.Histories)
	}
	return res, nil
}

// runHistory transports history n and every secondary it produces, then
// commits its contributions. The history is discarded when the run stops
// part way through it.
func (s *Simulation) runHistory(ctx context.Context, wc *sim.WorkerContext, n uint64) error {
	wc.BeginHistory(n)
	var tr *trace.SimulationTrace
	if s.traces != nil && s.traces[wc.ID].Traces(n) {
		tr = s.traces[wc.ID]
	}
	ht := &historyTracker{sim: s, wc: wc, trace: tr}

	wc.Bank.Push(s.model.Source.Sample(n, wc.Random))
	for {
		banked, ok := wc.Bank.Pop()
		if !ok {
			break
		}
		if ctx.Err() != nil {
			s.model.Handler.DiscardHistoryContributions(wc.ID)
			return errAbandoned
		}
		if err := ht.transport(banked.State, banked.Origin == sim.NoReaction); err != nil {
			s.model.Handler.DiscardHistoryContributions(wc.ID)
			return fmt.Errorf("history %d: %w", n, err)
		}
	}

	timer := prometheus.NewTimer(s.diag.commitSeconds)
	s.model.Handler.CommitHistoryContributions(wc.ID)
	timer.ObserveDuration()
	s.diag.histories.Inc()
	return nil
}
