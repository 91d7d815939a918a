package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/transport-sim/transport-sim/sim/estimator"
	"github.com/transport-sim/transport-sim/sim/event"
	"github.com/transport-sim/transport-sim/sim/trace"
	"github.com/transport-sim/transport-sim/sim/transport"
)

// runOptions are the CLI overrides of a problem's run section.
type runOptions struct {
	histories uint64
	threads   int
	seed      int64
	seedSet   bool
	processes int
}

// Outcome is everything a finished run produced.
type Outcome struct {
	Report      estimator.Report
	Diagnostics []transport.DiagnosticsSummary // one per process
	Trace       *trace.SimulationTrace
	Cancelled   bool
}

// process is one member of a local group: its own estimators and simulation.
type process struct {
	handler *event.Handler
	sim     *transport.Simulation
	result  transport.Result
}

// executeProblem runs a validated problem. With more than one process the
// histories are split into contiguous ranges, each process runs its range,
// and the estimators are reduced onto process 0.
func executeProblem(ctx context.Context, p *Problem, o runOptions) (*Outcome, error) {
	if o.processes < 1 {
		o.processes = 1
	}
	world, err := BuildWorld(p)
	if err != nil {
		return nil, err
	}
	cfg := transportConfig(p.Run, o)
	if cfg.Histories < uint64(o.processes) {
		return nil, fmt.Errorf("%d histories cannot be split over %d processes", cfg.Histories, o.processes)
	}

	procs := make([]*process, o.processes)
	share := cfg.Histories / uint64(o.processes)
	first := uint64(0)
	for rank := range procs {
		h, err := BuildHandler(p, world)
		if err != nil {
			return nil, err
		}
		pc := cfg
		pc.FirstHistory = first
		pc.Histories = share
		if rank == len(procs)-1 {
			pc.Histories = cfg.Histories - first
		}
		first += pc.Histories
		s, err := transport.NewSimulation(pc, transport.Model{
			Navigator: world.Geometry,
			Materials: world.Materials,
			Source:    world.Source,
			Handler:   h,
		})
		if err != nil {
			return nil, err
		}
		procs[rank] = &process{handler: h, sim: s}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, pr := range procs {
		pr := pr
		g.Go(func() error {
			res, err := pr.sim.Run(gctx)
			pr.result = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(procs) > 1 {
		if err := reduce(context.Background(), procs); err != nil {
			return nil, err
		}
	}

	root := procs[0]
	runID := root.sim.RunID()
	if len(procs) > 1 {
		runID = uuid.New()
	}
	stats := estimator.RunStatistics{
		Histories: root.handler.NumberOfCommittedHistories(),
		Elapsed:   time.Since(start),
	}
	out := &Outcome{Report: estimator.NewReport(runID, stats, root.handler.Snapshot(stats))}
	var traces []*trace.SimulationTrace
	for _, pr := range procs {
		out.Diagnostics = append(out.Diagnostics, pr.sim.Diagnostics().Summary())
		out.Cancelled = out.Cancelled || pr.result.Cancelled
		if t := pr.sim.Trace(); t != nil {
			traces = append(traces, t)
		}
	}
	if len(traces) > 0 {
		out.Trace = trace.Merge(cfg.Trace, traces...)
	}
	return out, nil
}

// reduce sums every process's estimators onto process 0. Every member takes
// part in each collective, so they run concurrently.
func reduce(ctx context.Context, procs []*process) error {
	comms := estimator.NewLocalGroup(len(procs))
	g, gctx := errgroup.WithContext(ctx)
	for rank, pr := range procs {
		pr := pr
		comm := comms[rank]
		g.Go(func() error {
			return pr.handler.ReduceData(gctx, comm, 0)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Infof("reduced %d processes: %d histories", len(procs), procs[0].handler.NumberOfCommittedHistories())
	return nil
}
