package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/transport-sim/transport-sim/sim/trace"
)

var (
	problemPath string // Problem YAML file
	histories   uint64 // Overrides run.histories when non-zero
	threads     int    // Overrides run.threads when non-zero
	seed        int64  // Overrides run.seed when set
	processes   int    // Number of local processes whose estimators are reduced
	logLevel    string // Log verbosity level
	outputPath  string // Report destination, stdout when empty
	cpuProfile  string // CPU profile destination
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "transport-sim",
	Short: "Monte Carlo neutron transport with tally estimators",
}

// runCmd transports the histories of a problem file and writes the report
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a transport problem",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		p, err := LoadProblem(problemPath)
		if err != nil {
			logrus.Fatalf("Failed to load problem: %v", err)
		}

		if cpuProfile != "" {
			f, err := os.Create(cpuProfile)
			if err != nil {
				logrus.Fatalf("Failed to create CPU profile: %v", err)
			}
			defer f.Close()
			if err := pprof.StartCPUProfile(f); err != nil {
				logrus.Fatalf("Failed to start CPU profile: %v", err)
			}
			defer pprof.StopCPUProfile()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out, err := executeProblem(ctx, p, runOptions{
			histories: histories,
			threads:   threads,
			seed:      seed,
			seedSet:   cmd.Flags().Changed("seed"),
			processes: processes,
		})
		if err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		if out.Cancelled {
			logrus.Warnf("Run interrupted after %d histories; the report covers those only", out.Report.Histories)
		}

		for _, d := range out.Diagnostics {
			d.LogSummary()
		}
		out.Report.LogSummary()
		if out.Trace != nil {
			logTraceSummary(trace.Summarize(out.Trace))
		}

		if err := writeReport(out, outputPath); err != nil {
			logrus.Fatalf("Failed to write report: %v", err)
		}
	},
}

// validateCmd builds a problem without transporting anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that a problem file builds",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		p, err := LoadProblem(problemPath)
		if err != nil {
			logrus.Fatalf("Failed to load problem: %v", err)
		}
		w, err := BuildWorld(p)
		if err != nil {
			logrus.Fatalf("Invalid problem: %v", err)
		}
		if _, err := BuildHandler(p, w); err != nil {
			logrus.Fatalf("Invalid estimators: %v", err)
		}
		logrus.Infof("%s: %d nuclides, %d materials, %d cells, %d estimators",
			problemPath, len(p.Nuclides), len(p.Materials), len(p.Geometry.Cells), len(p.Estimators))
	},
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

func writeReport(out *Outcome, path string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return out.Report.WriteJSON(w)
}

func logTraceSummary(s *trace.TraceSummary) {
	logrus.Infof("=== Trace ===")
	logrus.Infof("traced %d histories, %d particles, %d collisions", s.Histories, s.Particles, s.TotalCollisions)
	logrus.Infof("mean collisions per particle: %.3f", s.MeanCollisionsPerPath)
	if s.TotalCollisions > 0 {
		logrus.Infof("mean energy retained per collision: %.4f", s.MeanEnergyRetained)
	}
	for fate, n := range s.FateDistribution {
		logrus.Infof("  %-9s %d", fate, n)
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	for _, c := range []*cobra.Command{runCmd, validateCmd} {
		c.Flags().StringVar(&problemPath, "problem", "", "Path to the problem YAML file")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		_ = c.MarkFlagRequired("problem")
	}

	runCmd.Flags().Uint64Var(&histories, "histories", 0, "Number of histories (overrides run.histories)")
	runCmd.Flags().IntVar(&threads, "threads", 0, "Worker goroutines per process (overrides run.threads)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (overrides run.seed)")
	runCmd.Flags().IntVar(&processes, "processes", 1, "Local processes whose estimators are reduced onto process 0")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the JSON report to this file instead of stdout")
	runCmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "Write a CPU profile to this file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
