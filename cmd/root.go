package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/station-sim/sim"
	"github.com/inference-sim/station-sim/sim/network"
	"github.com/inference-sim/station-sim/sim/trace"
)

var (
	configPath  string  // YAML network config; empty runs the health-centre default
	seed        int64   // Master seed for all random partitions
	duration    float64 // Simulated time bound
	delayMs     int64   // Wall-clock pause per loop iteration, in milliseconds
	logLevel    string  // Log verbosity level
	resultsPath string  // JSON-lines file receiving one record per run
	traceLevel  string  // Decision trace level
	interactive bool    // Read pause/resume/speed commands from stdin
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "station-sim",
	Short: "Discrete-event simulator for networks of service stations",
}

// runCmd executes the simulation using the network config and CLI overrides
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the station network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg, err := loadNetworkConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var in io.Reader
		if interactive {
			in = os.Stdin
			fmt.Fprintln(os.Stderr, "controls: p=pause r=resume +=faster -=slower q=quit")
		}
		startTime := time.Now()
		if _, err := runSimulation(ctx, cfg, resultsPath, in, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		logrus.Infof("Simulation complete in %v.", time.Since(startTime).Round(time.Millisecond))
	},
}

// loadNetworkConfig reads --config (or the default network) and applies the
// flags the user set explicitly on top of it.
func loadNetworkConfig(cmd *cobra.Command) (*network.Config, error) {
	cfg := network.HealthCentre()
	if configPath != "" {
		loaded, err := network.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("duration") {
		cfg.Duration = duration
	}
	if flags.Changed("delay") {
		cfg.DelayMs = delayMs
	}
	if flags.Changed("trace") {
		cfg.Trace = traceLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("network config: %w", err)
	}
	return cfg, nil
}

// runSimulation builds the network, runs it to completion or cancellation and
// writes the report to out. When in is non-nil, control commands are read
// from it while the run is in progress.
func runSimulation(ctx context.Context, cfg *network.Config, resultsFile string, in io.Reader, out io.Writer) (sim.Statistics, error) {
	var sink network.ResultsSink = network.NewMemorySink()
	if resultsFile != "" {
		sink = network.NewJSONLinesSink(resultsFile)
	}
	var tr *trace.SimulationTrace
	if cfg.Trace != "" && trace.TraceLevel(cfg.Trace) != trace.TraceLevelNone {
		tr = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.Trace)})
	}

	n, err := network.New(cfg, nil, sink, tr)
	if err != nil {
		return sim.Statistics{}, err
	}
	e, err := n.NewEngine(&logObserver{})
	if err != nil {
		return sim.Statistics{}, err
	}
	if err := e.Start(ctx); err != nil {
		return sim.Statistics{}, err
	}
	if in != nil {
		go readControls(e, in)
	}
	stats, err := e.Wait()
	e.DrainNotifications()
	if err != nil {
		return stats, err
	}

	stats.Fprint(out)
	printRouting(out, n)
	if tr.Enabled() {
		printTraceSummary(out, trace.Summarize(tr))
	}
	if r, ok := n.Results(); ok {
		fmt.Fprintf(out, "Run ID                   : %s\n", r.RunID)
	}
	return stats, nil
}

func printRouting(w io.Writer, n *network.Network) {
	fmt.Fprintln(w, "=== Routing ===")
	routed := n.Routed()
	for _, st := range n.Stations() {
		for _, dest := range n.Destinations(st) {
			fmt.Fprintf(w, "  %-12s -> %-12s %d\n", st, dest, routed[st][dest])
		}
	}
}

func printTraceSummary(w io.Writer, s *trace.TraceSummary) {
	fmt.Fprintln(w, "=== Decision Trace ===")
	fmt.Fprintf(w, "Decisions                : %d\n", s.TotalDecisions)
	fmt.Fprintf(w, "Fallbacks                : %d\n", s.FallbackCount)
	for _, d := range s.Stations {
		fmt.Fprintf(w, "  %-12s decisions=%-6d fallbacks=%d\n", d.Station, d.Decisions, d.FallbackCount)
	}
}

// logObserver reports engine notifications through logrus.
type logObserver struct{}

func (logObserver) Arrived(station string, now float64) {
	logrus.Debugf("[t=%.4f] arrived at %s", now, station)
}

func (logObserver) Departed(station string, now float64) {
	logrus.Debugf("[t=%.4f] departed from %s", now, station)
}

func (logObserver) Progress(now, total float64) {
	if total > 0 {
		logrus.Infof("progress: t=%.2f (%.0f%%)", now, 100*min(now/total, 1))
	}
}

func (logObserver) Ended(stats sim.Statistics) {
	logrus.Infof("run ended at t=%.2f: %d arrived, %d completed", stats.EndTime, stats.Arrivals, stats.Completed)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML network config (default: built-in health centre)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Master seed for random streams")
	runCmd.Flags().Float64Var(&duration, "duration", 1000, "Simulated time bound")
	runCmd.Flags().Int64Var(&delayMs, "delay", 0, "Wall-clock delay per loop iteration in milliseconds")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&resultsPath, "results", "", "Append run results as JSON lines to this file")
	runCmd.Flags().StringVar(&traceLevel, "trace", "", "Decision trace level (none, decisions)")
	runCmd.Flags().BoolVar(&interactive, "interactive", false, "Read p/r/+/-/q control commands from stdin")

	// Attach `run` and `defaults` as subcommands to `root`
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(defaultsCmd)
}
