package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/linesim/sim/experiment"
	"github.com/inference-sim/linesim/sim/line"
	"github.com/inference-sim/linesim/sim/trace"
)

var (
	// Shared flags
	defaultsFilePath string // Path to defaults.yaml
	logLevel         string // Log verbosity level

	// Line overrides
	seed          int64   // Seed for every random stream of a run
	horizon       float64 // Simulated time (in minutes)
	machinesA     int     // Number of stage-A machines
	machinesB     int     // Number of stage-B machines
	pollInterval  float64 // How often a token holder re-checks a broken machine
	servicePolicy string  // restart or resume
	traceLevel    string  // none or events
	traceOut      string  // Trace export path (.csv or .sqlite3)

	// Experiment overrides
	replications  int     // Paired replications
	masterSeed    int64   // Seed the replication seeds are drawn from
	alpha         float64 // Significance level of the paired t-test
	stabilityRuns int     // Runs for the stability check
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "linesim",
	Short: "Discrete-event simulator for a two-stage production line with unreliable machines",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// loadConfig reads defaults.yaml and applies the flags the user set.
func loadConfig(cmd *cobra.Command) Config {
	cfg, err := resolveDefaults(defaultsFilePath, cmd.Flags().Changed("config"))
	if err != nil {
		logrus.Fatalf("%v", err)
	}
	applyLineFlags(cmd, &cfg.Line)
	applyExperimentFlags(cmd, &cfg.Experiment)
	return cfg
}

// applyLineFlags overrides file values only for flags given on the command
// line. Flags a subcommand does not define never report Changed.
func applyLineFlags(cmd *cobra.Command, lc *line.Config) {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		lc.Seed = &seed
	}
	if flags.Changed("horizon") {
		lc.Horizon = horizon
	}
	if flags.Changed("machines-a") {
		lc.MachinesA = machinesA
	}
	if flags.Changed("machines-b") {
		lc.MachinesB = machinesB
	}
	if flags.Changed("poll-interval") {
		lc.PollInterval = pollInterval
	}
	if flags.Changed("policy") {
		lc.ServicePolicy = line.ServicePolicy(servicePolicy)
	}
	if flags.Changed("trace-level") {
		lc.TraceLevel = trace.TraceLevel(traceLevel)
	}
}

func applyExperimentFlags(cmd *cobra.Command, ec *experiment.Config) {
	flags := cmd.Flags()
	if flags.Changed("replications") {
		ec.Replications = replications
	}
	if flags.Changed("master-seed") {
		ec.MasterSeed = masterSeed
	}
	if flags.Changed("alpha") {
		ec.Alpha = alpha
	}
}

// runCmd executes a single simulation run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the production line once and print its metrics",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if traceOut != "" && cfg.Line.TraceLevel != trace.TraceLevelEvents {
			logrus.Infof("--trace-out given; enabling event tracing")
			cfg.Line.TraceLevel = trace.TraceLevelEvents
		}

		startTime := time.Now()
		l, err := line.NewLine(cfg.Line, nil)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		res, err := l.Run()
		if err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
		printResult(cmd.OutOrStdout(), res)
		logrus.Infof("Simulation complete in %v", time.Since(startTime))

		if l.Trace() != nil {
			path := traceOut
			if path == "" {
				path = trace.DefaultSQLitePath()
			}
			if err := exportTrace(path, l.Trace()); err != nil {
				logrus.Fatalf("Trace export failed: %v", err)
			}
			summary := trace.Summarize(l.Trace())
			logrus.Infof("Wrote %d events and %d transitions to %s (digest %016x)",
				summary.TotalEvents, summary.TotalTransitions, path, summary.Digest)
		}
	},
}

// exportTrace picks the writer from the file extension.
func exportTrace(path string, st *trace.SimulationTrace) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := trace.WriteEventsCSV(f, st); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	case ".sqlite3", ".sqlite", ".db":
		return trace.WriteSQLite(path, st)
	default:
		return fmt.Errorf("unsupported trace file extension %q; use .csv or .sqlite3", filepath.Ext(path))
	}
}

// experimentCmd runs the paired stage-B expansion study
var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Compare two machine layouts with paired replications and a t-test",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		out, err := experiment.RunPaired(cfg.Line, cfg.Experiment)
		if err != nil {
			logrus.Fatalf("Experiment failed: %v", err)
		}
		printPaired(cmd.OutOrStdout(), out)
	},
}

// verifyCmd runs the model verification checks
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Run the no-breakdown baseline and the stability check",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		v, err := experiment.Verify(cfg.Line, stabilityRuns)
		if err != nil {
			logrus.Fatalf("Verification failed: %v", err)
		}
		printVerification(cmd.OutOrStdout(), v)
	},
}

// compareCmd runs the four standard machine layouts
var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run the line under the standard machine layouts",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig(cmd)
		if !cmd.Flags().Changed("horizon") {
			cfg.Line.Horizon = experiment.CompareHorizon
		}
		cs, err := experiment.CompareConfigurations(cfg.Line, experiment.DefaultLayouts())
		if err != nil {
			logrus.Fatalf("Comparison failed: %v", err)
		}
		printComparisons(cmd.OutOrStdout(), cs)
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addLineFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 42, "Seed for every random stream of the run")
	cmd.Flags().Float64Var(&horizon, "horizon", 10000, "Simulated time (in minutes)")
	cmd.Flags().IntVar(&machinesA, "machines-a", 3, "Number of stage-A machines")
	cmd.Flags().IntVar(&machinesB, "machines-b", 2, "Number of stage-B machines")
	cmd.Flags().Float64Var(&pollInterval, "poll-interval", line.DefaultPollInterval, "How often an item re-checks a broken machine")
	cmd.Flags().StringVar(&servicePolicy, "policy", string(line.PolicyRestart), "Breakdown effect on work in service (restart, resume)")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&defaultsFilePath, "config", "defaults.yaml", "Path to defaults.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")

	addLineFlags(runCmd)
	runCmd.Flags().StringVar(&traceLevel, "trace-level", string(trace.TraceLevelNone), "Trace verbosity (none, events)")
	runCmd.Flags().StringVar(&traceOut, "trace-out", "", "Trace export file (.csv or .sqlite3); defaults to a generated .sqlite3 name when tracing")

	addLineFlags(experimentCmd)
	experimentCmd.Flags().IntVar(&replications, "replications", 30, "Number of paired replications")
	experimentCmd.Flags().Int64Var(&masterSeed, "master-seed", 424242, "Seed the replication seeds are drawn from")
	experimentCmd.Flags().Float64Var(&alpha, "alpha", 0.05, "Significance level of the paired t-test")

	addLineFlags(verifyCmd)
	verifyCmd.Flags().IntVar(&stabilityRuns, "runs", 5, "Runs for the stability check")

	addLineFlags(compareCmd)

	rootCmd.AddCommand(runCmd, experimentCmd, verifyCmd, compareCmd)
}
