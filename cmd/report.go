package cmd

import (
	"fmt"
	"io"

	"github.com/inference-sim/linesim/sim/experiment"
	"github.com/inference-sim/linesim/sim/line"
)

// printResult displays the outcome of one run.
func printResult(w io.Writer, res *line.Result) {
	fmt.Fprintln(w, "=== Simulation Results ===")
	fmt.Fprintf(w, "Run ID               : %s\n", res.RunID)
	fmt.Fprintf(w, "Seed                 : %d\n", res.Seed)
	fmt.Fprintf(w, "Horizon              : %.0f min\n", res.Horizon)
	fmt.Fprintf(w, "Spawned Items        : %d\n", res.Spawned)
	fmt.Fprintf(w, "Completed Items      : %d\n", res.Completed)
	fmt.Fprintf(w, "Throughput           : %.4f items/min\n", res.Throughput)
	if res.Completed > 0 {
		fmt.Fprintf(w, "Mean Sojourn Time    : %.2f min\n", res.MeanSojourn)
		fmt.Fprintf(w, "Sojourn Std Dev      : %.2f min\n", res.StdDevSojourn)
		fmt.Fprintf(w, "Mean Inter-Stage Wait: %.2f min\n", res.MeanInterStageWait)
	}
	fmt.Fprintf(w, "Stage A Utilization  : %.1f%%\n", 100*res.StageUtilization(line.StageA))
	fmt.Fprintf(w, "Stage B Utilization  : %.1f%%\n", 100*res.StageUtilization(line.StageB))

	fmt.Fprintln(w, "\n=== Machines ===")
	fmt.Fprintf(w, "%-6s %-10s %8s %10s %10s %10s %8s %7s\n", "name", "service", "util", "busy", "repair", "up", "failures", "served")
	for _, m := range res.Machines {
		fmt.Fprintf(w, "%-6s %-10s %7.1f%% %10.1f %10.1f %10.1f %8d %7d\n",
			m.Name, m.Processing, 100*m.Utilization, m.BusyTime, m.RepairTime, m.UpTime, m.Failures, m.Served)
	}
}

// printPaired displays a paired replication study and its t-test.
func printPaired(w io.Writer, out *experiment.PairedResult) {
	cfg := out.Config
	fmt.Fprintln(w, "=== Paired Experiment (common random numbers) ===")
	fmt.Fprintf(w, "Replications         : %d (master seed %d)\n", len(out.Replications), cfg.MasterSeed)
	fmt.Fprintf(w, "Mean Sojourn %-8s: %.2f min\n", cfg.Baseline, out.BaselineMean)
	fmt.Fprintf(w, "Mean Sojourn %-8s: %.2f min\n", cfg.Variant, out.VariantMean)
	fmt.Fprintf(w, "Mean Reduction       : %.2f min\n", out.Test.MeanDiff)

	fmt.Fprintln(w, "\n=== Paired t-test ===")
	fmt.Fprintf(w, "H0                   : mean sojourn of %s equals %s\n", cfg.Baseline, cfg.Variant)
	fmt.Fprintf(w, "t (df=%d)             : %.4f\n", out.Test.DF, out.Test.T)
	fmt.Fprintf(w, "p-value              : %.10f\n", out.Test.PValue)
	if out.Significant {
		fmt.Fprintf(w, "Conclusion           : reject H0 at alpha=%.2f, the difference is significant\n", cfg.Alpha)
	} else {
		fmt.Fprintf(w, "Conclusion           : no grounds to reject H0 at alpha=%.2f\n", cfg.Alpha)
	}
}

// printVerification displays the no-failure run and the stability check.
func printVerification(w io.Writer, v *experiment.Verification) {
	fmt.Fprintln(w, "=== Verification: no breakdowns ===")
	fmt.Fprintf(w, "Throughput           : %.4f items/min\n", v.NoFailure.Throughput)
	fmt.Fprintf(w, "Mean Sojourn Time    : %.2f min\n", v.NoFailure.MeanSojourn)
	fmt.Fprintf(w, "Completed Items      : %d\n", v.NoFailure.Completed)

	s := v.Stability
	fmt.Fprintln(w, "\n=== Verification: stability ===")
	for i, tp := range s.Throughputs {
		fmt.Fprintf(w, "Run %d (seed %7d)   : %.4f items/min\n", i+1, s.Seeds[i], tp)
	}
	fmt.Fprintf(w, "Mean Throughput      : %.4f items/min\n", s.Mean)
	fmt.Fprintf(w, "Std Dev              : %.4f\n", s.StdDev)
	fmt.Fprintf(w, "Coeff. of Variation  : %.2f%%\n", 100*s.CV)
	if s.Stable {
		fmt.Fprintln(w, "Verdict              : stable")
	} else {
		fmt.Fprintln(w, "Verdict              : high variability")
	}
}

// printComparisons displays one line per machine layout.
func printComparisons(w io.Writer, cs []experiment.Comparison) {
	fmt.Fprintln(w, "=== Layout Comparison ===")
	for _, c := range cs {
		fmt.Fprintf(w, "%-16s (A=%d, B=%d): throughput %.4f items/min, mean sojourn %.2f min\n",
			c.Scenario, c.Scenario.MachinesA, c.Scenario.MachinesB, c.Result.Throughput, c.Result.MeanSojourn)
	}
}
