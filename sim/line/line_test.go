package line

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/linesim/sim/internal/testutil"
	"github.com/inference-sim/linesim/sim/trace"
)

// sameOutcome compares everything but the run id.
func sameOutcome(t *testing.T, a, b *Result) {
	t.Helper()
	ac, bc := *a, *b
	ac.RunID, bc.RunID = "", ""
	assert.Equal(t, ac, bc)
}

func TestLine_ReferenceScenario(t *testing.T) {
	// GIVEN the reference configuration with seed 42
	cfg := DefaultConfig()

	// WHEN simulated to horizon 10000
	res, err := Simulate(cfg)
	require.NoError(t, err)

	// THEN items complete, sojourn covers mean service and utilizations are sane
	assert.Greater(t, res.Completed, 0)
	assert.GreaterOrEqual(t, res.MeanSojourn, 23.5)
	assert.Equal(t, int64(42), res.Seed)
	testutil.AssertFloat64Equal(t, "throughput", float64(res.Completed)/10000, res.Throughput, 1e-12)
	require.Len(t, res.Machines, 5)
	for _, m := range res.Machines {
		assert.Greater(t, m.Utilization, 0.0, m.Name)
		testutil.AssertWithin(t, m.Name+" utilization", m.Utilization, 0, 1)
	}
	assert.Equal(t, "A_0", res.Machines[0].Name)
	assert.Equal(t, "B_1", res.Machines[4].Name)
	assert.Greater(t, res.TotalFailures(), 0)
}

func TestLine_Determinism(t *testing.T) {
	// GIVEN two lines with the same seed and event tracing on
	cfg := DefaultConfig()
	cfg.TraceLevel = trace.TraceLevelEvents
	l1, err := NewLine(cfg, nil)
	require.NoError(t, err)
	l2, err := NewLine(cfg, nil)
	require.NoError(t, err)

	// WHEN both run
	r1, err := l1.Run()
	require.NoError(t, err)
	r2, err := l2.Run()
	require.NoError(t, err)

	// THEN event orderings and results are identical
	s1, s2 := trace.Summarize(l1.Trace()), trace.Summarize(l2.Trace())
	assert.Equal(t, s1.Digest, s2.Digest)
	assert.Equal(t, s1.TotalEvents, s2.TotalEvents)
	assert.Equal(t, l1.Statistics().Sojourns, l2.Statistics().Sojourns)
	sameOutcome(t, r1, r2)
	assert.NotEqual(t, r1.RunID, r2.RunID)
}

func TestLine_DifferentSeedsDiverge(t *testing.T) {
	r1, err := Simulate(DefaultConfig().WithSeed(1))
	require.NoError(t, err)
	r2, err := Simulate(DefaultConfig().WithSeed(2))
	require.NoError(t, err)
	assert.NotEqual(t, r1.MeanSojourn, r2.MeanSojourn)
}

func TestLine_Conservation(t *testing.T) {
	for _, policy := range []ServicePolicy{PolicyRestart, PolicyResume} {
		t.Run(string(policy), func(t *testing.T) {
			// GIVEN the reference line under each service policy
			cfg := DefaultConfig()
			cfg.ServicePolicy = policy
			l, err := NewLine(cfg, nil)
			require.NoError(t, err)

			// WHEN it runs
			res, err := l.Run()
			require.NoError(t, err)

			// THEN every completion is counted once and never exceeds arrivals
			stats := l.Statistics()
			assert.Equal(t, res.Completed, len(stats.Sojourns))
			assert.LessOrEqual(t, res.Completed, res.Spawned)
			servedA, servedB := 0, 0
			for _, m := range l.Machines() {
				if m.Stage() == StageA {
					servedA += m.Served()
				} else {
					servedB += m.Served()
				}
			}
			assert.Equal(t, res.Completed, servedB)
			assert.GreaterOrEqual(t, servedA, servedB)
			assert.LessOrEqual(t, servedA, res.Spawned)
		})
	}
}

func TestLine_NonNegativity(t *testing.T) {
	cfg := DefaultConfig().WithSeed(7)
	cfg.ServicePolicy = PolicyResume
	l, err := NewLine(cfg, nil)
	require.NoError(t, err)
	res, err := l.Run()
	require.NoError(t, err)

	for _, v := range l.Statistics().Sojourns {
		assert.GreaterOrEqual(t, v, 0.0)
	}
	for _, v := range l.Statistics().InterStageWaits {
		assert.Greater(t, v, 0.0)
	}
	for _, m := range res.Machines {
		assert.GreaterOrEqual(t, m.BusyTime, 0.0)
		assert.GreaterOrEqual(t, m.RepairTime, 0.0)
		assert.GreaterOrEqual(t, m.UpTime, 0.0)
		assert.GreaterOrEqual(t, m.Failures, 0)
	}
}

func TestLine_NoFailureBaseline(t *testing.T) {
	// GIVEN machines that effectively never break
	cfg := DefaultConfig()
	cfg.MTBF = R(1e12, 1e12)
	cfg.MTTR = R(0, 0)
	l, err := NewLine(cfg, nil)
	require.NoError(t, err)

	// WHEN it runs
	res, err := l.Run()
	require.NoError(t, err)

	// THEN no repair time accrues and the line keeps up with arrivals
	assert.Equal(t, 0, res.TotalFailures())
	for _, m := range res.Machines {
		assert.Equal(t, 0.0, m.RepairTime)
		assert.InDelta(t, m.BusyTime/cfg.Horizon, m.Utilization, 1e-12)
	}
	assert.Less(t, res.Spawned-res.Completed, 20)
	testutil.AssertWithin(t, "spawned", float64(res.Spawned), 10000.0/15.0-100, 10000.0/15.0+100)
	assert.GreaterOrEqual(t, res.MeanSojourn, 12.0)
}

func TestLine_NoFailureSaturation(t *testing.T) {
	// GIVEN arrivals far faster than either stage can serve and no breakdowns
	cfg := DefaultConfig()
	cfg.MTBF = R(1e12, 1e12)
	cfg.MTTR = R(0, 0)
	cfg.InterArrival = R(1, 2)

	for _, policy := range []ServicePolicy{PolicyRestart, PolicyResume} {
		t.Run(string(policy), func(t *testing.T) {
			cfg.ServicePolicy = policy

			// WHEN it runs
			res, err := Simulate(cfg)
			require.NoError(t, err)

			// THEN throughput sits between the worst and best stage capacity
			// (3/15 for A, 2/20 for B at worst; 2/10 for B at best)
			testutil.AssertWithin(t, "throughput", res.Throughput, 0.1, 0.2)
			assert.Greater(t, res.Spawned-res.Completed, 1000)
			for _, m := range res.Machines {
				testutil.AssertWithin(t, m.Name+" utilization", m.Utilization, 0, 1)
				assert.Equal(t, 0.0, m.OverlapTime, m.Name)
				if m.Stage == StageB {
					assert.Greater(t, m.Utilization, 0.95, m.Name)
				}
			}
		})
	}
}

func TestLine_SaturatedWithBreakdowns_UtilizationAtMostOne(t *testing.T) {
	// GIVEN a single stage-B machine flooded with work while breaking down
	cfg := DefaultConfig()
	cfg.MachinesB = 1
	cfg.InterArrival = R(1, 2)

	for _, policy := range []ServicePolicy{PolicyRestart, PolicyResume} {
		t.Run(string(policy), func(t *testing.T) {
			cfg.ServicePolicy = policy

			// WHEN it runs
			res, err := Simulate(cfg)
			require.NoError(t, err)

			// THEN no machine is utilized more than the whole horizon
			require.Greater(t, res.TotalFailures(), 0)
			for _, m := range res.Machines {
				testutil.AssertWithin(t, m.Name+" utilization", m.Utilization, 0, 1)
				busyOrDown := m.BusyTime + m.RepairTime - m.OverlapTime
				assert.LessOrEqual(t, busyOrDown, cfg.Horizon+1e-9, m.Name)
			}
			b := res.Machines[len(res.Machines)-1]
			require.Equal(t, "B_0", b.Name)
			if policy == PolicyRestart {
				// repairs overlapping uninterrupted service are counted once
				assert.Greater(t, b.OverlapTime, 0.0)
			} else {
				assert.Equal(t, 0.0, b.OverlapTime)
			}
		})
	}
}

func TestLine_MoreStageBCapacityLowersSojourn(t *testing.T) {
	// GIVEN 30 seeds run with 2 and then 3 stage-B machines
	var sum2, sum3, util2, util3 float64
	const n = 30
	for seed := int64(1); seed <= n; seed++ {
		cfg := DefaultConfig().WithSeed(seed)
		cfg.MachinesB = 2
		r2, err := Simulate(cfg)
		require.NoError(t, err)
		cfg.MachinesB = 3
		r3, err := Simulate(cfg)
		require.NoError(t, err)

		// same seed means the same arrival stream
		assert.Equal(t, r2.Spawned, r3.Spawned)
		sum2 += r2.MeanSojourn
		sum3 += r3.MeanSojourn
		util2 += r2.StageUtilization(StageB)
		util3 += r3.StageUtilization(StageB)
	}

	// THEN on average the extra machine shortens sojourn and spreads the load
	assert.Less(t, sum3/n, sum2/n)
	assert.Less(t, util3/n, util2/n)
}

func TestLine_ResetMakesAggregationIdempotent(t *testing.T) {
	// GIVEN one Statistics reused across two runs with the same seed
	stats := NewStatistics()
	l1, err := NewLine(DefaultConfig(), stats)
	require.NoError(t, err)
	r1, err := l1.Run()
	require.NoError(t, err)
	first := append([]float64(nil), stats.Sojourns...)

	// WHEN it is reset and fed again
	stats.Reset()
	assert.Equal(t, 0, stats.Completed)
	l2, err := NewLine(DefaultConfig(), stats)
	require.NoError(t, err)
	r2, err := l2.Run()
	require.NoError(t, err)

	// THEN the second aggregation matches the first
	assert.Equal(t, first, stats.Sojourns)
	sameOutcome(t, r1, r2)
}

func TestLine_TraceRecordsEveryEventAndTransition(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizon = 2000
	cfg.TraceLevel = trace.TraceLevelEvents
	l, err := NewLine(cfg, nil)
	require.NoError(t, err)
	res, err := l.Run()
	require.NoError(t, err)

	st := l.Trace()
	require.NotNil(t, st)
	assert.Equal(t, int(l.Simulator().Dispatched()), len(st.Events))
	assert.Equal(t, l.RunID(), st.Config.RunID)

	// every failure is a transition; every repair but possibly the last too
	failures := res.TotalFailures()
	assert.LessOrEqual(t, len(st.Transitions), 2*failures)
	assert.GreaterOrEqual(t, len(st.Transitions), 2*failures-len(res.Machines))

	kinds := trace.Summarize(st).KindDistribution
	assert.Contains(t, kinds, "item")
	assert.Contains(t, kinds, "breakdown")
	assert.Contains(t, kinds, "arrivals")
}

func TestLine_TraceOffByDefault(t *testing.T) {
	l, err := NewLine(DefaultConfig(), nil)
	require.NoError(t, err)
	assert.Nil(t, l.Trace())
}

func TestLine_RunTwiceFails(t *testing.T) {
	l, err := NewLine(DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = l.Run()
	require.NoError(t, err)
	_, err = l.Run()
	assert.Error(t, err)
}

func TestNewLine_RejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MachinesB = 0
	l, err := NewLine(cfg, nil)
	assert.Nil(t, l)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestResult_StageUtilization(t *testing.T) {
	r := &Result{Machines: []MachineReport{
		{Stage: StageA, Utilization: 0.2},
		{Stage: StageA, Utilization: 0.4},
		{Stage: StageB, Utilization: 0.9},
	}}
	assert.InDelta(t, 0.3, r.StageUtilization(StageA), 1e-12)
	assert.InDelta(t, 0.9, r.StageUtilization(StageB), 1e-12)
}
