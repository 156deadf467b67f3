// Copyright (C) 2020-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/pqconsensus/metrics"
)

func TestCounterAddAndRead(t *testing.T) {
	require := require.New(t)

	c := metrics.NewCounter()
	c.Inc()
	c.Add(4)
	require.Equal(int64(5), c.Read())
}

func TestGaugeSetAndAdd(t *testing.T) {
	require := require.New(t)

	g := metrics.NewGauge()
	g.Set(10)
	g.Add(-3)
	require.Equal(float64(7), g.Read())
}

func TestAveragerReadsZeroBeforeAnyObservation(t *testing.T) {
	require := require.New(t)

	reg := prometheus.NewRegistry()
	a, err := metrics.NewAverager("test_avg", "test average", reg)
	require.NoError(err)
	require.Equal(float64(0), a.Read())

	a.Observe(2)
	a.Observe(4)
	require.Equal(float64(3), a.Read())
}

func TestRegistryNewAndGet(t *testing.T) {
	require := require.New(t)

	reg := metrics.NewRegistry()
	reg.NewCounter("vertices_finalized")

	c, err := reg.GetCounter("vertices_finalized")
	require.NoError(err)
	c.Inc()
	require.Equal(int64(1), c.Read())

	_, err = reg.GetCounter("does_not_exist")
	require.Error(err)
}

func TestMultiGathererMergesSources(t *testing.T) {
	require := require.New(t)

	a := prometheus.NewRegistry()
	counterA := prometheus.NewCounter(prometheus.CounterOpts{Name: "a_total", Help: "a"})
	require.NoError(a.Register(counterA))
	counterA.Inc()

	b := prometheus.NewRegistry()
	counterB := prometheus.NewCounter(prometheus.CounterOpts{Name: "b_total", Help: "b"})
	require.NoError(b.Register(counterB))
	counterB.Add(2)

	mg := metrics.NewMultiGatherer()
	require.NoError(mg.Register("a", a))
	require.NoError(mg.Register("b", b))

	families, err := mg.Gather()
	require.NoError(err)
	require.Len(families, 2)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(names["a_total"])
	require.True(names["b_total"])
}
