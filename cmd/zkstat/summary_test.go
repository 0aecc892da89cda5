// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"strings"
	"testing"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/benchlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *aggregate.Dataset {
	ds := aggregate.NewDataset()
	comp := aggregate.NewStage("exp23_compute", "compute")
	comp.TimeCost["mpc-2t.exp2_1"] = aggregate.Series{"total": {1, 3}}
	comp.BytesPerSecond["mpc-2t.exp2_1"] = aggregate.Series{"total": {1000, 3000}}
	comp.BytesPerSecond["mpc-2t.exp2_2"] = aggregate.Series{"total": {2000}}
	comp.BytesPerSecond["mpc-4t.exp2_1"] = aggregate.Series{"total": {500}}
	comp.PreshareUsage["mpc-2t.exp2_1"] = benchlog.PreshareUsage{benchlog.EdaBitsKaiShare: 5}
	ds.Stages[comp.Name] = comp

	zkp := aggregate.NewStage("exp23_zkp", "zkp")
	zkp.Proofs["single.exp2_1"] = map[string]aggregate.Series{
		"ZkVmCircuit-Step-0": {"prove": {0.002, 0.004}},
	}
	ds.Stages[zkp.Name] = zkp
	return ds
}

func TestStageRows(t *testing.T) {
	ds := testDataset()

	rows := stageRows(ds.Stages["exp23_compute"])
	require.Len(t, rows, 5)
	assert.Equal(t, row{
		Key: "mpc-2t.exp2_1", Metric: "timecost", Method: "total", N: 2,
		Mean: "2.000", Spread: "±50%", Min: "1.000", Max: "3.000", StdDev: "1.000", Unit: "sec",
	}, rows[0])
	assert.Equal(t, "bytes_per_second", rows[1].Metric)
	assert.Equal(t, "preshare_usage", rows[4].Metric)
	assert.Equal(t, "EdaBitsKaiShare", rows[4].Method)
	assert.Equal(t, "5.000", rows[4].Mean)
	assert.Equal(t, "±0%", rows[4].Spread)

	rows = stageRows(ds.Stages["exp23_zkp"])
	require.Len(t, rows, 1)
	assert.Equal(t, "ZkVmCircuit-Step-0/prove", rows[0].Method)
	assert.Equal(t, "3.000m", rows[0].Mean)
}

func TestBandwidthRows(t *testing.T) {
	rows, err := bandwidthRows(testDataset().Stages["exp23_compute"])
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "mpc-2t", rows[0].Key)
	assert.Equal(t, 3, rows[0].N)
	assert.Equal(t, "2000.0", rows[0].Mean)
	assert.Equal(t, "mpc-4t", rows[1].Key)
	assert.Equal(t, 1, rows[1].N)

	// The last row pools every setup: 1000, 3000, 2000 and 500.
	assert.Equal(t, "all", rows[2].Key)
	assert.Equal(t, 4, rows[2].N)
	assert.Equal(t, "1625.0", rows[2].Mean)
	assert.Equal(t, "500.0", rows[2].Min)
	assert.Equal(t, "3000.0", rows[2].Max)

	rows, err = bandwidthRows(testDataset().Stages["exp23_zkp"])
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkWarnings(t *testing.T) {
	rows := stageRows(testDataset().Stages["exp23_compute"])
	notes := markWarnings(rows)
	require.Equal(t, []string{"need >= 2 values for a spread"}, notes)
	// Single-retry bandwidth rows are marked; share counts are not.
	assert.Equal(t, "±50%", rows[0].Spread)
	assert.Equal(t, "±0% (1)", rows[2].Spread)
	assert.Equal(t, "±0%", rows[4].Spread)
}

func TestPrintStats(t *testing.T) {
	var out strings.Builder
	require.NoError(t, printStats(&out, testDataset(), false))
	got := out.String()
	assert.True(t, strings.HasPrefix(got, "exp23_compute\n-------------\n"), got)
	assert.Contains(t, got, "\nexp23_zkp\n---------\n")
	assert.Contains(t, got, "ZkVmCircuit-Step-0/prove")
	assert.Contains(t, got, "(1) need >= 2 values for a spread\n")

	out.Reset()
	require.NoError(t, printStats(&out, testDataset(), true))
	got = out.String()
	assert.Contains(t, got, "pooled")
	assert.Contains(t, got, "all")
	// The zkp stage has no bandwidth.
	assert.NotContains(t, got, "exp23_zkp")
}
