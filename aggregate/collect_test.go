// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/compatcircuit/perf/benchlog"
	"github.com/compatcircuit/perf/config"
	"github.com/compatcircuit/perf/layout"
	"github.com/compatcircuit/perf/logscan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTree is a synthetic log tree with one instance, exp2_1, run in
// a single-party setup and a 4-party setup.
type testTree struct {
	t    *testing.T
	root string
}

func (tt testTree) write(path, content string) {
	tt.t.Helper()
	path = filepath.Join(tt.root, path)
	require.NoError(tt.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tt.t, os.WriteFile(path, []byte(content), 0o644))
}

func progressLog(total float64, steps map[string]float64, bytes int64, fieldShares int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[10:00:00 INF] Connected to all parties\n")
	fmt.Fprintf(&b, "[10:00:09 INF] Total time cost: %v seconds\n", total)
	if steps != nil {
		fmt.Fprintf(&b, "[10:00:09 INF] Step time costs:\n")
		for _, name := range []string{"IF-0", "IF-1", "TS-0", "TS-1"} {
			if v, ok := steps[name]; ok {
				fmt.Fprintf(&b, "[10:00:09 INF] %s: %v seconds\n", name, v)
			}
		}
	}
	if bytes > 0 {
		fmt.Fprintf(&b, "[10:00:09 INF] Total sent (all parties): %d bytes\n", bytes)
	}
	fmt.Fprintf(&b, "[10:00:09 INF] FieldBeaverTripleShare used: %d\n", fieldShares)
	fmt.Fprintf(&b, "[10:00:09 INF] BoolBeaverTripleShare used: 7\n")
	return b.String()
}

const proofTrace = `Start:   Connecting
End:     Connecting ..........................................1ms
Start:   KZG10::Setup with degree 64
End:     KZG10::Setup with degree 64 .........................250ms
End:     prove_gates .........................................500ms
End:     Checking evaluations ................................125ms
`

func proofStderr(elapsed, bytes int64) string {
	s := "1700000000\nproving...\n"
	if bytes > 0 {
		s += fmt.Sprintf("Stats { bytes_sent: %d, bytes_recv: 17 }\n", bytes)
	}
	return s + fmt.Sprintf("%d\n", 1700000000+elapsed)
}

var zkpMethods = []string{"ZkVmCircuit-Step-0", "ZkVmCircuit-Step-1", "MemoryTraceProverCircuit-2"}

func newTestTree(t *testing.T) (*config.Config, testTree) {
	tt := testTree{t, t.TempDir()}
	cfg := &config.Config{
		Root: tt.root,
		Experiments: []config.Experiment{{
			Name: "exp2",
			Setups: []config.Setup{
				{Name: "single", Prefix: "exp2_single", Parties: 1},
				{Name: "mpc-4t", Prefix: "exp2_mpc", Parties: 4},
			},
			Instances:  []string{"exp2_1"},
			StepCounts: map[string]int{"exp2_1": 2},
			ComputeMethods: []config.ComputeMethod{
				{Name: "IF", Mode: config.ModeSum},
				{Name: "TS", Mode: config.ModeLast},
			},
			ZkpCircuits: []config.Circuit{
				{Name: "ZkVmCircuit", Mode: config.ModeStep},
				{Name: "MemoryTraceProverCircuit", Mode: config.ModeCount},
			},
		}},
	}
	require.NoError(t, cfg.Validate())

	totals := []float64{1.0, 1.2, 0.9}
	normBytes := []int64{100, 120, 90}
	shares := []int{10, 10, 12}
	for i := range totals {
		tt.write(fmt.Sprintf("preprocess/log.preprocess.mpc-4t.exp2_1.%d.txt", i),
			progressLog(totals[i]*2, nil, 0, 0))
		steps := map[string]float64{"IF-0": 0.25, "IF-1": 0.125 * float64(i+1), "TS-0": 0.5, "TS-1": 0.0625}
		tt.write(fmt.Sprintf("compute/log-mpc-4t/0/log.exp2_mpc.exp2_1.%d.txt", i),
			progressLog(totals[i], steps, normBytes[i]*4*3, shares[i]))
	}
	tt.write("compute/log-single/0/log.exp2_single.exp2_1.0.txt",
		progressLog(0.5, map[string]float64{"IF-0": 0.125, "IF-1": 0.125, "TS-0": 0.25, "TS-1": 0.25}, 0, 3))

	for _, m := range zkpMethods {
		for i, elapsed := range []int64{2, 4} {
			base := fmt.Sprintf("zkp/log-mpc-4t/exp2_mpc.exp2_1.%d.%s.party0", i, m)
			tt.write(base+".stderr", proofStderr(elapsed, elapsed*50*3))
			tt.write(base+".stdout", proofTrace)
		}
		base := fmt.Sprintf("zkp/log-single/exp2_single.exp2_1.0.%s.single", m)
		tt.write(base+".stderr", proofStderr(1, 0))
		tt.write(base+".stdout", proofTrace)
	}
	return cfg, tt
}

func TestRun(t *testing.T) {
	cfg, _ := newTestTree(t)
	var calls atomic.Int32
	a := &Aggregator{Config: cfg, Progress: func(string, Key) { calls.Add(1) }}
	ds, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Tasks(), int(calls.Load()))
	assert.Equal(t, 5, a.Tasks())
	assert.Equal(t, []string{"exp2_compute", "exp2_preprocess", "exp2_zkp"}, ds.StageNames())

	pre := ds.Stages["exp2_preprocess"]
	assert.NotContains(t, pre.TimeCost, "single.exp2_1")
	assert.Equal(t, Series{"total": {2.0, 2.4, 1.8}}, pre.TimeCost["mpc-4t.exp2_1"])

	comp := ds.Stages["exp2_compute"]
	key := Key{"mpc-4t", "exp2_1"}.String()
	assert.Equal(t, []float64{1.0, 1.2, 0.9}, comp.TimeCost[key]["total"])
	assert.InDeltaSlice(t, []float64{100, 100, 100}, comp.BytesPerSecond[key]["total"], 1e-9)
	assert.NotContains(t, comp.BytesPerSecond, "single.exp2_1")
	assert.Equal(t, Series{
		"total": {1.0, 1.2, 0.9},
		"IF":    {0.375, 0.5, 0.625},
		"TS":    {0.0625, 0.0625, 0.0625},
	}, comp.Breakdown[key])
	assert.Equal(t, benchlog.PreshareUsage{
		benchlog.FieldBeaverTripleShare: 12,
		benchlog.BoolBeaverTripleShare:  7,
		benchlog.EdaBitsKaiShare:        0,
		benchlog.DaBitPrioPlusShare:     0,
	}, comp.PreshareUsage[key])
	assert.Equal(t, int64(3), comp.PreshareUsage["single.exp2_1"][benchlog.FieldBeaverTripleShare])

	zkp := ds.Stages["exp2_zkp"]
	require.Len(t, zkp.Proofs[key], len(zkpMethods))
	assert.Equal(t, Series{
		"total":  {2, 4},
		"setup":  {0.25, 0.25},
		"prove":  {0.5, 0.5},
		"verify": {0.125, 0.125},
	}, zkp.Proofs[key]["ZkVmCircuit-Step-1"])
	assert.Equal(t, Series{
		"total":  {6, 12},
		"setup":  {0.75, 0.75},
		"prove":  {1.5, 1.5},
		"verify": {0.375, 0.375},
	}, zkp.Combined[key])
	for _, m := range zkpMethods {
		assert.Equal(t, []float64{50, 50}, zkp.BytesPerSecond[key][m], m)
	}
	assert.NotContains(t, zkp.BytesPerSecond, "single.exp2_1")
	assert.Equal(t, []float64{1}, zkp.Proofs["single.exp2_1"]["MemoryTraceProverCircuit-2"]["total"])
}

func TestRunParallel(t *testing.T) {
	cfg, _ := newTestTree(t)
	serial, err := (&Aggregator{Config: cfg}).Run(context.Background())
	require.NoError(t, err)
	for _, chunk := range []int{1, 16} {
		cfg.ChunkSize = chunk
		parallel, err := (&Aggregator{Config: cfg, Workers: 4}).Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, serial, parallel)
	}
}

func TestRunMissingData(t *testing.T) {
	cfg, tt := newTestTree(t)
	require.NoError(t, os.Remove(filepath.Join(tt.root, "zkp/log-mpc-4t/exp2_mpc.exp2_1.0.ZkVmCircuit-Step-1.party0.stderr")))
	require.NoError(t, os.Remove(filepath.Join(tt.root, "zkp/log-mpc-4t/exp2_mpc.exp2_1.1.ZkVmCircuit-Step-1.party0.stderr")))
	for _, workers := range []int{1, 3} {
		_, err := (&Aggregator{Config: cfg, Workers: workers}).Run(context.Background())
		var mde *layout.MissingDataError
		require.True(t, errors.As(err, &mde), "got %v", err)
		assert.Contains(t, mde.Pattern, "ZkVmCircuit-Step-1.party0.stderr")
		assert.Contains(t, err.Error(), "exp2_zkp mpc-4t.exp2_1")
	}
}

func TestRunPartyIndex(t *testing.T) {
	cfg, tt := newTestTree(t)
	want, err := (&Aggregator{Config: cfg}).Run(context.Background())
	require.NoError(t, err)

	cfg.PartyIndex = 1
	_, err = (&Aggregator{Config: cfg}).Run(context.Background())
	var mde *layout.MissingDataError
	require.True(t, errors.As(err, &mde), "got %v", err)
	assert.Contains(t, mde.Pattern, "log-mpc-4t/1/")

	// Give party 1 a copy of party 0's compute and zkp logs.
	err = filepath.WalkDir(tt.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, _ := filepath.Rel(tt.root, path)
		var dst string
		switch {
		case strings.HasPrefix(rel, "compute/log-mpc-4t/0/"):
			dst = strings.Replace(rel, "/0/", "/1/", 1)
		case strings.Contains(rel, ".party0."):
			dst = strings.Replace(rel, ".party0.", ".party1.", 1)
		default:
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		tt.write(dst, string(content))
		return nil
	})
	require.NoError(t, err)
	// Remove party 0's zkp logs so only party 1 can satisfy the run.
	for _, m := range zkpMethods {
		for i := 0; i < 2; i++ {
			require.NoError(t, os.Remove(filepath.Join(tt.root, fmt.Sprintf("zkp/log-mpc-4t/exp2_mpc.exp2_1.%d.%s.party0.stderr", i, m))))
		}
	}

	got, err := (&Aggregator{Config: cfg}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRunMissingTotal(t *testing.T) {
	cfg, tt := newTestTree(t)
	tt.write("compute/log-mpc-4t/0/log.exp2_mpc.exp2_1.1.txt", "[x INF] crashed\n")
	_, err := (&Aggregator{Config: cfg}).Run(context.Background())
	var pnf *logscan.PatternNotFoundError
	require.True(t, errors.As(err, &pnf), "got %v", err)
	assert.Equal(t, "Total time cost:", pnf.Pattern)
	assert.True(t, strings.HasSuffix(pnf.File, "log.exp2_mpc.exp2_1.1.txt"))
}

func TestRunUnrecognizedLabel(t *testing.T) {
	cfg, tt := newTestTree(t)
	tt.write("zkp/log-single/exp2_single.exp2_1.0.ZkVmCircuit-Step-0.single.stdout", proofTrace+"End: MysteryStep ... 1s\n")
	_, err := (&Aggregator{Config: cfg}).Run(context.Background())
	var ule *benchlog.UnrecognizedLabelError
	require.True(t, errors.As(err, &ule), "got %v", err)
	assert.Equal(t, "MysteryStep", ule.Label)
}

func TestRunCanceled(t *testing.T) {
	cfg, _ := newTestTree(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&Aggregator{Config: cfg}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
