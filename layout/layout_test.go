// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package layout

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternString(t *testing.T) {
	for _, test := range []struct {
		p    Pattern
		want string
	}{
		{
			Pattern{Root: "rawdata", Stage: Preprocess, Setup: "mpc-4t", Instance: "exp2_1"},
			"rawdata/preprocess/log.preprocess.mpc-4t.exp2_1.*.txt",
		},
		{
			Pattern{Root: "rawdata", Stage: Preprocess, Setup: "mpc-2t", Instance: "exp1", Retry: "3"},
			"rawdata/preprocess/log.preprocess.mpc-2t.exp1.3.txt",
		},
		{
			Pattern{Root: "rawdata", Stage: Compute, Setup: "mpc-4t", Prefix: "exp23_mpc_thread", Instance: "exp3_16", Party: PartyIndex(0)},
			"rawdata/compute/log-mpc-4t/0/log.exp23_mpc_thread.exp3_16.*.txt",
		},
		{
			Pattern{Root: "rawdata", Stage: Compute, Setup: "single", Prefix: "exp1_single", Party: "0"},
			"rawdata/compute/log-single/0/log.exp1_single.*.txt",
		},
		{
			Pattern{Root: "/r", Stage: Zkp, Setup: "mpc-8t", Prefix: "exp23_mpc_thread", Instance: "exp2_5", Method: "ZkVmCircuit-Step-4", Party: "party0"},
			"/r/zkp/log-mpc-8t/exp23_mpc_thread.exp2_5.*.ZkVmCircuit-Step-4.party0.stderr",
		},
		{
			Pattern{Root: "/r", Stage: Zkp, Setup: "single", Prefix: "exp1_single", Method: "Inversion-1000", Party: "single"},
			"/r/zkp/log-single/exp1_single.*.Inversion-1000.single.stderr",
		},
	} {
		assert.Equal(t, test.want, test.p.String())
	}
	assert.Panics(t, func() { _ = Pattern{Stage: "bogus"}.String() })
}

func TestStdout(t *testing.T) {
	assert.Equal(t, "a/b.0.X.party0.stdout", Stdout("a/b.0.X.party0.stderr"))
}

func TestGlob(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, Compute, "log-mpc-2t", "0")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range []string{
		"log.p.inst.2.txt",
		"log.p.inst.0.txt",
		"log.p.inst.1.txt",
		"log.p.other.0.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	p := Pattern{Root: root, Stage: Compute, Setup: "mpc-2t", Prefix: "p", Instance: "inst", Party: "0"}
	files, err := Glob(p)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "log.p.inst.0.txt"),
		filepath.Join(dir, "log.p.inst.1.txt"),
		filepath.Join(dir, "log.p.inst.2.txt"),
	}, files)

	p.Instance = "absent"
	_, err = Glob(p)
	var mde *MissingDataError
	require.True(t, errors.As(err, &mde), "got %v", err)
	assert.Equal(t, p.String(), mde.Pattern)

	p.Instance = "[bad"
	_, err = Glob(p)
	assert.ErrorIs(t, err, filepath.ErrBadPattern)
}
