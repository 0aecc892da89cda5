// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/benchlog"
	. "github.com/compatcircuit/perf/storage/db"
	"github.com/compatcircuit/perf/storage/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset(retries int) *aggregate.Dataset {
	ds := aggregate.NewDataset()
	series := func(base float64) []float64 {
		vals := make([]float64, retries)
		for i := range vals {
			vals[i] = base + float64(i)/8
		}
		return vals
	}

	comp := aggregate.NewStage("exp23_compute", "compute")
	for _, setup := range []string{"mpc-2t", "mpc-4t"} {
		key := aggregate.Key{Setup: setup, Instance: "exp2_1"}.String()
		comp.TimeCost[key] = aggregate.Series{"total": series(2), "IF-0": series(0.5), "TS-0": series(0.25)}
		comp.Breakdown[key] = aggregate.Series{"total": series(2), "IF": series(0.5), "TS": series(0.25)}
		comp.BytesPerSecond[key] = aggregate.Series{"total": series(1024)}
		comp.PreshareUsage[key] = benchlog.PreshareUsage{
			benchlog.FieldBeaverTripleShare: 7,
			benchlog.BoolBeaverTripleShare:  0,
			benchlog.EdaBitsKaiShare:        0,
			benchlog.DaBitPrioPlusShare:     1,
		}
	}
	ds.Stages[comp.Name] = comp

	zkp := aggregate.NewStage("exp23_zkp", "zkp")
	key := aggregate.Key{Setup: "mpc-2t", Instance: "exp2_1"}.String()
	zkp.Proofs[key] = map[string]aggregate.Series{
		"ZkVmCircuit-Step-0": {"total": series(3), "setup": series(1), "prove": series(1.5), "verify": series(0.25)},
	}
	zkp.Combined[key] = aggregate.Series{"total": series(3), "setup": series(1), "prove": series(1.5), "verify": series(0.25)}
	zkp.BytesPerSecond[key] = aggregate.Series{"ZkVmCircuit-Step-0": series(100)}
	ds.Stages[zkp.Name] = zkp
	return ds
}

func TestStoreLoad(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	// 30 retries produce more rows than one insert batch.
	for _, retries := range []int{1, 3, 30} {
		t.Run(fmt.Sprint(retries), func(t *testing.T) {
			ds := testDataset(retries)
			id, err := db.StoreDataset(ctx, "run", ds)
			require.NoError(t, err)
			got, err := db.LoadDataset(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, ds, got)
		})
	}

	n, err := db.CountUploads()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListUploads(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	var ids []string
	for _, label := range []string{"first", "second"} {
		id, err := db.StoreDataset(ctx, label, testDataset(1))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	assert.NotEqual(t, ids[0], ids[1])

	ups, err := db.ListUploads(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Upload{{ids[0], "first"}, {ids[1], "second"}}, ups)
}

func TestLoadMissing(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	for _, id := range []string{"1", "x", ""} {
		_, err := db.LoadDataset(ctx, id)
		assert.ErrorIs(t, err, ErrNoUpload, id)
	}
}

func TestStoreEmpty(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	id, err := db.StoreDataset(ctx, "empty", aggregate.NewDataset())
	require.NoError(t, err)
	got, err := db.LoadDataset(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, got.Stages)
}

func TestStoreCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	db := dbtest.NewDB(t)

	_, err := db.StoreDataset(ctx, "canceled", testDataset(1))
	assert.Error(t, err)
	n, err := db.CountUploads()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
