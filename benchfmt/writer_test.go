// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfmt

import (
	"strings"
	"testing"
)

func TestWriter(t *testing.T) {
	const want = `stage: exp1_compute
key: mpc-2t.exp1

BenchmarkTimeCost 1 1 sec
BenchmarkTimeCost 1 2 sec

key: mpc-4t.exp1

BenchmarkTimeCost 1 3 sec

key:
method: IF

BenchmarkBreakdown 1 0.5 sec
Unit shares assume=exact
BenchmarkPreshareUsage 1 1024 shares
`

	out := new(strings.Builder)
	w := NewWriter(out)
	write := func(res *Result) {
		t.Helper()
		if err := w.Write(res); err != nil {
			t.Fatal(err)
		}
	}
	cfg := func(kvs ...string) []Config {
		var c []Config
		for i := 0; i < len(kvs); i += 2 {
			c = append(c, Config{kvs[i], kvs[i+1]})
		}
		return c
	}
	sec := func(v float64) []Value { return []Value{{v, "sec"}} }

	write(&Result{Config: cfg("stage", "exp1_compute", "key", "mpc-2t.exp1"), Name: "TimeCost", Iters: 1, Values: sec(1)})
	write(&Result{Config: cfg("stage", "exp1_compute", "key", "mpc-2t.exp1"), Name: "TimeCost", Iters: 1, Values: sec(2)})
	write(&Result{Config: cfg("stage", "exp1_compute", "key", "mpc-4t.exp1"), Name: "TimeCost", Iters: 1, Values: sec(3)})
	write(&Result{Config: cfg("stage", "exp1_compute", "method", "IF"), Name: "Breakdown", Iters: 1, Values: sec(0.5)})
	if err := w.WriteUnitMetadata(UnitMetadata{"shares", "assume", "exact"}); err != nil {
		t.Fatal(err)
	}
	write(&Result{Config: cfg("stage", "exp1_compute", "method", "IF"), Name: "PreshareUsage", Iters: 1, Values: []Value{{1024, "shares"}}})

	if out.String() != want {
		t.Fatalf("want:\n%sgot:\n%s", want, out.String())
	}
}

func TestWriterRejects(t *testing.T) {
	w := NewWriter(new(strings.Builder))
	for _, res := range []*Result{
		{Name: "Time Cost", Iters: 1},
		{Name: "X", Iters: 1, Config: []Config{{"Stage", "a"}}},
		{Name: "X", Iters: 1, Config: []Config{{"stage", "a\nb"}}},
		{Name: "X", Iters: 1, Config: []Config{{"", "a"}}},
	} {
		if err := w.Write(res); err == nil {
			t.Errorf("Write(%+v) succeeded, want error", res)
		}
	}
}
