// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aclements/go-gg/table"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/benchmath"
	"github.com/compatcircuit/perf/benchunit"
)

// A row is one line of a summary table. Numbers are preformatted
// with a scale shared by the row.
type row struct {
	Key    string
	Metric string
	Method string
	N      int
	Mean   string
	Spread string
	Min    string
	Max    string
	StdDev string
	Unit   string

	warnings []error
}

func newRow(key, metric, method, unit string, values []float64) row {
	sum := benchmath.Summarize(values)
	sc := benchunit.CommonScale([]float64{sum.Mean, sum.Min, sum.Max, sum.StdDev}, benchunit.ClassOf(unit))
	return row{
		Key:    key,
		Metric: metric,
		Method: method,
		N:      sum.N,
		Mean:   sc.Format(sum.Mean),
		Spread: sum.SpreadString(),
		Min:    sc.Format(sum.Min),
		Max:    sc.Format(sum.Max),
		StdDev: sc.Format(sum.StdDev),
		Unit:   unit,

		warnings: sum.Warnings,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stageRows summarizes every series of st, ordered by key, metric and
// method.
func stageRows(st *aggregate.Stage) []row {
	var rows []row
	add := func(metric, unit string, series map[string]aggregate.Series) {
		for _, key := range sortedKeys(series) {
			s := series[key]
			for _, method := range s.Methods() {
				rows = append(rows, newRow(key, metric, method, unit, s[method]))
			}
		}
	}
	add(aggregate.MetricTimeCost, "sec", st.TimeCost)
	add(aggregate.MetricBreakdown, "sec", st.Breakdown)
	for _, key := range sortedKeys(st.Proofs) {
		circuits := st.Proofs[key]
		for _, circuit := range sortedKeys(circuits) {
			s := circuits[circuit]
			for _, method := range s.Methods() {
				rows = append(rows, newRow(key, aggregate.MetricTimeCost, circuit+"/"+method, "sec", s[method]))
			}
		}
	}
	add(aggregate.MetricCombined, "sec", st.Combined)
	add(aggregate.MetricBytesPerSecond, "B/sec", st.BytesPerSecond)
	for _, key := range sortedKeys(st.PreshareUsage) {
		u := st.PreshareUsage[key]
		for _, share := range sortedKeys(u) {
			r := newRow(key, aggregate.MetricPreshareUsage, share, "shares", []float64{float64(u[share])})
			// Share counts are exact; one value is not a missing spread.
			r.warnings = nil
			rows = append(rows, r)
		}
	}
	return rows
}

// bandwidthRows pools the bandwidth series of st by setup, across all
// of the setup's instances and circuits, followed by a row "all"
// pooling every series of the stage.
func bandwidthRows(st *aggregate.Stage) ([]row, error) {
	pooled := make(map[string][][]float64)
	for _, name := range sortedKeys(st.BytesPerSecond) {
		key, err := aggregate.ParseKey(name)
		if err != nil {
			return nil, err
		}
		s := st.BytesPerSecond[name]
		for _, method := range s.Methods() {
			pooled[key.Setup] = append(pooled[key.Setup], s[method])
		}
	}
	var rows []row
	var all [][]float64
	for _, setup := range sortedKeys(pooled) {
		rows = append(rows, newRow(setup, aggregate.MetricBytesPerSecond, "pooled", "B/sec", benchmath.Pool(pooled[setup]...)))
		all = append(all, pooled[setup]...)
	}
	if len(all) > 0 {
		rows = append(rows, newRow("all", aggregate.MetricBytesPerSecond, "pooled", "B/sec", benchmath.Pool(all...)))
	}
	return rows, nil
}

// printStats writes a summary table for every stage of ds, or a pooled
// bandwidth table if bandwidth is set.
func printStats(w io.Writer, ds *aggregate.Dataset, bandwidth bool) error {
	first := true
	for _, name := range ds.StageNames() {
		st := ds.Stages[name]
		rows := stageRows(st)
		if bandwidth {
			var err error
			if rows, err = bandwidthRows(st); err != nil {
				return err
			}
		}
		if len(rows) == 0 {
			continue
		}
		if !first {
			io.WriteString(w, "\n")
		}
		first = false
		io.WriteString(w, name+"\n")
		io.WriteString(w, strings.Repeat("-", len(name))+"\n")
		notes := markWarnings(rows)
		if err := table.Fprint(w, table.TableFromStructs(rows)); err != nil {
			return err
		}
		for i, note := range notes {
			fmt.Fprintf(w, "(%d) %s\n", i+1, note)
		}
	}
	return nil
}

// markWarnings appends a note number to the Spread of every row with
// summary warnings and returns the distinct warnings, in note order.
func markWarnings(rows []row) []string {
	var notes []string
	index := make(map[string]int)
	for i := range rows {
		r := &rows[i]
		for _, w := range r.warnings {
			msg := w.Error()
			n, ok := index[msg]
			if !ok {
				notes = append(notes, msg)
				n = len(notes)
				index[msg] = n
			}
			r.Spread += fmt.Sprintf(" (%d)", n)
		}
	}
	return notes
}
