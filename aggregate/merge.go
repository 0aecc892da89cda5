// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"fmt"
	"sort"

	"github.com/compatcircuit/perf/benchlog"
	"github.com/compatcircuit/perf/config"
)

// A LengthMismatchError reports series that should hold one value per
// retry but do not line up. This means the logs of some retry are
// incomplete.
type LengthMismatchError struct {
	Name string // the series that does not line up
	File string // a file lacking a value, if known
	Want int
	Got  int
}

func (e *LengthMismatchError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: no %s value (%d of %d retries have one)", e.File, e.Name, e.Got, e.Want)
	}
	return fmt.Sprintf("%s has %d values, want %d", e.Name, e.Got, e.Want)
}

// Fold collects the per-retry records of one key into a Series, in
// record order. files[i] names the file records[i] was read from.
// Every method must be reported by every record.
func Fold(files []string, records []map[string]float64) (Series, error) {
	s := make(Series)
	for _, rec := range records {
		for method, v := range rec {
			s[method] = append(s[method], v)
		}
	}
	for _, method := range s.Methods() {
		if got := len(s[method]); got != len(records) {
			for i, rec := range records {
				if _, ok := rec[method]; !ok {
					return nil, &LengthMismatchError{Name: method, File: files[i], Want: len(records), Got: got}
				}
			}
		}
	}
	return s, nil
}

// SumSteps sums per-step series element-wise. All series must have
// the same length; they are never truncated or padded.
func SumSteps(steps ...[]float64) ([]float64, error) {
	if len(steps) == 0 {
		return nil, nil
	}
	sum := append([]float64(nil), steps[0]...)
	for i, s := range steps[1:] {
		if len(s) != len(sum) {
			return nil, &LengthMismatchError{Name: fmt.Sprintf("step %d", i+1), Want: len(sum), Got: len(s)}
		}
		for j, v := range s {
			sum[j] += v
		}
	}
	return sum, nil
}

// SumCircuits sums the series of several circuit methods key by key,
// giving the cost of all of a run's proofs. Circuits are added in
// sorted order of their names.
func SumCircuits(circuits map[string]Series) (Series, error) {
	names := make([]string, 0, len(circuits))
	for name := range circuits {
		names = append(names, name)
	}
	sort.Strings(names)

	sum := make(Series)
	for _, name := range names {
		for _, key := range circuits[name].Methods() {
			vals := circuits[name][key]
			prev, ok := sum[key]
			if !ok {
				sum[key] = append([]float64(nil), vals...)
				continue
			}
			if len(vals) != len(prev) {
				return nil, &LengthMismatchError{Name: name + " " + key, Want: len(prev), Got: len(vals)}
			}
			for i, v := range vals {
				prev[i] += v
			}
		}
	}
	return sum, nil
}

// ComputeBreakdown derives the cost of each compute method from the
// progress log series of a program of steps steps. The result has the
// total, and for each method the sum over its steps (config.ModeSum),
// the final step (config.ModeLast), or the step of the same name
// (config.ModePlain).
func ComputeBreakdown(s Series, steps int, methods []config.ComputeMethod) (Series, error) {
	total, ok := s[benchlog.TotalKey]
	if !ok {
		return nil, fmt.Errorf("no %s time cost", benchlog.TotalKey)
	}
	out := Series{benchlog.TotalKey: append([]float64(nil), total...)}
	for _, m := range methods {
		names := m.Steps(steps)
		parts := make([][]float64, len(names))
		for i, name := range names {
			vals, ok := s[name]
			if !ok {
				return nil, &LengthMismatchError{Name: name, Want: len(total), Got: 0}
			}
			parts[i] = vals
		}
		sum, err := SumSteps(parts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.Name, err)
		}
		out[m.Name] = sum
	}
	return out, nil
}
