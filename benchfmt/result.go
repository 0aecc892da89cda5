// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchfmt writes the Go benchmark format.
//
// This implements the format documented at
// https://golang.org/design/14313-benchmark-format, so that aggregated
// measurements can be examined with benchstat and the other tools
// that read it. Configuration that varies between results, such as
// the stage and key a measurement belongs to, is written as file
// configuration lines; the writer only emits the keys that change.
package benchfmt

// A Result is a single benchmark result and all of its measurements.
type Result struct {
	// Config is the set of file configuration pairs in effect for
	// this result. The order of new keys is preserved in the output.
	Config []Config

	// Name is the full name of this benchmark, without the
	// "Benchmark" prefix. It must not contain spaces.
	Name string

	// Iters is the number of iterations this benchmark's results
	// were averaged over.
	Iters int

	// Values is this benchmark's measurements and their units.
	Values []Value
}

// A Config is a single key/value configuration pair.
type Config struct {
	Key   string
	Value string
}

// A Value is a single value/unit measurement from a benchmark result.
//
// Values should use base units like "sec" and "B"; see
// benchunit.Tidy.
type Value struct {
	Value float64
	Unit  string
}

// ConfigIndex returns the index in r.Config of key.
func (r *Result) ConfigIndex(key string) (pos int, ok bool) {
	for i, cfg := range r.Config {
		if cfg.Key == key {
			return i, true
		}
	}
	return 0, false
}

// A UnitMetadata is a single piece of unit metadata, such as
// "assume=exact" for the unit "shares".
//
// The predefined keys are better={higher,lower}, which says whether
// higher or lower values of the unit are an improvement, and
// assume={nothing,exact}, which says whether repeated measurements
// of the unit vary.
type UnitMetadata struct {
	Unit  string
	Key   string
	Value string
}
