// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchmath summarizes repeated benchmark measurements.
//
// Summaries report the mean, extremes and spread of a series of
// retries. There is deliberately no statistical testing here; the
// series are small and the runs are not independent enough for it.
//
// Summaries carry a list of warnings, captured as an []error value.
// These don't prevent summarizing, but should be presented to the
// user along with the summary.
package benchmath

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
)

// A Sample is a set of repeated measurements of one quantity.
type Sample struct {
	// Values are the measured values, in ascending order.
	Values []float64
}

// NewSample constructs a Sample from a copy of values.
func NewSample(values []float64) *Sample {
	v := append([]float64(nil), values...)
	sort.Float64s(v)
	return &Sample{v}
}

func (s *Sample) sample() stats.Sample {
	return stats.Sample{Xs: s.Values, Sorted: true}
}

// A Summary summarizes a Sample.
type Summary struct {
	N    int
	Mean float64
	Min  float64
	Max  float64
	// StdDev is the population standard deviation, which is 0 for a
	// single value.
	StdDev float64

	// Warnings is a list of warnings about this summary.
	Warnings []error
}

var (
	errNoValues  = errors.New("no values")
	errOneValue  = errors.New("need >= 2 values for a spread")
	errNonFinite = errors.New("values include NaN or ±Inf")
)

// Summary computes the summary statistics of s.
func (s *Sample) Summary() Summary {
	n := len(s.Values)
	if n == 0 {
		nan := math.NaN()
		return Summary{Mean: nan, Min: nan, Max: nan, StdDev: nan, Warnings: []error{errNoValues}}
	}
	ss := s.sample()
	sum := Summary{N: n, Mean: ss.Mean()}
	sum.Min, sum.Max = ss.Bounds()
	// stats.Sample.Variance is the unbiased sample variance.
	sum.StdDev = math.Sqrt(ss.Variance() * float64(n-1) / float64(n))
	if n == 1 {
		sum.Warnings = append(sum.Warnings, errOneValue)
	}
	if math.IsInf(sum.Min, 0) || math.IsInf(sum.Max, 0) || math.IsNaN(sum.Mean) {
		sum.Warnings = append(sum.Warnings, errNonFinite)
	}
	return sum
}

// Summarize is shorthand for NewSample(values).Summary().
func Summarize(values []float64) Summary {
	return NewSample(values).Summary()
}

// Pool joins several series into one, for summaries across keys.
func Pool(series ...[]float64) []float64 {
	var n int
	for _, s := range series {
		n += len(s)
	}
	out := make([]float64, 0, n)
	for _, s := range series {
		out = append(out, s...)
	}
	return out
}

// SpreadString returns the standard deviation as a percentage of the
// mean, such as "±3%".
func (s Summary) SpreadString() string {
	if s.N == 0 || math.IsNaN(s.StdDev) {
		return "?"
	}
	if s.StdDev == 0 {
		return "±0%"
	}
	if s.Mean == 0 || math.IsInf(s.StdDev, 0) {
		return "∞"
	}
	return fmt.Sprintf("±%.0f%%", 100*s.StdDev/math.Abs(s.Mean))
}
