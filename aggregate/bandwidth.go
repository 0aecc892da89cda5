// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"errors"
	"fmt"

	"github.com/compatcircuit/perf/layout"
)

// ErrZeroElapsed is returned by Bandwidth for a retry that took no
// time.
var ErrZeroElapsed = errors.New("zero elapsed time")

// PerPartyBytes normalizes the bytes sent by a run to the bytes one
// party sent to one peer. Compute logs count the traffic of all
// parties, so the divisor is n(n-1); zkp logs count one party's
// traffic to its n-1 peers. Runs with fewer than two parties have no
// peers and are an error.
func PerPartyBytes(kind string, bytes int64, parties int) (float64, error) {
	if parties < 2 {
		return 0, fmt.Errorf("%d-party run has no peers", parties)
	}
	n := float64(parties)
	switch kind {
	case layout.Compute:
		return float64(bytes) / (n * (n - 1)), nil
	case layout.Zkp:
		return float64(bytes) / (n - 1), nil
	}
	return 0, fmt.Errorf("no bytes sent in %s stage", kind)
}

// Bandwidth divides bytes by seconds index by index. Both series must
// come from the same retries in the same order; they are never
// re-sorted or matched by value.
func Bandwidth(bytes, seconds []float64) ([]float64, error) {
	if len(bytes) != len(seconds) {
		return nil, &LengthMismatchError{Name: "elapsed time", Want: len(bytes), Got: len(seconds)}
	}
	bw := make([]float64, len(bytes))
	for i, b := range bytes {
		if seconds[i] == 0 {
			return nil, fmt.Errorf("retry %d: %w", i, ErrZeroElapsed)
		}
		bw[i] = b / seconds[i]
	}
	return bw, nil
}
