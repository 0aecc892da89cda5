// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"errors"
	"testing"

	"github.com/compatcircuit/perf/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandwidth(t *testing.T) {
	bw, err := Bandwidth([]float64{100, 120, 90}, []float64{1.0, 1.2, 0.9})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{100, 100, 100}, bw, 1e-9)

	// Index-wise, never sorted.
	bw, err = Bandwidth([]float64{1, 10}, []float64{10, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 10}, bw)

	_, err = Bandwidth([]float64{1, 2}, []float64{1})
	var lme *LengthMismatchError
	assert.True(t, errors.As(err, &lme), "got %v", err)

	_, err = Bandwidth([]float64{1, 2}, []float64{1, 0})
	assert.ErrorIs(t, err, ErrZeroElapsed)
}

func TestPerPartyBytes(t *testing.T) {
	v, err := PerPartyBytes(layout.Compute, 1200, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	v, err = PerPartyBytes(layout.Zkp, 300, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	_, err = PerPartyBytes(layout.Compute, 1200, 1)
	assert.Error(t, err)
	_, err = PerPartyBytes(layout.Preprocess, 1200, 4)
	assert.Error(t, err)
}
