// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"fmt"
	"math"
	"strconv"
)

// A Scaler represents a scaling factor for a number and
// its scientific representation.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Unscaled value of 1 Prefix (e.g., 1 k => 1000)
	Prefix string  // Unit prefix ("k", "M", "Ki", etc)
}

// Format formats val and appends the unit prefix according to the
// given scale. For example, with a Decimal scale chosen for
// 123456789, Format returns "123.5M".
//
// Values should be tidied first (see Tidy) so that the prefix is
// applied to a base unit.
func (s Scaler) Format(val float64) string {
	buf := make([]byte, 0, 20)
	buf = strconv.AppendFloat(buf, val/s.Factor, 'f', s.Prec, 64)
	buf = append(buf, s.Prefix...)
	return string(buf)
}

type prefix struct {
	factor float64
	name   string
}

// Prefixes, largest first.
var (
	siPrefixes = []prefix{
		{1e12, "T"}, {1e9, "G"}, {1e6, "M"}, {1e3, "k"},
		{1, ""}, {1e-3, "m"}, {1e-6, "µ"}, {1e-9, "n"},
	}
	iecPrefixes = []prefix{
		{1 << 40, "Ti"}, {1 << 30, "Gi"}, {1 << 20, "Mi"}, {1 << 10, "Ki"}, {1, ""},
	}
)

// Scale formats val using at least three significant digits,
// appending an SI or binary prefix. See Scaler.Format.
func Scale(val float64, cls Class) string {
	return CommonScale([]float64{val}, cls).Format(val)
}

// CommonScale returns a common Scaler to apply to all values in vals.
// The scale is chosen by the non-zero value closest to zero and shows
// at least three significant digits for every value.
func CommonScale(vals []float64, cls Class) Scaler {
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && (min == 0 || v < min) {
			min = v
		}
	}
	if min == 0 {
		return Scaler{3, 1, ""}
	}

	var prefixes []prefix
	switch cls {
	default:
		panic(fmt.Sprintf("bad Class %v", cls))
	case Decimal:
		prefixes = siPrefixes
	case Binary:
		prefixes = iecPrefixes
	}

	p := prefixes[len(prefixes)-1]
	for _, cand := range prefixes {
		// Round the way Format will, so 999.96 picks "k" rather
		// than printing as "1000.0".
		if roundSig(min/cand.factor) >= 1 {
			p = cand
			break
		}
	}
	scaled := roundSig(min / p.factor)
	prec := 3
	switch {
	case scaled >= 100:
		prec = 1
	case scaled >= 10:
		prec = 2
	case scaled < 1:
		// Below the smallest prefix; add digits until three
		// significant figures show, up to 10 after the point.
		for prec < 10 && scaled < math.Pow(10, float64(3-prec-1)) {
			prec++
		}
	}
	return Scaler{prec, p.factor, p.name}
}

// roundSig rounds x to four significant digits, matching the largest
// precision CommonScale will print.
func roundSig(x float64) float64 {
	if x == 0 {
		return 0
	}
	f, _ := strconv.ParseFloat(strconv.FormatFloat(x, 'g', 4, 64), 64)
	return f
}
