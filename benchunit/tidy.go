// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"strings"
	"sync"
)

// durationDivisors maps duration units to the number of that unit in
// one second. Conversions divide rather than multiply so that, for
// example, 2500µs becomes exactly the float64 nearest 0.0025.
var durationDivisors = map[string]float64{
	"s":   1,
	"sec": 1,
	"ms":  1e3,
	"µs":  1e6, // U+00B5 MICRO SIGN
	"μs":  1e6, // U+03BC GREEK SMALL LETTER MU
	"us":  1e6,
	"ns":  1e9,
}

// sizeFactors maps size units to their value in bytes.
var sizeFactors = map[string]float64{
	"B":     1,
	"bytes": 1,
	"kB":    1e3,
	"KB":    1e3,
	"MB":    1e6,
	"GB":    1e9,
	"KiB":   1 << 10,
	"MiB":   1 << 20,
	"GiB":   1 << 30,
}

// Seconds converts value, measured in the duration unit unit, to
// seconds. It reports false if unit is not a known duration unit.
func Seconds(value float64, unit string) (float64, bool) {
	v, tidied := Tidy(value, unit)
	if tidied != "sec" {
		return 0, false
	}
	return v, true
}

type tidyEntry struct {
	tidied string
	mul    float64
	div    float64
}

var tidyCache sync.Map // unit string -> *tidyEntry

// Tidy normalizes a value with a (possibly pre-scaled) unit into base
// units. Durations in the numerator become "sec" and sizes become
// "B"; durations in the denominator are rescaled the other way, so
// "B/ms" becomes "B/sec". Units with nothing to normalize are
// returned unchanged.
func Tidy(value float64, unit string) (tidiedValue float64, tidiedUnit string) {
	e := tidyUnit(unit)
	return value * e.mul / e.div, e.tidied
}

func tidyUnit(unit string) *tidyEntry {
	switch unit {
	case "sec", "B", "B/sec", "sec/op", "":
		return &tidyEntry{unit, 1, 1}
	}
	if e, ok := tidyCache.Load(unit); ok {
		return e.(*tidyEntry)
	}
	e := tidyUnitUncached(unit)
	tidyCache.Store(unit, e)
	return e
}

func tidyUnitUncached(unit string) *tidyEntry {
	type edit struct {
		pos, len int
		replace  string
	}
	e := &tidyEntry{mul: 1, div: 1}
	var edits []edit
	p := newParser(unit)
	for p.next() {
		if div, ok := durationDivisors[p.tok]; ok {
			if p.tok != "sec" {
				edits = append(edits, edit{p.pos, len(p.tok), "sec"})
			}
			if p.denom {
				e.mul *= div
			} else {
				e.div *= div
			}
			continue
		}
		if f, ok := sizeFactors[p.tok]; ok {
			if p.tok != "B" {
				edits = append(edits, edit{p.pos, len(p.tok), "B"})
			}
			if p.denom {
				e.div *= f
			} else {
				e.mul *= f
			}
		}
	}
	var b strings.Builder
	last := 0
	for _, ed := range edits {
		b.WriteString(unit[last:ed.pos])
		b.WriteString(ed.replace)
		last = ed.pos + ed.len
	}
	b.WriteString(unit[last:])
	e.tidied = b.String()
	return e
}
