// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchunit normalizes the units that appear in benchmark
// logs and formats numbers in those units.
//
// Durations are normalized to "sec" and sizes to "B", so that values
// read from different log dialects can be added and divided without
// further conversion.
package benchunit

import (
	"fmt"
	"unicode"
)

// A Class specifies what class of unit prefixes are in use.
type Class int

const (
	// Decimal indicates values of a given unit should be scaled
	// by powers of 1000, using SI prefixes such as "k" and "m".
	Decimal Class = iota
	// Binary indicates values of a given unit should be scaled by
	// powers of 1024, using IEC prefixes such as "Ki" and "Mi".
	Binary
)

func (c Class) String() string {
	switch c {
	case Decimal:
		return "Decimal"
	case Binary:
		return "Binary"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// ClassOf returns the Class of unit. If unit contains some measure of
// bytes in the numerator, this is Binary. Otherwise, it is Decimal.
func ClassOf(unit string) Class {
	p := newParser(unit)
	for p.next() {
		if _, ok := sizeFactors[p.tok]; ok && !p.denom {
			return Binary
		}
	}
	return Decimal
}

// parser splits a compound unit such as "B/sec" or "sec/op" into
// tokens, tracking whether each token is in the denominator.
type parser struct {
	rest string // unparsed unit
	rpos int    // bytes consumed from original unit

	tok   string
	pos   int  // byte offset of tok in original unit
	denom bool // current token is in denominator
}

func newParser(unit string) *parser {
	return &parser{rest: unit}
}

func isSep(r rune) bool {
	return r == '*' || r == '/' || r == '-' || unicode.IsSpace(r)
}

func (p *parser) next() bool {
	for i, r := range p.rest {
		switch {
		case r == '*':
			p.denom = false
		case r == '/':
			p.denom = true
		case !isSep(r):
			p.rpos += i
			p.rest = p.rest[i:]
			end := len(p.rest)
			for j, r := range p.rest {
				if isSep(r) {
					end = j
					break
				}
			}
			p.tok, p.pos = p.rest[:end], p.rpos
			p.rpos += end
			p.rest = p.rest[end:]
			return true
		}
	}
	p.rest = ""
	return false
}
