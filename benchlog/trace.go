// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/compatcircuit/perf/benchunit"
	"github.com/rs/zerolog/log"
)

// A Span is one finished phase reported by a proof system trace.
type Span struct {
	Label   string
	Seconds float64
	Line    int // line number in the trace, for diagnostics
}

// Categories is the setup/prove/verify breakdown of a proof run, in
// seconds.
type Categories struct {
	Setup  float64
	Prove  float64
	Verify float64
}

// Category names, as used in aggregated datasets.
const (
	SetupKey  = "setup"
	ProveKey  = "prove"
	VerifyKey = "verify"
)

// Map returns c keyed by SetupKey, ProveKey and VerifyKey.
func (c Categories) Map() map[string]float64 {
	return map[string]float64{SetupKey: c.Setup, ProveKey: c.Prove, VerifyKey: c.Verify}
}

const endPrefix = "End:"

// endLine matches a trace line such as
//
//	End:     Checking evaluations ...................2.500ms
//
// The label is followed by optional padding dots, then the value and
// its unit with no space between them.
var endLine = regexp.MustCompile(`^End:\s+(.*?)\s*\.*\s*([\d.]+)(s|ms|µs|μs|us|ns)`)

// ParseTrace returns every "End:" span of a proof system trace, in
// the order they appear, with values converted to seconds. Repeated
// labels are all kept. Lines that do not start with "End:" are
// ignored; an "End:" line that cannot be parsed is an error.
func ParseTrace(r io.Reader, fileName string) ([]Span, error) {
	var spans []Span
	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLineSize)
	line := 0
	for s.Scan() {
		line++
		text := s.Text()
		if !strings.HasPrefix(text, endPrefix) {
			continue
		}
		m := endLine.FindStringSubmatch(strings.TrimSpace(text))
		if m == nil {
			return nil, &MalformedLogError{fileName, line, fmt.Sprintf("malformed trace line %q", text)}
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, &MalformedLogError{fileName, line, fmt.Sprintf("bad trace value %q", m[2]+m[3])}
		}
		secs, _ := benchunit.Seconds(v, m[3])
		spans = append(spans, Span{Label: m[1], Seconds: secs, Line: line})
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return spans, nil
}

var setupPrefixes = []string{
	"KZG10::Setup",
	"Constructing `powers`",
	"Constructing `shifted_powers`",
}

var proveLabels = map[string]bool{
	"commit: p":     true,
	"prove_public":  true,
	"prove_gates":   true,
	"prove_wiring":  true,
	"timed section": true,
}

// category returns the category key of a trace label, "" for labels
// that are deliberately not counted, or ok == false for labels
// outside the taxonomy.
func category(label string) (key string, ok bool) {
	switch label {
	case "Connecting":
		return "", true
	case "Committing to polynomials":
		return SetupKey, true
	case "Checking evaluations":
		return VerifyKey, true
	}
	for _, p := range setupPrefixes {
		if strings.HasPrefix(label, p) {
			return SetupKey, true
		}
	}
	if proveLabels[label] {
		return ProveKey, true
	}
	return "", false
}

// Classify sums spans into setup, prove and verify time. Every span
// must have a known label; an unknown label is reported as an
// *UnrecognizedLabelError rather than dropped.
func Classify(spans []Span, fileName string) (Categories, error) {
	var c Categories
	for _, sp := range spans {
		key, ok := category(sp.Label)
		if !ok {
			return Categories{}, &UnrecognizedLabelError{File: fileName, Line: sp.Line, Label: sp.Label}
		}
		switch key {
		case SetupKey:
			c.Setup += sp.Seconds
		case ProveKey:
			c.Prove += sp.Seconds
		case VerifyKey:
			c.Verify += sp.Seconds
		}
	}
	return c, nil
}

// ReadCategoriesFile parses and classifies the trace at path.
func ReadCategoriesFile(path string) (Categories, error) {
	log.Debug().Str("file", path).Msg("reading trace")
	f, err := os.Open(path)
	if err != nil {
		return Categories{}, err
	}
	defer f.Close()
	spans, err := ParseTrace(f, path)
	if err != nil {
		return Categories{}, err
	}
	return Classify(spans, path)
}
