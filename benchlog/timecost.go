// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchlog parses the log dialects written by the MPC and ZKP
// benchmark programs.
//
// There are three dialects. Progress logs written by the MPC parties
// report a total time cost followed by a block of per-step costs
// (see ParseTimeCost). Proof system traces report one "End:" line per
// finished phase (see ParseTrace and Classify). Finally, counters such
// as bytes sent and shares consumed, and the start and end epoch
// markers of the ZKP runs, are found near the ends of the logs and are
// read with package logscan.
package benchlog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// TotalKey is the TimeCost key of a log's total time cost.
const TotalKey = "total"

const (
	totalMarker = "Total time cost:"
	stepsMarker = "Step time costs"
	secondsUnit = "seconds"

	maxLineSize = 16 << 20
)

// A TimeCost maps a step name to its time cost in seconds. The total
// time cost of the run is stored under TotalKey.
type TimeCost map[string]float64

// Total returns the total time cost and whether the log reported one.
func (tc TimeCost) Total() (float64, bool) {
	v, ok := tc[TotalKey]
	return v, ok
}

type parseState int

const (
	seekingTotal parseState = iota
	totalFound
	readingSteps
	done
)

// ParseTimeCost parses a progress log that reports, somewhere in it,
//
//	[timestamp INF] Total time cost: 3.5 seconds
//	[timestamp INF] Step time costs:
//	[timestamp INF] foo: 1.25 seconds
//	[timestamp INF] bar: 2 seconds
//
// Lines are compared after removing everything up to and including
// the first "]", which strips the timestamp and level prefix. Lines
// before the total are ignored. The step block is optional and is
// read only if it starts on the line immediately after the total. It
// ends at the first line that is not a "<name>: <value> seconds"
// line; nothing after that is read.
//
// If the log has no total, the result has no TotalKey entry.
// fileName is used in error messages.
func ParseTimeCost(r io.Reader, fileName string) (TimeCost, error) {
	res := make(TimeCost)
	state := seekingTotal
	s := bufio.NewScanner(r)
	s.Buffer(nil, maxLineSize)
	line := 0
	for state != done && s.Scan() {
		line++
		text := cleanLine(s.Text())
		switch state {
		case seekingTotal:
			i := strings.Index(text, totalMarker)
			if i < 0 {
				continue
			}
			v, err := parseSeconds(text[i+len(totalMarker):])
			if err != nil {
				return nil, &MalformedLogError{fileName, line, fmt.Sprintf("bad total time cost %q", text)}
			}
			res[TotalKey] = v
			state = totalFound

		case totalFound:
			if strings.Contains(text, stepsMarker) {
				state = readingSteps
			} else {
				state = done
			}

		case readingSteps:
			if !strings.Contains(text, ":") || !strings.Contains(text, secondsUnit) {
				state = done
				break
			}
			name, rest, _ := strings.Cut(text, ":")
			// Only the text up to a second colon, if any, holds the value.
			rest, _, _ = strings.Cut(rest, ":")
			v, err := parseSeconds(rest)
			if err != nil {
				return nil, &MalformedLogError{fileName, line, fmt.Sprintf("bad step time cost %q", text)}
			}
			res[strings.TrimSpace(name)] = v
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return res, nil
}

// ReadTimeCostFile parses the progress log at path.
func ReadTimeCostFile(path string) (TimeCost, error) {
	log.Debug().Str("file", path).Msg("reading time costs")
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTimeCost(f, path)
}

// cleanLine strips the "[timestamp level]" prefix from a log line.
func cleanLine(line string) string {
	if _, after, ok := strings.Cut(line, "]"); ok {
		line = after
	}
	return strings.TrimSpace(line)
}

// parseSeconds parses the number preceding the first "seconds" in s.
func parseSeconds(s string) (float64, error) {
	num, _, _ := strings.Cut(s, secondsUnit)
	return strconv.ParseFloat(strings.TrimSpace(num), 64)
}
