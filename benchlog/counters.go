// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/compatcircuit/perf/logscan"
	"github.com/rs/zerolog/log"
)

var (
	computeBytesSent = regexp.MustCompile(`Total sent \(all parties\): (\d+) bytes|Total sent: (\d+) bytes`)
	zkpBytesSent     = regexp.MustCompile(`bytes_sent: (\d+),`)
)

// ReadComputeBytesSent returns the total number of bytes sent, as
// reported by the last "Total sent" line of an MPC party log.
func ReadComputeBytesSent(path string, chunkSize int) (int64, error) {
	log.Debug().Str("file", path).Msg("reading compute bytes sent")
	return readCounter(path, chunkSize, computeBytesSent)
}

// ReadZkpBytesSent returns the number of bytes sent, as reported by
// the last "bytes_sent:" line of a proof run's stderr.
func ReadZkpBytesSent(path string, chunkSize int) (int64, error) {
	log.Debug().Str("file", path).Msg("reading zkp bytes sent")
	return readCounter(path, chunkSize, zkpBytesSent)
}

func readCounter(path string, chunkSize int, re *regexp.Regexp) (int64, error) {
	v, err := logscan.Last(path, chunkSize, re.String(), logscan.Regexp(re))
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, &MalformedLogError{File: path, Msg: fmt.Sprintf("bad byte count %q", v)}
	}
	return n, nil
}

// Share types counted in PreshareUsage.
const (
	FieldBeaverTripleShare = "FieldBeaverTripleShare"
	BoolBeaverTripleShare  = "BoolBeaverTripleShare"
	EdaBitsKaiShare        = "EdaBitsKaiShare"
	DaBitPrioPlusShare     = "DaBitPrioPlusShare"
)

// ShareTypes lists the share types of a PreshareUsage.
var ShareTypes = []string{
	FieldBeaverTripleShare,
	BoolBeaverTripleShare,
	EdaBitsKaiShare,
	DaBitPrioPlusShare,
}

// PreshareUsage maps each of ShareTypes to the number of preshared
// values of that type a run consumed.
type PreshareUsage map[string]int64

// Equal reports whether u and v have the same counts.
func (u PreshareUsage) Equal(v PreshareUsage) bool {
	if len(u) != len(v) {
		return false
	}
	for k, n := range u {
		if m, ok := v[k]; !ok || m != n {
			return false
		}
	}
	return true
}

// shareCount returns an Extractor for lines such as
//
//	[12:00:00 INF] FieldBeaverTripleShare used: 1024
//
// A line mentioning the share type whose last field is not a count is
// not a match.
func shareCount(shareType string) logscan.Extractor {
	key := []byte(shareType)
	return func(line []byte) ([]byte, bool) {
		if !bytes.Contains(line, key) {
			return nil, false
		}
		fields := bytes.Fields(line)
		last := fields[len(fields)-1]
		if n, err := strconv.ParseInt(string(last), 10, 64); err != nil || n < 0 {
			return nil, false
		}
		return last, true
	}
}

// ReadPreshareUsage returns the preshare usage reported at the end of
// an MPC party log. Share types the log never reports were not used,
// and count as 0.
func ReadPreshareUsage(path string, chunkSize int) (PreshareUsage, error) {
	log.Debug().Str("file", path).Msg("reading preshare usage")
	exts := make(map[string]logscan.Extractor, len(ShareTypes))
	for _, st := range ShareTypes {
		exts[st] = shareCount(st)
	}
	found, err := logscan.LastEach(path, chunkSize, exts)
	if err != nil {
		return nil, err
	}
	usage := make(PreshareUsage, len(ShareTypes))
	for _, st := range ShareTypes {
		if v, ok := found[st]; ok {
			// shareCount already validated the count.
			usage[st], _ = strconv.ParseInt(string(v), 10, 64)
		} else {
			usage[st] = 0
		}
	}
	return usage, nil
}
