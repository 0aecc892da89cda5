// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"

	"github.com/compatcircuit/perf/logscan"
	"github.com/rs/zerolog/log"
)

// ReadEpochElapsed returns the wall-clock duration, in seconds, of a
// proof run. The run's stderr log starts and ends with a line holding
// a Unix time in seconds; the first and last non-blank lines of the
// file are those markers.
func ReadEpochElapsed(path string, chunkSize int) (float64, error) {
	log.Debug().Str("file", path).Msg("reading epoch markers")
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return 0, err
	}

	var first []byte
	firstLine := 0
	fs := bufio.NewScanner(f)
	fs.Buffer(nil, maxLineSize)
	for fs.Scan() {
		firstLine++
		if b := bytes.TrimSpace(fs.Bytes()); len(b) > 0 {
			first = b
			break
		}
	}
	if err := fs.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if first == nil {
		return 0, &MalformedLogError{File: path, Msg: "no epoch markers in empty log"}
	}
	start, err := strconv.ParseInt(string(first), 10, 64)
	if err != nil {
		return 0, &MalformedLogError{path, firstLine, fmt.Sprintf("bad start epoch %q", first)}
	}

	var last []byte
	rs := logscan.NewScanner(f, fi.Size(), chunkSize)
	for rs.Scan() {
		if b := bytes.TrimSpace(rs.Bytes()); len(b) > 0 {
			last = b
			break
		}
	}
	if err := rs.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	end, err := strconv.ParseInt(string(last), 10, 64)
	if err != nil {
		return 0, &MalformedLogError{File: path, Msg: fmt.Sprintf("bad end epoch %q", last)}
	}
	return float64(end - start), nil
}
