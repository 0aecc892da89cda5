// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logscan

import (
	"fmt"
	"os"
	"regexp"
)

// An Extractor examines a single line and, if the line carries the
// value it is looking for, returns that value's text and true.
type Extractor func(line []byte) (value []byte, ok bool)

// Regexp returns an Extractor that matches re anywhere in the line
// and extracts the first non-empty capture group. This lets one
// expression describe several alternative spellings of a line, as in
// `total: (\d+)|sum: (\d+)`.
func Regexp(re *regexp.Regexp) Extractor {
	return func(line []byte) ([]byte, bool) {
		m := re.FindSubmatch(line)
		if m == nil {
			return nil, false
		}
		for _, g := range m[1:] {
			if g != nil {
				return g, true
			}
		}
		return m[0], true
	}
}

// A PatternNotFoundError reports that a file contains no line
// matching a required pattern.
type PatternNotFoundError struct {
	File    string
	Pattern string
}

func (e *PatternNotFoundError) Error() string {
	return fmt.Sprintf("%s: no line matches %q", e.File, e.Pattern)
}

// Last returns the value extracted from the last line of the named
// file accepted by ext. pattern describes ext in the error returned
// when no line matches, which is a *PatternNotFoundError.
func Last(path string, chunkSize int, pattern string, ext Extractor) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	s := NewScanner(f, fi.Size(), chunkSize)
	for s.Scan() {
		if v, ok := ext(s.Bytes()); ok {
			return append([]byte(nil), v...), nil
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return nil, &PatternNotFoundError{File: path, Pattern: pattern}
}

// LastEach finds, for every key of exts, the value extracted from the
// last line of the named file accepted by that key's Extractor. A
// line may resolve several keys. Scanning stops as soon as every key
// is resolved. Keys that no line resolves are absent from the result;
// it is up to the caller to decide whether that is an error.
func LastEach(path string, chunkSize int, exts map[string]Extractor) (map[string][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	found := make(map[string][]byte, len(exts))
	s := NewScanner(f, fi.Size(), chunkSize)
	for len(found) < len(exts) && s.Scan() {
		line := s.Bytes()
		for key, ext := range exts {
			if _, ok := found[key]; ok {
				continue
			}
			if v, ok := ext(line); ok {
				found[key] = append([]byte(nil), v...)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return found, nil
}
