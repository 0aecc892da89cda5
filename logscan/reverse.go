// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logscan reads log files from the end toward the beginning.
//
// Benchmark logs report their final counters (bytes sent, shares
// consumed) in the last few lines of files that can be very large.
// A Scanner yields those lines last-to-first while reading the file
// in fixed-size chunks from its end, so a typical lookup touches only
// the final chunk.
package logscan

import (
	"bytes"
	"io"
)

// DefaultChunkSize is the read size used when a Scanner is created
// with a non-positive chunk size.
const DefaultChunkSize = 4096

// A Scanner reads lines of a file in reverse order.
//
// Its API is modeled on bufio.Scanner. The sequence of lines it
// produces is exactly the reverse of what bufio.Scanner with
// ScanLines would produce for the same input, for every chunk size:
// a final newline does not start an empty line, and a carriage return
// before a newline is dropped.
type Scanner struct {
	r     io.ReaderAt
	pos   int64 // bytes in [0,pos) have not been read yet
	chunk []byte

	// partial holds the bytes between the start of the last chunk
	// read and the first newline in it. They belong to a line whose
	// beginning is in a chunk that has not been read yet.
	partial []byte
	// lines holds complete lines from the chunks read so far, in
	// file order. Scan pops from the end.
	lines [][]byte

	line    []byte
	err     error
	started bool
}

// NewScanner returns a Scanner reading the size bytes of r from the
// end. chunkSize is the number of bytes read per call to r.ReadAt; a
// chunk size of 1 walks the file byte by byte.
func NewScanner(r io.ReaderAt, size int64, chunkSize int) *Scanner {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Scanner{r: r, pos: size, chunk: make([]byte, chunkSize)}
}

// Scan advances the Scanner to the previous line, which will then be
// available through Bytes or Text. It returns false when it reaches
// the start of the input or an I/O error occurs; Err reports the
// error, if any.
func (s *Scanner) Scan() bool {
	if s.err != nil {
		return false
	}
	for len(s.lines) == 0 {
		if s.pos == 0 {
			if s.partial == nil {
				return false
			}
			// The first line of the file.
			s.line, s.partial = trimCR(s.partial), nil
			return true
		}
		if !s.fill() {
			return false
		}
	}
	n := len(s.lines) - 1
	s.line = s.lines[n]
	s.lines = s.lines[:n]
	return true
}

// fill reads the chunk preceding s.pos and splits it into lines.
func (s *Scanner) fill() bool {
	n := int64(len(s.chunk))
	if n > s.pos {
		n = s.pos
	}
	s.pos -= n
	buf := s.chunk[:n]
	if _, err := s.r.ReadAt(buf, s.pos); err != nil && err != io.EOF {
		s.err = err
		return false
	}

	// data is this chunk followed by the partial line carried over
	// from the chunk after it. The chunk buffer is reused, so copy.
	data := make([]byte, 0, len(buf)+len(s.partial))
	data = append(data, buf...)
	data = append(data, s.partial...)

	if !s.started {
		s.started = true
		// A file that ends in a newline does not have an empty
		// last line.
		if len(data) > 0 && data[len(data)-1] == '\n' {
			data = data[:len(data)-1]
			if len(data) == 0 {
				s.partial = []byte{}
				return true
			}
		}
	}

	first := bytes.IndexByte(data, '\n')
	if first < 0 {
		// Still inside one line; keep accumulating.
		s.partial = data
		return true
	}
	s.partial = data[:first]
	rest := data[first+1:]
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			s.lines = append(s.lines, trimCR(rest))
			break
		}
		s.lines = append(s.lines, trimCR(rest[:i]))
		rest = rest[i+1:]
	}
	return true
}

// Bytes returns the most recent line read by Scan. The underlying
// array may be overwritten by a later call to Scan.
func (s *Scanner) Bytes() []byte {
	return s.line
}

// Text returns the most recent line read by Scan as a string.
func (s *Scanner) Text() string {
	return string(s.line)
}

// Err returns the first I/O error encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

func trimCR(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}
