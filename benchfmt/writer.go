// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfmt

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// A Writer writes the Go benchmark format.
type Writer struct {
	w   io.Writer
	buf bytes.Buffer

	first      bool
	fileConfig map[string]string
	order      []string
}

// NewWriter returns a writer that writes Go benchmark results to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, first: true, fileConfig: make(map[string]string)}
}

// Write writes res to w. If res's file configuration differs from the
// current file configuration in w, it first emits the appropriate
// file configuration lines.
func (w *Writer) Write(res *Result) error {
	if strings.ContainsAny(res.Name, " \t\n") {
		return fmt.Errorf("benchmark name %q contains white space", res.Name)
	}
	for _, cfg := range res.Config {
		if !validKey(cfg.Key) || strings.ContainsRune(cfg.Value, '\n') {
			return fmt.Errorf("bad configuration %q: %q", cfg.Key, cfg.Value)
		}
	}
	w.writeResult(res)
	return w.flush()
}

// WriteUnitMetadata writes a unit metadata line.
func (w *Writer) WriteUnitMetadata(m UnitMetadata) error {
	fmt.Fprintf(&w.buf, "Unit %s %s=%s\n", m.Unit, m.Key, m.Value)
	return w.flush()
}

func (w *Writer) flush() error {
	// Write to the buffer can't fail, so we only have to check if
	// this fails.
	_, err := w.w.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

func (w *Writer) writeResult(res *Result) {
	// If any file config changed, write out the changes.
	if len(w.fileConfig) != len(res.Config) {
		w.writeFileConfig(res)
	} else {
		for _, cfg := range res.Config {
			if have, ok := w.fileConfig[cfg.Key]; !ok || cfg.Value != have {
				w.writeFileConfig(res)
				break
			}
		}
	}

	// Print the benchmark line.
	fmt.Fprintf(&w.buf, "Benchmark%s %d", res.Name, res.Iters)
	for _, val := range res.Values {
		fmt.Fprintf(&w.buf, " %v %s", val.Value, val.Unit)
	}
	w.buf.WriteByte('\n')

	w.first = false
}

func (w *Writer) writeFileConfig(res *Result) {
	if !w.first {
		// Configuration blocks after results get an extra blank.
		w.buf.WriteByte('\n')
		w.first = true
	}

	// Walk keys we know to find changes and deletions.
	for i := 0; i < len(w.order); i++ {
		key := w.order[i]
		idx, ok := res.ConfigIndex(key)
		if !ok {
			// Key was deleted.
			fmt.Fprintf(&w.buf, "%s:\n", key)
			delete(w.fileConfig, key)
			copy(w.order[i:], w.order[i+1:])
			w.order = w.order[:len(w.order)-1]
			i--
			continue
		}
		val := res.Config[idx].Value
		if w.fileConfig[key] == val {
			continue
		}
		fmt.Fprintf(&w.buf, "%s: %s\n", key, val)
		w.fileConfig[key] = val
	}

	// Find new keys.
	if len(w.fileConfig) != len(res.Config) {
		for _, cfg := range res.Config {
			if _, ok := w.fileConfig[cfg.Key]; ok {
				continue
			}
			fmt.Fprintf(&w.buf, "%s: %s\n", cfg.Key, cfg.Value)
			w.fileConfig[cfg.Key] = cfg.Value
			w.order = append(w.order, cfg.Key)
		}
	}

	w.buf.WriteByte('\n')
}

// validKey reports whether key can be a configuration key: it must
// be non-empty, start with a lower-case letter, and contain no space
// or upper-case letter.
func validKey(key string) bool {
	if key == "" || !('a' <= key[0] && key[0] <= 'z') {
		return false
	}
	for _, c := range key {
		if c == ' ' || c == '\t' || c == ':' || ('A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
