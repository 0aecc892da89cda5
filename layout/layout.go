// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout names the files of a benchmark log tree.
//
// A log tree has one directory per stage:
//
//	preprocess/log.preprocess.<setup>.<instance>.<retry>.txt
//	compute/log-<setup>/<party>/log.<prefix>[.<instance>].<retry>.txt
//	zkp/log-<setup>/<prefix>[.<instance>].<retry>.<method>.<party>.stderr
//	zkp/log-<setup>/<prefix>[.<instance>].<retry>.<method>.<party>.stdout
//
// Each retry of a run leaves one file (or, for zkp, one pair of
// files); the instance is omitted for experiments that have none.
package layout

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Stages of a benchmark run.
const (
	Preprocess = "preprocess"
	Compute    = "compute"
	Zkp        = "zkp"
)

// AnyRetry matches every retry of a run.
const AnyRetry = "*"

// A Pattern identifies the log files of one run.
type Pattern struct {
	Root     string
	Stage    string
	Setup    string
	Prefix   string // file name prefix of compute and zkp logs
	Instance string // empty for experiments without instances
	Retry    string // AnyRetry if empty
	Party    string // party index (compute) or party name (zkp)
	Method   string // zkp method or circuit
}

// String returns the glob pattern of p's files. For the zkp stage
// these are the .stderr files; see Stdout.
func (p Pattern) String() string {
	retry := p.Retry
	if retry == "" {
		retry = AnyRetry
	}
	var name []string
	switch p.Stage {
	case Preprocess:
		name = []string{"log", "preprocess", p.Setup, p.Instance, retry, "txt"}
		return filepath.Join(p.Root, Preprocess, strings.Join(name, "."))
	case Compute:
		name = append(name, "log", p.Prefix)
		if p.Instance != "" {
			name = append(name, p.Instance)
		}
		name = append(name, retry, "txt")
		return filepath.Join(p.Root, Compute, "log-"+p.Setup, p.Party, strings.Join(name, "."))
	case Zkp:
		name = append(name, p.Prefix)
		if p.Instance != "" {
			name = append(name, p.Instance)
		}
		name = append(name, retry, p.Method, p.Party, "stderr")
		return filepath.Join(p.Root, Zkp, "log-"+p.Setup, strings.Join(name, "."))
	}
	panic(fmt.Sprintf("unknown stage %q", p.Stage))
}

// Stdout returns the trace file that accompanies a zkp stderr log.
func Stdout(stderrPath string) string {
	return strings.TrimSuffix(stderrPath, ".stderr") + ".stdout"
}

// PartyIndex formats a compute party index as a Pattern.Party.
func PartyIndex(i int) string {
	return strconv.Itoa(i)
}

// A MissingDataError reports a run with no log files.
type MissingDataError struct {
	Pattern string
}

func (e *MissingDataError) Error() string {
	return "missing files for pattern " + e.Pattern
}

// Glob returns the files matching p in lexical order. It is an error
// for no file to match.
func Glob(p Pattern) ([]string, error) {
	pat := p.String()
	files, err := filepath.Glob(pat)
	if err != nil {
		return nil, fmt.Errorf("pattern %s: %w", pat, err)
	}
	if len(files) == 0 {
		return nil, &MissingDataError{pat}
	}
	// filepath.Glob sorts within a directory; every pattern here has
	// wildcards only in its final element, so this is already the
	// full lexical order. Sort anyway so that never changes silently.
	sort.Strings(files)
	return files, nil
}
