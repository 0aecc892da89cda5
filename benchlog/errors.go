// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchlog

import "fmt"

// A MalformedLogError reports a marker or numeric field that was
// present in a log but could not be parsed.
type MalformedLogError struct {
	File string
	Line int // 1-based; 0 if the line is not known
	Msg  string
}

func (e *MalformedLogError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// An UnrecognizedLabelError reports a trace label that is not part of
// the label taxonomy used by Classify.
type UnrecognizedLabelError struct {
	File  string
	Line  int
	Label string
}

func (e *UnrecognizedLabelError) Error() string {
	return fmt.Sprintf("%s:%d: unrecognized trace label %q", e.File, e.Line, e.Label)
}
