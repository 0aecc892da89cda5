// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package export encodes aggregated datasets.
//
// JSON and msgpack encodings keep the nested shape of an
// aggregate.Dataset and read back without loss. The Go benchmark
// format flattens the dataset into one result line per measurement
// and is write-only.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/compatcircuit/perf/aggregate"
	"github.com/compatcircuit/perf/benchfmt"
	"github.com/vmihailenco/msgpack/v5"
)

// A Format is a dataset encoding.
type Format string

const (
	JSON     Format = "json"
	Msgpack  Format = "msgpack"
	Benchfmt Format = "benchfmt"
)

// ErrWriteOnly is returned when reading a format that cannot be read
// back into a dataset.
var ErrWriteOnly = errors.New("format is write-only")

// FormatOf returns the format named by name, which is either a format
// name such as "json" or a file name whose extension implies one.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return JSON, nil
	case "msgpack", "mp":
		return Msgpack, nil
	case "benchfmt", "bench", "txt":
		return Benchfmt, nil
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return JSON, nil
	case ".msgpack", ".mp":
		return Msgpack, nil
	case ".bench", ".txt":
		return Benchfmt, nil
	}
	return "", fmt.Errorf("unknown format %q", name)
}

// Write encodes ds to w in format f.
func Write(w io.Writer, ds *aggregate.Dataset, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	case Msgpack:
		return writeMsgpack(w, ds)
	case Benchfmt:
		return writeBenchfmt(w, ds)
	}
	return fmt.Errorf("unknown format %q", f)
}

// Read decodes a dataset in format f from r.
func Read(r io.Reader, f Format) (*aggregate.Dataset, error) {
	ds := new(aggregate.Dataset)
	var err error
	switch f {
	case JSON:
		err = json.NewDecoder(r).Decode(ds)
	case Msgpack:
		err = msgpack.NewDecoder(r).Decode(ds)
	case Benchfmt:
		return nil, fmt.Errorf("reading %s: %w", f, ErrWriteOnly)
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s dataset: %w", f, err)
	}
	if ds.Stages == nil {
		return nil, fmt.Errorf("decoding %s dataset: no stages", f)
	}
	return ds, nil
}

// writeMsgpack encodes ds with every map's keys in increasing order.
// The encoder sorts only generic maps such as map[string]interface{},
// so ds is first converted to that form by a decode of its plain
// encoding.
func writeMsgpack(w io.Writer, ds *aggregate.Dataset) error {
	raw, err := msgpack.Marshal(ds)
	if err != nil {
		return err
	}
	var tree interface{}
	if err := msgpack.Unmarshal(raw, &tree); err != nil {
		return err
	}
	enc := msgpack.NewEncoder(w)
	enc.SetSortMapKeys(true)
	return enc.Encode(tree)
}

// metricNames maps a dataset metric to its benchmark name and unit.
var metricNames = map[string]struct{ name, unit string }{
	aggregate.MetricTimeCost:       {"TimeCost", "sec"},
	aggregate.MetricBreakdown:      {"Breakdown", "sec"},
	aggregate.MetricCombined:       {"Combined", "sec"},
	aggregate.MetricBytesPerSecond: {"BytesPerSecond", "B/sec"},
	aggregate.MetricPreshareUsage:  {"PreshareUsage", "shares"},
}

// writeBenchfmt writes one benchmark result per measurement. The
// method goes in the file configuration rather than the benchmark
// name, since step methods such as "IF-3" would otherwise read as a
// GOMAXPROCS suffix. Retries of one configuration become repeated
// results of the same benchmark.
func writeBenchfmt(w io.Writer, ds *aggregate.Dataset) error {
	bw := benchfmt.NewWriter(w)
	if err := bw.WriteUnitMetadata(benchfmt.UnitMetadata{Unit: "shares", Key: "assume", Value: "exact"}); err != nil {
		return err
	}
	var res benchfmt.Result
	for _, m := range ds.Measurements() {
		key, err := aggregate.ParseKey(m.Key)
		if err != nil {
			return fmt.Errorf("stage %s: %w", m.Stage, err)
		}
		metric, ok := metricNames[m.Metric]
		if !ok {
			return fmt.Errorf("stage %s: unknown metric %q", m.Stage, m.Metric)
		}
		res.Config = append(res.Config[:0],
			benchfmt.Config{Key: "stage", Value: m.Stage},
			benchfmt.Config{Key: "setup", Value: key.Setup},
			benchfmt.Config{Key: "instance", Value: key.Instance},
		)
		if m.Circuit != "" {
			res.Config = append(res.Config, benchfmt.Config{Key: "circuit", Value: m.Circuit})
		}
		res.Config = append(res.Config, benchfmt.Config{Key: "method", Value: m.Method})
		res.Name = metric.name
		res.Iters = 1
		res.Values = append(res.Values[:0], benchfmt.Value{Value: m.Value, Unit: metric.unit})
		if err := bw.Write(&res); err != nil {
			return err
		}
	}
	return nil
}
