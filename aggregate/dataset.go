// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/compatcircuit/perf/benchlog"
	"github.com/compatcircuit/perf/layout"
)

// A Key identifies one benchmark configuration: a setup run on an
// instance.
type Key struct {
	Setup    string
	Instance string
}

// String returns the key's composite form, "<setup>.<instance>",
// which keys the maps of a Dataset.
func (k Key) String() string {
	return k.Setup + "." + k.Instance
}

// ParseKey parses the composite form of a Key. Setup names never
// contain a dot, so the key splits at the first one.
func ParseKey(s string) (Key, error) {
	setup, inst, ok := strings.Cut(s, ".")
	if !ok || setup == "" || inst == "" {
		return Key{}, fmt.Errorf("malformed key %q", s)
	}
	return Key{setup, inst}, nil
}

// A Series maps a method name to one value per retry, in the order of
// the retries' files.
type Series map[string][]float64

// Methods returns the methods of s in sorted order.
func (s Series) Methods() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// A Stage holds the measurements of one stage of one experiment. The
// maps are keyed by Key.String.
type Stage struct {
	Name string `json:"name" msgpack:"name"`
	// Kind is layout.Preprocess, layout.Compute or layout.Zkp.
	Kind string `json:"kind" msgpack:"kind"`

	// TimeCost holds the progress log time costs of preprocess and
	// compute stages, including benchlog.TotalKey.
	TimeCost map[string]Series `json:"timecost" msgpack:"timecost"`
	// Breakdown holds, for compute stages, the cost of each
	// configured compute method (see ComputeBreakdown).
	Breakdown map[string]Series `json:"breakdown" msgpack:"breakdown"`

	// Proofs holds the time costs of zkp stages, by circuit method.
	// Each Series has benchlog.TotalKey and the setup, prove and
	// verify categories.
	Proofs map[string]map[string]Series `json:"proofs" msgpack:"proofs"`
	// Combined holds, for zkp stages, the sum over all circuit
	// methods of a key (see SumCircuits).
	Combined map[string]Series `json:"combined" msgpack:"combined"`

	// BytesPerSecond holds per-party bandwidth for multi-party keys:
	// under benchlog.TotalKey for compute stages, and by circuit
	// method for zkp stages.
	BytesPerSecond map[string]Series `json:"bytes_per_second" msgpack:"bytes_per_second"`

	// PreshareUsage holds the shares consumed by each compute key.
	PreshareUsage map[string]benchlog.PreshareUsage `json:"preshare_usage" msgpack:"preshare_usage"`
}

// NewStage returns an empty stage of the given kind, with the maps
// that kind of stage uses.
func NewStage(name, kind string) *Stage {
	st := &Stage{Name: name, Kind: kind}
	switch kind {
	case layout.Preprocess:
		st.TimeCost = make(map[string]Series)
	case layout.Compute:
		st.TimeCost = make(map[string]Series)
		st.Breakdown = make(map[string]Series)
		st.BytesPerSecond = make(map[string]Series)
		st.PreshareUsage = make(map[string]benchlog.PreshareUsage)
	case layout.Zkp:
		st.Proofs = make(map[string]map[string]Series)
		st.Combined = make(map[string]Series)
		st.BytesPerSecond = make(map[string]Series)
	default:
		panic(fmt.Sprintf("unknown stage kind %q", kind))
	}
	return st
}

// StageName returns the dataset name of an experiment's stage, such
// as "exp23_compute".
func StageName(experiment, kind string) string {
	return experiment + "_" + kind
}

// StageKind returns the kind of a stage from its name.
func StageKind(name string) (string, error) {
	for _, kind := range []string{layout.Preprocess, layout.Compute, layout.Zkp} {
		if strings.HasSuffix(name, "_"+kind) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("stage %q has no known kind", name)
}

// A Dataset is the aggregated measurements of a log tree, by stage
// name. It is built once and not modified afterwards.
type Dataset struct {
	Stages map[string]*Stage `json:"stages" msgpack:"stages"`
}

// NewDataset returns an empty Dataset.
func NewDataset() *Dataset {
	return &Dataset{Stages: make(map[string]*Stage)}
}

// StageNames returns the stage names of d in sorted order.
func (d *Dataset) StageNames() []string {
	names := make([]string, 0, len(d.Stages))
	for name := range d.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metrics of a Measurement.
const (
	MetricTimeCost       = "timecost"
	MetricBreakdown      = "breakdown"
	MetricCombined       = "combined"
	MetricBytesPerSecond = "bytes_per_second"
	MetricPreshareUsage  = "preshare_usage"
)

// A Measurement is one value of a Dataset in flat form.
type Measurement struct {
	Stage   string
	Key     string
	Metric  string
	Circuit string // circuit method of zkp time costs, else empty
	Method  string
	Retry   int // index in the series; 0 for preshare usage
	Value   float64
}

// Measurements flattens d into rows, ordered by stage, key, metric,
// circuit, method and retry.
func (d *Dataset) Measurements() []Measurement {
	var ms []Measurement
	addSeries := func(stage, key, metric, circuit string, s Series) {
		for method, vals := range s {
			for i, v := range vals {
				ms = append(ms, Measurement{stage, key, metric, circuit, method, i, v})
			}
		}
	}
	for name, st := range d.Stages {
		for key, s := range st.TimeCost {
			addSeries(name, key, MetricTimeCost, "", s)
		}
		for key, s := range st.Breakdown {
			addSeries(name, key, MetricBreakdown, "", s)
		}
		for key, circuits := range st.Proofs {
			for circuit, s := range circuits {
				addSeries(name, key, MetricTimeCost, circuit, s)
			}
		}
		for key, s := range st.Combined {
			addSeries(name, key, MetricCombined, "", s)
		}
		for key, s := range st.BytesPerSecond {
			addSeries(name, key, MetricBytesPerSecond, "", s)
		}
		for key, u := range st.PreshareUsage {
			for share, n := range u {
				ms = append(ms, Measurement{name, key, MetricPreshareUsage, "", share, 0, float64(n)})
			}
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		a, b := &ms[i], &ms[j]
		switch {
		case a.Stage != b.Stage:
			return a.Stage < b.Stage
		case a.Key != b.Key:
			return a.Key < b.Key
		case a.Metric != b.Metric:
			return a.Metric < b.Metric
		case a.Circuit != b.Circuit:
			return a.Circuit < b.Circuit
		case a.Method != b.Method:
			return a.Method < b.Method
		}
		return a.Retry < b.Retry
	})
	return ms
}

// FromMeasurements rebuilds a Dataset from its Measurements. Every
// series must have a value for each retry index from 0 up. Stages and
// keys that hold no values have no rows, so they are not rebuilt.
func FromMeasurements(ms []Measurement) (*Dataset, error) {
	d := NewDataset()
	put := func(s Series, m *Measurement) error {
		vals := s[m.Method]
		if m.Retry != len(vals) {
			return fmt.Errorf("stage %s key %s %s %s: retry %d out of order", m.Stage, m.Key, m.Metric, m.Method, m.Retry)
		}
		s[m.Method] = append(vals, m.Value)
		return nil
	}
	series := func(maps map[string]Series, key string) Series {
		s, ok := maps[key]
		if !ok {
			s = make(Series)
			maps[key] = s
		}
		return s
	}

	// Each series must receive its values in retry order.
	sorted := append([]Measurement(nil), ms...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Retry < sorted[j].Retry })

	for i := range sorted {
		m := &sorted[i]
		st, ok := d.Stages[m.Stage]
		if !ok {
			kind, err := StageKind(m.Stage)
			if err != nil {
				return nil, err
			}
			st = NewStage(m.Stage, kind)
			d.Stages[m.Stage] = st
		}
		var err error
		switch {
		case m.Metric == MetricTimeCost && st.Kind == layout.Zkp:
			circuits, ok := st.Proofs[m.Key]
			if !ok {
				circuits = make(map[string]Series)
				st.Proofs[m.Key] = circuits
			}
			err = put(series(circuits, m.Circuit), m)
		case m.Metric == MetricTimeCost && st.TimeCost != nil:
			err = put(series(st.TimeCost, m.Key), m)
		case m.Metric == MetricBreakdown && st.Breakdown != nil:
			err = put(series(st.Breakdown, m.Key), m)
		case m.Metric == MetricCombined && st.Combined != nil:
			err = put(series(st.Combined, m.Key), m)
		case m.Metric == MetricBytesPerSecond && st.BytesPerSecond != nil:
			err = put(series(st.BytesPerSecond, m.Key), m)
		case m.Metric == MetricPreshareUsage && st.PreshareUsage != nil:
			u, ok := st.PreshareUsage[m.Key]
			if !ok {
				u = make(benchlog.PreshareUsage)
				st.PreshareUsage[m.Key] = u
			}
			u[m.Method] = int64(m.Value)
		default:
			err = fmt.Errorf("stage %s: unexpected %s measurement", m.Stage, m.Metric)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}
