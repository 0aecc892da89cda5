// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate builds a Dataset from a tree of benchmark logs.
//
// For every experiment, setup and instance, the Aggregator finds the
// retries' logs with package layout, reads each with package
// benchlog, and folds the per-retry values into series. The i'th
// value of every series of a key comes from the key's i'th file, so
// series of the same key can be combined index by index, as
// Bandwidth does.
package aggregate

import (
	"context"
	"fmt"

	"github.com/compatcircuit/perf/benchlog"
	"github.com/compatcircuit/perf/config"
	"github.com/compatcircuit/perf/layout"
	"github.com/compatcircuit/perf/logscan"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// An Aggregator collects the logs described by a configuration.
type Aggregator struct {
	Config *config.Config

	// Workers is the number of keys collected concurrently. Values
	// below 2 collect serially. The Dataset does not depend on it.
	Workers int

	// Progress, if not nil, is called after each key of each stage
	// is collected. It may be called concurrently.
	Progress func(stage string, key Key)
}

// Tasks returns the number of times Run calls Progress.
func (a *Aggregator) Tasks() int {
	n := 0
	for i := range a.Config.Experiments {
		e := &a.Config.Experiments[i]
		for _, kind := range []string{layout.Preprocess, layout.Compute, layout.Zkp} {
			n += len(a.keys(e, kind))
		}
	}
	return n
}

// Run collects every stage of every configured experiment.
func (a *Aggregator) Run(ctx context.Context) (*Dataset, error) {
	ds := NewDataset()
	for i := range a.Config.Experiments {
		e := &a.Config.Experiments[i]
		for _, collect := range []func(context.Context, *config.Experiment) (*Stage, error){
			a.Preprocess, a.Compute, a.Zkp,
		} {
			st, err := collect(ctx, e)
			if err != nil {
				return nil, err
			}
			ds.Stages[st.Name] = st
		}
	}
	return ds, nil
}

// keys returns the keys of an experiment's stage. Single-party setups
// are not preprocessed.
func (a *Aggregator) keys(e *config.Experiment, kind string) []Key {
	var keys []Key
	for _, s := range e.Setups {
		if kind == layout.Preprocess && s.Single() {
			continue
		}
		for _, inst := range e.InstanceNames() {
			keys = append(keys, Key{s.Name, inst})
		}
	}
	return keys
}

func setupOf(e *config.Experiment, name string) config.Setup {
	for _, s := range e.Setups {
		if s.Name == name {
			return s
		}
	}
	panic("unknown setup " + name)
}

// collectKeys calls fn for each key, up to a.Workers at a time, and
// returns the results in key order.
func collectKeys[T any](ctx context.Context, a *Aggregator, stage string, keys []Key, fn func(Key) (T, error)) ([]T, error) {
	out := make([]T, len(keys))
	one := func(i int) error {
		v, err := fn(keys[i])
		if err != nil {
			return fmt.Errorf("%s %s: %w", stage, keys[i], err)
		}
		out[i] = v
		if a.Progress != nil {
			a.Progress(stage, keys[i])
		}
		return nil
	}

	if a.Workers < 2 {
		for i := range keys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := one(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	p := pool.New().WithErrors().WithContext(ctx).
		WithCancelOnError().WithFirstError().
		WithMaxGoroutines(a.Workers)
	for i := range keys {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return one(i)
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// readTotals reads the progress logs of files, which must all report
// a total time cost.
func readTotals(files []string) ([]map[string]float64, error) {
	records := make([]map[string]float64, len(files))
	for i, f := range files {
		tc, err := benchlog.ReadTimeCostFile(f)
		if err != nil {
			return nil, err
		}
		if _, ok := tc.Total(); !ok {
			return nil, &logscan.PatternNotFoundError{File: f, Pattern: "Total time cost:"}
		}
		records[i] = tc
	}
	return records, nil
}

// Preprocess collects the preprocess stage of e.
func (a *Aggregator) Preprocess(ctx context.Context, e *config.Experiment) (*Stage, error) {
	st := NewStage(StageName(e.Name, layout.Preprocess), layout.Preprocess)
	keys := a.keys(e, layout.Preprocess)
	res, err := collectKeys(ctx, a, st.Name, keys, func(k Key) (Series, error) {
		files, err := layout.Glob(layout.Pattern{
			Root:     a.Config.Root,
			Stage:    layout.Preprocess,
			Setup:    k.Setup,
			Instance: k.Instance,
		})
		if err != nil {
			return nil, err
		}
		records, err := readTotals(files)
		if err != nil {
			return nil, err
		}
		return Fold(files, records)
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		st.TimeCost[k.String()] = res[i]
	}
	log.Info().Str("stage", st.Name).Int("keys", len(keys)).Msg("collected stage")
	return st, nil
}

type computeResult struct {
	timeCost  Series
	breakdown Series
	bandwidth []float64 // nil for single-party setups
	usage     benchlog.PreshareUsage
}

// Compute collects the compute stage of e.
func (a *Aggregator) Compute(ctx context.Context, e *config.Experiment) (*Stage, error) {
	st := NewStage(StageName(e.Name, layout.Compute), layout.Compute)
	keys := a.keys(e, layout.Compute)
	res, err := collectKeys(ctx, a, st.Name, keys, func(k Key) (*computeResult, error) {
		return a.computeKey(e, k)
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		r := res[i]
		st.TimeCost[k.String()] = r.timeCost
		st.Breakdown[k.String()] = r.breakdown
		st.PreshareUsage[k.String()] = r.usage
		if r.bandwidth != nil {
			st.BytesPerSecond[k.String()] = Series{benchlog.TotalKey: r.bandwidth}
		}
	}
	log.Info().Str("stage", st.Name).Int("keys", len(keys)).Msg("collected stage")
	return st, nil
}

func (a *Aggregator) computeKey(e *config.Experiment, k Key) (*computeResult, error) {
	setup := setupOf(e, k.Setup)
	party := a.Config.PartyIndex
	if setup.Single() {
		party = 0
	}
	p := layout.Pattern{
		Root:   a.Config.Root,
		Stage:  layout.Compute,
		Setup:  setup.Name,
		Prefix: setup.Prefix,
		Party:  layout.PartyIndex(party),
	}
	if e.HasInstances() {
		p.Instance = k.Instance
	}
	// This file list orders every series of the key.
	files, err := layout.Glob(p)
	if err != nil {
		return nil, err
	}

	r := new(computeResult)
	for _, f := range files {
		u, err := benchlog.ReadPreshareUsage(f, a.Config.ChunkSize)
		if err != nil {
			return nil, err
		}
		if r.usage != nil && !r.usage.Equal(u) {
			log.Warn().Str("key", k.String()).Str("file", f).
				Interface("was", r.usage).Interface("now", u).
				Msg("preshare usage differs between retries; keeping the last")
		}
		r.usage = u
	}

	records, err := readTotals(files)
	if err != nil {
		return nil, err
	}
	if r.timeCost, err = Fold(files, records); err != nil {
		return nil, err
	}
	if r.breakdown, err = ComputeBreakdown(r.timeCost, e.Steps(k.Instance), e.ComputeMethods); err != nil {
		return nil, err
	}

	if setup.Single() {
		return r, nil
	}
	bytes := make([]float64, len(files))
	for i, f := range files {
		n, err := benchlog.ReadComputeBytesSent(f, a.Config.ChunkSize)
		if err != nil {
			return nil, err
		}
		if bytes[i], err = PerPartyBytes(layout.Compute, n, setup.Parties); err != nil {
			return nil, err
		}
	}
	if r.bandwidth, err = Bandwidth(bytes, r.timeCost[benchlog.TotalKey]); err != nil {
		return nil, err
	}
	return r, nil
}

type zkpResult struct {
	proofs    map[string]Series
	combined  Series
	bandwidth Series // nil for single-party setups
}

// Zkp collects the zkp stage of e.
func (a *Aggregator) Zkp(ctx context.Context, e *config.Experiment) (*Stage, error) {
	st := NewStage(StageName(e.Name, layout.Zkp), layout.Zkp)
	keys := a.keys(e, layout.Zkp)
	res, err := collectKeys(ctx, a, st.Name, keys, func(k Key) (*zkpResult, error) {
		return a.zkpKey(e, k)
	})
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		r := res[i]
		st.Proofs[k.String()] = r.proofs
		st.Combined[k.String()] = r.combined
		if r.bandwidth != nil {
			st.BytesPerSecond[k.String()] = r.bandwidth
		}
	}
	log.Info().Str("stage", st.Name).Int("keys", len(keys)).Msg("collected stage")
	return st, nil
}

func (a *Aggregator) zkpKey(e *config.Experiment, k Key) (*zkpResult, error) {
	setup := setupOf(e, k.Setup)
	r := &zkpResult{proofs: make(map[string]Series)}
	if !setup.Single() {
		r.bandwidth = make(Series)
	}
	for _, c := range e.ZkpCircuits {
		for _, method := range c.Methods(e.Steps(k.Instance)) {
			p := layout.Pattern{
				Root:   a.Config.Root,
				Stage:  layout.Zkp,
				Setup:  setup.Name,
				Prefix: setup.Prefix,
				Method: method,
				Party:  setup.PartyName(a.Config.PartyIndex),
			}
			if e.HasInstances() {
				p.Instance = k.Instance
			}
			files, err := layout.Glob(p)
			if err != nil {
				return nil, err
			}
			s, bw, err := a.readProofs(files, setup)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", method, err)
			}
			r.proofs[method] = s
			if bw != nil {
				r.bandwidth[method] = bw
			}
		}
	}
	var err error
	if r.combined, err = SumCircuits(r.proofs); err != nil {
		return nil, err
	}
	return r, nil
}

// readProofs reads the stderr logs of one circuit method's retries
// and their stdout traces.
func (a *Aggregator) readProofs(files []string, setup config.Setup) (Series, []float64, error) {
	s := make(Series)
	for _, f := range files {
		total, err := benchlog.ReadEpochElapsed(f, a.Config.ChunkSize)
		if err != nil {
			return nil, nil, err
		}
		cats, err := benchlog.ReadCategoriesFile(layout.Stdout(f))
		if err != nil {
			return nil, nil, err
		}
		s[benchlog.TotalKey] = append(s[benchlog.TotalKey], total)
		for key, v := range cats.Map() {
			s[key] = append(s[key], v)
		}
	}

	if setup.Single() {
		return s, nil, nil
	}
	bytes := make([]float64, len(files))
	for i, f := range files {
		n, err := benchlog.ReadZkpBytesSent(f, a.Config.ChunkSize)
		if err != nil {
			return nil, nil, err
		}
		if bytes[i], err = PerPartyBytes(layout.Zkp, n, setup.Parties); err != nil {
			return nil, nil, err
		}
	}
	bw, err := Bandwidth(bytes, s[benchlog.TotalKey])
	if err != nil {
		return nil, nil, err
	}
	return s, bw, nil
}
