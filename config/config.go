// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config describes which benchmark logs exist and how they are
// named.
//
// A Config lists experiments. Each experiment was run under a set of
// setups (a single-party baseline and MPC runs with several parties),
// over a set of instances, and each run measured a set of compute
// methods and proof circuits. Default returns the configuration of
// the published experiments; Load reads another one from a file.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// A Config is the static description of a benchmark corpus.
type Config struct {
	// Root is the directory holding the preprocess, compute and zkp
	// log trees.
	Root string `mapstructure:"root"`
	// PartyIndex selects which MPC party's compute and zkp logs are
	// read. The parties' time costs are nearly identical within one
	// run.
	PartyIndex int `mapstructure:"party_index"`
	// ChunkSize is the read size used when scanning logs backward.
	// Zero means logscan.DefaultChunkSize.
	ChunkSize int `mapstructure:"chunk_size"`

	Experiments []Experiment `mapstructure:"experiments"`
}

// A Setup is one way of running an experiment.
type Setup struct {
	Name string `mapstructure:"name"`
	// Prefix is the file name prefix of the setup's compute and zkp
	// logs.
	Prefix  string `mapstructure:"prefix"`
	Parties int    `mapstructure:"parties"`
}

// Single reports whether s is a single-party setup. Single-party runs
// have no preprocessing and send no bytes.
func (s Setup) Single() bool {
	return s.Parties == 1
}

// PartyName returns the party component of the zkp log names of
// party index i.
func (s Setup) PartyName(i int) string {
	if s.Single() {
		return "single"
	}
	return fmt.Sprintf("party%d", i)
}

// Modes of a ComputeMethod. An empty mode is ModePlain.
const (
	// A plain method is a step of the progress log with the method's
	// own name.
	ModePlain = "plain"
	// A sum method is recorded once per program step, as <name>-<i>,
	// and its cost is the sum over all steps.
	ModeSum = "sum"
	// A last method is recorded once per program step and only the
	// final step's record, <name>-<n-1>, is its cost.
	ModeLast = "last"
)

// Modes of a Circuit, besides ModePlain for circuits proved once and
// logged under their own name.
const (
	// A step circuit is proved once per program step, with logs
	// named <name>-Step-<i>.
	ModeStep = "step"
	// A count circuit is proved once for the whole program, with logs
	// named <name>-<n> for a program of n steps.
	ModeCount = "count"
)

// A ComputeMethod is a measured phase of the MPC computation.
type ComputeMethod struct {
	Name string `mapstructure:"name"`
	Mode string `mapstructure:"mode"`
}

// Steps returns the progress log step names that make up m for a
// program of steps steps.
func (m ComputeMethod) Steps(steps int) []string {
	switch m.Mode {
	case ModeSum:
		names := make([]string, steps)
		for i := range names {
			names[i] = fmt.Sprintf("%s-%d", m.Name, i)
		}
		return names
	case ModeLast:
		return []string{fmt.Sprintf("%s-%d", m.Name, steps-1)}
	}
	return []string{m.Name}
}

// A Circuit is a proof whose logs are collected.
type Circuit struct {
	Name string `mapstructure:"name"`
	Mode string `mapstructure:"mode"`
}

// Methods returns the method names under which c's logs are stored
// for a program of steps steps.
func (c Circuit) Methods(steps int) []string {
	switch c.Mode {
	case ModeStep:
		names := make([]string, steps)
		for i := range names {
			names[i] = fmt.Sprintf("%s-Step-%d", c.Name, i)
		}
		return names
	case ModeCount:
		return []string{fmt.Sprintf("%s-%d", c.Name, steps)}
	}
	return []string{c.Name}
}

// An Experiment is a family of benchmark runs.
type Experiment struct {
	Name   string  `mapstructure:"name"`
	Setups []Setup `mapstructure:"setups"`
	// Instances lists the workloads the experiment was run on. An
	// experiment without instances has a single unnamed workload; its
	// logs omit the instance from their names, and it is keyed by the
	// experiment name instead.
	Instances []string `mapstructure:"instances"`
	// StepCounts is the number of program steps of each instance.
	StepCounts     map[string]int  `mapstructure:"step_counts"`
	ComputeMethods []ComputeMethod `mapstructure:"compute_methods"`
	ZkpCircuits    []Circuit       `mapstructure:"zkp_circuits"`
}

// HasInstances reports whether e's logs are named by instance.
func (e *Experiment) HasInstances() bool {
	return len(e.Instances) > 0
}

// InstanceNames returns the names keying e's workloads.
func (e *Experiment) InstanceNames() []string {
	if !e.HasInstances() {
		return []string{e.Name}
	}
	return e.Instances
}

// Steps returns the number of program steps of instance. Viper
// lowercases map keys, so a lowercased instance name also matches.
func (e *Experiment) Steps(instance string) int {
	if n, ok := e.StepCounts[instance]; ok {
		return n
	}
	return e.StepCounts[strings.ToLower(instance)]
}

func (e *Experiment) needsSteps() bool {
	for _, m := range e.ComputeMethods {
		if m.Mode == ModeSum || m.Mode == ModeLast {
			return true
		}
	}
	for _, c := range e.ZkpCircuits {
		if c.Mode == ModeStep || c.Mode == ModeCount {
			return true
		}
	}
	return false
}

// Validate reports the problems in c, joined into one error.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}
	if c.Root == "" {
		bad("root directory not set")
	}
	if c.PartyIndex < 0 {
		bad("negative party index %d", c.PartyIndex)
	}
	if c.ChunkSize < 0 {
		bad("negative chunk size %d", c.ChunkSize)
	}
	if len(c.Experiments) == 0 {
		bad("no experiments")
	}
	seen := make(map[string]bool)
	for i := range c.Experiments {
		e := &c.Experiments[i]
		if e.Name == "" {
			bad("experiment %d has no name", i)
		} else if seen[e.Name] {
			bad("duplicate experiment %q", e.Name)
		}
		seen[e.Name] = true
		if len(e.Setups) == 0 {
			bad("experiment %q: no setups", e.Name)
		}
		for _, s := range e.Setups {
			if s.Name == "" || s.Prefix == "" {
				bad("experiment %q: setup %q needs a name and a prefix", e.Name, s.Name)
			}
			if strings.Contains(s.Name, ".") {
				bad("experiment %q: setup name %q contains a dot", e.Name, s.Name)
			}
			if s.Parties < 1 {
				bad("experiment %q: setup %q has %d parties", e.Name, s.Name, s.Parties)
			} else if !s.Single() && c.PartyIndex >= s.Parties {
				bad("experiment %q: party index %d out of range for setup %q with %d parties", e.Name, c.PartyIndex, s.Name, s.Parties)
			}
		}
		for _, m := range e.ComputeMethods {
			switch m.Mode {
			case "", ModePlain, ModeSum, ModeLast:
			default:
				bad("experiment %q: compute method %q has unknown mode %q", e.Name, m.Name, m.Mode)
			}
		}
		for _, ci := range e.ZkpCircuits {
			switch ci.Mode {
			case "", ModePlain, ModeStep, ModeCount:
			default:
				bad("experiment %q: circuit %q has unknown mode %q", e.Name, ci.Name, ci.Mode)
			}
		}
		if e.needsSteps() {
			for _, inst := range e.InstanceNames() {
				if e.Steps(inst) < 1 {
					bad("experiment %q: no step count for instance %q", e.Name, inst)
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Load reads a configuration file in any format viper understands
// (YAML, JSON, TOML, ...). Settings missing from the file keep their
// Default values; a file that lists experiments replaces the default
// experiments entirely. Scalar settings can also be overridden by
// ZKPERF_-prefixed environment variables, such as ZKPERF_ROOT.
func Load(path string) (*Config, error) {
	def := Default()
	v := viper.New()
	v.SetDefault("root", def.Root)
	v.SetDefault("party_index", def.PartyIndex)
	v.SetDefault("chunk_size", def.ChunkSize)
	v.SetEnvPrefix("zkperf")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := def
	if v.IsSet("experiments") {
		cfg.Experiments = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
