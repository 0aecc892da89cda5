// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

var (
	exp2Instances = []string{"exp2_1", "exp2_2", "exp2_3", "exp2_4", "exp2_5"}
	exp3Instances = []string{"exp3_4", "exp3_16", "exp3_20", "exp3_32", "exp3_50", "exp3_64"}
)

// Default returns the configuration of the published experiments:
// exp1 measures single MPC operations, and exp23 runs zkVM programs
// of varying instruction mix (exp2) and length (exp3).
func Default() *Config {
	exp1 := Experiment{
		Name: "exp1",
		Setups: []Setup{
			{"single", "exp1_single", 1},
			{"mpc-2t", "exp1_mpc_thread", 2},
			{"mpc-4t", "exp1_mpc_thread", 4},
			{"mpc-8t", "exp1_mpc_thread", 8},
			{"mpc-16t", "exp1_mpc_thread", 16},
		},
	}
	ops := []string{
		"Addition-100000",
		"Multiplication-100000",
		"Inversion-1000",
		"BitDecomposition-100",
	}
	for _, name := range ops {
		exp1.ComputeMethods = append(exp1.ComputeMethods, ComputeMethod{name, ModePlain})
		exp1.ZkpCircuits = append(exp1.ZkpCircuits, Circuit{name, ModePlain})
	}
	// zkVM-IE is proved in exp1 but its compute cost belongs to exp23.
	exp1.ZkpCircuits = append(exp1.ZkpCircuits, Circuit{"zkVM-IE", ModePlain})

	exp23 := Experiment{
		Name: "exp23",
		Setups: []Setup{
			{"single", "exp23_single", 1},
			{"mpc-2t", "exp23_mpc_thread", 2},
			{"mpc-4t", "exp23_mpc_thread", 4},
			{"mpc-8t", "exp23_mpc_thread", 8},
		},
		Instances:  append(append([]string(nil), exp2Instances...), exp3Instances...),
		StepCounts: map[string]int{},
		ComputeMethods: []ComputeMethod{
			{"IF", ModeSum},
			{"MF", ModeSum},
			{"IE", ModeSum},
			{"TS", ModeLast},
			{"TV", ModeLast},
		},
		ZkpCircuits: []Circuit{
			{"InstructionFetcherCircuit", ModeStep},
			{"MemoryTraceProverCircuit", ModeCount},
			{"ZkVmCircuit", ModeStep},
		},
	}
	for _, inst := range exp2Instances {
		exp23.StepCounts[inst] = 5
	}
	for inst, n := range map[string]int{
		"exp3_4": 4, "exp3_16": 16, "exp3_20": 20, "exp3_32": 32, "exp3_50": 50, "exp3_64": 64,
	} {
		exp23.StepCounts[inst] = n
	}

	return &Config{
		Root:        "rawdata",
		PartyIndex:  0,
		Experiments: []Experiment{exp1, exp23},
	}
}
