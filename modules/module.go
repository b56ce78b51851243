// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules keeps the registry of opcode families. Each family owns a
// selector range; the instruction set refuses opcodes whose selector falls
// outside the range of the family they claim.
package modules

// Module is one opcode family
type Module struct {
	// Name is the unique family name, e.g. "fees"
	Name string
	// Range is the selector range owned by the family
	Range SelectorRange
}

type moduleArray []Module

func (u moduleArray) Len() int {
	return len(u)
}

func (u moduleArray) Swap(i, j int) {
	u[i], u[j] = u[j], u[i]
}

func (m moduleArray) Less(i, j int) bool {
	return m[i].Range.Start < m[j].Range.Start
}
