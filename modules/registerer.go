// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"fmt"
	"sort"
)

// SelectorRange represents a continuous range of opcode selectors
type SelectorRange struct {
	Start byte
	End   byte
}

// Contains returns true iff [sel] is contained within the (inclusive)
// range of selectors defined by [r].
func (r SelectorRange) Contains(sel byte) bool {
	return sel >= r.Start && sel <= r.End
}

func (r SelectorRange) overlaps(o SelectorRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

func (r SelectorRange) String() string {
	return fmt.Sprintf("0x%02x-0x%02x", r.Start, r.End)
}

// InvalidSelector never decodes to an instruction
const InvalidSelector byte = 0x00

var (
	// registeredModules is a list of Module to preserve order
	// for deterministic iteration
	registeredModules = make([]Module, 0)

	// Reserved selector ranges for opcode families
	//
	// 0x01-0x0F: Balances (reserve-setting)
	// 0x10-0x1F: Fees
	// 0x20-0x3F: Swaps (curve invocation)
	// 0x40-0xEF: Unassigned
	// 0xF0-0xFF: Control
	reservedRanges = []SelectorRange{
		{Start: 0x01, End: 0x0F},
		{Start: 0x10, End: 0x1F},
		{Start: 0x20, End: 0x3F},
		{Start: 0xF0, End: 0xFF},
	}
)

// ReservedRange returns true if [r] lies inside one reserved range
func ReservedRange(r SelectorRange) bool {
	for _, reserved := range reservedRanges {
		if reserved.Contains(r.Start) && reserved.Contains(r.End) {
			return true
		}
	}
	return false
}

// RegisterModule registers an opcode family
func RegisterModule(m Module) error {
	if m.Name == "" {
		return fmt.Errorf("module for range %s has no name", m.Range)
	}
	if m.Range.Start > m.Range.End {
		return fmt.Errorf("range %s of %s is inverted", m.Range, m.Name)
	}
	if m.Range.Contains(InvalidSelector) {
		return fmt.Errorf("range %s overlaps with invalid selector", m.Range)
	}
	if !ReservedRange(m.Range) {
		return fmt.Errorf("range %s not in a reserved range", m.Range)
	}

	for _, registered := range registeredModules {
		if registered.Name == m.Name {
			return fmt.Errorf("name %s already used by an opcode family", m.Name)
		}
		if registered.Range.overlaps(m.Range) {
			return fmt.Errorf("range %s already used by %s", m.Range, registered.Name)
		}
	}
	// sort by selector to ensure deterministic iteration
	registeredModules = insertSortedBySelector(registeredModules, m)
	return nil
}

// GetModuleBySelector returns the family owning [sel]
func GetModuleBySelector(sel byte) (Module, bool) {
	for _, m := range registeredModules {
		if m.Range.Contains(sel) {
			return m, true
		}
	}
	return Module{}, false
}

func GetModule(name string) (Module, bool) {
	for _, m := range registeredModules {
		if m.Name == name {
			return m, true
		}
	}
	return Module{}, false
}

func RegisteredModules() []Module {
	return registeredModules
}

func insertSortedBySelector(data []Module, m Module) []Module {
	data = append(data, m)
	sort.Sort(moduleArray(data))
	return data
}
