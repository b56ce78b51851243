// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import (
	"fmt"

	"github.com/luxfi/swapvm/modules"
)

// Gas costs
const (
	GasStaticBalances      uint64 = 200
	GasDynamicBalances     uint64 = 2_100
	GasFee                 uint64 = 300
	GasDynamicProtocolFee  uint64 = 2_600
	GasGasPriceAdjustedFee uint64 = 400
	GasConstantProduct     uint64 = 500
	GasPowerCurve          uint64 = 3_000
	GasPegged              uint64 = 2_000
	GasConcentrated        uint64 = 1_500
	GasSpline              uint64 = 800
	GasLimit               uint64 = 300
	GasSalt                uint64 = 50
	GasDeadline            uint64 = 100
)

type (
	executionFunc  func(ctx *Context, args []byte) error
	validationFunc func(args []byte) error
)

type operation struct {
	name        string
	family      string
	constantGas uint64
	// validate checks the argument block at decode time
	validate validationFunc
	// execute runs the instruction against the shared context
	execute executionFunc
}

// InstructionSet maps selectors to operations. A nil entry is an unknown or
// disabled opcode.
type InstructionSet [256]*operation

func init() {
	for _, m := range []modules.Module{
		{Name: FamilyBalances, Range: modules.SelectorRange{Start: 0x01, End: 0x0F}},
		{Name: FamilyFees, Range: modules.SelectorRange{Start: 0x10, End: 0x1F}},
		{Name: FamilySwaps, Range: modules.SelectorRange{Start: 0x20, End: 0x3F}},
		{Name: FamilyControl, Range: modules.SelectorRange{Start: 0xF0, End: 0xFF}},
	} {
		if err := modules.RegisterModule(m); err != nil {
			panic(err)
		}
	}
}

// newInstructionSet links the opcode table for a configuration. The result
// is never modified afterwards.
func newInstructionSet(cfg *Config) (*InstructionSet, error) {
	var set InstructionSet
	for op, o := range operations() {
		if cfg.disabled(op) {
			continue
		}
		m, ok := modules.GetModuleBySelector(byte(op))
		if !ok || m.Name != o.family {
			return nil, fmt.Errorf("opcode %s outside the %s family range", op, o.family)
		}
		o.name = op.String()
		set[op] = o
	}
	return &set, nil
}

func operations() map[OpCode]*operation {
	return map[OpCode]*operation{
		StaticBalances: {
			family:      FamilyBalances,
			constantGas: GasStaticBalances,
			validate:    validateStaticBalances,
			execute:     opStaticBalances,
		},
		DynamicBalances: {
			family:      FamilyBalances,
			constantGas: GasDynamicBalances,
			validate:    argsLen(32),
			execute:     opDynamicBalances,
		},
		FlatFee: {
			family:      FamilyFees,
			constantGas: GasFee,
			validate:    argsLen(2),
			execute:     opFlatFee,
		},
		ProgressiveFee: {
			family:      FamilyFees,
			constantGas: GasFee,
			validate:    argsLen(2),
			execute:     opProgressiveFee,
		},
		ProtocolFee: {
			family:      FamilyFees,
			constantGas: GasFee,
			validate:    validateProtocolFee,
			execute:     opProtocolFee,
		},
		DynamicProtocolFee: {
			family:      FamilyFees,
			constantGas: GasDynamicProtocolFee,
			validate:    argsLen(0),
			execute:     opDynamicProtocolFee,
		},
		GasPriceAdjustedFee: {
			family:      FamilyFees,
			constantGas: GasGasPriceAdjustedFee,
			validate:    validateGasPriceAdjustedFee,
			execute:     opGasPriceAdjustedFee,
		},
		ConstantProductSwap: {
			family:      FamilySwaps,
			constantGas: GasConstantProduct,
			validate:    argsLen(2),
			execute:     opConstantProductSwap,
		},
		StatelessSwap: {
			family:      FamilySwaps,
			constantGas: GasPowerCurve,
			validate:    validateStatelessSwap,
			execute:     opStatelessSwap,
		},
		PeggedSwap: {
			family:      FamilySwaps,
			constantGas: GasPegged,
			validate:    validatePegged(peggedArgsLen),
			execute:     opPeggedSwap,
		},
		PeggedSwapReinvest: {
			family:      FamilySwaps,
			constantGas: GasPegged,
			validate:    validatePegged(peggedArgsLen + 2),
			execute:     opPeggedSwapReinvest,
		},
		ConcentratedSwap: {
			family:      FamilySwaps,
			constantGas: GasConcentrated,
			validate:    validateConcentratedSwap,
			execute:     opConcentratedSwap,
		},
		SplineSwap: {
			family:      FamilySwaps,
			constantGas: GasSpline,
			validate:    validateSplineSwap,
			execute:     opSplineSwap,
		},
		StrictAdditiveSwap: {
			family:      FamilySwaps,
			constantGas: GasPowerCurve,
			validate:    validateStrictAdditiveSwap,
			execute:     opStrictAdditiveSwap,
		},
		LimitSwap: {
			family:      FamilySwaps,
			constantGas: GasLimit,
			validate:    validateLimitSwap,
			execute:     opLimitSwap,
		},
		Salt: {
			family:      FamilyControl,
			constantGas: GasSalt,
			validate:    validateSalt,
			execute:     opSalt,
		},
		Deadline: {
			family:      FamilyControl,
			constantGas: GasDeadline,
			validate:    argsLen(8),
			execute:     opDeadline,
		},
	}
}

func argsLen(n int) validationFunc {
	return func(args []byte) error {
		if len(args) != n {
			return fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidArgs, n, len(args))
		}
		return nil
	}
}
