// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package swapvm

import "fmt"

// OpCode is a one-byte instruction selector
type OpCode byte

// Balances
const (
	StaticBalances  OpCode = 0x01
	DynamicBalances OpCode = 0x02
)

// Fees
const (
	FlatFee             OpCode = 0x10
	ProgressiveFee      OpCode = 0x11
	ProtocolFee         OpCode = 0x12
	DynamicProtocolFee  OpCode = 0x13
	GasPriceAdjustedFee OpCode = 0x14
)

// Swaps
const (
	ConstantProductSwap OpCode = 0x20
	StatelessSwap       OpCode = 0x21
	PeggedSwap          OpCode = 0x22
	PeggedSwapReinvest  OpCode = 0x23
	ConcentratedSwap    OpCode = 0x24
	SplineSwap          OpCode = 0x25
	StrictAdditiveSwap  OpCode = 0x26
	LimitSwap           OpCode = 0x27
)

// Control
const (
	Salt     OpCode = 0xF0
	Deadline OpCode = 0xF1
)

// Opcode families. Each owns a selector range registered with the modules
// package.
const (
	FamilyBalances = "balances"
	FamilyFees     = "fees"
	FamilySwaps    = "swaps"
	FamilyControl  = "control"
)

var opCodeToString = map[OpCode]string{
	StaticBalances:      "StaticBalances",
	DynamicBalances:     "DynamicBalances",
	FlatFee:             "FlatFee",
	ProgressiveFee:      "ProgressiveFee",
	ProtocolFee:         "ProtocolFee",
	DynamicProtocolFee:  "DynamicProtocolFee",
	GasPriceAdjustedFee: "GasPriceAdjustedFee",
	ConstantProductSwap: "ConstantProductSwap",
	StatelessSwap:       "StatelessSwap",
	PeggedSwap:          "PeggedSwap",
	PeggedSwapReinvest:  "PeggedSwapReinvest",
	ConcentratedSwap:    "ConcentratedSwap",
	SplineSwap:          "SplineSwap",
	StrictAdditiveSwap:  "StrictAdditiveSwap",
	LimitSwap:           "LimitSwap",
	Salt:                "Salt",
	Deadline:            "Deadline",
}

var stringToOp = func() map[string]OpCode {
	m := make(map[string]OpCode, len(opCodeToString))
	for op, name := range opCodeToString {
		m[name] = op
	}
	return m
}()

func (op OpCode) String() string {
	if name, ok := opCodeToString[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode 0x%02x not defined", byte(op))
}

// StringToOp finds the opcode whose name is stored in `str`
func StringToOp(str string) (OpCode, bool) {
	op, ok := stringToOp[str]
	return op, ok
}
