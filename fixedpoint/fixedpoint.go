// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixedpoint implements the 18-decimal fixed-point arithmetic used by
// the swap curves. Every operation names its rounding direction explicitly;
// nothing rounds implicitly.
//
// Values are unsigned 256-bit integers (holiman/uint256). A value v represents
// v / 1e18 when it is used as a WAD quantity and the raw integer otherwise.
package fixedpoint

import (
	"errors"

	"github.com/holiman/uint256"
)

// Errors
var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrOverflow       = errors.New("fixed-point overflow")
	ErrUnderflow      = errors.New("fixed-point underflow")
	ErrInvalidInput   = errors.New("invalid fixed-point input")
)

// WadDecimals is the number of decimals of a WAD value
const WadDecimals = 18

var (
	// One is the integer 1
	One = uint256.NewInt(1)

	// WAD is 1.0 in 18-decimal fixed point
	WAD = uint256.NewInt(1_000_000_000_000_000_000)

	// WADSquared is WAD * WAD (1e36)
	WADSquared = new(uint256.Int).Mul(WAD, WAD)
)

// Wad converts a whole number of units into its WAD representation
func Wad(units uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(units), WAD)
}

// MustWad parses a decimal integer string (already scaled) and panics on failure.
// Intended for constants and tests.
func MustWad(s string) *uint256.Int {
	return uint256.MustFromDecimal(s)
}

// =========================================================================
// Multiplication / Division
// =========================================================================

// MulDivDown returns floor(x * y / d) using a 512-bit intermediate
func MulDivDown(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivUp returns ceil(x * y / d) using a 512-bit intermediate
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDivDown(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	if _, overflow := z.AddOverflow(z, One); overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulWadDown returns floor(x * y / WAD)
func MulWadDown(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, y, WAD)
}

// MulWadUp returns ceil(x * y / WAD)
func MulWadUp(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivUp(x, y, WAD)
}

// DivWadDown returns floor(x * WAD / y)
func DivWadDown(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivDown(x, WAD, y)
}

// DivWadUp returns ceil(x * WAD / y)
func DivWadUp(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivUp(x, WAD, y)
}

// DivUp returns ceil(x / y)
func DivUp(x, y *uint256.Int) (*uint256.Int, error) {
	return MulDivUp(x, One, y)
}

// Add returns x + y, failing on overflow
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y, failing when y > x
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns x * y, failing on overflow
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// SubFloor returns max(x - y, 0)
func SubFloor(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Min returns a copy of the smaller value
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) <= 0 {
		return x.Clone()
	}
	return y.Clone()
}

// Max returns a copy of the larger value
func Max(x, y *uint256.Int) *uint256.Int {
	if x.Cmp(y) >= 0 {
		return x.Clone()
	}
	return y.Clone()
}

// =========================================================================
// Square roots
// =========================================================================

// SqrtDown returns floor(sqrt(x))
func SqrtDown(x *uint256.Int) *uint256.Int {
	return new(uint256.Int).Sqrt(x)
}

// SqrtUp returns ceil(sqrt(x))
func SqrtUp(x *uint256.Int) *uint256.Int {
	z := new(uint256.Int).Sqrt(x)
	// z <= 2^128 - 1 so z*z cannot overflow
	if new(uint256.Int).Mul(z, z).Cmp(x) < 0 {
		z.AddUint64(z, 1)
	}
	return z
}

// SqrtWadDown returns floor(sqrt(x)) of a WAD value, as a WAD value
func SqrtWadDown(x *uint256.Int) (*uint256.Int, error) {
	scaled, err := Mul(x, WAD)
	if err != nil {
		return nil, err
	}
	return SqrtDown(scaled), nil
}

// SqrtWadUp returns ceil(sqrt(x)) of a WAD value, as a WAD value
func SqrtWadUp(x *uint256.Int) (*uint256.Int, error) {
	scaled, err := Mul(x, WAD)
	if err != nil {
		return nil, err
	}
	return SqrtUp(scaled), nil
}
