// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Stateless is the weighted invariant x^wIn * y^wOut = k evaluated against the
// reserves supplied for each call. Weights are relative; only their ratio matters.
type Stateless struct {
	WeightIn  uint64
	WeightOut uint64
	FeeBps    uint64
}

func (s Stateless) validate() error {
	if s.WeightIn == 0 || s.WeightOut == 0 {
		return fmt.Errorf("%w: zero weight", ErrInvalidParams)
	}
	return checkFee(s.FeeBps)
}

func (s Stateless) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	net, err := DeductFee(amountIn, s.FeeBps)
	if err != nil {
		return nil, err
	}
	// A smaller exponent leaves more of the output reserve behind
	exp, err := fixedpoint.MulDivDown(uint256.NewInt(s.WeightIn), fixedpoint.WAD, uint256.NewInt(s.WeightOut))
	if err != nil {
		return nil, err
	}
	return weightedOut(balanceIn, balanceOut, net, exp)
}

func (s Stateless) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	exp, err := fixedpoint.MulDivUp(uint256.NewInt(s.WeightOut), fixedpoint.WAD, uint256.NewInt(s.WeightIn))
	if err != nil {
		return nil, err
	}
	net, err := weightedIn(balanceIn, balanceOut, amountOut, exp)
	if err != nil {
		return nil, err
	}
	return GrossUp(net, s.FeeBps)
}

// weightedOut returns floor(y * (1 - (x / (x + a))^exp))
func weightedOut(x, y, a, exp *uint256.Int) (*uint256.Int, error) {
	if a.IsZero() {
		return new(uint256.Int), nil
	}
	sum, err := fixedpoint.Add(x, a)
	if err != nil {
		return nil, err
	}
	ratio, err := fixedpoint.MulDivUp(x, fixedpoint.WAD, sum)
	if err != nil {
		return nil, err
	}
	kept, err := fixedpoint.PowUp(ratio, exp)
	if err != nil {
		return nil, err
	}
	if kept.Cmp(fixedpoint.WAD) >= 0 {
		return new(uint256.Int), nil
	}
	return fixedpoint.MulDivDown(y, new(uint256.Int).Sub(fixedpoint.WAD, kept), fixedpoint.WAD)
}

// weightedIn returns ceil(x * ((y / (y - b))^exp - 1))
func weightedIn(x, y, b, exp *uint256.Int) (*uint256.Int, error) {
	if b.Cmp(y) >= 0 {
		return nil, ErrReserveDepleted
	}
	if b.IsZero() {
		return new(uint256.Int), nil
	}
	remaining := new(uint256.Int).Sub(y, b)
	ratio, err := fixedpoint.MulDivUp(y, fixedpoint.WAD, remaining)
	if err != nil {
		return nil, err
	}
	grown, err := fixedpoint.PowUp(ratio, exp)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDivUp(x, fixedpoint.SubFloor(grown, fixedpoint.WAD), fixedpoint.WAD)
}
