// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// StrictAdditive preserves balanceIn^Alpha * balanceOut for trades in one
// direction. Alpha is a WAD value in (0, 1]; the shortfall below one is the fee
// and stays in the reserves.
//
// Because the invariant only depends on the running reserves, one trade of
// a+b and two sequential trades of a and b produce the same total output.
// Each direction carries its own invariant, so a round trip is not neutral.
type StrictAdditive struct {
	Alpha *uint256.Int
}

func (s StrictAdditive) validate() error {
	if s.Alpha == nil || s.Alpha.IsZero() || s.Alpha.Cmp(fixedpoint.WAD) > 0 {
		return fmt.Errorf("%w: alpha must be in (0, 1]", ErrInvalidParams)
	}
	return nil
}

func (s StrictAdditive) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return weightedOut(balanceIn, balanceOut, amountIn, s.Alpha)
}

// PriceForExactOut inverts PriceForExactIn for the same direction:
// amountIn = balanceIn * ((balanceOut / (balanceOut - amountOut))^(1/Alpha) - 1).
func (s StrictAdditive) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	invAlpha, err := fixedpoint.MulDivUp(fixedpoint.WAD, fixedpoint.WAD, s.Alpha)
	if err != nil {
		return nil, err
	}
	return weightedIn(balanceIn, balanceOut, amountOut, invAlpha)
}
