// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Limit fills at the fixed price balanceOut/balanceIn. The reserves describe
// the order itself (what the maker gives against what it wants), so the price
// does not move with size and the whole remaining order may be filled.
type Limit struct{}

func (Limit) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	out, err := fixedpoint.MulDivDown(amountIn, balanceOut, balanceIn)
	if err != nil {
		return nil, err
	}
	if out.Cmp(balanceOut) > 0 {
		return nil, ErrInsufficientReserves
	}
	return out, nil
}

func (Limit) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) > 0 {
		return nil, ErrReserveDepleted
	}
	return fixedpoint.MulDivUp(amountOut, balanceIn, balanceOut)
}
