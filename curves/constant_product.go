// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// ConstantProduct is the x*y=k curve. The fee is taken from the input before
// pricing and stays in the reserves.
type ConstantProduct struct {
	FeeBps uint64
}

func (c ConstantProduct) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	net, err := DeductFee(amountIn, c.FeeBps)
	if err != nil {
		return nil, err
	}
	denom, err := fixedpoint.Add(balanceIn, net)
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDivDown(balanceOut, net, denom)
}

func (c ConstantProduct) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) >= 0 {
		return nil, ErrReserveDepleted
	}
	remaining := new(uint256.Int).Sub(balanceOut, amountOut)
	net, err := fixedpoint.MulDivUp(balanceIn, amountOut, remaining)
	if err != nil {
		return nil, err
	}
	return GrossUp(net, c.FeeBps)
}
