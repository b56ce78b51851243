// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package curves

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/luxfi/swapvm/fixedpoint"
)

// Concentrated is constant-product liquidity confined to a price range.
// PriceMin and PriceMax are output-per-input prices in WAD; a zero PriceMax
// leaves the range open above.
//
// Liquidity L is recovered from the real reserves x, y by solving
//
//	(x + L/sqrt(PriceMax)) * (y + L*sqrt(PriceMin)) = L^2
//
// and trades run on the virtual reserves X = x + L/sqrt(PriceMax),
// Y = y + L*sqrt(PriceMin).
type Concentrated struct {
	PriceMin *uint256.Int
	PriceMax *uint256.Int
	FeeBps   uint64
}

func (c Concentrated) validate() error {
	if c.PriceMin == nil || c.PriceMax == nil {
		return fmt.Errorf("%w: missing price range", ErrInvalidParams)
	}
	if !c.PriceMax.IsZero() && c.PriceMin.Cmp(c.PriceMax) >= 0 {
		return fmt.Errorf("%w: empty price range", ErrInvalidParams)
	}
	return checkFee(c.FeeBps)
}

// VirtualReserves returns the virtual reserves backing the real ones
func (c Concentrated) VirtualReserves(balanceIn, balanceOut *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	if err := c.validate(); err != nil {
		return nil, nil, err
	}
	sqrtMin, err := fixedpoint.SqrtWadDown(c.PriceMin)
	if err != nil {
		return nil, nil, err
	}

	// b = B = x*sqrtMin + y/sqrtMax, c1 = 1 - sqrtMin/sqrtMax
	b, err := fixedpoint.MulWadDown(balanceIn, sqrtMin)
	if err != nil {
		return nil, nil, err
	}
	c1 := fixedpoint.WAD.Clone()
	var sqrtMax *uint256.Int
	if !c.PriceMax.IsZero() {
		if sqrtMax, err = fixedpoint.SqrtWadUp(c.PriceMax); err != nil {
			return nil, nil, err
		}
		yTerm, err := fixedpoint.DivWadDown(balanceOut, sqrtMax)
		if err != nil {
			return nil, nil, err
		}
		if b, err = fixedpoint.Add(b, yTerm); err != nil {
			return nil, nil, err
		}
		ratio, err := fixedpoint.DivWadUp(sqrtMin, sqrtMax)
		if err != nil {
			return nil, nil, err
		}
		if ratio.Cmp(fixedpoint.WAD) >= 0 {
			return nil, nil, fmt.Errorf("%w: empty price range", ErrInvalidParams)
		}
		c1.Sub(c1, ratio)
	}

	// L = (B + sqrt(B^2 + 4*c1*x*y)) / (2*c1)
	bb, err := fixedpoint.Mul(b, b)
	if err != nil {
		return nil, nil, err
	}
	cx, err := fixedpoint.MulWadDown(c1, balanceIn)
	if err != nil {
		return nil, nil, err
	}
	cxy, err := fixedpoint.Mul(cx, balanceOut)
	if err != nil {
		return nil, nil, err
	}
	cxy4, err := fixedpoint.Mul(cxy, uint256.NewInt(4))
	if err != nil {
		return nil, nil, err
	}
	disc, err := fixedpoint.Add(bb, cxy4)
	if err != nil {
		return nil, nil, err
	}
	num, err := fixedpoint.Add(b, fixedpoint.SqrtDown(disc))
	if err != nil {
		return nil, nil, err
	}
	liquidity, err := fixedpoint.MulDivDown(num, fixedpoint.WAD, new(uint256.Int).Lsh(c1, 1))
	if err != nil {
		return nil, nil, err
	}

	virtualIn := balanceIn.Clone()
	if sqrtMax != nil {
		extra, err := fixedpoint.DivWadUp(liquidity, sqrtMax)
		if err != nil {
			return nil, nil, err
		}
		if virtualIn, err = fixedpoint.Add(virtualIn, extra); err != nil {
			return nil, nil, err
		}
	}
	extra, err := fixedpoint.MulWadDown(liquidity, sqrtMin)
	if err != nil {
		return nil, nil, err
	}
	virtualOut, err := fixedpoint.Add(balanceOut, extra)
	if err != nil {
		return nil, nil, err
	}
	return virtualIn, virtualOut, nil
}

func (c Concentrated) PriceForExactIn(balanceIn, balanceOut, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	vIn, vOut, err := c.VirtualReserves(balanceIn, balanceOut)
	if err != nil {
		return nil, err
	}
	net, err := DeductFee(amountIn, c.FeeBps)
	if err != nil {
		return nil, err
	}
	newIn, err := fixedpoint.Add(vIn, net)
	if err != nil {
		return nil, err
	}
	out, err := fixedpoint.MulDivDown(vOut, net, newIn)
	if err != nil {
		return nil, err
	}
	if out.Cmp(balanceOut) > 0 {
		return nil, fmt.Errorf("%w: output %s exceeds reserve %s", ErrPriceOutOfRange, out.Dec(), balanceOut.Dec())
	}
	if err := c.checkPostPrice(new(uint256.Int).Sub(vOut, out), newIn); err != nil {
		return nil, err
	}
	return out, nil
}

func (c Concentrated) PriceForExactOut(balanceIn, balanceOut, amountOut *uint256.Int) (*uint256.Int, error) {
	if err := checkReserves(balanceIn, balanceOut); err != nil {
		return nil, err
	}
	if amountOut.Cmp(balanceOut) >= 0 {
		return nil, ErrReserveDepleted
	}
	vIn, vOut, err := c.VirtualReserves(balanceIn, balanceOut)
	if err != nil {
		return nil, err
	}
	remaining := new(uint256.Int).Sub(vOut, amountOut)
	net, err := fixedpoint.MulDivUp(vIn, amountOut, remaining)
	if err != nil {
		return nil, err
	}
	newIn, err := fixedpoint.Add(vIn, net)
	if err != nil {
		return nil, err
	}
	if err := c.checkPostPrice(remaining, newIn); err != nil {
		return nil, err
	}
	return GrossUp(net, c.FeeBps)
}

func (c Concentrated) checkPostPrice(virtualOut, virtualIn *uint256.Int) error {
	price, err := fixedpoint.DivWadDown(virtualOut, virtualIn)
	if err != nil {
		return err
	}
	return checkPriceRange(price, c.PriceMin, nil)
}
